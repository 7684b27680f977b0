package workflow

import (
	"time"

	"github.com/studycircle/studycircle/internal/domain/models"
)

// Day steps for each recurrence pattern. "monthly" is a fixed 30-day
// step, not a calendar month.
var recurrenceStep = map[string]int{
	models.RecurDaily:    1,
	models.RecurWeekly:   7,
	models.RecurBiweekly: 14,
	models.RecurMonthly:  30,
}

const (
	defaultSeriesSpan = 3 // months, when no end date is given
	maxSeriesSpan     = 1 // years
	maxDailySpanDays  = 60
)

// seriesEnd resolves the exclusive end date of a series starting at
// first. A zero requested end means "3 months out". The end is capped
// at one year after the first date, and daily series are additionally
// capped at a 60-day span.
func seriesEnd(first time.Time, requested time.Time, pattern string) time.Time {
	end := requested
	if end.IsZero() {
		end = first.AddDate(0, defaultSeriesSpan, 0)
	}
	if limit := first.AddDate(maxSeriesSpan, 0, 0); end.After(limit) {
		end = limit
	}
	if pattern == models.RecurDaily {
		if limit := first.AddDate(0, 0, maxDailySpanDays); end.After(limit) {
			end = limit
		}
	}
	return end
}

// buildMeetingSeries expands a first meeting date into the occurrence
// records for the group's calendar. The first date is always included;
// stepping stops before the end date (inclusive-exclusive). An empty
// pattern yields a single occurrence. Group and module metadata are
// copied onto every record so calendar reads need no join;
// original_meeting_id linkage is stamped on insert.
func buildMeetingSeries(g models.Group, first time.Time, end time.Time, now time.Time) []models.Meeting {
	occurrence := func(on time.Time) models.Meeting {
		return models.Meeting{
			GroupID:    g.ID,
			GroupName:  g.Name,
			ModuleCode: g.ModuleCode,
			StartsOn:   on,
			Time:       g.MeetingTime,
			Location:   g.LocationDetails,
			Recurrence: g.Recurrence,
			CreatedAt:  now,
		}
	}

	step, ok := recurrenceStep[g.Recurrence]
	if !ok {
		return []models.Meeting{occurrence(first)}
	}

	end = seriesEnd(first, end, g.Recurrence)
	var series []models.Meeting
	for on := first; on.Before(end); on = on.AddDate(0, 0, step) {
		series = append(series, occurrence(on))
	}
	if len(series) == 0 {
		// End date on or before the first date still yields the
		// first occurrence.
		series = append(series, occurrence(first))
	}
	return series
}

// parseMeetingDate parses the ISO date supplied at group creation,
// anchored at UTC midnight.
func parseMeetingDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}
