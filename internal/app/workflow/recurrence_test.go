package workflow

import (
	"testing"
	"time"

	"github.com/studycircle/studycircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func testGroup(recurrence string) models.Group {
	return models.Group{
		ID:              primitive.NewObjectID(),
		Name:            "Calculus crew",
		ModuleCode:      "MATH101",
		MeetingTime:     "14:00",
		Recurrence:      recurrence,
		LocationDetails: "Library room 2",
	}
}

func TestBuildMeetingSeries_WeeklyDefaultEnd(t *testing.T) {
	now := day("2025-01-01")
	series := buildMeetingSeries(testGroup(models.RecurWeekly), day("2025-01-01"), time.Time{}, now)

	// Weekly from Jan 1 up to (not reaching) Apr 1: 13 occurrences,
	// the last on Mar 26.
	if len(series) != 13 {
		t.Fatalf("got %d occurrences, want 13", len(series))
	}
	if !series[0].StartsOn.Equal(day("2025-01-01")) {
		t.Errorf("first occurrence %v, want 2025-01-01", series[0].StartsOn)
	}
	if last := series[len(series)-1].StartsOn; !last.Equal(day("2025-03-26")) {
		t.Errorf("last occurrence %v, want 2025-03-26", last)
	}
	for i := 1; i < len(series); i++ {
		if gap := series[i].StartsOn.Sub(series[i-1].StartsOn); gap != 7*24*time.Hour {
			t.Fatalf("gap between occurrence %d and %d is %v, want 168h", i-1, i, gap)
		}
	}
}

func TestBuildMeetingSeries_EndDateExclusive(t *testing.T) {
	series := buildMeetingSeries(testGroup(models.RecurWeekly), day("2025-01-01"), day("2025-01-15"), day("2025-01-01"))
	// Jan 1 and Jan 8; Jan 15 is excluded.
	if len(series) != 2 {
		t.Fatalf("got %d occurrences, want 2", len(series))
	}
	if !series[1].StartsOn.Equal(day("2025-01-08")) {
		t.Errorf("second occurrence %v, want 2025-01-08", series[1].StartsOn)
	}
}

func TestBuildMeetingSeries_Steps(t *testing.T) {
	cases := []struct {
		pattern string
		days    int
	}{
		{models.RecurDaily, 1},
		{models.RecurWeekly, 7},
		{models.RecurBiweekly, 14},
		{models.RecurMonthly, 30},
	}
	for _, tc := range cases {
		series := buildMeetingSeries(testGroup(tc.pattern), day("2025-06-01"), day("2025-08-01"), day("2025-06-01"))
		if len(series) < 2 {
			t.Fatalf("%s: got %d occurrences, want at least 2", tc.pattern, len(series))
		}
		gap := series[1].StartsOn.Sub(series[0].StartsOn)
		if want := time.Duration(tc.days) * 24 * time.Hour; gap != want {
			t.Errorf("%s: step %v, want %v", tc.pattern, gap, want)
		}
	}
}

func TestBuildMeetingSeries_YearCap(t *testing.T) {
	series := buildMeetingSeries(testGroup(models.RecurMonthly), day("2025-01-01"), day("2030-01-01"), day("2025-01-01"))
	for _, m := range series {
		if m.StartsOn.After(day("2026-01-01")) {
			t.Fatalf("occurrence %v beyond the one-year cap", m.StartsOn)
		}
	}
	if len(series) != 13 { // 365 days / 30-day step, first included
		t.Errorf("got %d occurrences, want 13", len(series))
	}
}

func TestBuildMeetingSeries_DailySpanCap(t *testing.T) {
	series := buildMeetingSeries(testGroup(models.RecurDaily), day("2025-01-01"), time.Time{}, day("2025-01-01"))
	if len(series) != maxDailySpanDays {
		t.Fatalf("got %d daily occurrences, want %d", len(series), maxDailySpanDays)
	}
	if last := series[len(series)-1].StartsOn; !last.Equal(day("2025-03-01")) {
		t.Errorf("last daily occurrence %v, want 2025-03-01", last)
	}
}

func TestBuildMeetingSeries_NoRecurrence(t *testing.T) {
	series := buildMeetingSeries(testGroup(""), day("2025-05-10"), time.Time{}, day("2025-05-10"))
	if len(series) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(series))
	}
	m := series[0]
	if m.ModuleCode != "MATH101" || m.GroupName != "Calculus crew" || m.Location != "Library room 2" {
		t.Errorf("group metadata not copied onto occurrence: %+v", m)
	}
}
