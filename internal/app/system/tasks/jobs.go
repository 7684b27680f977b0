// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/studycircle/studycircle/internal/app/store/catalogue"
	"github.com/studycircle/studycircle/internal/app/store/groups"
	"github.com/studycircle/studycircle/internal/app/store/members"
	"go.uber.org/zap"
)

// CatalogueAuditJob nulls out module references in majors that no
// longer resolve after a catalogue reload. Runs daily.
func CatalogueAuditJob(store *cataloguestore.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "catalogue-audit",
		Interval: 24 * time.Hour,
		Run: func(ctx context.Context) error {
			repaired, err := store.PruneDanglingModuleRefs(ctx)
			if err != nil {
				return err
			}
			if repaired > 0 {
				logger.Info("pruned dangling module references",
					zap.Int64("majors_repaired", repaired))
			}
			return nil
		},
	}
}

// MemberCountRepairJob re-derives each group's member_count from the
// group_members collection. Transitions keep the counter and the
// membership documents consistent, but the no-transaction fallback
// path can drift on partial failure; this pass heals it nightly.
func MemberCountRepairJob(groups *groupstore.Store, members *memberstore.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "member-count-repair",
		Interval: 24 * time.Hour,
		Run: func(ctx context.Context) error {
			ids, err := groups.ListIDs(ctx)
			if err != nil {
				return err
			}
			var repaired int
			for _, id := range ids {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				actual, err := members.CountByGroup(ctx, id, "")
				if err != nil {
					return err
				}
				g, err := groups.GetByID(ctx, id)
				if err != nil {
					continue // deleted since ListIDs; skip
				}
				if int64(g.MemberCount) == actual {
					continue
				}
				if err := groups.SetMemberCount(ctx, id, int(actual)); err != nil {
					return err
				}
				logger.Warn("member_count drifted; repaired",
					zap.String("group_id", id.Hex()),
					zap.Int("stored", g.MemberCount),
					zap.Int64("actual", actual))
				repaired++
			}
			if repaired > 0 {
				logger.Info("member counts repaired", zap.Int("groups", repaired))
			}
			return nil
		},
	}
}
