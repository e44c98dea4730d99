package session

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// ScheduleSweep runs Sweep on c at schedule, for example "@every 1m".
func (s *Store) ScheduleSweep(c *cron.Cron, schedule string) (cron.EntryID, error) {
	return c.AddFunc(schedule, func() {
		if n := s.Sweep(); n > 0 {
			slog.Info("expired forecast sessions removed", "count", n, "remaining", s.Len())
		}
	})
}
