package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openride/rideshare-api/internal/repo"
)

// Run starts a background job that purges trips departed more than the
// retention window ago from both ledgers at each cron tick. Returns the
// started cron so callers can Stop it on shutdown.
func Run(cronExpr string, retention time.Duration, ledgers ...*repo.TripRepo) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(cronExpr, func() {
		cutoff := time.Now().Add(-retention)
		for _, ledger := range ledgers {
			n, err := ledger.PurgeDepartedBefore(context.Background(), cutoff)
			if err != nil {
				slog.Error("trip purge failed", "table", ledger.Table(), "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged departed trips", "table", ledger.Table(), "count", n, "cutoff", cutoff)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}
