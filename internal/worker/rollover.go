package worker

import (
	"context"
	"fmt"
	"time"

	applog "moneta/internal/log"

	"github.com/robfig/cron/v3"
)

// DefaultRolloverSchedule fires at 00:05 on the first day of every month.
const DefaultRolloverSchedule = "5 0 1 * *"

// MonthOpener materializes a month's bucket for every wallet.
type MonthOpener interface {
	OpenMonthForAll(ctx context.Context, year, month int) error
}

// Rollover opens the current month for every wallet so monthly reports
// show the carried-over balance before the first transaction lands.
type Rollover struct {
	ledger MonthOpener
	logger *applog.Logger
	now    func() time.Time
}

// NewRollover returns a job that opens the current UTC month through
// ledger.
func NewRollover(ledger MonthOpener) *Rollover {
	return &Rollover{
		ledger: ledger,
		logger: applog.FromContext(context.Background()).WithComponent(applog.ComponentRollover),
		now:    time.Now,
	}
}

// Run opens the current UTC month.
func (r *Rollover) Run(ctx context.Context) error {
	now := r.now().UTC()
	year, month := now.Year(), int(now.Month())

	start := time.Now()
	if err := r.ledger.OpenMonthForAll(ctx, year, month); err != nil {
		return fmt.Errorf("open month %04d-%02d: %w", year, month, err)
	}
	fields := applog.NewFields().WithOperation(applog.OpRollover).WithPeriod(year, month)
	r.logger.InfoContext(ctx, "Monthly rollover complete",
		append(fields.ToSlice(), applog.FieldDuration, time.Since(start).Milliseconds())...)
	return nil
}

// Schedule registers Run on c under spec. An empty spec uses
// DefaultRolloverSchedule.
func (r *Rollover) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultRolloverSchedule
	}
	id, err := c.AddFunc(spec, func() {
		if err := r.Run(ctx); err != nil {
			r.logger.LogError(ctx, "Monthly rollover failed", err, applog.OpRollover, nil)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule rollover %q: %w", spec, err)
	}
	return id, nil
}
