package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/playground/internal/domain"
	"github.com/aristath/playground/internal/modules/investor"
	"github.com/aristath/playground/internal/modules/ledger"
)

// Snapshotter revalues and snapshots the ledger.
type Snapshotter interface {
	Revalue(ctx context.Context, asOf time.Time) error
	Snapshot(ctx context.Context, date time.Time) (ledger.Snapshot, error)
}

// ConditionTracker refreshes market conditions and grades the portfolio.
type ConditionTracker interface {
	UpdateConditions(ctx context.Context, asOf time.Time, extra ...string) (map[string]investor.Condition, error)
	EvaluatePortfolioStatus(ctx context.Context) (investor.PortfolioStatus, error)
}

// DepositAllocator credits the monthly deposit.
type DepositAllocator interface {
	AllocateMonthlyDeposit(ctx context.Context, now time.Time) (bool, error)
}

// DailySnapshotJob revalues the ledger at today's prices, appends a
// snapshot and refreshes the investor's market conditions.
type DailySnapshotJob struct {
	ledger     Snapshotter
	conditions ConditionTracker
	log        zerolog.Logger
	now        func() time.Time
}

// NewDailySnapshotJob creates the snapshot job. conditions is optional.
func NewDailySnapshotJob(l Snapshotter, conditions ConditionTracker, log zerolog.Logger) *DailySnapshotJob {
	return &DailySnapshotJob{
		ledger:     l,
		conditions: conditions,
		log:        log.With().Str("job", "ledger_daily_snapshot").Logger(),
		now:        time.Now,
	}
}

// Name returns the job name
func (j *DailySnapshotJob) Name() string {
	return "ledger_daily_snapshot"
}

// Run executes the snapshot job. Condition failures are logged since the
// snapshot is already stored.
func (j *DailySnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	today := domain.Day(j.now())
	if err := j.ledger.Revalue(ctx, today); err != nil {
		return fmt.Errorf("failed to revalue ledger: %w", err)
	}
	snap, err := j.ledger.Snapshot(ctx, today)
	if err != nil {
		return fmt.Errorf("failed to snapshot ledger: %w", err)
	}

	j.log.Info().
		Str("date", today.Format("2006-01-02")).
		Float64("net_worth", snap.State.NetWorth).
		Msg("Ledger snapshot stored")

	if j.conditions == nil {
		return nil
	}
	if _, err := j.conditions.UpdateConditions(ctx, today); err != nil {
		j.log.Warn().Err(err).Msg("Failed to update market conditions")
		return nil
	}
	status, err := j.conditions.EvaluatePortfolioStatus(ctx)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to evaluate portfolio status")
		return nil
	}
	j.log.Info().Str("status", string(status)).Msg("Portfolio status evaluated")
	return nil
}

// MonthlyDepositJob credits the monthly deposit once per calendar month.
type MonthlyDepositJob struct {
	allocator DepositAllocator
	log       zerolog.Logger
	now       func() time.Time
}

// NewMonthlyDepositJob creates the deposit job.
func NewMonthlyDepositJob(allocator DepositAllocator, log zerolog.Logger) *MonthlyDepositJob {
	return &MonthlyDepositJob{
		allocator: allocator,
		log:       log.With().Str("job", "ledger_monthly_deposit").Logger(),
		now:       time.Now,
	}
}

// Name returns the job name
func (j *MonthlyDepositJob) Name() string {
	return "ledger_monthly_deposit"
}

// Run executes the deposit job
func (j *MonthlyDepositJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	credited, err := j.allocator.AllocateMonthlyDeposit(ctx, j.now())
	if err != nil {
		return fmt.Errorf("failed to allocate monthly deposit: %w", err)
	}
	if !credited {
		j.log.Debug().Msg("Monthly deposit already credited")
	}
	return nil
}
