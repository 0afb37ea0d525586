package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/playground/internal/clientdata"
	"github.com/aristath/playground/internal/config"
	"github.com/aristath/playground/internal/reliability"
	"github.com/aristath/playground/internal/scheduler"
)

// JobInstances holds every scheduled job so they can also be triggered
// manually.
type JobInstances struct {
	DailySnapshot   scheduler.Job
	MonthlyDeposit  scheduler.Job
	ClientDataPurge scheduler.Job
	Maintenance     scheduler.Job
	Backup          scheduler.Job // nil when backups are disabled
}

// All returns the registered jobs.
func (j *JobInstances) All() []scheduler.Job {
	out := []scheduler.Job{j.DailySnapshot, j.MonthlyDeposit, j.ClientDataPurge, j.Maintenance}
	if j.Backup != nil {
		out = append(out, j.Backup)
	}
	return out
}

// RegisterJobs creates the jobs and adds them to sched.
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	databases := make([]reliability.Database, 0, 4)
	for _, db := range container.Databases() {
		databases = append(databases, db)
	}

	jobs := &JobInstances{
		DailySnapshot:   scheduler.NewDailySnapshotJob(container.Ledger, container.Investor, log),
		MonthlyDeposit:  scheduler.NewMonthlyDepositJob(container.Investor, log),
		ClientDataPurge: clientdata.NewPurgeJob(container.ClientData, log),
		Maintenance:     reliability.NewMaintenanceJob(databases, cfg.DataDir, log),
	}
	if container.Backup != nil {
		jobs.Backup = reliability.NewBackupJob(container.Backup, cfg.Backup.RetentionDays, log)
	}

	schedules := []struct {
		spec string
		job  scheduler.Job
	}{
		{cfg.Ledger.SnapshotSchedule, jobs.DailySnapshot},
		{cfg.Ledger.DepositSchedule, jobs.MonthlyDeposit},
		{"@daily", jobs.ClientDataPurge},
		{"0 2 * * *", jobs.Maintenance},
	}
	if jobs.Backup != nil {
		schedules = append(schedules, struct {
			spec string
			job  scheduler.Job
		}{cfg.Backup.Schedule, jobs.Backup})
	}

	for _, s := range schedules {
		if err := sched.AddJob(s.spec, s.job); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", s.job.Name(), err)
		}
	}
	return jobs, nil
}
