package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Foundation42/entrained.ai-engram/internal/store"
)

// defaultLinearDecayRatePerDay is the rate the monthly job passes for the
// "linear" decay function; Retention carries no per-memory rate, so every
// linear-decay memory uses it (spec §4.5.1).
const defaultLinearDecayRatePerDay = 0.01

// journalRetention bounds how long cleanup_runs rows are kept; pruned on
// every monthly pass alongside the decay job.
const journalRetention = 180 * 24 * time.Hour

// Scheduler runs the three C7 cleanup jobs on their configured cron
// schedules, journaling every run (spec §4.5).
type Scheduler struct {
	store      store.Store
	journal    *Journal
	cron       *cron.Cron
	invalidate CacheInvalidator
}

// Config names the cron schedule for each job. Schedules accept both
// standard 5-field cron expressions and robfig/cron's "@daily"/"@weekly"/
// "@monthly" shorthand.
type Config struct {
	DailyCron   string
	WeeklyCron  string
	MonthlyCron string
}

// New constructs a Scheduler; call Start to begin running jobs. inv, if
// non-nil, is invalidated (see CacheInvalidator) for every memory the
// cleanup jobs delete, merge away, or rewrite, so a cache sitting in front
// of the store (internal/engine.Engine's get(memory_id) cache) never serves
// a stale result after a scheduler-driven mutation. Pass nil if no such
// cache exists.
func New(s store.Store, j *Journal, cfg Config, inv CacheInvalidator) (*Scheduler, error) {
	sched := &Scheduler{store: s, journal: j, cron: cron.New(), invalidate: inv}

	if _, err := sched.cron.AddFunc(cfg.DailyCron, sched.runDailyExpire); err != nil {
		return nil, err
	}
	if _, err := sched.cron.AddFunc(cfg.WeeklyCron, sched.runWeeklyConsolidate); err != nil {
		return nil, err
	}
	if _, err := sched.cron.AddFunc(cfg.MonthlyCron, sched.runMonthlyDecay); err != nil {
		return nil, err
	}
	return sched, nil
}

// Start begins running jobs on their schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunAllNow runs every job once immediately, out of band from the cron
// schedule, for operator-triggered cleanup (spec §6.1 admin surface).
func (s *Scheduler) RunAllNow(ctx context.Context) {
	s.runDailyExpireCtx(ctx)
	s.runWeeklyConsolidateCtx(ctx)
	s.runMonthlyDecayCtx(ctx)
}

func (s *Scheduler) runDailyExpire()       { s.runDailyExpireCtx(context.Background()) }
func (s *Scheduler) runWeeklyConsolidate() { s.runWeeklyConsolidateCtx(context.Background()) }
func (s *Scheduler) runMonthlyDecay()      { s.runMonthlyDecayCtx(context.Background()) }

func (s *Scheduler) runDailyExpireCtx(ctx context.Context) {
	started := time.Now().UTC()
	deleted, err := ExpireDaily(ctx, s.store, started, s.invalidate)
	s.journalRun("daily_expire", started, Run{Deleted: deleted}, err)
}

func (s *Scheduler) runWeeklyConsolidateCtx(ctx context.Context) {
	started := time.Now().UTC()
	merged, err := ConsolidateWeekly(ctx, s.store, s.invalidate)
	s.journalRun("weekly_consolidate", started, Run{Merged: merged}, err)
}

func (s *Scheduler) runMonthlyDecayCtx(ctx context.Context) {
	started := time.Now().UTC()
	demoted, err := DecayMonthly(ctx, s.store, defaultLinearDecayRatePerDay, started, s.invalidate)
	s.journalRun("monthly_decay", started, Run{Demoted: demoted}, err)

	if _, pruneErr := s.journal.Prune(ctx, journalRetention); pruneErr != nil {
		log.Printf("scheduler: failed to prune journal: %v", pruneErr)
	}
}

func (s *Scheduler) journalRun(jobType string, started time.Time, partial Run, jobErr error) {
	run := partial
	run.JobType = jobType
	run.StartedAt = started
	run.FinishedAt = time.Now().UTC()
	if jobErr != nil {
		run.Error = jobErr.Error()
	}
	if err := s.journal.Record(context.Background(), run); err != nil {
		log.Printf("scheduler: failed to journal %s run: %v", jobType, err)
	}
}
