package scheduler

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
)

// Enqueuer is the subset of the queue bridge the scheduler needs: one
// fire-and-forget enqueue call per periodic job kind.
type Enqueuer interface {
	EnqueuePopulatePotentialMatches(ctx context.Context) error
	EnqueueAssignErrand(ctx context.Context) error
	EnqueueCleanupTimedOutMatches(ctx context.Context) error
	EnqueueAutoCompleteMatchJob(ctx context.Context) error
}

// job is one ticked cadence: every interval (after the initial delay
// offset), call enqueue.
type job struct {
	name     string
	interval time.Duration
	offset   time.Duration
	enqueue  func(context.Context) error
}

// Scheduler runs the four periodic cadences from §4.9: populate-potential-
// matches every 10 minutes, assign-errand every 10 minutes staggered 2
// minutes after it, and cleanup-timed-out / auto-complete daily.
// matchResources and classifyResource are intentionally absent — per §9
// Open Question 2, goods-matching runs on demand (CLI/explicit enqueue),
// not on a ticker.
type Scheduler struct {
	jobs []job
	log  *slog.Logger
}

// New constructs the default Scheduler wired to q.
func New(q Enqueuer, log *slog.Logger) *Scheduler {
	return &Scheduler{
		log: log,
		jobs: []job{
			{name: "populatePotentialMatches", interval: 10 * time.Minute, enqueue: q.EnqueuePopulatePotentialMatches},
			{name: "assignErrand", interval: 10 * time.Minute, offset: 2 * time.Minute, enqueue: q.EnqueueAssignErrand},
			{name: "cleanupTimedOutMatches", interval: 24 * time.Hour, enqueue: q.EnqueueCleanupTimedOutMatches},
			{name: "auto_complete_match_job", interval: 24 * time.Hour, enqueue: q.EnqueueAutoCompleteMatchJob},
		},
	}
}

// Run ticks every configured job until ctx is cancelled. Each job runs on
// its own goroutine so a slow/blocked enqueue on one cadence never delays
// another.
func (s *Scheduler) Run(ctx context.Context) {
	done := make(chan struct{}, len(s.jobs))
	for _, j := range s.jobs {
		j := j
		go func() {
			s.runJob(ctx, j)
			done <- struct{}{}
		}()
	}
	for range s.jobs {
		<-done
	}
}

func (s *Scheduler) runJob(ctx context.Context, j job) {
	if j.offset > 0 {
		t := time.NewTimer(j.offset)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	s.fire(ctx, j)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler: stopping cadence", "op", "scheduler.run", "job", j.name)
			return
		case <-ticker.C:
			s.fire(ctx, j)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, j job) {
	tracer := otel.Tracer("scheduler")
	ctx, span := tracer.Start(ctx, "Scheduler.fire")
	defer span.End()

	if err := j.enqueue(ctx); err != nil {
		s.log.Error("scheduler: enqueue failed", "op", "scheduler.run."+j.name, "job", j.name, "err", err)
	}
}
