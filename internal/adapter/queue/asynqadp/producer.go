// Package asynqadp is C9's queue bridge: an asynq-backed producer/consumer
// pair translating the six §6.1 job kinds to and from the resource and
// auto-complete queues, with the per-kind retry policy from §4.9/§9.
package asynqadp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/neptunehub/campus-errand-engine/internal/adapter/observability"
	"github.com/neptunehub/campus-errand-engine/internal/domain"
	"github.com/neptunehub/campus-errand-engine/internal/scheduler"
)

// QueueResource and QueueAutoComplete are the two asynq queue names (§3
// control flow: "a resource queue ... and an auto-complete queue").
const (
	QueueResource     = "resource_queue"
	QueueAutoComplete = "auto_complete_queue"
)

// retryPolicy enumerates §9's "mixed retry policies per job" in one place.
var retryPolicy = map[scheduler.JobKind]int{
	scheduler.JobClassifyResource:         1,
	scheduler.JobPopulatePotentialMatches: 1,
	scheduler.JobMatchResources:           1,
	scheduler.JobAssignErrand:             3,
	scheduler.JobCleanupTimedOutMatches:   3,
	scheduler.JobAutoCompleteMatch:        3,
}

const defaultRetention = 24 * time.Hour

// Producer enqueues jobs onto the asynq-backed broker.
type Producer struct {
	client *asynq.Client
}

// NewProducer parses redisURL (a redis:// URI, per asynq.ParseRedisURI) and
// constructs a Producer.
func NewProducer(redisURL string) (*Producer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("op=asynqadp.new_producer: %w", err)
	}
	return &Producer{client: asynq.NewClient(opt)}, nil
}

// Close releases the underlying redis connection.
func (p *Producer) Close() error { return p.client.Close() }

func (p *Producer) enqueue(ctx context.Context, kind scheduler.JobKind, queue string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("op=asynqadp.enqueue.marshal: %w", err)
	}
	t := asynq.NewTask(string(kind), data)
	_, err = p.client.EnqueueContext(ctx, t,
		asynq.Queue(queue),
		asynq.MaxRetry(retryPolicy[kind]),
		asynq.Retention(defaultRetention),
	)
	if err != nil {
		return fmt.Errorf("op=asynqadp.enqueue: %w", err)
	}
	observability.EnqueueJob(string(kind))
	return nil
}

// EnqueueClassifyResource enqueues a classifyResource job (reactive: called
// by the resource-ingestion surface outside this module's scope, not by
// the scheduler).
func (p *Producer) EnqueueClassifyResource(ctx context.Context, resourceID domain.ObjectID) error {
	return p.enqueue(ctx, scheduler.JobClassifyResource, QueueResource, scheduler.ClassifyResourcePayload{ResourceID: resourceID.String()})
}

// EnqueueMatchResources enqueues a matchResources job. Per §9 Open
// Question 2 this runs on demand (CLI or explicit enqueue), never on the
// scheduler's ticker.
func (p *Producer) EnqueueMatchResources(ctx context.Context) error {
	return p.enqueue(ctx, scheduler.JobMatchResources, QueueResource, scheduler.EmptyPayload{})
}

// EnqueuePopulatePotentialMatches implements the scheduler.Enqueuer port.
func (p *Producer) EnqueuePopulatePotentialMatches(ctx context.Context) error {
	return p.enqueue(ctx, scheduler.JobPopulatePotentialMatches, QueueResource, scheduler.EmptyPayload{})
}

// EnqueueAssignErrand implements the scheduler.Enqueuer port.
func (p *Producer) EnqueueAssignErrand(ctx context.Context) error {
	return p.enqueue(ctx, scheduler.JobAssignErrand, QueueResource, scheduler.EmptyPayload{})
}

// EnqueueCleanupTimedOutMatches implements the scheduler.Enqueuer port.
func (p *Producer) EnqueueCleanupTimedOutMatches(ctx context.Context) error {
	return p.enqueue(ctx, scheduler.JobCleanupTimedOutMatches, QueueResource, scheduler.EmptyPayload{})
}

// EnqueueAutoCompleteMatchJob implements the scheduler.Enqueuer port.
func (p *Producer) EnqueueAutoCompleteMatchJob(ctx context.Context) error {
	return p.enqueue(ctx, scheduler.JobAutoCompleteMatch, QueueAutoComplete, scheduler.EmptyPayload{})
}

var _ scheduler.Enqueuer = (*Producer)(nil)
