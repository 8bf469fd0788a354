package asynqadp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"

	metrics "github.com/neptunehub/campus-errand-engine/internal/adapter/observability"
	"github.com/neptunehub/campus-errand-engine/internal/assigner"
	"github.com/neptunehub/campus-errand-engine/internal/autocomplete"
	"github.com/neptunehub/campus-errand-engine/internal/classifier"
	"github.com/neptunehub/campus-errand-engine/internal/domain"
	"github.com/neptunehub/campus-errand-engine/internal/lifecycle"
	"github.com/neptunehub/campus-errand-engine/internal/matching"
	"github.com/neptunehub/campus-errand-engine/internal/observability"
	"github.com/neptunehub/campus-errand-engine/internal/populator"
	"github.com/neptunehub/campus-errand-engine/internal/scheduler"
)

// Server processes the jobs the Producer enqueues, one asynq handler per
// scheduler.JobKind.
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// Deps bundles every domain entry point a job handler dispatches to.
type Deps struct {
	Resources domain.ResourceRepository
	Classify  *classifier.Classifier
	Populate  *populator.Populator
	Match     *matching.Engine
	Assign    *assigner.Assigner
	Lifecycle *lifecycle.Sweeper
	Complete  *autocomplete.Completer
	Log       *slog.Logger
}

// NewServer parses redisURL and wires a handler for every job kind the
// Producer can enqueue. All handlers share one concurrency limit; the two
// queues are polled with priority weights 6 (resource) and 4 (auto-complete).
func NewServer(redisURL string, concurrency int, deps Deps) (*Server, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("op=asynqadp.new_server: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueResource:     6,
			QueueAutoComplete: 4,
		},
	})
	mux := asynq.NewServeMux()

	mux.HandleFunc(string(scheduler.JobClassifyResource), traced("ClassifyResource", func(ctx context.Context, t *asynq.Task) error {
		var p scheduler.ClassifyResourcePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("op=asynqadp.classify_resource.unmarshal: %w", err)
		}
		return handleClassifyResource(ctx, deps, p)
	}))

	mux.HandleFunc(string(scheduler.JobPopulatePotentialMatches), traced("PopulatePotentialMatches", func(ctx context.Context, _ *asynq.Task) error {
		if err := deps.Populate.Run(ctx); err != nil {
			return fmt.Errorf("op=asynqadp.populate_potential_matches: %w", err)
		}
		return nil
	}))

	mux.HandleFunc(string(scheduler.JobMatchResources), traced("MatchResources", func(ctx context.Context, _ *asynq.Task) error {
		if err := deps.Match.RunMatchPass(ctx); err != nil {
			return fmt.Errorf("op=asynqadp.match_resources: %w", err)
		}
		return nil
	}))

	mux.HandleFunc(string(scheduler.JobAssignErrand), traced("AssignErrand", func(ctx context.Context, _ *asynq.Task) error {
		if err := deps.Assign.Run(ctx); err != nil {
			return fmt.Errorf("op=asynqadp.assign_errand: %w", err)
		}
		return nil
	}))

	mux.HandleFunc(string(scheduler.JobCleanupTimedOutMatches), traced("CleanupTimedOutMatches", func(ctx context.Context, _ *asynq.Task) error {
		if err := deps.Lifecycle.Run(ctx); err != nil {
			return fmt.Errorf("op=asynqadp.cleanup_timed_out_matches: %w", err)
		}
		return nil
	}))

	mux.HandleFunc(string(scheduler.JobAutoCompleteMatch), traced("AutoCompleteMatch", func(ctx context.Context, _ *asynq.Task) error {
		if err := deps.Complete.Run(ctx); err != nil {
			return fmt.Errorf("op=asynqadp.auto_complete_match: %w", err)
		}
		return nil
	}))

	return &Server{server: srv, mux: mux}, nil
}

// traced wraps h in an otel span named after kind and reports the job
// metrics the same way on every path, so every handler carries identical
// observability without repeating the boilerplate six times.
func traced(kind string, h asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracer := otel.Tracer("queue.worker")
		ctx, span := tracer.Start(ctx, kind)
		defer span.End()

		if taskID, ok := asynq.GetTaskID(ctx); ok {
			ctx = observability.ContextWithRequestID(ctx, taskID)
			ctx = observability.ContextWithLogger(ctx, slog.Default().With("job_kind", kind, "task_id", taskID))
		}

		metrics.StartProcessingJob(kind)
		if err := h(ctx, t); err != nil {
			metrics.FailJob(kind)
			return err
		}
		metrics.CompleteJob(kind)
		return nil
	}
}

func handleClassifyResource(ctx context.Context, deps Deps, p scheduler.ClassifyResourcePayload) error {
	id, err := domain.ParseObjectID(p.ResourceID)
	if err != nil {
		return fmt.Errorf("op=asynqadp.classify_resource.parse_id: %w", err)
	}
	res, err := deps.Resources.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("op=asynqadp.classify_resource.get: %w", err)
	}
	category, specs := deps.Classify.Classify(ctx, res.Name, res.Description, res.Specifications)
	status := domain.ResourceStatusAvailable
	if category == domain.CategoryClassificationError {
		status = domain.ResourceStatusClassificationFailed
	}
	if err := deps.Resources.UpdateClassification(ctx, id, category, specs, status); err != nil {
		return fmt.Errorf("op=asynqadp.classify_resource.update: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("resource classified",
		"op", "asynqadp.classify_resource", "resource_id", id.String(), "category", category)
	return nil
}

// Start begins processing tasks until shutdown.
func (s *Server) Start() error { return s.server.Start(s.mux) }

// Stop gracefully shuts down the server, waiting for in-flight jobs.
func (s *Server) Stop() { s.server.Shutdown() }
