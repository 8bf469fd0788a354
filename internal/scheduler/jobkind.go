// Package scheduler implements C9's periodic-tick half: a ticker per
// cadence in §4.9 that enqueues jobs onto the resource/auto-complete
// queues. The queue bridge itself (dispatch + retry policy) lives in
// internal/adapter/queue/asynqadp; this package only defines the shared
// job-kind vocabulary both sides dispatch on.
package scheduler

// JobKind tags a queued job's payload shape (§6.1, §9 design note:
// "replace `job.data: Any` with tagged-variant dispatch").
type JobKind string

const (
	JobClassifyResource         JobKind = "classifyResource"
	JobPopulatePotentialMatches JobKind = "populatePotentialMatches"
	JobMatchResources           JobKind = "matchResources"
	JobAssignErrand             JobKind = "assignErrand"
	JobCleanupTimedOutMatches   JobKind = "cleanupTimedOutMatches"
	JobAutoCompleteMatch        JobKind = "auto_complete_match_job"
)

// ClassifyResourcePayload is the data carried by a classifyResource job.
type ClassifyResourcePayload struct {
	ResourceID string `json:"resourceId"`
}

// EmptyPayload is the data carried by every job that needs no input
// beyond its kind — the rest run over whatever the store currently holds.
type EmptyPayload struct{}
