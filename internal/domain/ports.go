package domain

import "time"

// ResourceFilter narrows a resource listing. Zero-value fields are
// unconstrained; Status/Types nil means "no restriction".
type ResourceFilter struct {
	Status     []ResourceStatus
	Types      []ResourceType
	Category   string
	UpdatedAfter *time.Time
	ExcludeAssigned bool
	Limit      int
	After      ObjectID // pagination cursor, exclusive
}

// ResourceRepository is the C11 typed accessor for the resources collection.
type ResourceRepository interface {
	Get(ctx Context, id ObjectID) (*Resource, error)
	List(ctx Context, filter ResourceFilter) ([]*Resource, error)
	Insert(ctx Context, r *Resource) error
	// UpdateClassification persists the classifier's output for a resource.
	UpdateClassification(ctx Context, id ObjectID, category string, specs map[string]any, status ResourceStatus) error
	// MarkMatched flips status=matched for every id in one statement.
	MarkMatched(ctx Context, ids []ObjectID) error
	// AssignErrand conditionally sets assignedErrandId + status=matched and
	// increments matchAttempts; fails with ErrConflict if the expected
	// status no longer holds.
	AssignErrand(ctx Context, id ObjectID, errandID ObjectID, expectedStatus ResourceStatus) error
	IncrementMatchAttempts(ctx Context, id ObjectID) error
}

// MatchRepository is the C11 typed accessor for the matches collection.
type MatchRepository interface {
	Get(ctx Context, id ObjectID) (*Match, error)
	Insert(ctx Context, m *Match) error
	InsertBatch(ctx Context, matches []*Match) error
	// ListByStatus returns matches in the given status, oldest first.
	ListByStatus(ctx Context, status MatchStatus, limit int) ([]*Match, error)
	// ListErrandingPastThreshold joins matches(status=erranding) with their
	// linked errand and returns those whose errand.completedAt is at or
	// before the cutoff.
	ListErrandingPastThreshold(ctx Context, cutoff time.Time, limit int) ([]*Match, error)
	// CompareAndSwapStatus performs the conditional {_id, status=from} write
	// used by the lifecycle cleanup (§4.7) to stay idempotent under races.
	CompareAndSwapStatus(ctx Context, id ObjectID, from, to MatchStatus, mutate func(*Match)) error
}

// ErrandRepository is the C11 typed accessor for the errands collection.
type ErrandRepository interface {
	Get(ctx Context, id ObjectID) (*Errand, error)
	GetByResourceRequestID(ctx Context, requestID ObjectID) (*Errand, error)
	Insert(ctx Context, e *Errand) error
}

// UserRepository is the C11 typed accessor for the users collection.
type UserRepository interface {
	Get(ctx Context, id ObjectID) (*User, error)
	// AdjustPoints applies a signed delta; used for both the −5 timeout
	// penalty and the auto-completer's floor(finalAmount) award.
	AdjustPoints(ctx Context, id ObjectID, delta int) error
	// IncrementCreditsCapped increments credits by 1 unless already at
	// MaxCredits, in which case it is a no-op.
	IncrementCreditsCapped(ctx Context, id ObjectID) error
}

// WalletRepository is the C11 typed accessor for wallets + wallet_transactions.
type WalletRepository interface {
	Get(ctx Context, userID ObjectID) (*Wallet, error)
	// Credit increases balance by amount and appends a transaction record,
	// atomically.
	Credit(ctx Context, userID ObjectID, amount float64, tx WalletTransaction) error
}

// RunnerProfileRepository is the C11 typed accessor for runner_profiles
// (+ the normalized runner_potential_errand_requests child rows).
type RunnerProfileRepository interface {
	Get(ctx Context, id ObjectID) (*RunnerProfile, error)
	// ListAssignableWithPotentialRequest returns assignable profiles
	// (CurrentActiveErrand zero) carrying a potential-request entry for
	// requestID.
	ListAssignableWithPotentialRequest(ctx Context, requestID ObjectID) ([]*RunnerProfile, error)
	// ListAll returns up to limit runner profiles, for scoring against
	// freshly-touched service-offers/requests.
	ListAll(ctx Context, limit int) ([]*RunnerProfile, error)
	// UpsertPotentialMatch is the single upsert-in-array operation called
	// out in the design notes, replacing the two-pass $set/$push sequence:
	// it updates the entry for entry.RequestID if present, else appends it.
	UpsertPotentialMatch(ctx Context, profileID ObjectID, entry PotentialErrandRequest) error
	// AssignErrandTx removes the potential-request entry for requestID and
	// sets CurrentActiveErrand, conditioned on the profile still being
	// assignable.
	AssignErrandTx(ctx Context, profileID ObjectID, requestID ObjectID, errandID ObjectID) error
}

// Store provides the cross-repository transaction boundary that assignment
// (§4.6 step 4) and auto-complete (§4.8) need: fn runs every repository call
// made against the ctx it receives as one atomic unit; any error fn returns
// aborts and rolls back every write fn made.
type Store interface {
	WithTx(ctx Context, fn func(ctx Context) error) error
}

// Embedder is the C1/C2 sentence-embedding port. Out of scope per spec: an
// opaque collaborator. ErrTransient-wrapped errors signal "unavailable",
// which the classifier treats as its documented failure mode.
type Embedder interface {
	Embed(ctx Context, text string) ([]float64, error)
}

// Notification is a fire-and-forget message handed to C10.
type Notification struct {
	// Single-recipient shape (§6.3), used by C6.
	UserID  ObjectID
	Message string

	// Broadcast shape (§6.3), used by C7.
	RecipientUserIDs []ObjectID
	MessageKey       string

	Data map[string]any
}

// Notifier is the C10 port: POST a notification, swallow failures after
// logging. Never returns an error the caller must react to.
type Notifier interface {
	Notify(ctx Context, n Notification)
}
