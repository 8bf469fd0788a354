package domain

import "time"

// ResourceType enumerates the postings a user can create. Goods postings
// use buy/sell/rent/lease; errand postings use service-request/service-offer.
type ResourceType string

const (
	ResourceTypeBuy            ResourceType = "buy"
	ResourceTypeSell           ResourceType = "sell"
	ResourceTypeRent           ResourceType = "rent"
	ResourceTypeLease          ResourceType = "lease"
	ResourceTypeServiceRequest ResourceType = "service-request"
	ResourceTypeServiceOffer   ResourceType = "service-offer"
)

// ResourceStatus tracks a resource through classification and matching.
type ResourceStatus string

const (
	ResourceStatusSubmitted            ResourceStatus = "submitted"
	ResourceStatusMatching             ResourceStatus = "matching"
	ResourceStatusMatched              ResourceStatus = "matched"
	ResourceStatusClassificationFailed ResourceStatus = "classification_failed"
	ResourceStatusActive               ResourceStatus = "active"
	ResourceStatusAvailable            ResourceStatus = "available"
)

// Errand category buckets. ClassificationError is not a bucket members can
// be scored into; it is the C1 failure-mode sentinel category.
const (
	ErrandCategoryTakeout   = "takeout"
	ErrandCategoryPackage   = "package"
	ErrandCategoryDocuments = "documents"
	ErrandCategoryRide      = "ride"
	ErrandCategoryPurchase  = "purchase"
	ErrandCategoryMisc      = "misc"

	CategoryClassificationError = "ClassificationError"
)

// Resource is a single marketplace posting: a goods offer/request or an
// errand service-request/service-offer.
type Resource struct {
	ID          ObjectID
	UserID      ObjectID
	Name        string
	Description string
	Type        ResourceType
	// Category is free-form for goods (e.g. "Electronics", "Books") and one
	// of the six errand buckets for service-request/service-offer postings.
	Category string
	// Specifications holds both classifier-extracted and user-supplied
	// spec keys; user values win on key collision (see C1).
	Specifications map[string]any
	// Price is nil for postings that carry no price (most errand postings).
	Price  *float64
	Status ResourceStatus

	AssignedErrandID ObjectID
	MatchAttempts    int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasAssignedErrand reports whether AssignedErrandID is set.
func (r *Resource) HasAssignedErrand() bool { return !r.AssignedErrandID.IsZero() }

// MatchStatus tracks a Match through the negotiation/errand lifecycle.
type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusErranding MatchStatus = "erranding"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// Match is a negotiated pairing between two resources, created by the
// goods-match engine (C4) or the errand-assignment pipeline (C6).
type Match struct {
	ID ObjectID

	Resource1 ObjectID
	Resource2 ObjectID
	Requester ObjectID // userId of the buyer / service-request side
	Owner     ObjectID // userId of the seller / service-offer side

	Score int

	OriginalPriceRequester float64
	OriginalPriceOwner     float64

	SuggestedPriceRequester float64
	SuggestedPriceOwner     float64

	// Resource1Payment / Resource2Receipt hold the final negotiated values;
	// nil until both sides accept.
	Resource1Payment *float64
	Resource2Receipt *float64
	FinalAmount      *float64

	Status MatchStatus

	FirstAcceptanceTime *time.Time

	RequesterAcceptedSuggestedPrice bool
	OwnerAcceptedSuggestedPrice     bool

	RejectedBy              ObjectID
	TimeoutPenaltyAppliedTo ObjectID
	CancellationReason      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BothAccepted reports whether both sides have accepted the suggested price.
func (m *Match) BothAccepted() bool {
	return m.RequesterAcceptedSuggestedPrice && m.OwnerAcceptedSuggestedPrice
}

// ErrandStatus tracks an Errand through fulfillment.
type ErrandStatus string

const (
	ErrandStatusPending    ErrandStatus = "pending"
	ErrandStatusAccepted   ErrandStatus = "accepted"
	ErrandStatusPickingUp  ErrandStatus = "picking_up"
	ErrandStatusDelivering ErrandStatus = "delivering"
	ErrandStatusCompleted  ErrandStatus = "completed"
	ErrandStatusCancelled  ErrandStatus = "cancelled"
)

// Location is a free-form pickup/dropoff point: a building name plus an
// optional campus zone, stored as jsonb.
type Location struct {
	Building string `json:"building"`
	Zone     string `json:"zone,omitempty"`
}

// Errand is a concrete runner-executed delivery or service instance,
// created by C6 against a service-request Resource.
type Errand struct {
	ID                ObjectID
	ResourceRequestID ObjectID
	ErrandRunner      ObjectID
	CurrentStatus     ErrandStatus

	PickupLocation  Location
	DropoffLocation Location

	IsDeliveryToDoor  bool
	DeliveryFee       float64
	DoorDeliveryUnits int

	ExpectedStartTime        *time.Time
	ExpectedEndTime          *time.Time
	ExpectedTimeframeString  string

	CompletedAt     *time.Time
	RunnerAssignedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PotentialErrandRequest is a weak-reference scored candidacy of a runner
// for a service-request, populated by C5 and consumed by C6.
type PotentialErrandRequest struct {
	RequestID ObjectID
	OfferID   ObjectID
	Score     int
	MatchedAt time.Time
}

// RunnerProfile captures a runner's capabilities and standing candidacies.
type RunnerProfile struct {
	ID     ObjectID
	UserID ObjectID

	OperatingCampusZones     []string
	VehicleType              string
	SpecialEquipment         []string
	CargoCapacityDescription string

	PotentialErrandRequests []PotentialErrandRequest

	// CurrentActiveErrand is the zero ObjectID while the runner is
	// assignable; set once an errand is assigned to them.
	CurrentActiveErrand ObjectID
}

// IsAssignable reports whether the runner currently has no active errand.
func (p *RunnerProfile) IsAssignable() bool { return p.CurrentActiveErrand.IsZero() }

// User carries the gamified standing derived from marketplace activity.
type User struct {
	ID        ObjectID
	Points    int
	Credits   int // capped at 100
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MaxCredits is the hard cap on User.Credits (§8 invariant 7).
const MaxCredits = 100

// WalletTransactionType tags an entry in a wallet's append-only ledger.
type WalletTransactionType string

const (
	WalletTransactionCredit WalletTransactionType = "credit"
	WalletTransactionDebit  WalletTransactionType = "debit"
)

// WalletTransaction is one append-only ledger entry.
type WalletTransaction struct {
	ID              ObjectID
	UserID          ObjectID
	Type            WalletTransactionType
	Amount          float64
	Description     string
	ReferenceID     ObjectID
	ReferenceModel  string
	Status          string
	TransactionFee  float64
	ProcessedBy     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Wallet holds a user's balance; Transactions is append-only and is
// persisted in a child table rather than embedded (see DESIGN.md).
type Wallet struct {
	UserID    ObjectID
	Balance   float64
	CreatedAt time.Time
	UpdatedAt time.Time
}
