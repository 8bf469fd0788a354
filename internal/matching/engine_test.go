package matching

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/neptunehub/campus-errand-engine/internal/classifier"
	"github.com/neptunehub/campus-errand-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResourceRepo struct {
	byID    map[domain.ObjectID]*domain.Resource
	matched []domain.ObjectID
}

func newFakeResourceRepo(resources ...*domain.Resource) *fakeResourceRepo {
	r := &fakeResourceRepo{byID: map[domain.ObjectID]*domain.Resource{}}
	for _, res := range resources {
		r.byID[res.ID] = res
	}
	return r
}

func (f *fakeResourceRepo) Get(_ domain.Context, id domain.ObjectID) (*domain.Resource, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeResourceRepo) List(_ domain.Context, filter domain.ResourceFilter) ([]*domain.Resource, error) {
	var out []*domain.Resource
	for _, r := range f.byID {
		if len(filter.Status) > 0 && !containsStatus(filter.Status, r.Status) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func containsStatus(set []domain.ResourceStatus, s domain.ResourceStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func (f *fakeResourceRepo) Insert(_ domain.Context, r *domain.Resource) error {
	f.byID[r.ID] = r
	return nil
}

func (f *fakeResourceRepo) UpdateClassification(domain.Context, domain.ObjectID, string, map[string]any, domain.ResourceStatus) error {
	return nil
}

func (f *fakeResourceRepo) MarkMatched(_ domain.Context, ids []domain.ObjectID) error {
	f.matched = append(f.matched, ids...)
	for _, id := range ids {
		if r, ok := f.byID[id]; ok {
			r.Status = domain.ResourceStatusMatched
		}
	}
	return nil
}

func (f *fakeResourceRepo) AssignErrand(domain.Context, domain.ObjectID, domain.ObjectID, domain.ResourceStatus) error {
	return nil
}

func (f *fakeResourceRepo) IncrementMatchAttempts(domain.Context, domain.ObjectID) error { return nil }

type fakeMatchRepo struct {
	inserted []*domain.Match
}

func (f *fakeMatchRepo) Get(domain.Context, domain.ObjectID) (*domain.Match, error) { return nil, nil }
func (f *fakeMatchRepo) Insert(_ domain.Context, m *domain.Match) error {
	f.inserted = append(f.inserted, m)
	return nil
}
func (f *fakeMatchRepo) InsertBatch(_ domain.Context, matches []*domain.Match) error {
	f.inserted = append(f.inserted, matches...)
	return nil
}
func (f *fakeMatchRepo) ListByStatus(domain.Context, domain.MatchStatus, int) ([]*domain.Match, error) {
	return nil, nil
}
func (f *fakeMatchRepo) ListErrandingPastThreshold(domain.Context, time.Time, int) ([]*domain.Match, error) {
	return nil, nil
}
func (f *fakeMatchRepo) CompareAndSwapStatus(domain.Context, domain.ObjectID, domain.MatchStatus, domain.MatchStatus, func(*domain.Match)) error {
	return nil
}

func price(p float64) *float64 { return &p }

func TestRunMatchPass_S1UniqueWinner(t *testing.T) {
	r1 := &domain.Resource{
		ID: domain.NewObjectID(), UserID: domain.NewObjectID(),
		Name: "Calculus textbook", Type: domain.ResourceTypeBuy, Category: "Books",
		Price: price(50), Status: domain.ResourceStatusMatching,
		Specifications: map[string]any{"subject": "高等数学"},
	}
	r2 := &domain.Resource{
		ID: domain.NewObjectID(), UserID: domain.NewObjectID(),
		Name: "Calculus textbook", Type: domain.ResourceTypeSell, Category: "Books",
		Price: price(40), Status: domain.ResourceStatusMatching,
		Specifications: map[string]any{"subject": "高等数学"},
	}

	resources := newFakeResourceRepo(r1, r2)
	matches := &fakeMatchRepo{}
	engine := New(resources, matches, classifier.NewHashingEmbedder(), NewHungarianMatcher(), slog.Default())

	require.NoError(t, engine.RunMatchPass(context.Background()))

	require.Len(t, matches.inserted, 1)
	m := matches.inserted[0]
	assert.GreaterOrEqual(t, m.Score, domain.MinMatchScore)
	assert.Equal(t, domain.MatchStatusPending, m.Status)
	assert.Equal(t, 42.0, m.SuggestedPriceRequester)
	assert.Equal(t, 48.0, m.SuggestedPriceOwner)

	assert.Equal(t, domain.ResourceStatusMatched, r1.Status)
	assert.Equal(t, domain.ResourceStatusMatched, r2.Status)
}

func TestRunMatchPass_NoResourceInTwoMatches(t *testing.T) {
	// Three mutually compatible, high-scoring resources in one category:
	// after the pass, no resource may appear in more than one match.
	mk := func(name string, typ domain.ResourceType, p float64) *domain.Resource {
		return &domain.Resource{
			ID: domain.NewObjectID(), UserID: domain.NewObjectID(),
			Name: name, Type: typ, Category: "Books", Price: price(p),
			Status: domain.ResourceStatusMatching,
			Specifications: map[string]any{"subject": "高等数学"},
		}
	}
	b1 := mk("Calculus book", domain.ResourceTypeBuy, 100)
	b2 := mk("Calculus book", domain.ResourceTypeBuy, 90)
	s1 := mk("Calculus book", domain.ResourceTypeSell, 60)

	resources := newFakeResourceRepo(b1, b2, s1)
	matches := &fakeMatchRepo{}
	engine := New(resources, matches, classifier.NewHashingEmbedder(), NewHungarianMatcher(), slog.Default())

	require.NoError(t, engine.RunMatchPass(context.Background()))

	seen := map[domain.ObjectID]int{}
	for _, m := range matches.inserted {
		seen[m.Resource1]++
		seen[m.Resource2]++
	}
	for id, count := range seen {
		assert.LessOrEqualf(t, count, 1, "resource %s appeared in %d matches", id, count)
	}
}
