package matching

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
	"github.com/neptunehub/campus-errand-engine/internal/scoring"
)

// candidate is one compatible, score-gated pair found during Phase 2.
type candidate struct {
	buyer, seller     *domain.Resource
	score             int
	buyerPrice        float64
	sellerPrice       float64
	buyerOrientedAsR1 bool // true if buyer == resource1 in creation order
}

// Engine runs C4's runMatchPass over all status=matching resources.
type Engine struct {
	resources domain.ResourceRepository
	matches   domain.MatchRepository
	embedder  domain.Embedder
	matcher   MaxWeightMatcher
	log       *slog.Logger
}

// New constructs an Engine.
func New(resources domain.ResourceRepository, matches domain.MatchRepository, embedder domain.Embedder, matcher MaxWeightMatcher, log *slog.Logger) *Engine {
	return &Engine{resources: resources, matches: matches, embedder: embedder, matcher: matcher, log: log}
}

// RunMatchPass implements the entrypoint described in §4.4.
func (e *Engine) RunMatchPass(ctx context.Context) error {
	byCategory, err := e.gather(ctx)
	if err != nil {
		return fmt.Errorf("op=matching.run_pass.gather: %w", err)
	}

	nameVecCache := map[domain.ObjectID][]float64{}
	nameVec := func(r *domain.Resource) []float64 {
		if v, ok := nameVecCache[r.ID]; ok {
			return v
		}
		v, err := e.embedder.Embed(ctx, r.Name)
		if err != nil {
			v = nil
		}
		nameVecCache[r.ID] = v
		return v
	}

	var allCandidates []candidate
	for _, resources := range byCategory {
		allCandidates = append(allCandidates, enumerateCandidates(resources, nameVec)...)
	}

	// Phase 3: global tier sort, score descending.
	sort.SliceStable(allCandidates, func(i, j int) bool {
		return allCandidates[i].score > allCandidates[j].score
	})

	statusMap := map[domain.ObjectID]domain.ResourceStatus{}
	for _, resources := range byCategory {
		for _, r := range resources {
			statusMap[r.ID] = r.Status
		}
	}

	matchesCreated, matchedIDs := e.resolveTiers(allCandidates, statusMap)

	if len(matchesCreated) == 0 {
		return nil
	}

	// Phase 5: persist.
	if err := e.matches.InsertBatch(ctx, matchesCreated); err != nil {
		return fmt.Errorf("op=matching.run_pass.persist_matches: %w", err)
	}
	if err := e.resources.MarkMatched(ctx, matchedIDs); err != nil {
		return fmt.Errorf("op=matching.run_pass.mark_matched: %w", err)
	}
	return nil
}

// gather implements Phase 1: page through status=matching resources whose
// type is in the compatibility table, grouped by category.
func (e *Engine) gather(ctx context.Context) (map[string][]*domain.Resource, error) {
	byCategory := map[string][]*domain.Resource{}
	var after domain.ObjectID
	for {
		page, err := e.resources.List(ctx, domain.ResourceFilter{
			Status: []domain.ResourceStatus{domain.ResourceStatusMatching},
			Limit:  domain.MatchBatchSize,
			After:  after,
		})
		if err != nil {
			return nil, err
		}
		for _, r := range page {
			if _, ok := domain.CompatibleTypePairs[r.Type]; !ok {
				continue
			}
			byCategory[r.Category] = append(byCategory[r.Category], r)
		}
		if len(page) < domain.MatchBatchSize {
			break
		}
		after = page[len(page)-1].ID
	}
	return byCategory, nil
}

// enumerateCandidates implements Phase 2 for one category's resource set.
func enumerateCandidates(resources []*domain.Resource, nameVec func(*domain.Resource) []float64) []candidate {
	var out []candidate
	for i := 0; i < len(resources); i++ {
		for j := i + 1; j < len(resources); j++ {
			a, b := resources[i], resources[j]
			if a.Category != b.Category {
				continue
			}
			var buyer, seller *domain.Resource
			switch {
			case domain.TypesCompatible(a.Type, b.Type) && domain.IsBuyerSide(a.Type):
				buyer, seller = a, b
			case domain.TypesCompatible(a.Type, b.Type) && domain.IsBuyerSide(b.Type):
				buyer, seller = b, a
			default:
				continue
			}
			if buyer.Price == nil || seller.Price == nil {
				continue
			}
			if !scoring.PriceCompatible(buyer.Price, seller.Price) {
				continue
			}
			score := scoring.Score(buyer.Name, nameVec(buyer), buyer.Specifications, seller.Name, nameVec(seller), seller.Specifications)
			if score < domain.MinMatchScore {
				continue
			}
			out = append(out, candidate{
				buyer:             buyer,
				seller:            seller,
				score:             score,
				buyerPrice:        *buyer.Price,
				sellerPrice:       *seller.Price,
				buyerOrientedAsR1: buyer == a,
			})
		}
	}
	return out
}

// resolveTiers implements Phase 4: walk the globally-sorted candidate list
// by equal-score runs, applying the unique-winner rule to the first tier
// and the VCG tie-break to every other tier with available candidates.
func (e *Engine) resolveTiers(sorted []candidate, statusMap map[domain.ObjectID]domain.ResourceStatus) ([]*domain.Match, []domain.ObjectID) {
	var created []*domain.Match
	var matchedIDs []domain.ObjectID
	matchedInPass := map[domain.ObjectID]bool{}

	available := func(c candidate) bool {
		return statusMap[c.buyer.ID] == domain.ResourceStatusMatching && !matchedInPass[c.buyer.ID] &&
			statusMap[c.seller.ID] == domain.ResourceStatusMatching && !matchedInPass[c.seller.ID]
	}

	markMatched := func(c candidate) {
		statusMap[c.buyer.ID] = domain.ResourceStatusMatched
		statusMap[c.seller.ID] = domain.ResourceStatusMatched
		matchedInPass[c.buyer.ID] = true
		matchedInPass[c.seller.ID] = true
		matchedIDs = append(matchedIDs, c.buyer.ID, c.seller.ID)
	}

	i := 0
	firstTier := true
	for i < len(sorted) {
		j := i
		for j < len(sorted) && sorted[j].score == sorted[i].score {
			j++
		}
		tier := sorted[i:j]

		var availableInTier []candidate
		for _, c := range tier {
			if available(c) {
				availableInTier = append(availableInTier, c)
			}
		}

		switch {
		case len(availableInTier) == 0:
			// nothing to do in this tier
		case firstTier && len(availableInTier) == 1 && len(tier) == 1:
			c := availableInTier[0]
			created = append(created, e.buildUniqueWinnerMatch(c))
			markMatched(c)
		default:
			tierCreated := e.resolveTierByVCG(availableInTier)
			for _, m := range tierCreated {
				created = append(created, m.match)
				markMatched(m.candidate)
			}
		}

		firstTier = false
		i = j
	}

	return created, matchedIDs
}

func (e *Engine) buildUniqueWinnerMatch(c candidate) *domain.Match {
	suggestedRequester, suggestedOwner := scoring.SuggestedPrices(c.buyerPrice, c.sellerPrice)
	return newPendingMatch(c, suggestedRequester, suggestedOwner)
}

type tierMatch struct {
	match     *domain.Match
	candidate candidate
}

// resolveTierByVCG runs the bipartite tie-break (§4.4 step 2-4) over one
// score tier's available candidates.
func (e *Engine) resolveTierByVCG(availableInTier []candidate) []tierMatch {
	byEdge := map[string]candidate{}
	edges := make([]Edge, 0, len(availableInTier))
	var pool []PricedCandidate
	for _, c := range availableInTier {
		weight := c.buyerPrice - c.sellerPrice
		buyerNode := c.buyer.ID.String() + ":buyer"
		sellerNode := c.seller.ID.String() + ":seller"
		if weight > 0 {
			edges = append(edges, Edge{U: buyerNode, V: sellerNode, Weight: weight})
			byEdge[edgeKey(buyerNode, sellerNode)] = c
		}
		pool = append(pool, PricedCandidate{
			BuyerNode:   buyerNode,
			SellerNode:  sellerNode,
			BuyerPrice:  c.buyerPrice,
			SellerPrice: c.sellerPrice,
			Reversed:    !c.buyerOrientedAsR1,
		})
	}

	selectedEdges := e.matcher.Match(edges)
	var selected []PricedCandidate
	for _, se := range selectedEdges {
		c := byEdge[edgeKey(se.U, se.V)]
		selected = append(selected, PricedCandidate{
			BuyerNode: se.U, SellerNode: se.V,
			BuyerPrice: c.buyerPrice, SellerPrice: c.sellerPrice,
			Reversed: !c.buyerOrientedAsR1,
		})
	}

	prices := DetermineVCGPrices(selected, pool)

	var out []tierMatch
	for _, se := range selectedEdges {
		c := byEdge[edgeKey(se.U, se.V)]
		p := prices[edgeKey(se.U, se.V)]
		out = append(out, tierMatch{match: newPendingMatch(c, p.BuyerPays, p.SellerReceives), candidate: c})
	}
	return out
}

// newPendingMatch builds the pending Match record for a selected candidate,
// orienting suggestedPriceRequester/Owner and resource1/resource2 the way
// the original (resource1, resource2) pairing was discovered.
func newPendingMatch(c candidate, suggestedRequester, suggestedOwner float64) *domain.Match {
	resource1, resource2 := c.buyer, c.seller
	if !c.buyerOrientedAsR1 {
		resource1, resource2 = c.seller, c.buyer
	}
	return &domain.Match{
		ID:                      domain.NewObjectID(),
		Resource1:               resource1.ID,
		Resource2:               resource2.ID,
		Requester:               c.buyer.UserID,
		Owner:                   c.seller.UserID,
		Score:                   c.score,
		OriginalPriceRequester:  c.buyerPrice,
		OriginalPriceOwner:      c.sellerPrice,
		SuggestedPriceRequester: suggestedRequester,
		SuggestedPriceOwner:     suggestedOwner,
		Status:                  domain.MatchStatusPending,
	}
}
