package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
	"github.com/neptunehub/campus-errand-engine/internal/similarity"
)

// Classifier implements the C1 contract:
// classify(name, description, userSpecs) -> (category, mergedSpecs).
type Classifier struct {
	embedder  domain.Embedder
	centroids []categoryCentroid
}

type categoryCentroid struct {
	name string
	vec  []float64
}

// New builds a Classifier, embedding every fixed-category centroid seed up
// front so Classify never blocks on model work per call.
func New(ctx context.Context, embedder domain.Embedder) (*Classifier, error) {
	c := &Classifier{embedder: embedder}
	for _, seed := range categoryCentroidSeeds {
		vec, err := embedder.Embed(ctx, seed.Seed)
		if err != nil {
			return nil, fmt.Errorf("op=classifier.new: embed centroid %s: %w", seed.Name, err)
		}
		c.centroids = append(c.centroids, categoryCentroid{name: seed.Name, vec: vec})
	}
	return c, nil
}

// Classify maps (name, description, userSpecs) to (category, mergedSpecs).
// It never returns an error: unavailability and internal failure are both
// encoded in the returned category per §4.1 step 4.
func (c *Classifier) Classify(ctx context.Context, name, description string, userSpecs map[string]any) (category string, specs map[string]any) {
	text := strings.TrimSpace(name + " " + description)
	lower := strings.ToLower(text)

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrTransient) {
			return domain.ErrandCategoryMisc, userSpecs
		}
		return domain.CategoryClassificationError, userSpecs
	}

	best := c.bestCentroid(vec)
	if best == "" {
		return domain.CategoryClassificationError, userSpecs
	}

	var extracted map[string]any
	resultCategory := best
	switch best {
	case "Errands":
		resultCategory = classifyErrandBucket(lower)
		extracted = extractErrandSpecs(lower)
	case "Electronics":
		extracted = extractElectronicsSpecs(lower)
	case "Books":
		extracted = extractBooksSpecs(lower)
	default:
		extracted = map[string]any{}
	}

	return resultCategory, mergeSpecs(extracted, userSpecs)
}

// bestCentroid returns the centroid name with maximum cosine similarity to
// vec, ties broken by declaration order (strictly-greater replacement).
func (c *Classifier) bestCentroid(vec []float64) string {
	best := ""
	bestSim := -1.0
	for _, centroid := range c.centroids {
		sim := similarity.Cosine(vec, centroid.vec)
		if sim > bestSim {
			bestSim = sim
			best = centroid.name
		}
	}
	return best
}

// classifyErrandBucket scores lowered text against the six keyword
// buckets (§4.1 step 2), returning the winning bucket name. A bucket's
// score counts substring occurrences of its keywords in the text; the
// text is not tokenized and stop-words are not removed. Ties resolved
// by the first bucket reached (declaration order); all-zero defaults to
// "misc".
func classifyErrandBucket(lower string) string {
	best := ""
	bestScore := 0
	for _, bucket := range errandBuckets {
		score := 0
		for _, kw := range bucket.Keywords {
			score += strings.Count(lower, strings.ToLower(kw))
		}
		if score > bestScore {
			bestScore = score
			best = bucket.Name
		}
	}
	if bestScore == 0 {
		return domain.ErrandCategoryMisc
	}
	return best
}

// mergeSpecs merges extracted specs with userSpecs, user values winning on
// key collision (§4.1 step 3).
func mergeSpecs(extracted, userSpecs map[string]any) map[string]any {
	merged := make(map[string]any, len(extracted)+len(userSpecs))
	for k, v := range extracted {
		merged[k] = v
	}
	for k, v := range userSpecs {
		merged[k] = v
	}
	return merged
}
