// Package classifier implements C1: mapping (name, description, userSpecs)
// to (category, mergedSpecs), including the errand sub-category bucket and
// the spec-extraction regex table.
package classifier

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

// embeddingDims is the fixed dimensionality of the hashing embedder's
// output vectors.
const embeddingDims = 64

// HashingEmbedder is a deterministic, model-free stand-in for the
// out-of-scope sentence-transformer collaborator (§4.1 step 1). It embeds
// text as an unnormalized bag-of-tokens count vector (one hashed bucket per
// token; cosine similarity ignores the scale): good enough to produce a
// stable cosine ranking over the fixed category set without any model
// file, and fully offline so the classifier is unit-testable.
type HashingEmbedder struct{}

// NewHashingEmbedder constructs the default embedder.
func NewHashingEmbedder() *HashingEmbedder { return &HashingEmbedder{} }

// Embed implements domain.Embedder.
func (HashingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, embeddingDims)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vec, nil
	}
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		idx := int(h.Sum32() % embeddingDims)
		vec[idx]++
	}
	return vec, nil
}

var _ domain.Embedder = HashingEmbedder{}

// tokenize lowercases and splits on anything that is not a letter, digit,
// or CJK ideograph, dropping stop-words.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tok := b.String()
			if !stopwordSet[tok] {
				tokens = append(tokens, tok)
			}
			b.Reset()
		}
	}
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
			flush()
			if tok := string(r); !stopwordSet[tok] {
				tokens = append(tokens, tok)
			}
		default:
			flush()
		}
	}
	flush()
	return tokens
}
