package classifier

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingEmbedder struct{ err error }

func (f failingEmbedder) Embed(context.Context, string) ([]float64, error) { return nil, f.err }

func TestClassify_EmbedderUnavailable(t *testing.T) {
	c := &Classifier{embedder: failingEmbedder{err: fmt.Errorf("op=embed: %w", domain.ErrTransient)}}
	category, specs := c.Classify(context.Background(), "some item", "a description", map[string]any{"k": "v"})
	assert.Equal(t, domain.ErrandCategoryMisc, category)
	assert.Equal(t, map[string]any{"k": "v"}, specs)
}

func TestClassify_InternalFailure(t *testing.T) {
	c := &Classifier{embedder: failingEmbedder{err: errors.New("boom")}}
	category, specs := c.Classify(context.Background(), "some item", "a description", map[string]any{"k": "v"})
	assert.Equal(t, domain.CategoryClassificationError, category)
	assert.Equal(t, map[string]any{"k": "v"}, specs)
}

func TestClassify_ErrandBucketTakeout(t *testing.T) {
	c, err := New(context.Background(), NewHashingEmbedder())
	require.NoError(t, err)

	category, specs := c.Classify(context.Background(), "帮忙取外卖", "楼下的奶茶和外卖,麻烦尽快", nil)
	assert.Equal(t, "takeout", category)
	assert.Equal(t, "urgent", specs["urgency_text"])
	assert.Equal(t, "pickup", specs["general_type_text"])
}

func TestClassify_ErrandBucketMiscWhenNoKeywordsMatch(t *testing.T) {
	category := classifyErrandBucket("zzz no keyword here")
	assert.Equal(t, domain.ErrandCategoryMisc, category)
}

func TestClassify_BooksSpecsAndUserOverride(t *testing.T) {
	c, err := New(context.Background(), NewHashingEmbedder())
	require.NoError(t, err)

	category, specs := c.Classify(context.Background(), "Calculus textbook", "高等数学 第三版教材", map[string]any{"subject": "overridden"})
	assert.Equal(t, "Books", category)
	assert.Equal(t, "overridden", specs["subject"], "user-supplied spec must win on collision")
	assert.Equal(t, "三", specs["edition"])
}

func TestMergeSpecs_UserWinsOnCollision(t *testing.T) {
	merged := mergeSpecs(map[string]any{"a": 1, "b": 2}, map[string]any{"b": 99})
	assert.Equal(t, 1, merged["a"])
	assert.Equal(t, 99, merged["b"])
}
