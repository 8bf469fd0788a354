package asynqadp_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/neptunehub/campus-errand-engine/internal/adapter/queue/asynqadp"
	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

func newTestRedisURL(t *testing.T) string {
	t.Helper()
	s := miniredis.RunT(t)
	return fmt.Sprintf("redis://%s/0", s.Addr())
}

func TestNewProducer_InvalidDSN(t *testing.T) {
	_, err := asynqadp.NewProducer("not-a-redis-url")
	require.Error(t, err)
}

func TestProducer_EnqueueEveryJobKind(t *testing.T) {
	p, err := asynqadp.NewProducer(newTestRedisURL(t))
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.EnqueueClassifyResource(ctx, domain.NewObjectID()))
	require.NoError(t, p.EnqueueMatchResources(ctx))
	require.NoError(t, p.EnqueuePopulatePotentialMatches(ctx))
	require.NoError(t, p.EnqueueAssignErrand(ctx))
	require.NoError(t, p.EnqueueCleanupTimedOutMatches(ctx))
	require.NoError(t, p.EnqueueAutoCompleteMatchJob(ctx))
}
