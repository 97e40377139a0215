package dedup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagex/backend/internal/core"
)

const stormText = "Checkout page shows error 500 when paying, cannot complete my order!"

func TestLexicalEmbedderSimilarity(t *testing.T) {
	ctx := context.Background()
	e := LexicalEmbedder{}

	a, err := e.Embed(ctx, stormText)
	require.NoError(t, err)
	b, err := e.Embed(ctx, stormText)
	require.NoError(t, err)
	c, err := e.Embed(ctx, "I would like to update my mailing address please")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, cosine(a, b), 1e-9, "identical texts embed identically")
	assert.Less(t, cosine(a, c), 0.5, "unrelated texts are dissimilar")
}

func TestStormVerdictSequence(t *testing.T) {
	ctx := context.Background()
	const stormN = 10
	d := New(LexicalEmbedder{}, 0.9, 300*time.Second, stormN, nil)

	// The first N submissions see fewer than N similar predecessors.
	for i := 0; i < stormN; i++ {
		v, err := d.CheckStorm(ctx, stormText)
		require.NoError(t, err)
		assert.Equal(t, core.VerdictNormal, v, "submission %d", i+1)
	}

	// Submission N+1 sees exactly N similar records: master incident.
	v, err := d.CheckStorm(ctx, stormText)
	require.NoError(t, err)
	assert.Equal(t, core.VerdictMaster, v)

	// Everything after is suppressed.
	for i := 0; i < 3; i++ {
		v, err := d.CheckStorm(ctx, stormText)
		require.NoError(t, err)
		assert.Equal(t, core.VerdictSuppress, v)
	}
}

func TestDissimilarTicketsStayNormal(t *testing.T) {
	ctx := context.Background()
	d := New(LexicalEmbedder{}, 0.9, 300*time.Second, 3, nil)

	for i := 0; i < 10; i++ {
		v, err := d.CheckStorm(ctx, fmt.Sprintf("completely different problem number %d about topic %d", i, i*7))
		require.NoError(t, err)
		assert.Equal(t, core.VerdictNormal, v)
	}
}

func TestWindowEviction(t *testing.T) {
	ctx := context.Background()
	d := New(LexicalEmbedder{}, 0.9, 300*time.Second, 2, nil)

	now := time.Unix(1_700_000_000, 0)
	d.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_, err := d.CheckStorm(ctx, stormText)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, d.WindowSize())

	// Move past the window: the old records must not count.
	now = now.Add(301 * time.Second)
	v, err := d.CheckStorm(ctx, stormText)
	require.NoError(t, err)
	assert.Equal(t, core.VerdictNormal, v)
	assert.Equal(t, 1, d.WindowSize(), "expired records evicted")
}

func TestStormClockBoundary(t *testing.T) {
	ctx := context.Background()
	d := New(LexicalEmbedder{}, 0.9, 300*time.Second, 2, nil)

	now := time.Unix(1_700_000_000, 0)
	d.now = func() time.Time { return now }

	_, err := d.CheckStorm(ctx, stormText)
	require.NoError(t, err)

	// A record exactly window-old is already outside the window.
	now = now.Add(300 * time.Second)
	_, err = d.CheckStorm(ctx, stormText)
	require.NoError(t, err)
	assert.Equal(t, 1, d.WindowSize())
}
