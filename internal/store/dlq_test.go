package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/resilience"
)

func TestSQLite_DLQ_EnqueueAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entry := resilience.DLQEntry{
		ID:           "dlq-1",
		RunID:        "run-1",
		Organization: model.Organization{Name: "Test Church", Phone: "02-1234-5678"},
		Error:        "invalid input: name is required",
		Kind:         resilience.KindPermanent,
		Stage:        model.StageInitialization,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, st.EnqueueDLQ(ctx, entry))

	entries, err := st.ListDLQ(ctx, DLQFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0]
	assert.Equal(t, "dlq-1", got.ID)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "Test Church", got.Organization.Name)
	assert.Equal(t, "02-1234-5678", got.Organization.Phone)
	assert.Equal(t, resilience.KindPermanent, got.Kind)
	assert.Equal(t, model.StageInitialization, got.Stage)
	assert.WithinDuration(t, entry.CreatedAt, got.CreatedAt, time.Second)
}

func TestSQLite_DLQ_GeneratesID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.EnqueueDLQ(ctx, resilience.DLQEntry{RunID: "r", Error: "x", Kind: resilience.KindTransient}))

	entries, err := st.ListDLQ(ctx, DLQFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestSQLite_DLQ_Filter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, e := range []resilience.DLQEntry{
		{ID: "1", RunID: "a", Error: "e", Kind: resilience.KindTransient},
		{ID: "2", RunID: "a", Error: "e", Kind: resilience.KindPermanent},
		{ID: "3", RunID: "b", Error: "e", Kind: resilience.KindPermanent},
	} {
		require.NoError(t, st.EnqueueDLQ(ctx, e))
	}

	n, err := st.CountDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	byRun, err := st.ListDLQ(ctx, DLQFilter{RunID: "a"})
	require.NoError(t, err)
	assert.Len(t, byRun, 2)

	byKind, err := st.ListDLQ(ctx, DLQFilter{Kind: resilience.KindPermanent})
	require.NoError(t, err)
	assert.Len(t, byKind, 2)

	limited, err := st.ListDLQ(ctx, DLQFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
