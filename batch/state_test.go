package batch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/batch-engine/batch"
	"github.com/warp/batch-engine/batch/store"
)

func newTestState(t *testing.T) *batch.State {
	t.Helper()
	return batch.NewState("test-contract", store.NewMemory())
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func TestState_Initialize_Once(t *testing.T) {
	st := newTestState(t)
	ctx := context.Background()

	require.NoError(t, st.Initialize(ctx, "admin-1"))

	admin, err := st.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, batch.Account("admin-1"), admin)

	ok, err := st.Initialized(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestState_Initialize_Twice_Rejected(t *testing.T) {
	st := newTestState(t)
	ctx := context.Background()

	require.NoError(t, st.Initialize(ctx, "admin-1"))
	err := st.Initialize(ctx, "admin-2")
	assert.ErrorIs(t, err, batch.ErrAlreadyInitialized)

	// Original admin must be untouched.
	admin, err := st.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, batch.Account("admin-1"), admin)
}

func TestState_Admin_BeforeInitialize(t *testing.T) {
	st := newTestState(t)

	_, err := st.Admin(context.Background())
	assert.ErrorIs(t, err, batch.ErrNotInitialized)
}

// =============================================================================
// ADMIN REPLACEMENT
// =============================================================================

func TestState_ReplaceAdmin(t *testing.T) {
	st := newTestState(t)
	ctx := context.Background()
	require.NoError(t, st.Initialize(ctx, "admin-1"))

	err := st.ReplaceAdmin(ctx, batch.AllowAll{}, "admin-1", "admin-2")
	require.NoError(t, err)

	admin, err := st.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, batch.Account("admin-2"), admin)
}

func TestState_ReplaceAdmin_WrongCurrent_Rejected(t *testing.T) {
	st := newTestState(t)
	ctx := context.Background()
	require.NoError(t, st.Initialize(ctx, "admin-1"))

	err := st.ReplaceAdmin(ctx, batch.AllowAll{}, "impostor", "admin-2")
	assert.ErrorIs(t, err, batch.ErrUnauthorized)
}

// =============================================================================
// COUNTERS AND ENTITIES
// =============================================================================

func TestState_Counters_ZeroBeforeFirstBatch(t *testing.T) {
	st := newTestState(t)

	c, err := st.Counters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, batch.Counters{}, c)
}

func TestState_Counters_Roundtrip(t *testing.T) {
	st := newTestState(t)
	ctx := context.Background()

	want := batch.Counters{LastBatchID: 7, LastItemID: 42, ItemsProcessed: 99, Volume: 1234}
	require.NoError(t, st.SetCounters(ctx, want))

	got, err := st.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestState_Entity_Roundtrip(t *testing.T) {
	st := newTestState(t)
	ctx := context.Background()

	type record struct {
		Owner  string `json:"owner"`
		Amount int64  `json:"amount"`
	}

	var missing record
	ok, err := st.GetEntity(ctx, "k1", &missing)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.PutEntity(ctx, "k1", record{Owner: "a", Amount: 10}))

	var got record
	ok, err = st.GetEntity(ctx, "k1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, record{Owner: "a", Amount: 10}, got)

	has, err := st.HasEntity(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, has)

	// Last write wins.
	require.NoError(t, st.PutEntity(ctx, "k1", record{Owner: "a", Amount: 20}))
	_, err = st.GetEntity(ctx, "k1", &got)
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.Amount)
}

func TestState_ContractsAreIsolated(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	a := batch.NewState("contract-a", mem)
	b := batch.NewState("contract-b", mem)

	require.NoError(t, a.Initialize(ctx, "admin-a"))

	ok, err := b.Initialized(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "contract-b must not see contract-a's admin")
}
