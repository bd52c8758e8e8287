package budget_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/batch-engine/batch"
	"github.com/warp/batch-engine/batch/store"
	"github.com/warp/batch-engine/budget"
)

const admin = batch.Account("finance-admin")

func newTestService(t *testing.T) (*budget.Service, *batch.ManualClock) {
	t.Helper()
	clock := &batch.ManualClock{Seq: 500}
	svc := budget.NewService(store.NewMemory(), batch.AllowAll{}, clock, batch.NewMemorySink())
	require.NoError(t, svc.Initialize(context.Background(), admin))
	return svc, clock
}

func alloc(account string, amount int64) budget.Request {
	return budget.Request{Account: batch.Account(account), Amount: batch.Amount(amount)}
}

// =============================================================================
// ALLOCATION
// =============================================================================

func TestRun_NegativeAmount_FailsZeroSucceeds(t *testing.T) {
	svc, _ := newTestService(t)

	sum, err := svc.Run(context.Background(), admin, []budget.Request{
		alloc("alice", -1),
		alloc("bob", 0),
		alloc("carol", 5000),
	})
	require.NoError(t, err)

	assert.Equal(t, budget.CodeNegativeAmount, sum.Results[0].Code)
	assert.True(t, sum.Results[1].Success, "zero is a valid allocation")
	assert.True(t, sum.Results[2].Success)
	assert.Equal(t, batch.Amount(5000), sum.Aggregate)
}

func TestRun_Overwrite_LastWriteWins(t *testing.T) {
	// Unlike wallet creation, a second allocation for the same account
	// silently replaces the first.

	svc, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.Run(ctx, admin, []budget.Request{alloc("alice", 1000)})
	require.NoError(t, err)

	clock.Advance(10)
	_, err = svc.Run(ctx, admin, []budget.Request{alloc("alice", 2500)})
	require.NoError(t, err)

	rec, ok, err := svc.Budget(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, batch.Amount(2500), rec.Amount)
	assert.Equal(t, uint64(510), rec.LastUpdated)
}

func TestRun_OverwriteWithinOneBatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sum, err := svc.Run(ctx, admin, []budget.Request{alloc("bob", 100), alloc("bob", 900)})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Successful)

	rec, ok, err := svc.Budget(ctx, "bob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, batch.Amount(900), rec.Amount)
}

// =============================================================================
// AUTHORIZATION
// =============================================================================

func TestRun_NonAdmin_Rejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Run(context.Background(), "mallory", []budget.Request{alloc("alice", 10)})
	assert.ErrorIs(t, err, batch.ErrUnauthorized)
}

func TestBudget_Missing(t *testing.T) {
	svc, _ := newTestService(t)

	_, ok, err := svc.Budget(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}
