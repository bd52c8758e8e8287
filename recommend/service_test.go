/*
Tests for the recommendation contract: persistence of latest and
per-batch advice, the generated total, validation codes, admin gating,
and Simulate's no-side-effect guarantee.
*/
package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/batch-engine/batch"
	"github.com/warp/batch-engine/batch/store"
)

const (
	admin = batch.Account("GADMIN")
	alice = batch.Account("GALICE")
	bob   = batch.Account("GBOB")
)

func newService(t *testing.T) (*Service, *store.Memory, *batch.MemorySink) {
	t.Helper()
	mem := store.NewMemory()
	sink := &batch.MemorySink{}
	clock := &batch.ManualClock{Seq: 900}
	svc := NewService(mem, batch.AllowAll{}, clock, sink)
	require.NoError(t, svc.Initialize(context.Background(), admin))
	return svc, mem, sink
}

func healthy(user batch.Account, tier uint32) Request {
	return Request{
		User:    user,
		Profile: Profile{Income: 200_000, Expenses: 80_000, Balance: 50_000, RiskTier: tier},
	}
}

func TestRunStoresLatestAndBatchList(t *testing.T) {
	// GIVEN: profiles for two users
	svc, _, _ := newService(t)
	ctx := context.Background()

	// WHEN:  the batch runs
	sum, err := svc.Run(ctx, admin, []Request{healthy(alice, 1), healthy(bob, 5)})
	require.NoError(t, err)
	require.Equal(t, 2, sum.Successful)

	// THEN:  each user has a latest recommendation
	rec, ok, err := svc.Latest(ctx, alice)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, BandConservative, rec.Advice.Band)
	assert.Equal(t, uint64(1), rec.BatchID)
	assert.Equal(t, uint64(900), rec.GeneratedAt)

	// AND:   the batch list holds both, in submission order
	recs, err := svc.BatchRecommendations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, alice, recs[0].User)
	assert.Equal(t, BandAggressive, recs[1].Advice.Band)
}

func TestLatestOverwrittenByLaterBatch(t *testing.T) {
	// GIVEN: advice generated at tier 1
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Run(ctx, admin, []Request{healthy(alice, 1)})
	require.NoError(t, err)

	// WHEN:  a later batch re-evaluates the same user at tier 5
	_, err = svc.Run(ctx, admin, []Request{healthy(alice, 5)})
	require.NoError(t, err)

	// THEN:  latest reflects the newer batch, and both batch lists survive
	rec, ok, err := svc.Latest(ctx, alice)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, BandAggressive, rec.Advice.Band)
	assert.Equal(t, uint64(2), rec.BatchID)

	first, err := svc.BatchRecommendations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, first, 1)
}

func TestGeneratedTotalAccumulates(t *testing.T) {
	// GIVEN: two batches with one invalid item
	svc, _, _ := newService(t)
	ctx := context.Background()

	bad := healthy(alice, 0) // tier out of range
	_, err := svc.Run(ctx, admin, []Request{healthy(alice, 1), bad})
	require.NoError(t, err)
	_, err = svc.Run(ctx, admin, []Request{healthy(bob, 3)})
	require.NoError(t, err)

	// THEN:  only successful items count
	total, err := svc.Generated(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
}

func TestValidationCodes(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	tier0 := healthy(alice, 0)
	tier6 := healthy(alice, 6)
	negative := healthy(bob, 3)
	negative.Profile.Balance = -1

	sum, err := svc.Run(ctx, admin, []Request{tier0, tier6, negative})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Failed)
	assert.Equal(t, CodeInvalidRiskTier, sum.Results[0].Code)
	assert.Equal(t, CodeInvalidRiskTier, sum.Results[1].Code)
	assert.Equal(t, CodeNegativeAmount, sum.Results[2].Code)
}

func TestNonAdminRejected(t *testing.T) {
	svc, _, sink := newService(t)

	_, err := svc.Run(context.Background(), alice, []Request{healthy(alice, 3)})
	require.ErrorIs(t, err, batch.ErrUnauthorized)
	assert.Zero(t, sink.Len())
}

func TestSimulateHasNoSideEffects(t *testing.T) {
	// GIVEN: a fresh contract and a mixed simulation
	svc, mem, sink := newService(t)
	ctx := context.Background()
	before := mem.Len()

	// WHEN:  simulating
	results := svc.Simulate([]Request{healthy(alice, 1), healthy(bob, 0)})

	// THEN:  advice matches what Run would generate
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.Equal(t, Evaluate(healthy(alice, 1).Profile), results[0].Detail.Advice)
	assert.False(t, results[1].Success)
	assert.Equal(t, CodeInvalidRiskTier, results[1].Code)

	// AND:   storage, counters, and events are untouched
	assert.Equal(t, before, mem.Len())
	assert.Zero(t, sink.Len())
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.LastBatchID)

	_, ok, err := svc.Latest(ctx, alice)
	require.NoError(t, err)
	assert.False(t, ok)
}
