package wallet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/batch-engine/batch"
	"github.com/warp/batch-engine/batch/store"
	"github.com/warp/batch-engine/wallet"
)

const admin = batch.Account("registrar")

func newTestService(t *testing.T) *wallet.Service {
	t.Helper()
	svc := wallet.NewService(store.NewMemory(), batch.AllowAll{}, &batch.ManualClock{Seq: 12345}, batch.NewMemorySink())
	require.NoError(t, svc.Initialize(context.Background(), admin))
	return svc
}

func owner(o string) wallet.Request { return wallet.Request{Owner: batch.Account(o)} }

// =============================================================================
// CREATION
// =============================================================================

func TestRun_CreatesWalletsWithSequentialIDs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sum, err := svc.Run(ctx, admin, []wallet.Request{owner("alice"), owner("bob")})
	require.NoError(t, err)
	require.Equal(t, 2, sum.Successful)

	assert.Equal(t, uint64(1), sum.Results[0].Detail.ID)
	assert.Equal(t, uint64(2), sum.Results[1].Detail.ID)
	assert.Equal(t, uint64(12345), sum.Results[0].Detail.CreatedAt)

	w, ok, err := svc.Wallet(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, batch.Account("alice"), w.Owner)
	assert.Equal(t, uint64(1), w.ID)
}

func TestRun_DuplicateOwner_RejectedNewOwnerStillSucceeds(t *testing.T) {
	// GIVEN: alice already holds a wallet from an earlier batch
	// WHEN:  a batch re-requests alice and also requests carol
	// THEN:  alice fails with "already exists", carol succeeds and gets
	//        the next sequential id

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Run(ctx, admin, []wallet.Request{owner("alice"), owner("bob")})
	require.NoError(t, err)

	sum, err := svc.Run(ctx, admin, []wallet.Request{owner("alice"), owner("carol")})
	require.NoError(t, err)

	assert.False(t, sum.Results[0].Success)
	assert.Equal(t, wallet.CodeAlreadyExists, sum.Results[0].Code)
	assert.True(t, sum.Results[1].Success)
	assert.Equal(t, uint64(3), sum.Results[1].Detail.ID)
}

func TestRun_DuplicateOwnerWithinOneBatch_SecondRejected(t *testing.T) {
	svc := newTestService(t)

	sum, err := svc.Run(context.Background(), admin, []wallet.Request{owner("dana"), owner("dana")})
	require.NoError(t, err)

	assert.True(t, sum.Results[0].Success)
	assert.Equal(t, wallet.CodeAlreadyExists, sum.Results[1].Code)
	assert.Equal(t, 1, sum.Successful)
}

func TestRun_EmptyOwner_Rejected(t *testing.T) {
	svc := newTestService(t)

	sum, err := svc.Run(context.Background(), admin, []wallet.Request{owner("")})
	require.NoError(t, err)
	assert.Equal(t, wallet.CodeInvalidOwner, sum.Results[0].Code)
}

// =============================================================================
// ACCESSORS
// =============================================================================

func TestWallet_MissingOwner(t *testing.T) {
	svc := newTestService(t)

	_, ok, err := svc.Wallet(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStats_CountFailuresToo(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Run(ctx, admin, []wallet.Request{owner("alice"), owner("")})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.LastBatchID)
	assert.Equal(t, uint64(2), stats.ItemsProcessed)
	assert.Equal(t, uint64(1), stats.LastItemID, "only successful creations consume ids")
}
