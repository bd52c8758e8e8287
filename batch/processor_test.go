package batch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/batch-engine/batch"
	"github.com/warp/batch-engine/batch/store"
)

// =============================================================================
// TEST CONTRACT
// =============================================================================
// A minimal admin-gated contract: credit an amount to an account. Invalid
// when the account is empty (code 0) or the amount is not positive (code 1).
// Accounts prefixed "blocked-" fail at execution time (code 2), and a
// request carrying exactly the fatalAmount aborts the call, standing in for
// a downstream settlement rejection.

const (
	codeInvalidAccount batch.Code = 0
	codeInvalidAmount  batch.Code = 1
	codeBlocked        batch.Code = 2
)

const fatalAmount batch.Amount = 666

type creditRequest struct {
	Account batch.Account `json:"account"`
	Amount  batch.Amount  `json:"amount"`
}

type creditDetail struct {
	ItemID uint64       `json:"item_id"`
	Amount batch.Amount `json:"amount"`
}

type creditContract struct{}

func (creditContract) Name() string { return "credit" }

func (creditContract) AccountOf(req creditRequest) batch.Account { return req.Account }

func (creditContract) Validate(_ context.Context, _ *batch.Pass, req creditRequest) batch.Outcome {
	if req.Account.IsZero() {
		return batch.Fail(codeInvalidAccount)
	}
	if !req.Amount.IsPositive() {
		return batch.Fail(codeInvalidAmount)
	}
	return batch.OK()
}

func (creditContract) Execute(ctx context.Context, pass *batch.Pass, req creditRequest) (creditDetail, batch.Amount, batch.Outcome, error) {
	if req.Amount == fatalAmount {
		return creditDetail{}, 0, batch.OK(), errors.New("settlement rejected")
	}
	if len(req.Account) > 8 && req.Account[:8] == "blocked-" {
		return creditDetail{}, 0, batch.Fail(codeBlocked), nil
	}
	detail := creditDetail{ItemID: pass.NextItemID(), Amount: req.Amount}
	if err := pass.State.PutEntity(ctx, string(req.Account), &detail); err != nil {
		return creditDetail{}, 0, batch.OK(), err
	}
	return detail, req.Amount, batch.OK(), nil
}

// =============================================================================
// TEST SETUP
// =============================================================================

const testAdmin = batch.Account("admin-1")

func newTestProcessor(t *testing.T) (*batch.Processor[creditRequest, creditDetail], *store.Memory, *batch.MemorySink) {
	t.Helper()

	mem := store.NewMemory()
	sink := batch.NewMemorySink()
	st := batch.NewState("credit", mem)
	require.NoError(t, st.Initialize(context.Background(), testAdmin))

	proc := batch.New[creditRequest, creditDetail](
		creditContract{}, st, batch.AdminOnly{}, batch.AllowAll{}, &batch.ManualClock{Seq: 1000}, sink,
	)
	return proc, mem, sink
}

func credit(account string, amount int64) creditRequest {
	return creditRequest{Account: batch.Account(account), Amount: batch.Amount(amount)}
}

// =============================================================================
// PIPELINE INVARIANTS
// =============================================================================

func TestRun_MixedBatch_CountsAndOrder(t *testing.T) {
	// GIVEN: a batch with one invalid item (negative amount) between two
	//        valid items
	// WHEN:  the batch runs
	// THEN:  results preserve input order, counts add up, and the invalid
	//        item carries the documented error code

	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()

	items := []creditRequest{
		credit("acct-a", 100),
		credit("acct-b", -5),
		credit("acct-c", 250),
	}
	sum, err := proc.Run(ctx, testAdmin, items)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), sum.BatchID)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Successful)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, batch.Amount(350), sum.Aggregate)

	require.Len(t, sum.Results, 3)
	for i, r := range sum.Results {
		assert.Equal(t, items[i].Account, r.Account, "results[%d] must echo items[%d]", i, i)
		assert.Equal(t, items[i], r.Request)
	}
	assert.True(t, sum.Results[0].Success)
	assert.False(t, sum.Results[1].Success)
	assert.Equal(t, codeInvalidAmount, sum.Results[1].Code)
	assert.True(t, sum.Results[2].Success)
}

func TestRun_SuccessPlusFailed_AlwaysEqualsTotal(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()

	cases := [][]creditRequest{
		{credit("a", 1)},
		{credit("a", 1), credit("", 2)},
		{credit("", 0), credit("b", -1), credit("blocked-acct", 9)},
	}
	for i, items := range cases {
		sum, err := proc.Run(ctx, testAdmin, items)
		require.NoError(t, err, "case %d", i)
		assert.Equal(t, len(items), sum.Total)
		assert.Equal(t, sum.Total, sum.Successful+sum.Failed)
		assert.Len(t, sum.Results, sum.Total)
	}
}

func TestRun_ExecutionFailure_IsRecordedNotFatal(t *testing.T) {
	// GIVEN: an item that passes validation but fails at execution
	//        (blocked account)
	// THEN:  it is recorded as a Failure and the next item still runs

	proc, _, _ := newTestProcessor(t)

	sum, err := proc.Run(context.Background(), testAdmin, []creditRequest{
		credit("blocked-acct", 50),
		credit("acct-ok", 75),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, codeBlocked, sum.Results[0].Code)
	assert.True(t, sum.Results[1].Success)
	assert.Equal(t, batch.Amount(75), sum.Aggregate)
}

func TestRun_FatalExecutionError_AbortsWithoutCounters(t *testing.T) {
	// GIVEN: a downstream failure validation could not foresee
	// THEN:  the whole call fails with ErrExecutionFailed and counters do
	//        not advance

	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()

	_, err := proc.Run(ctx, testAdmin, []creditRequest{
		credit("acct-a", 10),
		credit("acct-fatal", int64(fatalAmount)),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, batch.ErrExecutionFailed)

	var execErr *batch.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 1, execErr.Index)
	assert.Equal(t, batch.Account("acct-fatal"), execErr.Account)

	counters, cerr := proc.State.Counters(ctx)
	require.NoError(t, cerr)
	assert.Equal(t, uint64(0), counters.LastBatchID)
	assert.Equal(t, uint64(0), counters.ItemsProcessed)
}

// =============================================================================
// COUNTERS
// =============================================================================

func TestRun_CountersAccumulateAcrossBatches(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()

	sum1, err := proc.Run(ctx, testAdmin, []creditRequest{credit("a", 100)})
	require.NoError(t, err)
	sum2, err := proc.Run(ctx, testAdmin, []creditRequest{credit("b", 40)})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), sum1.BatchID)
	assert.Equal(t, uint64(2), sum2.BatchID)

	counters, err := proc.State.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), counters.LastBatchID)
	assert.Equal(t, uint64(2), counters.ItemsProcessed)
	assert.Equal(t, uint64(2), counters.LastItemID)
	assert.Equal(t, batch.Amount(140), counters.Volume)
}

func TestRun_AllFailedBatch_StillConsumesBatchID(t *testing.T) {
	// Batch ids are never reused, even when every item fails.

	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()

	sum1, err := proc.Run(ctx, testAdmin, []creditRequest{credit("", -1)})
	require.NoError(t, err)
	assert.Equal(t, 1, sum1.Failed)

	sum2, err := proc.Run(ctx, testAdmin, []creditRequest{credit("a", 5)})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), sum2.BatchID)
}

func TestRun_ItemIDsMonotonicAcrossBatches(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()

	sum1, err := proc.Run(ctx, testAdmin, []creditRequest{credit("a", 1), credit("b", 2)})
	require.NoError(t, err)
	sum2, err := proc.Run(ctx, testAdmin, []creditRequest{credit("c", 3)})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), sum1.Results[0].Detail.ItemID)
	assert.Equal(t, uint64(2), sum1.Results[1].Detail.ItemID)
	assert.Equal(t, uint64(3), sum2.Results[0].Detail.ItemID)
}

func TestRun_VolumeSaturatesAtMax(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()

	_, err := proc.Run(ctx, testAdmin, []creditRequest{credit("a", int64(batch.MaxAmount)-10)})
	require.NoError(t, err)
	_, err = proc.Run(ctx, testAdmin, []creditRequest{credit("b", 500)})
	require.NoError(t, err)

	counters, err := proc.State.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, batch.MaxAmount, counters.Volume, "lifetime volume must clamp, not wrap")
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestRun_EmptyBatch_NoStateNoEvents(t *testing.T) {
	proc, mem, sink := newTestProcessor(t)
	ctx := context.Background()

	keysBefore := mem.Len()
	_, err := proc.Run(ctx, testAdmin, nil)

	assert.ErrorIs(t, err, batch.ErrEmptyBatch)
	assert.Equal(t, keysBefore, mem.Len(), "no storage mutation on precondition failure")
	assert.Equal(t, 0, sink.Len(), "no events on precondition failure")
}

func TestRun_OversizedBatch_NoStateNoEvents(t *testing.T) {
	proc, mem, sink := newTestProcessor(t)
	ctx := context.Background()

	items := make([]creditRequest, batch.MaxBatchSize+1)
	for i := range items {
		items[i] = credit(fmt.Sprintf("acct-%d", i), 1)
	}

	keysBefore := mem.Len()
	_, err := proc.Run(ctx, testAdmin, items)

	assert.ErrorIs(t, err, batch.ErrBatchTooLarge)
	assert.Equal(t, keysBefore, mem.Len())
	assert.Equal(t, 0, sink.Len())

	counters, cerr := proc.State.Counters(ctx)
	require.NoError(t, cerr)
	assert.Equal(t, uint64(0), counters.LastBatchID)
}

func TestRun_MaxSizeBatch_Accepted(t *testing.T) {
	proc, _, _ := newTestProcessor(t)

	items := make([]creditRequest, batch.MaxBatchSize)
	for i := range items {
		items[i] = credit(fmt.Sprintf("acct-%d", i), 1)
	}
	sum, err := proc.Run(context.Background(), testAdmin, items)
	require.NoError(t, err)
	assert.Equal(t, batch.MaxBatchSize, sum.Successful)
}

func TestRun_UnauthorizedCaller_Rejected(t *testing.T) {
	proc, _, sink := newTestProcessor(t)

	_, err := proc.Run(context.Background(), "not-the-admin", []creditRequest{credit("a", 1)})
	assert.ErrorIs(t, err, batch.ErrUnauthorized)
	assert.Equal(t, 0, sink.Len())
}

func TestRun_Uninitialized_Rejected(t *testing.T) {
	st := batch.NewState("credit", store.NewMemory())
	proc := batch.New[creditRequest, creditDetail](
		creditContract{}, st, batch.AdminOnly{}, batch.AllowAll{}, nil, nil,
	)

	_, err := proc.Run(context.Background(), testAdmin, []creditRequest{credit("a", 1)})
	assert.ErrorIs(t, err, batch.ErrNotInitialized)
}

// =============================================================================
// EVENTS
// =============================================================================

func TestRun_EventTrail_OrderAndTopics(t *testing.T) {
	proc, _, sink := newTestProcessor(t)

	_, err := proc.Run(context.Background(), testAdmin, []creditRequest{
		credit("a", 10),
		credit("", 10),
	})
	require.NoError(t, err)

	events := sink.Events()
	require.Len(t, events, 4)
	assert.Equal(t, batch.ActionBatchStarted, events[0].Action)
	assert.Equal(t, batch.ActionItemSuccess, events[1].Action)
	assert.Equal(t, batch.ActionItemFailure, events[2].Action)
	assert.Equal(t, batch.ActionBatchCompleted, events[3].Action)

	for _, e := range events {
		assert.Equal(t, "credit", e.Category)
		assert.Equal(t, uint64(1), e.BatchID)
		assert.NotEmpty(t, e.ID)
	}
}

// =============================================================================
// SATURATING ARITHMETIC
// =============================================================================

func TestAmount_SaturatingAdd(t *testing.T) {
	tests := []struct {
		name string
		a, b batch.Amount
		want batch.Amount
	}{
		{"plain", 100, 50, 150},
		{"negative", -100, 40, -60},
		{"overflow clamps to max", batch.MaxAmount, 1, batch.MaxAmount},
		{"underflow clamps to min", batch.MinAmount, -1, batch.MinAmount},
		{"max plus zero", batch.MaxAmount, 0, batch.MaxAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.SaturatingAdd(tt.b))
		})
	}
}
