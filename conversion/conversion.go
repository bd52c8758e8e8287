/*
Package conversion implements the batch currency conversion contract.

PURPOSE:
  Converts amounts between asset pairs for many users in one call.
  Self-authorized: the acting caller signs for the batch; there is no admin
  concept and no initialization step.

CONVERSION MECHANISM:
  Settlement is a stub behind AssetClient, matching the reference behavior:
  the executed output is the caller-declared minimum output amount. A real
  deployment would plug a price oracle or a DEX path payment behind the
  same interface.

BALANCE MODEL:
  Each (user, from-asset) pair gets a running balance across the batch:
  read once on first touch, decremented as conversions are accepted.

ERROR CODES:
  0 - invalid user address
  1 - invalid from-asset address
  2 - invalid to-asset address
  3 - invalid input amount (not positive)
  4 - invalid minimum output (not positive)
  5 - same-asset conversion
  6 - insufficient balance
*/
package conversion

import (
	"context"

	"github.com/warp/batch-engine/batch"
)

// ContractName is the storage namespace and event category.
const ContractName = "conversion"

// Error codes for the conversion contract.
const (
	CodeInvalidUser         batch.Code = 0
	CodeInvalidFromAsset    batch.Code = 1
	CodeInvalidToAsset      batch.Code = 2
	CodeInvalidAmountIn     batch.Code = 3
	CodeInvalidMinOut       batch.Code = 4
	CodeSameAsset           batch.Code = 5
	CodeInsufficientBalance batch.Code = 6
)

// =============================================================================
// TYPES
// =============================================================================

// Request is one conversion: user, asset pair, input amount, and the
// minimum acceptable output (slippage tolerance).
type Request struct {
	User         batch.Account `json:"user"`
	FromAsset    batch.Account `json:"from_asset"`
	ToAsset      batch.Account `json:"to_asset"`
	AmountIn     batch.Amount  `json:"amount_in"`
	MinAmountOut batch.Amount  `json:"min_amount_out"`
}

// Receipt is the success detail: what went in and what came out.
type Receipt struct {
	User      batch.Account `json:"user"`
	FromAsset batch.Account `json:"from_asset"`
	ToAsset   batch.Account `json:"to_asset"`
	AmountIn  batch.Amount  `json:"amount_in"`
	AmountOut batch.Amount  `json:"amount_out"`
}

// AssetClient is the external settlement boundary, per asset.
type AssetClient interface {
	// Balance returns the account's balance in the given asset.
	Balance(ctx context.Context, asset, account batch.Account) (batch.Amount, error)

	// Swap executes the conversion and returns the output amount. An
	// error is fatal to the whole batch call.
	Swap(ctx context.Context, account, fromAsset, toAsset batch.Account, amountIn, minOut batch.Amount) (batch.Amount, error)
}

type balanceKey struct {
	User  batch.Account
	Asset batch.Account
}

// runState tracks running balances per (user, from-asset) for this batch.
type runState struct {
	available map[balanceKey]batch.Amount
}

// =============================================================================
// CONTRACT STRATEGY
// =============================================================================

type contract struct {
	assets AssetClient
}

func (contract) Name() string { return ContractName }

func (contract) AccountOf(req Request) batch.Account { return req.User }

func (contract) BeginBatch(_ context.Context, pass *batch.Pass) error {
	pass.Scratch = &runState{available: make(map[balanceKey]batch.Amount)}
	return nil
}

func (contract) Validate(_ context.Context, _ *batch.Pass, req Request) batch.Outcome {
	switch {
	case req.User.IsZero():
		return batch.Fail(CodeInvalidUser)
	case req.FromAsset.IsZero():
		return batch.Fail(CodeInvalidFromAsset)
	case req.ToAsset.IsZero():
		return batch.Fail(CodeInvalidToAsset)
	case !req.AmountIn.IsPositive():
		return batch.Fail(CodeInvalidAmountIn)
	case !req.MinAmountOut.IsPositive():
		return batch.Fail(CodeInvalidMinOut)
	case req.FromAsset == req.ToAsset:
		return batch.Fail(CodeSameAsset)
	}
	return batch.OK()
}

func (c contract) Execute(ctx context.Context, pass *batch.Pass, req Request) (Receipt, batch.Amount, batch.Outcome, error) {
	rs := pass.Scratch.(*runState)
	key := balanceKey{User: req.User, Asset: req.FromAsset}

	available, seen := rs.available[key]
	if !seen {
		bal, err := c.assets.Balance(ctx, req.FromAsset, req.User)
		if err != nil {
			return Receipt{}, 0, batch.OK(), err
		}
		available = bal
	}
	if available < req.AmountIn {
		return Receipt{}, 0, batch.Fail(CodeInsufficientBalance), nil
	}

	out, err := c.assets.Swap(ctx, req.User, req.FromAsset, req.ToAsset, req.AmountIn, req.MinAmountOut)
	if err != nil {
		return Receipt{}, 0, batch.OK(), err
	}

	rs.available[key] = available - req.AmountIn
	receipt := Receipt{
		User:      req.User,
		FromAsset: req.FromAsset,
		ToAsset:   req.ToAsset,
		AmountIn:  req.AmountIn,
		AmountOut: out,
	}
	return receipt, req.AmountIn, batch.OK(), nil
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the public face of the conversion contract.
type Service struct {
	proc  *batch.Processor[Request, Receipt]
	state *batch.State
}

// NewService wires the conversion contract. No Initialize: the contract is
// self-authorized and carries no admin.
func NewService(st batch.Store, authn batch.Authenticator, clock batch.Clock, sink batch.Sink, assets AssetClient) *Service {
	state := batch.NewState(ContractName, st)
	return &Service{
		proc:  batch.New[Request, Receipt](contract{assets: assets}, state, batch.SelfAuthorized{}, authn, clock, sink),
		state: state,
	}
}

// Run processes one batch of conversions.
func (s *Service) Run(ctx context.Context, caller batch.Account, items []Request) (*batch.Summary[Request, Receipt], error) {
	return s.proc.Run(ctx, caller, items)
}

// Stats returns the contract-wide counters.
func (s *Service) Stats(ctx context.Context) (batch.Counters, error) {
	return s.state.Counters(ctx)
}

// =============================================================================
// STUB ASSETS - Reference settlement behavior
// =============================================================================

// StubAssets is the reference AssetClient: every account holds Funded of
// every asset and a swap simply returns the requested minimum output.
type StubAssets struct {
	Funded batch.Amount
}

func (s StubAssets) Balance(_ context.Context, _, _ batch.Account) (batch.Amount, error) {
	return s.Funded, nil
}

func (s StubAssets) Swap(_ context.Context, _, _, _ batch.Account, _, minOut batch.Amount) (batch.Amount, error) {
	return minOut, nil
}
