/*
Package transfer implements the batch token transfer contract.

PURPOSE:
  Sends token amounts from the admin's account to many recipients in one
  call. Admin-gated: every batch must be co-signed by the stored admin.

BALANCE MODEL:
  The caller's spendable balance is read ONCE at batch entry and then
  decremented as items are accepted - a running balance across the batch,
  not a per-item reload. Two transfers that individually fit but jointly
  exceed the balance therefore fail on the second item, inside the same
  batch.

SETTLEMENT:
  Actual token movement is an external collaborator behind TokenClient.
  A settlement rejection after validation is fatal to the whole call
  (value-moving contracts do not get partial-failure isolation through
  execution).

ERROR CODES:
  0 - invalid recipient address
  1 - invalid amount (not positive)
  2 - insufficient balance
*/
package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/batch-engine/batch"
)

// ContractName is the storage namespace and event category.
const ContractName = "transfer"

// Error codes for the transfer contract.
const (
	CodeInvalidAddress      batch.Code = 0
	CodeInvalidAmount       batch.Code = 1
	CodeInsufficientBalance batch.Code = 2
)

// ErrTokenUnavailable wraps balance-read failures at batch entry.
var ErrTokenUnavailable = errors.New("token client unavailable")

// =============================================================================
// TYPES
// =============================================================================

// Request is one transfer: recipient and amount in minor units.
type Request struct {
	Recipient batch.Account `json:"recipient"`
	Amount    batch.Amount  `json:"amount"`
}

// Receipt is the success detail, echoing what was moved.
type Receipt struct {
	Recipient batch.Account `json:"recipient"`
	Amount    batch.Amount  `json:"amount"`
}

// TokenClient is the external settlement boundary.
type TokenClient interface {
	// Balance returns the account's spendable balance.
	Balance(ctx context.Context, account batch.Account) (batch.Amount, error)

	// Transfer moves amount from one account to another. An error here is
	// fatal to the whole batch call.
	Transfer(ctx context.Context, from, to batch.Account, amount batch.Amount) error
}

// runState is the per-batch scratch: the running spendable balance.
type runState struct {
	available batch.Amount
}

// =============================================================================
// CONTRACT STRATEGY
// =============================================================================

type contract struct {
	token TokenClient
}

func (contract) Name() string { return ContractName }

func (contract) AccountOf(req Request) batch.Account { return req.Recipient }

func (c contract) BeginBatch(ctx context.Context, pass *batch.Pass) error {
	available, err := c.token.Balance(ctx, pass.Caller)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	pass.Scratch = &runState{available: available}
	return nil
}

func (contract) Validate(_ context.Context, _ *batch.Pass, req Request) batch.Outcome {
	if req.Recipient.IsZero() {
		return batch.Fail(CodeInvalidAddress)
	}
	if !req.Amount.IsPositive() {
		return batch.Fail(CodeInvalidAmount)
	}
	return batch.OK()
}

func (c contract) Execute(ctx context.Context, pass *batch.Pass, req Request) (Receipt, batch.Amount, batch.Outcome, error) {
	rs := pass.Scratch.(*runState)
	if rs.available < req.Amount {
		return Receipt{}, 0, batch.Fail(CodeInsufficientBalance), nil
	}

	if err := c.token.Transfer(ctx, pass.Caller, req.Recipient, req.Amount); err != nil {
		return Receipt{}, 0, batch.OK(), err
	}

	rs.available -= req.Amount
	return Receipt{Recipient: req.Recipient, Amount: req.Amount}, req.Amount, batch.OK(), nil
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the public face of the transfer contract.
type Service struct {
	proc  *batch.Processor[Request, Receipt]
	state *batch.State
	authn batch.Authenticator
}

// NewService wires the transfer contract against a store, the host
// authorization boundary, and a token client.
func NewService(st batch.Store, authn batch.Authenticator, clock batch.Clock, sink batch.Sink, token TokenClient) *Service {
	state := batch.NewState(ContractName, st)
	return &Service{
		proc:  batch.New[Request, Receipt](contract{token: token}, state, batch.AdminOnly{}, authn, clock, sink),
		state: state,
		authn: authn,
	}
}

// Initialize records the admin. Fails if already initialized.
func (s *Service) Initialize(ctx context.Context, admin batch.Account) error {
	return s.state.Initialize(ctx, admin)
}

// Run processes one batch of transfers.
func (s *Service) Run(ctx context.Context, caller batch.Account, items []Request) (*batch.Summary[Request, Receipt], error) {
	return s.proc.Run(ctx, caller, items)
}

// Admin returns the stored admin account.
func (s *Service) Admin(ctx context.Context) (batch.Account, error) {
	return s.state.Admin(ctx)
}

// SetAdmin replaces the admin, authorized by the current admin.
func (s *Service) SetAdmin(ctx context.Context, current, next batch.Account) error {
	return s.state.ReplaceAdmin(ctx, s.authn, current, next)
}

// Stats returns the contract-wide counters.
func (s *Service) Stats(ctx context.Context) (batch.Counters, error) {
	return s.state.Counters(ctx)
}
