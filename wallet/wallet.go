/*
Package wallet implements the batch wallet creation contract.

Admin-gated. Each successful item creates a Wallet keyed by its owner with
a sequential id allocated in input order. Creation is NOT last-write-wins:
a request for an owner that already holds a wallet is rejected as a
duplicate (code 1), whether the existing wallet came from an earlier batch
or from an earlier item of the same batch.

ERROR CODES:
  0 - invalid owner address
  1 - wallet already exists
*/
package wallet

import (
	"context"

	"github.com/warp/batch-engine/batch"
)

// ContractName is the storage namespace and event category.
const ContractName = "wallet"

// Error codes for the wallet contract.
const (
	CodeInvalidOwner  batch.Code = 0
	CodeAlreadyExists batch.Code = 1
)

// =============================================================================
// TYPES
// =============================================================================

// Request asks for one wallet.
type Request struct {
	Owner batch.Account `json:"owner"`
}

// Wallet is the stored entity, keyed by owner.
type Wallet struct {
	ID        uint64        `json:"id"`
	Owner     batch.Account `json:"owner"`
	CreatedAt uint64        `json:"created_at"` // ledger sequence at creation
}

// =============================================================================
// CONTRACT STRATEGY
// =============================================================================

type contract struct{}

func (contract) Name() string { return ContractName }

func (contract) AccountOf(req Request) batch.Account { return req.Owner }

// Validate checks the owner against already-stored wallets. The duplicate
// check is repeated in Execute so that two requests for the same owner
// within one batch also collide; validation alone cannot see same-batch
// writes because it runs before any item executes.
func (contract) Validate(ctx context.Context, pass *batch.Pass, req Request) batch.Outcome {
	if req.Owner.IsZero() {
		return batch.Fail(CodeInvalidOwner)
	}
	exists, err := pass.State.HasEntity(ctx, string(req.Owner))
	if err == nil && exists {
		return batch.Fail(CodeAlreadyExists)
	}
	return batch.OK()
}

func (contract) Execute(ctx context.Context, pass *batch.Pass, req Request) (Wallet, batch.Amount, batch.Outcome, error) {
	exists, err := pass.State.HasEntity(ctx, string(req.Owner))
	if err != nil {
		return Wallet{}, 0, batch.OK(), err
	}
	if exists {
		return Wallet{}, 0, batch.Fail(CodeAlreadyExists), nil
	}

	w := Wallet{
		ID:        pass.NextItemID(),
		Owner:     req.Owner,
		CreatedAt: pass.Sequence,
	}
	if err := pass.State.PutEntity(ctx, string(req.Owner), &w); err != nil {
		return Wallet{}, 0, batch.OK(), err
	}
	return w, 0, batch.OK(), nil
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the public face of the wallet creation contract.
type Service struct {
	proc  *batch.Processor[Request, Wallet]
	state *batch.State
	authn batch.Authenticator
}

func NewService(st batch.Store, authn batch.Authenticator, clock batch.Clock, sink batch.Sink) *Service {
	state := batch.NewState(ContractName, st)
	return &Service{
		proc:  batch.New[Request, Wallet](contract{}, state, batch.AdminOnly{}, authn, clock, sink),
		state: state,
		authn: authn,
	}
}

func (s *Service) Initialize(ctx context.Context, admin batch.Account) error {
	return s.state.Initialize(ctx, admin)
}

// Run processes one batch of wallet creations.
func (s *Service) Run(ctx context.Context, caller batch.Account, items []Request) (*batch.Summary[Request, Wallet], error) {
	return s.proc.Run(ctx, caller, items)
}

// Wallet returns the stored wallet for owner, if any.
func (s *Service) Wallet(ctx context.Context, owner batch.Account) (Wallet, bool, error) {
	var w Wallet
	ok, err := s.state.GetEntity(ctx, string(owner), &w)
	return w, ok, err
}

func (s *Service) Admin(ctx context.Context) (batch.Account, error) {
	return s.state.Admin(ctx)
}

func (s *Service) SetAdmin(ctx context.Context, current, next batch.Account) error {
	return s.state.ReplaceAdmin(ctx, s.authn, current, next)
}

func (s *Service) Stats(ctx context.Context) (batch.Counters, error) {
	return s.state.Counters(ctx)
}
