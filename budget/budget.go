/*
Package budget implements the batch budget allocation contract.

Admin-gated. Each successful item overwrites the account's budget record -
deliberately last-write-wins, unlike wallet creation which rejects
duplicates. Re-allocating a budget is routine; re-creating a wallet is a
mistake.

ERROR CODES:
  0 - negative amount (zero is a valid allocation)
*/
package budget

import (
	"context"

	"github.com/warp/batch-engine/batch"
)

// ContractName is the storage namespace and event category.
const ContractName = "budget"

// CodeNegativeAmount rejects allocations below zero.
const CodeNegativeAmount batch.Code = 0

// Request assigns a monthly budget to an account.
type Request struct {
	Account batch.Account `json:"account"`
	Amount  batch.Amount  `json:"amount"`
}

// Record is the stored budget, keyed by account.
type Record struct {
	Account     batch.Account `json:"account"`
	Amount      batch.Amount  `json:"amount"`
	LastUpdated uint64        `json:"last_updated"` // ledger sequence of the write
}

// =============================================================================
// CONTRACT STRATEGY
// =============================================================================

type contract struct{}

func (contract) Name() string { return ContractName }

func (contract) AccountOf(req Request) batch.Account { return req.Account }

func (contract) Validate(_ context.Context, _ *batch.Pass, req Request) batch.Outcome {
	if req.Account.IsZero() || req.Amount.IsNegative() {
		return batch.Fail(CodeNegativeAmount)
	}
	return batch.OK()
}

func (contract) Execute(ctx context.Context, pass *batch.Pass, req Request) (Record, batch.Amount, batch.Outcome, error) {
	rec := Record{
		Account:     req.Account,
		Amount:      req.Amount,
		LastUpdated: pass.Sequence,
	}
	if err := pass.State.PutEntity(ctx, string(req.Account), &rec); err != nil {
		return Record{}, 0, batch.OK(), err
	}
	return rec, req.Amount, batch.OK(), nil
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the public face of the budget allocation contract.
type Service struct {
	proc  *batch.Processor[Request, Record]
	state *batch.State
	authn batch.Authenticator
}

func NewService(st batch.Store, authn batch.Authenticator, clock batch.Clock, sink batch.Sink) *Service {
	state := batch.NewState(ContractName, st)
	return &Service{
		proc:  batch.New[Request, Record](contract{}, state, batch.AdminOnly{}, authn, clock, sink),
		state: state,
		authn: authn,
	}
}

func (s *Service) Initialize(ctx context.Context, admin batch.Account) error {
	return s.state.Initialize(ctx, admin)
}

// Run processes one batch of budget allocations.
func (s *Service) Run(ctx context.Context, caller batch.Account, items []Request) (*batch.Summary[Request, Record], error) {
	return s.proc.Run(ctx, caller, items)
}

// Budget returns the stored record for account, if any.
func (s *Service) Budget(ctx context.Context, account batch.Account) (Record, bool, error) {
	var rec Record
	ok, err := s.state.GetEntity(ctx, string(account), &rec)
	return rec, ok, err
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
