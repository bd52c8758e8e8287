/*
Package history implements the batch transaction-history logging contract.

PURPOSE:
  Appends transaction records to per-account history lists. Each account's
  history lives under one entity key and grows append-only; records carry
  the ledger sequence at which they were logged so consumers can order
  entries across batches.

AUTH:
  Self-authorized. Any account may log records; there is no admin gate
  on Run.
*/
package history

import (
	"context"
	"fmt"

	"github.com/warp/batch-engine/batch"
)

// ContractName is the storage namespace and event category.
const ContractName = "history"

// CodeInvalidUser rejects records with no account.
const CodeInvalidUser batch.Code = 0

// Request asks for one record to be appended to an account's history.
type Request struct {
	User   batch.Account `json:"user"`
	Action string        `json:"action"`
	Amount batch.Amount  `json:"amount"`
}

// TransactionRecord is one stored history entry.
type TransactionRecord struct {
	ID       uint64        `json:"id"`
	User     batch.Account `json:"user"`
	Action   string        `json:"action"`
	Amount   batch.Amount  `json:"amount"`
	LoggedAt uint64        `json:"logged_at"`
}

func historyKey(user batch.Account) string { return fmt.Sprintf("history:%s", user) }

// =============================================================================
// CONTRACT STRATEGY
// =============================================================================

type contract struct{}

func (contract) Name() string { return ContractName }

func (contract) AccountOf(req Request) batch.Account { return req.User }

func (contract) Validate(_ context.Context, _ *batch.Pass, req Request) batch.Outcome {
	if req.User.IsZero() {
		return batch.Fail(CodeInvalidUser)
	}
	return batch.OK()
}

func (contract) Execute(ctx context.Context, pass *batch.Pass, req Request) (TransactionRecord, batch.Amount, batch.Outcome, error) {
	rec := TransactionRecord{
		ID:       pass.NextItemID(),
		User:     req.User,
		Action:   req.Action,
		Amount:   req.Amount,
		LoggedAt: pass.Sequence,
	}

	var records []TransactionRecord
	if _, err := pass.State.GetEntity(ctx, historyKey(req.User), &records); err != nil {
		return TransactionRecord{}, 0, batch.OK(), err
	}
	records = append(records, rec)
	if err := pass.State.PutEntity(ctx, historyKey(req.User), records); err != nil {
		return TransactionRecord{}, 0, batch.OK(), err
	}

	return rec, req.Amount, batch.OK(), nil
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the public face of the history contract.
type Service struct {
	proc  *batch.Processor[Request, TransactionRecord]
	state *batch.State
}

func NewService(st batch.Store, authn batch.Authenticator, clock batch.Clock, sink batch.Sink) *Service {
	state := batch.NewState(ContractName, st)
	return &Service{
		proc:  batch.New[Request, TransactionRecord](contract{}, state, batch.SelfAuthorized{}, authn, clock, sink),
		state: state,
	}
}

// Initialize sets up counter storage. The admin is recorded but never
// gates Run.
func (s *Service) Initialize(ctx context.Context, admin batch.Account) error {
	return s.state.Initialize(ctx, admin)
}

func (s *Service) Run(ctx context.Context, caller batch.Account, items []Request) (*batch.Summary[Request, TransactionRecord], error) {
	return s.proc.Run(ctx, caller, items)
}

// Records returns an account's full history, oldest first.
func (s *Service) Records(ctx context.Context, user batch.Account) ([]TransactionRecord, error) {
	var records []TransactionRecord
	if _, err := s.state.GetEntity(ctx, historyKey(user), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Service) Stats(ctx context.Context) (batch.Counters, error) {
	return s.state.Counters(ctx)
}
