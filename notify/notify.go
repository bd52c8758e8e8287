/*
Package notify implements the batch notification contract.

PURPOSE:
  Fans one call out into many notification deliveries. Delivery itself is
  the emitted event: a successful item's event payload carries the
  recipient and message, and downstream consumers (webhooks, mail relays)
  subscribe to the sink. Nothing is persisted per item; only the shared
  counters advance.

AUTH:
  Self-authorized. Any account may submit a batch of its own
  notifications; there is no admin gate and no Initialize requirement
  beyond counter storage.
*/
package notify

import (
	"context"

	"github.com/warp/batch-engine/batch"
)

// ContractName is the storage namespace and event category.
const ContractName = "notify"

// CodeEmptyMessage rejects notifications with no message body.
const CodeEmptyMessage batch.Code = 0

// Request is one notification to deliver.
type Request struct {
	Recipient batch.Account `json:"recipient"`
	Message   string        `json:"message"`
}

// Delivery describes a dispatched notification.
type Delivery struct {
	ID        uint64        `json:"id"`
	Recipient batch.Account `json:"recipient"`
	Message   string        `json:"message"`
	SentAt    uint64        `json:"sent_at"`
}

// =============================================================================
// CONTRACT STRATEGY
// =============================================================================

type contract struct{}

func (contract) Name() string { return ContractName }

func (contract) AccountOf(req Request) batch.Account { return req.Recipient }

func (contract) Validate(_ context.Context, _ *batch.Pass, req Request) batch.Outcome {
	if req.Message == "" {
		return batch.Fail(CodeEmptyMessage)
	}
	return batch.OK()
}

func (contract) Execute(_ context.Context, pass *batch.Pass, req Request) (Delivery, batch.Amount, batch.Outcome, error) {
	d := Delivery{
		ID:        pass.NextItemID(),
		Recipient: req.Recipient,
		Message:   req.Message,
		SentAt:    pass.Sequence,
	}
	// Delta of 1 per delivery keeps Volume counting messages sent.
	return d, 1, batch.OK(), nil
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the public face of the notification contract.
type Service struct {
	proc  *batch.Processor[Request, Delivery]
	state *batch.State
}

func NewService(st batch.Store, authn batch.Authenticator, clock batch.Clock, sink batch.Sink) *Service {
	state := batch.NewState(ContractName, st)
	return &Service{
		proc:  batch.New[Request, Delivery](contract{}, state, batch.SelfAuthorized{}, authn, clock, sink),
		state: state,
	}
}

// Initialize sets up counter storage. The admin account is recorded but
// never gates Run; it exists so counters can be reset operationally.
func (s *Service) Initialize(ctx context.Context, admin batch.Account) error {
	return s.state.Initialize(ctx, admin)
}

func (s *Service) Run(ctx context.Context, caller batch.Account, items []Request) (*batch.Summary[Request, Delivery], error) {
	return s.proc.Run(ctx, caller, items)
}

func (s *Service) Stats(ctx context.Context) (batch.Counters, error) {
	return s.state.Counters(ctx)
}
