/*
Package goal implements the batch savings-goal creation contract.

PURPOSE:
  Creates savings goals for many users in one admin-gated call. Each
  successful item allocates a sequential goal id, stores the goal, and
  appends the id to the owner's goal index. Goals at or above
  HighValueThreshold additionally emit a "high_value_goal" event.

VALIDATION:
  Target amounts must sit inside [MinGoalAmount, MaxGoalAmount]. Deadlines
  are ledger sequence numbers: they must be in the future but no further
  out than MaxDeadlineHorizon. The initial contribution may be zero but
  never negative and never above the target.

ERROR CODES:
  0 - invalid target amount
  1 - invalid deadline
  2 - invalid initial contribution
  3 - invalid goal name
  4 - invalid user address
*/
package goal

import (
	"context"
	"fmt"

	"github.com/warp/batch-engine/batch"
)

// ContractName is the storage namespace and event category.
const ContractName = "goal"

// Error codes for the savings goals contract.
const (
	CodeInvalidAmount       batch.Code = 0
	CodeInvalidDeadline     batch.Code = 1
	CodeInvalidContribution batch.Code = 2
	CodeInvalidName         batch.Code = 3
	CodeInvalidUser         batch.Code = 4
)

const (
	// MinGoalAmount is 1 XLM in stroops.
	MinGoalAmount batch.Amount = 10_000_000

	// MaxGoalAmount is 1 billion XLM in stroops.
	MaxGoalAmount batch.Amount = 1_000_000_000_000_000_000

	// MaxDeadlineHorizon bounds deadlines to roughly five years of
	// ledger sequences.
	MaxDeadlineHorizon uint64 = 31_536_000

	// HighValueThreshold marks goals worth a secondary event (100k XLM).
	HighValueThreshold batch.Amount = 1_000_000_000_000
)

// ActionHighValue is the secondary event action for outsized goals.
const ActionHighValue = "high_value_goal"

// =============================================================================
// TYPES
// =============================================================================

// Request asks for one savings goal.
type Request struct {
	User                batch.Account `json:"user"`
	Name                string        `json:"name"`
	Target              batch.Amount  `json:"target_amount"`
	Deadline            uint64        `json:"deadline"` // ledger sequence
	InitialContribution batch.Amount  `json:"initial_contribution"`
}

// SavingsGoal is the stored entity, keyed by its allocated id.
type SavingsGoal struct {
	ID        uint64        `json:"id"`
	User      batch.Account `json:"user"`
	Name      string        `json:"name"`
	Target    batch.Amount  `json:"target_amount"`
	Current   batch.Amount  `json:"current_amount"`
	Deadline  uint64        `json:"deadline"`
	CreatedAt uint64        `json:"created_at"`
	Active    bool          `json:"active"`
}

// Metrics summarizes a goal batch beyond the generic counts.
type Metrics struct {
	TotalTarget        batch.Amount `json:"total_target_amount"`
	TotalContributions batch.Amount `json:"total_initial_contributions"`
	AverageTarget      batch.Amount `json:"avg_goal_amount"`
	ProcessedAt        uint64       `json:"processed_at"`
}

func goalKey(id uint64) string          { return fmt.Sprintf("goal:%d", id) }
func userKey(user batch.Account) string { return fmt.Sprintf("user:%s", user) }

// =============================================================================
// VALIDATION
// =============================================================================

func validAmount(a batch.Amount) bool {
	return a >= MinGoalAmount && a <= MaxGoalAmount
}

func validDeadline(deadline, now uint64) bool {
	return deadline > now && deadline <= now+MaxDeadlineHorizon
}

func validContribution(contribution, target batch.Amount) bool {
	return !contribution.IsNegative() && contribution <= target
}

// =============================================================================
// CONTRACT STRATEGY
// =============================================================================

type contract struct{}

func (contract) Name() string { return ContractName }

func (contract) AccountOf(req Request) batch.Account { return req.User }

func (contract) Validate(_ context.Context, pass *batch.Pass, req Request) batch.Outcome {
	switch {
	case req.User.IsZero():
		return batch.Fail(CodeInvalidUser)
	case req.Name == "":
		return batch.Fail(CodeInvalidName)
	case !validAmount(req.Target):
		return batch.Fail(CodeInvalidAmount)
	case !validDeadline(req.Deadline, pass.Sequence):
		return batch.Fail(CodeInvalidDeadline)
	case !validContribution(req.InitialContribution, req.Target):
		return batch.Fail(CodeInvalidContribution)
	}
	return batch.OK()
}

func (contract) Execute(ctx context.Context, pass *batch.Pass, req Request) (SavingsGoal, batch.Amount, batch.Outcome, error) {
	g := SavingsGoal{
		ID:        pass.NextItemID(),
		User:      req.User,
		Name:      req.Name,
		Target:    req.Target,
		Current:   req.InitialContribution,
		Deadline:  req.Deadline,
		CreatedAt: pass.Sequence,
		Active:    true,
	}
	if err := pass.State.PutEntity(ctx, goalKey(g.ID), &g); err != nil {
		return SavingsGoal{}, 0, batch.OK(), err
	}

	// Maintain the per-user goal index.
	var ids []uint64
	if _, err := pass.State.GetEntity(ctx, userKey(req.User), &ids); err != nil {
		return SavingsGoal{}, 0, batch.OK(), err
	}
	ids = append(ids, g.ID)
	if err := pass.State.PutEntity(ctx, userKey(req.User), ids); err != nil {
		return SavingsGoal{}, 0, batch.OK(), err
	}

	if req.Target >= HighValueThreshold {
		pass.Emit(ActionHighValue, map[string]any{
			"goal_id": g.ID,
			"user":    req.User,
			"target":  req.Target,
		})
	}

	return g, req.Target, batch.OK(), nil
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the public face of the savings goals contract.
type Service struct {
	proc  *batch.Processor[Request, SavingsGoal]
	state *batch.State
	authn batch.Authenticator
	clock batch.Clock
}

func NewService(st batch.Store, authn batch.Authenticator, clock batch.Clock, sink batch.Sink) *Service {
	if clock == nil {
		clock = batch.SystemClock{}
	}
	state := batch.NewState(ContractName, st)
	return &Service{
		proc:  batch.New[Request, SavingsGoal](contract{}, state, batch.AdminOnly{}, authn, clock, sink),
		state: state,
		authn: authn,
		clock: clock,
	}
}

func (s *Service) Initialize(ctx context.Context, admin batch.Account) error {
	return s.state.Initialize(ctx, admin)
}

// Run processes one batch of goal creations and derives the batch metrics
// from the summary.
func (s *Service) Run(ctx context.Context, caller batch.Account, items []Request) (*batch.Summary[Request, SavingsGoal], Metrics, error) {
	sum, err := s.proc.Run(ctx, caller, items)
	if err != nil {
		return nil, Metrics{}, err
	}
	return sum, s.metrics(ctx, sum), nil
}

func (s *Service) metrics(ctx context.Context, sum *batch.Summary[Request, SavingsGoal]) Metrics {
	m := Metrics{
		TotalTarget: sum.Aggregate,
		ProcessedAt: s.clock.Sequence(ctx),
	}
	for _, r := range sum.Results {
		if r.Success {
			m.TotalContributions = m.TotalContributions.SaturatingAdd(r.Request.InitialContribution)
		}
	}
	if sum.Successful > 0 {
		m.AverageTarget = sum.Aggregate / batch.Amount(sum.Successful)
	}
	return m
}

// Goal returns the stored goal by id, if any.
func (s *Service) Goal(ctx context.Context, id uint64) (SavingsGoal, bool, error) {
	var g SavingsGoal
	ok, err := s.state.GetEntity(ctx, goalKey(id), &g)
	return g, ok, err
}

// UserGoals returns the ids of all goals created for user, oldest first.
func (s *Service) UserGoals(ctx context.Context, user batch.Account) ([]uint64, error) {
	var ids []uint64
	if _, err := s.state.GetEntity(ctx, userKey(user), &ids); err != nil {
		return nil, err
	}
	return ids, nil
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
