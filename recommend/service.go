/*
Batch contract wrapping the recommendation engine.

PURPOSE:
  Generates budget advice for many user profiles in one admin-gated call.
  Each successful item stores the advice as the user's latest
  recommendation and appends it to the batch's recommendation list. A
  contract-level total of generated recommendations is kept alongside the
  shared counters.

  Simulate runs the same validation and engine without touching storage,
  counters, or events, so operators can preview advice before committing.
*/
package recommend

import (
	"context"
	"fmt"

	"github.com/warp/batch-engine/batch"
)

// ContractName is the storage namespace and event category.
const ContractName = "recommend"

// Error codes for the recommendation contract.
const (
	CodeInvalidRiskTier batch.Code = 0
	CodeNegativeAmount  batch.Code = 1
)

// Request asks for advice on one user's profile.
type Request struct {
	User    batch.Account `json:"user"`
	Profile Profile       `json:"profile"`
}

// Recommendation is stored advice for one user.
type Recommendation struct {
	User        batch.Account `json:"user"`
	Advice      Advice        `json:"advice"`
	BatchID     uint64        `json:"batch_id"`
	GeneratedAt uint64        `json:"generated_at"`
}

func latestKey(user batch.Account) string { return fmt.Sprintf("latest:%s", user) }
func batchKey(id uint64) string           { return fmt.Sprintf("batch:%d", id) }

const generatedKey = "generated_total"

// =============================================================================
// CONTRACT STRATEGY
// =============================================================================

type contract struct{}

func (contract) Name() string { return ContractName }

func (contract) AccountOf(req Request) batch.Account { return req.User }

func validate(req Request) batch.Outcome {
	p := req.Profile
	switch {
	case p.RiskTier < 1 || p.RiskTier > 5:
		return batch.Fail(CodeInvalidRiskTier)
	case p.Income.IsNegative() || p.Expenses.IsNegative() || p.Balance.IsNegative():
		return batch.Fail(CodeNegativeAmount)
	}
	return batch.OK()
}

func (contract) Validate(_ context.Context, _ *batch.Pass, req Request) batch.Outcome {
	return validate(req)
}

func (contract) Execute(ctx context.Context, pass *batch.Pass, req Request) (Recommendation, batch.Amount, batch.Outcome, error) {
	rec := Recommendation{
		User:        req.User,
		Advice:      Evaluate(req.Profile),
		BatchID:     pass.BatchID,
		GeneratedAt: pass.Sequence,
	}

	if err := pass.State.PutEntity(ctx, latestKey(req.User), &rec); err != nil {
		return Recommendation{}, 0, batch.OK(), err
	}

	var recs []Recommendation
	if _, err := pass.State.GetEntity(ctx, batchKey(pass.BatchID), &recs); err != nil {
		return Recommendation{}, 0, batch.OK(), err
	}
	recs = append(recs, rec)
	if err := pass.State.PutEntity(ctx, batchKey(pass.BatchID), recs); err != nil {
		return Recommendation{}, 0, batch.OK(), err
	}

	return rec, rec.Advice.SuggestedSavings, batch.OK(), nil
}

// =============================================================================
// SERVICE
// =============================================================================

// Service is the public face of the recommendation contract.
type Service struct {
	proc  *batch.Processor[Request, Recommendation]
	state *batch.State
	authn batch.Authenticator
}

func NewService(st batch.Store, authn batch.Authenticator, clock batch.Clock, sink batch.Sink) *Service {
	state := batch.NewState(ContractName, st)
	return &Service{
		proc:  batch.New[Request, Recommendation](contract{}, state, batch.AdminOnly{}, authn, clock, sink),
		state: state,
		authn: authn,
	}
}

func (s *Service) Initialize(ctx context.Context, admin batch.Account) error {
	return s.state.Initialize(ctx, admin)
}

// Run generates and persists advice for one batch of profiles.
func (s *Service) Run(ctx context.Context, caller batch.Account, items []Request) (*batch.Summary[Request, Recommendation], error) {
	sum, err := s.proc.Run(ctx, caller, items)
	if err != nil {
		return nil, err
	}

	// Track total advice generated across all batches.
	var total uint64
	if _, err := s.state.GetEntity(ctx, generatedKey, &total); err != nil {
		return nil, err
	}
	total += uint64(sum.Successful)
	if err := s.state.PutEntity(ctx, generatedKey, total); err != nil {
		return nil, err
	}
	return sum, nil
}

// Simulate evaluates profiles without persisting anything. Invalid items
// come back failed with the same codes Run would assign; counters, events,
// and storage are untouched.
func (s *Service) Simulate(items []Request) []batch.Result[Request, Recommendation] {
	results := make([]batch.Result[Request, Recommendation], 0, len(items))
	for _, req := range items {
		r := batch.Result[Request, Recommendation]{Account: req.User, Request: req}
		if out := validate(req); !out.Valid {
			r.Code = out.Code
		} else {
			r.Success = true
			r.Detail = Recommendation{User: req.User, Advice: Evaluate(req.Profile)}
		}
		results = append(results, r)
	}
	return results
}

// Latest returns a user's most recent recommendation, if any.
func (s *Service) Latest(ctx context.Context, user batch.Account) (Recommendation, bool, error) {
	var rec Recommendation
	ok, err := s.state.GetEntity(ctx, latestKey(user), &rec)
	return rec, ok, err
}

// BatchRecommendations returns all advice generated by one batch.
func (s *Service) BatchRecommendations(ctx context.Context, batchID uint64) ([]Recommendation, error) {
	var recs []Recommendation
	if _, err := s.state.GetEntity(ctx, batchKey(batchID), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Generated returns the total number of recommendations ever produced.
func (s *Service) Generated(ctx context.Context) (uint64, error) {
	var total uint64
	if _, err := s.state.GetEntity(ctx, generatedKey, &total); err != nil {
		return 0, err
	}
	return total, nil
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
