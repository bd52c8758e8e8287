/*
auth.go - Authorization strategies

PURPOSE:
  The contracts split into two authorization models and the engine does not
  unify them: admin-gated contracts require the single stored admin to
  co-sign every batch; self-authorized contracts require only the acting
  account's own signature and have no admin concept. The policy is selected
  per contract instance.

HOST BOUNDARY:
  Signature verification itself belongs to the host ledger runtime. The
  engine consumes it through Authenticator and calls it once per batch,
  on the caller - never per item.
*/
package batch

import "context"

// Authenticator is the host's account-authorization proof. RequireAuth
// fails when the named account did not co-sign the current call.
type Authenticator interface {
	RequireAuth(ctx context.Context, account Account) error
}

// AllowAll is an Authenticator that accepts every account. Used in tests
// and in deployments where the transport layer already proved identity.
type AllowAll struct{}

func (AllowAll) RequireAuth(ctx context.Context, account Account) error { return nil }

// AuthPolicy decides whether a caller may submit a batch against a
// contract's state. A returned error is fatal to the whole call.
type AuthPolicy interface {
	Authorize(ctx context.Context, st *State, authn Authenticator, caller Account) error
}

// AdminOnly requires the contract to be initialized and the caller to be
// the stored admin.
type AdminOnly struct{}

func (AdminOnly) Authorize(ctx context.Context, st *State, authn Authenticator, caller Account) error {
	if err := authn.RequireAuth(ctx, caller); err != nil {
		return err
	}
	admin, err := st.Admin(ctx)
	if err != nil {
		return err
	}
	if caller != admin {
		return ErrUnauthorized
	}
	return nil
}

// SelfAuthorized requires only the caller's own signature. No admin
// concept, no initialization requirement.
type SelfAuthorized struct{}

func (SelfAuthorized) Authorize(ctx context.Context, st *State, authn Authenticator, caller Account) error {
	return authn.RequireAuth(ctx, caller)
}
