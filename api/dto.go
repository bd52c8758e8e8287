/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Defines the JSON shapes exchanged with clients and the mapping from
  engine errors to HTTP status codes. Batch summaries and per-item
  results serialize directly from the engine types; this file only adds
  the envelopes around them.

ERROR MAPPING:
  400: Empty or oversized batches, malformed bodies, missing caller
  403: Caller is not authorized for the contract
  404: Entity accessors that find nothing
  409: Initialization conflicts (already / not yet initialized)
  500: Execution failures and storage errors

SEE ALSO:
  - handlers.go: Handler implementations
  - batch/errors.go: The sentinel errors mapped here
*/
package api

import (
	"errors"
	"net/http"

	"github.com/warp/batch-engine/batch"
)

// CallerHeader carries the authenticated account submitting the request.
// A gateway in front of this API is expected to set it after verifying
// the caller's signature.
const CallerHeader = "X-Caller"

// BatchRequest is the generic envelope for batch submissions.
type BatchRequest[R any] struct {
	Items []R `json:"items"`
}

// InitializeRequest sets a contract's admin.
type InitializeRequest struct {
	Admin batch.Account `json:"admin"`
}

// SetAdminRequest hands the admin role to a new account.
type SetAdminRequest struct {
	Next batch.Account `json:"next"`
}

// AdminResponse reports a contract's admin.
type AdminResponse struct {
	Admin batch.Account `json:"admin"`
}

// ErrorResponse is the error payload for all non-2xx responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, batch.ErrEmptyBatch), errors.Is(err, batch.ErrBatchTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, batch.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, batch.ErrNotInitialized), errors.Is(err, batch.ErrAlreadyInitialized):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
