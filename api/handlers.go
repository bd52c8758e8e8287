/*
handlers.go - HTTP API handlers for the batch operation engine

PURPOSE:
  Exposes the contract services via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.

ENDPOINTS (per contract, under /api/{contract}):
  POST /initialize  Set the admin (admin-gated contracts)
  POST /batch       Submit a batch of items
  GET  /admin       Read the admin account
  PUT  /admin       Hand the admin role to another account
  GET  /stats       Contract-wide counters

  Plus per-contract accessors: wallets, budgets, goals, histories,
  recommendations. See server.go for the route table.

CALLER IDENTITY:
  The submitting account arrives in the X-Caller header, set by the
  authenticating gateway. Authorization itself happens inside the
  engine per contract policy; handlers only transport the identity.

REQUEST FLOW:
  1. Parse HTTP request
  2. Read caller identity
  3. Call the contract service
  4. Serialize response
  5. Map errors to status codes

SEE ALSO:
  - dto.go: Envelopes and error mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/batch-engine/batch"
	"github.com/warp/batch-engine/budget"
	"github.com/warp/batch-engine/conversion"
	"github.com/warp/batch-engine/goal"
	"github.com/warp/batch-engine/history"
	"github.com/warp/batch-engine/notify"
	"github.com/warp/batch-engine/recommend"
	"github.com/warp/batch-engine/store/sqlite"
	"github.com/warp/batch-engine/transfer"
	"github.com/warp/batch-engine/wallet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all contract services plus the event log, when the
// deployment is SQLite-backed. Events is nil for in-memory setups and
// the event routes are simply not mounted.
type Handler struct {
	Transfer   *transfer.Service
	Conversion *conversion.Service
	Wallet     *wallet.Service
	Budget     *budget.Service
	Goal       *goal.Service
	Notify     *notify.Service
	History    *history.Service
	Recommend  *recommend.Service

	Events *sqlite.Store
}

// caller extracts the submitting account from the request.
func caller(r *http.Request) (batch.Account, bool) {
	c := batch.Account(r.Header.Get(CallerHeader))
	return c, !c.IsZero()
}

// =============================================================================
// SHARED CONTRACT SURFACES
// =============================================================================

// initializer is the Initialize surface every admin-gated service shares.
type initializer interface {
	Initialize(ctx context.Context, admin batch.Account) error
}

// adminService is the admin read/replace surface.
type adminService interface {
	Admin(ctx context.Context) (batch.Account, error)
	SetAdmin(ctx context.Context, current, next batch.Account) error
}

// statsService exposes contract counters.
type statsService interface {
	Stats(ctx context.Context) (batch.Counters, error)
}

// initializeHandler builds the POST /initialize handler for a service.
func initializeHandler(svc initializer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InitializeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if req.Admin.IsZero() {
			writeError(w, http.StatusBadRequest, "Missing admin account", nil)
			return
		}
		if err := svc.Initialize(r.Context(), req.Admin); err != nil {
			writeError(w, statusFor(err), "Failed to initialize", err)
			return
		}
		writeJSON(w, http.StatusCreated, AdminResponse{Admin: req.Admin})
	}
}

// adminHandlers builds the GET and PUT /admin handlers for a service.
func adminHandlers(svc adminService) (get, put http.HandlerFunc) {
	get = func(w http.ResponseWriter, r *http.Request) {
		admin, err := svc.Admin(r.Context())
		if err != nil {
			writeError(w, statusFor(err), "Failed to read admin", err)
			return
		}
		writeJSON(w, http.StatusOK, AdminResponse{Admin: admin})
	}
	put = func(w http.ResponseWriter, r *http.Request) {
		current, ok := caller(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "Missing "+CallerHeader+" header", nil)
			return
		}
		var req SetAdminRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if req.Next.IsZero() {
			writeError(w, http.StatusBadRequest, "Missing next admin account", nil)
			return
		}
		if err := svc.SetAdmin(r.Context(), current, req.Next); err != nil {
			writeError(w, statusFor(err), "Failed to replace admin", err)
			return
		}
		writeJSON(w, http.StatusOK, AdminResponse{Admin: req.Next})
	}
	return get, put
}

// statsHandler builds the GET /stats handler for a service.
func statsHandler(svc statsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counters, err := svc.Stats(r.Context())
		if err != nil {
			writeError(w, statusFor(err), "Failed to read counters", err)
			return
		}
		writeJSON(w, http.StatusOK, counters)
	}
}

// batchHandler builds the POST /batch handler for a contract whose Run
// returns a plain summary.
func batchHandler[R any, D any](run func(ctx context.Context, caller batch.Account, items []R) (*batch.Summary[R, D], error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := caller(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "Missing "+CallerHeader+" header", nil)
			return
		}
		var req BatchRequest[R]
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		sum, err := run(r.Context(), c, req.Items)
		if err != nil {
			writeError(w, statusFor(err), "Batch rejected", err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

// =============================================================================
// GOAL HANDLERS
// =============================================================================

// GoalBatchResponse pairs the summary with the goal batch metrics.
type GoalBatchResponse struct {
	Summary *batch.Summary[goal.Request, goal.SavingsGoal] `json:"summary"`
	Metrics goal.Metrics                                   `json:"metrics"`
}

// SubmitGoals runs a goal batch and returns summary plus metrics.
// POST /api/goal/batch
func (h *Handler) SubmitGoals(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Missing "+CallerHeader+" header", nil)
		return
	}
	var req BatchRequest[goal.Request]
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	sum, metrics, err := h.Goal.Run(r.Context(), c, req.Items)
	if err != nil {
		writeError(w, statusFor(err), "Batch rejected", err)
		return
	}
	writeJSON(w, http.StatusOK, GoalBatchResponse{Summary: sum, Metrics: metrics})
}

// GetGoal returns one stored goal.
// GET /api/goal/goals/{id}
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid goal id", err)
		return
	}
	g, ok, err := h.Goal.Goal(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load goal", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Goal not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// GetUserGoals returns the goal ids belonging to one user.
// GET /api/goal/users/{account}/goals
func (h *Handler) GetUserGoals(w http.ResponseWriter, r *http.Request) {
	user := batch.Account(chi.URLParam(r, "account"))
	ids, err := h.Goal.UserGoals(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load goals", err)
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// =============================================================================
// ENTITY ACCESSORS
// =============================================================================

// GetWallet returns the wallet owned by an account.
// GET /api/wallet/wallets/{owner}
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	owner := batch.Account(chi.URLParam(r, "owner"))
	wlt, ok, err := h.Wallet.Wallet(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load wallet", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Wallet not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, wlt)
}

// GetBudget returns the budget record for an account.
// GET /api/budget/records/{account}
func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	account := batch.Account(chi.URLParam(r, "account"))
	rec, ok, err := h.Budget.Budget(r.Context(), account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load budget", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Budget not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetHistory returns an account's transaction history.
// GET /api/history/records/{account}
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	account := batch.Account(chi.URLParam(r, "account"))
	records, err := h.History.Records(r.Context(), account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}
	if records == nil {
		records = []history.TransactionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// =============================================================================
// RECOMMENDATION HANDLERS
// =============================================================================

// SimulateRecommendations evaluates profiles without persisting advice.
// POST /api/recommend/simulate
func (h *Handler) SimulateRecommendations(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest[recommend.Request]
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Recommend.Simulate(req.Items))
}

// GetLatestRecommendation returns a user's most recent advice.
// GET /api/recommend/latest/{account}
func (h *Handler) GetLatestRecommendation(w http.ResponseWriter, r *http.Request) {
	user := batch.Account(chi.URLParam(r, "account"))
	rec, ok, err := h.Recommend.Latest(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load recommendation", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "No recommendation for account", nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetBatchRecommendations returns all advice one batch generated.
// GET /api/recommend/batches/{id}
func (h *Handler) GetBatchRecommendations(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid batch id", err)
		return
	}
	recs, err := h.Recommend.BatchRecommendations(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load recommendations", err)
		return
	}
	if recs == nil {
		recs = []recommend.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// GetGeneratedTotal returns the lifetime recommendation count.
// GET /api/recommend/generated
func (h *Handler) GetGeneratedTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.Recommend.Generated(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read total", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"generated": total})
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// GetRecentEvents returns the newest events across all contracts.
// GET /api/events/recent?limit=N
func (h *Handler) GetRecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	events, err := h.Events.RecentEvents(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load events", err)
		return
	}
	if events == nil {
		events = []batch.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetBatchEvents returns the event trail of one batch.
// GET /api/events/{category}/{batchID}
func (h *Handler) GetBatchEvents(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	batchID, err := strconv.ParseUint(chi.URLParam(r, "batchID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid batch id", err)
		return
	}
	events, err := h.Events.EventsByBatch(r.Context(), category, batchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load events", err)
		return
	}
	if events == nil {
		events = []batch.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
