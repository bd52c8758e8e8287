/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/transfer/*    Batch token transfers
  /api/conversion/*  Batch asset conversions
  /api/wallet/*      Batch wallet creation
  /api/budget/*      Budget allocations
  /api/goal/*        Savings goals
  /api/notify/*      Notification fan-out
  /api/history/*     Transaction history logging
  /api/recommend/*   Budget recommendations
  /api/events/*      Event log (SQLite deployments only)

SECURITY NOTE:
  Caller identity arrives in the X-Caller header and is trusted as-is.
  The API expects an authenticating gateway in front; contract-level
  authorization still applies inside the engine.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", CallerHeader},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Transfer routes
		r.Route("/transfer", func(r chi.Router) {
			getAdmin, putAdmin := adminHandlers(h.Transfer)
			r.Post("/initialize", initializeHandler(h.Transfer))
			r.Post("/batch", batchHandler(h.Transfer.Run))
			r.Get("/admin", getAdmin)
			r.Put("/admin", putAdmin)
			r.Get("/stats", statsHandler(h.Transfer))
		})

		// Conversion routes (self-authorized, no admin surface)
		r.Route("/conversion", func(r chi.Router) {
			r.Post("/batch", batchHandler(h.Conversion.Run))
			r.Get("/stats", statsHandler(h.Conversion))
		})

		// Wallet routes
		r.Route("/wallet", func(r chi.Router) {
			getAdmin, putAdmin := adminHandlers(h.Wallet)
			r.Post("/initialize", initializeHandler(h.Wallet))
			r.Post("/batch", batchHandler(h.Wallet.Run))
			r.Get("/admin", getAdmin)
			r.Put("/admin", putAdmin)
			r.Get("/stats", statsHandler(h.Wallet))
			r.Get("/wallets/{owner}", h.GetWallet)
		})

		// Budget routes
		r.Route("/budget", func(r chi.Router) {
			getAdmin, putAdmin := adminHandlers(h.Budget)
			r.Post("/initialize", initializeHandler(h.Budget))
			r.Post("/batch", batchHandler(h.Budget.Run))
			r.Get("/admin", getAdmin)
			r.Put("/admin", putAdmin)
			r.Get("/stats", statsHandler(h.Budget))
			r.Get("/records/{account}", h.GetBudget)
		})

		// Goal routes
		r.Route("/goal", func(r chi.Router) {
			getAdmin, putAdmin := adminHandlers(h.Goal)
			r.Post("/initialize", initializeHandler(h.Goal))
			r.Post("/batch", h.SubmitGoals)
			r.Get("/admin", getAdmin)
			r.Put("/admin", putAdmin)
			r.Get("/stats", statsHandler(h.Goal))
			r.Get("/goals/{id}", h.GetGoal)
			r.Get("/users/{account}/goals", h.GetUserGoals)
		})

		// Notification routes
		r.Route("/notify", func(r chi.Router) {
			r.Post("/initialize", initializeHandler(h.Notify))
			r.Post("/batch", batchHandler(h.Notify.Run))
			r.Get("/stats", statsHandler(h.Notify))
		})

		// History routes
		r.Route("/history", func(r chi.Router) {
			r.Post("/initialize", initializeHandler(h.History))
			r.Post("/batch", batchHandler(h.History.Run))
			r.Get("/stats", statsHandler(h.History))
			r.Get("/records/{account}", h.GetHistory)
		})

		// Recommendation routes
		r.Route("/recommend", func(r chi.Router) {
			getAdmin, putAdmin := adminHandlers(h.Recommend)
			r.Post("/initialize", initializeHandler(h.Recommend))
			r.Post("/batch", batchHandler(h.Recommend.Run))
			r.Post("/simulate", h.SimulateRecommendations)
			r.Get("/admin", getAdmin)
			r.Put("/admin", putAdmin)
			r.Get("/stats", statsHandler(h.Recommend))
			r.Get("/latest/{account}", h.GetLatestRecommendation)
			r.Get("/batches/{id}", h.GetBatchRecommendations)
			r.Get("/generated", h.GetGeneratedTotal)
		})

		// Event routes only exist when a persistent event log is wired
		if h.Events != nil {
			r.Route("/events", func(r chi.Router) {
				r.Get("/recent", h.GetRecentEvents)
				r.Get("/{category}/{batchID}", h.GetBatchEvents)
			})
		}
	})

	// Landing page listing the API surface
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Batch Operation Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Batch Operation Engine API</h1>
<h2>Contracts</h2>
<ul>
<li><code>POST /api/{contract}/batch</code> - Submit a batch (contracts: transfer, conversion, wallet, budget, goal, notify, history, recommend)</li>
<li><code>GET /api/{contract}/stats</code> - Contract counters</li>
<li><code>POST /api/recommend/simulate</code> - Preview advice without persisting</li>
</ul>
</body>
</html>`))
	})

	return r
}
