package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"epargne/pkg/epargne"
)

// userHeader identifies the caller. There is no authentication layer;
// the reverse proxy in front of the service is expected to set it.
const userHeader = "X-User"

// NewRouter builds the HTTP API router.
func NewRouter(core *epargne.Core, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(requestLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", userHeader},
		AllowCredentials: true,
	}))

	h := &handler{core: core}

	r.Get("/api/health", h.health)

	// Categories
	r.Get("/api/categories", h.getCategories)
	r.Post("/api/categories", h.addCategory)
	r.Delete("/api/categories/{name}", h.deleteCategory)

	// Simulations and projected results
	r.Get("/api/simulations", h.getSimulations)
	r.Post("/api/simulations", h.createSimulation)
	r.Get("/api/simulations/{id}", h.getSimulation)
	r.Put("/api/simulations/{id}", h.updateSimulation)
	r.Delete("/api/simulations/{id}", h.deleteSimulation)
	r.Get("/api/simulations/{id}/results", h.getSimulationResults)
	r.Get("/api/simulations/{id}/comparison", h.getSimulationComparison)
	r.Get("/api/results", h.getResults)
	r.Get("/api/results/chart", h.getResultsChart)
	r.Delete("/api/accounts/{name}", h.deleteAccountSimulations)

	// Inflation rates
	r.Get("/api/inflation-rates", h.getInflationRates)
	r.Put("/api/inflation-rates", h.upsertInflationRate)
	r.Delete("/api/inflation-rates/{year}", h.deleteInflationRate)

	// Observed account data
	r.Get("/api/simulations/{id}/real-data", h.getRealData)
	r.Post("/api/simulations/{id}/real-data", h.upsertRealData)
	r.Post("/api/simulations/{id}/real-data/recalculate", h.recalculateRealData)
	r.Delete("/api/real-data/{id}", h.deleteRealData)
	r.Get("/api/summary", h.getSummary)

	// CSV import/export
	r.Get("/api/export/simulations", h.exportSimulations)
	r.Post("/api/import/simulations", h.importSimulations)
	r.Get("/api/export/real-data", h.exportRealData)
	r.Post("/api/import/real-data", h.importRealData)

	// Stocks and quotes
	r.Get("/api/stocks", h.getStocks)
	r.Post("/api/stocks", h.addStock)
	r.Get("/api/stocks/{id}", h.getStock)
	r.Delete("/api/stocks/{id}", h.deleteStock)
	r.Post("/api/stocks/{id}/refresh", h.refreshStock)
	r.Post("/api/stocks/refresh-stale", h.refreshStaleStocks)

	// Portfolios and transactions
	r.Get("/api/portfolios", h.getPortfolios)
	r.Post("/api/portfolios", h.createPortfolio)
	r.Get("/api/portfolios/{id}", h.getPortfolioDetail)
	r.Delete("/api/portfolios/{id}", h.deletePortfolio)
	r.Get("/api/portfolios/{id}/positions", h.getPositions)
	r.Get("/api/portfolios/{id}/transactions", h.getTransactions)
	r.Post("/api/portfolios/{id}/transactions", h.addTransaction)
	r.Get("/api/transactions/{id}", h.getTransaction)
	r.Delete("/api/transactions/{id}", h.deleteTransaction)

	// Operation logs
	r.Get("/api/operation-logs", h.getOperationLogs)

	return r
}

type handler struct {
	core *epargne.Core
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requireUser extracts the caller identity; a missing header ends the
// request with 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := r.Header.Get(userHeader)
	if user == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userHeader+" header")
		return "", false
	}
	return user, true
}
