package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"reconcileai/internal/services"
)

func SetupRouter(dataIngestion *services.DataIngestionService, reconciliation *services.ReconciliationService) *mux.Router {
	router := mux.NewRouter()

	dataHandler := NewDataHandler(dataIngestion)
	reconciliationHandler := NewReconciliationHandler(reconciliation)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(loggingMiddleware)

	api.HandleFunc("/transactions", dataHandler.IngestBankTransactions).Methods(http.MethodPost)
	api.HandleFunc("/entries", dataHandler.IngestAccountingEntries).Methods(http.MethodPost)
	api.HandleFunc("/statements/{statement_id}/csv", dataHandler.IngestBankStatementCSV).Methods(http.MethodPost)

	api.HandleFunc("/reconciliations", reconciliationHandler.StartReconciliation).Methods(http.MethodPost)
	api.HandleFunc("/reconciliations/{session_id}", reconciliationHandler.GetSessionStatus).Methods(http.MethodGet)
	api.HandleFunc("/reconciliations/unmatched/records", reconciliationHandler.GetUnmatchedRecords).Methods(http.MethodGet)

	router.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)

	return router
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func healthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
