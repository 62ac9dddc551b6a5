package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"reconcileai/internal/repositories"
	"reconcileai/internal/services"
)

type ReconciliationHandler struct {
	reconciliationService *services.ReconciliationService
}

func NewReconciliationHandler(reconciliationService *services.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
	}
}

func (h *ReconciliationHandler) StartReconciliation(w http.ResponseWriter, r *http.Request) {
	var request struct {
		StatementID string `json:"statement_id"`
		FromDate    string `json:"from_date"`
		ToDate      string `json:"to_date"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if request.StatementID == "" {
		respondWithError(w, http.StatusBadRequest, "statement_id is required")
		return
	}
	if request.FromDate == "" || request.ToDate == "" {
		respondWithError(w, http.StatusBadRequest, "Both from_date and to_date are required")
		return
	}

	fromDate, err := time.Parse(time.DateOnly, request.FromDate)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid from_date format. Use YYYY-MM-DD")
		return
	}
	toDate, err := time.Parse(time.DateOnly, request.ToDate)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid to_date format. Use YYYY-MM-DD")
		return
	}

	// Client disconnects cancel the session cooperatively via the request
	// context; committed decisions up to that point are retained.
	result, err := h.reconciliationService.StartReconciliation(r.Context(), request.StatementID, fromDate, toDate)
	if errors.Is(err, services.ErrSessionInProgress) {
		respondWithError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ReconciliationHandler) GetSessionStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["session_id"]

	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	result, err := h.reconciliationService.GetSessionStatus(sessionID)
	if errors.Is(err, repositories.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ReconciliationHandler) GetUnmatchedRecords(w http.ResponseWriter, r *http.Request) {
	statementID := r.URL.Query().Get("statement_id")
	fromDateParam := r.URL.Query().Get("from_date")
	toDateParam := r.URL.Query().Get("to_date")

	if statementID == "" || fromDateParam == "" || toDateParam == "" {
		respondWithError(w, http.StatusBadRequest, "statement_id, from_date and to_date query parameters are required")
		return
	}

	fromDate, err := time.Parse(time.DateOnly, fromDateParam)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid from_date format. Use YYYY-MM-DD")
		return
	}
	toDate, err := time.Parse(time.DateOnly, toDateParam)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid to_date format. Use YYYY-MM-DD")
		return
	}

	result, err := h.reconciliationService.GetUnmatchedRecords(statementID, fromDate, toDate)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Error marshaling JSON response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
