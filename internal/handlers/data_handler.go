package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"reconcileai/internal/services"
)

type DataHandler struct {
	dataIngestionService *services.DataIngestionService
}

func NewDataHandler(dataIngestionService *services.DataIngestionService) *DataHandler {
	return &DataHandler{
		dataIngestionService: dataIngestionService,
	}
}

func (h *DataHandler) IngestBankTransactions(w http.ResponseWriter, r *http.Request) {
	var transactions []services.BankTransactionInput

	if err := json.NewDecoder(r.Body).Decode(&transactions); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if len(transactions) == 0 {
		respondWithError(w, http.StatusBadRequest, "No transactions provided")
		return
	}

	result, err := h.dataIngestionService.IngestBankTransactions(transactions)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithIngestionResult(w, result)
}

func (h *DataHandler) IngestAccountingEntries(w http.ResponseWriter, r *http.Request) {
	var entries []services.AccountingEntryInput

	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if len(entries) == 0 {
		respondWithError(w, http.StatusBadRequest, "No entries provided")
		return
	}

	result, err := h.dataIngestionService.IngestAccountingEntries(entries)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithIngestionResult(w, result)
}

// IngestBankStatementCSV accepts a raw CSV statement body and ingests its
// rows under the statement id in the URL.
func (h *DataHandler) IngestBankStatementCSV(w http.ResponseWriter, r *http.Request) {
	statementID := mux.Vars(r)["statement_id"]
	if statementID == "" {
		respondWithError(w, http.StatusBadRequest, "Statement ID is required")
		return
	}

	result, err := h.dataIngestionService.IngestBankStatementCSV(statementID, r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithIngestionResult(w, result)
}

func respondWithIngestionResult(w http.ResponseWriter, result *services.IngestionResult) {
	status := http.StatusOK
	if !result.Success {
		status = http.StatusPartialContent
	}
	respondWithJSON(w, status, result)
}
