package services

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reconcileai/internal/models"
	"reconcileai/internal/repositories"
)

type DataIngestionService struct {
	db             *sql.DB
	bankRepo       repositories.BankRepository
	accountingRepo repositories.AccountingRepository
	sessionRepo    repositories.SessionRepository
}

func NewDataIngestionService(
	db *sql.DB,
	bankRepo repositories.BankRepository,
	accountingRepo repositories.AccountingRepository,
	sessionRepo repositories.SessionRepository,
) *DataIngestionService {
	return &DataIngestionService{
		db:             db,
		bankRepo:       bankRepo,
		accountingRepo: accountingRepo,
		sessionRepo:    sessionRepo,
	}
}

// BankTransactionInput is one raw bank transaction. Amounts are decimal
// strings ("-120.00"), never floats, converted to minor units on
// ingestion.
type BankTransactionInput struct {
	TransactionID string `json:"transaction_id"`
	StatementID   string `json:"statement_id"`
	Amount        string `json:"amount"`
	Date          string `json:"date"`
	Description   string `json:"description,omitempty"`
	Reference     string `json:"reference,omitempty"`
	Balance       string `json:"balance,omitempty"`
}

type AccountingEntryInput struct {
	EntryID     string `json:"entry_id"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	AccountCode string `json:"account_code"`
	AccountName string `json:"account_name,omitempty"`
	Reference   string `json:"reference,omitempty"`
	Kind        string `json:"entry_kind,omitempty"`
}

type IngestionResult struct {
	Success      bool           `json:"success"`
	RecordsCount int            `json:"records_count"`
	Errors       []string       `json:"errors,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

func (s *DataIngestionService) IngestBankTransactions(transactions []BankTransactionInput) (*IngestionResult, error) {
	result := &IngestionResult{
		Success: true,
		Details: make(map[string]any),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, input := range transactions {
		transaction, err := input.toModel()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid transaction %s: %v", input.TransactionID, err))
			continue
		}

		if err := s.bankRepo.InsertTransaction(tx, transaction); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to insert transaction %s: %v", input.TransactionID, err))
			continue
		}

		result.RecordsCount++
	}

	if err := s.finishIngestion(tx, result, len(transactions), "bank_transactions"); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *DataIngestionService) IngestAccountingEntries(entries []AccountingEntryInput) (*IngestionResult, error) {
	result := &IngestionResult{
		Success: true,
		Details: make(map[string]any),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, input := range entries {
		entry, err := input.toModel()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid entry %s: %v", input.EntryID, err))
			continue
		}

		if err := s.accountingRepo.InsertEntry(tx, entry); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to insert entry %s: %v", input.EntryID, err))
			continue
		}

		result.RecordsCount++
	}

	if err := s.finishIngestion(tx, result, len(entries), "accounting_entries"); err != nil {
		return nil, err
	}
	return result, nil
}

// IngestBankStatementCSV reads a header-mapped CSV bank statement and
// ingests its rows. Expected headers: transaction_id, date, amount,
// description, reference, balance; missing transaction ids are derived
// from the statement id and row number.
func (s *DataIngestionService) IngestBankStatementCSV(statementID string, r io.Reader) (*IngestionResult, error) {
	inputs, parseErrors, err := ParseBankStatementCSV(statementID, r)
	if err != nil {
		return nil, err
	}

	result, err := s.IngestBankTransactions(inputs)
	if err != nil {
		return nil, err
	}
	result.Errors = append(parseErrors, result.Errors...)
	result.Success = len(result.Errors) == 0
	return result, nil
}

// ParseBankStatementCSV converts CSV rows into ingestion inputs. Row-level
// problems are collected as errors; only an unreadable stream or a missing
// required header is fatal.
func ParseBankStatementCSV(statementID string, r io.Reader) ([]BankTransactionInput, []string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "amount"} {
		if _, ok := index[required]; !ok {
			return nil, nil, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var inputs []BankTransactionInput
	var parseErrors []string
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		input := BankTransactionInput{
			TransactionID: field(record, "transaction_id"),
			StatementID:   statementID,
			Amount:        field(record, "amount"),
			Date:          field(record, "date"),
			Description:   field(record, "description"),
			Reference:     field(record, "reference"),
			Balance:       field(record, "balance"),
		}
		if input.TransactionID == "" {
			input.TransactionID = fmt.Sprintf("%s-%d", statementID, line)
		}
		inputs = append(inputs, input)
	}

	return inputs, parseErrors, nil
}

func (s *DataIngestionService) finishIngestion(tx *sql.Tx, result *IngestionResult, total int, kind string) error {
	if result.RecordsCount > 0 {
		auditDetails, _ := json.Marshal(map[string]any{
			"kind":          kind,
			"total_records": total,
			"successful":    result.RecordsCount,
			"failed":        len(result.Errors),
		})
		audit := &models.SessionAudit{
			Action:  models.AuditActionIngested,
			Details: auditDetails,
		}
		if err := s.sessionRepo.CreateAuditEntry(tx, audit); err != nil {
			return fmt.Errorf("failed to create audit entry: %w", err)
		}
	}

	result.Success = len(result.Errors) == 0
	result.Details["total_records"] = total
	result.Details["successful"] = result.RecordsCount
	result.Details["failed"] = len(result.Errors)

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (in BankTransactionInput) toModel() (*models.Transaction, error) {
	if in.TransactionID == "" {
		return nil, fmt.Errorf("transaction_id is required")
	}
	if in.StatementID == "" {
		return nil, fmt.Errorf("statement_id is required")
	}
	amount, err := parseMinorUnits(in.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	if amount == 0 {
		return nil, fmt.Errorf("amount is required and must be non-zero")
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}

	t := &models.Transaction{
		TransactionID: in.TransactionID,
		StatementID:   in.StatementID,
		AmountMinor:   amount,
		Date:          date,
		Description:   in.Description,
		Reference:     in.Reference,
	}
	if in.Balance != "" {
		balance, err := parseMinorUnits(in.Balance)
		if err != nil {
			return nil, fmt.Errorf("balance: %w", err)
		}
		t.BalanceMinor = &balance
	}
	return t, nil
}

func (in AccountingEntryInput) toModel() (*models.AccountingEntry, error) {
	if in.EntryID == "" {
		return nil, fmt.Errorf("entry_id is required")
	}
	if in.AccountCode == "" {
		return nil, fmt.Errorf("account_code is required")
	}
	amount, err := parseMinorUnits(in.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	if amount == 0 {
		return nil, fmt.Errorf("amount is required and must be non-zero")
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	kind := in.Kind
	if kind == "" {
		kind = models.EntryKindJournal
	}
	switch kind {
	case models.EntryKindInvoice, models.EntryKindPayment, models.EntryKindJournal:
	default:
		return nil, fmt.Errorf("unknown entry_kind %q", in.Kind)
	}

	return &models.AccountingEntry{
		EntryID:     in.EntryID,
		AmountMinor: amount,
		Date:        date,
		Description: in.Description,
		AccountCode: in.AccountCode,
		AccountName: in.AccountName,
		Reference:   in.Reference,
		Kind:        kind,
	}, nil
}

// parseMinorUnits converts a decimal amount string into signed currency
// minor units, rejecting precision beyond two decimal places so no value
// is silently rounded.
func parseMinorUnits(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("value is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal amount %q", s)
	}
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	return minor.IntPart(), nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	date, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return date, nil
}
