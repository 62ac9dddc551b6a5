package models

import (
	"encoding/json"
	"time"
)

// Transaction represents a bank statement transaction in canonical form:
// dates at calendar-day granularity (UTC) and amounts as signed currency
// minor units. Match outcome fields live on MatchDecision, owned by the
// matching engine.
type Transaction struct {
	ID            int64     `db:"id" json:"-"`
	TransactionID string    `db:"transaction_id" json:"transaction_id"`
	StatementID   string    `db:"statement_id" json:"statement_id"`
	Date          time.Time `db:"transaction_date" json:"date"`
	AmountMinor   int64     `db:"amount_minor" json:"amount_minor"`
	Description   string    `db:"description" json:"description"`
	Reference     string    `db:"reference" json:"reference,omitempty"`
	BalanceMinor  *int64    `db:"balance_minor" json:"balance_minor,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"-"`
}

// Direction returns DirectionDebit for negative amounts and DirectionCredit
// otherwise.
func (t *Transaction) Direction() string {
	if t.AmountMinor < 0 {
		return DirectionDebit
	}
	return DirectionCredit
}

// AccountingEntry represents a ledger entry from the accounting system.
// Entries are immutable once ingested; the engine only tracks claims.
type AccountingEntry struct {
	ID          int64     `db:"id" json:"-"`
	EntryID     string    `db:"entry_id" json:"entry_id"`
	Date        time.Time `db:"entry_date" json:"date"`
	AmountMinor int64     `db:"amount_minor" json:"amount_minor"`
	Description string    `db:"description" json:"description"`
	AccountCode string    `db:"account_code" json:"account_code"`
	AccountName string    `db:"account_name" json:"account_name,omitempty"`
	Reference   string    `db:"reference" json:"reference,omitempty"`
	Kind        string    `db:"entry_kind" json:"entry_kind"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
}

// MatchDecision is the committed outcome for one transaction within a
// session: a match against one or more entries, or an unmatched outcome
// with a suggested action.
type MatchDecision struct {
	TransactionID string   `json:"transaction_id"`
	EntryIDs      []string `json:"entry_ids,omitempty"`
	Confidence    float64  `json:"confidence"`
	Explanation   string   `json:"explanation"`
	Action        string   `json:"action"`
}

// Matched reports whether the decision resolved the transaction against
// ledger entries, either one-to-one or as a split.
func (d *MatchDecision) Matched() bool {
	return d.Action == ActionMatch || d.Action == ActionSplit
}

// RecordError describes a single input record the normalizer rejected.
// Record errors are collected and reported, never fatal to the session.
type RecordError struct {
	Kind     string `json:"kind"` // transaction or entry
	RecordID string `json:"record_id"`
	Reason   string `json:"reason"`
}

// SessionResult is the terminal report of one reconciliation session.
type SessionResult struct {
	SessionID         string          `json:"session_id"`
	StatementID       string          `json:"statement_id"`
	State             string          `json:"state"`
	Decisions         []MatchDecision `json:"decisions"`
	RecordErrors      []RecordError   `json:"record_errors,omitempty"`
	TotalTransactions int             `json:"total_transactions"`
	Matched           int             `json:"matched"`
	Unmatched         int             `json:"unmatched"`
	MeanConfidence    float64         `json:"mean_confidence"`
	CreatedAt         time.Time       `json:"created_at"`
	CompletedAt       time.Time       `json:"completed_at"`
	ErrorDetail       string          `json:"error_detail,omitempty"`
}

// ReconciliationSession is the persisted session row.
type ReconciliationSession struct {
	ID             int64      `db:"id" json:"-"`
	SessionID      string     `db:"session_id" json:"session_id"`
	StatementID    string     `db:"statement_id" json:"statement_id"`
	State          string     `db:"state" json:"state"`
	Matched        int        `db:"matched_count" json:"matched"`
	Unmatched      int        `db:"unmatched_count" json:"unmatched"`
	MeanConfidence float64    `db:"mean_confidence" json:"mean_confidence"`
	ErrorDetail    string     `db:"error_detail" json:"error_detail,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// SessionAudit is an audit trail entry recorded alongside session mutations.
type SessionAudit struct {
	ID        int64           `db:"id" json:"-"`
	SessionID string          `db:"session_id" json:"session_id"`
	Action    string          `db:"action" json:"action"`
	Details   json.RawMessage `db:"details" json:"details"`
	CreatedAt time.Time       `db:"created_at" json:"-"`
}

// Session states
const (
	SessionPending    = "pending"
	SessionProcessing = "processing"
	SessionCompleted  = "completed"
	SessionError      = "error"
)

// TerminalState reports whether s is completed or error.
func TerminalState(s string) bool {
	return s == SessionCompleted || s == SessionError
}

// Suggested actions on a MatchDecision
const (
	ActionMatch = "match"
	ActionSplit = "split"
	ActionDefer = "defer"
	ActionFlag  = "flag"
)

// Transaction directions
const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"
)

// Accounting entry kinds
const (
	EntryKindInvoice = "invoice"
	EntryKindPayment = "payment"
	EntryKindJournal = "journal"
)

// Audit actions
const (
	AuditActionIngested  = "ingested"
	AuditActionStarted   = "started"
	AuditActionCompleted = "completed"
	AuditActionFailed    = "failed"
)
