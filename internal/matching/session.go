// Package matching implements the reconciliation engine: a staged,
// deterministic pipeline that normalizes bank transactions and ledger
// entries, generates candidate pairings, scores them, and greedily commits
// match decisions under a per-session state machine. The engine is pure
// in-memory computation; persistence and transport belong to the caller.
package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reconcileai/internal/models"
)

// cancelledCause is the recorded error detail when a session is cancelled
// cooperatively between transactions.
const cancelledCause = "cancelled"

// Engine runs reconciliation sessions. An Engine is safe for concurrent
// use: each Reconcile call owns all of its mutable state, and concurrent
// sessions share nothing but the immutable config.
type Engine struct {
	cfg Config
	now func() time.Time
}

// NewEngine validates cfg and returns an engine. Configuration errors are
// surfaced here, synchronously, before any session can start.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching config: %w", err)
	}
	return &Engine{cfg: cfg, now: time.Now}, nil
}

// Reconcile runs one full session over the given records and returns its
// terminal result. It never returns an error: ingestion problems are
// collected per record, and internal faults or cancellation terminate the
// session in the error state with whatever was committed beforehand.
// sessionID identifies the session; pass "" to mint a new one. Given the
// same ids, records and config the result is identical byte for byte.
func (e *Engine) Reconcile(ctx context.Context, sessionID, statementID string, txns []*models.Transaction, entries []*models.AccountingEntry) *models.SessionResult {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	result := &models.SessionResult{
		SessionID:   sessionID,
		StatementID: statementID,
		State:       models.SessionPending,
		CreatedAt:   e.now(),
	}

	result.State = models.SessionProcessing
	e.run(ctx, result, txns, entries)

	result.CompletedAt = e.now()
	e.aggregate(result)
	return result
}

// run executes the pipeline stages, trapping panics from malformed
// upstream data into a terminal error state rather than crashing the host.
func (e *Engine) run(ctx context.Context, result *models.SessionResult, txns []*models.Transaction, entries []*models.AccountingEntry) {
	defer func() {
		if r := recover(); r != nil {
			result.State = models.SessionError
			result.ErrorDetail = fmt.Sprintf("session fault: %v", r)
		}
	}()

	normTxns, txnErrs := normalizeTransactions(txns)
	normEntries, entryErrs := normalizeEntries(entries)
	result.RecordErrors = append(txnErrs, entryErrs...)
	result.TotalTransactions = len(normTxns)

	// Candidate generation and scoring, checked for cancellation between
	// transactions. Scoring is pure, so outputs are fully collected before
	// the single-threaded commit phase below.
	var cands []*candidate
	for _, t := range normTxns {
		if ctx.Err() != nil {
			e.cancel(result)
			return
		}
		for _, c := range generateCandidates(t, normEntries, e.cfg) {
			scoreCandidate(c, e.cfg)
			cands = append(cands, c)
		}
	}

	if ctx.Err() != nil {
		e.cancel(result)
		return
	}

	decisions := allocate(normTxns, cands, e.cfg)

	// Emit decisions in input order so identical inputs yield identical
	// output bytes.
	for _, t := range normTxns {
		if ctx.Err() != nil {
			e.cancel(result)
			return
		}
		result.Decisions = append(result.Decisions, decisions[t.rec.TransactionID])
	}

	result.State = models.SessionCompleted
}

// cancel marks the session terminally errored with the cancellation cause.
// Decisions committed before the check are retained.
func (e *Engine) cancel(result *models.SessionResult) {
	result.State = models.SessionError
	result.ErrorDetail = cancelledCause
}

// aggregate computes the terminal counters: matched + unmatched always
// equals the total transactions considered, and mean confidence covers
// matched decisions only.
func (e *Engine) aggregate(result *models.SessionResult) {
	matched := 0
	sum := 0.0
	for i := range result.Decisions {
		if result.Decisions[i].Matched() {
			matched++
			sum += result.Decisions[i].Confidence
		}
	}
	result.Matched = matched
	result.Unmatched = result.TotalTransactions - matched
	if matched > 0 {
		result.MeanConfidence = sum / float64(matched)
	}
}
