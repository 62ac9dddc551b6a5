package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"reconcileai/internal/matching"
	"reconcileai/internal/models"
	"reconcileai/internal/repositories"
)

// ErrSessionInProgress is returned when a reconciliation is requested for
// a statement that already has an active processing session.
var ErrSessionInProgress = errors.New("reconciliation already in progress for this statement")

type ReconciliationService struct {
	db             *sql.DB
	engine         *matching.Engine
	bankRepo       repositories.BankRepository
	accountingRepo repositories.AccountingRepository
	sessionRepo    repositories.SessionRepository

	mu               sync.Mutex
	activeStatements map[string]bool
}

func NewReconciliationService(
	db *sql.DB,
	engine *matching.Engine,
	bankRepo repositories.BankRepository,
	accountingRepo repositories.AccountingRepository,
	sessionRepo repositories.SessionRepository,
) *ReconciliationService {
	return &ReconciliationService{
		db:               db,
		engine:           engine,
		bankRepo:         bankRepo,
		accountingRepo:   accountingRepo,
		sessionRepo:      sessionRepo,
		activeStatements: make(map[string]bool),
	}
}

// StartReconciliation runs one full session for a statement: loads the
// unreconciled transactions and unclaimed entries for the period, runs the
// engine, and persists the decisions and terminal session state. At most
// one session per statement may be processing at a time; concurrent
// requests for the same statement fail with ErrSessionInProgress.
// Cancelling ctx cancels the session cooperatively; decisions committed
// before the cancellation point are retained and the session lands in the
// error state with cause "cancelled".
func (s *ReconciliationService) StartReconciliation(ctx context.Context, statementID string, fromDate, toDate time.Time) (*models.SessionResult, error) {
	if statementID == "" {
		return nil, fmt.Errorf("statement id is required")
	}

	s.mu.Lock()
	if s.activeStatements[statementID] {
		s.mu.Unlock()
		return nil, ErrSessionInProgress
	}
	s.activeStatements[statementID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.activeStatements, statementID)
		s.mu.Unlock()
	}()

	sessionID := uuid.NewString()
	if err := s.createSession(sessionID, statementID); err != nil {
		return nil, err
	}

	transactions, err := s.bankRepo.GetUnreconciledTransactions(statementID)
	if err != nil {
		return nil, s.failSession(sessionID, fmt.Errorf("failed to load bank transactions: %w", err))
	}

	entries, err := s.accountingRepo.GetUnclaimedEntries(fromDate, toDate)
	if err != nil {
		return nil, s.failSession(sessionID, fmt.Errorf("failed to load accounting entries: %w", err))
	}

	slog.Info("starting reconciliation session",
		"session_id", sessionID,
		"statement_id", statementID,
		"transactions", len(transactions),
		"entries", len(entries))

	// Pollers see the session as processing while the engine runs.
	if err := s.markProcessing(sessionID); err != nil {
		return nil, s.failSession(sessionID, err)
	}

	result := s.engine.Reconcile(ctx, sessionID, statementID, transactions, entries)

	if err := s.persistResult(result); err != nil {
		return nil, err
	}

	slog.Info("reconciliation session finished",
		"session_id", sessionID,
		"state", result.State,
		"matched", result.Matched,
		"unmatched", result.Unmatched,
		"mean_confidence", result.MeanConfidence)

	return result, nil
}

// GetSessionStatus returns the persisted session with its decisions, so
// callers can poll a session started by someone else.
func (s *ReconciliationService) GetSessionStatus(sessionID string) (*models.SessionResult, error) {
	session, err := s.sessionRepo.GetSessionBySessionID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	decisions, err := s.sessionRepo.GetDecisionsBySessionID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get decisions: %w", err)
	}

	result := &models.SessionResult{
		SessionID:         session.SessionID,
		StatementID:       session.StatementID,
		State:             session.State,
		Decisions:         decisions,
		TotalTransactions: session.Matched + session.Unmatched,
		Matched:           session.Matched,
		Unmatched:         session.Unmatched,
		MeanConfidence:    session.MeanConfidence,
		CreatedAt:         session.CreatedAt,
		ErrorDetail:       session.ErrorDetail,
	}
	if session.CompletedAt != nil {
		result.CompletedAt = *session.CompletedAt
	}
	return result, nil
}

// GetUnmatchedRecords reports the transactions and entries nothing has
// resolved or claimed, for manual review.
func (s *ReconciliationService) GetUnmatchedRecords(statementID string, fromDate, toDate time.Time) (map[string]any, error) {
	transactions, err := s.bankRepo.GetUnreconciledTransactions(statementID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unreconciled transactions: %w", err)
	}
	entries, err := s.accountingRepo.GetUnclaimedEntries(fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load unclaimed entries: %w", err)
	}

	return map[string]any{
		"unmatched_bank_transactions":  transactions,
		"unclaimed_accounting_entries": entries,
	}, nil
}

func (s *ReconciliationService) createSession(sessionID, statementID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	session := &models.ReconciliationSession{
		SessionID:   sessionID,
		StatementID: statementID,
		State:       models.SessionPending,
	}
	if err := s.sessionRepo.CreateSession(tx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	auditDetails, _ := json.Marshal(map[string]any{"statement_id": statementID})
	audit := &models.SessionAudit{
		SessionID: sessionID,
		Action:    models.AuditActionStarted,
		Details:   auditDetails,
	}
	if err := s.sessionRepo.CreateAuditEntry(tx, audit); err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return tx.Commit()
}

func (s *ReconciliationService) markProcessing(sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.sessionRepo.UpdateSessionState(tx, sessionID, models.SessionProcessing); err != nil {
		return fmt.Errorf("failed to mark session processing: %w", err)
	}
	return tx.Commit()
}

// persistResult writes the decisions and terminal state in one database
// transaction, so a session is never half-recorded.
func (s *ReconciliationService) persistResult(result *models.SessionResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range result.Decisions {
		if err := s.sessionRepo.InsertDecision(tx, result.SessionID, &result.Decisions[i]); err != nil {
			return fmt.Errorf("failed to insert decision for %s: %w", result.Decisions[i].TransactionID, err)
		}
	}

	if err := s.sessionRepo.FinalizeSession(tx, result); err != nil {
		return fmt.Errorf("failed to finalize session: %w", err)
	}

	auditAction := models.AuditActionCompleted
	if result.State == models.SessionError {
		auditAction = models.AuditActionFailed
	}
	auditDetails, _ := json.Marshal(map[string]any{
		"state":           result.State,
		"matched":         result.Matched,
		"unmatched":       result.Unmatched,
		"mean_confidence": result.MeanConfidence,
		"record_errors":   len(result.RecordErrors),
	})
	audit := &models.SessionAudit{
		SessionID: result.SessionID,
		Action:    auditAction,
		Details:   auditDetails,
	}
	if err := s.sessionRepo.CreateAuditEntry(tx, audit); err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return tx.Commit()
}

// failSession marks a session errored before the engine ever ran, e.g.
// when its inputs could not be loaded.
func (s *ReconciliationService) failSession(sessionID string, cause error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return cause
	}
	defer tx.Rollback()

	result := &models.SessionResult{
		SessionID:   sessionID,
		State:       models.SessionError,
		ErrorDetail: cause.Error(),
		CompletedAt: time.Now(),
	}
	if err := s.sessionRepo.FinalizeSession(tx, result); err != nil {
		slog.Error("failed to record session failure", "session_id", sessionID, "error", err)
		return cause
	}
	if err := tx.Commit(); err != nil {
		return cause
	}
	return cause
}
