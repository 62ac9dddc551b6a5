package repositories

import (
	"database/sql"
	"errors"
	"strings"

	"reconcileai/internal/models"
)

type SessionRepository interface {
	CreateSession(tx *sql.Tx, s *models.ReconciliationSession) error
	GetSessionBySessionID(sessionID string) (*models.ReconciliationSession, error)
	UpdateSessionState(tx *sql.Tx, sessionID, state string) error
	FinalizeSession(tx *sql.Tx, result *models.SessionResult) error
	InsertDecision(tx *sql.Tx, sessionID string, d *models.MatchDecision) error
	GetDecisionsBySessionID(sessionID string) ([]models.MatchDecision, error)
	CreateAuditEntry(tx *sql.Tx, audit *models.SessionAudit) error
}

type sessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) CreateSession(tx *sql.Tx, s *models.ReconciliationSession) error {
	query := `
		INSERT INTO reconciliation_sessions (
			session_id, statement_id, state
		) VALUES (?, ?, ?)
	`
	result, err := tx.Exec(query, s.SessionID, s.StatementID, s.State)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func (r *sessionRepository) GetSessionBySessionID(sessionID string) (*models.ReconciliationSession, error) {
	s := &models.ReconciliationSession{}
	query := `
		SELECT id, session_id, statement_id, state, matched_count,
		       unmatched_count, mean_confidence, error_detail,
		       created_at, completed_at
		FROM reconciliation_sessions
		WHERE session_id = ?
	`
	var completedAt sql.NullTime
	err := r.db.QueryRow(query, sessionID).Scan(
		&s.ID,
		&s.SessionID,
		&s.StatementID,
		&s.State,
		&s.Matched,
		&s.Unmatched,
		&s.MeanConfidence,
		&s.ErrorDetail,
		&s.CreatedAt,
		&completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.Time
	}
	return s, nil
}

func (r *sessionRepository) UpdateSessionState(tx *sql.Tx, sessionID, state string) error {
	result, err := tx.Exec(`UPDATE reconciliation_sessions SET state = ? WHERE session_id = ?`, state, sessionID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FinalizeSession writes the terminal state and aggregates in one update.
func (r *sessionRepository) FinalizeSession(tx *sql.Tx, result *models.SessionResult) error {
	query := `
		UPDATE reconciliation_sessions
		SET state = ?,
		    matched_count = ?,
		    unmatched_count = ?,
		    mean_confidence = ?,
		    error_detail = ?,
		    completed_at = ?
		WHERE session_id = ?
	`
	res, err := tx.Exec(query,
		result.State,
		result.Matched,
		result.Unmatched,
		result.MeanConfidence,
		result.ErrorDetail,
		result.CompletedAt,
		result.SessionID,
	)
	if err != nil {
		return err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepository) InsertDecision(tx *sql.Tx, sessionID string, d *models.MatchDecision) error {
	query := `
		INSERT INTO match_decisions (
			session_id, transaction_id, confidence, explanation, action
		) VALUES (?, ?, ?, ?, ?)
	`
	result, err := tx.Exec(query,
		sessionID,
		d.TransactionID,
		d.Confidence,
		d.Explanation,
		d.Action,
	)
	if err != nil {
		return err
	}

	decisionID, err := result.LastInsertId()
	if err != nil {
		return err
	}

	for _, entryID := range d.EntryIDs {
		_, err := tx.Exec(
			`INSERT INTO match_decision_entries (decision_id, entry_id) VALUES (?, ?)`,
			decisionID, entryID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *sessionRepository) GetDecisionsBySessionID(sessionID string) ([]models.MatchDecision, error) {
	query := `
		SELECT md.transaction_id, md.confidence, md.explanation, md.action,
		       COALESCE(GROUP_CONCAT(mde.entry_id ORDER BY mde.entry_id SEPARATOR ','), '')
		FROM match_decisions md
		LEFT JOIN match_decision_entries mde ON md.id = mde.decision_id
		WHERE md.session_id = ?
		GROUP BY md.id, md.transaction_id, md.confidence, md.explanation, md.action
		ORDER BY md.id
	`
	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []models.MatchDecision
	for rows.Next() {
		var d models.MatchDecision
		var entryIDs string
		err := rows.Scan(&d.TransactionID, &d.Confidence, &d.Explanation, &d.Action, &entryIDs)
		if err != nil {
			return nil, err
		}
		if entryIDs != "" {
			d.EntryIDs = strings.Split(entryIDs, ",")
		}
		decisions = append(decisions, d)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return decisions, nil
}

func (r *sessionRepository) CreateAuditEntry(tx *sql.Tx, audit *models.SessionAudit) error {
	query := `
		INSERT INTO session_audit (
			session_id, action, details
		) VALUES (?, ?, ?)
	`
	result, err := tx.Exec(query,
		audit.SessionID,
		audit.Action,
		audit.Details,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	audit.ID = id
	return nil
}
