package repositories

import (
	"database/sql"
	"errors"
	"time"

	"reconcileai/internal/models"
)

type AccountingRepository interface {
	InsertEntry(tx *sql.Tx, e *models.AccountingEntry) error
	GetEntryByEntryID(entryID string) (*models.AccountingEntry, error)
	GetUnclaimedEntries(fromDate, toDate time.Time) ([]*models.AccountingEntry, error)
}

type accountingRepository struct {
	db *sql.DB
}

func NewAccountingRepository(db *sql.DB) AccountingRepository {
	return &accountingRepository{db: db}
}

func (r *accountingRepository) InsertEntry(tx *sql.Tx, e *models.AccountingEntry) error {
	query := `
		INSERT INTO accounting_entries (
			entry_id, amount_minor, entry_date, description,
			account_code, account_name, reference, entry_kind
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.Exec(query,
		e.EntryID,
		e.AmountMinor,
		e.Date.Format(time.DateOnly),
		e.Description,
		e.AccountCode,
		e.AccountName,
		e.Reference,
		e.Kind,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (r *accountingRepository) GetEntryByEntryID(entryID string) (*models.AccountingEntry, error) {
	query := `
		SELECT id, entry_id, amount_minor, entry_date, description,
		       account_code, account_name, reference, entry_kind, created_at
		FROM accounting_entries
		WHERE entry_id = ?
	`
	e, err := scanEntry(r.db.QueryRow(query, entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetUnclaimedEntries returns ledger entries in the period that no
// committed match decision has claimed.
func (r *accountingRepository) GetUnclaimedEntries(fromDate, toDate time.Time) ([]*models.AccountingEntry, error) {
	query := `
		SELECT ae.id, ae.entry_id, ae.amount_minor, ae.entry_date, ae.description,
		       ae.account_code, ae.account_name, ae.reference, ae.entry_kind, ae.created_at
		FROM accounting_entries ae
		LEFT JOIN match_decision_entries mde ON ae.entry_id = mde.entry_id
		WHERE mde.id IS NULL
		AND ae.entry_date BETWEEN ? AND ?
		ORDER BY ae.entry_id
	`
	rows, err := r.db.Query(query, fromDate.Format(time.DateOnly), toDate.Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AccountingEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanEntry(row rowScanner) (*models.AccountingEntry, error) {
	e := &models.AccountingEntry{}
	err := row.Scan(
		&e.ID,
		&e.EntryID,
		&e.AmountMinor,
		&e.Date,
		&e.Description,
		&e.AccountCode,
		&e.AccountName,
		&e.Reference,
		&e.Kind,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}
