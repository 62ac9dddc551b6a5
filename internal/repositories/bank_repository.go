package repositories

import (
	"database/sql"
	"errors"
	"time"

	"reconcileai/internal/models"
)

var ErrNotFound = errors.New("record not found")

type BankRepository interface {
	InsertTransaction(tx *sql.Tx, t *models.Transaction) error
	GetTransactionByTransactionID(transactionID string) (*models.Transaction, error)
	GetUnreconciledTransactions(statementID string) ([]*models.Transaction, error)
}

type bankRepository struct {
	db *sql.DB
}

func NewBankRepository(db *sql.DB) BankRepository {
	return &bankRepository{db: db}
}

const transactionColumns = `
	id, transaction_id, statement_id, amount_minor,
	transaction_date, description, reference, balance_minor, created_at
`

func (r *bankRepository) InsertTransaction(tx *sql.Tx, t *models.Transaction) error {
	query := `
		INSERT INTO bank_transactions (
			transaction_id, statement_id, amount_minor,
			transaction_date, description, reference, balance_minor
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	var balance sql.NullInt64
	if t.BalanceMinor != nil {
		balance = sql.NullInt64{Int64: *t.BalanceMinor, Valid: true}
	}
	result, err := tx.Exec(query,
		t.TransactionID,
		t.StatementID,
		t.AmountMinor,
		t.Date.Format(time.DateOnly),
		t.Description,
		t.Reference,
		balance,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

func (r *bankRepository) GetTransactionByTransactionID(transactionID string) (*models.Transaction, error) {
	query := `
		SELECT` + transactionColumns + `
		FROM bank_transactions
		WHERE transaction_id = ?
	`
	t, err := scanTransaction(r.db.QueryRow(query, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetUnreconciledTransactions returns the statement's transactions that no
// committed match decision has resolved yet.
func (r *bankRepository) GetUnreconciledTransactions(statementID string) ([]*models.Transaction, error) {
	query := `
		SELECT bt.id, bt.transaction_id, bt.statement_id, bt.amount_minor,
		       bt.transaction_date, bt.description, bt.reference, bt.balance_minor, bt.created_at
		FROM bank_transactions bt
		LEFT JOIN match_decisions md
		       ON bt.transaction_id = md.transaction_id AND md.action IN (?, ?)
		WHERE md.id IS NULL
		AND bt.statement_id = ?
		ORDER BY bt.transaction_id
	`
	rows, err := r.db.Query(query, models.ActionMatch, models.ActionSplit, statementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	var balance sql.NullInt64
	err := row.Scan(
		&t.ID,
		&t.TransactionID,
		&t.StatementID,
		&t.AmountMinor,
		&t.Date,
		&t.Description,
		&t.Reference,
		&balance,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if balance.Valid {
		t.BalanceMinor = &balance.Int64
	}
	return t, nil
}
