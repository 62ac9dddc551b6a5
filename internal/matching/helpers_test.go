package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"reconcileai/internal/models"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return d
}

func testTxn(t *testing.T, id string, amountMinor int64, date, description, reference string) *models.Transaction {
	t.Helper()
	return &models.Transaction{
		TransactionID: id,
		StatementID:   "stmt-1",
		Date:          day(t, date),
		AmountMinor:   amountMinor,
		Description:   description,
		Reference:     reference,
	}
}

func testEntry(t *testing.T, id string, amountMinor int64, date, description, reference, kind string) *models.AccountingEntry {
	t.Helper()
	return &models.AccountingEntry{
		EntryID:     id,
		Date:        day(t, date),
		AmountMinor: amountMinor,
		Description: description,
		AccountCode: "4000",
		Reference:   reference,
		Kind:        kind,
	}
}

func testEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}
