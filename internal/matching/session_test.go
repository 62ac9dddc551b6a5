package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconcileai/internal/models"
)

func TestReconcilePerfectMatch(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	txns := []*models.Transaction{
		testTxn(t, "T1", -10000, "2025-03-04", "ACME LTD RENT", "INV-1001"),
	}
	entries := []*models.AccountingEntry{
		testEntry(t, "E1", -10000, "2025-03-04", "Acme Ltd rent", "INV-1001", models.EntryKindPayment),
	}

	result := e.Reconcile(context.Background(), "sess-1", "stmt-1", txns, entries)

	assert.Equal(t, models.SessionCompleted, result.State)
	require.Len(t, result.Decisions, 1)
	d := result.Decisions[0]
	assert.Equal(t, models.ActionMatch, d.Action)
	assert.Equal(t, []string{"E1"}, d.EntryIDs)
	assert.GreaterOrEqual(t, d.Confidence, 0.9)
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, 0, result.Unmatched)
	assert.InDelta(t, d.Confidence, result.MeanConfidence, 1e-9)
}

func TestReconcileSplitMatch(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	txns := []*models.Transaction{
		testTxn(t, "T1", 10000, "2025-03-04", "settlement batch", "SET-22"),
	}
	entries := []*models.AccountingEntry{
		testEntry(t, "E1", 6000, "2025-03-04", "settlement batch", "SET-22", models.EntryKindInvoice),
		testEntry(t, "E2", 4000, "2025-03-05", "settlement batch", "SET-22", models.EntryKindInvoice),
	}

	result := e.Reconcile(context.Background(), "sess-1", "stmt-1", txns, entries)

	assert.Equal(t, models.SessionCompleted, result.State)
	require.Len(t, result.Decisions, 1)
	d := result.Decisions[0]
	assert.Equal(t, models.ActionSplit, d.Action)
	assert.ElementsMatch(t, []string{"E1", "E2"}, d.EntryIDs)
	assert.True(t, d.Matched())
	assert.Equal(t, 1, result.Matched)
}

func TestReconcileNoPlausibleMatch(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	txns := []*models.Transaction{
		testTxn(t, "T1", -4599, "2025-03-04", "coffee shop", ""),
	}
	entries := []*models.AccountingEntry{
		testEntry(t, "E1", -90000, "2025-03-04", "office rent", "RENT", models.EntryKindPayment),
		testEntry(t, "E2", -4599, "2025-03-20", "coffee shop", "", models.EntryKindPayment), // far outside window
	}

	result := e.Reconcile(context.Background(), "sess-1", "stmt-1", txns, entries)

	assert.Equal(t, models.SessionCompleted, result.State)
	require.Len(t, result.Decisions, 1)
	d := result.Decisions[0]
	assert.Equal(t, models.ActionFlag, d.Action)
	assert.Equal(t, 0.0, d.Confidence)
	assert.Equal(t, "no plausible match found", d.Explanation)
	assert.Equal(t, 0, result.Matched)
	assert.Equal(t, 1, result.Unmatched)
}

func TestReconcileCountsAlwaysBalance(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	txns := []*models.Transaction{
		testTxn(t, "T1", -8000, "2025-03-04", "vendor", "PAY-7"),
		testTxn(t, "T2", -8000, "2025-03-05", "vendor", "PAY-7"),
		testTxn(t, "T3", 12345, "2025-03-06", "stray", ""),
		{TransactionID: "T4"}, // rejected by the normalizer
	}
	entries := []*models.AccountingEntry{
		testEntry(t, "E1", -8000, "2025-03-04", "vendor", "PAY-7", models.EntryKindPayment),
	}

	result := e.Reconcile(context.Background(), "sess-1", "stmt-1", txns, entries)

	assert.Equal(t, models.SessionCompleted, result.State)
	assert.Equal(t, 3, result.TotalTransactions)
	assert.Equal(t, result.TotalTransactions, result.Matched+result.Unmatched)
	require.Len(t, result.RecordErrors, 1)
	assert.Equal(t, "T4", result.RecordErrors[0].RecordID)
}

func TestReconcileDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	build := func() ([]*models.Transaction, []*models.AccountingEntry) {
		return []*models.Transaction{
				testTxn(t, "T1", -8000, "2025-03-04", "vendor alpha", "PAY-7"),
				testTxn(t, "T2", -8000, "2025-03-04", "vendor alpha", "PAY-7"),
				testTxn(t, "T3", 10000, "2025-03-04", "settlement", "SET-1"),
			}, []*models.AccountingEntry{
				testEntry(t, "E1", -8000, "2025-03-04", "vendor alpha", "PAY-7", models.EntryKindPayment),
				testEntry(t, "E2", 6000, "2025-03-04", "settlement", "SET-1", models.EntryKindInvoice),
				testEntry(t, "E3", 4000, "2025-03-04", "settlement", "SET-1", models.EntryKindInvoice),
			}
	}

	e := testEngine(t, cfg)
	txns, entries := build()
	first := e.Reconcile(context.Background(), "sess-1", "stmt-1", txns, entries)
	txns, entries = build()
	second := e.Reconcile(context.Background(), "sess-1", "stmt-1", txns, entries)

	assert.Equal(t, first, second)
}

func TestReconcileConfidenceBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmountToleranceMinor = 50
	e := testEngine(t, cfg)

	txns := []*models.Transaction{
		testTxn(t, "T1", 5000, "2025-03-04", "alpha", "A"),
		testTxn(t, "T2", 5030, "2025-03-06", "beta", "B"),
	}
	entries := []*models.AccountingEntry{
		testEntry(t, "E1", 5010, "2025-03-05", "gamma", "C", models.EntryKindJournal),
		testEntry(t, "E2", 5040, "2025-03-07", "delta", "D", models.EntryKindJournal),
	}

	result := e.Reconcile(context.Background(), "sess-1", "stmt-1", txns, entries)

	for _, d := range result.Decisions {
		assert.GreaterOrEqual(t, d.Confidence, 0.0)
		assert.LessOrEqual(t, d.Confidence, 1.0)
		if d.Action == models.ActionMatch || d.Action == models.ActionSplit {
			assert.GreaterOrEqual(t, d.Confidence, cfg.AcceptanceThreshold)
		}
	}
}

func TestReconcileCancellation(t *testing.T) {
	e := testEngine(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	txns := []*models.Transaction{
		testTxn(t, "T1", -10000, "2025-03-04", "acme", "INV-1"),
	}
	entries := []*models.AccountingEntry{
		testEntry(t, "E1", -10000, "2025-03-04", "acme", "INV-1", models.EntryKindPayment),
	}

	result := e.Reconcile(ctx, "sess-1", "stmt-1", txns, entries)

	assert.Equal(t, models.SessionError, result.State)
	assert.Equal(t, "cancelled", result.ErrorDetail)
	assert.Empty(t, result.Decisions)
	assert.Equal(t, result.TotalTransactions, result.Matched+result.Unmatched)
	assert.False(t, result.CompletedAt.IsZero())
}

func TestReconcileEmptyInputsComplete(t *testing.T) {
	e := testEngine(t, DefaultConfig())

	result := e.Reconcile(context.Background(), "sess-1", "stmt-1", nil, nil)

	assert.Equal(t, models.SessionCompleted, result.State)
	assert.Empty(t, result.Decisions)
	assert.Equal(t, 0, result.Matched)
	assert.Equal(t, 0, result.Unmatched)
	assert.Equal(t, 0.0, result.MeanConfidence)
}

func TestReconcileGeneratesSessionID(t *testing.T) {
	e := testEngine(t, DefaultConfig())

	result := e.Reconcile(context.Background(), "", "stmt-1", nil, nil)

	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, "stmt-1", result.StatementID)
}
