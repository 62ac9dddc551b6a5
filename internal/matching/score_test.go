package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconcileai/internal/models"
)

func scoredCandidate(t *testing.T, cfg Config, txn *models.Transaction, entries ...*models.AccountingEntry) *candidate {
	t.Helper()
	normed := normalizeOne(t, txn)
	cands := generateCandidates(normed, normalizeAll(t, entries...), cfg)
	require.Len(t, cands, 1)
	scoreCandidate(cands[0], cfg)
	return cands[0]
}

func TestScorePerfectSingleMatch(t *testing.T) {
	cfg := DefaultConfig()
	c := scoredCandidate(t, cfg,
		testTxn(t, "T1", -12000, "2025-01-10", "Acme Corp rent", "RENT-01"),
		testEntry(t, "E1", -12000, "2025-01-10", "Acme Corp rent", "RENT-01", models.EntryKindPayment),
	)

	assert.InDelta(t, 1.0, c.confidence, 1e-9)
	assert.Equal(t, "matched by exact amount 120.00 and same-day date; reference similarity 1.00", c.explanation)
}

func TestScoreDateDecay(t *testing.T) {
	cfg := DefaultConfig() // 3-day window

	sameDay := scoredCandidate(t, cfg,
		testTxn(t, "T1", 5000, "2025-01-10", "sub", "S-1"),
		testEntry(t, "E1", 5000, "2025-01-10", "sub", "S-1", models.EntryKindPayment),
	)
	oneOff := scoredCandidate(t, cfg,
		testTxn(t, "T1", 5000, "2025-01-10", "sub", "S-1"),
		testEntry(t, "E1", 5000, "2025-01-11", "sub", "S-1", models.EntryKindPayment),
	)
	atBoundary := scoredCandidate(t, cfg,
		testTxn(t, "T1", 5000, "2025-01-10", "sub", "S-1"),
		testEntry(t, "E1", 5000, "2025-01-13", "sub", "S-1", models.EntryKindPayment),
	)

	// Weighted date sub-score: 0.25 at gap 0, linearly down to 0 at gap 3.
	assert.InDelta(t, 1.0, sameDay.confidence, 1e-9)
	assert.InDelta(t, 1.0-0.25/3.0, oneOff.confidence, 1e-9)
	assert.InDelta(t, 0.75, atBoundary.confidence, 1e-9)
	assert.Equal(t, "matched by exact amount 50.00 and date within 1 day; reference similarity 1.00", oneOff.explanation)
	assert.Equal(t, "matched by exact amount 50.00 and date within 3 days; reference similarity 1.00", atBoundary.explanation)
}

func TestScoreAmountDecay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmountToleranceMinor = 10

	exact := scoredCandidate(t, cfg,
		testTxn(t, "T1", 5000, "2025-01-10", "sub", "S-1"),
		testEntry(t, "E1", 5000, "2025-01-10", "sub", "S-1", models.EntryKindPayment),
	)
	half := scoredCandidate(t, cfg,
		testTxn(t, "T1", 5000, "2025-01-10", "sub", "S-1"),
		testEntry(t, "E1", 5005, "2025-01-10", "sub", "S-1", models.EntryKindPayment),
	)
	boundary := scoredCandidate(t, cfg,
		testTxn(t, "T1", 5000, "2025-01-10", "sub", "S-1"),
		testEntry(t, "E1", 5010, "2025-01-10", "sub", "S-1", models.EntryKindPayment),
	)

	assert.InDelta(t, 1.0, exact.confidence, 1e-9)
	assert.InDelta(t, 1.0-0.5*0.5, half.confidence, 1e-9)
	assert.InDelta(t, 0.5, boundary.confidence, 1e-9)
	assert.Equal(t, "matched by amount 50.00 within 0.05 and same-day date; reference similarity 1.00", half.explanation)
}

func TestScoreEntryKindPrior(t *testing.T) {
	cfg := DefaultConfig()
	base := testTxn(t, "T1", 5000, "2025-01-10", "sub", "S-1")

	payment := scoredCandidate(t, cfg, base,
		testEntry(t, "E1", 5000, "2025-01-10", "sub", "S-1", models.EntryKindPayment))
	journal := scoredCandidate(t, cfg, base,
		testEntry(t, "E1", 5000, "2025-01-10", "sub", "S-1", models.EntryKindJournal))

	assert.Greater(t, payment.confidence, journal.confidence)
	assert.InDelta(t, 0.05*(1.0-0.2), payment.confidence-journal.confidence, 1e-9)
}

func TestScoreGroupExplanation(t *testing.T) {
	cfg := DefaultConfig()
	txn := normalizeOne(t, testTxn(t, "T1", 10000, "2025-01-10", "settlement", "SET-9"))
	entries := normalizeAll(t,
		testEntry(t, "E1", 6000, "2025-01-10", "settlement", "SET-9", models.EntryKindInvoice),
		testEntry(t, "E2", 4000, "2025-01-10", "settlement", "SET-9", models.EntryKindInvoice),
	)

	cands := generateCandidates(txn, entries, cfg)
	var group *candidate
	for _, c := range cands {
		if c.group {
			group = c
		}
	}
	require.NotNil(t, group)
	scoreCandidate(group, cfg)

	assert.Equal(t, "matched by exact amount 100.00 across 2 entries and same-day date; reference similarity 1.00", group.explanation)
	assert.GreaterOrEqual(t, group.confidence, cfg.AcceptanceThreshold)
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "INV-1001", "INV-1001", 1.0},
		{"empty left", "", "INV-1001", 0.0},
		{"empty right", "INV-1001", "", 0.0},
		{"one substitution in eight runes", "INV-1001", "INV-1002", 14.0 / 16.0},
		{"disjoint", "ABCD", "WXYZ", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScoreStaysWithinBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmountToleranceMinor = 100

	c := scoredCandidate(t, cfg,
		testTxn(t, "T1", 5000, "2025-01-10", "completely different text", ""),
		testEntry(t, "E1", 5090, "2025-01-13", "unrelated wording entirely", "", models.EntryKindJournal),
	)

	assert.GreaterOrEqual(t, c.confidence, 0.0)
	assert.LessOrEqual(t, c.confidence, 1.0)
}

func TestFormatMinor(t *testing.T) {
	assert.Equal(t, "120.00", formatMinor(12000))
	assert.Equal(t, "0.05", formatMinor(5))
	assert.Equal(t, "-33.10", formatMinor(-3310))
}
