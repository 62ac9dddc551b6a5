package matching

import (
	"strings"
	"time"

	"reconcileai/internal/models"
)

// normTxn is a transaction in comparable form. The original record is kept
// for display; compareRef and compareDesc carry the canonical text.
type normTxn struct {
	rec         *models.Transaction
	day         time.Time
	compareRef  string
	compareDesc string
}

type normEntry struct {
	rec         *models.AccountingEntry
	day         time.Time
	compareRef  string
	compareDesc string
}

// canonicalText trims, collapses inner whitespace and upper-cases s for
// comparison. Original casing stays on the record for display.
func canonicalText(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// dayOf truncates t to its UTC calendar day.
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// normalizeTransactions converts raw transactions into comparable form.
// Records missing an amount or date are rejected with a per-record error
// and excluded from matching; rejection never aborts the session.
func normalizeTransactions(txns []*models.Transaction) ([]*normTxn, []models.RecordError) {
	var out []*normTxn
	var errs []models.RecordError

	for _, t := range txns {
		if reason := validateTransaction(t); reason != "" {
			errs = append(errs, models.RecordError{
				Kind:     "transaction",
				RecordID: t.TransactionID,
				Reason:   reason,
			})
			continue
		}
		out = append(out, &normTxn{
			rec:         t,
			day:         dayOf(t.Date),
			compareRef:  canonicalText(t.Reference),
			compareDesc: canonicalText(t.Description),
		})
	}
	return out, errs
}

func normalizeEntries(entries []*models.AccountingEntry) ([]*normEntry, []models.RecordError) {
	var out []*normEntry
	var errs []models.RecordError

	for _, e := range entries {
		if reason := validateEntry(e); reason != "" {
			errs = append(errs, models.RecordError{
				Kind:     "entry",
				RecordID: e.EntryID,
				Reason:   reason,
			})
			continue
		}
		out = append(out, &normEntry{
			rec:         e,
			day:         dayOf(e.Date),
			compareRef:  canonicalText(e.Reference),
			compareDesc: canonicalText(e.Description),
		})
	}
	return out, errs
}

func validateTransaction(t *models.Transaction) string {
	if t.TransactionID == "" {
		return "missing transaction id"
	}
	if t.AmountMinor == 0 {
		return "missing or zero amount"
	}
	if t.Date.IsZero() {
		return "missing date"
	}
	return ""
}

func validateEntry(e *models.AccountingEntry) string {
	if e.EntryID == "" {
		return "missing entry id"
	}
	if e.AmountMinor == 0 {
		return "missing or zero amount"
	}
	if e.Date.IsZero() {
		return "missing date"
	}
	return ""
}

// dayGap returns the absolute difference between two calendar days, in days.
func dayGap(a, b time.Time) int {
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}

// sameSign reports whether two minor-unit amounts share a sign, i.e. a
// debit transaction can only pair with a debit-type entry.
func sameSign(a, b int64) bool {
	return (a < 0) == (b < 0)
}

func absMinor(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
