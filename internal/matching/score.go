package matching

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"reconcileai/internal/models"
)

// kindPrior ranks entry kinds by how likely they are to surface in a bank
// feed. Values feed the prior sub-score before weighting.
var kindPrior = map[string]float64{
	models.EntryKindPayment: 1.0,
	models.EntryKindInvoice: 0.6,
	models.EntryKindJournal: 0.2,
}

const unknownKindPrior = 0.4

// scoreCandidate computes the candidate's confidence and explanation as a
// pure function of the candidate and config, so identical inputs always
// reproduce identical results.
func scoreCandidate(c *candidate, cfg Config) {
	amount := amountScore(c, cfg)
	date := dateScore(c, cfg)
	ref := referenceScore(c)
	prior := priorScore(c)

	c.confidence = clamp01(cfg.Weights.Amount*amount +
		cfg.Weights.Date*date +
		cfg.Weights.Reference*ref +
		cfg.Weights.Prior*prior)
	c.explanation = explain(c, ref)
}

// amountScore is 1.0 for an exact amount and decays linearly to 0 at the
// tolerance boundary. Candidates always sit inside the tolerance, so a
// zero tolerance implies an exact amount.
func amountScore(c *candidate, cfg Config) float64 {
	diff := c.amountDiff()
	if diff == 0 {
		return 1.0
	}
	return clamp01(1.0 - float64(diff)/float64(cfg.AmountToleranceMinor))
}

// dateScore is 1.0 for a same-day pairing and decays linearly to 0 at the
// window boundary, using the worst entry in a group.
func dateScore(c *candidate, cfg Config) float64 {
	if c.dateGap == 0 {
		return 1.0
	}
	return clamp01(1.0 - float64(c.dateGap)/float64(cfg.DateWindowDays))
}

// referenceScore measures text similarity between the transaction and the
// entries. For each entry the best Levenshtein ratio across the
// reference/description cross-product wins; a group scores the mean over
// its entries.
func referenceScore(c *candidate) float64 {
	total := 0.0
	for _, e := range c.entries {
		best := 0.0
		for _, a := range []string{c.txn.compareRef, c.txn.compareDesc} {
			for _, b := range []string{e.compareRef, e.compareDesc} {
				if s := similarity(a, b); s > best {
					best = s
				}
			}
		}
		total += best
	}
	return total / float64(len(c.entries))
}

// similarity is the normalized Levenshtein ratio in [0,1]. Empty strings
// carry no signal and score 0.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return clamp01(levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions))
}

func priorScore(c *candidate) float64 {
	total := 0.0
	for _, e := range c.entries {
		p, ok := kindPrior[e.rec.Kind]
		if !ok {
			p = unknownKindPrior
		}
		total += p
	}
	return total / float64(len(c.entries))
}

func (c *candidate) amountDiff() int64 {
	var sum int64
	for _, e := range c.entries {
		sum += e.rec.AmountMinor
	}
	return absMinor(c.txn.rec.AmountMinor - sum)
}

// explain renders the deterministic explanation template, e.g.
// "matched by exact amount 120.00 and date within 1 day; reference similarity 0.62".
func explain(c *candidate, refScore float64) string {
	var amountPart string
	diff := c.amountDiff()
	display := formatMinor(absMinor(c.txn.rec.AmountMinor))
	switch {
	case diff == 0 && c.group:
		amountPart = fmt.Sprintf("exact amount %s across %d entries", display, len(c.entries))
	case diff == 0:
		amountPart = fmt.Sprintf("exact amount %s", display)
	case c.group:
		amountPart = fmt.Sprintf("amount %s within %s across %d entries", display, formatMinor(diff), len(c.entries))
	default:
		amountPart = fmt.Sprintf("amount %s within %s", display, formatMinor(diff))
	}

	datePart := "same-day date"
	if c.dateGap == 1 {
		datePart = "date within 1 day"
	} else if c.dateGap > 1 {
		datePart = fmt.Sprintf("date within %d days", c.dateGap)
	}

	var b strings.Builder
	b.WriteString("matched by ")
	b.WriteString(amountPart)
	b.WriteString(" and ")
	b.WriteString(datePart)
	fmt.Fprintf(&b, "; reference similarity %.2f", refScore)
	return b.String()
}

// formatMinor renders minor units as a two-decimal amount for display.
func formatMinor(v int64) string {
	return decimal.New(v, -2).StringFixed(2)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
