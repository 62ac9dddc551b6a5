package matching

import (
	"fmt"
	"sort"

	"reconcileai/internal/models"
)

// rankCandidates orders candidates for the greedy commit pass: confidence
// descending, then fewer entries (singles before splits), then smaller
// date gap, then transaction id, then entry ids. The final two keys make
// the ordering total, so identical inputs always commit identically.
func rankCandidates(cands []*candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.confidence != b.confidence {
			return a.confidence > b.confidence
		}
		if len(a.entries) != len(b.entries) {
			return len(a.entries) < len(b.entries)
		}
		if a.dateGap != b.dateGap {
			return a.dateGap < b.dateGap
		}
		if a.txn.rec.TransactionID != b.txn.rec.TransactionID {
			return a.txn.rec.TransactionID < b.txn.rec.TransactionID
		}
		return a.entryKey() < b.entryKey()
	})
}

// allocate runs the single-threaded commit phase: walk the ranked
// candidates, commit each one whose transaction is unresolved and whose
// entries are all unclaimed, then settle residual transactions as defer or
// flag. Returns decisions keyed by transaction id; callers emit them in
// input order.
func allocate(txns []*normTxn, cands []*candidate, cfg Config) map[string]models.MatchDecision {
	rankCandidates(cands)

	decisions := make(map[string]models.MatchDecision, len(txns))
	claimed := make(map[string]bool)
	hadCandidates := make(map[string]*candidate) // best-ranked candidate per transaction

	for _, c := range cands {
		id := c.txn.rec.TransactionID
		if hadCandidates[id] == nil {
			hadCandidates[id] = c
		}
	}

	for _, c := range cands {
		id := c.txn.rec.TransactionID
		if _, done := decisions[id]; done {
			continue
		}
		free := true
		for _, e := range c.entries {
			if claimed[e.rec.EntryID] {
				free = false
				break
			}
		}
		if !free {
			continue
		}

		entryIDs := make([]string, len(c.entries))
		for i, e := range c.entries {
			claimed[e.rec.EntryID] = true
			entryIDs[i] = e.rec.EntryID
		}

		// Below-threshold commits still claim their entries so nothing
		// else reuses them, but are flagged for human confirmation.
		action := models.ActionFlag
		if c.confidence >= cfg.AcceptanceThreshold {
			action = models.ActionMatch
			if c.group {
				action = models.ActionSplit
			}
		}

		decisions[id] = models.MatchDecision{
			TransactionID: id,
			EntryIDs:      entryIDs,
			Confidence:    c.confidence,
			Explanation:   c.explanation,
			Action:        action,
		}
	}

	// Residuals: a near-miss that lost its entries is deferred for manual
	// review; a transaction with no candidate at all is flagged outright.
	for _, t := range txns {
		id := t.rec.TransactionID
		if _, done := decisions[id]; done {
			continue
		}
		if best := hadCandidates[id]; best != nil {
			decisions[id] = models.MatchDecision{
				TransactionID: id,
				Confidence:    best.confidence,
				Explanation: fmt.Sprintf(
					"candidate entries already claimed by higher-ranked matches; best candidate scored %.2f",
					best.confidence),
				Action: models.ActionDefer,
			}
			continue
		}
		decisions[id] = models.MatchDecision{
			TransactionID: id,
			Confidence:    0.0,
			Explanation:   "no plausible match found",
			Action:        models.ActionFlag,
		}
	}

	return decisions
}
