package matching

import (
	"sort"
	"strings"
)

// candidate is a provisional pairing of one transaction with one or more
// entries. Candidates are ephemeral: scored, ranked, then either committed
// by the matcher or discarded.
type candidate struct {
	txn     *normTxn
	entries []*normEntry
	group   bool

	confidence  float64
	dateGap     int // largest calendar-day gap across entries
	explanation string
}

// entryKey is a stable identity for tie-breaking and claim tracking.
func (c *candidate) entryKey() string {
	ids := make([]string, len(c.entries))
	for i, e := range c.entries {
		ids[i] = e.rec.EntryID
	}
	return strings.Join(ids, ",")
}

func (c *candidate) maxDayGap() int {
	gap := 0
	for _, e := range c.entries {
		if g := dayGap(c.txn.day, e.day); g > gap {
			gap = g
		}
	}
	return gap
}

// generateCandidates emits all plausible pairings for one transaction:
// single entries with the same sign, amount within tolerance and date
// within the window, plus bounded groups of 2..MaxGroupSize entries whose
// sum lands within tolerance. The pool is pre-filtered by sign and date so
// the subset search stays small.
func generateCandidates(txn *normTxn, entries []*normEntry, cfg Config) []*candidate {
	var out []*candidate

	// Pool of entries compatible by sign and date; amount bounded so a
	// group sum can still land on the transaction amount.
	var pool []*normEntry
	for _, e := range entries {
		if !sameSign(txn.rec.AmountMinor, e.rec.AmountMinor) {
			continue
		}
		if dayGap(txn.day, e.day) > cfg.DateWindowDays {
			continue
		}
		if absMinor(e.rec.AmountMinor) > absMinor(txn.rec.AmountMinor)+cfg.AmountToleranceMinor {
			continue
		}
		pool = append(pool, e)

		if absMinor(txn.rec.AmountMinor-e.rec.AmountMinor) <= cfg.AmountToleranceMinor {
			out = append(out, &candidate{txn: txn, entries: []*normEntry{e}})
		}
	}

	// Deterministic group search order regardless of input order.
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].rec.EntryID < pool[j].rec.EntryID
	})

	for size := 2; size <= cfg.MaxGroupSize; size++ {
		collectGroups(txn, pool, size, nil, cfg, &out)
	}

	for _, c := range out {
		c.dateGap = c.maxDayGap()
	}
	return out
}

// collectGroups walks fixed-size subsets of the pool in order, in the
// include/exclude recursion shape, and keeps those whose summed amount is
// within tolerance of the transaction amount.
func collectGroups(txn *normTxn, pool []*normEntry, size int, current []*normEntry, cfg Config, out *[]*candidate) {
	if size == 0 {
		var sum int64
		for _, e := range current {
			sum += e.rec.AmountMinor
		}
		if absMinor(txn.rec.AmountMinor-sum) <= cfg.AmountToleranceMinor {
			group := make([]*normEntry, len(current))
			copy(group, current)
			*out = append(*out, &candidate{txn: txn, entries: group, group: true})
		}
		return
	}
	if len(pool) < size {
		return
	}
	collectGroups(txn, pool[1:], size-1, append(current, pool[0]), cfg, out)
	collectGroups(txn, pool[1:], size, current, cfg, out)
}
