// Package browse implements the paged recommendation browser: an
// order-preserving accumulator of unique records, a bounded three-page
// cursor, a cap filter, and an independent single-ticker lookup.
package browse

import "stockadvisor/pkg/advisor"

// Accumulator holds recommendations in first-seen order, unique by ticker.
// A later record for an already-seen ticker is discarded, never upserted.
type Accumulator struct {
	records []advisor.Recommendation
	seen    map[string]struct{}
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{seen: make(map[string]struct{})}
}

// Merge appends, in order, every record whose ticker has not been seen.
// It returns the number added and the number skipped as duplicates.
func (a *Accumulator) Merge(page []advisor.Recommendation) (added, skipped int) {
	for i := range page {
		if _, ok := a.seen[page[i].Ticker]; ok {
			skipped++
			continue
		}
		a.seen[page[i].Ticker] = struct{}{}
		a.records = append(a.records, page[i])
		added++
	}
	return added, skipped
}

// Reset empties the accumulator.
func (a *Accumulator) Reset() {
	a.records = nil
	a.seen = make(map[string]struct{})
}

// Contains reports whether a record with ticker has been accumulated.
func (a *Accumulator) Contains(ticker string) bool {
	_, ok := a.seen[ticker]
	return ok
}

// Len returns the number of accumulated records.
func (a *Accumulator) Len() int { return len(a.records) }

// Records returns a copy of the accumulated records.
func (a *Accumulator) Records() []advisor.Recommendation {
	out := make([]advisor.Recommendation, len(a.records))
	copy(out, a.records)
	return out
}
