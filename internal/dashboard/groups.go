// Package dashboard provides display helpers shared by the terminal client
// and the CLI: value formatting and per-cap grouping of recommendations.
package dashboard

import (
	"sort"

	"stockadvisor/pkg/advisor"
)

// CapGroup holds the records of one cap bucket, in accumulation order.
type CapGroup struct {
	Name    string
	Count   int
	Records []advisor.Recommendation
}

// Summary holds aggregate figures for a set of recommendations.
type Summary struct {
	Total           int
	AvgScore        float64
	Classifications map[string]int
}

var capOrder = []advisor.Cap{advisor.CapSizeLarge, advisor.CapSizeMid, advisor.CapSizeSmall, ""}

// GroupByCap splits records into large, mid, small and unreported buckets.
// Empty buckets are omitted. Order within a bucket is preserved.
func GroupByCap(records []advisor.Recommendation) []CapGroup {
	buckets := make(map[advisor.Cap][]advisor.Recommendation)
	for _, r := range records {
		buckets[r.Cap] = append(buckets[r.Cap], r)
	}

	var groups []CapGroup
	for _, c := range capOrder {
		recs := buckets[c]
		if len(recs) == 0 {
			continue
		}
		name := string(c)
		if name == "" {
			name = "unreported"
		}
		groups = append(groups, CapGroup{Name: name, Count: len(recs), Records: recs})
	}
	return groups
}

// Summarize computes the average composite score and classification counts.
func Summarize(records []advisor.Recommendation) Summary {
	s := Summary{Total: len(records), Classifications: make(map[string]int)}
	if len(records) == 0 {
		return s
	}
	var sum float64
	for _, r := range records {
		sum += r.CompositeScore
		if r.Classification != "" {
			s.Classifications[r.Classification]++
		}
	}
	s.AvgScore = sum / float64(len(records))
	return s
}

// ClassificationNames returns the classification labels sorted by descending
// count, ties broken alphabetically.
func (s Summary) ClassificationNames() []string {
	names := make([]string, 0, len(s.Classifications))
	for k := range s.Classifications {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := s.Classifications[names[i]], s.Classifications[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	return names
}
