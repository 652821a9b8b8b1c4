package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"stockadvisor/internal/store"
	"stockadvisor/pkg/advisor"
)

type stubFetcher struct {
	mu      sync.Mutex
	pages   map[int][]string
	pageErr map[int]error
	caps    []advisor.CapFilter
	lookups map[string]*advisor.LookupResponse
	looked  []string
}

func (s *stubFetcher) Health(context.Context) (advisor.Health, error) {
	return advisor.Health{"status": "ok"}, nil
}

func (s *stubFetcher) FetchPage(_ context.Context, _ int, page int, capFilter advisor.CapFilter) (*advisor.PageResponse, error) {
	s.mu.Lock()
	s.caps = append(s.caps, capFilter)
	s.mu.Unlock()
	if err := s.pageErr[page]; err != nil {
		return nil, err
	}
	var recs []advisor.Recommendation
	for _, t := range s.pages[page] {
		recs = append(recs, advisor.Recommendation{Ticker: t, CompositeScore: 0.5})
	}
	return &advisor.PageResponse{Recommendations: recs, Disclaimer: "Not investment advice."}, nil
}

func (s *stubFetcher) FetchOne(_ context.Context, ticker string, _ advisor.Exchange) (*advisor.LookupResponse, error) {
	s.mu.Lock()
	s.looked = append(s.looked, ticker)
	s.mu.Unlock()
	r, ok := s.lookups[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: 500 Internal Server Error", advisor.ErrLookup)
	}
	return r, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunHealth(t *testing.T) {
	var buf bytes.Buffer
	if err := runHealth(context.Background(), &stubFetcher{}, &buf); err != nil {
		t.Fatalf("runHealth: %v", err)
	}
	if !strings.Contains(buf.String(), `"status": "ok"`) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRunTopAccumulatesPages(t *testing.T) {
	f := &stubFetcher{pages: map[int][]string{1: {"A", "B", "C"}, 2: {"C", "D"}}}
	var buf bytes.Buffer

	opts := topOptions{capFilter: advisor.CapMid, pages: 2}
	if err := runTop(context.Background(), f, opts, discardLogger(), &buf); err != nil {
		t.Fatalf("runTop: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"A", "B", "C", "D", "Not investment advice."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	for _, c := range f.caps {
		if c != advisor.CapMid {
			t.Errorf("fetched with cap %q, want mid", c)
		}
	}
}

func TestRunTopFailure(t *testing.T) {
	f := &stubFetcher{
		pages:   map[int][]string{1: {"A"}},
		pageErr: map[int]error{2: errors.New("upstream down")},
	}
	err := runTop(context.Background(), f, topOptions{capFilter: advisor.CapAll, pages: 3}, discardLogger(), io.Discard)
	if err == nil || !strings.Contains(err.Error(), "upstream down") {
		t.Errorf("runTop error = %v, want upstream down", err)
	}
}

func TestRunTopRejectsPageCount(t *testing.T) {
	for _, n := range []int{0, 4} {
		if err := runTop(context.Background(), &stubFetcher{}, topOptions{capFilter: advisor.CapAll, pages: n}, discardLogger(), io.Discard); err == nil {
			t.Errorf("runTop(pages=%d) should fail", n)
		}
	}
}

func TestRunTopExportAndSave(t *testing.T) {
	dir := t.TempDir()
	f := &stubFetcher{pages: map[int][]string{1: {"A", "B"}}}
	ps := store.NewParquetStore(dir)
	export := filepath.Join(dir, "top.parquet")

	opts := topOptions{capFilter: advisor.CapAll, pages: 1, export: export, snapshots: ps}
	if err := runTop(context.Background(), f, opts, discardLogger(), io.Discard); err != nil {
		t.Fatalf("runTop: %v", err)
	}

	records, err := store.ReadFile(export)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(records) != 2 || records[0].Ticker != "A" {
		t.Errorf("exported %+v", records)
	}

	recs, err := ps.ReadSnapshot(context.Background(), advisor.CapAll, time.Now())
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("snapshot has %d records, want 2", len(recs))
	}
}

func TestRunAnalyzeOrderedOutput(t *testing.T) {
	f := &stubFetcher{lookups: map[string]*advisor.LookupResponse{
		"TCS":  {Recommendation: &advisor.Recommendation{Ticker: "TCS", Evidence: []string{"strong margins"}}},
		"ZZZZ": {Note: "No data for this symbol."},
	}}
	var buf bytes.Buffer

	err := runAnalyze(context.Background(), f, advisor.NSE, []string{"ZZZZ", "TCS"}, &buf)
	if err != nil {
		t.Fatalf("runAnalyze: %v", err)
	}
	out := buf.String()
	noteAt := strings.Index(out, "ZZZZ (NSE): No data for this symbol.")
	tcsAt := strings.Index(out, "TCS (NSE):")
	if noteAt < 0 || tcsAt < 0 || noteAt > tcsAt {
		t.Errorf("output not in argument order:\n%s", out)
	}
	if !strings.Contains(out, "- strong margins") {
		t.Errorf("evidence missing:\n%s", out)
	}
}

func TestRunAnalyzeFailureReported(t *testing.T) {
	f := &stubFetcher{lookups: map[string]*advisor.LookupResponse{
		"TCS": {Recommendation: &advisor.Recommendation{Ticker: "TCS"}},
	}}
	var buf bytes.Buffer

	err := runAnalyze(context.Background(), f, advisor.BSE, []string{"TCS", "BAD"}, &buf)
	if !errors.Is(err, errLookupsFailed) {
		t.Fatalf("runAnalyze error = %v, want errLookupsFailed", err)
	}
	if !strings.Contains(buf.String(), "TCS (BSE):") {
		t.Errorf("successful lookup not printed:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "BAD (BSE): error:") {
		t.Errorf("failed lookup not printed:\n%s", buf.String())
	}
}

func TestRunAnalyzeSkipsBlankTickers(t *testing.T) {
	f := &stubFetcher{lookups: map[string]*advisor.LookupResponse{
		"TCS": {Recommendation: &advisor.Recommendation{Ticker: "TCS"}},
	}}
	var buf bytes.Buffer

	err := runAnalyze(context.Background(), f, advisor.NSE, []string{"  TCS ", "", "   "}, &buf)
	if err != nil {
		t.Fatalf("runAnalyze: %v", err)
	}
	if len(f.looked) != 1 || f.looked[0] != "TCS" {
		t.Errorf("looked up %q, want [TCS]", f.looked)
	}
	if !strings.Contains(buf.String(), "TCS (NSE):") {
		t.Errorf("output = %q", buf.String())
	}

	f.looked = nil
	err = runAnalyze(context.Background(), f, advisor.NSE, []string{" ", "\t"}, io.Discard)
	if !errors.Is(err, errNoTickers) {
		t.Errorf("runAnalyze(blanks) error = %v, want errNoTickers", err)
	}
	if len(f.looked) != 0 {
		t.Errorf("blank arguments looked up: %q", f.looked)
	}
}

func TestRunHistory(t *testing.T) {
	ps := store.NewParquetStore(t.TempDir())
	ctx := context.Background()
	day := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	if err := ps.WriteSnapshot(ctx, advisor.CapSmall, day, []advisor.Recommendation{{Ticker: "IRCTC"}}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	var buf bytes.Buffer
	if err := runHistory(ctx, ps, advisor.CapSmall, "", &buf); err != nil {
		t.Fatalf("runHistory list: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "2024-05-10" {
		t.Errorf("dates = %q", buf.String())
	}

	buf.Reset()
	if err := runHistory(ctx, ps, advisor.CapSmall, "2024-05-10", &buf); err != nil {
		t.Fatalf("runHistory show: %v", err)
	}
	if !strings.Contains(buf.String(), "IRCTC") {
		t.Errorf("snapshot output missing IRCTC:\n%s", buf.String())
	}

	if err := runHistory(ctx, ps, advisor.CapSmall, "10/05/2024", io.Discard); err == nil {
		t.Error("malformed date should fail")
	}
}
