package browse

import (
	"context"
	"fmt"
	"testing"

	"stockadvisor/pkg/advisor"
)

func TestAnalyzeBlankIsNoop(t *testing.T) {
	f := newFakeFetcher()
	c := newTestController(f)

	for _, in := range []string{"", "   ", "\t\n"} {
		if req := c.Analyze(in); req != nil {
			t.Errorf("Analyze(%q) = %+v, want nil", in, req)
		}
	}
	if len(f.calls) != 0 {
		t.Errorf("blank input issued calls: %v", f.calls)
	}
	if c.Lookup().Loading {
		t.Error("blank input should not enter loading")
	}
}

func TestAnalyzeNoteStoredVerbatim(t *testing.T) {
	f := newFakeFetcher()
	f.lookups["XYZ"] = &advisor.LookupResponse{Note: "No data for this symbol."}
	c := newTestController(f)

	req := c.Analyze("  XYZ ")
	if req == nil {
		t.Fatal("Analyze returned nil")
	}
	if !c.Lookup().Loading || !c.Busy() {
		t.Error("lookup should be loading after Analyze")
	}
	c.Do(context.Background(), req)

	if f.lastCall() != "one(XYZ,NSE)" {
		t.Errorf("call = %s, want one(XYZ,NSE)", f.lastCall())
	}
	s := c.Lookup()
	if s.Loading || s.Err != "" {
		t.Errorf("loading=%v err=%q", s.Loading, s.Err)
	}
	if s.Result == nil || s.Result.HasData() {
		t.Fatalf("result = %+v, want a note without data", s.Result)
	}
	if s.Result.Note != "No data for this symbol." {
		t.Errorf("note = %q", s.Result.Note)
	}
}

func TestAnalyzeWithData(t *testing.T) {
	f := newFakeFetcher()
	f.lookups["TCS"] = &advisor.LookupResponse{Recommendation: &advisor.Recommendation{Ticker: "TCS", CompositeScore: 0.7}}
	c := newTestController(f)

	c.ToggleExchange()
	c.Do(context.Background(), c.Analyze("TCS"))

	if f.lastCall() != "one(TCS,BSE)" {
		t.Errorf("call = %s, want one(TCS,BSE)", f.lastCall())
	}
	s := c.Lookup()
	if !s.Result.HasData() || s.Result.Recommendation.Ticker != "TCS" {
		t.Errorf("result = %+v", s.Result)
	}
	if s.Ticker != "TCS" || s.Exchange != advisor.BSE {
		t.Errorf("ticker=%q exchange=%q", s.Ticker, s.Exchange)
	}
}

func TestAnalyzeFailureLeavesPageAlone(t *testing.T) {
	f := newFakeFetcher()
	c := newTestController(f)
	ctx := context.Background()
	c.Do(ctx, c.Mount())

	f.lookupErr = fmt.Errorf("%w: 500 Internal Server Error", advisor.ErrLookup)
	c.Do(ctx, c.Analyze("INFY"))

	s := c.Lookup()
	if s.Loading || s.Err == "" || s.Result != nil {
		t.Errorf("lookup after failure: loading=%v err=%q result=%+v", s.Loading, s.Err, s.Result)
	}
	p := c.Page()
	if p.Phase != PhaseReady || p.Err != "" {
		t.Errorf("page slice touched by lookup failure: phase=%s err=%q", p.Phase, p.Err)
	}
	if c.Busy() {
		t.Error("Busy() should be false once both slices settle")
	}
}

func TestLookupIndependentOfPaging(t *testing.T) {
	f := newFakeFetcher()
	c := newTestController(f)
	ctx := context.Background()
	c.Do(ctx, c.Mount())

	next := c.Next()
	lookup := c.Analyze("TCS")
	if next == nil || lookup == nil {
		t.Fatal("both actions should issue requests")
	}
	if !c.Page().Loading() || !c.Lookup().Loading {
		t.Fatal("both slices should be loading")
	}

	c.Apply(c.Execute(ctx, *lookup))
	if !c.Page().Loading() {
		t.Error("lookup completion cleared the page loading flag")
	}
	if !c.Busy() {
		t.Error("Busy() should stay true while the page request is in flight")
	}

	c.Apply(c.Execute(ctx, *next))
	if c.Busy() {
		t.Error("Busy() should be false after both complete")
	}
	if got := tickers(c.Page().Records); !equalStrings(got, []string{"A", "B", "C", "D", "E"}) {
		t.Errorf("records = %v", got)
	}
}

func TestStaleLookupDropped(t *testing.T) {
	f := newFakeFetcher()
	f.lookups["OLD"] = &advisor.LookupResponse{Recommendation: &advisor.Recommendation{Ticker: "OLD"}}
	f.lookups["NEW"] = &advisor.LookupResponse{Recommendation: &advisor.Recommendation{Ticker: "NEW"}}
	c := newTestController(f)
	ctx := context.Background()

	first := c.Analyze("OLD")
	firstRes := c.Execute(ctx, *first)
	second := c.Analyze("NEW")
	secondRes := c.Execute(ctx, *second)

	if !c.Apply(secondRes) {
		t.Fatal("current lookup dropped")
	}
	if c.Apply(firstRes) {
		t.Error("superseded lookup applied")
	}
	if got := c.Lookup().Result.Recommendation.Ticker; got != "NEW" {
		t.Errorf("result ticker = %s, want NEW", got)
	}
}

func TestSetExchange(t *testing.T) {
	c := newTestController(newFakeFetcher())

	if err := c.SetExchange(advisor.BSE); err != nil {
		t.Fatalf("SetExchange(BSE): %v", err)
	}
	if c.Lookup().Exchange != advisor.BSE {
		t.Errorf("exchange = %q, want BSE", c.Lookup().Exchange)
	}
	if err := c.SetExchange("NYSE"); err == nil {
		t.Error("SetExchange(NYSE) should fail")
	}
	if c.Lookup().Exchange != advisor.BSE {
		t.Errorf("invalid exchange changed state to %q", c.Lookup().Exchange)
	}
	c.ToggleExchange()
	if c.Lookup().Exchange != advisor.NSE {
		t.Errorf("toggle from BSE = %q, want NSE", c.Lookup().Exchange)
	}
}
