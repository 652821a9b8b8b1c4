package browse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"stockadvisor/internal/metrics"
	"stockadvisor/internal/validation"
	"stockadvisor/pkg/advisor"
)

// Fetcher is the remote service as seen by the controller.
type Fetcher interface {
	Health(ctx context.Context) (advisor.Health, error)
	FetchPage(ctx context.Context, pageSize, page int, capFilter advisor.CapFilter) (*advisor.PageResponse, error)
	FetchOne(ctx context.Context, ticker string, exchange advisor.Exchange) (*advisor.LookupResponse, error)
}

// Controller owns the browse session. Actions and Apply must be called from
// a single goroutine (the event loop); Execute may run anywhere.
//
// Every action that issues a request stamps it with a fresh id and records
// it as current for its slice. Apply drops any result that is not current,
// so a late response can never overwrite newer state.
type Controller struct {
	fetcher Fetcher
	log     *slog.Logger

	page PageState
	acc  *Accumulator

	lookup LookupState

	seq         uint64
	pageToken   uint64
	lookupToken uint64
	healthID    uint64 // request that produced page.Health
}

// New creates a controller in the Init phase with the "all" cap filter.
func New(fetcher Fetcher, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		fetcher: fetcher,
		log:     log,
		page:    PageState{Cursor: 1, Cap: advisor.CapAll, Phase: PhaseInit},
		acc:     NewAccumulator(),
		lookup:  LookupState{Exchange: advisor.NSE},
	}
}

// Page returns a snapshot of the paged slice.
func (c *Controller) Page() PageState {
	s := c.page
	s.Records = c.acc.Records()
	return s
}

// Lookup returns a snapshot of the lookup slice.
func (c *Controller) Lookup() LookupState { return c.lookup }

// Busy reports whether either slice has a request in flight.
func (c *Controller) Busy() bool {
	return c.page.Loading() || c.lookup.Loading
}

// ---------------------------------------------------------------------------
// Paging actions
// ---------------------------------------------------------------------------

// Mount starts a session: health check, then page 1 of the current filter.
func (c *Controller) Mount() *Request {
	c.restart()
	return c.issuePage(KindMount, 1)
}

// SetCapFilter switches the filter, discards everything accumulated, and
// fetches page 1. Selecting the current filter still refetches.
func (c *Controller) SetCapFilter(capFilter advisor.CapFilter) (*Request, error) {
	if !capFilter.Valid() {
		return nil, fmt.Errorf("unknown cap filter %q", capFilter)
	}
	c.page.Cap = capFilter
	c.restart()
	return c.issuePage(KindPage, 1), nil
}

// Next fetches the following page and merges it into the accumulator. It is
// a no-op while loading or at the last page.
func (c *Controller) Next() *Request {
	if c.page.Loading() || c.page.Cursor >= MaxPages {
		return nil
	}
	return c.issuePage(KindPage, c.page.Cursor+1)
}

// Previous clears the accumulator and refetches only the preceding page. It
// is a no-op while loading or at the first page.
func (c *Controller) Previous() *Request {
	if c.page.Loading() || c.page.Cursor <= 1 {
		return nil
	}
	c.acc.Reset()
	c.syncGauge()
	return c.issuePage(KindPage, c.page.Cursor-1)
}

// Reset clears the accumulator and refetches page 1 of the current filter.
func (c *Controller) Reset() *Request {
	c.restart()
	return c.issuePage(KindPage, 1)
}

func (c *Controller) restart() {
	c.acc.Reset()
	c.page.Cursor = 1
	c.syncGauge()
}

func (c *Controller) issuePage(kind RequestKind, page int) *Request {
	c.seq++
	c.pageToken = c.seq
	c.page.Phase = PhaseLoading
	c.page.Err = ""

	req := &Request{ID: c.seq, Kind: kind, Page: page, Cap: c.page.Cap}
	c.log.Debug("page requested", "id", req.ID, "kind", kind, "page", page, "cap", req.Cap)
	return req
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Execute performs the network calls for req. It always returns a Result,
// even if the fetcher panics, so the issuing slice always leaves Loading.
func (c *Controller) Execute(ctx context.Context, req Request) (res Result) {
	res.Request = req
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("%s request %d aborted: %v", req.Kind, req.ID, p)
		}
	}()

	switch req.Kind {
	case KindMount:
		res.Health, res.Err = c.fetcher.Health(ctx)
		if res.Err != nil {
			return res
		}
		res.Page, res.Err = c.fetcher.FetchPage(ctx, PageSize, req.Page, req.Cap)
	case KindPage:
		res.Page, res.Err = c.fetcher.FetchPage(ctx, PageSize, req.Page, req.Cap)
	case KindLookup:
		res.Lookup, res.Err = c.fetcher.FetchOne(ctx, req.Ticker, req.Exchange)
	default:
		res.Err = fmt.Errorf("unknown request kind %d", req.Kind)
	}
	return res
}

// Apply folds a completed request into the session. It returns false when
// the result was stale and therefore ignored.
func (c *Controller) Apply(res Result) bool {
	if res.Request.Kind == KindLookup {
		return c.applyLookup(res)
	}
	return c.applyPage(res)
}

// Do executes req and applies its result. A nil req is a no-op.
func (c *Controller) Do(ctx context.Context, req *Request) bool {
	if req == nil {
		return false
	}
	return c.Apply(c.Execute(ctx, *req))
}

func (c *Controller) applyPage(res Result) bool {
	req := res.Request

	// A health snapshot outlives the page half of its mount request: a
	// superseded mount still updates health unless a newer one already did.
	if res.Health != nil && req.ID > c.healthID {
		c.page.Health = res.Health
		c.healthID = req.ID
	}

	if req.ID != c.pageToken {
		c.dropStale(req)
		return false
	}

	if res.Err != nil {
		c.page.Phase = PhaseError
		c.page.Err = errMessage(res.Err)
		c.log.Warn("page request failed", "id", req.ID, "page", req.Page, "cap", req.Cap, "error", res.Err)
		return true
	}

	var incoming []advisor.Recommendation
	if res.Page != nil {
		incoming = c.validRecords(res.Page.Recommendations)
		c.page.Disclaimer = res.Page.Disclaimer
	}
	added, skipped := c.acc.Merge(incoming)
	metrics.MergeDuplicates.Add(float64(skipped))
	c.syncGauge()

	c.page.Cursor = req.Page
	c.page.Phase = PhaseReady
	c.log.Info("page loaded", "id", req.ID, "page", req.Page, "cap", req.Cap,
		"added", added, "duplicates", skipped, "total", c.acc.Len())
	return true
}

// validRecords drops records that cannot be merged or displayed safely.
func (c *Controller) validRecords(in []advisor.Recommendation) []advisor.Recommendation {
	out := make([]advisor.Recommendation, 0, len(in))
	for i := range in {
		if err := validation.Struct(&in[i]); err != nil {
			c.log.Warn("dropping invalid record", "ticker", in[i].Ticker, "error", err)
			continue
		}
		out = append(out, in[i])
	}
	return out
}

func (c *Controller) dropStale(req Request) {
	metrics.StaleResponses.WithLabelValues(req.Kind.String()).Inc()
	c.log.Debug("stale response dropped", "id", req.ID, "kind", req.Kind,
		"page_current", c.pageToken, "lookup_current", c.lookupToken)
}

// errMessage flattens err into the text shown to the user; it is never empty.
func errMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "request failed"
}

func (c *Controller) syncGauge() {
	metrics.AccumulatedRecords.Set(float64(c.acc.Len()))
}

// ---------------------------------------------------------------------------
// Lookup actions
// ---------------------------------------------------------------------------

// SetExchange selects the exchange used by subsequent lookups.
func (c *Controller) SetExchange(exchange advisor.Exchange) error {
	if !exchange.Valid() {
		return fmt.Errorf("unknown exchange %q", exchange)
	}
	c.lookup.Exchange = exchange
	return nil
}

// ToggleExchange flips between NSE and BSE.
func (c *Controller) ToggleExchange() {
	c.lookup.Exchange = c.lookup.Exchange.Toggle()
}

// Analyze starts a single-ticker lookup. Blank input is a silent no-op.
func (c *Controller) Analyze(input string) *Request {
	ticker := strings.TrimSpace(input)
	if ticker == "" {
		return nil
	}

	c.seq++
	c.lookupToken = c.seq
	c.lookup.Ticker = ticker
	c.lookup.Loading = true
	c.lookup.Result = nil
	c.lookup.Err = ""

	req := &Request{ID: c.seq, Kind: KindLookup, Ticker: ticker, Exchange: c.lookup.Exchange}
	c.log.Debug("lookup requested", "id", req.ID, "ticker", ticker, "exchange", req.Exchange)
	return req
}

func (c *Controller) applyLookup(res Result) bool {
	req := res.Request
	if req.ID != c.lookupToken {
		c.dropStale(req)
		return false
	}
	c.lookup.Loading = false

	if res.Err != nil {
		c.lookup.Err = errMessage(res.Err)
		c.log.Warn("lookup failed", "id", req.ID, "ticker", req.Ticker, "exchange", req.Exchange, "error", res.Err)
		return true
	}

	c.lookup.Result = res.Lookup
	c.log.Info("lookup done", "id", req.ID, "ticker", req.Ticker, "exchange", req.Exchange,
		"has_data", res.Lookup.HasData())
	return true
}
