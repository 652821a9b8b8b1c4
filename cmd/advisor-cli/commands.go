package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"stockadvisor/internal/browse"
	"stockadvisor/internal/dashboard"
	"stockadvisor/internal/store"
	"stockadvisor/pkg/advisor"
)

// maxConcurrentLookups bounds the analyze fan-out.
const maxConcurrentLookups = 4

var (
	errLookupsFailed = errors.New("one or more lookups failed")
	errNoTickers     = errors.New("analyze requires at least one ticker")
)

func runHealth(ctx context.Context, f browse.Fetcher, w io.Writer) error {
	h, err := f.Health(ctx)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding health: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

type topOptions struct {
	capFilter advisor.CapFilter
	pages     int
	export    string
	snapshots store.SnapshotStore
}

// runTop browses the requested number of pages through the controller and
// prints the accumulated records.
func runTop(ctx context.Context, f browse.Fetcher, opts topOptions, logger *slog.Logger, w io.Writer) error {
	if opts.pages < 1 || opts.pages > browse.MaxPages {
		return fmt.Errorf("pages must be between 1 and %d, got %d", browse.MaxPages, opts.pages)
	}

	ctrl := browse.New(f, logger)
	// The page request issued here is superseded by Mount and never executed.
	if _, err := ctrl.SetCapFilter(opts.capFilter); err != nil {
		return err
	}
	ctrl.Do(ctx, ctrl.Mount())
	if s := ctrl.Page(); s.Phase == browse.PhaseError {
		return errors.New(s.Err)
	}

	for ctrl.Page().Cursor < opts.pages {
		ctrl.Do(ctx, ctrl.Next())
		if s := ctrl.Page(); s.Phase == browse.PhaseError {
			return fmt.Errorf("page %d: %s", s.Cursor+1, s.Err)
		}
	}

	page := ctrl.Page()
	printRecords(w, page.Records)
	if page.Disclaimer != "" {
		fmt.Fprintln(w, page.Disclaimer)
	}

	now := time.Now()
	if opts.export != "" {
		if err := store.WriteFile(opts.export, page.Cap, now, page.Records); err != nil {
			return fmt.Errorf("exporting to %s: %w", opts.export, err)
		}
		logger.Info("exported records", "path", opts.export, "records", len(page.Records))
	}
	if opts.snapshots != nil {
		if err := opts.snapshots.WriteSnapshot(ctx, page.Cap, now, page.Records); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		logger.Info("snapshot saved", "cap", page.Cap, "records", len(page.Records))
	}
	return nil
}

type lookupOutcome struct {
	resp *advisor.LookupResponse
	err  error
}

// cleanTickers trims each argument and drops blanks.
func cleanTickers(args []string) []string {
	var out []string
	for _, a := range args {
		if t := strings.TrimSpace(a); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// runAnalyze looks up every ticker concurrently and prints the outcomes in
// argument order. A failed lookup does not cancel the others.
func runAnalyze(ctx context.Context, f browse.Fetcher, exchange advisor.Exchange, args []string, w io.Writer) error {
	tickers := cleanTickers(args)
	if len(tickers) == 0 {
		return errNoTickers
	}
	outcomes := make([]lookupOutcome, len(tickers))
	sem := make(chan struct{}, maxConcurrentLookups)

	g, gctx := errgroup.WithContext(ctx)
	for i, ticker := range tickers {
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			resp, err := f.FetchOne(gctx, ticker, exchange)
			outcomes[i] = lookupOutcome{resp: resp, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := false
	for i, ticker := range tickers {
		o := outcomes[i]
		switch {
		case o.err != nil:
			failed = true
			fmt.Fprintf(w, "%s (%s): error: %v\n", ticker, exchange, o.err)
		case o.resp.HasData():
			fmt.Fprintf(w, "%s (%s):\n", ticker, exchange)
			printRecords(w, []advisor.Recommendation{*o.resp.Recommendation})
			for _, e := range o.resp.Recommendation.Evidence {
				fmt.Fprintf(w, "  - %s\n", e)
			}
		default:
			fmt.Fprintf(w, "%s (%s): %s\n", ticker, exchange, o.resp.Note)
		}
	}
	if failed {
		return errLookupsFailed
	}
	return nil
}

// runHistory lists the stored snapshot dates for capFilter, or prints the
// snapshot for date when one is given.
func runHistory(ctx context.Context, snaps store.SnapshotStore, capFilter advisor.CapFilter, date string, w io.Writer) error {
	if date == "" {
		dates, err := snaps.ListSnapshotDates(ctx, capFilter)
		if err != nil {
			return err
		}
		if len(dates) == 0 {
			fmt.Fprintf(w, "no snapshots for %s\n", capFilter)
			return nil
		}
		for _, d := range dates {
			fmt.Fprintln(w, d)
		}
		return nil
	}

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fmt.Errorf("parsing date: %w", err)
	}
	recs, err := snaps.ReadSnapshot(ctx, capFilter, day)
	if err != nil {
		return err
	}
	printRecords(w, recs)
	return nil
}

func printRecords(w io.Writer, recs []advisor.Recommendation) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "no recommendations")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "TICKER", "SCORE", "CLASS", "HOLD", "CONF", "STOP", "TARGET", "CAP")
	for i, r := range recs {
		t.Row(
			fmt.Sprintf("%d", i+1),
			r.Ticker,
			dashboard.FormatScore(r.CompositeScore),
			r.Classification,
			r.HoldingDuration,
			dashboard.FormatConfidence(r.Confidence),
			dashboard.FormatPrice(r.StopLoss),
			dashboard.FormatBand(r.TargetBand),
			dashboard.FormatCap(r.Cap),
		)
	}
	fmt.Fprintln(w, t.String())
}
