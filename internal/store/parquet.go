package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"stockadvisor/pkg/advisor"
)

// Compile-time interface check.
var _ SnapshotStore = (*ParquetStore)(nil)

// ParquetStore implements SnapshotStore using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record type (on-disk schema)
// ---------------------------------------------------------------------------

// RecommendationRecord is the Parquet schema for one recommendation.
// Optional service fields map to nullable columns.
type RecommendationRecord struct {
	Ticker          string   `parquet:"ticker"`
	CapturedAt      int64    `parquet:"captured_at,timestamp(millisecond)"` // Unix ms
	CapFilter       string   `parquet:"cap_filter"`
	CompositeScore  float64  `parquet:"composite_score"`
	Classification  string   `parquet:"classification"`
	HoldingDuration string   `parquet:"holding_duration"`
	ConfidenceValue float64  `parquet:"confidence_value"`
	ConfidenceText  string   `parquet:"confidence_text"`
	Rationale       string   `parquet:"rationale"`
	StopLoss        *float64 `parquet:"stop_loss,optional"`
	TargetLow       *float64 `parquet:"target_low,optional"`
	TargetHigh      *float64 `parquet:"target_high,optional"`
	Cap             string   `parquet:"cap"`
	Evidence        []string `parquet:"evidence,list"`
	Timestamp       string   `parquet:"timestamp"`
}

// NewRecord converts a recommendation into its on-disk form.
func NewRecord(r advisor.Recommendation, capFilter advisor.CapFilter, at time.Time) RecommendationRecord {
	rec := RecommendationRecord{
		Ticker:          r.Ticker,
		CapturedAt:      at.UnixMilli(),
		CapFilter:       string(capFilter),
		CompositeScore:  r.CompositeScore,
		Classification:  r.Classification,
		HoldingDuration: r.HoldingDuration,
		ConfidenceValue: r.Confidence.Value,
		ConfidenceText:  r.Confidence.Text,
		Rationale:       r.Rationale,
		StopLoss:        r.StopLoss,
		Cap:             string(r.Cap),
		Evidence:        r.Evidence,
		Timestamp:       r.Timestamp,
	}
	if r.TargetBand != nil {
		low, high := r.TargetBand.Low, r.TargetBand.High
		rec.TargetLow, rec.TargetHigh = &low, &high
	}
	return rec
}

// Recommendation converts the record back into the service type.
func (rec RecommendationRecord) Recommendation() advisor.Recommendation {
	r := advisor.Recommendation{
		Ticker:          rec.Ticker,
		CompositeScore:  rec.CompositeScore,
		Classification:  rec.Classification,
		HoldingDuration: rec.HoldingDuration,
		Confidence:      advisor.Confidence{Value: rec.ConfidenceValue, Text: rec.ConfidenceText},
		Rationale:       rec.Rationale,
		StopLoss:        rec.StopLoss,
		Cap:             advisor.Cap(rec.Cap),
		Evidence:        rec.Evidence,
		Timestamp:       rec.Timestamp,
	}
	if rec.TargetLow != nil && rec.TargetHigh != nil {
		r.TargetBand = &advisor.TargetBand{Low: *rec.TargetLow, High: *rec.TargetHigh}
	}
	return r
}

// ---------------------------------------------------------------------------
// SnapshotStore implementation
// ---------------------------------------------------------------------------

// WriteSnapshot stores recs under the cap filter and the day of at:
//
//	<DataDir>/recommendations/<cap>/<YYYY-MM-DD>.parquet
//
// A ticker already present in that day's file is replaced by the newer record.
func (s *ParquetStore) WriteSnapshot(_ context.Context, capFilter advisor.CapFilter, at time.Time, recs []advisor.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	records := make([]RecommendationRecord, len(recs))
	for i, r := range recs {
		records[i] = NewRecord(r, capFilter, at)
	}

	path := s.snapshotPath(capFilter, at)
	existing, _ := readParquetFile[RecommendationRecord](path)
	merged := mergeRecords(existing, records)

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing snapshot for %s/%s: %w", capFilter, at.Format("2006-01-02"), err)
	}
	return nil
}

// ReadSnapshot returns the recommendations stored for capFilter on day.
func (s *ParquetStore) ReadSnapshot(_ context.Context, capFilter advisor.CapFilter, day time.Time) ([]advisor.Recommendation, error) {
	path := s.snapshotPath(capFilter, day)
	records, err := readParquetFile[RecommendationRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	out := make([]advisor.Recommendation, len(records))
	for i := range records {
		out[i] = records[i].Recommendation()
	}
	return out, nil
}

// ListSnapshotDates returns the sorted dates (YYYY-MM-DD) that have a
// snapshot for capFilter.
func (s *ParquetStore) ListSnapshotDates(_ context.Context, capFilter advisor.CapFilter) ([]string, error) {
	dir := filepath.Join(s.DataDir, "recommendations", string(capFilter))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading snapshot dir: %w", err)
	}

	var dates []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(e.Name(), ".parquet"))
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *ParquetStore) snapshotPath(capFilter advisor.CapFilter, day time.Time) string {
	return filepath.Join(s.DataDir, "recommendations", string(capFilter), day.Format("2006-01-02")+".parquet")
}

// ---------------------------------------------------------------------------
// Single-file export
// ---------------------------------------------------------------------------

// WriteFile writes recs to a single Parquet file at path, in order.
func WriteFile(path string, capFilter advisor.CapFilter, at time.Time, recs []advisor.Recommendation) error {
	records := make([]RecommendationRecord, len(recs))
	for i, r := range recs {
		records[i] = NewRecord(r, capFilter, at)
	}
	return writeParquetFile(path, records)
}

// ReadFile reads every record from the Parquet file at path.
func ReadFile(path string) ([]RecommendationRecord, error) {
	return readParquetFile[RecommendationRecord](path)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeRecords deduplicates by ticker, preferring incoming records. Existing
// order is kept; new tickers are appended in incoming order.
func mergeRecords(existing, incoming []RecommendationRecord) []RecommendationRecord {
	idx := make(map[string]int, len(existing)+len(incoming))
	merged := make([]RecommendationRecord, 0, len(existing)+len(incoming))
	for _, r := range existing {
		if i, ok := idx[r.Ticker]; ok {
			merged[i] = r
			continue
		}
		idx[r.Ticker] = len(merged)
		merged = append(merged, r)
	}
	for _, r := range incoming {
		if i, ok := idx[r.Ticker]; ok {
			merged[i] = r
			continue
		}
		idx[r.Ticker] = len(merged)
		merged = append(merged, r)
	}
	return merged
}
