package advisor

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// CapFilter selects which market-cap bucket the ranked query is restricted to.
type CapFilter string

const (
	CapAll   CapFilter = "all"
	CapSmall CapFilter = "small"
	CapMid   CapFilter = "mid"
	CapLarge CapFilter = "large"
)

// CapFilters lists the filters in display order.
var CapFilters = []CapFilter{CapAll, CapSmall, CapMid, CapLarge}

// Valid reports whether f is one of the known filters.
func (f CapFilter) Valid() bool {
	switch f {
	case CapAll, CapSmall, CapMid, CapLarge:
		return true
	}
	return false
}

// Next returns the filter following f in display order, wrapping around.
func (f CapFilter) Next() CapFilter {
	for i, c := range CapFilters {
		if c == f {
			return CapFilters[(i+1)%len(CapFilters)]
		}
	}
	return CapAll
}

// ParseCapFilter converts s into a CapFilter.
func ParseCapFilter(s string) (CapFilter, error) {
	f := CapFilter(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown cap filter %q", s)
	}
	return f, nil
}

// Cap is the market-cap bucket a recommendation belongs to. The zero value
// means the service did not report one.
type Cap string

const (
	CapSizeSmall Cap = "small"
	CapSizeMid   Cap = "mid"
	CapSizeLarge Cap = "large"
)

// Exchange identifies the listing venue for a single-ticker lookup.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
)

// Valid reports whether e is NSE or BSE.
func (e Exchange) Valid() bool {
	return e == NSE || e == BSE
}

// Toggle returns the other exchange.
func (e Exchange) Toggle() Exchange {
	if e == BSE {
		return NSE
	}
	return BSE
}

// ParseExchange converts s into an Exchange.
func ParseExchange(s string) (Exchange, error) {
	e := Exchange(s)
	if !e.Valid() {
		return "", fmt.Errorf("unknown exchange %q", s)
	}
	return e, nil
}

// Confidence is reported either as a number or as free text, depending on
// the analysis that produced the record.
type Confidence struct {
	Value float64
	Text  string
}

// IsText reports whether the confidence was given as text.
func (c Confidence) IsText() bool { return c.Text != "" }

func (c Confidence) String() string {
	if c.IsText() {
		return c.Text
	}
	return strconv.FormatFloat(c.Value, 'f', -1, 64)
}

// UnmarshalJSON accepts a JSON number or string.
func (c *Confidence) UnmarshalJSON(data []byte) error {
	*c = Confidence{}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &c.Text)
	}
	return json.Unmarshal(data, &c.Value)
}

// MarshalJSON writes the confidence back in the form it was received.
func (c Confidence) MarshalJSON() ([]byte, error) {
	if c.IsText() {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Value)
}

// TargetBand is the [low, high] price target pair.
type TargetBand struct {
	Low  float64
	High float64
}

// UnmarshalJSON decodes a two-element JSON array.
func (b *TargetBand) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("target_band: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("target_band: want 2 values, got %d", len(pair))
	}
	b.Low, b.High = pair[0], pair[1]
	return nil
}

// MarshalJSON encodes the band as a two-element JSON array.
func (b TargetBand) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{b.Low, b.High})
}

// Recommendation is a single ranked record. Ticker is the unique merge key.
type Recommendation struct {
	Ticker          string      `json:"ticker" validate:"required"`
	CompositeScore  float64     `json:"composite_score"`
	Classification  string      `json:"classification"`
	HoldingDuration string      `json:"holding_duration"`
	Confidence      Confidence  `json:"confidence"`
	Rationale       string      `json:"rationale"`
	StopLoss        *float64    `json:"stop_loss,omitempty"`
	TargetBand      *TargetBand `json:"target_band,omitempty"`
	Cap             Cap         `json:"cap,omitempty" validate:"omitempty,oneof=small mid large"`
	Evidence        []string    `json:"evidence,omitempty"`
	Timestamp       string      `json:"timestamp,omitempty"`
}

// PageResponse is the body of GET /recommendations/top.
type PageResponse struct {
	Timestamp       string           `json:"timestamp,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
	Disclaimer      string           `json:"disclaimer,omitempty"`
}

// LookupResponse is the body of a single-ticker analysis. Exactly one of
// Recommendation or Note is set.
type LookupResponse struct {
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	Note           string          `json:"note,omitempty"`
}

// HasData reports whether the lookup produced a recommendation rather than
// an informational note.
func (r *LookupResponse) HasData() bool {
	return r != nil && r.Recommendation != nil
}

// Health is the opaque health-check object, kept verbatim for display.
type Health map[string]any
