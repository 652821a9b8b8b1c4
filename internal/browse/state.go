package browse

import "stockadvisor/pkg/advisor"

const (
	// PageSize is the number of records requested per page.
	PageSize = 3
	// MaxPages is the fixed browse ceiling; the service's own page count is
	// never consulted.
	MaxPages = 3
)

// Phase is the lifecycle state of the paged view.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseLoading
	PhaseReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// PageState is a snapshot of the paged browsing slice.
type PageState struct {
	Health     advisor.Health
	Records    []advisor.Recommendation
	Cursor     int
	Cap        advisor.CapFilter
	Phase      Phase
	Err        string
	Disclaimer string
}

// Loading reports whether a page request is in flight.
func (s PageState) Loading() bool { return s.Phase == PhaseLoading }

// HasMore reports whether Next can advance the cursor.
func (s PageState) HasMore() bool { return s.Cursor < MaxPages }

// LookupState is a snapshot of the single-ticker lookup slice. It shares
// nothing with PageState.
type LookupState struct {
	Ticker   string
	Exchange advisor.Exchange
	Result   *advisor.LookupResponse
	Loading  bool
	Err      string
}

// RequestKind distinguishes the flows a Request belongs to.
type RequestKind int

const (
	KindMount RequestKind = iota
	KindPage
	KindLookup
)

func (k RequestKind) String() string {
	switch k {
	case KindMount:
		return "mount"
	case KindPage:
		return "page"
	case KindLookup:
		return "lookup"
	default:
		return "unknown"
	}
}

// Request describes one network round trip issued by an action. ID is
// unique and increasing across the controller's lifetime.
type Request struct {
	ID       uint64
	Kind     RequestKind
	Page     int
	Cap      advisor.CapFilter
	Ticker   string
	Exchange advisor.Exchange
}

// Result is the completion of a Request.
type Result struct {
	Request Request
	Health  advisor.Health
	Page    *advisor.PageResponse
	Lookup  *advisor.LookupResponse
	Err     error
}
