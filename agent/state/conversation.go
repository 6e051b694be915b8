package state

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Conversation is the persistent source-of-truth for one parts-search thread.
// The driver mutates it once per turn and checkpoints it before every
// suspension point (awaiting selection, awaiting restock choice).
type Conversation struct {
	SessionID string `json:"session_id"`

	// Phase tells the driver which input the next user message answers.
	Phase Phase `json:"phase"`

	// Role-tagged transcript. Survives a search restart, cleared only when
	// the conversation concludes.
	Messages []Message `json:"messages,omitempty"`

	// Quantity-aware requests extracted so far. Items with InfoNeeded=false
	// are frozen and must reappear unchanged across extraction cycles.
	Requests []ProductRequest `json:"requests,omitempty"`

	// Resolution indices: request ordinal (1-based) -> ranked candidates,
	// kept separately per origin partition.
	Internal map[int][]Candidate `json:"internal,omitempty"`
	External map[int][]Candidate `json:"external,omitempty"`

	// Requests the internal resolver could not satisfy, carrying exact-match
	// code hints for the external pass.
	Pending []PendingSearch `json:"pending,omitempty"`

	// Last ranking narrative shown to the user. The codes visible in the
	// resolution indices at that moment are the only valid selection codes.
	Ranking string `json:"ranking,omitempty"`

	Selections []Selection `json:"selections,omitempty"`

	// Control flags surfaced to the UI shell each turn.
	InfoComplete   bool `json:"info_complete"`
	StockAvailable bool `json:"stock_available"`
	RestartSearch  bool `json:"restart_search"`
	SelectionDone  bool `json:"selection_done"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Phase is the explicit serializable replacement for graph-runtime
// interrupts: each value names the external input the machine expects next.
type Phase string

const (
	// PhaseAwaitingRequest expects a (possibly first) parts request.
	PhaseAwaitingRequest Phase = "awaiting_request"
	// PhaseAwaitingDetails expects missing details for incomplete items.
	PhaseAwaitingDetails Phase = "awaiting_details"
	// PhaseAwaitingSelection expects a selection against the shown ranking.
	PhaseAwaitingSelection Phase = "awaiting_selection"
	// PhaseAwaitingRestockChoice expects a new-search/cancel decision after
	// the stock gate halted the flow.
	PhaseAwaitingRestockChoice Phase = "awaiting_restock_choice"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ProductRequest tracks one requested item through the completeness cycle.
type ProductRequest struct {
	Name        string   `json:"name"`
	Quantity    int      `json:"quantity"`
	InfoNeeded  bool     `json:"info_needed"`
	MissingInfo []string `json:"missing_info,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// SupplierType partitions the catalog into own inventory vs third parties.
type SupplierType string

const (
	SupplierInternal SupplierType = "INTERNAL"
	SupplierExternal SupplierType = "EXTERNAL"
)

// Candidate is a read-only snapshot of one catalog offering.
type Candidate struct {
	Code           string       `json:"code"`
	Description    string       `json:"description"`
	Brand          string       `json:"brand,omitempty"`
	Model          string       `json:"model,omitempty"`
	Category       string       `json:"category,omitempty"`
	SupplierType   SupplierType `json:"supplier_type"`
	SupplierName   string       `json:"supplier_name,omitempty"`
	SupplierRating int          `json:"supplier_rating,omitempty"`
	UnitCost       float64      `json:"unit_cost"`
	Currency       string       `json:"currency,omitempty"`
	AvailableStock int          `json:"available_stock"`
	LeadTimeDays   int          `json:"lead_time_days"`
	MinOrderQty    int          `json:"min_order_qty,omitempty"`
	StockLocation  string       `json:"stock_location,omitempty"`
	Note           string       `json:"note,omitempty"`
	Score          float64      `json:"score"`
}

// PendingSearch marks a request ordinal the internal resolver handed off to
// the external pass. CodeHints enables exact-match lookup; empty hints fall
// back to semantic search.
type PendingSearch struct {
	Ordinal   int      `json:"ordinal"`
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity"`
	CodeHints []string `json:"code_hints,omitempty"`
}

// Selection is one confirmed line item, denormalized from the candidate the
// user picked so order composition needs no further catalog access.
type Selection struct {
	Code           string       `json:"code"`
	Quantity       int          `json:"quantity"`
	SupplierType   SupplierType `json:"supplier_type"`
	Description    string       `json:"description"`
	Brand          string       `json:"brand,omitempty"`
	SupplierName   string       `json:"supplier_name,omitempty"`
	UnitCost       float64      `json:"unit_cost"`
	AvailableStock int          `json:"available_stock"`
	LeadTimeDays   int          `json:"lead_time_days"`
	StockLocation  string       `json:"stock_location,omitempty"`
}

var (
	ErrNilConversation = errors.New("conversation is nil")
	ErrInvalidSession  = errors.New("session id is empty")
)

func NewConversation(sessionID string, now time.Time) *Conversation {
	return &Conversation{
		SessionID: sessionID,
		Phase:     PhaseAwaitingRequest,
		Internal:  make(map[int][]Candidate, 4),
		External:  make(map[int][]Candidate, 4),
		UpdatedAt: now.UTC(),
	}
}

func (c *Conversation) Touch(now time.Time) {
	c.UpdatedAt = now.UTC()
}

// EnsureIndices makes sure the resolution maps are initialized, e.g. after a
// round-trip through JSON where empty maps decode to nil.
func (c *Conversation) EnsureIndices() {
	if c.Internal == nil {
		c.Internal = make(map[int][]Candidate, 4)
	}
	if c.External == nil {
		c.External = make(map[int][]Candidate, 4)
	}
}

func (c *Conversation) AppendUser(text string) {
	c.Messages = append(c.Messages, Message{Role: RoleUser, Content: text})
}

func (c *Conversation) AppendAgent(text string) {
	c.Messages = append(c.Messages, Message{Role: RoleAgent, Content: text})
}

// LastUserMessage returns the most recent user utterance, or "".
func (c *Conversation) LastUserMessage() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return strings.TrimSpace(c.Messages[i].Content)
		}
	}
	return ""
}

// CompletedRequests returns the requests already marked complete; these are
// immutable across extraction merge cycles.
func (c *Conversation) CompletedRequests() []ProductRequest {
	out := make([]ProductRequest, 0, len(c.Requests))
	for _, r := range c.Requests {
		if !r.InfoNeeded {
			out = append(out, r)
		}
	}
	return out
}

// AvailableCodes lists the distinct codes currently valid for selection:
// everything present in the last-presented resolution indices, internal
// ordinals first, in ordinal order.
func (c *Conversation) AvailableCodes() []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, ordinal := range sortedOrdinals(c.Internal) {
		for _, cand := range c.Internal[ordinal] {
			if _, ok := seen[cand.Code]; ok {
				continue
			}
			seen[cand.Code] = struct{}{}
			codes = append(codes, cand.Code)
		}
	}
	for _, ordinal := range sortedOrdinals(c.External) {
		for _, cand := range c.External[ordinal] {
			if _, ok := seen[cand.Code]; ok {
				continue
			}
			seen[cand.Code] = struct{}{}
			codes = append(codes, cand.Code)
		}
	}
	return codes
}

// FindCandidate resolves a code against the pools, internal partition first.
// The internal copy wins when the same code exists in both partitions.
func (c *Conversation) FindCandidate(code string) (Candidate, bool) {
	for _, ordinal := range sortedOrdinals(c.Internal) {
		for _, cand := range c.Internal[ordinal] {
			if cand.Code == code {
				return cand, true
			}
		}
	}
	for _, ordinal := range sortedOrdinals(c.External) {
		for _, cand := range c.External[ordinal] {
			if cand.Code == code {
				return cand, true
			}
		}
	}
	return Candidate{}, false
}

// KnownCodes returns the set of codes already present in either index, used
// by the external resolver to deduplicate merged results.
func (c *Conversation) KnownCodes() map[string]struct{} {
	known := make(map[string]struct{})
	for _, cands := range c.Internal {
		for _, cand := range cands {
			known[cand.Code] = struct{}{}
		}
	}
	for _, cands := range c.External {
		for _, cand := range cands {
			known[cand.Code] = struct{}{}
		}
	}
	return known
}

// HasAnyStock reports whether any candidate anywhere in the pool carries
// positive stock. This is the global stock gate predicate.
func (c *Conversation) HasAnyStock() bool {
	for _, cands := range c.Internal {
		for _, cand := range cands {
			if cand.AvailableStock > 0 {
				return true
			}
		}
	}
	for _, cands := range c.External {
		for _, cand := range cands {
			if cand.AvailableStock > 0 {
				return true
			}
		}
	}
	return false
}

// ResetSearch clears requests, resolution indices, ranking and the stock
// flag for a fresh search after a no-stock restart. The transcript stays.
func (c *Conversation) ResetSearch(now time.Time) {
	c.Requests = nil
	c.Internal = make(map[int][]Candidate, 4)
	c.External = make(map[int][]Candidate, 4)
	c.Pending = nil
	c.Ranking = ""
	c.Selections = nil
	c.InfoComplete = false
	c.StockAvailable = false
	c.RestartSearch = true
	c.SelectionDone = false
	c.Phase = PhaseAwaitingRequest
	c.Touch(now)
}

// Conclude resets the conversation to initial values after an order was
// placed or cancelled. Unlike ResetSearch it also drops the transcript.
func (c *Conversation) Conclude(now time.Time) {
	*c = *NewConversation(c.SessionID, now)
}

func (c *Conversation) Validate() error {
	if strings.TrimSpace(c.SessionID) == "" {
		return ErrInvalidSession
	}
	switch c.Phase {
	case PhaseAwaitingRequest, PhaseAwaitingDetails, PhaseAwaitingSelection, PhaseAwaitingRestockChoice:
	default:
		return errors.New("unknown conversation phase: " + string(c.Phase))
	}
	for _, r := range c.Requests {
		if r.Quantity < 1 {
			return errors.New("request quantity below 1: " + r.Name)
		}
	}
	return nil
}

func sortedOrdinals[V any](m map[int]V) []int {
	ordinals := make([]int, 0, len(m))
	for ordinal := range m {
		ordinals = append(ordinals, ordinal)
	}
	sort.Ints(ordinals)
	return ordinals
}
