package contract

import (
	statex "github.com/partsdesk/partsdesk/agent/state"
)

// ExtractedProduct is one (description, quantity) pair returned by the
// structured-extraction capability. Quantity below 1 is floored by the node.
type ExtractedProduct struct {
	Description string `json:"descripcion"`
	Quantity    int    `json:"cantidad"`
}

// Verification is the per-item completeness verdict.
type Verification struct {
	Complete      bool     `json:"info_completa"`
	Reason        string   `json:"razon"`
	MissingFields []string `json:"info_faltante,omitempty"`
}

// IntentResult classifies whether the conversation is a parts request at all.
type IntentResult struct {
	IsPartsRequest bool   `json:"is_parts_request"`
	Message        string `json:"message"`
}

// SelectionAction is the four-way intent of a selection reply.
type SelectionAction string

const (
	ActionConfirmAll   SelectionAction = "confirmar_todo"
	ActionSelectCodes  SelectionAction = "seleccionar_codigos"
	ActionCancel       SelectionAction = "cancelar"
	ActionUnrecognized SelectionAction = "no_entendido"
)

// SelectedCode is one code/quantity pair inside a selection intent.
type SelectedCode struct {
	Code     string `json:"codigo"`
	Quantity int    `json:"cantidad"`
}

// SelectionIntent is the interpreted meaning of a free-text selection reply.
type SelectionIntent struct {
	Action     SelectionAction `json:"accion"`
	Items      []SelectedCode  `json:"productos_seleccionados,omitempty"`
	Confidence float64         `json:"confianza"`
	Reason     string          `json:"razon,omitempty"`
}

// NoStockDecision is the interpreted reply to the no-stock prompt.
type NoStockDecision string

const (
	NoStockNewSearch NoStockDecision = "new_search"
	NoStockCancel    NoStockDecision = "cancel"
	NoStockAmbiguous NoStockDecision = "ambiguous"
)

// OrderKind classifies a confirmed order by the partitions it touches.
type OrderKind string

const (
	OrderInternalOnly OrderKind = "internal_only"
	OrderExternalOnly OrderKind = "external_only"
	OrderBoth         OrderKind = "both"
)

// SupplierEmail is one composed quotation email for an external supplier.
type SupplierEmail struct {
	Supplier string            `json:"supplier"`
	Subject  string            `json:"subject"`
	Body     string            `json:"body"`
	Items    []statex.Selection `json:"items"`
}

// OrderArtifact is the finalized output of a confirmed order, published to
// the fulfillment queue and summarized back to the user.
type OrderArtifact struct {
	OrderID       string             `json:"order_id"`
	SessionID     string             `json:"session_id"`
	Kind          OrderKind          `json:"kind"`
	Selections    []statex.Selection `json:"selections"`
	PickupOrder   string             `json:"pickup_order,omitempty"`
	Emails        []SupplierEmail    `json:"emails,omitempty"`
	MaxLeadDays   int                `json:"max_lead_days"`
	EstimatedDate string             `json:"estimated_date"`
	TotalCost     float64            `json:"total_cost"`
}
