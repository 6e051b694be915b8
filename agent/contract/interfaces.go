package contract

import (
	"context"

	statex "github.com/partsdesk/partsdesk/agent/state"
)

// Capabilities groups the language-model call shapes the state machine
// depends on. Every call is unreliable by contract: nodes catch failures and
// degrade to a heuristic or a safe default, never to a fatal turn.
type Capabilities interface {
	// ClassifyIntent decides whether the transcript is a parts request.
	ClassifyIntent(ctx context.Context, transcript []statex.Message) (IntentResult, error)
	// ExtractProducts turns the transcript into (description, quantity) pairs.
	ExtractProducts(ctx context.Context, transcript []statex.Message) ([]ExtractedProduct, error)
	// VerifyProduct checks one item description for search-worthiness.
	VerifyProduct(ctx context.Context, description string) (Verification, error)
	// RankCandidates turns a formatted candidate block into prose
	// recommendations.
	RankCandidates(ctx context.Context, formatted string) (string, error)
	// InterpretSelection maps a free-text reply onto one of four actions
	// constrained to the currently valid codes.
	InterpretSelection(ctx context.Context, availableCodes []string, userText string) (SelectionIntent, error)
	// InterpretNoStockReply maps a free-text reply onto new-search/cancel.
	InterpretNoStockReply(ctx context.Context, userText string) (NoStockDecision, error)
}

// Embedder is the text -> fixed-length vector capability. Pure and
// deterministic for a given text and model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Catalog is the partitioned similarity-search collection contract.
type Catalog interface {
	// SimilaritySearch runs an approximate nearest-neighbour query over a
	// bounded candidate window, then filters to the given partition.
	SimilaritySearch(ctx context.Context, vector []float32, partition statex.SupplierType, window, limit int) ([]statex.Candidate, error)
	// ExactMatch looks up a code within a partition. Hits carry no score;
	// the caller assigns 1.0.
	ExactMatch(ctx context.Context, code string, partition statex.SupplierType) ([]statex.Candidate, error)
}

// OrderPublisher hands a finalized order artifact to downstream fulfillment.
// Delivery is best-effort; failures are logged, not surfaced to the user.
type OrderPublisher interface {
	PublishOrder(ctx context.Context, artifact OrderArtifact) error
}

// SupplierMailer sends composed quotation emails. Best-effort as well: the
// composed email text is part of the conversation output either way.
type SupplierMailer interface {
	SendQuotation(ctx context.Context, email SupplierEmail) error
}
