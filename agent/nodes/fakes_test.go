package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

var errBoom = errors.New("boom")

type fakeCaps struct {
	intent    contractx.IntentResult
	intentErr error

	extracted  []contractx.ExtractedProduct
	extractErr error

	verdicts  map[string]contractx.Verification
	verifyErr error

	narrative string
	rankErr   error

	selection    contractx.SelectionIntent
	selectionErr error

	noStock    contractx.NoStockDecision
	noStockErr error
}

func (f *fakeCaps) ClassifyIntent(ctx context.Context, transcript []statex.Message) (contractx.IntentResult, error) {
	if f.intentErr != nil {
		return contractx.IntentResult{}, f.intentErr
	}
	return f.intent, nil
}

func (f *fakeCaps) ExtractProducts(ctx context.Context, transcript []statex.Message) ([]contractx.ExtractedProduct, error) {
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return f.extracted, nil
}

func (f *fakeCaps) VerifyProduct(ctx context.Context, description string) (contractx.Verification, error) {
	if f.verifyErr != nil {
		return contractx.Verification{}, f.verifyErr
	}
	if v, ok := f.verdicts[description]; ok {
		return v, nil
	}
	return contractx.Verification{Complete: true}, nil
}

func (f *fakeCaps) RankCandidates(ctx context.Context, formatted string) (string, error) {
	if f.rankErr != nil {
		return "", f.rankErr
	}
	return f.narrative, nil
}

func (f *fakeCaps) InterpretSelection(ctx context.Context, availableCodes []string, userText string) (contractx.SelectionIntent, error) {
	if f.selectionErr != nil {
		return contractx.SelectionIntent{}, f.selectionErr
	}
	return f.selection, nil
}

func (f *fakeCaps) InterpretNoStockReply(ctx context.Context, userText string) (contractx.NoStockDecision, error) {
	if f.noStockErr != nil {
		return contractx.NoStockAmbiguous, f.noStockErr
	}
	return f.noStock, nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeCatalog struct {
	similar    map[statex.SupplierType][]statex.Candidate
	similarErr error

	exact    map[string][]statex.Candidate
	exactErr error

	searches int
}

func (f *fakeCatalog) SimilaritySearch(ctx context.Context, vector []float32, partition statex.SupplierType, window, limit int) ([]statex.Candidate, error) {
	f.searches++
	if f.similarErr != nil {
		return nil, f.similarErr
	}
	return append([]statex.Candidate(nil), f.similar[partition]...), nil
}

func (f *fakeCatalog) ExactMatch(ctx context.Context, code string, partition statex.SupplierType) ([]statex.Candidate, error) {
	if f.exactErr != nil {
		return nil, f.exactErr
	}
	return append([]statex.Candidate(nil), f.exact[fmt.Sprintf("%s/%s", partition, code)]...), nil
}

func internalCandidate(code string, stock int, score float64) statex.Candidate {
	return statex.Candidate{
		Code:           code,
		Description:    "rodamiento 6205",
		SupplierType:   statex.SupplierInternal,
		UnitCost:       12.5,
		AvailableStock: stock,
		LeadTimeDays:   1,
		StockLocation:  "Bodega A",
		Score:          score,
	}
}

func externalCandidate(code, supplier string, stock int, score float64) statex.Candidate {
	return statex.Candidate{
		Code:           code,
		Description:    "rodamiento 6205",
		SupplierType:   statex.SupplierExternal,
		SupplierName:   supplier,
		UnitCost:       14.0,
		AvailableStock: stock,
		LeadTimeDays:   7,
		Score:          score,
	}
}

func newTestConversation() *statex.Conversation {
	return statex.NewConversation("session-1", time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
}
