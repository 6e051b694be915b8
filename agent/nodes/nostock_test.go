package nodes

import (
	"context"
	"testing"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
)

func TestInterpretNoStockModelDecision(t *testing.T) {
	t.Parallel()

	caps := &fakeCaps{noStock: contractx.NoStockNewSearch}
	if got := InterpretNoStock(context.Background(), caps, "busquemos otra cosa"); got != contractx.NoStockNewSearch {
		t.Fatalf("decision = %s, want new_search", got)
	}
}

func TestInterpretNoStockKeywordFallbackOnFailure(t *testing.T) {
	t.Parallel()

	caps := &fakeCaps{noStockErr: errBoom}

	if got := InterpretNoStock(context.Background(), caps, "sí, busquemos otra cosa"); got != contractx.NoStockNewSearch {
		t.Fatalf("decision = %s, want new_search from keywords", got)
	}
	if got := InterpretNoStock(context.Background(), caps, "mejor cancelar."); got != contractx.NoStockCancel {
		t.Fatalf("decision = %s, want cancel from keywords", got)
	}
	if got := InterpretNoStock(context.Background(), caps, "hmm"); got != contractx.NoStockAmbiguous {
		t.Fatalf("decision = %s, want ambiguous", got)
	}
}

func TestInterpretNoStockCancelWinsOverNewSearch(t *testing.T) {
	t.Parallel()

	caps := &fakeCaps{noStockErr: errBoom}

	// "no" signals cancel even when new-search words are present.
	if got := InterpretNoStock(context.Background(), caps, "no, otra cosa no"); got != contractx.NoStockCancel {
		t.Fatalf("decision = %s, want cancel", got)
	}
}

func TestInterpretNoStockAmbiguousFromHealthyModelStands(t *testing.T) {
	t.Parallel()

	caps := &fakeCaps{noStock: contractx.NoStockAmbiguous}

	// "no sé qué hacer" contains the cancel token "no"; the keyword scan must
	// not override a healthy model's ambiguous verdict into a cancellation.
	if got := InterpretNoStock(context.Background(), caps, "no sé qué hacer"); got != contractx.NoStockAmbiguous {
		t.Fatalf("decision = %s, want ambiguous to stand for a re-prompt", got)
	}
}
