package nodes

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
)

var (
	newSearchWords = []string{"nueva", "buscar", "otra", "otro", "otros", "si", "sí", "continuar", "de nuevo"}
	endWords       = []string{"cancelar", "cancela", "no", "terminar", "salir", "nada"}
)

// InterpretNoStock resolves the user's answer to the no-stock prompt. The
// model interprets first; a token-level keyword scan covers outages only. An
// ambiguous verdict from a healthy model stands — the caller re-prompts — so
// a hesitant "no sé qué hacer" is never read as a cancellation. Within the
// fallback, cancel keywords win over new-search keywords because "no, otra
// cosa no" should end the flow, not restart it.
func InterpretNoStock(ctx context.Context, caps contractx.Capabilities, userText string) contractx.NoStockDecision {
	decision, err := caps.InterpretNoStockReply(ctx, userText)
	if err != nil {
		log.Warn().Err(err).Msg("no-stock interpretation failed, using keyword fallback")
		return keywordNoStock(userText)
	}
	return decision
}

func keywordNoStock(userText string) contractx.NoStockDecision {
	tokens := strings.Fields(strings.ToLower(userText))
	has := func(words []string) bool {
		for _, tok := range tokens {
			tok = strings.Trim(tok, ".,;:!?¡¿")
			for _, w := range words {
				if tok == w {
					return true
				}
			}
		}
		return false
	}

	if has(endWords) {
		return contractx.NoStockCancel
	}
	if has(newSearchWords) {
		return contractx.NoStockNewSearch
	}
	return contractx.NoStockAmbiguous
}
