// Package nodes holds the per-turn steps of the parts-search flow. Each node
// mutates the conversation and degrades to a safe default when a model call
// fails; a broken model never kills a turn.
package nodes

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

// ClassifyIntent gates the flow on the conversation being about parts at
// all. Returns ok=false with a redirect message for off-topic chatter. A
// classifier failure lets the turn proceed; extraction will produce nothing
// useful for genuinely off-topic input anyway.
func ClassifyIntent(ctx context.Context, convo *statex.Conversation, caps contractx.Capabilities) (bool, string) {
	result, err := caps.ClassifyIntent(ctx, convo.Messages)
	if err != nil {
		log.Warn().Err(err).Str("session", convo.SessionID).Msg("intent classification failed, proceeding")
		return true, ""
	}
	if result.IsPartsRequest {
		return true, ""
	}

	redirect := result.Message
	if redirect == "" {
		redirect = "Solo puedo ayudarte con la búsqueda y compra de repuestos industriales. ¿Qué repuesto necesitas?"
	}
	return false, redirect
}
