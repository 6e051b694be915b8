package nodes

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

// ExtractRequests re-extracts the product list from the full transcript and
// merges it over the existing one. Requests already marked complete are
// frozen: a later extraction can add items or refine incomplete ones, but
// never mutates a completed request. A model failure leaves the request list
// untouched and reports false so the caller can ask the user to rephrase.
func ExtractRequests(ctx context.Context, convo *statex.Conversation, caps contractx.Capabilities) bool {
	extracted, err := caps.ExtractProducts(ctx, convo.Messages)
	if err != nil {
		log.Warn().Err(err).Str("session", convo.SessionID).Msg("extraction failed, keeping previous requests")
		return false
	}

	completed := convo.CompletedRequests()
	merged := make([]statex.ProductRequest, 0, len(completed)+len(extracted))
	merged = append(merged, completed...)

	for _, p := range extracted {
		name := strings.TrimSpace(p.Description)
		if name == "" {
			continue
		}
		if matchesAny(name, completed) {
			continue
		}
		qty := p.Quantity
		if qty < 1 {
			qty = 1
		}
		merged = append(merged, statex.ProductRequest{
			Name:     name,
			Quantity: qty,
			// Verified on the next step.
			InfoNeeded: true,
		})
	}

	convo.Requests = merged
	return true
}

// matchesAny treats an extracted description as a duplicate of a completed
// request when either contains the other, case-insensitively. Re-extraction
// over the same transcript rarely reproduces strings byte-for-byte.
func matchesAny(name string, completed []statex.ProductRequest) bool {
	lower := strings.ToLower(name)
	for _, r := range completed {
		existing := strings.ToLower(r.Name)
		if strings.Contains(lower, existing) || strings.Contains(existing, lower) {
			return true
		}
	}
	return false
}
