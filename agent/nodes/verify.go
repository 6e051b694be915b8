package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

// VerifyRequests checks every not-yet-complete request for search-worthiness
// and sets the conversation's completeness flag. The search proceeds only
// when EVERY request is complete; the returned message, when non-empty, asks
// the user for the missing details.
//
// A verification failure marks the item incomplete rather than guessing: the
// cost of one extra clarifying question is lower than a garbage search.
func VerifyRequests(ctx context.Context, convo *statex.Conversation, caps contractx.Capabilities) string {
	if len(convo.Requests) == 0 {
		convo.InfoComplete = false
		return "No logré identificar ningún repuesto en tu mensaje. ¿Puedes describir qué pieza necesitas, con marca, modelo o medida si los conoces?"
	}

	for i := range convo.Requests {
		req := &convo.Requests[i]
		if !req.InfoNeeded {
			continue
		}

		verdict, err := caps.VerifyProduct(ctx, req.Name)
		if err != nil {
			log.Warn().Err(err).Str("session", convo.SessionID).Str("item", req.Name).Msg("verification failed, asking for details")
			req.InfoNeeded = true
			req.MissingInfo = []string{"detalles"}
			req.Reason = "no se pudo verificar la solicitud"
			continue
		}

		req.InfoNeeded = !verdict.Complete
		req.Reason = verdict.Reason
		if verdict.Complete {
			req.MissingInfo = nil
		} else {
			req.MissingInfo = verdict.MissingFields
			if len(req.MissingInfo) == 0 {
				req.MissingInfo = []string{"detalles"}
			}
		}
	}

	incomplete := 0
	for _, r := range convo.Requests {
		if r.InfoNeeded {
			incomplete++
		}
	}

	convo.InfoComplete = incomplete == 0
	if convo.InfoComplete {
		return ""
	}
	return missingDetailsMessage(convo.Requests)
}

// missingDetailsMessage asks for what is missing while confirming the items
// that are already search-ready, so the user knows those were understood.
func missingDetailsMessage(requests []statex.ProductRequest) string {
	var sb strings.Builder
	sb.WriteString("Necesito un poco más de información para buscar con precisión:\n")
	for _, r := range requests {
		if r.InfoNeeded {
			sb.WriteString(fmt.Sprintf("- %s: falta %s", r.Name, strings.Join(r.MissingInfo, ", ")))
			sb.WriteByte('\n')
		}
	}

	var confirmed []string
	for _, r := range requests {
		if !r.InfoNeeded {
			confirmed = append(confirmed, fmt.Sprintf("- %s (x%d)", r.Name, r.Quantity))
		}
	}
	if len(confirmed) > 0 {
		sb.WriteString("Ya tengo listos para buscar:\n")
		sb.WriteString(strings.Join(confirmed, "\n"))
		sb.WriteByte('\n')
	}

	sb.WriteString("¿Puedes completar estos datos?")
	return sb.String()
}
