package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

// RankAndPresent formats the candidate pool per requested item, asks the
// model for a prose recommendation, and records the narrative on the
// conversation. When the model is unavailable the user still gets the full
// option list through a deterministic fallback rendering.
func RankAndPresent(ctx context.Context, convo *statex.Conversation, caps contractx.Capabilities) string {
	formatted := formatCandidateBlocks(convo)

	narrative, err := caps.RankCandidates(ctx, formatted)
	if err != nil {
		log.Warn().Err(err).Str("session", convo.SessionID).Msg("ranking failed, using plain listing")
		narrative = fallbackListing(convo)
	}

	convo.Ranking = narrative
	return narrative
}

// formatCandidateBlocks renders one block per requested ordinal with its
// internal and external options, the model's working material.
func formatCandidateBlocks(convo *statex.Conversation) string {
	var sb strings.Builder
	for i, req := range convo.Requests {
		ordinal := i + 1
		fmt.Fprintf(&sb, "Producto %d: %s (cantidad solicitada: %d)\n", ordinal, req.Name, req.Quantity)

		internal := convo.Internal[ordinal]
		external := convo.External[ordinal]
		if len(internal) == 0 && len(external) == 0 {
			sb.WriteString("  Sin opciones encontradas.\n\n")
			continue
		}

		for _, cand := range internal {
			writeCandidateLine(&sb, cand)
		}
		for _, cand := range external {
			writeCandidateLine(&sb, cand)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func writeCandidateLine(sb *strings.Builder, cand statex.Candidate) {
	origin := "INTERNAL"
	supplier := cand.StockLocation
	if cand.SupplierType == statex.SupplierExternal {
		origin = "EXTERNAL"
		supplier = cand.SupplierName
	}
	fmt.Fprintf(sb, "  [%s] %s — %s", origin, cand.Code, cand.Description)
	if cand.Brand != "" {
		fmt.Fprintf(sb, " (%s", cand.Brand)
		if cand.Model != "" {
			fmt.Fprintf(sb, " %s", cand.Model)
		}
		sb.WriteString(")")
	}
	fmt.Fprintf(sb, " | costo: %.2f %s | stock: %d | entrega: %d días",
		cand.UnitCost, currencyOr(cand.Currency), cand.AvailableStock, cand.LeadTimeDays)
	if supplier != "" {
		fmt.Fprintf(sb, " | %s", supplier)
	}
	sb.WriteByte('\n')
}

func currencyOr(currency string) string {
	if currency == "" {
		return "USD"
	}
	return currency
}

// fallbackListing is the degraded presentation when ranking is down: the raw
// blocks plus the selection instructions the ranking prompt would normally
// produce.
func fallbackListing(convo *statex.Conversation) string {
	var sb strings.Builder
	sb.WriteString("No puedo generar recomendaciones en este momento. Estas son las opciones encontradas:\n\n")
	sb.WriteString(formatCandidateBlocks(convo))
	sb.WriteString("Indica los códigos (y cantidades) que deseas confirmar, responde \"confirmar todo\", o \"cancelar\".")
	return sb.String()
}
