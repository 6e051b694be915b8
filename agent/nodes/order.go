package nodes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

// ComposeOrder turns the confirmed selections into the order artifact:
// a warehouse pickup order for internal lines, one quotation email per
// external supplier, and a delivery estimate pinned to the slowest line.
// The artifact is published and mailed best-effort; the summary goes back to
// the user regardless.
func ComposeOrder(ctx context.Context, convo *statex.Conversation, kind contractx.OrderKind, now time.Time, publisher contractx.OrderPublisher, mailer contractx.SupplierMailer) (contractx.OrderArtifact, string) {
	artifact := contractx.OrderArtifact{
		OrderID:    uuid.NewString(),
		SessionID:  convo.SessionID,
		Kind:       kind,
		Selections: convo.Selections,
	}

	var internal, external []statex.Selection
	for _, sel := range convo.Selections {
		artifact.TotalCost += float64(sel.Quantity) * sel.UnitCost
		if sel.LeadTimeDays > artifact.MaxLeadDays {
			artifact.MaxLeadDays = sel.LeadTimeDays
		}
		if sel.SupplierType == statex.SupplierInternal {
			internal = append(internal, sel)
		} else {
			external = append(external, sel)
		}
	}
	artifact.EstimatedDate = now.AddDate(0, 0, artifact.MaxLeadDays).Format("2006-01-02")

	if len(internal) > 0 {
		artifact.PickupOrder = composePickupOrder(artifact.OrderID, internal)
	}
	if len(external) > 0 {
		artifact.Emails = composeSupplierEmails(artifact.OrderID, external)
	}

	if publisher != nil {
		if err := publisher.PublishOrder(ctx, artifact); err != nil {
			log.Error().Err(err).Str("order", artifact.OrderID).Msg("order publish failed")
		}
	}
	if mailer != nil {
		for _, email := range artifact.Emails {
			if err := mailer.SendQuotation(ctx, email); err != nil {
				log.Error().Err(err).Str("order", artifact.OrderID).Str("supplier", email.Supplier).Msg("quotation email failed")
			}
		}
	}

	return artifact, orderSummary(artifact, internal, external)
}

// composePickupOrder groups internal lines by warehouse so each location
// gets its own picking section.
func composePickupOrder(orderID string, lines []statex.Selection) string {
	byLocation := make(map[string][]statex.Selection)
	for _, sel := range lines {
		loc := sel.StockLocation
		if loc == "" {
			loc = "Bodega principal"
		}
		byLocation[loc] = append(byLocation[loc], sel)
	}

	locations := make([]string, 0, len(byLocation))
	for loc := range byLocation {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	var sb strings.Builder
	fmt.Fprintf(&sb, "ORDEN DE RETIRO DE BODEGA\nOrden: %s\n\n", orderID)
	for _, loc := range locations {
		fmt.Fprintf(&sb, "Ubicación: %s\n", loc)
		for _, sel := range byLocation[loc] {
			fmt.Fprintf(&sb, "  - %s x%d — %s\n", sel.Code, sel.Quantity, sel.Description)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// composeSupplierEmails writes one quotation request per external supplier.
func composeSupplierEmails(orderID string, lines []statex.Selection) []contractx.SupplierEmail {
	bySupplier := make(map[string][]statex.Selection)
	for _, sel := range lines {
		supplier := sel.SupplierName
		if supplier == "" {
			supplier = "Proveedor"
		}
		bySupplier[supplier] = append(bySupplier[supplier], sel)
	}

	suppliers := make([]string, 0, len(bySupplier))
	for s := range bySupplier {
		suppliers = append(suppliers, s)
	}
	sort.Strings(suppliers)

	emails := make([]contractx.SupplierEmail, 0, len(suppliers))
	for _, supplier := range suppliers {
		items := bySupplier[supplier]

		var sb strings.Builder
		fmt.Fprintf(&sb, "Estimado equipo de %s:\n\n", supplier)
		fmt.Fprintf(&sb, "Solicitamos cotización formal por los siguientes repuestos (referencia interna %s):\n\n", orderID)
		for _, sel := range items {
			fmt.Fprintf(&sb, "  - %s x%d — %s", sel.Code, sel.Quantity, sel.Description)
			if sel.Brand != "" {
				fmt.Fprintf(&sb, " (marca %s)", sel.Brand)
			}
			sb.WriteByte('\n')
		}
		sb.WriteString("\nAgradecemos confirmar precio, disponibilidad y tiempo de entrega.\n\nSaludos cordiales,\nDepartamento de Compras")

		emails = append(emails, contractx.SupplierEmail{
			Supplier: supplier,
			Subject:  "Solicitud de Cotización - Repuestos Industriales",
			Body:     sb.String(),
			Items:    items,
		})
	}
	return emails
}

func orderSummary(artifact contractx.OrderArtifact, internal, external []statex.Selection) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "¡Listo! Tu orden %s quedó registrada.\n\n", artifact.OrderID)
	for _, sel := range artifact.Selections {
		fmt.Fprintf(&sb, "  - %s x%d — %s (%.2f c/u)\n", sel.Code, sel.Quantity, sel.Description, sel.UnitCost)
	}
	fmt.Fprintf(&sb, "\nTotal estimado: %.2f\n", artifact.TotalCost)
	fmt.Fprintf(&sb, "Fecha estimada de entrega: %s (%d días)\n", artifact.EstimatedDate, artifact.MaxLeadDays)

	if len(internal) > 0 {
		sb.WriteString("\nSe generó la orden de retiro de bodega para los ítems de inventario propio.\n")
	}
	if len(external) > 0 {
		fmt.Fprintf(&sb, "\nSe enviaron %d solicitud(es) de cotización a proveedores externos.\n", len(artifact.Emails))
	}
	sb.WriteString("\n¿Necesitas algo más?")
	return sb.String()
}
