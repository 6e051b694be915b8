package nodes

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

// SelectionVerdict is what a selection turn produced.
type SelectionVerdict int

const (
	// SelectionRetry means the reply did not resolve to a valid selection;
	// Message carries the re-prompt and the phase does not advance.
	SelectionRetry SelectionVerdict = iota
	// SelectionConfirmed means convo.Selections is populated.
	SelectionConfirmed
	// SelectionCancelled means the user declined the purchase.
	SelectionCancelled
)

// SelectionOutcome bundles the verdict with its user-facing message and the
// order classification needed by composition.
type SelectionOutcome struct {
	Verdict SelectionVerdict
	Message string
	Kind    contractx.OrderKind
}

// InterpretSelection resolves a free-text reply against the presented
// options. The model interprets first; a pattern-matching fallback covers
// model outages and unrecognized verdicts. Validation is all-or-nothing: one
// unknown code rejects the whole reply so the user never half-orders.
func InterpretSelection(ctx context.Context, convo *statex.Conversation, caps contractx.Capabilities, userText string) SelectionOutcome {
	available := convo.AvailableCodes()

	intent, err := caps.InterpretSelection(ctx, available, userText)
	if err != nil {
		// Fallback fires on capability failure only; an "unrecognized"
		// verdict from a healthy model is a real re-prompt.
		log.Warn().Err(err).Str("session", convo.SessionID).Msg("selection interpretation failed, using pattern fallback")
		intent = heuristicSelection(userText, available)
	}

	switch intent.Action {
	case contractx.ActionCancel:
		return SelectionOutcome{
			Verdict: SelectionCancelled,
			Message: "Entendido, he cancelado la compra. Si necesitas repuestos más adelante, aquí estaré.",
		}
	case contractx.ActionConfirmAll:
		return confirmSelections(convo, recommendedSelection(convo))
	case contractx.ActionSelectCodes:
		return resolveExplicitSelection(convo, intent.Items)
	default:
		return SelectionOutcome{
			Verdict: SelectionRetry,
			Message: withOptionsBlock(convo, "No entendí tu selección. Puedes responder con los códigos que deseas (por ejemplo \"2 R-1034\"), \"confirmar todo\" o \"cancelar\"."),
		}
	}
}

// availableOptionsBlock re-renders every valid option so a retry prompt is
// self-contained and the user never has to scroll back.
func availableOptionsBlock(convo *statex.Conversation) string {
	codes := convo.AvailableCodes()
	if len(codes) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Opciones disponibles:")
	for _, code := range codes {
		cand, ok := convo.FindCandidate(code)
		if !ok {
			continue
		}
		origin := "inventario propio"
		supplier := cand.StockLocation
		if cand.SupplierType == statex.SupplierExternal {
			origin = "proveedor externo"
			supplier = cand.SupplierName
		}
		fmt.Fprintf(&sb, "\n- %s: %s (%s", code, cand.Description, origin)
		if supplier != "" {
			fmt.Fprintf(&sb, ", %s", supplier)
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func withOptionsBlock(convo *statex.Conversation, msg string) string {
	block := availableOptionsBlock(convo)
	if block == "" {
		return msg
	}
	return msg + "\n\n" + block
}

// recommendedSelection is the confirm-all expansion: one line per currently
// valid code, at quantity 1.
func recommendedSelection(convo *statex.Conversation) []contractx.SelectedCode {
	codes := convo.AvailableCodes()
	items := make([]contractx.SelectedCode, 0, len(codes))
	for _, code := range codes {
		items = append(items, contractx.SelectedCode{Code: code, Quantity: 1})
	}
	return items
}

func resolveExplicitSelection(convo *statex.Conversation, items []contractx.SelectedCode) SelectionOutcome {
	if len(items) == 0 {
		return SelectionOutcome{
			Verdict: SelectionRetry,
			Message: withOptionsBlock(convo, "No identifiqué ningún código en tu respuesta. Indica los códigos que deseas confirmar, por ejemplo \"2 R-1034\"."),
		}
	}

	valid := make(map[string]struct{})
	for _, code := range convo.AvailableCodes() {
		valid[code] = struct{}{}
	}

	var invalid []string
	for _, item := range items {
		if _, ok := valid[item.Code]; !ok {
			invalid = append(invalid, item.Code)
		}
	}
	if len(invalid) > 0 {
		return SelectionOutcome{
			Verdict: SelectionRetry,
			Message: withOptionsBlock(convo, fmt.Sprintf("Estos códigos no corresponden a las opciones mostradas: %s. Por favor usa únicamente los códigos de la lista.", strings.Join(invalid, ", "))),
		}
	}

	return confirmSelections(convo, items)
}

// confirmSelections denormalizes the picked candidates into line items,
// defaulting unspecified quantities to one unit.
func confirmSelections(convo *statex.Conversation, items []contractx.SelectedCode) SelectionOutcome {
	if len(items) == 0 {
		return SelectionOutcome{
			Verdict: SelectionRetry,
			Message: "No hay opciones disponibles para confirmar. Puedes iniciar una nueva búsqueda o cancelar.",
		}
	}

	var (
		selections []statex.Selection
		warnings   []string
		internal   bool
		external   bool
	)

	for _, item := range items {
		cand, ok := convo.FindCandidate(item.Code)
		if !ok {
			// Codes were validated upstream; a miss here means the pool
			// mutated mid-turn, treat it as a retry.
			return SelectionOutcome{
				Verdict: SelectionRetry,
				Message: fmt.Sprintf("El código %s ya no está disponible. Revisa las opciones mostradas e intenta de nuevo.", item.Code),
			}
		}

		// Unspecified quantity means one unit.
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}

		if cand.AvailableStock < qty {
			warnings = append(warnings, fmt.Sprintf("- %s: pediste %d y solo hay %d en stock; el resto quedará pendiente de reposición.", cand.Code, qty, cand.AvailableStock))
		}

		switch cand.SupplierType {
		case statex.SupplierInternal:
			internal = true
		case statex.SupplierExternal:
			external = true
		}

		selections = append(selections, statex.Selection{
			Code:           cand.Code,
			Quantity:       qty,
			SupplierType:   cand.SupplierType,
			Description:    cand.Description,
			Brand:          cand.Brand,
			SupplierName:   cand.SupplierName,
			UnitCost:       cand.UnitCost,
			AvailableStock: cand.AvailableStock,
			LeadTimeDays:   cand.LeadTimeDays,
			StockLocation:  cand.StockLocation,
		})
	}

	convo.Selections = selections
	convo.SelectionDone = true

	kind := contractx.OrderInternalOnly
	switch {
	case internal && external:
		kind = contractx.OrderBoth
	case external:
		kind = contractx.OrderExternalOnly
	}

	var msg string
	if len(warnings) > 0 {
		msg = "Atención sobre el stock:\n" + strings.Join(warnings, "\n")
	}
	return SelectionOutcome{Verdict: SelectionConfirmed, Message: msg, Kind: kind}
}

var (
	confirmAllWords = []string{"confirmar todo", "confirmo todo", "todo", "si", "sí", "ok", "dale", "de acuerdo", "acepto"}
	cancelWords     = []string{"cancelar", "cancela", "no quiero", "no gracias", "nada"}

	qtyBeforeCode = regexp.MustCompile(`(?i)(\d+)\s+(R-\d{4})`)
	codeTimesQty  = regexp.MustCompile(`(?i)(R-\d{4})\s*x\s*(\d+)`)
	codeParenQty  = regexp.MustCompile(`(?i)(R-\d{4})\s*\(\s*(\d+)\s*\)`)
	unitsOfCode   = regexp.MustCompile(`(?i)(\d+)\s+(?:unidades?|units?)\s+(?:de|del|of)\s+(R-\d{4})`)
	bareCode      = regexp.MustCompile(`(?i)R-\d{4}`)
)

// heuristicSelection is the model-free interpreter: keyword checks for
// confirm/cancel, then quantity-code patterns, then bare codes.
func heuristicSelection(userText string, available []string) contractx.SelectionIntent {
	normalized := strings.ToLower(strings.TrimSpace(userText))

	for _, w := range cancelWords {
		if strings.Contains(normalized, w) {
			return contractx.SelectionIntent{Action: contractx.ActionCancel, Confidence: 0.6}
		}
	}
	for _, w := range confirmAllWords {
		if normalized == w || strings.Contains(normalized, "confirmar todo") || strings.Contains(normalized, "confirmo todo") {
			return contractx.SelectionIntent{Action: contractx.ActionConfirmAll, Confidence: 0.6}
		}
	}

	validSet := make(map[string]struct{}, len(available))
	for _, code := range available {
		validSet[strings.ToUpper(code)] = struct{}{}
	}

	quantities := make(map[string]int)
	order := make([]string, 0, 4)

	record := func(code string, qty int) {
		code = strings.ToUpper(code)
		if _, ok := validSet[code]; !ok {
			return
		}
		if _, seen := quantities[code]; !seen {
			order = append(order, code)
		}
		if qty > quantities[code] {
			quantities[code] = qty
		}
	}

	for _, m := range qtyBeforeCode.FindAllStringSubmatch(userText, -1) {
		qty, _ := strconv.Atoi(m[1])
		record(m[2], qty)
	}
	for _, m := range codeTimesQty.FindAllStringSubmatch(userText, -1) {
		qty, _ := strconv.Atoi(m[2])
		record(m[1], qty)
	}
	for _, m := range codeParenQty.FindAllStringSubmatch(userText, -1) {
		qty, _ := strconv.Atoi(m[2])
		record(m[1], qty)
	}
	for _, m := range unitsOfCode.FindAllStringSubmatch(userText, -1) {
		qty, _ := strconv.Atoi(m[1])
		record(m[2], qty)
	}
	for _, code := range bareCode.FindAllString(userText, -1) {
		record(code, 0)
	}

	if len(order) == 0 {
		return contractx.SelectionIntent{Action: contractx.ActionUnrecognized, Confidence: 0}
	}

	items := make([]contractx.SelectedCode, 0, len(order))
	for _, code := range order {
		items = append(items, contractx.SelectedCode{Code: code, Quantity: quantities[code]})
	}
	return contractx.SelectionIntent{Action: contractx.ActionSelectCodes, Items: items, Confidence: 0.5}
}
