package nodes

import (
	statex "github.com/partsdesk/partsdesk/agent/state"
)

// CheckStock applies the global stock gate: the flow continues to ranking
// only when at least one candidate anywhere in the pool has positive stock.
// Returns the no-stock prompt when the gate halts the flow.
func CheckStock(convo *statex.Conversation) string {
	convo.StockAvailable = convo.HasAnyStock()
	if convo.StockAvailable {
		return ""
	}
	return "Encontré los productos que buscas, pero ninguna de las opciones tiene stock disponible en este momento. ¿Quieres iniciar una nueva búsqueda con otros productos, o prefieres cancelar?"
}
