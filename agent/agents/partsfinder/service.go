// Package partsfinder drives the conversational parts-procurement flow: an
// explicit phase machine whose state is checkpointed before every point that
// waits on user input, so any turn can be served by any process.
package partsfinder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	nodex "github.com/partsdesk/partsdesk/agent/nodes"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message text is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

// exitSentinels end the conversation from any phase.
var exitSentinels = map[string]struct{}{
	"salir": {},
	"exit":  {},
	"quit":  {},
}

// Reply is one agent turn plus the control flags the UI shell renders.
type Reply struct {
	Message string
	// Concluded is set when the conversation ended this turn (order placed,
	// cancelled, or exit sentinel).
	Concluded bool
	// AwaitingInput names the phase persisted for the next turn.
	AwaitingInput statex.Phase
}

// Agent owns the per-turn pipeline. All collaborators are injected; nothing
// here reaches for process-global state.
type Agent struct {
	store     statex.Store
	caps      contractx.Capabilities
	embedder  contractx.Embedder
	catalog   contractx.Catalog
	publisher contractx.OrderPublisher
	mailer    contractx.SupplierMailer

	now func() time.Time
}

type Option func(*Agent)

// WithPublisher attaches the fulfillment queue. Optional; without it order
// artifacts live only in the conversation output.
func WithPublisher(p contractx.OrderPublisher) Option {
	return func(a *Agent) { a.publisher = p }
}

// WithMailer attaches the supplier quotation mailer. Optional.
func WithMailer(m contractx.SupplierMailer) Option {
	return func(a *Agent) { a.mailer = m }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func New(store statex.Store, caps contractx.Capabilities, embedder contractx.Embedder, catalog contractx.Catalog, opts ...Option) (*Agent, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if caps == nil {
		return nil, errors.New("model capabilities are required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}

	a := &Agent{
		store:    store,
		caps:     caps,
		embedder: embedder,
		catalog:  catalog,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// HandleMessage runs one turn: load the conversation, dispatch on its phase,
// checkpoint, reply. Every path through here saves before returning, so a
// crash between turns loses at most the turn in flight.
func (a *Agent) HandleMessage(ctx context.Context, sessionID, text string) (Reply, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Reply{}, ErrInvalidSession
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrInvalidMessage
	}

	if _, exit := exitSentinels[strings.ToLower(text)]; exit {
		if err := a.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, statex.ErrStateNotFound) {
			log.Warn().Err(err).Str("session", sessionID).Msg("state delete failed on exit")
		}
		return Reply{
			Message:       "¡Hasta pronto! Cuando necesites repuestos, aquí estaré.",
			Concluded:     true,
			AwaitingInput: statex.PhaseAwaitingRequest,
		}, nil
	}

	convo, err := a.loadOrCreate(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	convo.AppendUser(text)

	var reply Reply
	switch convo.Phase {
	case statex.PhaseAwaitingRequest, statex.PhaseAwaitingDetails:
		reply = a.runSearch(ctx, convo)
	case statex.PhaseAwaitingSelection:
		reply = a.runSelection(ctx, convo, text)
	case statex.PhaseAwaitingRestockChoice:
		reply = a.runRestockChoice(ctx, convo, text)
	default:
		// Unknown phase in a stored blob; start over rather than wedge the
		// session forever.
		log.Error().Str("session", sessionID).Str("phase", string(convo.Phase)).Msg("unknown phase, resetting")
		convo.Conclude(a.now())
		convo.AppendUser(text)
		reply = a.runSearch(ctx, convo)
	}

	if !reply.Concluded {
		convo.AppendAgent(reply.Message)
	}
	convo.Touch(a.now())
	reply.AwaitingInput = convo.Phase

	if err := a.store.Save(ctx, convo); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

func (a *Agent) loadOrCreate(ctx context.Context, sessionID string) (*statex.Conversation, error) {
	convo, err := a.store.Load(ctx, sessionID)
	if errors.Is(err, statex.ErrStateNotFound) {
		return statex.NewConversation(sessionID, a.now()), nil
	}
	if err != nil {
		return nil, err
	}
	convo.EnsureIndices()
	return convo, nil
}

// runSearch is the front half of the flow: intent gate, extraction,
// completeness verification, the two-pass catalog resolution, the stock
// gate, and finally ranking.
func (a *Agent) runSearch(ctx context.Context, convo *statex.Conversation) Reply {
	ok, redirect := nodex.ClassifyIntent(ctx, convo, a.caps)
	if !ok {
		convo.Phase = statex.PhaseAwaitingRequest
		return Reply{Message: redirect}
	}

	if !nodex.ExtractRequests(ctx, convo, a.caps) {
		// The request list is untouched on an extraction failure; ask the
		// user to rephrase instead of verifying stale input.
		if len(convo.Requests) == 0 {
			convo.Phase = statex.PhaseAwaitingRequest
		}
		return Reply{Message: "No pude interpretar tu solicitud. ¿Puedes describir de nuevo qué repuestos necesitas?"}
	}

	if msg := nodex.VerifyRequests(ctx, convo, a.caps); msg != "" {
		convo.Phase = statex.PhaseAwaitingDetails
		return Reply{Message: msg}
	}
	convo.RestartSearch = false
	confirmation := searchConfirmation(convo.Requests)

	nodex.ResolveInternal(ctx, convo, a.embedder, a.catalog)
	notes := nodex.ResolveExternal(ctx, convo, a.embedder, a.catalog)

	if len(convo.Internal) == 0 && len(convo.External) == 0 {
		msg := strings.Join(notes, "\n")
		if msg == "" {
			msg = "No encontré los productos solicitados en ningún catálogo."
		}
		convo.ResetSearch(a.now())
		return Reply{Message: msg + "\n¿Quieres intentar con otra descripción u otros productos?"}
	}

	if stockMsg := nodex.CheckStock(convo); stockMsg != "" {
		convo.Phase = statex.PhaseAwaitingRestockChoice
		return Reply{Message: joinNonEmpty(notes, stockMsg)}
	}

	narrative := nodex.RankAndPresent(ctx, convo, a.caps)
	convo.Phase = statex.PhaseAwaitingSelection
	return Reply{Message: joinNonEmpty(append([]string{confirmation}, notes...), narrative)}
}

// searchConfirmation enumerates what is about to be searched, so the user
// can spot a misunderstood item before options arrive.
func searchConfirmation(requests []statex.ProductRequest) string {
	if len(requests) == 0 {
		return ""
	}
	parts := make([]string, 0, len(requests))
	for _, r := range requests {
		parts = append(parts, fmt.Sprintf("%s (x%d)", r.Name, r.Quantity))
	}
	return "Buscando: " + strings.Join(parts, ", ") + "."
}

// runSelection resumes at the human-in-the-loop point after ranking.
func (a *Agent) runSelection(ctx context.Context, convo *statex.Conversation, text string) Reply {
	outcome := nodex.InterpretSelection(ctx, convo, a.caps, text)

	switch outcome.Verdict {
	case nodex.SelectionCancelled:
		convo.Conclude(a.now())
		return Reply{Message: outcome.Message, Concluded: true}

	case nodex.SelectionConfirmed:
		artifact, summary := nodex.ComposeOrder(ctx, convo, outcome.Kind, a.now(), a.publisher, a.mailer)
		log.Info().
			Str("session", convo.SessionID).
			Str("order", artifact.OrderID).
			Str("kind", string(artifact.Kind)).
			Float64("total", artifact.TotalCost).
			Msg("order composed")

		message := joinNonEmpty([]string{outcome.Message}, summary)
		convo.Conclude(a.now())
		return Reply{Message: message, Concluded: true}

	default:
		// Stay in the selection phase; the pool and ranking remain valid.
		return Reply{Message: outcome.Message}
	}
}

// runRestockChoice resumes after the stock gate halted the flow.
func (a *Agent) runRestockChoice(ctx context.Context, convo *statex.Conversation, text string) Reply {
	switch nodex.InterpretNoStock(ctx, a.caps, text) {
	case contractx.NoStockNewSearch:
		convo.ResetSearch(a.now())
		return Reply{Message: "Perfecto, empecemos de nuevo. ¿Qué repuestos necesitas?"}
	case contractx.NoStockCancel:
		convo.Conclude(a.now())
		return Reply{Message: "Entendido, quedo atento si necesitas algo más. ¡Hasta pronto!", Concluded: true}
	default:
		return Reply{Message: "No me quedó claro. ¿Quieres iniciar una nueva búsqueda con otros productos, o cancelar?"}
	}
}

func joinNonEmpty(parts []string, last string) string {
	out := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	if strings.TrimSpace(last) != "" {
		out = append(out, last)
	}
	return strings.Join(out, "\n\n")
}
