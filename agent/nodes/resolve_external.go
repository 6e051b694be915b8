package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

type externalResult struct {
	ordinal    int
	candidates []statex.Candidate
	note       string
}

// ResolveExternal works through the pending queue against the supplier
// partition. Items carrying code hints first try exact code lookup (same
// part, different supplier); only hint-less items or hint misses fall back
// to semantic search. Results already present under another ordinal are
// dropped so the same offering is never shown twice.
//
// Returns one "not available" note per item that no supplier carries.
func ResolveExternal(ctx context.Context, convo *statex.Conversation, embedder contractx.Embedder, cat contractx.Catalog) []string {
	if len(convo.Pending) == 0 {
		return nil
	}

	known := convo.KnownCodes()
	results := make([]externalResult, len(convo.Pending))

	g, gctx := errgroup.WithContext(ctx)
	for i := range convo.Pending {
		pending := convo.Pending[i]
		g.Go(func() error {
			results[i] = resolveOneExternal(gctx, pending, embedder, cat, convo.SessionID)
			return nil
		})
	}
	_ = g.Wait()

	var notes []string
	for _, res := range results {
		deduped := make([]statex.Candidate, 0, len(res.candidates))
		for _, cand := range res.candidates {
			if _, ok := known[cand.Code]; ok {
				continue
			}
			known[cand.Code] = struct{}{}
			deduped = append(deduped, cand)
		}

		if len(deduped) > 0 {
			convo.External[res.ordinal] = capTop(deduped, topCandidates)
			continue
		}
		if res.note != "" {
			notes = append(notes, res.note)
		}
	}

	convo.Pending = nil
	return notes
}

func resolveOneExternal(ctx context.Context, pending statex.PendingSearch, embedder contractx.Embedder, cat contractx.Catalog, sessionID string) externalResult {
	out := externalResult{ordinal: pending.Ordinal}

	// Exact code lookup: the internal pass already identified the part, we
	// only need another supplier carrying it.
	for _, code := range pending.CodeHints {
		hits, err := cat.ExactMatch(ctx, code, statex.SupplierExternal)
		if err != nil {
			log.Warn().Err(err).Str("session", sessionID).Str("code", code).Msg("external exact match failed")
			continue
		}
		for _, hit := range hits {
			hit.Score = 1.0
			out.candidates = append(out.candidates, hit)
		}
	}
	if len(out.candidates) > 0 {
		return out
	}

	vector, err := embedder.Embed(ctx, pending.Name)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Str("item", pending.Name).Msg("embedding failed on external pass")
		out.note = notAvailableNote(pending.Name)
		return out
	}

	raw, err := cat.SimilaritySearch(ctx, vector, statex.SupplierExternal, searchWindow, searchLimit)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Str("item", pending.Name).Msg("external search failed")
		out.note = notAvailableNote(pending.Name)
		return out
	}

	for _, cand := range raw {
		if cand.Score < scoreFloor {
			continue
		}
		out.candidates = append(out.candidates, cand)
	}
	if len(out.candidates) == 0 {
		out.note = notAvailableNote(pending.Name)
	}
	return out
}

func notAvailableNote(name string) string {
	return fmt.Sprintf("No encontré \"%s\" ni en inventario propio ni con proveedores externos.", name)
}
