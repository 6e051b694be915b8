package nodes

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	contractx "github.com/partsdesk/partsdesk/agent/contract"
	statex "github.com/partsdesk/partsdesk/agent/state"
)

const (
	// searchWindow bounds the approximate nearest-neighbour pass before the
	// partition filter is applied.
	searchWindow = 100
	// searchLimit caps how many rows one partition query returns.
	searchLimit = 5
	// scoreFloor is the minimum cosine similarity for a semantic hit.
	scoreFloor = 0.50
	// topCandidates is how many options are shown per requested item.
	topCandidates = 3
)

type internalResult struct {
	candidates []statex.Candidate
	pending    *statex.PendingSearch
}

// ResolveInternal searches own inventory for every completed request,
// fanning the requests out concurrently. Requests the inventory cannot fully
// satisfy are queued for the external pass; near-matches contribute their
// codes as exact-match hints so the external pass can look for the same part
// at third parties.
//
// A failed lookup for one item degrades to "not found internally" for that
// item only; the other requests still resolve.
func ResolveInternal(ctx context.Context, convo *statex.Conversation, embedder contractx.Embedder, cat contractx.Catalog) {
	convo.Pending = nil
	results := make([]internalResult, len(convo.Requests))

	g, gctx := errgroup.WithContext(ctx)
	for i := range convo.Requests {
		req := convo.Requests[i]
		g.Go(func() error {
			results[i] = resolveOneInternal(gctx, req, i+1, embedder, cat, convo.SessionID)
			return nil
		})
	}
	// Workers never return errors; failures degrade per item.
	_ = g.Wait()

	for i, res := range results {
		ordinal := i + 1
		if len(res.candidates) > 0 {
			convo.Internal[ordinal] = res.candidates
		}
		if res.pending != nil {
			convo.Pending = append(convo.Pending, *res.pending)
		}
	}
}

func resolveOneInternal(ctx context.Context, req statex.ProductRequest, ordinal int, embedder contractx.Embedder, cat contractx.Catalog, sessionID string) internalResult {
	pending := &statex.PendingSearch{Ordinal: ordinal, Name: req.Name, Quantity: req.Quantity}

	vector, err := embedder.Embed(ctx, req.Name)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Str("item", req.Name).Msg("embedding failed, deferring to external search")
		return internalResult{pending: pending}
	}

	raw, err := cat.SimilaritySearch(ctx, vector, statex.SupplierInternal, searchWindow, searchLimit)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Str("item", req.Name).Msg("internal search failed, deferring to external search")
		return internalResult{pending: pending}
	}

	var relevant, sufficient, insufficient []statex.Candidate
	for _, cand := range raw {
		if cand.Score < scoreFloor {
			continue
		}
		relevant = append(relevant, cand)
		switch {
		case cand.AvailableStock >= req.Quantity:
			sufficient = append(sufficient, cand)
		case cand.AvailableStock > 0:
			insufficient = append(insufficient, cand)
		}
	}

	switch {
	case len(sufficient) > 0:
		// Inventory can fully cover this item; no external pass needed.
		return internalResult{candidates: capTop(sufficient, topCandidates)}
	case len(relevant) > 0:
		// Known part, short stock. Partial-stock options stay visible for
		// ranking; every relevant code (zero-stock included) becomes an
		// exact-match hint for the external pass.
		for _, cand := range relevant {
			pending.CodeHints = append(pending.CodeHints, cand.Code)
		}
		return internalResult{candidates: capTop(insufficient, topCandidates), pending: pending}
	default:
		return internalResult{pending: pending}
	}
}

func capTop(cands []statex.Candidate, n int) []statex.Candidate {
	if len(cands) <= n {
		return cands
	}
	return cands[:n]
}
