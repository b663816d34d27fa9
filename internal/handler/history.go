package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/flynn-ai/genai/internal/errors"
	"github.com/flynn-ai/genai/internal/store"
	"github.com/flynn-ai/genai/pkg/protocol"
)

// HistoryLister reads stored generations.
type HistoryLister interface {
	List(ctx context.Context, userID string, limit int) ([]store.Content, error)
}

// History handles GET /api/ai/history?limit=N for the authenticated caller.
// A nil lister means the generation log is disabled.
func History(lister HistoryLister, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if lister == nil {
			writeFailure(w, http.StatusServiceUnavailable, CodeHistoryDisabled, "Generation history is disabled")
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeFailure(w, http.StatusBadRequest, CodeInvalidLimit, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		items, err := lister.List(r.Context(), callerID(r), limit)
		if err != nil {
			writeError(w, errors.Wrap(err, errors.KindUpstreamError, CodeHistoryFailed, "Could not load history",
				"Try again later"), dev)
			return
		}

		resp := protocol.HistoryResponse{Success: true, Items: make([]protocol.HistoryItem, 0, len(items))}
		for _, c := range items {
			resp.Items = append(resp.Items, protocol.HistoryItem{
				ID:        c.ID,
				Type:      string(c.Type),
				Prompt:    c.Prompt,
				Data:      c.Data,
				URL:       c.URL,
				Metadata:  c.Metadata,
				CreatedAt: c.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
