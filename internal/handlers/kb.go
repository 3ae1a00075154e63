package handlers

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_knowledge_base.go -package=mocks traffic-advisor-ai/internal/handlers KnowledgeBase

import (
	"context"
	"net/http"

	"traffic-advisor-ai/internal/contextutil"
	"traffic-advisor-ai/internal/indexer"
	"traffic-advisor-ai/internal/rag"
)

// KnowledgeBase is the retrieval engine as seen by the operational endpoints.
type KnowledgeBase interface {
	// Status reports the engine state without building.
	Status() rag.Status
	// Stats returns collection statistics, building if needed.
	Stats(ctx context.Context) (indexer.CollectionStats, error)
	// Rebuild reloads the knowledge base from disk.
	Rebuild(ctx context.Context) (rag.Status, error)
	// CheckIndex reports whether an external vector index is in use and reachable.
	CheckIndex(ctx context.Context) (bool, error)
}

// KBHandler serves knowledge-base statistics and rebuilds.
type KBHandler struct {
	kb KnowledgeBase
}

// NewKBHandler creates a new KBHandler.
func NewKBHandler(kb KnowledgeBase) *KBHandler {
	return &KBHandler{kb: kb}
}

// KBStatsResponse combines collection statistics with the engine status.
//
// swagger:model KBStatsResponse
type KBStatsResponse struct {
	Collection indexer.CollectionStats `json:"collection"`
	Engine     rag.Status              `json:"engine"`
}

// Stats handles GET /api/kb/stats.
func (h *KBHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	stats, err := h.kb.Stats(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to compute knowledge base stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load knowledge base")
		return
	}

	writeJSON(ctx, w, http.StatusOK, KBStatsResponse{
		Collection: stats,
		Engine:     h.kb.Status(),
	})
}

// Rebuild handles POST /api/kb/rebuild.
func (h *KBHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	status, err := h.kb.Rebuild(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "knowledge base rebuild failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to rebuild knowledge base")
		return
	}

	logger.InfoContext(ctx, "knowledge base rebuilt", "chunks", status.Chunks, "strategy", status.Strategy)
	writeJSON(ctx, w, http.StatusOK, status)
}
