package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"traffic-advisor-ai/internal/contextutil"
	"traffic-advisor-ai/internal/service"
)

// MaxTopK bounds the top_k accepted over HTTP.
const MaxTopK = 50

// RetrieveHandler exposes raw retrieval.
type RetrieveHandler struct {
	retriever service.Retriever
}

// NewRetrieveHandler creates a new RetrieveHandler.
func NewRetrieveHandler(retriever service.Retriever) *RetrieveHandler {
	return &RetrieveHandler{retriever: retriever}
}

// RetrieveRequest represents the HTTP request payload for retrieval.
//
// swagger:model RetrieveRequest
type RetrieveRequest struct {
	Query string `json:"query"`
	// TopK is optional; 0 uses the server default.
	TopK int `json:"top_k,omitempty"`
}

// RetrieveResponse lists the retrieved passages, most relevant first.
//
// swagger:model RetrieveResponse
type RetrieveResponse struct {
	References []string `json:"references"`
}

// ServeHTTP handles HTTP requests for retrieval.
func (h *RetrieveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if req.TopK < 0 || req.TopK > MaxTopK {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("top_k must be between 0 and %d", MaxTopK))
		return
	}

	refs, err := h.retriever.Retrieve(ctx, req.Query, req.TopK)
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve references")
		return
	}
	if refs == nil {
		refs = []string{}
	}

	writeJSON(ctx, w, http.StatusOK, RetrieveResponse{References: refs})
}
