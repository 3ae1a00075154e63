package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"traffic-advisor-ai/internal/contextutil"
	"traffic-advisor-ai/internal/rag"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	kb                 KnowledgeBase
	db                 Pinger
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. db may be nil.
func NewHealthHandler(kb KnowledgeBase, db Pinger) *HealthHandler {
	return &HealthHandler{
		kb:                 kb,
		db:                 db,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// Retrieval engine state
	Engine rag.Status `json:"engine"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// Returns 200 OK when healthy or degraded, 503 Service Unavailable when unhealthy.
// Lexical-only retrieval counts as degraded, not unhealthy.
//
// swagger:route GET /api/health healthCheck
//
// # Health check endpoint
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: System is healthy or degraded
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: System is unhealthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string
	unhealthy := false

	if h.checkDatabase(checkCtx, logger) {
		checks["database"] = "ok"
	} else {
		checks["database"] = "error"
		issues = append(issues, "database_unavailable")
		unhealthy = true
	}

	status := h.kb.Status()
	if status.Strategy == rag.StrategyVector {
		checks["embeddings"] = "ok"
	} else {
		checks["embeddings"] = "disabled"
		issues = append(issues, "lexical_retrieval_only")
	}

	used, err := h.kb.CheckIndex(checkCtx)
	switch {
	case !used:
		checks["vector_index"] = "local"
	case err != nil:
		logger.WarnContext(ctx, "vector index health check failed", "error", err)
		checks["vector_index"] = "error"
		issues = append(issues, "vector_index_unavailable")
	default:
		checks["vector_index"] = "ok"
	}

	overall := "healthy"
	httpStatus := http.StatusOK
	if unhealthy {
		overall = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else if len(issues) > 0 {
		overall = "degraded"
	}

	writeJSON(ctx, w, httpStatus, HealthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Engine:    status,
		Issues:    issues,
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context, logger *slog.Logger) bool {
	if h.db == nil {
		return true
	}
	if err := h.db.PingContext(ctx); err != nil {
		logger.WarnContext(ctx, "database health check failed", "error", err)
		return false
	}
	return true
}
