package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"traffic-advisor-ai/internal/contextutil"
	"traffic-advisor-ai/internal/service"
)

// DraftHandler handles HTTP requests for objection letter drafts.
type DraftHandler struct {
	draftService service.DraftService
}

// NewDraftHandler creates a new DraftHandler.
func NewDraftHandler(draftService service.DraftService) *DraftHandler {
	return &DraftHandler{
		draftService: draftService,
	}
}

// DraftRequest represents the HTTP request payload for a draft.
// All fields are optional.
//
// swagger:model DraftRequest
type DraftRequest struct {
	PlateNumber   string `json:"plate_number,omitempty"`
	ViolationCode string `json:"violation_code,omitempty"`
	ViolationDesc string `json:"violation_desc,omitempty"`
	Location      string `json:"location,omitempty"`
	Date          string `json:"date,omitempty"`
	ExtraContext  string `json:"extra_context,omitempty"`
}

// DraftResponse represents the HTTP response payload for a draft.
//
// swagger:model DraftResponse
type DraftResponse struct {
	// ID of the stored draft
	ID string `json:"id"`

	// The drafted letter (Arabic)
	LetterAr string `json:"letter_ar"`

	// Citations quoted in the letter
	Citations []string `json:"citations"`

	// Confidence between 0 and 1
	Confidence float64 `json:"confidence"`
}

// StoredDraftResponse is a draft as returned from history.
//
// swagger:model StoredDraftResponse
type StoredDraftResponse struct {
	DraftResponse
	Generator      string    `json:"generator"`
	Query          string    `json:"query"`
	ReferenceCount int       `json:"reference_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// ServeHTTP handles HTTP requests for drafts.
//
// swagger:route POST /api/draft createDraft
//
// # Draft an objection letter
//
// Retrieves knowledge-base references for the violation and drafts an Arabic
// objection letter citing them.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Draft created
//	  schema:
//	    "$ref": "#/definitions/DraftResponse"
//	'400':
//	  description: Invalid request, or no references found
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'429':
//	  description: Rate limit exceeded
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DraftHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	draft, err := h.draftService.CreateDraft(ctx, service.DraftRequest{
		PlateNumber:   req.PlateNumber,
		ViolationCode: req.ViolationCode,
		ViolationDesc: req.ViolationDesc,
		Location:      req.Location,
		Date:          req.Date,
		ExtraContext:  req.ExtraContext,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to create draft")
		return
	}

	writeJSON(ctx, w, http.StatusOK, toDraftResponse(draft))
}

// GetDraft handles GET /api/drafts/{id}.
func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	draft, err := h.draftService.GetDraft(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to load draft")
		return
	}

	writeJSON(ctx, w, http.StatusOK, StoredDraftResponse{
		DraftResponse:  toDraftResponse(draft),
		Generator:      draft.Generator,
		Query:          draft.Query,
		ReferenceCount: draft.ReferenceCount,
		CreatedAt:      draft.CreatedAt,
	})
}

func toDraftResponse(draft service.Draft) DraftResponse {
	citations := draft.Citations
	if citations == nil {
		citations = []string{}
	}
	return DraftResponse{
		ID:         draft.ID,
		LetterAr:   draft.LetterAr,
		Citations:  citations,
		Confidence: draft.Confidence,
	}
}
