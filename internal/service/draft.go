package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retriever.go -package=mocks traffic-advisor-ai/internal/service Retriever
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm_client.go -package=mocks traffic-advisor-ai/internal/service LLMClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_draft_service.go -package=mocks traffic-advisor-ai/internal/service DraftService

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"traffic-advisor-ai/internal/contextutil"
	"traffic-advisor-ai/internal/llm"
	"traffic-advisor-ai/internal/storage"
)

// MaxFieldLength is the maximum length, in characters, of any draft request field.
const MaxFieldLength = 2000

const draftTemperature = 0.2

// Retriever finds knowledge-base passages for a query.
// This interface is defined from the service layer's perspective (consumer-first).
type Retriever interface {
	// Retrieve returns up to topK passages, most relevant first. topK <= 0 selects the default.
	Retrieve(ctx context.Context, query string, topK int) ([]string, error)
}

// LLMClient is an interface for interacting with an LLM API.
type LLMClient interface {
	// ChatWithMessages sends a conversation and returns the reply text.
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// DraftRequest describes a traffic violation to object to. All fields are optional.
type DraftRequest struct {
	PlateNumber   string `json:"plate_number,omitempty"`
	ViolationCode string `json:"violation_code,omitempty"`
	ViolationDesc string `json:"violation_desc,omitempty"`
	Location      string `json:"location,omitempty"`
	Date          string `json:"date,omitempty"`
	ExtraContext  string `json:"extra_context,omitempty"`
}

// Draft is a generated objection letter.
type Draft struct {
	ID             string
	LetterAr       string
	Citations      []string
	Confidence     float64
	Generator      string
	Query          string
	ReferenceCount int
	CreatedAt      time.Time
}

// DraftOptions configures a DraftService.
type DraftOptions struct {
	Model      string        // Chat model; empty uses the client's default
	LLMTimeout time.Duration // Per-call timeout; 0 means no extra timeout
	TopK       int           // References to retrieve; <= 0 uses the retriever default
}

// DraftService drafts objection letters grounded on retrieved references.
type DraftService interface {
	// CreateDraft retrieves references for the request and drafts a letter.
	// Returns ErrNoReferences when retrieval finds nothing.
	CreateDraft(ctx context.Context, req DraftRequest) (Draft, error)
	// GetDraft returns a previously created draft. Returns ErrNotFound if unknown.
	GetDraft(ctx context.Context, id string) (Draft, error)
}

// draftService implements DraftService.
type draftService struct {
	retriever Retriever
	llmClient LLMClient
	store     storage.DraftStore
	opts      DraftOptions
}

// NewDraftService creates a new DraftService. llmClient may be nil, in which case
// every draft is produced from the built-in template. store may be nil to disable history.
func NewDraftService(retriever Retriever, llmClient LLMClient, store storage.DraftStore, opts DraftOptions) DraftService {
	return &draftService{
		retriever: retriever,
		llmClient: llmClient,
		store:     store,
		opts:      opts,
	}
}

// CreateDraft processes a draft request.
func (s *draftService) CreateDraft(ctx context.Context, req DraftRequest) (Draft, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateDraftRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid draft request", "error", err)
		return Draft{}, err
	}

	query, err := BuildQuery(req)
	if err != nil {
		return Draft{}, WrapError(err, "failed to build retrieval query")
	}

	refs, err := s.retriever.Retrieve(ctx, query, s.opts.TopK)
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "error", err)
		return Draft{}, fmt.Errorf("failed to retrieve references: %w: %w", ErrExternalService, err)
	}
	if len(refs) == 0 {
		logger.WarnContext(ctx, "no references found for draft request", "query_length", len(query))
		return Draft{}, ErrNoReferences
	}

	draft := s.compose(ctx, req, refs)
	draft.ID = uuid.New().String()
	draft.Query = query
	draft.ReferenceCount = len(refs)
	draft.CreatedAt = time.Now().UTC()

	s.persist(ctx, draft)

	logger.InfoContext(ctx, "draft created",
		"draft_id", draft.ID,
		"generator", draft.Generator,
		"references", len(refs),
		"citations", len(draft.Citations),
		"confidence", draft.Confidence,
	)
	return draft, nil
}

// compose drafts the letter with the model, falling back to the template
// when no model is configured or the call fails.
func (s *draftService) compose(ctx context.Context, req DraftRequest, refs []string) Draft {
	logger := contextutil.LoggerFromContext(ctx)

	if s.llmClient == nil {
		return templateDraft(req, refs)
	}

	callCtx := ctx
	if s.opts.LLMTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.LLMTimeout)
		defer cancel()
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userPrompt(req, refs)},
	}
	reply, err := s.llmClient.ChatWithMessages(callCtx, messages, llm.ChatParams{
		Model:       s.opts.Model,
		Temperature: draftTemperature,
	})
	if err != nil {
		logger.WarnContext(ctx, "LLM drafting failed, using template", "error", err)
		return templateDraft(req, refs)
	}

	return Draft{
		LetterAr:   reply,
		Citations:  parseCitations(reply),
		Confidence: parseConfidence(reply),
		Generator:  storage.GeneratorLLM,
	}
}

func templateDraft(req DraftRequest, refs []string) Draft {
	return Draft{
		LetterAr:   templateLetter(req, refs),
		Citations:  templateCitationsOf(refs),
		Confidence: TemplateConfidence,
		Generator:  storage.GeneratorTemplate,
	}
}

// persist records the draft. Failures are logged and do not fail the request.
func (s *draftService) persist(ctx context.Context, draft Draft) {
	if s.store == nil {
		return
	}
	logger := contextutil.LoggerFromContext(ctx)

	record := &storage.DraftRecord{
		ID:             draft.ID,
		Query:          draft.Query,
		LetterAr:       draft.LetterAr,
		Citations:      draft.Citations,
		Confidence:     draft.Confidence,
		Generator:      draft.Generator,
		ReferenceCount: draft.ReferenceCount,
	}
	if err := s.store.Insert(ctx, record); err != nil {
		logger.ErrorContext(ctx, "failed to persist draft", "draft_id", draft.ID, "error", err)
	}
}

// GetDraft returns a stored draft.
func (s *draftService) GetDraft(ctx context.Context, id string) (Draft, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(id) == "" {
		return Draft{}, &ValidationError{Field: "id", Message: "cannot be empty"}
	}
	if s.store == nil {
		return Draft{}, ErrNotFound
	}

	record, err := s.store.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		logger.DebugContext(ctx, "draft not found", "draft_id", id)
		return Draft{}, fmt.Errorf("draft %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Draft{}, WrapError(err, "failed to load draft")
	}

	return Draft{
		ID:             record.ID,
		LetterAr:       record.LetterAr,
		Citations:      record.Citations,
		Confidence:     record.Confidence,
		Generator:      record.Generator,
		Query:          record.Query,
		ReferenceCount: record.ReferenceCount,
		CreatedAt:      record.CreatedAt,
	}, nil
}

// BuildQuery serializes the non-empty request fields, in declaration order,
// as compact JSON with non-ASCII text left unescaped.
func BuildQuery(req DraftRequest) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(req); err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func validateDraftRequest(req DraftRequest) error {
	fields := []struct {
		name  string
		value string
	}{
		{"plate_number", req.PlateNumber},
		{"violation_code", req.ViolationCode},
		{"violation_desc", req.ViolationDesc},
		{"location", req.Location},
		{"date", req.Date},
		{"extra_context", req.ExtraContext},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return &ValidationError{Field: f.name, Message: "must be valid UTF-8"}
		}
		if utf8.RuneCountInString(f.value) > MaxFieldLength {
			return &ValidationError{Field: f.name, Message: fmt.Sprintf("must be at most %d characters", MaxFieldLength)}
		}
	}
	return nil
}
