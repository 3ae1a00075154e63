package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"traffic-advisor-ai/internal/llm"
	"traffic-advisor-ai/internal/service"
	"traffic-advisor-ai/internal/service/mocks"
	"traffic-advisor-ai/internal/storage"
	storage_mocks "traffic-advisor-ai/internal/storage/mocks"

	"go.uber.org/mock/gomock"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testContext() context.Context {
	return context.Background()
}

var testRefs = []string{"المادة ٣٥: غرامة السرعة", "المادة ٣٦: الاعتراض خلال ٣٠ يوما", "المادة ٣٧", "المادة ٣٨"}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name string
		req  service.DraftRequest
		want string
	}{
		{name: "empty", req: service.DraftRequest{}, want: "{}"},
		{
			name: "field order and unescaped arabic",
			req:  service.DraftRequest{Location: "الرياض", PlateNumber: "ABC 123"},
			want: `{"plate_number":"ABC 123","location":"الرياض"}`,
		},
		{
			name: "html characters not escaped",
			req:  service.DraftRequest{ExtraContext: "a<b & c>d"},
			want: `{"extra_context":"a<b & c>d"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.BuildQuery(tt.req)
			if err != nil {
				t.Fatalf("BuildQuery() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildQuery() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDraftService_CreateDraft(t *testing.T) {
	req := service.DraftRequest{ViolationCode: "SP-120", Location: "الرياض"}
	wantQuery := `{"violation_code":"SP-120","location":"الرياض"}`

	tests := []struct {
		name      string
		withLLM   bool
		mockSetup func(r *mocks.MockRetriever, c *mocks.MockLLMClient, s *storage_mocks.MockDraftStore)
		wantErr   error
		check     func(t *testing.T, d service.Draft)
	}{
		{
			name:    "llm draft",
			withLLM: true,
			mockSetup: func(r *mocks.MockRetriever, c *mocks.MockLLMClient, s *storage_mocks.MockDraftStore) {
				r.EXPECT().Retrieve(gomock.Any(), wantQuery, 5).Return(testRefs, nil)
				c.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, msgs []llm.Message, params llm.ChatParams) (string, error) {
						if len(msgs) != 2 || msgs[0].Role != llm.RoleSystem || msgs[1].Role != llm.RoleUser {
							t.Errorf("unexpected messages %+v", msgs)
						}
						if !strings.Contains(msgs[1].Content, "- "+testRefs[0]) {
							t.Error("user prompt does not quote the references")
						}
						if params.Temperature != 0.2 || params.Model != "gpt-4o-mini" {
							t.Errorf("unexpected params %+v", params)
						}
						return "سعادة الجهة\n- المادة ٣٥\nدرجة الثقة: 0.75", nil
					})
				s.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec *storage.DraftRecord) error {
					if rec.Generator != storage.GeneratorLLM || rec.Query != wantQuery || rec.ReferenceCount != 4 {
						t.Errorf("unexpected record %+v", rec)
					}
					return nil
				})
			},
			check: func(t *testing.T, d service.Draft) {
				if d.Confidence != 0.75 {
					t.Errorf("Confidence = %v, want 0.75", d.Confidence)
				}
				if !reflect.DeepEqual(d.Citations, []string{"المادة ٣٥"}) {
					t.Errorf("Citations = %q", d.Citations)
				}
				if d.ID == "" {
					t.Error("ID not set")
				}
			},
		},
		{
			name:    "no llm uses template",
			withLLM: false,
			mockSetup: func(r *mocks.MockRetriever, c *mocks.MockLLMClient, s *storage_mocks.MockDraftStore) {
				r.EXPECT().Retrieve(gomock.Any(), wantQuery, 5).Return(testRefs, nil)
				s.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, d service.Draft) {
				if d.Confidence != service.TemplateConfidence || d.Generator != storage.GeneratorTemplate {
					t.Errorf("unexpected template draft %+v", d)
				}
				if !reflect.DeepEqual(d.Citations, testRefs[:3]) {
					t.Errorf("Citations = %q, want first three references", d.Citations)
				}
			},
		},
		{
			name:    "llm failure falls back to template",
			withLLM: true,
			mockSetup: func(r *mocks.MockRetriever, c *mocks.MockLLMClient, s *storage_mocks.MockDraftStore) {
				r.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).Return(testRefs[:1], nil)
				c.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("timeout"))
				s.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, d service.Draft) {
				if d.Generator != storage.GeneratorTemplate || len(d.Citations) != 1 {
					t.Errorf("unexpected fallback draft %+v", d)
				}
			},
		},
		{
			name:    "persistence failure is not fatal",
			withLLM: false,
			mockSetup: func(r *mocks.MockRetriever, c *mocks.MockLLMClient, s *storage_mocks.MockDraftStore) {
				r.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).Return(testRefs, nil)
				s.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
			},
			check: func(t *testing.T, d service.Draft) {
				if d.LetterAr == "" {
					t.Error("LetterAr empty")
				}
			},
		},
		{
			name:    "no references",
			withLLM: true,
			mockSetup: func(r *mocks.MockRetriever, c *mocks.MockLLMClient, s *storage_mocks.MockDraftStore) {
				r.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).Return([]string{}, nil)
			},
			wantErr: service.ErrNoReferences,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			retriever := mocks.NewMockRetriever(ctrl)
			client := mocks.NewMockLLMClient(ctrl)
			store := storage_mocks.NewMockDraftStore(ctrl)
			tt.mockSetup(retriever, client, store)

			var llmClient service.LLMClient
			if tt.withLLM {
				llmClient = client
			}
			svc := service.NewDraftService(retriever, llmClient, store, service.DraftOptions{
				Model:      "gpt-4o-mini",
				LLMTimeout: time.Second,
				TopK:       5,
			})

			got, err := svc.CreateDraft(testContext(), req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateDraft() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateDraft() error = %v", err)
			}
			tt.check(t, got)
		})
	}
}

func TestDraftService_CreateDraft_RetrievalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	retriever := mocks.NewMockRetriever(ctrl)
	cause := errors.New("permission denied")
	retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, cause)

	svc := service.NewDraftService(retriever, nil, nil, service.DraftOptions{})
	_, err := svc.CreateDraft(testContext(), service.DraftRequest{Date: "2024-01-01"})
	if err == nil || errors.Is(err, service.ErrNoReferences) {
		t.Fatalf("CreateDraft() error = %v, want retrieval error", err)
	}
	if !errors.Is(err, service.ErrExternalService) {
		t.Errorf("CreateDraft() error = %v, want ErrExternalService", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("CreateDraft() error = %v, want the retriever's error wrapped", err)
	}
}

func TestDraftService_CreateDraft_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	retriever := mocks.NewMockRetriever(ctrl)

	svc := service.NewDraftService(retriever, nil, nil, service.DraftOptions{})
	_, err := svc.CreateDraft(testContext(), service.DraftRequest{ExtraContext: strings.Repeat("ا", service.MaxFieldLength+1)})

	var validationErr *service.ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "extra_context" {
		t.Fatalf("CreateDraft() error = %v, want ValidationError on extra_context", err)
	}
	if !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("CreateDraft() error = %v, want ErrInvalidInput", err)
	}
}

func TestDraftService_GetDraft(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		id        string
		mockSetup func(s *storage_mocks.MockDraftStore)
		wantErr   error
		wantID    string
	}{
		{
			name: "found",
			id:   "d-1",
			mockSetup: func(s *storage_mocks.MockDraftStore) {
				s.EXPECT().GetByID(gomock.Any(), "d-1").Return(&storage.DraftRecord{
					ID: "d-1", LetterAr: "نص", Citations: []string{"x"}, Confidence: 0.6,
					Generator: storage.GeneratorLLM, CreatedAt: created,
				}, nil)
			},
			wantID: "d-1",
		},
		{
			name: "not found",
			id:   "missing",
			mockSetup: func(s *storage_mocks.MockDraftStore) {
				s.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, storage.ErrNotFound)
			},
			wantErr: service.ErrNotFound,
		},
		{
			name:      "empty id",
			id:        " ",
			mockSetup: func(s *storage_mocks.MockDraftStore) {},
			wantErr:   errValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := storage_mocks.NewMockDraftStore(ctrl)
			tt.mockSetup(store)

			svc := service.NewDraftService(mocks.NewMockRetriever(ctrl), nil, store, service.DraftOptions{})
			got, err := svc.GetDraft(testContext(), tt.id)

			switch {
			case tt.wantErr == errValidation:
				var validationErr *service.ValidationError
				if !errors.As(err, &validationErr) {
					t.Fatalf("GetDraft() error = %v, want ValidationError", err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetDraft() error = %v, want %v", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("GetDraft() error = %v", err)
				}
				if got.ID != tt.wantID || !got.CreatedAt.Equal(created) {
					t.Errorf("GetDraft() = %+v", got)
				}
			}
		})
	}
}

// errValidation marks cases expecting a *service.ValidationError.
var errValidation = errors.New("validation")
