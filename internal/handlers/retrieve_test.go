package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"go.uber.org/mock/gomock"

	"traffic-advisor-ai/internal/service/mocks"
)

func TestRetrieveHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		mockSetup  func(*mocks.MockRetriever)
		wantStatus int
		wantRefs   []string
	}{
		{
			name:   "returns references",
			method: http.MethodPost,
			body:   `{"query":"ما رسوم التأخير","top_k":2}`,
			mockSetup: func(m *mocks.MockRetriever) {
				m.EXPECT().Retrieve(gomock.Any(), "ما رسوم التأخير", 2).Return([]string{"a", "b"}, nil)
			},
			wantStatus: http.StatusOK,
			wantRefs:   []string{"a", "b"},
		},
		{
			name:   "default top_k and empty result",
			method: http.MethodPost,
			body:   `{"query":"fees"}`,
			mockSetup: func(m *mocks.MockRetriever) {
				m.EXPECT().Retrieve(gomock.Any(), "fees", 0).Return(nil, nil)
			},
			wantStatus: http.StatusOK,
			wantRefs:   []string{},
		},
		{
			name:       "missing query",
			method:     http.MethodPost,
			body:       `{"query":"  "}`,
			mockSetup:  func(m *mocks.MockRetriever) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "top_k out of range",
			method:     http.MethodPost,
			body:       `{"query":"fees","top_k":500}`,
			mockSetup:  func(m *mocks.MockRetriever) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "retrieval error",
			method: http.MethodPost,
			body:   `{"query":"fees"}`,
			mockSetup: func(m *mocks.MockRetriever) {
				m.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("permission denied"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			mockSetup:  func(m *mocks.MockRetriever) {},
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			retriever := mocks.NewMockRetriever(ctrl)
			tt.mockSetup(retriever)
			handler := NewRetrieveHandler(retriever)

			req := httptest.NewRequest(tt.method, "/api/retrieve", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantRefs == nil {
				return
			}
			var resp RetrieveResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(resp.References, tt.wantRefs) {
				t.Errorf("References = %v, want %v", resp.References, tt.wantRefs)
			}
		})
	}
}
