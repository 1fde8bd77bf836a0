package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSearchRequest(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
	}{
		{
			name:   "Valid request",
			body:   `{"criteria":{"keywords":["CRM"]}}`,
			wantOK: true,
		},
		{
			name:       "Missing keywords",
			body:       `{"criteria":{}}`,
			wantOK:     false,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Only empty keywords",
			body:       `{"criteria":{"keywords":["",""]}}`,
			wantOK:     false,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Malformed JSON",
			body:       `{"criteria":`,
			wantOK:     false,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "Time range preset string",
			body:   `{"criteria":{"keywords":["CRM"],"timeRange":"week"}}`,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(tt.body))

			req, ok := decodeSearchRequest(w, r)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, req)
				assert.NotEmpty(t, req.Criteria.Keywords)
			} else {
				assert.Equal(t, tt.wantStatus, w.Code)
				assert.Contains(t, w.Body.String(), "error")
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/search", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
