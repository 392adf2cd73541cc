package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway/internal/auth"
	"pathway/internal/httputil"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, httputil.GetUserID(r))
	})
}

func TestAuthMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := AuthMiddleware(auth.NewDevVerifier(logger))(echoUser())

	tests := []struct {
		name     string
		target   string
		header   string
		wantCode int
		wantUser string
	}{
		{name: "bearer header", target: "/api/rooms", header: "Bearer mentee-1", wantCode: http.StatusOK, wantUser: "mentee-1"},
		{name: "query token", target: "/api/rooms/r1/ws?access_token=mentor-1", wantCode: http.StatusOK, wantUser: "mentor-1"},
		{name: "missing token", target: "/api/rooms", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", target: "/api/rooms", header: "Basic abc", wantCode: http.StatusUnauthorized},
		{name: "public path", target: "/health", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantUser != "" {
				assert.Equal(t, tt.wantUser, rec.Body.String())
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}
