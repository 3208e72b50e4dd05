package docserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

var uuidV7Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name           string
		config         RequestIDConfig
		incomingHeader string
		wantHeader     string
		wantGenerated  bool
	}{
		{
			name:          "generates UUID v7 by default",
			wantGenerated: true,
		},
		{
			name:           "does not trust incoming by default",
			incomingHeader: "existing-id",
			wantGenerated:  true,
		},
		{
			name:           "trusts incoming when configured",
			config:         RequestIDConfig{TrustIncoming: true},
			incomingHeader: "existing-id",
			wantHeader:     "existing-id",
		},
		{
			name:       "custom header and generator",
			config:     RequestIDConfig{HeaderName: "X-Trace-ID", GenerateFunc: func(*http.Request) string { return "trace-123" }},
			wantHeader: "trace-123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headerName := tt.config.HeaderName
			if headerName == "" {
				headerName = "X-Request-ID"
			}

			var fromContext string
			r := mux.NewRouter()
			r.HandleFunc("/test", func(_ http.ResponseWriter, req *http.Request) {
				fromContext = RequestIDFromContext(req.Context())
			})
			r.Use(RequestID(tt.config))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.incomingHeader != "" {
				req.Header.Set(headerName, tt.incomingHeader)
			}
			r.ServeHTTP(w, req)

			got := w.Header().Get(headerName)
			if tt.wantGenerated {
				assert.Regexp(t, uuidV7Regex, got)
			} else {
				assert.Equal(t, tt.wantHeader, got)
			}
			assert.Equal(t, got, fromContext)
		})
	}

	t.Run("empty id is not set", func(t *testing.T) {
		r := mux.NewRouter()
		r.HandleFunc("/test", func(http.ResponseWriter, *http.Request) {})
		r.Use(RequestID(RequestIDConfig{GenerateFunc: func(*http.Request) string { return "" }}))

		w := serveRequest(r, "/test")
		assert.Empty(t, w.Header().Get("X-Request-ID"))
	})
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode int
		wantLog  bool
	}{
		{
			name:     "no panic passes through",
			handler:  func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) },
			wantCode: http.StatusNoContent,
		},
		{
			name:     "panic returns 500",
			handler:  func(http.ResponseWriter, *http.Request) { panic("something went wrong") },
			wantCode: http.StatusInternalServerError,
			wantLog:  true,
		},
		{
			name:     "panic with integer value",
			handler:  func(http.ResponseWriter, *http.Request) { panic(42) },
			wantCode: http.StatusInternalServerError,
			wantLog:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))

			r := mux.NewRouter()
			r.HandleFunc("/test", tt.handler)
			r.Use(RequestID(RequestIDConfig{GenerateFunc: func(*http.Request) string { return "req-1" }}), Recovery(logger))

			w := serveRequest(r, "/test")
			assert.Equal(t, tt.wantCode, w.Code)

			if tt.wantLog {
				assert.Contains(t, logs.String(), "panic recovered")
				assert.Contains(t, logs.String(), "request_id=req-1")
			} else {
				assert.Empty(t, logs.String())
			}
		})
	}
}

func TestLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := mux.NewRouter()
	r.HandleFunc("/test", func(http.ResponseWriter, *http.Request) {})
	r.Use(Logging(logger))

	serveRequest(r, "/test")
	assert.Contains(t, logs.String(), "request served")
	assert.Contains(t, logs.String(), "path=/test")
}
