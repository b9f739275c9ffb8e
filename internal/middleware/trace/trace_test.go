package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMiddleware_GeneratesRequestID(t *testing.T) {
	var seen string
	m := NewMiddleware(nil, nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q, want req_ prefix", seen)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("response header = %q, want %q", rec.Header().Get(RequestIDHeader), seen)
	}
	if m.GetMetrics().TotalRequests != 1 {
		t.Fatalf("TotalRequests = %d, want 1", m.GetMetrics().TotalRequests)
	}
}

func TestMiddleware_HonoursIncomingRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{"short id reused", "abc-123", true},
		{"oversized id replaced", strings.Repeat("x", maxIncomingIDLength+1), false},
		{"blank id replaced", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := NewMiddleware(nil, nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromRequest(r)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, tt.incoming)
			h.ServeHTTP(httptest.NewRecorder(), req)

			if tt.reuse && seen != tt.incoming {
				t.Fatalf("request id = %q, want %q", seen, tt.incoming)
			}
			if !tt.reuse && !strings.HasPrefix(seen, "req_") {
				t.Fatalf("request id = %q, want generated id", seen)
			}
		})
	}
}

func TestMiddleware_OnCompleteReceivesStatus(t *testing.T) {
	var gotStatus int
	var gotElapsed time.Duration = -1
	h := NewMiddleware(nil, func(*http.Request) string { return "1.2.3.4" }, func(_ *http.Request, status int, elapsed time.Duration) {
		gotStatus = status
		gotElapsed = elapsed
	}).Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if gotStatus != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", gotStatus, http.StatusTeapot)
	}
	if gotElapsed < 0 {
		t.Fatal("onComplete was not called")
	}
}

func TestMiddleware_DefaultStatusOK(t *testing.T) {
	var gotStatus int
	h := NewMiddleware(nil, nil, func(_ *http.Request, status int, _ time.Duration) {
		gotStatus = status
	}).Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if gotStatus != http.StatusOK {
		t.Fatalf("status = %d, want 200", gotStatus)
	}
}
