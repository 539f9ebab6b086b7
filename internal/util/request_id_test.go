package util

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveWithRequestID(t *testing.T, incoming string, inspect func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inspect(r)
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/pagos", nil)
	if incoming != "" {
		req.Header.Set("X-Request-Id", incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWithRequestIDKeepsIncomingID(t *testing.T) {
	var seen string
	rec := serveWithRequestID(t, "req-abc", func(r *http.Request) { seen = RequestIDFromRequest(r) })
	if seen != "req-abc" || rec.Header().Get("X-Request-Id") != "req-abc" {
		t.Fatalf("expected incoming id to propagate, ctx=%q header=%q", seen, rec.Header().Get("X-Request-Id"))
	}
}

func TestWithRequestIDReplacesMissingOrOversizedID(t *testing.T) {
	for name, incoming := range map[string]string{
		"missing":   "",
		"oversized": strings.Repeat("x", maxRequestIDLen+1),
	} {
		t.Run(name, func(t *testing.T) {
			var seen string
			rec := serveWithRequestID(t, incoming, func(r *http.Request) { seen = RequestIDFromRequest(r) })
			if seen == "" || seen == incoming {
				t.Fatalf("expected a generated id, got %q", seen)
			}
			if rec.Header().Get("X-Request-Id") != seen {
				t.Fatalf("header %q does not match context %q", rec.Header().Get("X-Request-Id"), seen)
			}
		})
	}
}

func TestWithRequestIDAttachesLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))

	serveWithRequestID(t, "req-log", func(r *http.Request) {
		LoggerFromContext(r.Context()).Info("tenant_checked_out")
	})
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log %q: %v", buf.String(), err)
	}
	if entry["request_id"] != "req-log" {
		t.Fatalf("expected request_id on context logger, got %v", entry)
	}
	if RequestIDFromRequest(nil) != "" {
		t.Fatalf("nil request must have no id")
	}
}
