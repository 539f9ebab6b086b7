package util

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithSecurityHeaders(t *testing.T) {
	h := WithSecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := map[string]struct {
		prepare  func(*http.Request)
		wantHSTS bool
	}{
		"plain http":      {prepare: func(*http.Request) {}},
		"forwarded https": {prepare: func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS") }, wantHSTS: true},
		"direct tls":      {prepare: func(r *http.Request) { r.TLS = &tls.ConnectionState{} }, wantHSTS: true},
		"forwarded http":  {prepare: func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "http") }},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/consulta", nil)
			tc.prepare(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			for header, want := range map[string]string{
				"X-Content-Type-Options": "nosniff",
				"X-Frame-Options":        "DENY",
				"Referrer-Policy":        "no-referrer",
				"Cache-Control":          "no-store",
			} {
				if got := rec.Header().Get(header); got != want {
					t.Fatalf("%s = %q, want %q", header, got, want)
				}
			}
			if rec.Header().Get("Content-Security-Policy") == "" {
				t.Fatalf("expected CSP header")
			}
			if got := rec.Header().Get("Strict-Transport-Security") != ""; got != tc.wantHSTS {
				t.Fatalf("HSTS present = %v, want %v", got, tc.wantHSTS)
			}
		})
	}
}
