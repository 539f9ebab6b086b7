package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// execReserved are the tunnel's own parameters; every other query value is
// forwarded to the inner request.
var execReserved = map[string]bool{"action": true, "endpoint": true, "data": true}

// handleExec serves clients that can only issue simple GET requests:
//
//	GET /api/exec?action=POST&endpoint=pagos&data={"monto":150}
//
// The inner request is dispatched as if it had arrived at /api/<endpoint>.
// consulta stays public; everything else needs an operator token.
func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	action := strings.ToUpper(strings.TrimSpace(q.Get("action")))
	if action == "" {
		action = http.MethodGet
	}
	switch action {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		writeError(w, http.StatusBadRequest, "unsupported action")
		return
	}
	endpoint, forward, err := splitEndpoint(q.Get("endpoint"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid endpoint")
		return
	}
	if endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint required")
		return
	}

	body := q.Get("data")
	if body == "" && r.Method == http.MethodPost {
		raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		body = string(raw)
	}
	if body != "" && !json.Valid([]byte(body)) {
		writeError(w, http.StatusBadRequest, "invalid data parameter")
		return
	}

	for key, values := range q {
		if !execReserved[key] {
			forward[key] = values
		}
	}
	inner := r.Clone(r.Context())
	inner.Method = action
	inner.URL = &url.URL{Path: "/api/" + endpoint, RawQuery: forward.Encode()}
	inner.RequestURI = inner.URL.RequestURI()
	inner.Body = io.NopCloser(strings.NewReader(body))
	inner.ContentLength = int64(len(body))
	inner.Header.Set("Content-Type", "application/json")

	switch {
	case endpoint == "consulta":
		s.limited(s.publicLimiter, "consulta", s.handleConsulta)(w, inner)
	case strings.HasPrefix(endpoint, "auth/"):
		writeError(w, http.StatusBadRequest, "auth endpoints are not tunnelled")
	default:
		s.withOperator(s.dispatch).ServeHTTP(w, inner)
	}
}

// splitEndpoint separates a query string embedded in the endpoint, as in
// "pagos?mes=1", from its path. Outer query values are merged over it by
// the caller.
func splitEndpoint(raw string) (string, url.Values, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", nil, err
	}
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", nil, err
	}
	return cleanEndpoint(u.Path), values, nil
}

// cleanEndpoint normalises "/api/pagos/" and "pagos" alike to "pagos" and
// refuses anything that escapes the api root.
func cleanEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	cleaned := path.Clean("/" + raw)
	cleaned = strings.TrimPrefix(cleaned, "/")
	cleaned = strings.TrimPrefix(cleaned, "api/")
	if cleaned == "api" || cleaned == "." || cleaned == "" || cleaned == "exec" {
		return ""
	}
	return cleaned
}
