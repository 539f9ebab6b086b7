package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"rentbook/internal/ratelimit"
	"rentbook/pkg/auth"
	"rentbook/pkg/storage"
	"rentbook/pkg/store"
	"rentbook/services/rental/internal/app"
)

const testPassword = "Str0ng#Password!"

type apiResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	Error     string          `json:"error"`
	Code      string          `json:"code"`
	RequestID string          `json:"requestId"`
}

func newTestServer(t *testing.T, publicLimiter ratelimit.Limiter) http.Handler {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a, err := app.New(context.Background(), app.Config{
		Grid:      store.NewMemoryGrid(),
		Objects:   storage.NewMemoryStore("test"),
		JWTSecret: strings.Repeat("k", 32),
		Operators: []auth.Operator{{Username: "admin", PasswordHash: hash}},
		Now:       func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return New(Config{App: a, PublicLimiter: publicLimiter}).Router()
}

func call(t *testing.T, h http.Handler, method, target, token, body string) (int, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, target, rec.Body.String(), err)
	}
	return rec.Code, out
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	status, resp := call(t, h, http.MethodPost, "/api/auth/login", "", `{"username":"admin","password":"`+testPassword+`"}`)
	if status != http.StatusOK {
		t.Fatalf("login status %d: %+v", status, resp)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login data %s err=%v", resp.Data, err)
	}
	return data.Token
}

func record(t *testing.T, resp apiResponse) map[string]any {
	t.Helper()
	var rec map[string]any
	if err := json.Unmarshal(resp.Data, &rec); err != nil {
		t.Fatalf("decode record %s: %v", resp.Data, err)
	}
	return rec
}

func TestLoginRejectsBadPassword(t *testing.T) {
	h := newTestServer(t, nil)
	status, resp := call(t, h, http.MethodPost, "/api/auth/login", "", `{"username":"admin","password":"wrong"}`)
	if status != http.StatusUnauthorized || resp.Code != "AUTH_INVALID_CREDENTIALS" || resp.Success {
		t.Fatalf("unexpected response %d %+v", status, resp)
	}
	status, resp = call(t, h, http.MethodGet, "/api/auth/login", "", "")
	if status != http.StatusMethodNotAllowed || resp.Code != "SYSTEM_METHOD_NOT_ALLOWED" {
		t.Fatalf("unexpected response %d %+v", status, resp)
	}
}

func TestAPIRequiresOperatorToken(t *testing.T) {
	h := newTestServer(t, nil)
	status, resp := call(t, h, http.MethodGet, "/api/ciudades", "", "")
	if status != http.StatusUnauthorized || resp.Code != "AUTH_INVALID_TOKEN" {
		t.Fatalf("unexpected response %d %+v", status, resp)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected request id in error body")
	}

	token := login(t, h)
	if status, _ := call(t, h, http.MethodGet, "/api/ciudades", token, ""); status != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", status)
	}
	if status, _ := call(t, h, http.MethodPost, "/api/auth/logout", token, ""); status != http.StatusOK {
		t.Fatalf("logout status %d", status)
	}
	if status, _ := call(t, h, http.MethodGet, "/api/ciudades", token, ""); status != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected, got %d", status)
	}
}

func TestCRUDLifecycle(t *testing.T) {
	h := newTestServer(t, nil)
	token := login(t, h)

	status, resp := call(t, h, http.MethodPost, "/api/ciudades", token, `{"nombre":"Puno","activo":true}`)
	if status != http.StatusCreated || !resp.Success {
		t.Fatalf("create status %d %+v", status, resp)
	}
	id, _ := record(t, resp)["id"].(string)
	if id == "" {
		t.Fatalf("expected generated id in %s", resp.Data)
	}

	status, resp = call(t, h, http.MethodPut, "/api/ciudades/"+id, token, `{"nombre":"Juliaca"}`)
	if status != http.StatusOK || record(t, resp)["nombre"] != "Juliaca" {
		t.Fatalf("update status %d %+v", status, resp)
	}

	status, resp = call(t, h, http.MethodGet, "/api/ciudades?activos=true", token, "")
	var list []map[string]any
	if err := json.Unmarshal(resp.Data, &list); err != nil || status != http.StatusOK || len(list) != 1 {
		t.Fatalf("list status %d data %s err=%v", status, resp.Data, err)
	}

	if status, _ := call(t, h, http.MethodDelete, "/api/ciudades/"+id, token, ""); status != http.StatusOK {
		t.Fatalf("delete status %d", status)
	}
	status, resp = call(t, h, http.MethodGet, "/api/ciudades/"+id, token, "")
	if status != http.StatusNotFound || resp.Code != "RENTAL_NOT_FOUND" {
		t.Fatalf("expected not found after delete, got %d %+v", status, resp)
	}

	status, resp = call(t, h, http.MethodGet, "/api/usuarios", token, "")
	if status != http.StatusNotFound || resp.Code != "SYSTEM_NOT_FOUND" {
		t.Fatalf("expected unknown resource, got %d %+v", status, resp)
	}
	status, resp = call(t, h, http.MethodPost, "/api/ciudades", token, `not json`)
	if status != http.StatusBadRequest || resp.Code != "RENTAL_INVALID_REQUEST" {
		t.Fatalf("expected invalid body, got %d %+v", status, resp)
	}
	status, resp = call(t, h, http.MethodPost, "/api/pagos", token, `{"monto":10,"fecha":"someday"}`)
	if status != http.StatusBadRequest || resp.Code != "RENTAL_INVALID_INPUT" {
		t.Fatalf("expected invalid date, got %d %+v", status, resp)
	}
}

func TestTenantRoutes(t *testing.T) {
	h := newTestServer(t, nil)
	token := login(t, h)

	_, resp := call(t, h, http.MethodPost, "/api/habitaciones", token, `{"codigo":"A1","estado":"vacant","montoAlquiler":300}`)
	roomID, _ := record(t, resp)["id"].(string)

	status, resp := call(t, h, http.MethodGet, "/api/inquilinos/habitacion/"+roomID, token, "")
	if status != http.StatusOK || string(resp.Data) != "null" {
		t.Fatalf("expected null tenant for empty room, got %d %s", status, resp.Data)
	}

	status, resp = call(t, h, http.MethodPost, "/api/inquilinos", token, `{"habitacionId":"`+roomID+`","nombre":"Ana"}`)
	if status != http.StatusCreated {
		t.Fatalf("check in status %d %+v", status, resp)
	}
	tenantID, _ := record(t, resp)["id"].(string)

	status, resp = call(t, h, http.MethodPost, "/api/inquilinos", token, `{"habitacionId":"`+roomID+`","nombre":"Luis"}`)
	if status != http.StatusConflict || resp.Code != "RENTAL_CONFLICT" {
		t.Fatalf("expected conflict, got %d %+v", status, resp)
	}

	status, resp = call(t, h, http.MethodGet, "/api/inquilinos/habitacion/"+roomID, token, "")
	if status != http.StatusOK || record(t, resp)["id"] != tenantID {
		t.Fatalf("expected active tenant, got %d %s", status, resp.Data)
	}

	status, resp = call(t, h, http.MethodPost, "/api/inquilinos/"+tenantID+"/baja", token, `{"fechaSalida":"2024-01-20"}`)
	if status != http.StatusOK {
		t.Fatalf("check out status %d %+v", status, resp)
	}
	_, resp = call(t, h, http.MethodGet, "/api/habitaciones/"+roomID, token, "")
	if record(t, resp)["estado"] != "vacant" {
		t.Fatalf("expected vacant room, got %s", resp.Data)
	}

	status, resp = call(t, h, http.MethodPut, "/api/habitaciones/"+roomID+"/estado", token, `{"estado":"maintenance"}`)
	if status != http.StatusOK || record(t, resp)["estado"] != "maintenance" {
		t.Fatalf("status update %d %s", status, resp.Data)
	}
}

func TestExecTunnel(t *testing.T) {
	h := newTestServer(t, nil)
	token := login(t, h)

	q := url.Values{}
	q.Set("action", "POST")
	q.Set("endpoint", "pagos")
	q.Set("data", `{"habitacionId":"HAB1","monto":150,"concepto":"alquiler"}`)
	status, resp := call(t, h, http.MethodGet, "/api/exec?"+q.Encode(), token, "")
	if status != http.StatusCreated || !resp.Success {
		t.Fatalf("exec create status %d %+v", status, resp)
	}
	payID, _ := record(t, resp)["id"].(string)

	q = url.Values{}
	q.Set("endpoint", "/api/pagos/")
	q.Set("habitacionId", "HAB1")
	status, resp = call(t, h, http.MethodGet, "/api/exec?"+q.Encode(), token, "")
	var list []map[string]any
	if err := json.Unmarshal(resp.Data, &list); err != nil || status != http.StatusOK || len(list) != 1 || list[0]["id"] != payID {
		t.Fatalf("exec list status %d data %s err=%v", status, resp.Data, err)
	}

	for name, query := range map[string]string{
		"embedded query":        "endpoint=" + url.QueryEscape("pagos?habitacionId=HAB1"),
		"outer value overrides": "endpoint=" + url.QueryEscape("pagos?habitacionId=HAB9") + "&habitacionId=HAB1",
	} {
		status, resp = call(t, h, http.MethodGet, "/api/exec?"+query, token, "")
		list = nil
		if err := json.Unmarshal(resp.Data, &list); err != nil || status != http.StatusOK || len(list) != 1 {
			t.Fatalf("%s: status %d data %s err=%v", name, status, resp.Data, err)
		}
	}

	q = url.Values{}
	q.Set("action", "POST")
	q.Set("endpoint", "pagos/"+payID+"/anular")
	status, resp = call(t, h, http.MethodGet, "/api/exec?"+q.Encode(), token, "")
	if status != http.StatusOK || record(t, resp)["estado"] != "anulado" {
		t.Fatalf("exec void status %d %s", status, resp.Data)
	}

	q = url.Values{}
	q.Set("action", "POST")
	q.Set("endpoint", "pagos")
	q.Set("data", `{broken`)
	status, resp = call(t, h, http.MethodGet, "/api/exec?"+q.Encode(), token, "")
	if status != http.StatusBadRequest || resp.Code != "RENTAL_INVALID_REQUEST" {
		t.Fatalf("expected invalid data, got %d %+v", status, resp)
	}

	status, resp = call(t, h, http.MethodGet, "/api/exec?endpoint=pagos", "", "")
	if status != http.StatusUnauthorized {
		t.Fatalf("expected tunnel to require token, got %d %+v", status, resp)
	}
	status, _ = call(t, h, http.MethodGet, "/api/exec?action=PATCH&endpoint=pagos", token, "")
	if status != http.StatusBadRequest {
		t.Fatalf("expected unsupported action, got %d", status)
	}
}

func TestConsultaIsPublicAndRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(mr.Addr(), "", "test", 2, time.Minute)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	t.Cleanup(func() { _ = limiter.Close() })
	h := newTestServer(t, limiter)
	token := login(t, h)
	_, resp := call(t, h, http.MethodPost, "/api/habitaciones", token, `{"codigo":"B2","estado":"vacant","montoAlquiler":250}`)
	roomID, _ := record(t, resp)["id"].(string)

	status, resp := call(t, h, http.MethodGet, "/api/consulta", "", "")
	if status != http.StatusBadRequest {
		t.Fatalf("expected missing params to fail, got %d %+v", status, resp)
	}

	status, resp = call(t, h, http.MethodGet, "/api/exec?endpoint=consulta&habitacionId="+roomID, "", "")
	if status != http.StatusOK {
		t.Fatalf("consulta status %d %+v", status, resp)
	}
	var st struct {
		Month int `json:"mesActual"`
		Year  int `json:"anioActual"`
	}
	if err := json.Unmarshal(resp.Data, &st); err != nil || st.Month != 1 || st.Year != 2024 {
		t.Fatalf("unexpected statement %s err=%v", resp.Data, err)
	}

	status, resp = call(t, h, http.MethodGet, "/api/consulta?habitacionId="+roomID, "", "")
	if status != http.StatusTooManyRequests || resp.Code != "SYSTEM_RATE_LIMITED" {
		t.Fatalf("expected rate limit, got %d %+v", status, resp)
	}
}

func TestReportsAndReceipts(t *testing.T) {
	h := newTestServer(t, nil)
	token := login(t, h)
	_, resp := call(t, h, http.MethodPost, "/api/gastos", token, `{"concepto":"Foco","categoria":"reparacion","monto":12.5,"fecha":"2024-01-10"}`)
	expenseID, _ := record(t, resp)["id"].(string)

	status, resp := call(t, h, http.MethodGet, "/api/gastos/"+expenseID+"/comprobante", token, "")
	if status != http.StatusNotFound || resp.Code != "RENTAL_RECEIPT_NOT_FOUND" {
		t.Fatalf("expected missing receipt, got %d %+v", status, resp)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "boleta.pdf")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = part.Write([]byte("%PDF-1.4"))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/gastos/"+expenseID+"/comprobante", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status %d body %s", rec.Code, rec.Body.String())
	}

	status, resp = call(t, h, http.MethodGet, "/api/gastos/"+expenseID+"/comprobante", token, "")
	var receipt struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(resp.Data, &receipt); err != nil || status != http.StatusOK || !strings.HasPrefix(receipt.URL, "memory://") {
		t.Fatalf("receipt url status %d data %s err=%v", status, resp.Data, err)
	}

	for _, target := range []string{
		"/api/reportes/dashboard?mes=1&anio=2024",
		"/api/reportes/mensual?mes=1&anio=2024",
		"/api/reportes/historico?meses=3",
		"/api/reportes/exportar?mes=1&anio=2024",
	} {
		status, resp = call(t, h, http.MethodGet, target, token, "")
		if status != http.StatusOK || !resp.Success {
			t.Fatalf("%s status %d %+v", target, status, resp)
		}
	}
	var history []json.RawMessage
	_, resp = call(t, h, http.MethodGet, "/api/reportes/historico?meses=3", token, "")
	if err := json.Unmarshal(resp.Data, &history); err != nil || len(history) != 3 {
		t.Fatalf("expected 3 history months, got %s err=%v", resp.Data, err)
	}

	status, _ = call(t, h, http.MethodPost, "/api/reportes/dashboard", token, "")
	if status != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST dashboard, got %d", status)
	}
	status, _ = call(t, h, http.MethodGet, "/api/reportes/anual", token, "")
	if status != http.StatusNotFound {
		t.Fatalf("expected unknown report to 404, got %d", status)
	}
}
