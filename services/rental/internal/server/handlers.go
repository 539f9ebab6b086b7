package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rentbook/internal/util"
	"rentbook/pkg/store"
	"rentbook/services/rental/internal/app"
)

const (
	defaultHistoryMonths = 6
	maxHistoryMonths     = 36
)

// dispatch routes everything under /api/ once the operator is known.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, operator string) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/")
	if rest == "" {
		notFound(w, "not found")
		return
	}
	parts := strings.Split(rest, "/")
	resource := strings.ToLower(parts[0])
	if resource == "reportes" {
		s.handleReports(w, r, parts[1:])
		return
	}
	if s.handleRoomRoutes(w, r, resource, parts[1:]) ||
		s.handleTenantRoutes(w, r, resource, parts[1:]) ||
		s.handlePaymentRoutes(w, r, resource, parts[1:]) ||
		s.handleExpenseRoutes(w, r, resource, parts[1:]) {
		return
	}
	s.handleCRUD(w, r, resource, parts[1:], operator)
}

func (s *Server) handleCRUD(w http.ResponseWriter, r *http.Request, resource string, parts []string, operator string) {
	ctx := r.Context()
	switch len(parts) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			recs, err := s.app.List(ctx, resource, s.listFilter(r))
			if err != nil {
				writeAppError(w, r, err)
				return
			}
			writeData(w, http.StatusOK, recs, "")
		case http.MethodPost:
			data, ok := decodeRecord(w, r)
			if !ok {
				return
			}
			rec, err := s.app.Create(ctx, resource, data)
			if err != nil {
				writeAppError(w, r, err)
				return
			}
			s.logMutation(r, operator, "created", resource, rec.ID())
			writeData(w, http.StatusCreated, rec, "Registro creado")
		default:
			methodNotAllowed(w)
		}
	case 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			rec, err := s.app.Get(ctx, resource, id)
			if err != nil {
				writeAppError(w, r, err)
				return
			}
			writeData(w, http.StatusOK, rec, "")
		case http.MethodPut:
			patch, ok := decodeRecord(w, r)
			if !ok {
				return
			}
			rec, err := s.app.Update(ctx, resource, id, patch)
			if err != nil {
				writeAppError(w, r, err)
				return
			}
			s.logMutation(r, operator, "updated", resource, id)
			writeData(w, http.StatusOK, rec, "Registro actualizado")
		case http.MethodDelete:
			if err := s.app.Delete(ctx, resource, id); err != nil {
				writeAppError(w, r, err)
				return
			}
			s.logMutation(r, operator, "deleted", resource, id)
			writeData(w, http.StatusOK, nil, "Registro eliminado")
		default:
			methodNotAllowed(w)
		}
	default:
		notFound(w, "not found")
	}
}

// habitaciones/estado-pago, habitaciones/{id}/estado
func (s *Server) handleRoomRoutes(w http.ResponseWriter, r *http.Request, resource string, parts []string) bool {
	if resource != app.ResourceRooms {
		return false
	}
	switch {
	case len(parts) == 1 && parts[0] == "estado-pago":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return true
		}
		month, year := s.period(r)
		recs, err := s.app.RoomsWithPaymentStatus(r.Context(), month, year)
		if err != nil {
			writeAppError(w, r, err)
			return true
		}
		writeData(w, http.StatusOK, recs, "")
	case len(parts) == 2 && parts[1] == "estado":
		if r.Method != http.MethodPut && r.Method != http.MethodPost {
			methodNotAllowed(w)
			return true
		}
		var req statusRequest
		if !decodeJSON(w, r, &req) {
			return true
		}
		rec, err := s.app.UpdateRoomStatus(r.Context(), parts[0], req.Estado)
		if err != nil {
			writeAppError(w, r, err)
			return true
		}
		writeData(w, http.StatusOK, rec, "Estado actualizado")
	default:
		return false
	}
	return true
}

// inquilinos/habitacion/{roomId}, inquilinos/{id}/baja
func (s *Server) handleTenantRoutes(w http.ResponseWriter, r *http.Request, resource string, parts []string) bool {
	if resource != app.ResourceTenants || len(parts) != 2 {
		return false
	}
	switch {
	case parts[0] == "habitacion":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return true
		}
		rec, err := s.app.TenantForRoom(r.Context(), parts[1])
		if err != nil {
			writeAppError(w, r, err)
			return true
		}
		// nil encodes as null when the room is empty
		writeData(w, http.StatusOK, rec, "")
	case parts[1] == "baja":
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			methodNotAllowed(w)
			return true
		}
		var req checkOutRequest
		if !decodeOptionalJSON(w, r, &req) {
			return true
		}
		var moveOut time.Time
		if strings.TrimSpace(req.FechaSalida) != "" {
			t, err := store.ParseDate(req.FechaSalida)
			if err != nil {
				writeErrorCode(w, http.StatusBadRequest, "RENTAL_INVALID_INPUT", "invalid fechaSalida")
				return true
			}
			moveOut = t
		}
		rec, err := s.app.CheckOut(r.Context(), parts[0], moveOut)
		if err != nil {
			writeAppError(w, r, err)
			return true
		}
		writeData(w, http.StatusOK, rec, "Inquilino dado de baja")
	default:
		return false
	}
	return true
}

// pagos/resumen, pagos/{id}/anular
func (s *Server) handlePaymentRoutes(w http.ResponseWriter, r *http.Request, resource string, parts []string) bool {
	if resource != app.ResourcePayments {
		return false
	}
	switch {
	case len(parts) == 1 && parts[0] == "resumen":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return true
		}
		month, year := s.period(r)
		sum, err := s.app.PaymentSummary(r.Context(), month, year)
		if err != nil {
			writeAppError(w, r, err)
			return true
		}
		writeData(w, http.StatusOK, sum, "")
	case len(parts) == 2 && parts[1] == "anular":
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			methodNotAllowed(w)
			return true
		}
		rec, err := s.app.VoidPayment(r.Context(), parts[0])
		if err != nil {
			writeAppError(w, r, err)
			return true
		}
		writeData(w, http.StatusOK, rec, "Pago anulado")
	default:
		return false
	}
	return true
}

// gastos/resumen-categoria, gastos/{id}/comprobante
func (s *Server) handleExpenseRoutes(w http.ResponseWriter, r *http.Request, resource string, parts []string) bool {
	if resource != app.ResourceExpenses {
		return false
	}
	switch {
	case len(parts) == 1 && parts[0] == "resumen-categoria":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return true
		}
		month, year := s.period(r)
		sum, err := s.app.ExpenseCategorySummary(r.Context(), month, year, r.URL.Query().Get("edificioId"))
		if err != nil {
			writeAppError(w, r, err)
			return true
		}
		writeData(w, http.StatusOK, sum, "")
	case len(parts) == 2 && parts[1] == "comprobante":
		switch r.Method {
		case http.MethodGet:
			url, err := s.app.ReceiptURL(r.Context(), parts[0])
			if err != nil {
				writeAppError(w, r, err)
				return true
			}
			writeData(w, http.StatusOK, receiptResponse{URL: url}, "")
		case http.MethodPost:
			s.handleUploadReceipt(w, r, parts[0])
		default:
			methodNotAllowed(w)
		}
	default:
		return false
	}
	return true
}

func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request, expenseID string) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	rec, err := s.app.UploadReceipt(r.Context(), expenseID, header.Filename, file, header.Size)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, rec, "Comprobante guardado")
}

// reportes/{dashboard|mensual|historico|exportar}
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) != 1 {
		notFound(w, "not found")
		return
	}
	if parts[0] == "exportar" {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
	} else if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	ctx := r.Context()
	month, year := s.period(r)
	var (
		data any
		err  error
	)
	switch parts[0] {
	case "dashboard":
		data, err = s.app.Dashboard(ctx, month, year)
	case "mensual":
		data, err = s.app.MonthlyReport(ctx, month, year)
	case "historico":
		data, err = s.app.History(ctx, month, year, historyMonths(r))
	case "exportar":
		data, err = s.app.ExportMonthly(ctx, month, year)
	default:
		notFound(w, "not found")
		return
	}
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, data, "")
}

func historyMonths(r *http.Request) int {
	q := r.URL.Query()
	raw := q.Get("meses")
	if raw == "" {
		raw = q.Get("n")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultHistoryMonths
	}
	return min(n, maxHistoryMonths)
}

func (s *Server) listFilter(r *http.Request) app.ListFilter {
	q := r.URL.Query()
	f := app.ListFilter{
		CityID:     q.Get("ciudadId"),
		BuildingID: q.Get("edificioId"),
		FloorID:    q.Get("pisoId"),
		RoomID:     q.Get("habitacionId"),
		Status:     q.Get("estado"),
		ActiveOnly: q.Get("activos") == "true" || q.Get("activo") == "true",
	}
	if q.Get("mes") != "" && q.Get("anio") != "" {
		f.Month, f.Year = s.period(r)
	}
	return f
}

func (s *Server) logMutation(r *http.Request, operator, action, resource, id string) {
	util.LoggerFromContext(r.Context()).Info("record_"+action, "operator", operator, "resource", resource, "id", id)
}

type statusRequest struct {
	Estado string `json:"estado"`
}

type checkOutRequest struct {
	FechaSalida string `json:"fechaSalida"`
}

type receiptResponse struct {
	URL string `json:"url"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (store.Record, bool) {
	var data map[string]any
	if !decodeJSON(w, r, &data) {
		return nil, false
	}
	if data == nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return store.Record(data), true
}
