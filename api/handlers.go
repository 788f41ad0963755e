/*
handlers.go - HTTP API handlers for the loan book

PURPOSE:
  Exposes the lending service via REST API. Handles HTTP request/response,
  JSON decoding and shape validation, and delegates everything else to
  lending.Service.

ENDPOINTS:
  Areas:
    GET    /api/areas                    List areas
    POST   /api/areas                    Create area (optionally onboarding)
    GET    /api/areas/selected           Current area
    POST   /api/areas/{id}/select        Make area current
    DELETE /api/areas/{id}               Delete area and everything in it

  Villages (selected area):
    GET    /api/villages                 List villages
    POST   /api/villages                 Create village
    DELETE /api/villages/{id}            Delete village

  Customers (selected area):
    GET    /api/customers?q=             Summaries in collection order
    POST   /api/customers                Register customer
    GET    /api/customers/groups?q=      Summaries grouped by village
    GET    /api/customers/{id}           Customer record
    DELETE /api/customers/{id}           Delete customer (events stay)
    GET    /api/customers/{id}/summary   Current loan state
    GET    /api/customers/{id}/sections  Loan history
    GET    /api/customers/{id}/events    Loan and payment events

  Money (selected area):
    POST   /api/loans                    New loan (with optional backfill)
    POST   /api/loans/renew              Renew loan
    POST   /api/payments                 Installment payment
    POST   /api/expenses                 Expense
    POST   /api/capital                  Capital injection
    POST   /api/adjustments              Signed correction

  Views (selected area):
    GET    /api/events?mode=&date=&from=&to=     Event list
    GET    /api/dashboard?mode=&date=&from=&to=  Dashboard

  Scenarios:
    GET    /api/scenarios                List demo scenarios
    POST   /api/scenarios/load           Replace all data with a scenario

ERROR HANDLING:
  Errors are returned as JSON {"error": "..."} with:
  - 400: Validation errors, bad JSON, bad date filter
  - 404: Unknown area, village, customer or event
  - 409: No area selected
  - 500: Internal errors (logged, details hidden)

SECURITY NOTE:
  No authentication. The API is meant for a single operator's device.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/warp/loanbook/ledger"
	"github.com/warp/loanbook/lending"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	svc      *lending.Service
	log      *zap.Logger
	validate *validator.Validate
}

// NewHandler creates a handler over the lending service.
func NewHandler(svc *lending.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log, validate: newValidator()}
}

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// =============================================================================
// AREA HANDLERS
// =============================================================================

func (h *Handler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.svc.ListAreas(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, areas)
}

func (h *Handler) CreateArea(w http.ResponseWriter, r *http.Request) {
	var req CreateAreaRequest
	if !h.decode(w, r, &req) {
		return
	}
	area, err := h.svc.CreateArea(r.Context(), lending.CreateAreaInput{
		Name:           req.Name,
		IsOnboarding:   req.IsOnboarding,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, area)
}

func (h *Handler) SelectedArea(w http.ResponseWriter, r *http.Request) {
	area, err := h.svc.SelectedArea(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, area)
}

func (h *Handler) SelectArea(w http.ResponseWriter, r *http.Request) {
	area, err := h.svc.SelectArea(r.Context(), ledger.AreaID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, area)
}

func (h *Handler) DeleteArea(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteArea(r.Context(), ledger.AreaID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// VILLAGE HANDLERS
// =============================================================================

func (h *Handler) ListVillages(w http.ResponseWriter, r *http.Request) {
	villages, err := h.svc.ListVillages(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, villages)
}

func (h *Handler) CreateVillage(w http.ResponseWriter, r *http.Request) {
	var req CreateVillageRequest
	if !h.decode(w, r, &req) {
		return
	}
	v, err := h.svc.CreateVillage(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) DeleteVillage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteVillage(r.Context(), ledger.VillageID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns loan summaries in collection order, filtered by ?q=.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.svc.SearchCustomers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTOs(summaries, h.svc.Formatter()))
}

func (h *Handler) CustomerGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.VillageGroups(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]VillageGroupDTO, len(groups))
	for i, g := range groups {
		dtos[i] = VillageGroupDTO{
			VillageID:   g.VillageID,
			VillageName: g.VillageName,
			Customers:   toSummaryDTOs(g.Customers, h.svc.Formatter()),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCustomer(r.Context(), lending.CreateCustomerInput{
		VillageID: ledger.VillageID(req.VillageID),
		Name:      req.Name,
		Phone:     strings.TrimSpace(req.Phone),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCustomer(r.Context(), customerParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCustomer(r.Context(), customerParam(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CustomerSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.CustomerSummary(r.Context(), customerParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(s, h.svc.Formatter()))
}

func (h *Handler) CustomerSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.svc.CustomerSections(r.Context(), customerParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSectionDTOs(sections))
}

func (h *Handler) CustomerEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.CustomerEvents(r.Context(), customerParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTOs(events, h.svc.Formatter()))
}

func customerParam(r *http.Request) ledger.CustomerID {
	return ledger.CustomerID(chi.URLParam(r, "id"))
}

// =============================================================================
// MONEY HANDLERS
// =============================================================================

// CreateLoan returns the loan event first, followed by any backfilled
// payments.
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req NewLoanRequest
	if !h.decode(w, r, &req) {
		return
	}
	events, err := h.svc.CreateNewLoan(r.Context(), lending.NewLoanInput{
		CustomerID:           ledger.CustomerID(req.CustomerID),
		LoanAmount:           req.LoanAmount,
		TotalPayable:         req.TotalPayable,
		TotalInstallments:    req.TotalInstallments,
		BackfillInstallments: req.BackfillInstallments,
		BackfillAmount:       req.BackfillAmount,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTOs(events, h.svc.Formatter()))
}

func (h *Handler) RenewLoan(w http.ResponseWriter, r *http.Request) {
	var req RenewLoanRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.svc.RenewLoan(r.Context(), lending.RenewLoanInput{
		CustomerID:          ledger.CustomerID(req.CustomerID),
		PreviousLoanEventID: ledger.EventID(req.PreviousLoanEventID),
		LoanAmount:          req.LoanAmount,
		TotalPayable:        req.TotalPayable,
		TotalInstallments:   req.TotalInstallments,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(e, h.svc.Formatter()))
}

func (h *Handler) MakePayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.MakePayment(r.Context(), lending.PaymentInput{
		CustomerID:    ledger.CustomerID(req.CustomerID),
		LoanEventID:   ledger.EventID(req.LoanEventID),
		OnlineAmount:  req.OnlineAmount,
		OfflineAmount: req.OfflineAmount,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PaymentDTO{
		Event:    toEventDTO(res.Event, h.svc.Formatter()),
		Overpaid: res.Overpaid,
	})
}

func (h *Handler) AddExpense(w http.ResponseWriter, r *http.Request) {
	var req CashRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.svc.AddExpense(r.Context(), req.Amount, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(e, h.svc.Formatter()))
}

func (h *Handler) AddCapital(w http.ResponseWriter, r *http.Request) {
	var req CashRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.svc.AddCapital(r.Context(), req.Amount, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(e, h.svc.Formatter()))
}

func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.svc.CreateAdjustment(r.Context(), ledger.EventID(req.ReferenceEventID), req.Amount, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(e, h.svc.Formatter()))
}

// =============================================================================
// VIEW HANDLERS
// =============================================================================

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	f, ok := h.dateFilter(w, r)
	if !ok {
		return
	}
	events, err := h.svc.Events(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTOs(events, h.svc.Formatter()))
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	f, ok := h.dateFilter(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Dashboard(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(d, periodLabel(f, h.svc.Now()), h.svc.Formatter()))
}

// dateFilter reads mode, date, from and to. Dates are calendar days in the
// service clock's zone.
func (h *Handler) dateFilter(w http.ResponseWriter, r *http.Request) (ledger.DateFilter, bool) {
	q := r.URL.Query()
	f, err := ledger.ParseDateFilter(q.Get("mode"), q.Get("date"), q.Get("from"), q.Get("to"), h.svc.Now().Location())
	if err != nil {
		h.fail(w, r, err)
		return ledger.DateFilter{}, false
	}
	return f, true
}

// periodLabel renders the filter window, e.g. "15 Oct 2026" or
// "1 Oct 2026 to 15 Oct 2026".
func periodLabel(f ledger.DateFilter, now time.Time) string {
	p, ok := f.Window(now)
	if !ok {
		return "All time"
	}
	start, end := ledger.FormatDate(p.Start), ledger.FormatDate(p.End)
	if start == end {
		return start
	}
	return start + " to " + end
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, lending.Scenarios)
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.LoadScenario(r.Context(), req.ScenarioID); err != nil {
		h.fail(w, r, err)
		return
	}
	area, err := h.svc.SelectedArea(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scenarioId":   req.ScenarioID,
		"selectedArea": area,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into dst and validates it. On failure it writes
// a 400 and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "invalid request body", err)
			return false
		}
		details := make([]FieldErrorDTO, len(verrs))
		for i, fe := range verrs {
			details[i] = FieldErrorDTO{Field: fe.Field(), Message: validationMessage(fe)}
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "request validation failed",
			Code:    "validation_error",
			Details: details,
		})
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "ltefield":
		// Param is the Go field name; report it the way clients spell it.
		p := fe.Param()
		return "must not exceed " + strings.ToLower(p[:1]) + p[1:]
	default:
		return "invalid value"
	}
}

// fail maps a service error to its HTTP status. Internal errors are logged
// and their details withheld from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, status, ErrorResponse{Error: "internal error", Code: code})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func statusFor(err error) (int, string) {
	switch {
	case ledger.IsClientError(err):
		return http.StatusBadRequest, "validation_error"
	case ledger.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ledger.ErrNoAreaSelected):
		return http.StatusConflict, "no_area_selected"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
