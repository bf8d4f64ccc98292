package refdata

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashdesk-erp/cashdesk/internal/platform/httpx"
)

// Handler exposes the reference catalogues over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers reference data routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/currencies", func(r chi.Router) {
		r.Get("/", h.listCurrencies)
		r.Post("/", h.createCurrency)
	})
	r.Route("/registers", func(r chi.Router) {
		r.Get("/", h.listRegisters)
		r.Post("/", h.createRegister)
	})
	r.Route("/expense-items", func(r chi.Router) {
		r.Get("/", h.listExpenseItems)
		r.Post("/", h.createExpenseItem)
	})
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.listEmployees)
		r.Post("/", h.createEmployee)
	})
	r.Route("/rates", func(r chi.Router) {
		r.Post("/", h.createRate)
		r.Get("/lookup", h.lookupRate)
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrRateNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, httpx.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, httpx.ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error("refdata request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func activeOnly(r *http.Request) bool {
	return r.URL.Query().Get("include_inactive") != "true"
}

type currencyRequest struct {
	Code   string `json:"code" validate:"required,len=3"`
	Name   string `json:"name" validate:"required"`
	Symbol string `json:"symbol"`
}

func (h *Handler) createCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if !h.decode(w, r, &req) {
		return
	}
	currency, err := h.service.CreateCurrency(r.Context(), Currency{
		Code:     req.Code,
		Name:     req.Name,
		Symbol:   req.Symbol,
		IsActive: true,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, currency)
}

func (h *Handler) listCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.service.ListCurrencies(r.Context(), activeOnly(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, currencies)
}

type registerRequest struct {
	Name string  `json:"name" validate:"required"`
	Code *string `json:"code"`
}

func (h *Handler) createRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	register, err := h.service.CreateCashRegister(r.Context(), CashRegister{
		Name:     req.Name,
		Code:     req.Code,
		IsActive: true,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, register)
}

func (h *Handler) listRegisters(w http.ResponseWriter, r *http.Request) {
	registers, err := h.service.ListCashRegisters(r.Context(), activeOnly(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, registers)
}

type expenseItemRequest struct {
	Name     string     `json:"name" validate:"required"`
	Type     string     `json:"type" validate:"required,oneof=income expense"`
	ParentID *uuid.UUID `json:"parent_id"`
}

func (h *Handler) createExpenseItem(w http.ResponseWriter, r *http.Request) {
	var req expenseItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.service.CreateExpenseItem(r.Context(), ExpenseItem{
		Name:     req.Name,
		Type:     ItemType(req.Type),
		ParentID: req.ParentID,
		IsActive: true,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) listExpenseItems(w http.ResponseWriter, r *http.Request) {
	var itemType *ItemType
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := ItemType(raw)
		itemType = &t
	}
	items, err := h.service.ListExpenseItems(r.Context(), itemType, activeOnly(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

type employeeRequest struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	MiddleName string `json:"middle_name"`
	Position   string `json:"position"`
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	employee, err := h.service.CreateEmployee(r.Context(), Employee{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MiddleName: req.MiddleName,
		Position:   req.Position,
		IsActive:   true,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, employee)
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.ListEmployees(r.Context(), activeOnly(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, employees)
}

type rateRequest struct {
	Name           string          `json:"name"`
	FromCurrencyID uuid.UUID       `json:"from_currency_id" validate:"required"`
	ToCurrencyID   uuid.UUID       `json:"to_currency_id" validate:"required"`
	Rate           decimal.Decimal `json:"rate" validate:"required"`
	Date           time.Time       `json:"date" validate:"required"`
}

func (h *Handler) createRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if !h.decode(w, r, &req) {
		return
	}
	rate, err := h.service.CreateCurrencyRate(r.Context(), CurrencyRate{
		Name:           req.Name,
		FromCurrencyID: req.FromCurrencyID,
		ToCurrencyID:   req.ToCurrencyID,
		Rate:           req.Rate,
		Date:           req.Date,
		IsActive:       true,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rate)
}

type rateLookupResponse struct {
	Rate  decimal.Decimal `json:"rate"`
	Found bool            `json:"found"`
}

func (h *Handler) lookupRate(w http.ResponseWriter, r *http.Request) {
	from, err := uuid.Parse(r.URL.Query().Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be a UUID")
		return
	}
	to, err := uuid.Parse(r.URL.Query().Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be a UUID")
		return
	}
	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err = time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
	}
	rate, found, err := h.service.Rate(r.Context(), from, to, date)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rateLookupResponse{Rate: rate, Found: found})
}
