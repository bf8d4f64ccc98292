// Package http exposes the ledger over a JSON API.
package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cashdesk-erp/cashdesk/internal/ledger"
	ledgershared "github.com/cashdesk-erp/cashdesk/internal/ledger/shared"
	"github.com/cashdesk-erp/cashdesk/internal/platform/httpx"
	"github.com/cashdesk-erp/cashdesk/internal/shared"
)

// Handler wires document posting and balance endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *ledger.Service
	calc      *ledger.Calculator
	reporter  *ledger.Reporter
	validator *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *ledger.Service, calc *ledger.Calculator, reporter *ledger.Reporter) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		calc:      calc,
		reporter:  reporter,
		validator: validator.New(),
	}
}

// MountRoutes registers ledger routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Post("/income", h.saveIncome)
		r.Post("/expenses", h.saveExpense)
		r.Post("/advance-payments", h.saveAdvancePayment)
		r.Post("/additional-advances", h.saveAdditionalAdvance)
		r.Post("/advance-reports", h.saveAdvanceReport)
		r.Post("/advance-returns", h.saveAdvanceReturn)
		r.Post("/transfers", h.saveTransfer)
		r.Post("/conversions", h.saveConversion)
	})
	r.Get("/advances/open", h.listOpenAdvances)
	r.Get("/advances/{id}/unreported-balance", h.unreportedBalance)
	r.Get("/registers/{id}/balance", h.cashBalance)
	r.Get("/employees/{id}/advance-balance", h.employeeAdvanceBalance)
	r.Get("/transactions", h.listTransactions)
	r.Get("/reports/expense-by-item", h.expenseByItem)
}

// actorID reads the authenticated user id propagated by the gateway. Zero
// means unattributed; posting still proceeds.
func actorID(r *http.Request) int64 {
	if actor := shared.ActorFromContext(r.Context()); actor != 0 {
		return actor
	}
	actor, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return actor
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

// respondError maps posting failures onto problem responses. Business rule
// violations are 422, missing references 404, everything unexpected 500.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledgershared.ErrAdvanceNotFound),
		errors.Is(err, ledgershared.ErrDocumentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ledgershared.ErrAmountNotPositive),
		errors.Is(err, ledgershared.ErrSameRegister),
		errors.Is(err, ledgershared.ErrSameCurrency),
		errors.Is(err, ledgershared.ErrRateMismatch),
		errors.Is(err, ledgershared.ErrRateNotPositive),
		errors.Is(err, ledgershared.ErrCategoryMismatch),
		errors.Is(err, ledgershared.ErrNoReportItems),
		errors.Is(err, ledgershared.ErrNegativeReportAmount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Posting Rejected", err.Error())
	case errors.Is(err, ledgershared.ErrInsufficientBalance),
		errors.Is(err, ledgershared.ErrReturnExceedsBalance):
		httpx.Problem(w, http.StatusConflict, "Insufficient Funds", err.Error())
	default:
		h.logger.Error("ledger request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) saveIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.SaveIncome(r.Context(), req.toDomain(), actorID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc.DocumentMeta))
}

func (h *Handler) saveExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.SaveExpense(r.Context(), req.toDomain(), actorID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc.DocumentMeta))
}

func (h *Handler) saveAdvancePayment(w http.ResponseWriter, r *http.Request) {
	var req advancePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.SaveAdvancePayment(r.Context(), req.toDomain(), actorID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc.DocumentMeta))
}

func (h *Handler) saveAdditionalAdvance(w http.ResponseWriter, r *http.Request) {
	var req additionalAdvanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.SaveAdditionalAdvancePayment(r.Context(), req.toDomain(), actorID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc.DocumentMeta))
}

func (h *Handler) saveAdvanceReport(w http.ResponseWriter, r *http.Request) {
	var req advanceReportRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.SaveAdvanceReport(r.Context(), req.toDomain(), actorID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reportResponse{
		documentResponse:  toDocumentResponse(doc.DocumentMeta),
		Status:            string(doc.Status),
		TotalAmount:       doc.TotalAmount,
		ReturnAmount:      doc.ReturnAmount,
		AdditionalPayment: doc.AdditionalPayment,
	})
}

func (h *Handler) saveAdvanceReturn(w http.ResponseWriter, r *http.Request) {
	var req advanceReturnRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.SaveAdvanceReturn(r.Context(), req.toDomain(), actorID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc.DocumentMeta))
}

func (h *Handler) saveTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.SaveCashTransfer(r.Context(), req.toDomain(), actorID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDocumentResponse(doc.DocumentMeta))
}

func (h *Handler) saveConversion(w http.ResponseWriter, r *http.Request) {
	var req conversionRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.SaveCurrencyConversion(r.Context(), req.toDomain(), actorID(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, conversionResponse{
		documentResponse: toDocumentResponse(doc.DocumentMeta),
		ToAmount:         doc.ToAmount,
		ExchangeRate:     doc.ExchangeRate,
	})
}

func (h *Handler) listOpenAdvances(w http.ResponseWriter, r *http.Request) {
	var employeeID *uuid.UUID
	if raw := r.URL.Query().Get("employee_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "employee_id must be a UUID")
			return
		}
		employeeID = &id
	}
	advances, err := h.reporter.OpenAdvances(r.Context(), employeeID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]openAdvanceResponse, 0, len(advances))
	for _, adv := range advances {
		out = append(out, openAdvanceResponse{
			documentResponse: toDocumentResponse(adv.DocumentMeta),
			EmployeeID:       adv.EmployeeID,
			CurrencyID:       adv.CurrencyID,
			Amount:           adv.Amount,
			Purpose:          adv.Purpose,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) unreportedBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{Balance: h.calc.UnreportedBalance(r.Context(), id)})
}

func (h *Handler) cashBalance(w http.ResponseWriter, r *http.Request) {
	registerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	currencyID, err := uuid.Parse(r.URL.Query().Get("currency_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "currency_id must be a UUID")
		return
	}
	var asOf *time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be RFC3339")
			return
		}
		asOf = &t
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{Balance: h.calc.CashBalance(r.Context(), registerID, currencyID, asOf)})
}

func (h *Handler) employeeAdvanceBalance(w http.ResponseWriter, r *http.Request) {
	employeeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	currencyID, err := uuid.Parse(r.URL.Query().Get("currency_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "currency_id must be a UUID")
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{Balance: h.calc.EmployeeAdvanceBalance(r.Context(), employeeID, currencyID)})
}

func parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseUUIDParam(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	var f ledger.TransactionFilter
	var err error
	if f.DateFrom, err = parseTimeParam(r, "date_from"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date_from must be RFC3339")
		return
	}
	if f.DateTo, err = parseTimeParam(r, "date_to"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date_to must be RFC3339")
		return
	}
	if f.CashRegisterID, err = parseUUIDParam(r, "cash_register_id"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cash_register_id must be a UUID")
		return
	}
	if f.CurrencyID, err = parseUUIDParam(r, "currency_id"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "currency_id must be a UUID")
		return
	}
	if f.EmployeeID, err = parseUUIDParam(r, "employee_id"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "employee_id must be a UUID")
		return
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := ledger.TransactionType(raw)
		f.Type = &t
	}
	transactions, err := h.reporter.Transactions(r.Context(), f)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionResponse(t))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) expenseByItem(w http.ResponseWriter, r *http.Request) {
	var f ledger.ReportItemFilter
	var err error
	if f.DateFrom, err = parseTimeParam(r, "date_from"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date_from must be RFC3339")
		return
	}
	if f.DateTo, err = parseTimeParam(r, "date_to"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date_to must be RFC3339")
		return
	}
	if f.CashRegisterID, err = parseUUIDParam(r, "cash_register_id"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cash_register_id must be a UUID")
		return
	}
	if f.CurrencyID, err = parseUUIDParam(r, "currency_id"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "currency_id must be a UUID")
		return
	}
	totals, err := h.reporter.ExpenseByItem(r.Context(), f)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]itemTotalResponse, 0, len(totals))
	for _, t := range totals {
		out = append(out, itemTotalResponse{ItemID: t.ItemID, Total: t.Total, Count: t.Count})
	}
	httpx.JSON(w, http.StatusOK, out)
}
