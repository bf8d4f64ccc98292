package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashdesk-erp/cashdesk/internal/ledger"
)

type incomeRequest struct {
	ID             uuid.UUID       `json:"id"`
	Number         string          `json:"number"`
	Date           time.Time       `json:"date"`
	CashRegisterID uuid.UUID       `json:"cash_register_id" validate:"required"`
	CurrencyID     uuid.UUID       `json:"currency_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	ItemID         uuid.UUID       `json:"item_id" validate:"required"`
	Description    string          `json:"description"`
	EmployeeID     *uuid.UUID      `json:"employee_id"`
	IsDeleted      bool            `json:"is_deleted"`
}

func (r incomeRequest) toDomain() ledger.IncomeDocument {
	return ledger.IncomeDocument{
		DocumentMeta:   ledger.DocumentMeta{ID: r.ID, Number: r.Number, Date: r.Date, IsDeleted: r.IsDeleted},
		CashRegisterID: r.CashRegisterID,
		CurrencyID:     r.CurrencyID,
		Amount:         r.Amount,
		ItemID:         r.ItemID,
		Description:    r.Description,
		EmployeeID:     r.EmployeeID,
	}
}

type expenseRequest incomeRequest

func (r expenseRequest) toDomain() ledger.ExpenseDocument {
	return ledger.ExpenseDocument(incomeRequest(r).toDomain())
}

type advancePaymentRequest struct {
	ID             uuid.UUID       `json:"id"`
	Number         string          `json:"number"`
	Date           time.Time       `json:"date"`
	EmployeeID     uuid.UUID       `json:"employee_id" validate:"required"`
	CashRegisterID uuid.UUID       `json:"cash_register_id" validate:"required"`
	CurrencyID     uuid.UUID       `json:"currency_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	ExpenseItemID  uuid.UUID       `json:"expense_item_id" validate:"required"`
	Purpose        string          `json:"purpose"`
	IsDeleted      bool            `json:"is_deleted"`
}

func (r advancePaymentRequest) toDomain() ledger.AdvancePayment {
	return ledger.AdvancePayment{
		DocumentMeta:   ledger.DocumentMeta{ID: r.ID, Number: r.Number, Date: r.Date, IsDeleted: r.IsDeleted},
		EmployeeID:     r.EmployeeID,
		CashRegisterID: r.CashRegisterID,
		CurrencyID:     r.CurrencyID,
		Amount:         r.Amount,
		ExpenseItemID:  r.ExpenseItemID,
		Purpose:        r.Purpose,
	}
}

type additionalAdvanceRequest struct {
	ID                uuid.UUID       `json:"id"`
	Number            string          `json:"number"`
	Date              time.Time       `json:"date"`
	OriginalAdvanceID uuid.UUID       `json:"original_advance_id" validate:"required"`
	CashRegisterID    uuid.UUID       `json:"cash_register_id" validate:"required"`
	CurrencyID        uuid.UUID       `json:"currency_id" validate:"required"`
	Amount            decimal.Decimal `json:"amount" validate:"required"`
	Purpose           string          `json:"purpose"`
	IsDeleted         bool            `json:"is_deleted"`
}

func (r additionalAdvanceRequest) toDomain() ledger.AdditionalAdvancePayment {
	return ledger.AdditionalAdvancePayment{
		DocumentMeta:      ledger.DocumentMeta{ID: r.ID, Number: r.Number, Date: r.Date, IsDeleted: r.IsDeleted},
		OriginalAdvanceID: r.OriginalAdvanceID,
		CashRegisterID:    r.CashRegisterID,
		CurrencyID:        r.CurrencyID,
		Amount:            r.Amount,
		Purpose:           r.Purpose,
	}
}

type reportItemRequest struct {
	ID          uuid.UUID       `json:"id"`
	ItemID      uuid.UUID       `json:"item_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
}

type advanceReportRequest struct {
	ID                      uuid.UUID           `json:"id"`
	Number                  string              `json:"number"`
	Date                    time.Time           `json:"date"`
	AdvancePaymentID        uuid.UUID           `json:"advance_payment_id" validate:"required"`
	CurrencyID              uuid.UUID           `json:"currency_id" validate:"required"`
	Status                  string              `json:"status" validate:"omitempty,oneof=draft submitted confirmed rejected"`
	TotalAmount             decimal.Decimal     `json:"total_amount"`
	ManualReturnAmount      decimal.Decimal     `json:"manual_return_amount"`
	ManualAdditionalPayment decimal.Decimal     `json:"manual_additional_payment"`
	CloseAdvancePayment     bool                `json:"close_advance_payment"`
	Items                   []reportItemRequest `json:"items" validate:"dive"`
	IsDeleted               bool                `json:"is_deleted"`
}

func (r advanceReportRequest) toDomain() ledger.AdvanceReport {
	doc := ledger.AdvanceReport{
		DocumentMeta:            ledger.DocumentMeta{ID: r.ID, Number: r.Number, Date: r.Date, IsDeleted: r.IsDeleted},
		AdvancePaymentID:        r.AdvancePaymentID,
		CurrencyID:              r.CurrencyID,
		Status:                  ledger.ReportStatus(r.Status),
		TotalAmount:             r.TotalAmount,
		ManualReturnAmount:      r.ManualReturnAmount,
		ManualAdditionalPayment: r.ManualAdditionalPayment,
		CloseAdvancePayment:     r.CloseAdvancePayment,
	}
	for _, item := range r.Items {
		doc.Items = append(doc.Items, ledger.AdvanceReportItem{
			ID:          item.ID,
			ItemID:      item.ItemID,
			Amount:      item.Amount,
			Description: item.Description,
			Date:        item.Date,
		})
	}
	return doc
}

type advanceReturnRequest struct {
	ID               uuid.UUID       `json:"id"`
	Number           string          `json:"number"`
	Date             time.Time       `json:"date"`
	AdvancePaymentID uuid.UUID       `json:"advance_payment_id" validate:"required"`
	EmployeeID       uuid.UUID       `json:"employee_id" validate:"required"`
	CashRegisterID   uuid.UUID       `json:"cash_register_id" validate:"required"`
	CurrencyID       uuid.UUID       `json:"currency_id" validate:"required"`
	Amount           decimal.Decimal `json:"amount" validate:"required"`
	Description      string          `json:"description"`
	IsDeleted        bool            `json:"is_deleted"`
}

func (r advanceReturnRequest) toDomain() ledger.AdvanceReturn {
	return ledger.AdvanceReturn{
		DocumentMeta:     ledger.DocumentMeta{ID: r.ID, Number: r.Number, Date: r.Date, IsDeleted: r.IsDeleted},
		AdvancePaymentID: r.AdvancePaymentID,
		EmployeeID:       r.EmployeeID,
		CashRegisterID:   r.CashRegisterID,
		CurrencyID:       r.CurrencyID,
		Amount:           r.Amount,
		Description:      r.Description,
	}
}

type transferRequest struct {
	ID                 uuid.UUID       `json:"id"`
	Number             string          `json:"number"`
	Date               time.Time       `json:"date"`
	FromCashRegisterID uuid.UUID       `json:"from_cash_register_id" validate:"required"`
	ToCashRegisterID   uuid.UUID       `json:"to_cash_register_id" validate:"required"`
	CurrencyID         uuid.UUID       `json:"currency_id" validate:"required"`
	Amount             decimal.Decimal `json:"amount" validate:"required"`
	IsDeleted          bool            `json:"is_deleted"`
}

func (r transferRequest) toDomain() ledger.CashTransfer {
	return ledger.CashTransfer{
		DocumentMeta:       ledger.DocumentMeta{ID: r.ID, Number: r.Number, Date: r.Date, IsDeleted: r.IsDeleted},
		FromCashRegisterID: r.FromCashRegisterID,
		ToCashRegisterID:   r.ToCashRegisterID,
		CurrencyID:         r.CurrencyID,
		Amount:             r.Amount,
	}
}

type conversionRequest struct {
	ID             uuid.UUID       `json:"id"`
	Number         string          `json:"number"`
	Date           time.Time       `json:"date"`
	FromCurrencyID uuid.UUID       `json:"from_currency_id" validate:"required"`
	ToCurrencyID   uuid.UUID       `json:"to_currency_id" validate:"required"`
	CashRegisterID uuid.UUID       `json:"cash_register_id" validate:"required"`
	FromAmount     decimal.Decimal `json:"from_amount" validate:"required"`
	ToAmount       decimal.Decimal `json:"to_amount"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	IsDeleted      bool            `json:"is_deleted"`
}

func (r conversionRequest) toDomain() ledger.CurrencyConversion {
	return ledger.CurrencyConversion{
		DocumentMeta:   ledger.DocumentMeta{ID: r.ID, Number: r.Number, Date: r.Date, IsDeleted: r.IsDeleted},
		FromCurrencyID: r.FromCurrencyID,
		ToCurrencyID:   r.ToCurrencyID,
		CashRegisterID: r.CashRegisterID,
		FromAmount:     r.FromAmount,
		ToAmount:       r.ToAmount,
		ExchangeRate:   r.ExchangeRate,
	}
}

type documentResponse struct {
	ID        uuid.UUID `json:"id"`
	Number    string    `json:"number"`
	Date      time.Time `json:"date"`
	IsPosted  bool      `json:"is_posted"`
	IsDeleted bool      `json:"is_deleted"`
}

func toDocumentResponse(meta ledger.DocumentMeta) documentResponse {
	return documentResponse{
		ID:        meta.ID,
		Number:    meta.Number,
		Date:      meta.Date,
		IsPosted:  meta.IsPosted,
		IsDeleted: meta.IsDeleted,
	}
}

type reportResponse struct {
	documentResponse
	Status            string          `json:"status"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	ReturnAmount      decimal.Decimal `json:"return_amount"`
	AdditionalPayment decimal.Decimal `json:"additional_payment"`
}

type conversionResponse struct {
	documentResponse
	ToAmount     decimal.Decimal `json:"to_amount"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type transactionResponse struct {
	ID             int64           `json:"id"`
	Date           time.Time       `json:"date"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	CashRegisterID uuid.UUID       `json:"cash_register_id"`
	CurrencyID     uuid.UUID       `json:"currency_id"`
	ItemID         *uuid.UUID      `json:"item_id,omitempty"`
	EmployeeID     *uuid.UUID      `json:"employee_id,omitempty"`
	OwnerKind      string          `json:"owner_kind"`
	OwnerID        uuid.UUID       `json:"owner_id"`
}

func toTransactionResponse(t ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:             t.ID,
		Date:           t.Date,
		Type:           string(t.Type),
		Amount:         t.Amount,
		Description:    t.Description,
		CashRegisterID: t.CashRegisterID,
		CurrencyID:     t.CurrencyID,
		ItemID:         t.ItemID,
		EmployeeID:     t.EmployeeID,
		OwnerKind:      string(t.Owner.Kind),
		OwnerID:        t.Owner.ID,
	}
}

type itemTotalResponse struct {
	ItemID uuid.UUID       `json:"item_id"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

type openAdvanceResponse struct {
	documentResponse
	EmployeeID uuid.UUID       `json:"employee_id"`
	CurrencyID uuid.UUID       `json:"currency_id"`
	Amount     decimal.Decimal `json:"amount"`
	Purpose    string          `json:"purpose"`
}
