package dto

import (
	"github.com/ignatzorin/courses-backend/internal/models"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BalanceResponse баланс кошелька с признаком ухода в минус.
type BalanceResponse struct {
	*models.Wallet
	IsNegative bool `json:"is_negative"`
}

// NewBalanceResponse собирает ответ по кошельку.
func NewBalanceResponse(wallet *models.Wallet) *BalanceResponse {
	return &BalanceResponse{
		Wallet:     wallet,
		IsNegative: wallet.IsNegative(),
	}
}

// LedgerEntryResponse запись журнала с признаком дубликата для
// идемпотентных начислений и возвратов.
type LedgerEntryResponse struct {
	Entry     *models.LedgerEntry `json:"entry"`
	Duplicate bool                `json:"duplicate"`
}

// InvoiceResponse счёт с отрендеренным номером.
type InvoiceResponse struct {
	*models.Invoice
	FormattedNumber string `json:"formatted_number"`
}

// NewInvoiceResponse собирает ответ по счёту.
func NewInvoiceResponse(invoice *models.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		Invoice:         invoice,
		FormattedNumber: invoice.FormattedNumber(),
	}
}

// ApproveWithdrawalResponse результат одобрения: заявка и выписанный счёт.
type ApproveWithdrawalResponse struct {
	Request *models.WithdrawalRequest `json:"request"`
	Invoice *InvoiceResponse          `json:"invoice"`
}
