package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы заявки на вывод средств.
// pending — единственный нетерминальный статус.
const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusApproved  = "approved"
	WithdrawalStatusRejected  = "rejected"
	WithdrawalStatusCancelled = "cancelled"
)

// ValidWithdrawalStatuses список валидных статусов заявок
var ValidWithdrawalStatuses = map[string]struct{}{
	WithdrawalStatusPending:   {},
	WithdrawalStatusApproved:  {},
	WithdrawalStatusRejected:  {},
	WithdrawalStatusCancelled: {},
}

// BankInfo реквизиты для выплаты. Копируются в счёт в момент одобрения.
type BankInfo struct {
	BankName      string `db:"bank_name" json:"bank_name"`
	AccountNumber string `db:"account_number" json:"account_number"`
	AccountHolder string `db:"account_holder" json:"account_holder"`
}

// WithdrawalRequest представляет заявку преподавателя на вывод средств.
// Amount — запрошенная сумма брутто; списание из кошелька всегда на полную
// сумму, комиссия платформы влияет только на сумму к выплате в счёте.
type WithdrawalRequest struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	OwnerID       uuid.UUID  `db:"owner_id" json:"owner_id"`
	Amount        int64      `db:"amount" json:"amount"`
	BankName      string     `db:"bank_name" json:"bank_name"`
	AccountNumber string     `db:"account_number" json:"account_number"`
	AccountHolder string     `db:"account_holder" json:"account_holder"`
	Status        string     `db:"status" json:"status"`
	AdminNote     *string    `db:"admin_note" json:"admin_note,omitempty"`
	InvoiceNumber *int64     `db:"invoice_number" json:"invoice_number,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	DecidedAt     *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	DecidedBy     *uuid.UUID `db:"decided_by" json:"decided_by,omitempty"`
}

// IsTerminal сообщает, находится ли заявка в терминальном статусе.
func (r *WithdrawalRequest) IsTerminal() bool {
	return r.Status != WithdrawalStatusPending
}
