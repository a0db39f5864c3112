package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Статусы счёта. Номер аннулированного счёта никогда не переиспользуется.
const (
	InvoiceStatusIssued    = "issued"
	InvoiceStatusCancelled = "cancelled"
)

// Формат человекочитаемого номера счёта. Хранится голое число,
// префикс и ширина — только представление.
const (
	invoiceNumberPrefix = "INV-"
	invoiceNumberWidth  = 7
)

// Invoice представляет счёт, выписанный ровно один раз при одобрении заявки.
// Банковские реквизиты скопированы из заявки на момент одобрения.
type Invoice struct {
	Number        int64     `db:"number" json:"number"`
	RequestID     uuid.UUID `db:"request_id" json:"request_id"`
	OwnerID       uuid.UUID `db:"owner_id" json:"owner_id"`
	Amount        int64     `db:"amount" json:"amount"`
	FeeAmount     int64     `db:"fee_amount" json:"fee_amount"`
	NetAmount     int64     `db:"net_amount" json:"net_amount"`
	BankName      string    `db:"bank_name" json:"bank_name"`
	AccountNumber string    `db:"account_number" json:"account_number"`
	AccountHolder string    `db:"account_holder" json:"account_holder"`
	IssuedBy      uuid.UUID `db:"issued_by" json:"issued_by"`
	IssuedAt      time.Time `db:"issued_at" json:"issued_at"`
	Status        string    `db:"status" json:"status"`
}

// FormattedNumber возвращает номер счёта в человекочитаемом виде, например INV-0000042.
func (i *Invoice) FormattedNumber() string {
	return fmt.Sprintf("%s%0*d", invoiceNumberPrefix, invoiceNumberWidth, i.Number)
}

// PlatformFee считает комиссию платформы от суммы брутто.
// Округление вниз: спорная минорная единица остаётся преподавателю.
func PlatformFee(amount, percent int64) int64 {
	return amount * percent / 100
}
