package models

import (
	"time"

	"github.com/google/uuid"
)

// Виды записей в журнале кошелька
const (
	EntryKindEarning    = "earning"
	EntryKindWithdrawal = "withdrawal"
	EntryKindRefund     = "refund"
)

// ValidEntryKinds список валидных видов записей
var ValidEntryKinds = map[string]struct{}{
	EntryKindEarning:    {},
	EntryKindWithdrawal: {},
	EntryKindRefund:     {},
}

// Wallet представляет кошелёк преподавателя.
// Balance — кешированная свёртка журнала, в минорных единицах валюты.
// EntrySeq — номер последней записи журнала этого кошелька.
type Wallet struct {
	OwnerID   uuid.UUID `db:"owner_id" json:"owner_id"`
	Balance   int64     `db:"balance" json:"balance"`
	EntrySeq  int64     `db:"entry_seq" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsNegative сообщает, ушёл ли кошелёк в минус (возврат после вывода средств).
func (w *Wallet) IsNegative() bool {
	return w.Balance < 0
}

// LedgerEntry представляет одну запись журнала кошелька.
// Записи только добавляются: журнал — источник истины, по нему
// баланс восстанавливается полной свёрткой.
type LedgerEntry struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	OwnerID   uuid.UUID  `db:"owner_id" json:"owner_id"`
	Seq       int64      `db:"seq" json:"seq"`
	Kind      string     `db:"kind" json:"kind"`
	Amount    int64      `db:"amount" json:"amount"`
	OrderID   *uuid.UUID `db:"order_id" json:"order_id,omitempty"`
	RequestID *uuid.UUID `db:"request_id" json:"request_id,omitempty"`
	Note      *string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
