package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/courses-backend/internal/models"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrEarningNotFound   = errors.New("earning not found")
)

// WalletRepository отвечает за кошельки и их журналы.
// Все мутации одного кошелька сериализуются блокировкой его строки
// (SELECT ... FOR UPDATE): проверка баланса и добавление записи журнала
// всегда происходят в одной транзакции. Кошельки разных владельцев
// друг друга не блокируют.
type WalletRepository struct {
	db *sqlx.DB
}

// NewWalletRepository создаёт экземпляр репозитория.
func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetBalance возвращает кошелёк владельца, создаёт если не существует.
func (r *WalletRepository) GetBalance(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `
		INSERT INTO wallets (owner_id, balance, entry_seq)
		VALUES ($1, 0, 0)
		ON CONFLICT (owner_id) DO UPDATE SET updated_at = NOW()
		RETURNING owner_id, balance, entry_seq, created_at, updated_at
	`
	if err := r.db.GetContext(ctx, &wallet, query, ownerID); err != nil {
		return nil, fmt.Errorf("wallet repository: get balance %w", err)
	}
	return &wallet, nil
}

// History возвращает журнал кошелька постранично, от новых записей к старым.
func (r *WalletRepository) History(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM ledger_entries WHERE owner_id = $1 ORDER BY seq DESC LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: history %w", err)
	}
	return entries, nil
}

// PostEarning начисляет преподавателю оплату за заказ.
// Идемпотентно по orderID: повторное уведомление от сервиса заказов
// возвращает уже существующую запись с признаком duplicate.
func (r *WalletRepository) PostEarning(ctx context.Context, ownerID, orderID uuid.UUID, amount int64) (*models.LedgerEntry, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	wallet, err := lockWallet(ctx, tx, ownerID)
	if err != nil {
		return nil, false, err
	}

	existing, err := findEntryByOrder(ctx, tx, ownerID, orderID, models.EntryKindEarning)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, tx.Commit()
	}

	entry, err := appendEntry(ctx, tx, wallet, models.EntryKindEarning, amount, &orderID, nil, "Оплата за курс")
	if err != nil {
		return nil, false, err
	}

	return entry, false, tx.Commit()
}

// PostRefund сторнирует ранее начисленную оплату при возврате заказа.
// Идемпотентно по orderID. Возврат после уже выведенных средств может
// увести баланс в минус — запись всё равно добавляется, минус остаётся
// видимым оператору для ручной сверки.
func (r *WalletRepository) PostRefund(ctx context.Context, ownerID, orderID uuid.UUID, amount int64) (*models.LedgerEntry, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	wallet, err := lockWallet(ctx, tx, ownerID)
	if err != nil {
		return nil, false, err
	}

	earning, err := findEntryByOrder(ctx, tx, ownerID, orderID, models.EntryKindEarning)
	if err != nil {
		return nil, false, err
	}
	if earning == nil {
		return nil, false, ErrEarningNotFound
	}

	existing, err := findEntryByOrder(ctx, tx, ownerID, orderID, models.EntryKindRefund)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, tx.Commit()
	}

	entry, err := appendEntry(ctx, tx, wallet, models.EntryKindRefund, -amount, &orderID, nil, "Возврат средств за заказ")
	if err != nil {
		return nil, false, err
	}

	return entry, false, tx.Commit()
}

// RecomputeBalance сворачивает весь журнал кошелька.
// Кешированный баланс — только оптимизация чтения, журнал — источник истины.
func (r *WalletRepository) RecomputeBalance(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM wallets WHERE owner_id = $1)`, ownerID); err != nil {
		return 0, fmt.Errorf("wallet repository: recompute balance %w", err)
	}
	if !exists {
		return 0, ErrWalletNotFound
	}

	var sum int64
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE owner_id = $1
	`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("wallet repository: recompute balance %w", err)
	}
	return sum, nil
}

// ListNegative возвращает кошельки с отрицательным балансом.
func (r *WalletRepository) ListNegative(ctx context.Context) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := r.db.SelectContext(ctx, &wallets, `
		SELECT * FROM wallets WHERE balance < 0 ORDER BY balance ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: list negative %w", err)
	}
	return wallets, nil
}

// lockWallet создаёт кошелёк при первом обращении и берёт блокировку его строки
// до конца транзакции. Точка сериализации всех мутаций одного владельца.
func lockWallet(ctx context.Context, tx *sqlx.Tx, ownerID uuid.UUID) (*models.Wallet, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (owner_id, balance, entry_seq) VALUES ($1, 0, 0)
		ON CONFLICT (owner_id) DO NOTHING
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: ensure wallet %w", err)
	}

	var wallet models.Wallet
	err = tx.GetContext(ctx, &wallet, `SELECT * FROM wallets WHERE owner_id = $1 FOR UPDATE`, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet repository: lock wallet %w", err)
	}
	return &wallet, nil
}

// findEntryByOrder ищет запись журнала по заказу. Ключ идемпотентности
// начислений и возвратов.
func findEntryByOrder(ctx context.Context, tx *sqlx.Tx, ownerID, orderID uuid.UUID, kind string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := tx.GetContext(ctx, &entry, `
		SELECT * FROM ledger_entries WHERE owner_id = $1 AND order_id = $2 AND kind = $3
	`, ownerID, orderID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("wallet repository: find entry by order %w", err)
	}
	return &entry, nil
}

// appendEntry добавляет запись журнала и обновляет кешированный баланс
// одним атомарным шагом. Вызывается только под блокировкой строки кошелька.
// Порядок записей задаёт явный seq кошелька, а не время создания.
func appendEntry(ctx context.Context, tx *sqlx.Tx, wallet *models.Wallet, kind string, amount int64, orderID, requestID *uuid.UUID, note string) (*models.LedgerEntry, error) {
	if kind == models.EntryKindWithdrawal && wallet.Balance+amount < 0 {
		return nil, ErrInsufficientFunds
	}

	seq := wallet.EntrySeq + 1

	var entry models.LedgerEntry
	err := tx.GetContext(ctx, &entry, `
		INSERT INTO ledger_entries (owner_id, seq, kind, amount, order_id, request_id, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, wallet.OwnerID, seq, kind, amount, orderID, requestID, note)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: append entry %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wallets SET balance = balance + $2, entry_seq = $3, updated_at = NOW()
		WHERE owner_id = $1
	`, wallet.OwnerID, amount, seq)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: update balance %w", err)
	}

	wallet.Balance += amount
	wallet.EntrySeq = seq

	return &entry, nil
}
