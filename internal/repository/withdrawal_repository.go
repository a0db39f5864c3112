package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/courses-backend/internal/models"
)

var (
	ErrRequestNotFound        = errors.New("withdrawal request not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

// WithdrawalRepository отвечает за заявки на вывод средств и счета.
// Заявки никогда не удаляются: отмена — терминальный статус, а не удаление.
type WithdrawalRepository struct {
	db *sqlx.DB
}

// NewWithdrawalRepository создаёт экземпляр репозитория.
func NewWithdrawalRepository(db *sqlx.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create создаёт заявку в статусе pending. Средства при создании не
// списываются и остаются доступными до одобрения, поэтому несколько
// pending заявок могут сосуществовать; баланс перепроверяется при одобрении.
func (r *WithdrawalRepository) Create(ctx context.Context, ownerID uuid.UUID, amount int64, bank models.BankInfo) (*models.WithdrawalRequest, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance, `SELECT COALESCE((SELECT balance FROM wallets WHERE owner_id = $1), 0)`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("withdrawal repository: create read balance %w", err)
	}
	if balance < amount {
		return nil, ErrInsufficientFunds
	}

	var req models.WithdrawalRequest
	err = r.db.GetContext(ctx, &req, `
		INSERT INTO withdrawal_requests (owner_id, amount, bank_name, account_number, account_holder)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, ownerID, amount, bank.BankName, bank.AccountNumber, bank.AccountHolder)
	if err != nil {
		return nil, fmt.Errorf("withdrawal repository: create %w", err)
	}
	return &req, nil
}

// GetByID возвращает заявку по идентификатору.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	err := r.db.GetContext(ctx, &req, `SELECT * FROM withdrawal_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("withdrawal repository: get by id %w", err)
	}
	return &req, nil
}

// ListByOwner возвращает заявки преподавателя, новые первыми.
func (r *WithdrawalRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.WithdrawalRequest, error) {
	var requests []models.WithdrawalRequest
	err := r.db.SelectContext(ctx, &requests, `
		SELECT * FROM withdrawal_requests WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("withdrawal repository: list by owner %w", err)
	}
	return requests, nil
}

// List возвращает заявки для админки, опционально по статусу.
func (r *WithdrawalRepository) List(ctx context.Context, status string, limit, offset int) ([]models.WithdrawalRequest, error) {
	var requests []models.WithdrawalRequest
	var err error
	if status != "" {
		err = r.db.SelectContext(ctx, &requests, `
			SELECT * FROM withdrawal_requests WHERE status = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3
		`, status, limit, offset)
	} else {
		err = r.db.SelectContext(ctx, &requests, `
			SELECT * FROM withdrawal_requests ORDER BY created_at DESC LIMIT $1 OFFSET $2
		`, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("withdrawal repository: list %w", err)
	}
	return requests, nil
}

// Cancel переводит заявку владельца из pending в cancelled.
// Ledger не затрагивается: pending никогда не списывал средства.
func (r *WithdrawalRepository) Cancel(ctx context.Context, id, ownerID uuid.UUID) (*models.WithdrawalRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := lockRequest(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != ownerID {
		return nil, ErrRequestNotFound
	}
	if req.IsTerminal() {
		return nil, ErrInvalidStateTransition
	}

	now := time.Now()
	err = tx.GetContext(ctx, req, `
		UPDATE withdrawal_requests SET status = $2, decided_at = $3 WHERE id = $1 RETURNING *
	`, id, models.WithdrawalStatusCancelled, now)
	if err != nil {
		return nil, fmt.Errorf("withdrawal repository: cancel %w", err)
	}

	return req, tx.Commit()
}

// Approve одобряет заявку одной транзакцией: перепроверка баланса под
// блокировкой кошелька, списание полной суммы брутто, перевод заявки в
// approved и выпуск счёта со следующим номером счётчика. Всё — или ничего:
// неудача на любом шаге откатывает и списание, и счёт.
//
// Порядок блокировок фиксированный: заявка -> кошелёк -> счётчик номеров.
// Счётчик — отдельная точка сериализации, не связанная с блокировкой
// кошелька, но фиксируются они вместе.
func (r *WithdrawalRepository) Approve(ctx context.Context, id, adminID uuid.UUID, feePercent int64) (*models.WithdrawalRequest, *models.Invoice, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	req, err := lockRequest(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	if req.IsTerminal() {
		return nil, nil, ErrInvalidStateTransition
	}

	wallet, err := lockWallet(ctx, tx, req.OwnerID)
	if err != nil {
		return nil, nil, err
	}
	// Баланс мог упасть с момента создания заявки (возврат или другая
	// одобренная заявка), поэтому проверяем заново.
	if wallet.Balance < req.Amount {
		return nil, nil, ErrInsufficientFunds
	}

	if _, err := appendEntry(ctx, tx, wallet, models.EntryKindWithdrawal, -req.Amount, nil, &req.ID, "Вывод средств"); err != nil {
		return nil, nil, err
	}

	var number int64
	err = tx.GetContext(ctx, &number, `
		UPDATE invoice_counter SET value = value + 1 WHERE id = 1 RETURNING value
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("withdrawal repository: next invoice number %w", err)
	}

	fee := models.PlatformFee(req.Amount, feePercent)

	var invoice models.Invoice
	err = tx.GetContext(ctx, &invoice, `
		INSERT INTO invoices (number, request_id, owner_id, amount, fee_amount, net_amount,
			bank_name, account_number, account_holder, issued_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING *
	`, number, req.ID, req.OwnerID, req.Amount, fee, req.Amount-fee,
		req.BankName, req.AccountNumber, req.AccountHolder, adminID)
	if err != nil {
		return nil, nil, fmt.Errorf("withdrawal repository: issue invoice %w", err)
	}

	now := time.Now()
	err = tx.GetContext(ctx, req, `
		UPDATE withdrawal_requests
		SET status = $2, decided_at = $3, decided_by = $4, invoice_number = $5
		WHERE id = $1
		RETURNING *
	`, id, models.WithdrawalStatusApproved, now, adminID, number)
	if err != nil {
		return nil, nil, fmt.Errorf("withdrawal repository: approve %w", err)
	}

	return req, &invoice, tx.Commit()
}

// Reject переводит заявку из pending в rejected с причиной. Без списаний.
func (r *WithdrawalRepository) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.WithdrawalRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := lockRequest(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if req.IsTerminal() {
		return nil, ErrInvalidStateTransition
	}

	now := time.Now()
	err = tx.GetContext(ctx, req, `
		UPDATE withdrawal_requests
		SET status = $2, admin_note = $3, decided_at = $4, decided_by = $5
		WHERE id = $1
		RETURNING *
	`, id, models.WithdrawalStatusRejected, reason, now, adminID)
	if err != nil {
		return nil, fmt.Errorf("withdrawal repository: reject %w", err)
	}

	return req, tx.Commit()
}

// lockRequest берёт блокировку строки заявки до конца транзакции.
func lockRequest(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	err := tx.GetContext(ctx, &req, `SELECT * FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("withdrawal repository: lock request %w", err)
	}
	return &req, nil
}
