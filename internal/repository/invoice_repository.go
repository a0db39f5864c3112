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

var ErrInvoiceNotFound = errors.New("invoice not found")

// InvoiceRepository отвечает за чтение и аннулирование счетов.
// Счета выпускает только WithdrawalRepository.Approve — ровно один
// на одобренную заявку.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository создаёт экземпляр репозитория.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// GetByNumber возвращает счёт по номеру.
func (r *InvoiceRepository) GetByNumber(ctx context.Context, number int64) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.GetContext(ctx, &invoice, `SELECT * FROM invoices WHERE number = $1`, number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invoice repository: get by number %w", err)
	}
	return &invoice, nil
}

// GetByRequestID возвращает счёт, выписанный по заявке.
func (r *InvoiceRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.GetContext(ctx, &invoice, `SELECT * FROM invoices WHERE request_id = $1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invoice repository: get by request %w", err)
	}
	return &invoice, nil
}

// List возвращает счета, новые первыми.
func (r *InvoiceRepository) List(ctx context.Context, limit, offset int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.SelectContext(ctx, &invoices, `
		SELECT * FROM invoices ORDER BY number DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("invoice repository: list %w", err)
	}
	return invoices, nil
}

// Void аннулирует выписанный счёт. Номер не переиспользуется,
// запись в журнале кошелька не затрагивается.
func (r *InvoiceRepository) Void(ctx context.Context, number int64) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.GetContext(ctx, &invoice, `
		UPDATE invoices SET status = $2 WHERE number = $1 AND status = $3 RETURNING *
	`, number, models.InvoiceStatusCancelled, models.InvoiceStatusIssued)
	if errors.Is(err, sql.ErrNoRows) {
		// Либо счёта нет, либо он уже аннулирован
		if _, getErr := r.GetByNumber(ctx, number); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInvalidStateTransition
	}
	if err != nil {
		return nil, fmt.Errorf("invoice repository: void %w", err)
	}
	return &invoice, nil
}
