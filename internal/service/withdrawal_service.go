package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/courses-backend/internal/goroutine"
	"github.com/ignatzorin/courses-backend/internal/logger"
	"github.com/ignatzorin/courses-backend/internal/models"
	"github.com/ignatzorin/courses-backend/internal/pkg/apperror"
)

var (
	ErrMinWithdrawalAmount = errors.New("сумма вывода меньше минимальной")
	ErrEmptyBankInfo       = errors.New("банковские реквизиты обязательны")
)

// WithdrawalRepository описывает взаимодействие сервиса с хранилищем заявок.
type WithdrawalRepository interface {
	Create(ctx context.Context, ownerID uuid.UUID, amount int64, bank models.BankInfo) (*models.WithdrawalRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.WithdrawalRequest, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.WithdrawalRequest, error)
	Cancel(ctx context.Context, id, ownerID uuid.UUID) (*models.WithdrawalRequest, error)
	Approve(ctx context.Context, id, adminID uuid.UUID, feePercent int64) (*models.WithdrawalRequest, *models.Invoice, error)
	Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.WithdrawalRequest, error)
}

// Notifier отправляет событие пользователю (websocket + сохранение в БД).
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// WithdrawalService содержит бизнес-логику заявок на вывод средств.
// Уведомления уходят строго после фиксации транзакции и не входят в неё.
type WithdrawalService struct {
	repo       WithdrawalRepository
	notifier   Notifier
	minAmount  int64
	feePercent int64
}

// NewWithdrawalService создаёт сервис заявок на вывод.
func NewWithdrawalService(repo WithdrawalRepository, notifier Notifier, minAmount, feePercent int64) *WithdrawalService {
	return &WithdrawalService{
		repo:       repo,
		notifier:   notifier,
		minAmount:  minAmount,
		feePercent: feePercent,
	}
}

// Create создаёт заявку в статусе pending. Средства не списываются до одобрения.
func (s *WithdrawalService) Create(ctx context.Context, ownerID uuid.UUID, amount int64, bank models.BankInfo) (*models.WithdrawalRequest, error) {
	if amount <= 0 || amount < s.minAmount {
		return nil, ErrMinWithdrawalAmount
	}
	if bank.BankName == "" || bank.AccountNumber == "" || bank.AccountHolder == "" {
		return nil, ErrEmptyBankInfo
	}
	return s.repo.Create(ctx, ownerID, amount, bank)
}

// Get возвращает заявку по идентификатору.
func (s *WithdrawalService) Get(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByOwner возвращает заявки преподавателя.
func (s *WithdrawalService) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.WithdrawalRequest, error) {
	return s.repo.ListByOwner(ctx, ownerID, clampLimit(limit), clampOffset(offset))
}

// List возвращает заявки для админки, опционально по статусу.
func (s *WithdrawalService) List(ctx context.Context, status string, limit, offset int) ([]models.WithdrawalRequest, error) {
	if status != "" {
		if _, ok := models.ValidWithdrawalStatuses[status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус заявки")
		}
	}
	return s.repo.List(ctx, status, clampLimit(limit), clampOffset(offset))
}

// Cancel отменяет pending заявку её владельца.
func (s *WithdrawalService) Cancel(ctx context.Context, id, ownerID uuid.UUID) (*models.WithdrawalRequest, error) {
	return s.repo.Cancel(ctx, id, ownerID)
}

// Approve одобряет заявку: списание, статус и счёт фиксируются одной
// транзакцией в репозитории. Уведомление — после фиксации.
func (s *WithdrawalService) Approve(ctx context.Context, id, adminID uuid.UUID) (*models.WithdrawalRequest, *models.Invoice, error) {
	req, invoice, err := s.repo.Approve(ctx, id, adminID, s.feePercent)
	if err != nil {
		return nil, nil, err
	}

	s.notify(req.OwnerID, models.EventWithdrawalApproved, map[string]any{
		"request_id":     req.ID,
		"amount":         req.Amount,
		"net_amount":     invoice.NetAmount,
		"invoice_number": invoice.FormattedNumber(),
	})

	return req, invoice, nil
}

// Reject отклоняет заявку с причиной. Уведомление — после фиксации.
func (s *WithdrawalService) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.WithdrawalRequest, error) {
	req, err := s.repo.Reject(ctx, id, adminID, reason)
	if err != nil {
		return nil, err
	}

	s.notify(req.OwnerID, models.EventWithdrawalRejected, map[string]any{
		"request_id": req.ID,
		"amount":     req.Amount,
		"reason":     reason,
	})

	return req, nil
}

// notify отправляет событие fire-and-forget, не задерживая ответ клиенту.
func (s *WithdrawalService) notify(userID uuid.UUID, event string, data map[string]any) {
	if s.notifier == nil {
		return
	}
	goroutine.SafeGo(func() {
		if err := s.notifier.BroadcastToUser(userID, event, data); err != nil && logger.Log != nil {
			logger.Log.WithError(err).Warn("withdrawal service: не удалось отправить уведомление")
		}
	})
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
