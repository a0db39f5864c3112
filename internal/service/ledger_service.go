package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/courses-backend/internal/logger"
	"github.com/ignatzorin/courses-backend/internal/models"
	"github.com/ignatzorin/courses-backend/internal/pkg/apperror"
)

// WalletRepository описывает взаимодействие сервиса с хранилищем кошельков.
type WalletRepository interface {
	GetBalance(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error)
	History(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error)
	PostEarning(ctx context.Context, ownerID, orderID uuid.UUID, amount int64) (*models.LedgerEntry, bool, error)
	PostRefund(ctx context.Context, ownerID, orderID uuid.UUID, amount int64) (*models.LedgerEntry, bool, error)
	RecomputeBalance(ctx context.Context, ownerID uuid.UUID) (int64, error)
	ListNegative(ctx context.Context) ([]models.Wallet, error)
}

// WalletAudit результат сверки кешированного баланса со свёрткой журнала.
type WalletAudit struct {
	OwnerID    uuid.UUID `json:"owner_id"`
	Cached     int64     `json:"cached_balance"`
	Recomputed int64     `json:"recomputed_balance"`
	Consistent bool      `json:"consistent"`
}

// LedgerService содержит бизнес-логику начислений, возвратов и чтения кошелька.
type LedgerService struct {
	wallets WalletRepository
}

// NewLedgerService создаёт новый сервис кошелька.
func NewLedgerService(wallets WalletRepository) *LedgerService {
	return &LedgerService{wallets: wallets}
}

// PostEarning начисляет оплату за завершённый заказ. Повторный вызов
// с тем же orderID возвращает существующую запись — сервис заказов
// может безопасно ретраить уведомление.
func (s *LedgerService) PostEarning(ctx context.Context, instructorID, orderID uuid.UUID, amount int64) (*models.LedgerEntry, bool, error) {
	if amount <= 0 {
		return nil, false, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	return s.wallets.PostEarning(ctx, instructorID, orderID, amount)
}

// PostRefund сторнирует начисление при возврате заказа. Идемпотентно по orderID.
func (s *LedgerService) PostRefund(ctx context.Context, instructorID, orderID uuid.UUID, amount int64) (*models.LedgerEntry, bool, error) {
	if amount <= 0 {
		return nil, false, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}

	entry, duplicate, err := s.wallets.PostRefund(ctx, instructorID, orderID, amount)
	if err != nil {
		return nil, false, err
	}

	if !duplicate {
		// Возврат после вывода средств может увести кошелёк в минус.
		// Это зафиксированное бизнес-исключение, оператор сверяет вручную.
		if wallet, balErr := s.wallets.GetBalance(ctx, instructorID); balErr == nil && wallet.IsNegative() {
			logger.WarnNegativeBalance(instructorID.String(), wallet.Balance)
		}
	}

	return entry, duplicate, nil
}

// GetBalance возвращает кошелёк преподавателя.
func (s *LedgerService) GetBalance(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	return s.wallets.GetBalance(ctx, ownerID)
}

// History возвращает журнал кошелька постранично.
func (s *LedgerService) History(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.wallets.History(ctx, ownerID, limit, offset)
}

// Audit сверяет кешированный баланс с полной свёрткой журнала.
func (s *LedgerService) Audit(ctx context.Context, ownerID uuid.UUID) (*WalletAudit, error) {
	wallet, err := s.wallets.GetBalance(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	recomputed, err := s.wallets.RecomputeBalance(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return &WalletAudit{
		OwnerID:    ownerID,
		Cached:     wallet.Balance,
		Recomputed: recomputed,
		Consistent: wallet.Balance == recomputed,
	}, nil
}

// ListNegative возвращает кошельки, требующие ручной сверки.
func (s *LedgerService) ListNegative(ctx context.Context) ([]models.Wallet, error) {
	return s.wallets.ListNegative(ctx)
}
