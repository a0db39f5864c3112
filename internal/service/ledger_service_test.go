package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/courses-backend/internal/models"
)

type mockWalletRepo struct {
	mock.Mock
}

func (m *mockWalletRepo) GetBalance(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *mockWalletRepo) History(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	return args.Get(0).([]models.LedgerEntry), args.Error(1)
}

func (m *mockWalletRepo) PostEarning(ctx context.Context, ownerID, orderID uuid.UUID, amount int64) (*models.LedgerEntry, bool, error) {
	args := m.Called(ctx, ownerID, orderID, amount)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.LedgerEntry), args.Bool(1), args.Error(2)
}

func (m *mockWalletRepo) PostRefund(ctx context.Context, ownerID, orderID uuid.UUID, amount int64) (*models.LedgerEntry, bool, error) {
	args := m.Called(ctx, ownerID, orderID, amount)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.LedgerEntry), args.Bool(1), args.Error(2)
}

func (m *mockWalletRepo) RecomputeBalance(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockWalletRepo) ListNegative(ctx context.Context) ([]models.Wallet, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Wallet), args.Error(1)
}

func TestLedgerService_PostEarning_Success(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	instructorID := uuid.New()
	orderID := uuid.New()

	expected := &models.LedgerEntry{ID: uuid.New(), OwnerID: instructorID, Seq: 1, Kind: models.EntryKindEarning, Amount: 100000}
	repo.On("PostEarning", ctx, instructorID, orderID, int64(100000)).Return(expected, false, nil)

	entry, duplicate, err := svc.PostEarning(ctx, instructorID, orderID, 100000)
	assert.NoError(t, err)
	assert.False(t, duplicate)
	assert.Equal(t, expected, entry)
	repo.AssertExpectations(t)
}

func TestLedgerService_PostEarning_InvalidAmount(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()

	_, _, err := svc.PostEarning(ctx, uuid.New(), uuid.New(), 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "положительной")

	_, _, err = svc.PostEarning(ctx, uuid.New(), uuid.New(), -500)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "PostEarning")
}

func TestLedgerService_PostEarning_Duplicate(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	instructorID := uuid.New()
	orderID := uuid.New()

	existing := &models.LedgerEntry{ID: uuid.New(), OwnerID: instructorID, Seq: 1, Kind: models.EntryKindEarning, Amount: 100000}
	repo.On("PostEarning", ctx, instructorID, orderID, int64(100000)).Return(existing, true, nil)

	entry, duplicate, err := svc.PostEarning(ctx, instructorID, orderID, 100000)
	assert.NoError(t, err)
	assert.True(t, duplicate)
	assert.Equal(t, existing, entry)
}

func TestLedgerService_PostRefund_Success(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	instructorID := uuid.New()
	orderID := uuid.New()

	expected := &models.LedgerEntry{ID: uuid.New(), OwnerID: instructorID, Seq: 2, Kind: models.EntryKindRefund, Amount: -100000}
	repo.On("PostRefund", ctx, instructorID, orderID, int64(100000)).Return(expected, false, nil)
	repo.On("GetBalance", ctx, instructorID).Return(&models.Wallet{OwnerID: instructorID, Balance: 0}, nil)

	entry, duplicate, err := svc.PostRefund(ctx, instructorID, orderID, 100000)
	assert.NoError(t, err)
	assert.False(t, duplicate)
	assert.Equal(t, expected, entry)
}

func TestLedgerService_PostRefund_NegativeBalance(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	instructorID := uuid.New()
	orderID := uuid.New()

	// возврат после вывода: кошелёк уходит в минус, но запись проводится
	expected := &models.LedgerEntry{ID: uuid.New(), OwnerID: instructorID, Seq: 3, Kind: models.EntryKindRefund, Amount: -100000}
	repo.On("PostRefund", ctx, instructorID, orderID, int64(100000)).Return(expected, false, nil)
	repo.On("GetBalance", ctx, instructorID).Return(&models.Wallet{OwnerID: instructorID, Balance: -40000}, nil)

	entry, _, err := svc.PostRefund(ctx, instructorID, orderID, 100000)
	assert.NoError(t, err)
	assert.Equal(t, expected, entry)
	repo.AssertExpectations(t)
}

func TestLedgerService_PostRefund_Duplicate_SkipsBalanceCheck(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	instructorID := uuid.New()
	orderID := uuid.New()

	existing := &models.LedgerEntry{ID: uuid.New(), Kind: models.EntryKindRefund, Amount: -100000}
	repo.On("PostRefund", ctx, instructorID, orderID, int64(100000)).Return(existing, true, nil)

	_, duplicate, err := svc.PostRefund(ctx, instructorID, orderID, 100000)
	assert.NoError(t, err)
	assert.True(t, duplicate)
	repo.AssertNotCalled(t, "GetBalance")
}

func TestLedgerService_PostRefund_InvalidAmount(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()

	_, _, err := svc.PostRefund(ctx, uuid.New(), uuid.New(), -100)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "PostRefund")
}

func TestLedgerService_History_DefaultLimit(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	ownerID := uuid.New()

	repo.On("History", ctx, ownerID, 20, 0).Return([]models.LedgerEntry{}, nil)

	_, err := svc.History(ctx, ownerID, 0, -5)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestLedgerService_Audit_Consistent(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	ownerID := uuid.New()

	repo.On("GetBalance", ctx, ownerID).Return(&models.Wallet{OwnerID: ownerID, Balance: 60000}, nil)
	repo.On("RecomputeBalance", ctx, ownerID).Return(int64(60000), nil)

	audit, err := svc.Audit(ctx, ownerID)
	assert.NoError(t, err)
	assert.True(t, audit.Consistent)
	assert.Equal(t, int64(60000), audit.Cached)
	assert.Equal(t, int64(60000), audit.Recomputed)
}

func TestLedgerService_Audit_Inconsistent(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	ownerID := uuid.New()

	repo.On("GetBalance", ctx, ownerID).Return(&models.Wallet{OwnerID: ownerID, Balance: 60000}, nil)
	repo.On("RecomputeBalance", ctx, ownerID).Return(int64(59000), nil)

	audit, err := svc.Audit(ctx, ownerID)
	assert.NoError(t, err)
	assert.False(t, audit.Consistent)
}

func TestLedgerService_Audit_WalletNotFound(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	ownerID := uuid.New()

	repo.On("GetBalance", ctx, ownerID).Return(nil, errors.New("кошелёк не найден"))

	_, err := svc.Audit(ctx, ownerID)
	assert.Error(t, err)
}

func TestLedgerService_ListNegative(t *testing.T) {
	repo := new(mockWalletRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()

	expected := []models.Wallet{{OwnerID: uuid.New(), Balance: -40000}}
	repo.On("ListNegative", ctx).Return(expected, nil)

	wallets, err := svc.ListNegative(ctx)
	assert.NoError(t, err)
	assert.Len(t, wallets, 1)
	assert.True(t, wallets[0].IsNegative())
}
