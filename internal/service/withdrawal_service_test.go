package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/courses-backend/internal/models"
	"github.com/ignatzorin/courses-backend/internal/repository"
)

type mockWithdrawalRepo struct {
	mock.Mock
}

func (m *mockWithdrawalRepo) Create(ctx context.Context, ownerID uuid.UUID, amount int64, bank models.BankInfo) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, ownerID, amount, bank)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawalRequest), args.Error(1)
}

func (m *mockWithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawalRequest), args.Error(1)
}

func (m *mockWithdrawalRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.WithdrawalRequest, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	return args.Get(0).([]models.WithdrawalRequest), args.Error(1)
}

func (m *mockWithdrawalRepo) List(ctx context.Context, status string, limit, offset int) ([]models.WithdrawalRequest, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]models.WithdrawalRequest), args.Error(1)
}

func (m *mockWithdrawalRepo) Cancel(ctx context.Context, id, ownerID uuid.UUID) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawalRequest), args.Error(1)
}

func (m *mockWithdrawalRepo) Approve(ctx context.Context, id, adminID uuid.UUID, feePercent int64) (*models.WithdrawalRequest, *models.Invoice, error) {
	args := m.Called(ctx, id, adminID, feePercent)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.WithdrawalRequest), args.Get(1).(*models.Invoice), args.Error(2)
}

func (m *mockWithdrawalRepo) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, id, adminID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawalRequest), args.Error(1)
}

// captureNotifier собирает отправленные события для проверки в тестах.
type captureNotifier struct {
	events chan string
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{events: make(chan string, 8)}
}

func (n *captureNotifier) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	n.events <- event
	return nil
}

func (n *captureNotifier) wait(t *testing.T) string {
	t.Helper()
	select {
	case event := <-n.events:
		return event
	case <-time.After(time.Second):
		t.Fatal("уведомление не пришло")
		return ""
	}
}

var testBank = models.BankInfo{
	BankName:      "Т-Банк",
	AccountNumber: "40817810000000000001",
	AccountHolder: "Иванов Иван Иванович",
}

func TestWithdrawalService_Create_BelowMinimum(t *testing.T) {
	repo := new(mockWithdrawalRepo)
	svc := NewWithdrawalService(repo, nil, 10000, 10)
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), 5000, testBank)
	assert.ErrorIs(t, err, ErrMinWithdrawalAmount)

	_, err = svc.Create(ctx, uuid.New(), 0, testBank)
	assert.ErrorIs(t, err, ErrMinWithdrawalAmount)

	repo.AssertNotCalled(t, "Create")
}

func TestWithdrawalService_Create_EmptyBankInfo(t *testing.T) {
	repo := new(mockWithdrawalRepo)
	svc := NewWithdrawalService(repo, nil, 10000, 10)
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), 50000, models.BankInfo{BankName: "Т-Банк"})
	assert.ErrorIs(t, err, ErrEmptyBankInfo)
	repo.AssertNotCalled(t, "Create")
}

func TestWithdrawalService_Create_Success(t *testing.T) {
	repo := new(mockWithdrawalRepo)
	svc := NewWithdrawalService(repo, nil, 10000, 10)
	ctx := context.Background()
	ownerID := uuid.New()

	expected := &models.WithdrawalRequest{ID: uuid.New(), OwnerID: ownerID, Amount: 50000, Status: models.WithdrawalStatusPending}
	repo.On("Create", ctx, ownerID, int64(50000), testBank).Return(expected, nil)

	w, err := svc.Create(ctx, ownerID, 50000, testBank)
	assert.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusPending, w.Status)
	repo.AssertExpectations(t)
}

func TestWithdrawalService_List_UnknownStatus(t *testing.T) {
	repo := new(mockWithdrawalRepo)
	svc := NewWithdrawalService(repo, nil, 10000, 10)
	ctx := context.Background()

	_, err := svc.List(ctx, "paid", 20, 0)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "List")
}

func TestWithdrawalService_Approve_Notifies(t *testing.T) {
	repo := new(mockWithdrawalRepo)
	notifier := newCaptureNotifier()
	svc := NewWithdrawalService(repo, notifier, 10000, 10)
	ctx := context.Background()

	ownerID := uuid.New()
	adminID := uuid.New()
	reqID := uuid.New()

	approved := &models.WithdrawalRequest{ID: reqID, OwnerID: ownerID, Amount: 40000, Status: models.WithdrawalStatusApproved}
	invoice := &models.Invoice{Number: 1, RequestID: reqID, Amount: 40000, FeeAmount: 4000, NetAmount: 36000}
	repo.On("Approve", ctx, reqID, adminID, int64(10)).Return(approved, invoice, nil)

	req, inv, err := svc.Approve(ctx, reqID, adminID)
	assert.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusApproved, req.Status)
	assert.Equal(t, int64(36000), inv.NetAmount)
	assert.Equal(t, models.EventWithdrawalApproved, notifier.wait(t))
}

func TestWithdrawalService_Approve_RepoError_NoNotification(t *testing.T) {
	repo := new(mockWithdrawalRepo)
	notifier := newCaptureNotifier()
	svc := NewWithdrawalService(repo, notifier, 10000, 10)
	ctx := context.Background()
	reqID := uuid.New()
	adminID := uuid.New()

	repo.On("Approve", ctx, reqID, adminID, int64(10)).Return(nil, nil, repository.ErrInsufficientFunds)

	_, _, err := svc.Approve(ctx, reqID, adminID)
	assert.ErrorIs(t, err, repository.ErrInsufficientFunds)
	assert.Empty(t, notifier.events)
}

func TestWithdrawalService_Reject_Notifies(t *testing.T) {
	repo := new(mockWithdrawalRepo)
	notifier := newCaptureNotifier()
	svc := NewWithdrawalService(repo, notifier, 10000, 10)
	ctx := context.Background()

	ownerID := uuid.New()
	adminID := uuid.New()
	reqID := uuid.New()

	rejected := &models.WithdrawalRequest{ID: reqID, OwnerID: ownerID, Amount: 70000, Status: models.WithdrawalStatusRejected}
	repo.On("Reject", ctx, reqID, adminID, "недостаточно средств").Return(rejected, nil)

	req, err := svc.Reject(ctx, reqID, adminID, "недостаточно средств")
	assert.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusRejected, req.Status)
	assert.Equal(t, models.EventWithdrawalRejected, notifier.wait(t))
}

func TestWithdrawalService_Cancel_Terminal(t *testing.T) {
	repo := new(mockWithdrawalRepo)
	svc := NewWithdrawalService(repo, nil, 10000, 10)
	ctx := context.Background()
	reqID := uuid.New()
	ownerID := uuid.New()

	repo.On("Cancel", ctx, reqID, ownerID).Return(nil, repository.ErrInvalidStateTransition)

	_, err := svc.Cancel(ctx, reqID, ownerID)
	assert.ErrorIs(t, err, repository.ErrInvalidStateTransition)
}

// fakeWithdrawalStore повторяет транзакционную семантику репозитория
// в памяти: общий мьютекс играет роль блокировок строк.
type fakeWithdrawalStore struct {
	mu       sync.Mutex
	balance  int64
	requests map[uuid.UUID]*models.WithdrawalRequest
	counter  int64
	invoices []*models.Invoice
}

func newFakeWithdrawalStore(balance int64) *fakeWithdrawalStore {
	return &fakeWithdrawalStore{
		balance:  balance,
		requests: make(map[uuid.UUID]*models.WithdrawalRequest),
	}
}

func (f *fakeWithdrawalStore) Create(ctx context.Context, ownerID uuid.UUID, amount int64, bank models.BankInfo) (*models.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req := &models.WithdrawalRequest{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Amount:        amount,
		BankName:      bank.BankName,
		AccountNumber: bank.AccountNumber,
		AccountHolder: bank.AccountHolder,
		Status:        models.WithdrawalStatusPending,
		CreatedAt:     time.Now(),
	}
	f.requests[req.ID] = req
	return req, nil
}

func (f *fakeWithdrawalStore) GetByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.requests[id]
	if !ok {
		return nil, repository.ErrRequestNotFound
	}
	return req, nil
}

func (f *fakeWithdrawalStore) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.WithdrawalRequest, error) {
	return nil, nil
}

func (f *fakeWithdrawalStore) List(ctx context.Context, status string, limit, offset int) ([]models.WithdrawalRequest, error) {
	return nil, nil
}

func (f *fakeWithdrawalStore) Cancel(ctx context.Context, id, ownerID uuid.UUID) (*models.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.requests[id]
	if !ok || req.OwnerID != ownerID {
		return nil, repository.ErrRequestNotFound
	}
	if req.IsTerminal() {
		return nil, repository.ErrInvalidStateTransition
	}
	req.Status = models.WithdrawalStatusCancelled
	return req, nil
}

func (f *fakeWithdrawalStore) Approve(ctx context.Context, id, adminID uuid.UUID, feePercent int64) (*models.WithdrawalRequest, *models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.requests[id]
	if !ok {
		return nil, nil, repository.ErrRequestNotFound
	}
	if req.IsTerminal() {
		return nil, nil, repository.ErrInvalidStateTransition
	}
	if f.balance < req.Amount {
		return nil, nil, repository.ErrInsufficientFunds
	}

	f.balance -= req.Amount
	f.counter++

	fee := models.PlatformFee(req.Amount, feePercent)
	invoice := &models.Invoice{
		Number:    f.counter,
		RequestID: req.ID,
		OwnerID:   req.OwnerID,
		Amount:    req.Amount,
		FeeAmount: fee,
		NetAmount: req.Amount - fee,
		IssuedBy:  adminID,
		IssuedAt:  time.Now(),
		Status:    models.InvoiceStatusIssued,
	}
	f.invoices = append(f.invoices, invoice)

	now := time.Now()
	req.Status = models.WithdrawalStatusApproved
	req.DecidedAt = &now
	req.DecidedBy = &adminID
	req.InvoiceNumber = &invoice.Number
	return req, invoice, nil
}

func (f *fakeWithdrawalStore) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.WithdrawalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.requests[id]
	if !ok {
		return nil, repository.ErrRequestNotFound
	}
	if req.IsTerminal() {
		return nil, repository.ErrInvalidStateTransition
	}
	now := time.Now()
	req.Status = models.WithdrawalStatusRejected
	req.AdminNote = &reason
	req.DecidedAt = &now
	req.DecidedBy = &adminID
	return req, nil
}

// Сценарий: заработано 1000, две заявки на 400 и 700. Одобряется
// только первая, на вторую средств уже не хватает.
func TestWithdrawalService_FullScenario(t *testing.T) {
	store := newFakeWithdrawalStore(1000)
	svc := NewWithdrawalService(store, nil, 100, 10)
	ctx := context.Background()
	ownerID := uuid.New()
	adminID := uuid.New()

	r1, err := svc.Create(ctx, ownerID, 400, testBank)
	assert.NoError(t, err)
	r2, err := svc.Create(ctx, ownerID, 700, testBank)
	assert.NoError(t, err)

	// оба pending, баланс ещё не тронут
	assert.Equal(t, int64(1000), store.balance)

	req, invoice, err := svc.Approve(ctx, r1.ID, adminID)
	assert.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusApproved, req.Status)
	assert.Equal(t, int64(600), store.balance)
	assert.Equal(t, int64(1), invoice.Number)
	assert.Equal(t, "INV-0000001", invoice.FormattedNumber())
	assert.Equal(t, int64(40), invoice.FeeAmount)
	assert.Equal(t, int64(360), invoice.NetAmount)

	_, _, err = svc.Approve(ctx, r2.ID, adminID)
	assert.ErrorIs(t, err, repository.ErrInsufficientFunds)
	assert.Equal(t, int64(600), store.balance)

	rejected, err := svc.Reject(ctx, r2.ID, adminID, "недостаточно средств")
	assert.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusRejected, rejected.Status)
	assert.Equal(t, int64(600), store.balance)
	assert.Len(t, store.invoices, 1)
}

func TestWithdrawalService_Approve_ConcurrentRequests(t *testing.T) {
	store := newFakeWithdrawalStore(1000)
	svc := NewWithdrawalService(store, nil, 100, 10)
	ctx := context.Background()
	ownerID := uuid.New()
	adminID := uuid.New()

	r1, _ := svc.Create(ctx, ownerID, 400, testBank)
	r2, _ := svc.Create(ctx, ownerID, 700, testBank)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, id := range []uuid.UUID{r1.ID, r2.ID} {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, _, err := svc.Approve(ctx, id, adminID)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	var approved, insufficient int
	for err := range errs {
		switch {
		case err == nil:
			approved++
		case errors.Is(err, repository.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("неожиданная ошибка: %v", err)
		}
	}

	// 400 + 700 > 1000: одобряется ровно одна заявка
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, insufficient)
	assert.Len(t, store.invoices, 1)
	assert.Equal(t, int64(1), store.invoices[0].Number)
	assert.Equal(t, int64(1000-store.invoices[0].Amount), store.balance)
}

func TestWithdrawalService_Approve_ConcurrentSameRequest(t *testing.T) {
	store := newFakeWithdrawalStore(1000)
	svc := NewWithdrawalService(store, nil, 100, 10)
	ctx := context.Background()
	ownerID := uuid.New()
	adminID := uuid.New()

	r1, _ := svc.Create(ctx, ownerID, 400, testBank)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Approve(ctx, r1.ID, adminID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var approved, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			approved++
		case errors.Is(err, repository.ErrInvalidStateTransition):
			conflicts++
		default:
			t.Fatalf("неожиданная ошибка: %v", err)
		}
	}

	// двойное одобрение не списывает дважды и не съедает номер счёта
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, int64(600), store.balance)
	assert.Len(t, store.invoices, 1)
	assert.Equal(t, int64(1), store.counter)
}
