package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/onepay-cm/onepay/internal/apperrors"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/repository"
)

// MemStorage is an in-memory repository.Storage for tests that do not
// need postgres. InTx runs the callback against the same data with no
// isolation, only the call count is recorded
type MemStorage struct {
	mu sync.Mutex

	users         map[uuid.UUID]models.User
	accounts      map[uuid.UUID]models.MobileMoneyAccount
	transactions  map[uuid.UUID]models.Transaction
	txSource      map[uuid.UUID]uuid.UUID
	failed        map[uuid.UUID]models.FailedTransaction
	audit         []models.AuditRecord
	notifications map[uuid.UUID]models.Notification

	InTxCalls int

	// Injectable faults
	SaveTransactionErr error
	SaveAccountErr     error
	SumErr             error
}

var _ repository.Storage = (*MemStorage)(nil)

func NewMemStorage() *MemStorage {
	return &MemStorage{
		users:         make(map[uuid.UUID]models.User),
		accounts:      make(map[uuid.UUID]models.MobileMoneyAccount),
		transactions:  make(map[uuid.UUID]models.Transaction),
		txSource:      make(map[uuid.UUID]uuid.UUID),
		failed:        make(map[uuid.UUID]models.FailedTransaction),
		notifications: make(map[uuid.UUID]models.Notification),
	}
}

func (s *MemStorage) Users() repository.UserRepo                       { return s }
func (s *MemStorage) Accounts() repository.AccountRepo                 { return s }
func (s *MemStorage) Transactions() repository.TransactionRepo         { return s }
func (s *MemStorage) FailedTransactions() repository.FailedTransactionRepo { return s }
func (s *MemStorage) Audit() repository.AuditRepo                      { return s }
func (s *MemStorage) Notifications() repository.NotificationRepo       { return s }

func (s *MemStorage) InTx(ctx context.Context, fn func(repository.Storage) error) error {
	s.mu.Lock()
	s.InTxCalls++
	s.mu.Unlock()

	return fn(s)
}

// Users

func (s *MemStorage) CreateUser(ctx context.Context, phoneNumber string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := models.User{
		ID:          uuid.New(),
		PhoneNumber: phoneNumber,
		Balance:     decimal.Zero,
		CreatedAt:   time.Now(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemStorage) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return u, nil
}

// Accounts

func (s *MemStorage) CreateAccount(ctx context.Context, params repository.CreateAccountParams) (models.MobileMoneyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := models.MobileMoneyAccount{
		ID:        uuid.New(),
		UserID:    params.UserID,
		Number:    params.Number,
		Provider:  params.Provider,
		CreatedAt: time.Now(),
	}
	s.accounts[a.ID] = a
	return a, nil
}

func (s *MemStorage) GetAccount(ctx context.Context, id uuid.UUID) (models.MobileMoneyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return models.MobileMoneyAccount{}, apperrors.ErrAccountNotFound
	}
	return a, nil
}

func (s *MemStorage) SaveAccount(ctx context.Context, a *models.MobileMoneyAccount) error {
	if s.SaveAccountErr != nil {
		return s.SaveAccountErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.ID]; !ok {
		return apperrors.ErrAccountNotFound
	}
	s.accounts[a.ID] = *a
	return nil
}

// SetVerified marks an account verified, a test convenience
func (s *MemStorage) SetVerified(id uuid.UUID, verified bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.accounts[id]
	a.IsVerified = verified
	s.accounts[id] = a
}

// SetBalance sets an account balance, a test convenience
func (s *MemStorage) SetBalance(id uuid.UUID, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.accounts[id]
	a.Balance = &balance
	s.accounts[id] = a
}

// ClearBalance puts the account back into the never-synced state
func (s *MemStorage) ClearBalance(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.accounts[id]
	a.Balance = nil
	s.accounts[id] = a
}

// Transactions

func (s *MemStorage) CreateTransaction(ctx context.Context, params repository.CreateTransactionParams) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := models.Transaction{
		ID:              uuid.New(),
		UserID:          params.UserID,
		Type:            params.Type,
		Amount:          params.Amount,
		Fees:            decimal.Zero,
		Status:          models.TransactionStatusPending,
		RecipientNumber: params.RecipientNumber,
		Operator:        params.Operator,
		CreatedAt:       time.Now(),
	}
	s.transactions[t.ID] = t

	if params.SourceAccountID != nil {
		s.txSource[t.ID] = *params.SourceAccountID
	}

	return s.loadTransaction(t.ID), nil
}

func (s *MemStorage) GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return models.Transaction{}, apperrors.ErrTransactionNotFound
	}
	return s.loadTransaction(id), nil
}

// loadTransaction attaches a copy of the source account. Caller must
// hold the lock
func (s *MemStorage) loadTransaction(id uuid.UUID) models.Transaction {
	t := s.transactions[id]

	if accountID, ok := s.txSource[id]; ok {
		if a, ok := s.accounts[accountID]; ok {
			t.SourceAccount = &a
		}
	}

	return t
}

func (s *MemStorage) SaveTransaction(ctx context.Context, t *models.Transaction) error {
	if s.SaveTransactionErr != nil {
		return s.SaveTransactionErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.transactions[t.ID]
	if !ok {
		return apperrors.ErrTransactionNotFound
	}

	stored.Fees = t.Fees
	stored.Status = t.Status
	stored.Reference = t.Reference
	stored.OperatorReference = t.OperatorReference
	stored.CompletedAt = t.CompletedAt
	stored.StatusHistory = append([]models.StatusChange(nil), t.StatusHistory...)
	s.transactions[t.ID] = stored
	return nil
}

func (s *MemStorage) SumCompletedAmount(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	if s.SumErr != nil {
		return decimal.Zero, s.SumErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, t := range s.transactions {
		if t.UserID != userID || t.Status != models.TransactionStatusCompleted {
			continue
		}
		if t.CreatedAt.Before(since) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (s *MemStorage) ListPendingForVerification(ctx context.Context, olderThan time.Time, limit int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []models.Transaction
	for id, t := range s.transactions {
		if t.Status != models.TransactionStatusPending || t.Reference == nil {
			continue
		}
		if !t.CreatedAt.Before(olderThan) {
			continue
		}
		pending = append(pending, s.loadTransaction(id))
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

// SetCreatedAt backdates a transaction, a test convenience
func (s *MemStorage) SetCreatedAt(id uuid.UUID, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.transactions[id]
	t.CreatedAt = createdAt
	s.transactions[id] = t
}

// Failed transactions

func (s *MemStorage) CreateFailedTransaction(ctx context.Context, transactionID uuid.UUID, reason string, failedAt time.Time) (models.FailedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.failed[transactionID]; ok {
		return existing, nil
	}

	f := models.FailedTransaction{
		ID:            uuid.New(),
		TransactionID: transactionID,
		Reason:        reason,
		FailedAt:      failedAt,
	}
	s.failed[transactionID] = f
	return f, nil
}

func (s *MemStorage) GetByTransaction(ctx context.Context, transactionID uuid.UUID) (models.FailedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.failed[transactionID]
	if !ok {
		return models.FailedTransaction{}, apperrors.ErrTransactionNotFound
	}
	return f, nil
}

// Audit

func (s *MemStorage) CreateRecord(ctx context.Context, rec models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = int64(len(s.audit) + 1)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.audit = append(s.audit, rec)
	return nil
}

func (s *MemStorage) ListByDateRange(ctx context.Context, start, end time.Time, limit int) ([]models.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.AuditRecord
	for _, rec := range s.audit {
		if rec.CreatedAt.Before(start) || rec.CreatedAt.After(end) {
			continue
		}
		records = append(records, rec)
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

func (s *MemStorage) ListByMessageClass(ctx context.Context, messageClass string, limit int) ([]models.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.AuditRecord
	for _, rec := range s.audit {
		if rec.MessageClass != messageClass {
			continue
		}
		records = append(records, rec)
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

func (s *MemStorage) ListFailures(ctx context.Context, since time.Time, limit int) ([]models.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.AuditRecord
	for _, rec := range s.audit {
		if rec.Success || rec.CreatedAt.Before(since) {
			continue
		}
		records = append(records, rec)
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

func (s *MemStorage) CountOlderThan(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, rec := range s.audit {
		if rec.CreatedAt.Before(before) {
			count++
		}
	}
	return count, nil
}

func (s *MemStorage) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []models.AuditRecord
	var deleted int64
	for _, rec := range s.audit {
		if rec.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.audit = kept
	return deleted, nil
}

// AuditRecords returns a snapshot of every stored audit record
func (s *MemStorage) AuditRecords() []models.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.AuditRecord(nil), s.audit...)
}

// Notifications

func (s *MemStorage) CreateNotification(ctx context.Context, params repository.CreateNotificationParams) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := models.Notification{
		ID:            uuid.New(),
		UserID:        params.UserID,
		TransactionID: params.TransactionID,
		Type:          params.Type,
		Message:       params.Message,
		Status:        models.NotificationStatusPending,
		CreatedAt:     time.Now(),
	}
	s.notifications[n.ID] = n
	return n, nil
}

func (s *MemStorage) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return apperrors.ErrTransactionNotFound
	}
	n.Status = models.NotificationStatusSent
	n.SentAt = &sentAt
	s.notifications[id] = n
	return nil
}

// NotificationList returns a snapshot of every stored notification
func (s *MemStorage) NotificationList() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		list = append(list, n)
	}
	return list
}

// FailedFor returns the failure record for transaction, if any
func (s *MemStorage) FailedFor(transactionID uuid.UUID) (models.FailedTransaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.failed[transactionID]
	return f, ok
}
