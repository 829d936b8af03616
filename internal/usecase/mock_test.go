//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/itzhord/onecard-sub000/internal/domain"
	"github.com/itzhord/onecard-sub000/internal/domain/model"
	"github.com/itzhord/onecard-sub000/internal/domain/ports/adapter"
	"github.com/itzhord/onecard-sub000/internal/domain/ports/repository"
)

// =============================
// Gateway
// =============================

type MockGateway struct {
	NameVal string

	InitializeFunc func(ctx context.Context, email string, amount int64, currency, reference string, meta map[string]interface{}) (*adapter.InitResult, error)
	VerifyFunc     func(ctx context.Context, reference string) (*adapter.VerifyResult, error)

	mu          sync.Mutex
	VerifyCalls int
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string {
	if m.NameVal == "" {
		return "mockpay"
	}
	return m.NameVal
}

func (m *MockGateway) Initialize(ctx context.Context, email string, amount int64, currency, reference string, meta map[string]interface{}) (*adapter.InitResult, error) {
	if m.InitializeFunc != nil {
		return m.InitializeFunc(ctx, email, amount, currency, reference, meta)
	}
	ref := reference
	if ref == "" {
		ref = "REF-" + uuid.NewString()
	}
	return &adapter.InitResult{Reference: ref, AuthorizationURL: "https://pay.example/" + ref, AccessCode: ref}, nil
}

func (m *MockGateway) Verify(ctx context.Context, reference string) (*adapter.VerifyResult, error) {
	m.mu.Lock()
	m.VerifyCalls++
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, reference)
	}
	now := time.Now()
	return &adapter.VerifyResult{
		Confirmed: true,
		Message:   "Verification successful",
		Status:    "success",
		Reference: reference,
		Channel:   "card",
		PaidAt:    &now,
	}, nil
}

// =============================
// Repositories
// =============================

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Payment // by reference

	SaveFunc              func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByReferenceFunc   func(ctx context.Context, tx repository.Tx, reference string) (*model.Payment, error)
	CompleteIfPendingFunc func(ctx context.Context, tx repository.Tx, reference string, amount int64, method *string, paidAt time.Time, metadata map[string]interface{}) (bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := r.data[p.Reference]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *p
	r.data[p.Reference] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Payment, error) {
	if r.FindByReferenceFunc != nil {
		return r.FindByReferenceFunc(ctx, tx, reference)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[reference]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, reference string, amount int64, method *string, paidAt time.Time, metadata map[string]interface{}) (bool, error) {
	if r.CompleteIfPendingFunc != nil {
		return r.CompleteIfPendingFunc(ctx, tx, reference, amount, method, paidAt, metadata)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[reference]
	if !ok {
		return false, domain.ErrOperationFailed
	}
	if p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusCompleted
	p.Amount = amount
	if method != nil {
		p.Method = method
	}
	pa := paidAt
	p.PaidAt = &pa
	p.Metadata = metadata
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, reference string, status model.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[reference]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusCompleted {
		p.Status = status
	}
	return nil
}

func (r *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Get returns the stored payment without the repository copy semantics.
func (r *MockPaymentRepo) Get(reference string) *model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[reference]
}

// ---- Mock CardRepository ----

type MockCardRepo struct {
	mu   sync.Mutex
	data map[string]*model.Card // by card id

	ExistsFunc func(ctx context.Context, tx repository.Tx, cardID string) (bool, error)
	InsertFunc func(ctx context.Context, tx repository.Tx, c *model.Card) error
}

var _ repository.CardRepository = (*MockCardRepo)(nil)

func NewMockCardRepo() *MockCardRepo {
	return &MockCardRepo{data: map[string]*model.Card{}}
}

func (r *MockCardRepo) Exists(ctx context.Context, tx repository.Tx, cardID string) (bool, error) {
	if r.ExistsFunc != nil {
		return r.ExistsFunc(ctx, tx, cardID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.data[cardID]
	return ok, nil
}

func (r *MockCardRepo) Insert(ctx context.Context, tx repository.Tx, c *model.Card) error {
	if r.InsertFunc != nil {
		return r.InsertFunc(ctx, tx, c)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[c.CardID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *c
	r.data[c.CardID] = &cp
	return nil
}

func (r *MockCardRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Card
	for _, c := range r.data {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockCardRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription // by user id

	FindByUserFunc   func(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error)
	InsertFunc       func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	UpdateByUserFunc func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	if r.FindByUserFunc != nil {
		return r.FindByUserFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.data[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) Insert(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if r.InsertFunc != nil {
		return r.InsertFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[s.UserID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *s
	r.data[s.UserID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) UpdateByUser(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if r.UpdateByUserFunc != nil {
		return r.UpdateByUserFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[s.UserID]; !ok {
		return domain.ErrNotFound
	}
	cp := *s
	r.data[s.UserID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

func (r *MockSubscriptionRepo) Get(userID string) *model.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[userID]
}

// =============================
// Locker
// =============================

type memLocker struct {
	mu   sync.Mutex
	held map[string]string
	Fail bool // force TryLock failures
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]string{}}
}

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Fail {
		return "", domain.ErrLockNotAcquired
	}
	if _, ok := l.held[key]; ok {
		return "", domain.ErrLockNotAcquired
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
