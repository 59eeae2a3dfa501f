package integration

import (
	"context"
	"fmt"
	"sync"

	"pix-transfer-gateway/internal/core/domain"
	"pix-transfer-gateway/internal/core/ports"

	"github.com/google/uuid"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return ports.ErrDuplicateEmail
		}
	}
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryAccountRepo) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.AccountNumber == accountNumber {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryAccountRepo) UpdateProfile(ctx context.Context, id uuid.UUID, displayName, avatarURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.DisplayName = displayName
	a.AvatarURL = avatarURL
	return nil
}

func (r *inMemoryAccountRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.PasswordHash = hash
	return nil
}

func (r *inMemoryAccountRepo) UpdatePinHash(ctx context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.PinHash = &hash
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu       sync.Mutex
	balances map[string]int64
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{balances: make(map[string]int64)}
}

func (r *inMemoryLedgerRepo) InitBalance(ctx context.Context, accountNumber string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.balances[accountNumber]; ok {
		return fmt.Errorf("balance already initialized")
	}
	r.balances[accountNumber] = amount
	return nil
}

func (r *inMemoryLedgerRepo) GetBalance(ctx context.Context, accountNumber string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	amount, ok := r.balances[accountNumber]
	if !ok {
		return 0, ports.ErrBalanceNotFound
	}
	return amount, nil
}

func (r *inMemoryLedgerRepo) ApplyDelta(ctx context.Context, accountNumber string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	amount, ok := r.balances[accountNumber]
	if !ok {
		return ports.ErrBalanceNotFound
	}
	if amount+delta < 0 {
		return ports.ErrInsufficientBalance
	}
	r.balances[accountNumber] = amount + delta
	return nil
}

// seed overwrites a balance directly, bypassing the delta path.
func (r *inMemoryLedgerRepo) seed(accountNumber string, amount int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[accountNumber] = amount
}

// --- Capturing Event Publisher ---

type capturingPublisher struct {
	mu        sync.Mutex
	committed []ports.TransferCommittedEvent
	partial   []ports.PartialSettlementEvent
}

func newCapturingPublisher() *capturingPublisher {
	return &capturingPublisher{}
}

func (p *capturingPublisher) PublishTransferCommitted(ctx context.Context, event ports.TransferCommittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.committed = append(p.committed, event)
	return nil
}

func (p *capturingPublisher) PublishPartialSettlement(ctx context.Context, event ports.PartialSettlementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.partial = append(p.partial, event)
	return nil
}

func (p *capturingPublisher) Close() {}

func (p *capturingPublisher) committedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.committed)
}
