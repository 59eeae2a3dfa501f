package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pix-transfer-gateway/internal/core/domain"
	"pix-transfer-gateway/internal/core/ports"
	"pix-transfer-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TransferPolicy bounds transfer amounts and PIN retries.
// Amounts are centavos.
type TransferPolicy struct {
	MinAmount      int64
	MaxAmount      int64
	MaxKeyLength   int
	PinMaxAttempts int
	PinLockoutTTL  time.Duration
}

// TransferServiceImpl implements ports.TransferService. It holds at most one
// in-flight flow per account; each flow owns its TransferRequest exclusively
// and the request is never persisted.
type TransferServiceImpl struct {
	accountRepo ports.AccountRepository
	ledgerRepo  ports.LedgerRepository
	hashSvc     ports.HashService
	pinAttempts ports.PinAttemptStore
	events      ports.EventPublisher
	policy      TransferPolicy
	log         zerolog.Logger

	mu    sync.Mutex
	flows map[uuid.UUID]*domain.TransferRequest
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(
	accountRepo ports.AccountRepository,
	ledgerRepo ports.LedgerRepository,
	hashSvc ports.HashService,
	pinAttempts ports.PinAttemptStore,
	events ports.EventPublisher,
	policy TransferPolicy,
	log zerolog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		hashSvc:     hashSvc,
		pinAttempts: pinAttempts,
		events:      events,
		policy:      policy,
		log:         log,
		flows:       make(map[uuid.UUID]*domain.TransferRequest),
	}
}

// SubmitTransferDetails is the Entry step: validate payee key and amount and
// advance to PIN verification. On validation failure the flow stays in Entry
// with the specific reason surfaced.
func (s *TransferServiceImpl) SubmitTransferDetails(ctx context.Context, accountID uuid.UUID, details ports.TransferDetails) (*ports.TransferFlowView, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	flow := s.flows[accountID]
	if flow == nil {
		flow = domain.NewTransferRequest(account.AccountNumber)
		s.flows[accountID] = flow
	} else if flow.State != domain.TransferStateEntry {
		return nil, apperror.ErrInvalidFlowState(string(flow.State))
	}

	if err := s.validateDetails(account, details); err != nil {
		// Stay in Entry.
		return flowView(flow), err
	}

	flow.PayeeKey = strings.TrimSpace(details.PayeeKey)
	flow.Amount = details.Amount
	flow.Description = details.Description
	flow.State = domain.TransferStateSecondaryAuth

	return flowView(flow), nil
}

// SubmitSecondaryCredential is the PIN step. A mismatch sends the flow back
// to Entry; after PinMaxAttempts failures the account's PIN entry is locked
// for PinLockoutTTL. The mutex is not held across store calls, so every flow
// mutation goes through applyPinTransition, which re-checks that this flow is
// still the one awaiting verification; a concurrent cancel or confirm wins
// the race and the transition is dropped.
func (s *TransferServiceImpl) SubmitSecondaryCredential(ctx context.Context, accountID uuid.UUID, pin string) (*ports.TransferFlowView, error) {
	s.mu.Lock()
	flow := s.flows[accountID]
	if flow == nil {
		s.mu.Unlock()
		return nil, apperror.ErrNoFlowInProgress()
	}
	if flow.State != domain.TransferStateSecondaryAuth {
		state := flow.State
		s.mu.Unlock()
		return nil, apperror.ErrInvalidFlowState(string(state))
	}
	s.mu.Unlock()

	// PIN hash is read fresh each attempt; a rotation mid-flow takes effect
	// immediately.
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if !account.HasPin() {
		view, terr := s.applyPinTransition(accountID, flow, func(f *domain.TransferRequest) {
			f.ResetToEntry()
		})
		if terr != nil {
			return nil, terr
		}
		return view, apperror.ErrPinNotSet()
	}

	failures, err := s.pinAttempts.Failures(ctx, accountID.String())
	if err != nil {
		return nil, apperror.ErrStoreUnavailable(fmt.Errorf("read pin attempts: %w", err))
	}
	if failures >= s.policy.PinMaxAttempts {
		view, terr := s.applyPinTransition(accountID, flow, func(f *domain.TransferRequest) {
			f.ResetToEntry()
		})
		if terr != nil {
			return nil, terr
		}
		return view, apperror.ErrPinLocked()
	}

	if !s.hashSvc.Verify(pin, *account.PinHash) {
		count, err := s.pinAttempts.RecordFailure(ctx, accountID.String(), s.policy.PinLockoutTTL)
		if err != nil {
			return nil, apperror.ErrStoreUnavailable(fmt.Errorf("record pin failure: %w", err))
		}
		s.log.Warn().
			Str("account_id", accountID.String()).
			Int("failures", count).
			Msg("pin verification failed")
		view, terr := s.applyPinTransition(accountID, flow, func(f *domain.TransferRequest) {
			f.ResetToEntry()
		})
		if terr != nil {
			return nil, terr
		}
		if count >= s.policy.PinMaxAttempts {
			return view, apperror.ErrPinLocked()
		}
		return view, apperror.ErrPinVerificationFailed(s.policy.PinMaxAttempts - count)
	}

	if err := s.pinAttempts.Reset(ctx, accountID.String()); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID.String()).Msg("failed to reset pin attempt counter")
	}

	// Freeze the amount: fee and total are fixed from here on. Changing the
	// amount requires returning to Entry.
	return s.applyPinTransition(accountID, flow, func(f *domain.TransferRequest) {
		f.Freeze()
		f.State = domain.TransferStateReview
	})
}

// applyPinTransition mutates the flow under the lock, provided it is still
// the registered flow for the account and still awaiting PIN verification.
func (s *TransferServiceImpl) applyPinTransition(accountID uuid.UUID, flow *domain.TransferRequest, fn func(*domain.TransferRequest)) (*ports.TransferFlowView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flows[accountID] != flow {
		return nil, apperror.ErrNoFlowInProgress()
	}
	if flow.State != domain.TransferStateSecondaryAuth {
		return nil, apperror.ErrInvalidFlowState(string(flow.State))
	}
	fn(flow)
	return flowView(flow), nil
}

// ConfirmTransfer commits the reviewed transfer: debit the payer by
// amount+fee, and credit the payee by amount when the payee key resolves to
// an account in this ledger. The two writes are separate single-row atomic
// updates; a credit failure after a landed debit is a partial settlement and
// is surfaced as fatal.
func (s *TransferServiceImpl) ConfirmTransfer(ctx context.Context, accountID uuid.UUID) (*ports.TransferFlowView, error) {
	// Claim the flow exclusively before any ledger write. A concurrent
	// confirm or a re-entered flow for the same account loses here, which
	// keeps the commit at-most-once.
	s.mu.Lock()
	flow := s.flows[accountID]
	if flow == nil {
		s.mu.Unlock()
		return nil, apperror.ErrNoFlowInProgress()
	}
	if flow.State != domain.TransferStateReview {
		s.mu.Unlock()
		return nil, apperror.ErrInvalidFlowState(string(flow.State))
	}
	delete(s.flows, accountID)
	s.mu.Unlock()

	// Debit payer by the full total.
	if err := s.ledgerRepo.ApplyDelta(ctx, flow.PayerAccountNumber, -flow.Total); err != nil {
		flow.State = domain.TransferStateFailed
		if errors.Is(err, ports.ErrInsufficientBalance) {
			return flowView(flow), apperror.ErrInsufficientFunds()
		}
		s.log.Error().
			Err(err).
			Str("flow_id", flow.FlowID.String()).
			Str("payer", flow.PayerAccountNumber).
			Int64("total", flow.Total).
			Msg("payer debit failed, no funds moved")
		return flowView(flow), apperror.ErrLedgerWriteFailed(fmt.Errorf("debit payer: %w", err))
	}

	// Resolve the payee key. No match means the payee lives outside this
	// ledger and the commit is debit-only.
	payee, err := s.resolvePayee(ctx, flow.PayeeKey)
	if err != nil {
		return s.partialSettlement(ctx, flow, "", fmt.Errorf("resolve payee after debit: %w", err))
	}

	if payee != nil {
		if err := s.ledgerRepo.ApplyDelta(ctx, payee.AccountNumber, flow.Amount); err != nil {
			return s.partialSettlement(ctx, flow, payee.AccountNumber, fmt.Errorf("credit payee: %w", err))
		}
	}

	flow.State = domain.TransferStateCommitted

	s.log.Info().
		Str("flow_id", flow.FlowID.String()).
		Str("payer", flow.PayerAccountNumber).
		Str("payee_key", flow.PayeeKey).
		Int64("amount", flow.Amount).
		Int64("fee", flow.Fee).
		Msg("transfer committed")

	s.publishCommitted(ctx, flow)

	return flowView(flow), nil
}

// CancelTransfer abandons the in-flight flow. Always safe before Commit
// because no ledger write has happened yet; the request is discarded and a
// fresh flow starts at Entry.
func (s *TransferServiceImpl) CancelTransfer(ctx context.Context, accountID uuid.UUID) (*ports.TransferFlowView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow := s.flows[accountID]
	if flow == nil {
		return nil, apperror.ErrNoFlowInProgress()
	}
	delete(s.flows, accountID)
	flow.State = domain.TransferStateCancelled

	s.log.Info().
		Str("flow_id", flow.FlowID.String()).
		Str("payer", flow.PayerAccountNumber).
		Msg("transfer cancelled")

	return flowView(flow), nil
}

// partialSettlement marks the flow failed after a landed debit, logs the
// reconciliation context and notifies operators. No compensating credit is
// attempted.
func (s *TransferServiceImpl) partialSettlement(ctx context.Context, flow *domain.TransferRequest, payeeAccountNumber string, cause error) (*ports.TransferFlowView, error) {
	flow.State = domain.TransferStateFailed

	s.log.Error().
		Err(cause).
		Str("flow_id", flow.FlowID.String()).
		Str("payer", flow.PayerAccountNumber).
		Str("payee_key", flow.PayeeKey).
		Str("payee_account", payeeAccountNumber).
		Int64("amount", flow.Amount).
		Int64("fee", flow.Fee).
		Int64("debited", flow.Total).
		Msg("partial settlement: payer debited, payee not credited")

	event := ports.PartialSettlementEvent{
		FlowID:             flow.FlowID,
		PayerAccountNumber: flow.PayerAccountNumber,
		PayeeAccountNumber: payeeAccountNumber,
		AmountDebited:      flow.Total,
		AmountNotCredited:  flow.Amount,
		Cause:              cause.Error(),
		Timestamp:          time.Now().UTC(),
	}
	if err := s.events.PublishPartialSettlement(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("flow_id", flow.FlowID.String()).Msg("failed to publish partial settlement event")
	}

	return flowView(flow), apperror.ErrPartialSettlement(cause)
}

func (s *TransferServiceImpl) publishCommitted(ctx context.Context, flow *domain.TransferRequest) {
	event := ports.TransferCommittedEvent{
		FlowID:             flow.FlowID,
		PayerAccountNumber: flow.PayerAccountNumber,
		PayeeKey:           flow.PayeeKey,
		Amount:             flow.Amount,
		Fee:                flow.Fee,
		Timestamp:          time.Now().UTC(),
	}
	if err := s.events.PublishTransferCommitted(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("flow_id", flow.FlowID.String()).Msg("failed to publish transfer committed event")
	}
}

// validateDetails checks the Entry-step input, surfacing the specific
// reason for each rejection.
func (s *TransferServiceImpl) validateDetails(account *domain.Account, details ports.TransferDetails) error {
	key := strings.TrimSpace(details.PayeeKey)
	if key == "" {
		return apperror.Validation("payee key is required")
	}
	if len(key) > s.policy.MaxKeyLength {
		return apperror.Validation("payee key is too long")
	}
	if strings.ContainsAny(key, " \t\n\r") {
		return apperror.Validation("malformed payee key")
	}
	if key == account.AccountNumber || key == account.Email {
		return apperror.Validation("cannot transfer to your own account")
	}
	if details.Amount == 0 {
		return apperror.Validation("amount is required")
	}
	if details.Amount < 0 {
		return apperror.Validation("amount must be positive")
	}
	if details.Amount < s.policy.MinAmount || details.Amount > s.policy.MaxAmount {
		return apperror.Validation("amount outside allowed bounds")
	}
	return nil
}

// resolvePayee tries the key as an account number, then as an email.
func (s *TransferServiceImpl) resolvePayee(ctx context.Context, key string) (*domain.Account, error) {
	payee, err := s.accountRepo.GetByAccountNumber(ctx, key)
	if err != nil {
		return nil, err
	}
	if payee != nil {
		return payee, nil
	}
	return s.accountRepo.GetByEmail(ctx, key)
}

func flowView(flow *domain.TransferRequest) *ports.TransferFlowView {
	return &ports.TransferFlowView{
		FlowID:      flow.FlowID,
		State:       flow.State,
		PayeeKey:    flow.PayeeKey,
		Amount:      flow.Amount,
		Description: flow.Description,
		Fee:         flow.Fee,
		Total:       flow.Total,
	}
}
