package payouts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/admin-console/generic"
)

type Service struct {
	store      Store
	dispatcher *generic.Dispatcher
	now        func() time.Time
}

func NewService(store Store, dispatcher *generic.Dispatcher) *Service {
	return &Service{store: store, dispatcher: dispatcher, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Request records a new pending withdrawal.
func (s *Service) Request(ctx context.Context, n NewWithdrawal) (Withdrawal, error) {
	if err := n.Validate(); err != nil {
		return Withdrawal{}, err
	}
	now := s.now()
	w := Withdrawal{
		ID:     generic.RecordID(uuid.NewString()),
		UserID: strings.TrimSpace(n.UserID),
		Amount: n.Amount,
		Bank: BankDetails{
			AccountName:   strings.TrimSpace(n.Bank.AccountName),
			AccountNumber: strings.TrimSpace(n.Bank.AccountNumber),
			BankName:      strings.TrimSpace(n.Bank.BankName),
		},
		Status:    generic.WithdrawalPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveWithdrawal(ctx, w); err != nil {
		return Withdrawal{}, fmt.Errorf("failed to save withdrawal: %w", err)
	}
	if err := s.dispatcher.Record(ctx, "", generic.AuditRecordCreated, generic.DomainWithdrawal, w.ID,
		map[string]any{"userId": w.UserID, "amount": w.Amount.String()}); err != nil {
		return w, fmt.Errorf("failed to audit withdrawal: %w", err)
	}
	return w, nil
}

func (s *Service) Get(ctx context.Context, id generic.RecordID) (Withdrawal, error) {
	w, err := s.store.GetWithdrawal(ctx, id)
	if err != nil {
		return Withdrawal{}, err
	}
	if w == nil {
		return Withdrawal{}, &generic.NotFoundError{Domain: generic.DomainWithdrawal, ID: id}
	}
	return *w, nil
}

// List returns every withdrawal, newest first.
func (s *Service) List(ctx context.Context) ([]Withdrawal, error) {
	list, err := s.store.ListWithdrawals(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (s *Service) Classify(ctx context.Context) ([]Withdrawal, generic.StatusBucketSet[Withdrawal], error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, generic.StatusBucketSet[Withdrawal]{}, err
	}
	return list, generic.Classify(list, generic.KnownStatuses(generic.DomainWithdrawal)...), nil
}

func (s *Service) Complete(ctx context.Context, id generic.RecordID, admin generic.AdminID, reference string) (Withdrawal, error) {
	return s.Update(ctx, id, admin, generic.WithdrawalCompleted, generic.Payload{
		Action:               generic.ActionComplete,
		TransactionReference: reference,
	})
}

func (s *Service) Cancel(ctx context.Context, id generic.RecordID, admin generic.AdminID, reason string) (Withdrawal, error) {
	return s.Update(ctx, id, admin, generic.WithdrawalCancelled, generic.Payload{
		Action:             generic.ActionCancel,
		CancellationReason: reason,
	})
}

// Update moves a withdrawal to status. The payload carries the bank
// reference on completion and the reason on cancellation.
func (s *Service) Update(ctx context.Context, id generic.RecordID, admin generic.AdminID, status generic.Status, p generic.Payload) (Withdrawal, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return Withdrawal{}, err
	}

	m := generic.Mutation{
		Domain:   generic.DomainWithdrawal,
		RecordID: w.ID,
		From:     w.Status,
		To:       status,
		Payload:  p,
		Actor:    admin,
	}
	_, err = s.dispatcher.Dispatch(ctx, m, generic.MutationSinkFunc(func(ctx context.Context, m generic.Mutation) error {
		w.Status = m.To
		w.ProcessedBy = m.Actor
		if ref := strings.TrimSpace(m.Payload.TransactionReference); ref != "" {
			w.TransactionReference = ref
		}
		if m.To == generic.WithdrawalCancelled {
			w.CancellationReason = strings.TrimSpace(m.Payload.CancellationReason)
		}
		w.UpdatedAt = m.At
		return s.store.TransitionWithdrawal(ctx, w, m.From)
	}))
	if err != nil {
		return Withdrawal{}, err
	}
	return w, nil
}
