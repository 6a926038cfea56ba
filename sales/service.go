package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/admin-console/factory"
	"github.com/warp/admin-console/generic"
)

type Service struct {
	store      Store
	catalog    Catalog
	ledger     *generic.SalesLedger
	dispatcher *generic.Dispatcher
	now        func() time.Time

	onPayment []func(ctx context.Context, sale Sale)
}

func NewService(store Store, catalog Catalog, ledger *generic.SalesLedger, dispatcher *generic.Dispatcher) *Service {
	return &Service{store: store, catalog: catalog, ledger: ledger, dispatcher: dispatcher, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

// OnPayment registers fn to run after an approval has posted to the ledger
// and committed. Chart caches hook in here.
func (s *Service) OnPayment(fn func(ctx context.Context, sale Sale)) {
	s.onPayment = append(s.onPayment, fn)
}

// Submit records a pending sale against an active product.
func (s *Service) Submit(ctx context.Context, sub Submission) (Sale, error) {
	if err := sub.Validate(); err != nil {
		return Sale{}, err
	}

	product, err := s.catalog.Get(ctx, sub.ProductID)
	if err != nil {
		if generic.IsNotFound(err) {
			return Sale{}, &generic.PayloadError{Field: "productId", Message: "product does not exist"}
		}
		return Sale{}, err
	}
	if !product.Active() {
		return Sale{}, &generic.PayloadError{Field: "productId", Message: "product is inactive"}
	}

	if _, err := factory.DecodeImage(sub.PaymentReceipt); err != nil {
		return Sale{}, fmt.Errorf("paymentReceipt: %w: %w", generic.ErrInvalidPayload, err)
	}

	now := s.now()
	sale := Sale{
		ID:                   generic.RecordID(uuid.NewString()),
		Product:              ProductRef{ID: product.ID, Name: product.Name, Price: product.Price},
		Quantity:             sub.Quantity,
		TransactionReference: strings.TrimSpace(sub.TransactionReference),
		Status:               generic.SalePending,
		FirstName:            strings.TrimSpace(sub.FirstName),
		LastName:             strings.TrimSpace(sub.LastName),
		SubmittedBy:          sub.SubmittedBy,
		PaymentReceipt:       sub.PaymentReceipt,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.SaveSale(ctx, sale); err != nil {
		return Sale{}, fmt.Errorf("failed to save sale: %w", err)
	}
	if err := s.dispatcher.Record(ctx, sub.SubmittedBy, generic.AuditRecordCreated, generic.DomainSale, sale.ID,
		map[string]any{"productId": string(product.ID), "quantity": sale.Quantity, "total": sale.Total().String()}); err != nil {
		return sale, fmt.Errorf("failed to audit sale: %w", err)
	}
	return sale, nil
}

func (s *Service) Get(ctx context.Context, id generic.RecordID) (Sale, error) {
	sale, err := s.store.GetSale(ctx, id)
	if err != nil {
		return Sale{}, err
	}
	if sale == nil {
		return Sale{}, &generic.NotFoundError{Domain: generic.DomainSale, ID: id}
	}
	return *sale, nil
}

// List returns every sale, newest first.
func (s *Service) List(ctx context.Context) ([]Sale, error) {
	list, err := s.store.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (s *Service) Classify(ctx context.Context) ([]Sale, generic.StatusBucketSet[Sale], error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, generic.StatusBucketSet[Sale]{}, err
	}
	return list, generic.Classify(list, generic.KnownStatuses(generic.DomainSale)...), nil
}

func (s *Service) Approve(ctx context.Context, id generic.RecordID, admin generic.AdminID, reference string) (Sale, error) {
	return s.Review(ctx, id, admin, generic.SaleApproved, reference)
}

func (s *Service) Reject(ctx context.Context, id generic.RecordID, admin generic.AdminID) (Sale, error) {
	return s.Review(ctx, id, admin, generic.SaleRejected, "")
}

// Review approves or rejects a pending sale. Approval appends the sale total
// to the ledger, keyed by LedgerKey, with the approval time as paidAt. The
// status write, ledger entry and audit entries commit together.
func (s *Service) Review(ctx context.Context, id generic.RecordID, admin generic.AdminID, status generic.Status, reference string) (Sale, error) {
	sale, err := s.Get(ctx, id)
	if err != nil {
		return Sale{}, err
	}

	m := generic.Mutation{
		Domain:   generic.DomainSale,
		RecordID: sale.ID,
		From:     sale.Status,
		To:       status,
		Payload:  generic.Payload{TransactionReference: reference},
		Actor:    admin,
	}
	_, err = s.dispatcher.Dispatch(ctx, m, generic.MutationSinkFunc(func(ctx context.Context, m generic.Mutation) error {
		sale.Status = m.To
		sale.ReviewedBy = m.Actor
		if ref := strings.TrimSpace(m.Payload.TransactionReference); ref != "" {
			sale.TransactionReference = ref
		}
		sale.UpdatedAt = m.At

		if err := s.store.TransitionSale(ctx, sale, m.From); err != nil {
			return err
		}
		if m.To == generic.SaleApproved {
			return s.recordPayment(ctx, sale, m)
		}
		return nil
	}))
	if err != nil {
		return Sale{}, err
	}

	if sale.Status == generic.SaleApproved {
		for _, fn := range s.onPayment {
			fn(ctx, sale)
		}
	}
	return sale, nil
}

func (s *Service) recordPayment(ctx context.Context, sale Sale, m generic.Mutation) error {
	if !sale.Total().IsPositive() {
		return nil
	}
	reference := sale.TransactionReference
	if reference == "" {
		reference = string(sale.ID)
	}
	tx, err := s.ledger.Record(ctx, generic.Transaction{
		Amount:         sale.Total(),
		PaidAt:         m.At,
		Reference:      reference,
		IdempotencyKey: LedgerKey(sale.ID),
	})
	if errors.Is(err, generic.ErrDuplicateIdempotencyKey) {
		// Already posted under this sale's key.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record sale payment: %w", err)
	}
	return s.dispatcher.Record(ctx, m.Actor, generic.AuditTransactionRecorded, generic.DomainSale, sale.ID,
		map[string]any{"transactionId": string(tx.ID), "amount": tx.Amount.String()})
}
