package sales_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/admin-console/catalog"
	"github.com/warp/admin-console/factory"
	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/sales"
	"github.com/warp/admin-console/store/sqlite"
)

type fixture struct {
	sales      *sales.Service
	catalog    *catalog.Service
	ledger     *generic.SalesLedger
	store      *sqlite.Store
	dispatcher *generic.Dispatcher
}

func receipt(size int) string {
	data := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{7}, size)...)
	return base64.StdEncoding.EncodeToString(data)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	dispatcher := generic.NewDispatcher(store.AuditLog(), nil, nil)
	cat := catalog.NewService(store, dispatcher)
	ledger := generic.NewSalesLedger(store)
	return &fixture{
		sales:      sales.NewService(store, cat, ledger, dispatcher),
		catalog:    cat,
		ledger:     ledger,
		store:      store,
		dispatcher: dispatcher,
	}
}

func (f *fixture) product(t *testing.T, price, status string) catalog.Product {
	t.Helper()
	p, err := f.catalog.Create(context.Background(), "admin-1", catalog.Input{
		Name:   "Gift card",
		Price:  generic.MustParseDecimal(price),
		Status: status,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) submit(t *testing.T, productID generic.RecordID, qty int) sales.Sale {
	t.Helper()
	s, err := f.sales.Submit(context.Background(), sales.Submission{
		FirstName:      "Ada",
		LastName:       "Lovelace",
		ProductID:      productID,
		Quantity:       qty,
		SubmittedBy:    "admin-1",
		PaymentReceipt: receipt(128),
	})
	require.NoError(t, err)
	return s
}

func TestSubmit_SnapshotsProduct(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "19.99", "")

	s := f.submit(t, p.ID, 3)

	assert.Equal(t, generic.SalePending, s.Status)
	assert.Equal(t, "Gift card", s.Product.Name)
	assert.True(t, s.Total().Equal(generic.MustParseDecimal("59.97")))
	assert.Equal(t, "Ada Lovelace", s.CustomerName())
}

func TestSubmit_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active := f.product(t, "10", "Active")
	inactive := f.product(t, "10", "Inactive")

	base := sales.Submission{FirstName: "A", LastName: "B", Quantity: 1, SubmittedBy: "admin-1", PaymentReceipt: receipt(64)}

	inactiveSub := base
	inactiveSub.ProductID = inactive.ID
	_, err := f.sales.Submit(ctx, inactiveSub)
	assert.ErrorIs(t, err, generic.ErrInvalidPayload)

	missing := base
	missing.ProductID = "nope"
	_, err = f.sales.Submit(ctx, missing)
	assert.ErrorIs(t, err, generic.ErrInvalidPayload)

	zero := base
	zero.ProductID = active.ID
	zero.Quantity = 0
	_, err = f.sales.Submit(ctx, zero)
	assert.ErrorIs(t, err, generic.ErrInvalidPayload)

	large := base
	large.ProductID = active.ID
	large.PaymentReceipt = receipt(factory.MaxImageBytes)
	_, err = f.sales.Submit(ctx, large)
	assert.ErrorIs(t, err, sales.ErrReceiptTooLarge)

	gif := base
	gif.ProductID = active.ID
	gif.PaymentReceipt = base64.StdEncoding.EncodeToString([]byte("GIF89a......"))
	_, err = f.sales.Submit(ctx, gif)
	assert.ErrorIs(t, err, sales.ErrUnsupportedImage)
}

func TestApprove_RecordsLedgerTransaction(t *testing.T) {
	// GIVEN: A pending sale of 2 x 50
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "50", "")
	s := f.submit(t, p.ID, 2)

	// WHEN: An admin approves it
	approved, err := f.sales.Approve(ctx, s.ID, "admin-2", "BANK-1")
	require.NoError(t, err)

	// THEN: The sale is final and its total is in the ledger
	assert.Equal(t, generic.SaleApproved, approved.Status)
	assert.Equal(t, generic.AdminID("admin-2"), approved.ReviewedBy)
	assert.Equal(t, "BANK-1", approved.TransactionReference)

	exists, err := f.store.Exists(ctx, sales.LedgerKey(s.ID))
	require.NoError(t, err)
	assert.True(t, exists)

	total, err := f.ledger.MonthTotal(ctx, time.Now())
	require.NoError(t, err)
	assert.True(t, total.Equal(generic.MustParseDecimal("100")), "got %s", total)

	_, err = f.sales.Reject(ctx, s.ID, "admin-3")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

func TestReject_DoesNotTouchLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "50", "")
	s := f.submit(t, p.ID, 1)

	rejected, err := f.sales.Reject(ctx, s.ID, "admin-2")
	require.NoError(t, err)
	assert.Equal(t, generic.SaleRejected, rejected.Status)

	all, err := f.store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestReview_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "5", "")
	s := f.submit(t, p.ID, 1)

	_, err := f.sales.Approve(context.Background(), s.ID, "", "")
	assert.ErrorIs(t, err, generic.ErrMissingRequiredField)
}

// lockstepStore holds every GetSale until all expected reviewers have read
// the sale, so each of them validates against pending.
type lockstepStore struct {
	*sqlite.Store
	reads sync.WaitGroup
}

func (s *lockstepStore) GetSale(ctx context.Context, id generic.RecordID) (*sales.Sale, error) {
	sale, err := s.Store.GetSale(ctx, id)
	s.reads.Done()
	s.reads.Wait()
	return sale, err
}

func TestReview_ConcurrentApproveAndReject(t *testing.T) {
	// GIVEN: A pending sale read by two reviewers at once
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "40", "")
	s := f.submit(t, p.ID, 1)

	racing := &lockstepStore{Store: f.store}
	racing.reads.Add(2)
	svc := sales.NewService(racing, f.catalog, f.ledger, f.dispatcher)

	// WHEN: One approves while the other rejects
	var approveErr, rejectErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = svc.Approve(ctx, s.ID, "admin-1", "BANK-9")
	}()
	go func() {
		defer wg.Done()
		_, rejectErr = svc.Reject(ctx, s.ID, "admin-2")
	}()
	wg.Wait()

	// THEN: One review sticks and the ledger agrees with it
	if (approveErr == nil) == (rejectErr == nil) {
		t.Fatalf("expected exactly one success, got approve=%v reject=%v", approveErr, rejectErr)
	}

	got, err := f.sales.Get(ctx, s.ID)
	require.NoError(t, err)
	all, err := f.store.All(ctx)
	require.NoError(t, err)

	if approveErr == nil {
		assert.ErrorIs(t, rejectErr, generic.ErrInvalidTransition)
		assert.Equal(t, generic.SaleApproved, got.Status)
		assert.Len(t, all, 1)
	} else {
		assert.ErrorIs(t, approveErr, generic.ErrInvalidTransition)
		assert.Equal(t, generic.SaleRejected, got.Status)
		assert.Empty(t, all, "a rejected sale never reaches the ledger")
	}
}

type failingAudit struct{ generic.AuditLog }

func (failingAudit) Append(context.Context, generic.AuditEntry) error {
	return errors.New("audit log offline")
}

func TestApprove_AuditFailureRollsBackPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "50", "")
	s := f.submit(t, p.ID, 2)

	dispatcher := generic.NewDispatcher(failingAudit{f.store.AuditLog()}, nil, nil)
	dispatcher.Tx = f.store
	svc := sales.NewService(f.store, f.catalog, f.ledger, dispatcher)

	_, err := svc.Approve(ctx, s.ID, "admin-2", "BANK-1")
	require.Error(t, err)

	got, err := f.sales.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, generic.SalePending, got.Status)
	assert.Empty(t, got.ReviewedBy)

	all, err := f.store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "no revenue for a sale that is still pending")
}

func TestReview_PaymentHooksRunOnApprovalOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "5", "")
	approved := f.submit(t, p.ID, 1)
	rejected := f.submit(t, p.ID, 1)

	var paid []generic.RecordID
	f.sales.OnPayment(func(_ context.Context, s sales.Sale) {
		paid = append(paid, s.ID)
	})

	_, err := f.sales.Reject(ctx, rejected.ID, "admin-1")
	require.NoError(t, err)
	_, err = f.sales.Approve(ctx, approved.ID, "admin-1", "")
	require.NoError(t, err)

	assert.Equal(t, []generic.RecordID{approved.ID}, paid)
}
