// Package sales records manual promotion sales. An admin submits a sale with
// a payment receipt; another admin approves or rejects it. Approved sales
// feed the sales ledger behind the dashboard charts.
package sales

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/admin-console/catalog"
	"github.com/warp/admin-console/factory"
	"github.com/warp/admin-console/generic"
)

var (
	ErrReceiptTooLarge  = factory.ErrImageTooLarge
	ErrUnsupportedImage = factory.ErrUnsupportedImage
)

// ProductRef is the product as it was when the sale was submitted.
type ProductRef struct {
	ID    generic.RecordID
	Name  string
	Price decimal.Decimal
}

type Sale struct {
	ID                   generic.RecordID
	Product              ProductRef
	Quantity             int
	TransactionReference string
	Status               generic.Status
	FirstName            string
	LastName             string
	SubmittedBy          generic.AdminID
	PaymentReceipt       string
	ReviewedBy           generic.AdminID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (s Sale) CurrentStatus() generic.Status { return s.Status }
func (s Sale) RecordKey() generic.RecordID    { return s.ID }

// Total is price times quantity.
func (s Sale) Total() decimal.Decimal {
	return s.Product.Price.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

func (s Sale) CustomerName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// LedgerKey is the idempotency key of the transaction an approval records.
func LedgerKey(id generic.RecordID) string {
	return "sale:" + string(id)
}

type Submission struct {
	FirstName            string
	LastName             string
	ProductID            generic.RecordID
	Quantity             int
	TransactionReference string
	SubmittedBy          generic.AdminID
	PaymentReceipt       string
}

func (s Submission) Validate() error {
	switch {
	case strings.TrimSpace(s.FirstName) == "":
		return &generic.PayloadError{Field: "firstName", Message: "is required"}
	case strings.TrimSpace(s.LastName) == "":
		return &generic.PayloadError{Field: "lastName", Message: "is required"}
	case s.ProductID == "":
		return &generic.PayloadError{Field: "productId", Message: "is required"}
	case s.Quantity < 1:
		return &generic.PayloadError{Field: "quantity", Message: "must be at least 1"}
	case s.SubmittedBy.IsZero():
		return &generic.MissingFieldError{Domain: generic.DomainSale, Field: generic.FieldAdminID}
	}
	return nil
}

// Catalog resolves the product a sale refers to.
type Catalog interface {
	Get(ctx context.Context, id generic.RecordID) (catalog.Product, error)
}

// Store persists sales. GetSale returns nil, nil when missing.
type Store interface {
	SaveSale(ctx context.Context, s Sale) error
	TransitionSale(ctx context.Context, s Sale, from generic.Status) error
	GetSale(ctx context.Context, id generic.RecordID) (*Sale, error)
	ListSales(ctx context.Context) ([]Sale, error)
}
