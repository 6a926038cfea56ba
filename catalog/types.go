// Package catalog manages the products that manual sales are recorded
// against. Products carry up to ten base64 images under the same size and
// type rules as payment receipts.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/admin-console/factory"
	"github.com/warp/admin-console/generic"
)

type ProductStatus string

const (
	StatusActive   ProductStatus = "Active"
	StatusInactive ProductStatus = "Inactive"
)

// ParseStatus defaults an empty value to Active.
func ParseStatus(s string) (ProductStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active":
		return StatusActive, nil
	case "inactive":
		return StatusInactive, nil
	}
	return "", &generic.PayloadError{Field: "status", Message: fmt.Sprintf("unknown product status %q", s)}
}

// KnownStatuses orders the catalog tabs.
func KnownStatuses() []generic.Status {
	return []generic.Status{generic.Status(StatusActive), generic.Status(StatusInactive)}
}

type Product struct {
	ID          generic.RecordID
	Name        string
	Description string
	Price       decimal.Decimal
	Status      ProductStatus
	Images      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Product) CurrentStatus() generic.Status { return generic.Status(p.Status) }
func (p Product) RecordKey() generic.RecordID    { return p.ID }
func (p Product) Active() bool                   { return p.Status == StatusActive }

// Input is the editable part of a product.
type Input struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Status      string
	Images      []string
}

const maxImages = 10

func (in Input) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &generic.PayloadError{Field: "name", Message: "is required"}
	}
	if in.Price.IsNegative() {
		return &generic.PayloadError{Field: "price", Message: "must not be negative"}
	}
	if _, err := ParseStatus(in.Status); err != nil {
		return err
	}
	if len(in.Images) > maxImages {
		return &generic.PayloadError{Field: "images", Message: fmt.Sprintf("at most %d images", maxImages)}
	}
	for i, img := range in.Images {
		if _, err := factory.DecodeImage(img); err != nil {
			return fmt.Errorf("images[%d]: %w: %w", i, generic.ErrInvalidPayload, err)
		}
	}
	return nil
}

// Store persists products. GetProduct returns nil, nil when missing.
type Store interface {
	SaveProduct(ctx context.Context, p Product) error
	GetProduct(ctx context.Context, id generic.RecordID) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	DeleteProduct(ctx context.Context, id generic.RecordID) error
}
