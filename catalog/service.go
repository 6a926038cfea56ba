package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/admin-console/generic"
)

// Service edits the catalog. Products have no status workflow, so changes
// are audited directly rather than dispatched.
type Service struct {
	store      Store
	dispatcher *generic.Dispatcher
	now        func() time.Time
}

func NewService(store Store, dispatcher *generic.Dispatcher) *Service {
	return &Service{store: store, dispatcher: dispatcher, now: time.Now}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Create(ctx context.Context, admin generic.AdminID, in Input) (Product, error) {
	if admin.IsZero() {
		return Product{}, &generic.MissingFieldError{Domain: generic.DomainProduct, Field: generic.FieldAdminID}
	}
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	status, _ := ParseStatus(in.Status)
	now := s.now()
	p := Product{
		ID:          generic.RecordID(uuid.NewString()),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Status:      status,
		Images:      in.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SaveProduct(ctx, p); err != nil {
		return Product{}, fmt.Errorf("failed to save product: %w", err)
	}
	return p, s.audit(ctx, admin, generic.AuditRecordCreated, p)
}

func (s *Service) Update(ctx context.Context, admin generic.AdminID, id generic.RecordID, in Input) (Product, error) {
	if admin.IsZero() {
		return Product{}, &generic.MissingFieldError{Domain: generic.DomainProduct, Field: generic.FieldAdminID}
	}
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	status, _ := ParseStatus(in.Status)
	p.Name = strings.TrimSpace(in.Name)
	p.Description = strings.TrimSpace(in.Description)
	p.Price = in.Price
	p.Status = status
	p.Images = in.Images
	p.UpdatedAt = s.now()
	if err := s.store.SaveProduct(ctx, p); err != nil {
		return Product{}, fmt.Errorf("failed to save product: %w", err)
	}
	return p, s.audit(ctx, admin, generic.AuditRecordUpdated, p)
}

// SetStatus toggles a product between Active and Inactive.
func (s *Service) SetStatus(ctx context.Context, admin generic.AdminID, id generic.RecordID, status string) (Product, error) {
	if admin.IsZero() {
		return Product{}, &generic.MissingFieldError{Domain: generic.DomainProduct, Field: generic.FieldAdminID}
	}
	next, err := ParseStatus(status)
	if err != nil {
		return Product{}, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p.Status = next
	p.UpdatedAt = s.now()
	if err := s.store.SaveProduct(ctx, p); err != nil {
		return Product{}, fmt.Errorf("failed to save product: %w", err)
	}
	return p, s.audit(ctx, admin, generic.AuditRecordUpdated, p)
}

func (s *Service) Get(ctx context.Context, id generic.RecordID) (Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if p == nil {
		return Product{}, &generic.NotFoundError{Domain: generic.DomainProduct, ID: id}
	}
	return *p, nil
}

// List returns products newest first.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	list, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (s *Service) Delete(ctx context.Context, admin generic.AdminID, id generic.RecordID) error {
	if admin.IsZero() {
		return &generic.MissingFieldError{Domain: generic.DomainProduct, Field: generic.FieldAdminID}
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return s.audit(ctx, admin, generic.AuditRecordDeleted, p)
}

func (s *Service) audit(ctx context.Context, admin generic.AdminID, action generic.AuditAction, p Product) error {
	err := s.dispatcher.Record(ctx, admin, action, generic.DomainProduct, p.ID, map[string]any{
		"name":   p.Name,
		"price":  p.Price.String(),
		"status": string(p.Status),
	})
	if err != nil {
		return fmt.Errorf("failed to audit product: %w", err)
	}
	return nil
}
