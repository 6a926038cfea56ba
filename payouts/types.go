// Package payouts handles user withdrawal requests. A withdrawal starts
// pending and is either completed (paid out) or cancelled with a reason.
package payouts

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/admin-console/generic"
)

type BankDetails struct {
	AccountName   string
	AccountNumber string
	BankName      string
}

func (b BankDetails) validate() error {
	switch {
	case strings.TrimSpace(b.AccountName) == "":
		return &generic.PayloadError{Field: "bankDetails.accountName", Message: "is required"}
	case strings.TrimSpace(b.AccountNumber) == "":
		return &generic.PayloadError{Field: "bankDetails.accountNumber", Message: "is required"}
	case strings.TrimSpace(b.BankName) == "":
		return &generic.PayloadError{Field: "bankDetails.bankName", Message: "is required"}
	}
	return nil
}

type Withdrawal struct {
	ID                   generic.RecordID
	UserID               string
	Amount               decimal.Decimal
	Bank                 BankDetails
	Status               generic.Status
	TransactionReference string
	CancellationReason   string
	ProcessedBy          generic.AdminID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (w Withdrawal) CurrentStatus() generic.Status { return w.Status }
func (w Withdrawal) RecordKey() generic.RecordID    { return w.ID }

var _ generic.Statused = Withdrawal{}

type NewWithdrawal struct {
	UserID string
	Amount decimal.Decimal
	Bank   BankDetails
}

func (n NewWithdrawal) Validate() error {
	if strings.TrimSpace(n.UserID) == "" {
		return &generic.PayloadError{Field: "userId", Message: "is required"}
	}
	if !n.Amount.IsPositive() {
		return &generic.PayloadError{Field: "amount", Message: "must be greater than zero"}
	}
	return n.Bank.validate()
}

// Store persists withdrawals. GetWithdrawal returns nil, nil when missing.
type Store interface {
	SaveWithdrawal(ctx context.Context, w Withdrawal) error
	// TransitionWithdrawal is a conditional write on the stored status; it
	// returns generic.ErrStatusChanged when the status is no longer from.
	TransitionWithdrawal(ctx context.Context, w Withdrawal, from generic.Status) error
	GetWithdrawal(ctx context.Context, id generic.RecordID) (*Withdrawal, error)
	ListWithdrawals(ctx context.Context) ([]Withdrawal, error)
}
