package generic_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/admin-console/generic"
)

// =============================================================================
// TICKETS
// =============================================================================

func TestTicket_ReopenClosed_Ok(t *testing.T) {
	err := generic.ValidateTransition(generic.DomainTicket, "closed", "open",
		generic.Payload{Action: generic.ActionReopen})
	assert.NoError(t, err)
}

func TestTicket_UpdateClosed_Rejected(t *testing.T) {
	// GIVEN: A closed ticket
	// WHEN: An admin tries to post a reply without reopening
	err := generic.ValidateTransition(generic.DomainTicket, "closed", "closed",
		generic.Payload{Action: generic.ActionUpdate, Reply: "x"})

	// THEN: Refused even though the request is well-formed
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)

	var invalid *generic.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "closed tickets can only be reopened", invalid.Reason)
}

func TestTicket_ClosedRefusesEverythingButReopen(t *testing.T) {
	attempts := []struct {
		to     generic.Status
		action generic.Action
	}{
		{"closed", generic.ActionClose},
		{"closed", generic.ActionUpdate},
		{"open", generic.ActionUpdate},
		{"open", generic.ActionClose},
	}
	for _, a := range attempts {
		err := generic.ValidateTransition(generic.DomainTicket, "closed", a.to,
			generic.Payload{Action: a.action, Reply: "hello"})
		if !errors.Is(err, generic.ErrInvalidTransition) {
			t.Errorf("closed -> %s (%s): expected InvalidTransition, got %v", a.to, a.action, err)
		}
	}
}

func TestTicket_OpenTransitions(t *testing.T) {
	assert.NoError(t, generic.ValidateTransition(generic.DomainTicket, "open", "closed",
		generic.Payload{Action: generic.ActionClose}))
	assert.NoError(t, generic.ValidateTransition(generic.DomainTicket, "open", "closed",
		generic.Payload{Action: generic.ActionUpdate, Reply: "resolved"}))
	assert.NoError(t, generic.ValidateTransition(generic.DomainTicket, "open", "open",
		generic.Payload{Action: generic.ActionUpdate, Reply: "looking into it"}))
}

func TestTicket_UpdateWithoutReply_MissingField(t *testing.T) {
	err := generic.ValidateTransition(generic.DomainTicket, "open", "open",
		generic.Payload{Action: generic.ActionUpdate, Reply: "   "})

	var missing *generic.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, generic.FieldReply, missing.Field)
}

func TestTicket_ActionMustMatchTransition(t *testing.T) {
	err := generic.ValidateTransition(generic.DomainTicket, "open", "closed",
		generic.Payload{Action: generic.ActionReopen})
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

// =============================================================================
// WITHDRAWALS
// =============================================================================

func TestWithdrawal_CancelWithoutReason_MissingField(t *testing.T) {
	err := generic.ValidateTransition(generic.DomainWithdrawal, "pending", "cancelled", generic.Payload{})

	assert.ErrorIs(t, err, generic.ErrMissingRequiredField)
	var missing *generic.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, generic.FieldCancellationReason, missing.Field)
	assert.Equal(t, generic.DomainWithdrawal, missing.Domain)
}

func TestWithdrawal_CancelWithReason_Ok(t *testing.T) {
	err := generic.ValidateTransition(generic.DomainWithdrawal, "pending", "cancelled",
		generic.Payload{CancellationReason: "fraud"})
	assert.NoError(t, err)
}

func TestWithdrawal_CompleteFromPending_Ok(t *testing.T) {
	err := generic.ValidateTransition(generic.DomainWithdrawal, "pending", "completed",
		generic.Payload{TransactionReference: "TRX-123"})
	assert.NoError(t, err)
}

func TestWithdrawal_TerminalStatesAreFinal(t *testing.T) {
	for _, from := range []generic.Status{"completed", "cancelled"} {
		for _, to := range []generic.Status{"pending", "completed", "cancelled"} {
			err := generic.ValidateTransition(generic.DomainWithdrawal, from, to,
				generic.Payload{CancellationReason: "x"})
			if !errors.Is(err, generic.ErrInvalidTransition) {
				t.Errorf("%s -> %s should be invalid, got %v", from, to, err)
			}
		}
	}
}

// =============================================================================
// SALES / PROMOTIONS
// =============================================================================

func TestSale_Transitions(t *testing.T) {
	assert.NoError(t, generic.ValidateTransition(generic.DomainSale, "pending", "approved", generic.Payload{}))
	assert.NoError(t, generic.ValidateTransition(generic.DomainSale, "pending", "rejected", generic.Payload{}))

	err := generic.ValidateTransition(generic.DomainSale, "approved", "rejected", generic.Payload{})
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "approved is final")
}

// =============================================================================
// UNKNOWN INPUT
// =============================================================================

func TestValidate_UnknownStatus(t *testing.T) {
	err := generic.ValidateTransition(generic.DomainSale, "pending", "shipped", generic.Payload{})
	assert.ErrorIs(t, err, generic.ErrUnknownStatus)

	err = generic.ValidateTransition(generic.DomainTicket, "archived", "open", generic.Payload{})
	assert.ErrorIs(t, err, generic.ErrUnknownStatus)
}

func TestValidate_UnknownDomain(t *testing.T) {
	err := generic.ValidateTransition(generic.Domain("invoice"), "pending", "approved", generic.Payload{})
	assert.ErrorIs(t, err, generic.ErrUnknownDomain)
}

func TestParseDomain_PromotionAlias(t *testing.T) {
	d, err := generic.ParseDomain("promotion")
	require.NoError(t, err)
	assert.Equal(t, generic.DomainSale, d)
}

func TestValidate_Idempotent(t *testing.T) {
	p := generic.Payload{}
	first := generic.ValidateTransition(generic.DomainWithdrawal, "pending", "cancelled", p)
	second := generic.ValidateTransition(generic.DomainWithdrawal, "pending", "cancelled", p)
	assert.Equal(t, first, second)
}

func TestWorkflow_TableShape(t *testing.T) {
	for _, d := range generic.Domains() {
		w, err := generic.WorkflowFor(d)
		require.NoError(t, err)
		assert.True(t, w.Knows(w.Initial), "%s initial status must be known", d)
		for _, tr := range w.Transitions {
			assert.True(t, w.Knows(tr.From) && w.Knows(tr.To), "%s transition uses unknown status", d)
			assert.NotEmpty(t, tr.Actions)
		}
	}
}
