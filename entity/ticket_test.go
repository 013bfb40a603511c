package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/entity"
)

func newActiveTicket(t *testing.T) entity.Ticket {
	t.Helper()

	ticket, err := entity.NewTicket(entity.NewTicketParams{
		TicketID:      "ticket-1",
		TicketNumber:  "TKT-20261015-AB12C",
		QRCode:        "0123456789ABCDEF0123456789ABCDEF",
		EventID:       "event-1",
		UserID:        "user-1",
		BasePrice:     decimal.RequireFromString("22.32"),
		VatRate:       decimal.RequireFromString("0.12"),
		VatAmount:     decimal.RequireFromString("2.68"),
		TotalPrice:    decimal.RequireFromString("25.00"),
		Currency:      "nok",
		TermsAccepted: true,
		Now:           time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	return ticket
}

func TestNewTicket(t *testing.T) {
	ticket := newActiveTicket(t)

	assert.Equal(t, entity.TicketStatusActive, ticket.Status)
	assert.True(t, ticket.IsValid)
	assert.False(t, ticket.IsUsed)
	assert.True(t, ticket.TermsAccepted)
	assert.Nil(t, ticket.PaymentIntentID)
}

func TestNewTicket_terms_not_accepted(t *testing.T) {
	_, err := entity.NewTicket(entity.NewTicketParams{
		TicketID:     "ticket-1",
		TicketNumber: "TKT-20261015-AB12C",
		QRCode:       "0123456789ABCDEF0123456789ABCDEF",
		EventID:      "event-1",
		UserID:       "user-1",
	})
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestNewTicket_price_must_add_up(t *testing.T) {
	_, err := entity.NewTicket(entity.NewTicketParams{
		TicketID:      "ticket-1",
		TicketNumber:  "TKT-20261015-AB12C",
		QRCode:        "0123456789ABCDEF0123456789ABCDEF",
		EventID:       "event-1",
		UserID:        "user-1",
		BasePrice:     decimal.RequireFromString("22.32"),
		VatAmount:     decimal.RequireFromString("2.67"),
		TotalPrice:    decimal.RequireFromString("25.00"),
		TermsAccepted: true,
	})
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestTicket_CheckIn(t *testing.T) {
	now := time.Now().UTC()
	ticket := newActiveTicket(t)

	checkedIn, err := ticket.CheckIn(now)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusUsed, checkedIn.Status)
	assert.True(t, checkedIn.IsUsed)
	require.NotNil(t, checkedIn.CheckedInAt)
	assert.Equal(t, now, *checkedIn.CheckedInAt)

	_, err = checkedIn.CheckIn(now.Add(time.Minute))
	assert.ErrorIs(t, err, entity.ErrTransitionNotAllowed)
}

func TestTicket_CheckIn_rejected(t *testing.T) {
	testCases := []struct {
		Name   string
		Mutate func(ticket *entity.Ticket)
	}{
		{
			Name:   "invalid",
			Mutate: func(ticket *entity.Ticket) { ticket.IsValid = false },
		},
		{
			Name:   "already used but status still active",
			Mutate: func(ticket *entity.Ticket) { ticket.IsUsed = true },
		},
		{
			Name:   "cancelled",
			Mutate: func(ticket *entity.Ticket) { ticket.Status = entity.TicketStatusCancelled },
		},
		{
			Name:   "expired",
			Mutate: func(ticket *entity.Ticket) { ticket.Status = entity.TicketStatusExpired },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			ticket := newActiveTicket(t)
			tc.Mutate(&ticket)

			_, err := ticket.CheckIn(time.Now())
			assert.ErrorIs(t, err, entity.ErrTransitionNotAllowed)
		})
	}
}

func TestTicket_Cancel_then_Refund(t *testing.T) {
	now := time.Now().UTC()
	ticket := newActiveTicket(t)

	_, err := ticket.Refund(now, "REF-1")
	assert.ErrorIs(t, err, entity.ErrTransitionNotAllowed, "refund requires prior cancellation")

	cancelled, err := ticket.Cancel(now, "change of plans")
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusCancelled, cancelled.Status)
	assert.False(t, cancelled.IsValid)
	assert.Equal(t, "change of plans", *cancelled.CancellationReason)
	assert.True(t, cancelled.TotalPrice.Equal(ticket.TotalPrice))

	_, err = cancelled.Cancel(now, "again")
	assert.ErrorIs(t, err, entity.ErrTransitionNotAllowed)

	refunded, err := cancelled.Refund(now, "REF-1")
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusRefunded, refunded.Status)
	assert.Equal(t, "REF-1", *refunded.RefundTransactionID)

	_, err = refunded.Refund(now, "REF-2")
	assert.ErrorIs(t, err, entity.ErrTransitionNotAllowed)
}

func TestTicket_TransferTo(t *testing.T) {
	now := time.Now().UTC()
	ticket := newActiveTicket(t)
	oldQR := ticket.QRCode

	transferred, err := ticket.TransferTo(now, "user-2", "FEDCBA9876543210FEDCBA9876543210")
	require.NoError(t, err)

	assert.Equal(t, entity.TicketStatusTransferred, transferred.Status)
	assert.Equal(t, "user-2", transferred.UserID)
	require.NotNil(t, transferred.TransferredFromUserID)
	assert.Equal(t, "user-1", *transferred.TransferredFromUserID)
	assert.NotEqual(t, oldQR, transferred.QRCode)
	assert.True(t, transferred.IsValid)

	// the new holder can still get in
	checkedIn, err := transferred.CheckIn(now)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusUsed, checkedIn.Status)
}

func TestTicket_TransferTo_used_ticket_with_active_status(t *testing.T) {
	ticket := newActiveTicket(t)
	ticket.IsUsed = true
	require.Equal(t, entity.TicketStatusActive, ticket.Status)

	_, err := ticket.TransferTo(time.Now(), "user-2", "FEDCBA9876543210FEDCBA9876543210")
	assert.ErrorIs(t, err, entity.ErrTransitionNotAllowed)
}

func TestTicket_TransferTo_same_owner(t *testing.T) {
	ticket := newActiveTicket(t)

	_, err := ticket.TransferTo(time.Now(), ticket.UserID, "FEDCBA9876543210FEDCBA9876543210")
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestTicket_Invalidate(t *testing.T) {
	for _, status := range []entity.TicketStatus{
		entity.TicketStatusActive,
		entity.TicketStatusUsed,
		entity.TicketStatusCancelled,
		entity.TicketStatusTransferred,
		entity.TicketStatusRefunded,
	} {
		t.Run(status.String(), func(t *testing.T) {
			ticket := newActiveTicket(t)
			ticket.Status = status

			invalidated, err := ticket.Invalidate()
			require.NoError(t, err)
			assert.Equal(t, entity.TicketStatusExpired, invalidated.Status)
			assert.False(t, invalidated.IsValid)
		})
	}

	ticket := newActiveTicket(t)
	ticket.Status = entity.TicketStatusExpired
	_, err := ticket.Invalidate()
	assert.ErrorIs(t, err, entity.ErrTransitionNotAllowed)
}

func TestTicket_IsLive(t *testing.T) {
	ticket := newActiveTicket(t)
	assert.True(t, ticket.IsLive())

	ticket.Status = entity.TicketStatusCancelled
	assert.False(t, ticket.IsLive())
}
