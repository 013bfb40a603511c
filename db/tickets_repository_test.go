package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/entity"
)

func newTestTicket(t *testing.T, eventID string, userID string, paymentIntentID string) entity.Ticket {
	t.Helper()

	id := uuid.NewString()
	ticket, err := entity.NewTicket(entity.NewTicketParams{
		TicketID:        id,
		TicketNumber:    "TKT-20261015-" + id[:8],
		QRCode:          uuid.NewString()[:32],
		EventID:         eventID,
		UserID:          userID,
		BasePrice:       decimal.RequireFromString("22.32"),
		VatRate:         decimal.RequireFromString("0.12"),
		VatAmount:       decimal.RequireFromString("2.68"),
		TotalPrice:      decimal.RequireFromString("25.00"),
		Currency:        "nok",
		TermsAccepted:   true,
		PaymentIntentID: paymentIntentID,
		Now:             time.Now().UTC().Truncate(time.Microsecond),
	})
	require.NoError(t, err)

	return ticket
}

func countOutboxMessages(t *testing.T) int {
	t.Helper()

	var count int
	err := GetDb(t).Get(&count, `SELECT COUNT(*) FROM "watermill_events_to_forward"`)
	require.NoError(t, err)

	return count
}

func issuedEvent(ticket entity.Ticket) entity.TicketIssued_v1 {
	return entity.TicketIssued_v1{
		Header:     entity.NewEventHeader(),
		TicketID:   ticket.TicketID,
		Status:     ticket.Status,
		EventID:    ticket.EventID,
		UserID:     ticket.UserID,
		TotalPrice: ticket.TotalPrice,
		Currency:   ticket.Currency,
	}
}

func TestTicketsRepository_Add_and_Get(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketsRepository(GetDb(t))

	ticket := newTestTicket(t, uuid.NewString(), uuid.NewString(), "pi_"+uuid.NewString())
	outboxBefore := countOutboxMessages(t)

	err := repo.Add(ctx, ticket, 0, issuedEvent(ticket))
	require.NoError(t, err)

	assert.Equal(t, outboxBefore+1, countOutboxMessages(t))

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)

	assert.Equal(t, ticket.TicketNumber, stored.TicketNumber)
	assert.Equal(t, ticket.QRCode, stored.QRCode)
	assert.Equal(t, entity.TicketStatusActive, stored.Status)
	assert.True(t, stored.IsValid)
	assert.False(t, stored.IsUsed)
	assert.True(t, stored.TotalPrice.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, stored.BasePrice.Add(stored.VatAmount).Equal(stored.TotalPrice))
	assert.True(t, stored.VatRate.Equal(decimal.RequireFromString("0.12")))
	assert.True(t, stored.PurchasedAt.Equal(ticket.PurchasedAt))
	assert.Equal(t, ticket.PaymentIntentID, stored.PaymentIntentID)
	assert.Nil(t, stored.CheckedInAt)
	assert.Equal(t, 0, stored.Version)

	byIntent, err := repo.FindByPaymentIntent(ctx, *ticket.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, ticket.TicketID, byIntent.TicketID)

	_, err = repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = repo.FindByPaymentIntent(ctx, "pi_unknown")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestTicketsRepository_Add_payment_intent_redeemed_once(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketsRepository(GetDb(t))

	eventID := uuid.NewString()
	paymentIntentID := "pi_" + uuid.NewString()

	first := newTestTicket(t, eventID, uuid.NewString(), paymentIntentID)
	require.NoError(t, repo.Add(ctx, first, 0, issuedEvent(first)))

	outboxBefore := countOutboxMessages(t)

	second := newTestTicket(t, eventID, uuid.NewString(), paymentIntentID)
	err := repo.Add(ctx, second, 0, issuedEvent(second))
	assert.ErrorIs(t, err, entity.ErrPaymentAlreadyRedeemed)

	_, err = repo.Get(ctx, second.TicketID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.Equal(t, outboxBefore, countOutboxMessages(t), "rejected ticket must not leak events")
}

func TestTicketsRepository_Add_qr_code_unique(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketsRepository(GetDb(t))

	eventID := uuid.NewString()

	first := newTestTicket(t, eventID, uuid.NewString(), "pi_"+uuid.NewString())
	require.NoError(t, repo.Add(ctx, first, 0, issuedEvent(first)))

	outboxBefore := countOutboxMessages(t)

	second := newTestTicket(t, eventID, uuid.NewString(), "pi_"+uuid.NewString())
	second.QRCode = first.QRCode
	err := repo.Add(ctx, second, 0, issuedEvent(second))
	assert.ErrorIs(t, err, entity.ErrConflict)
	assert.NotErrorIs(t, err, entity.ErrPaymentAlreadyRedeemed)

	_, err = repo.Get(ctx, second.TicketID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.Equal(t, outboxBefore, countOutboxMessages(t))
}

func TestTicketsRepository_Add_capacity(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketsRepository(GetDb(t))

	eventID := uuid.NewString()
	capacity := 2

	var sold []entity.Ticket
	for i := 0; i < capacity; i++ {
		ticket := newTestTicket(t, eventID, uuid.NewString(), "")
		require.NoError(t, repo.Add(ctx, ticket, capacity))
		sold = append(sold, ticket)
	}

	err := repo.Add(ctx, newTestTicket(t, eventID, uuid.NewString(), ""), capacity)
	assert.ErrorIs(t, err, entity.ErrNoAvailableTickets)

	cancelled, err := sold[0].Cancel(time.Now().UTC(), "changed plans")
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, sold[0], cancelled))

	err = repo.Add(ctx, newTestTicket(t, eventID, uuid.NewString(), ""), capacity)
	assert.NoError(t, err, "cancelled ticket frees its seat")
}

func TestTicketsRepository_Add_concurrent_capacity(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketsRepository(GetDb(t))

	eventID := uuid.NewString()
	capacity := 3
	workers := 10

	tickets := make([]entity.Ticket, workers)
	for i := range tickets {
		tickets[i] = newTestTicket(t, eventID, uuid.NewString(), "")
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Add(ctx, tickets[i], capacity)
		}(i)
	}
	wg.Wait()

	var live int
	err := GetDb(t).Get(&live, `SELECT COUNT(*) FROM tickets WHERE event_id = $1`, eventID)
	require.NoError(t, err)

	assert.LessOrEqual(t, live, capacity)
	assert.Equal(t, live, lo.CountBy(errs, func(err error) bool { return err == nil }))
	for _, err := range errs {
		if err != nil {
			assert.True(t, errorIsOneOf(err, entity.ErrNoAvailableTickets, entity.ErrConflict), "unexpected error: %v", err)
		}
	}
}

func TestTicketsRepository_Update_compare_and_swap(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketsRepository(GetDb(t))

	ticket := newTestTicket(t, uuid.NewString(), uuid.NewString(), "")
	require.NoError(t, repo.Add(ctx, ticket, 0))

	workers := 10
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			checkedIn, err := ticket.CheckIn(time.Now().UTC())
			if err != nil {
				errs[i] = err
				return
			}

			errs[i] = repo.Update(ctx, ticket, checkedIn, entity.TicketCheckedIn_v1{
				Header:      entity.NewEventHeader(),
				TicketID:    ticket.TicketID,
				Status:      checkedIn.Status,
				CheckedInAt: *checkedIn.CheckedInAt,
			})
		}(i)
	}
	wg.Wait()

	applied := lo.CountBy(errs, func(err error) bool { return err == nil })
	assert.Equal(t, 1, applied)
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, entity.ErrConflict)
		}
	}

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusUsed, stored.Status)
	assert.True(t, stored.IsUsed)
	assert.NotNil(t, stored.CheckedInAt)
	assert.Equal(t, 1, stored.Version)
}

func TestTicketsRepository_Update_stale_status(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketsRepository(GetDb(t))

	ticket := newTestTicket(t, uuid.NewString(), uuid.NewString(), "")
	require.NoError(t, repo.Add(ctx, ticket, 0))

	cancelled, err := ticket.Cancel(time.Now().UTC(), "")
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, ticket, cancelled))

	checkedIn, err := ticket.CheckIn(time.Now().UTC())
	require.NoError(t, err)

	outboxBefore := countOutboxMessages(t)

	err = repo.Update(ctx, ticket, checkedIn, entity.TicketCheckedIn_v1{
		Header:   entity.NewEventHeader(),
		TicketID: ticket.TicketID,
	})
	assert.ErrorIs(t, err, entity.ErrConflict)
	assert.Equal(t, outboxBefore, countOutboxMessages(t))

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusCancelled, stored.Status)
	assert.False(t, stored.IsUsed)
}

func TestTicketsRepository_FindByUser(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketsRepository(GetDb(t))

	userID := uuid.NewString()
	first := newTestTicket(t, uuid.NewString(), userID, "")
	second := newTestTicket(t, uuid.NewString(), userID, "")
	second.PurchasedAt = first.PurchasedAt.Add(time.Minute)

	require.NoError(t, repo.Add(ctx, second, 0))
	require.NoError(t, repo.Add(ctx, first, 0))
	require.NoError(t, repo.Add(ctx, newTestTicket(t, uuid.NewString(), uuid.NewString(), ""), 0))

	tickets, err := repo.FindByUser(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{first.TicketID, second.TicketID},
		lo.Map(tickets, func(ticket entity.Ticket, _ int) string { return ticket.TicketID }),
	)
}

func TestTicketsRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketsRepository(GetDb(t))

	ticket := newTestTicket(t, uuid.NewString(), uuid.NewString(), "")
	require.NoError(t, repo.Add(ctx, ticket, 0))

	deleted := entity.TicketDeleted_v1{Header: entity.NewEventHeader(), TicketID: ticket.TicketID}

	require.NoError(t, repo.Delete(ctx, ticket.TicketID, deleted))

	_, err := repo.Get(ctx, ticket.TicketID)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	err = repo.Delete(ctx, ticket.TicketID, deleted)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestTicketsRepository_RecordConfirmationSent(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketsRepository(GetDb(t))

	ticket := newTestTicket(t, uuid.NewString(), uuid.NewString(), "")
	require.NoError(t, repo.Add(ctx, ticket, 0))

	sentAt := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.RecordConfirmationSent(ctx, ticket.TicketID, "buyer@example.com", sentAt))

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	require.NotNil(t, stored.ConfirmationEmailSentTo)
	assert.Equal(t, "buyer@example.com", *stored.ConfirmationEmailSentTo)
	require.NotNil(t, stored.ConfirmationEmailSentAt)
	assert.True(t, stored.ConfirmationEmailSentAt.Equal(sentAt))
	assert.Equal(t, 0, stored.Version)

	err = repo.RecordConfirmationSent(ctx, uuid.NewString(), "buyer@example.com", sentAt)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func errorIsOneOf(err error, targets ...error) bool {
	return lo.SomeBy(targets, func(target error) bool {
		return errors.Is(err, target)
	})
}
