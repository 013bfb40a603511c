package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ticketing/entity"
)

// TicketsRepository is an in-memory ticketing.TicketsRepository with the same
// compare-and-swap semantics as the Postgres one.
type TicketsRepository struct {
	mu sync.Mutex

	tickets map[string]entity.Ticket
	// Events holds every event stored together with a ticket write, in order.
	Events []entity.DomainEvent

	// BeforeUpdate, when set, runs before an update is applied. Tests use it to simulate races.
	BeforeUpdate func(prev entity.Ticket)
}

func NewTicketsRepository() *TicketsRepository {
	return &TicketsRepository{tickets: map[string]entity.Ticket{}}
}

func (r *TicketsRepository) Add(ctx context.Context, ticket entity.Ticket, capacity int, events ...entity.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[ticket.TicketID]; ok {
		return fmt.Errorf("ticket %s: %w", ticket.TicketID, entity.ErrConflict)
	}

	live := 0
	for _, t := range r.tickets {
		if ticket.PaymentIntentID != nil && t.PaymentIntentID != nil && *t.PaymentIntentID == *ticket.PaymentIntentID {
			return fmt.Errorf("payment intent %s: %w", *ticket.PaymentIntentID, entity.ErrPaymentAlreadyRedeemed)
		}
		if t.TicketNumber == ticket.TicketNumber || t.QRCode == ticket.QRCode {
			return fmt.Errorf("ticket %s: %w", ticket.TicketID, entity.ErrConflict)
		}
		if t.EventID == ticket.EventID && t.IsLive() {
			live++
		}
	}
	if capacity > 0 && live >= capacity {
		return entity.ErrNoAvailableTickets
	}

	r.tickets[ticket.TicketID] = ticket
	r.Events = append(r.Events, events...)

	return nil
}

func (r *TicketsRepository) Get(ctx context.Context, ticketID string) (entity.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[ticketID]
	if !ok {
		return entity.Ticket{}, fmt.Errorf("ticket %s: %w", ticketID, entity.ErrNotFound)
	}

	return ticket, nil
}

func (r *TicketsRepository) FindByUser(ctx context.Context, userID string) ([]entity.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var tickets []entity.Ticket
	for _, t := range r.tickets {
		if t.UserID == userID {
			tickets = append(tickets, t)
		}
	}
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].PurchasedAt.Before(tickets[j].PurchasedAt)
	})

	return tickets, nil
}

func (r *TicketsRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (entity.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tickets {
		if t.PaymentIntentID != nil && *t.PaymentIntentID == paymentIntentID {
			return t, nil
		}
	}

	return entity.Ticket{}, fmt.Errorf("ticket for payment intent %s: %w", paymentIntentID, entity.ErrNotFound)
}

func (r *TicketsRepository) Update(ctx context.Context, prev entity.Ticket, next entity.Ticket, events ...entity.DomainEvent) error {
	if r.BeforeUpdate != nil {
		r.BeforeUpdate(prev)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tickets[prev.TicketID]
	if !ok || stored.Status != prev.Status || stored.Version != prev.Version {
		return fmt.Errorf("ticket %s: %w", prev.TicketID, entity.ErrConflict)
	}

	next.Version = prev.Version + 1
	r.tickets[next.TicketID] = next
	r.Events = append(r.Events, events...)

	return nil
}

func (r *TicketsRepository) RecordConfirmationSent(ctx context.Context, ticketID string, email string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[ticketID]
	if !ok {
		return fmt.Errorf("ticket %s: %w", ticketID, entity.ErrNotFound)
	}

	ticket.ConfirmationEmailSentTo = &email
	ticket.ConfirmationEmailSentAt = &sentAt
	r.tickets[ticketID] = ticket

	return nil
}

func (r *TicketsRepository) Delete(ctx context.Context, ticketID string, events ...entity.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[ticketID]; !ok {
		return fmt.Errorf("ticket %s: %w", ticketID, entity.ErrNotFound)
	}

	delete(r.tickets, ticketID)
	r.Events = append(r.Events, events...)

	return nil
}

// Put stores a ticket as-is, bypassing every check.
func (r *TicketsRepository) Put(ticket entity.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tickets[ticket.TicketID] = ticket
}

func (r *TicketsRepository) StoredEvents() []entity.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]entity.DomainEvent(nil), r.Events...)
}
