package ticketing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ticketing/entity"
	"ticketing/metrics"
	"ticketing/pricing"
)

type TicketsRepository interface {
	// Add stores a new ticket together with its events. When capacity is positive,
	// it fails with entity.ErrNoAvailableTickets once the event has that many live tickets.
	Add(ctx context.Context, ticket entity.Ticket, capacity int, events ...entity.DomainEvent) error
	Get(ctx context.Context, ticketID string) (entity.Ticket, error)
	FindByUser(ctx context.Context, userID string) ([]entity.Ticket, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (entity.Ticket, error)
	// Update replaces prev with next only if the stored row still has prev's status and version.
	// Otherwise it returns entity.ErrConflict and stores nothing.
	Update(ctx context.Context, prev entity.Ticket, next entity.Ticket, events ...entity.DomainEvent) error
	Delete(ctx context.Context, ticketID string, events ...entity.DomainEvent) error
}

type EventsRepository interface {
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

type UsersRepository interface {
	Get(ctx context.Context, userID string) (entity.User, error)
}

type CreateTicketParams struct {
	EventID       string
	UserID        string
	Email         string
	TermsAccepted bool

	// PaymentIntentID binds the ticket to the charge that paid for it, if any.
	PaymentIntentID string
	// PaidPrice is the gross price actually charged. Nil means the event's current price.
	PaidPrice *decimal.Decimal
}

type Manager struct {
	tickets  TicketsRepository
	events   EventsRepository
	users    UsersRepository
	codes    CodeGenerator
	rates    pricing.Rates
	currency string
	now      func() time.Time
}

func NewManager(
	tickets TicketsRepository,
	events EventsRepository,
	users UsersRepository,
	rates pricing.Rates,
	currency string,
) *Manager {
	if tickets == nil {
		panic("missing tickets repository")
	}
	if events == nil {
		panic("missing events repository")
	}
	if users == nil {
		panic("missing users repository")
	}
	if currency == "" {
		panic("missing currency")
	}

	return &Manager{
		tickets:  tickets,
		events:   events,
		users:    users,
		codes:    RandomCodeGenerator{},
		rates:    rates,
		currency: currency,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (m *Manager) CreateTicket(ctx context.Context, params CreateTicketParams) (entity.Ticket, error) {
	if !params.TermsAccepted {
		return entity.Ticket{}, fmt.Errorf("%w: terms and conditions must be accepted", entity.ErrValidation)
	}

	event, err := m.events.Get(ctx, params.EventID)
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("could not get event %s: %w", params.EventID, err)
	}

	user, err := m.users.Get(ctx, params.UserID)
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("could not get user %s: %w", params.UserID, err)
	}

	email := params.Email
	if email == "" {
		email = user.Email
	}

	gross := event.Price
	if params.PaidPrice != nil {
		gross = *params.PaidPrice
	}

	breakdown, err := pricing.ComputeVatBreakdown(gross, m.rates.Rate(event.VatRegion))
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("could not compute vat for event %s: %w", event.EventID, err)
	}

	now := m.now()

	ticketNumber, err := m.codes.TicketNumber(now)
	if err != nil {
		return entity.Ticket{}, err
	}
	qrCode, err := m.codes.QRCode()
	if err != nil {
		return entity.Ticket{}, err
	}

	ticket, err := entity.NewTicket(entity.NewTicketParams{
		TicketID:        uuid.NewString(),
		TicketNumber:    ticketNumber,
		QRCode:          qrCode,
		EventID:         event.EventID,
		UserID:          user.UserID,
		BasePrice:       breakdown.BasePrice,
		VatRate:         breakdown.VatRate,
		VatAmount:       breakdown.VatAmount,
		TotalPrice:      breakdown.TotalPrice,
		Currency:        m.currency,
		TermsAccepted:   params.TermsAccepted,
		PaymentIntentID: params.PaymentIntentID,
		Now:             now,
	})
	if err != nil {
		return entity.Ticket{}, err
	}

	err = m.tickets.Add(ctx, ticket, event.Capacity, entity.TicketIssued_v1{
		Header:          entity.NewEventHeader(),
		TicketID:        ticket.TicketID,
		Status:          ticket.Status,
		TicketNumber:    ticket.TicketNumber,
		EventID:         ticket.EventID,
		UserID:          ticket.UserID,
		Email:           email,
		TotalPrice:      ticket.TotalPrice,
		Currency:        ticket.Currency,
		PaymentIntentID: params.PaymentIntentID,
	})
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("could not store ticket: %w", err)
	}

	metrics.TicketTransitions.WithLabelValues("create", metrics.OutcomeApplied).Inc()
	log.FromContext(ctx).WithFields(logrus.Fields{
		"ticket_id":     ticket.TicketID,
		"ticket_number": ticket.TicketNumber,
		"event_id":      ticket.EventID,
		"user_id":       ticket.UserID,
	}).Info("Ticket issued")

	return ticket, nil
}

// CheckIn reports false when the ticket is missing, already used or otherwise not admissible.
func (m *Manager) CheckIn(ctx context.Context, ticketID string) (bool, error) {
	ticket, err := m.transition(ctx, "check_in", ticketID, func(current entity.Ticket) (entity.Ticket, entity.DomainEvent, error) {
		next, err := current.CheckIn(m.now())
		if err != nil {
			return current, nil, err
		}

		return next, entity.TicketCheckedIn_v1{
			Header:      entity.NewEventHeader(),
			TicketID:    next.TicketID,
			Status:      next.Status,
			CheckedInAt: *next.CheckedInAt,
		}, nil
	})

	return ticket != nil, err
}

func (m *Manager) Invalidate(ctx context.Context, ticketID string) (bool, error) {
	ticket, err := m.transition(ctx, "invalidate", ticketID, func(current entity.Ticket) (entity.Ticket, entity.DomainEvent, error) {
		if current.Status == entity.TicketStatusExpired {
			return current, nil, nil
		}

		next, err := current.Invalidate()
		if err != nil {
			return current, nil, err
		}

		return next, entity.TicketInvalidated_v1{
			Header:         entity.NewEventHeader(),
			TicketID:       next.TicketID,
			Status:         next.Status,
			PreviousStatus: current.Status,
		}, nil
	})

	return ticket != nil, err
}

// Cancel only moves the ticket out of circulation. Money is returned by a separate Refund.
func (m *Manager) Cancel(ctx context.Context, ticketID string, reason string) (*entity.Ticket, error) {
	return m.transition(ctx, "cancel", ticketID, func(current entity.Ticket) (entity.Ticket, entity.DomainEvent, error) {
		next, err := current.Cancel(m.now(), reason)
		if err != nil {
			return current, nil, err
		}

		return next, entity.TicketCancelled_v1{
			Header:   entity.NewEventHeader(),
			TicketID: next.TicketID,
			Status:   next.Status,
			Reason:   reason,
		}, nil
	})
}

func (m *Manager) Refund(ctx context.Context, ticketID string) (*entity.Ticket, error) {
	return m.transition(ctx, "refund", ticketID, func(current entity.Ticket) (entity.Ticket, entity.DomainEvent, error) {
		if current.Status != entity.TicketStatusCancelled {
			return current, nil, fmt.Errorf("%w: refund requires a cancelled ticket", entity.ErrTransitionNotAllowed)
		}

		transactionID, err := m.codes.RefundTransactionID()
		if err != nil {
			return current, nil, err
		}

		next, err := current.Refund(m.now(), transactionID)
		if err != nil {
			return current, nil, err
		}

		event := entity.TicketRefunded_v1{
			Header:        entity.NewEventHeaderWithIdempotencyKey(transactionID),
			TicketID:      next.TicketID,
			Status:        next.Status,
			UserID:        next.UserID,
			RefundAmount:  next.TotalPrice,
			Currency:      next.Currency,
			TransactionID: transactionID,
		}
		if next.PaymentIntentID != nil {
			event.PaymentIntentID = *next.PaymentIntentID
		}

		return next, event, nil
	})
}

// Transfer moves the ticket to another user and rotates its QR code.
// It fails with entity.ErrNotFound when the receiving user does not exist.
func (m *Manager) Transfer(ctx context.Context, ticketID string, toUserID string, toEmail string) (*entity.Ticket, error) {
	return m.transition(ctx, "transfer", ticketID, func(current entity.Ticket) (entity.Ticket, entity.DomainEvent, error) {
		if current.IsUsed || current.Status != entity.TicketStatusActive {
			return current, nil, fmt.Errorf("%w: ticket is not transferable", entity.ErrTransitionNotAllowed)
		}

		toUser, err := m.users.Get(ctx, toUserID)
		if err != nil {
			return current, nil, fmt.Errorf("could not get user %s: %w", toUserID, err)
		}
		if toEmail == "" {
			toEmail = toUser.Email
		}

		qrCode, err := m.codes.QRCode()
		if err != nil {
			return current, nil, err
		}

		next, err := current.TransferTo(m.now(), toUser.UserID, qrCode)
		if err != nil {
			return current, nil, err
		}

		return next, entity.TicketTransferred_v1{
			Header:     entity.NewEventHeader(),
			TicketID:   next.TicketID,
			Status:     next.Status,
			FromUserID: current.UserID,
			ToUserID:   next.UserID,
			ToEmail:    toEmail,
		}, nil
	})
}

// Delete removes the ticket regardless of its state.
func (m *Manager) Delete(ctx context.Context, ticketID string) (bool, error) {
	err := m.tickets.Delete(ctx, ticketID, entity.TicketDeleted_v1{
		Header:   entity.NewEventHeader(),
		TicketID: ticketID,
	})
	if errors.Is(err, entity.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not delete ticket %s: %w", ticketID, err)
	}

	log.FromContext(ctx).WithField("ticket_id", ticketID).Warn("Ticket deleted")

	return true, nil
}

func (m *Manager) Get(ctx context.Context, ticketID string) (entity.Ticket, error) {
	return m.tickets.Get(ctx, ticketID)
}

func (m *Manager) ListForUser(ctx context.Context, userID string) ([]entity.Ticket, error) {
	return m.tickets.FindByUser(ctx, userID)
}

type transitionFunc func(current entity.Ticket) (entity.Ticket, entity.DomainEvent, error)

// transition runs read-check-write for a single ticket. Missing tickets, forbidden
// transitions and lost races are all reported as (nil, nil). A transitionFunc that
// returns no event leaves the ticket as it is and reports it as current.
func (m *Manager) transition(ctx context.Context, name string, ticketID string, fn transitionFunc) (*entity.Ticket, error) {
	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"ticket_id":  ticketID,
		"transition": name,
	})

	current, err := m.tickets.Get(ctx, ticketID)
	if errors.Is(err, entity.ErrNotFound) {
		logger.Info("Ticket not found, skipping transition")
		metrics.TicketTransitions.WithLabelValues(name, metrics.OutcomeNoop).Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not get ticket %s: %w", ticketID, err)
	}

	next, event, err := fn(current)
	if errors.Is(err, entity.ErrTransitionNotAllowed) {
		logger.WithField("status", current.Status).Info("Transition not allowed, skipping")
		metrics.TicketTransitions.WithLabelValues(name, metrics.OutcomeNoop).Inc()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if event == nil {
		logger.WithField("status", current.Status).Info("Transition already applied")
		metrics.TicketTransitions.WithLabelValues(name, metrics.OutcomeNoop).Inc()
		return &current, nil
	}

	err = m.tickets.Update(ctx, current, next, event)
	if errors.Is(err, entity.ErrConflict) {
		logger.Info("Ticket was changed concurrently, skipping transition")
		metrics.TicketTransitions.WithLabelValues(name, metrics.OutcomeConflict).Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not update ticket %s: %w", ticketID, err)
	}

	next.Version = current.Version + 1

	metrics.TicketTransitions.WithLabelValues(name, metrics.OutcomeApplied).Inc()
	logger.WithFields(logrus.Fields{
		"from": current.Status,
		"to":   next.Status,
	}).Info("Ticket transitioned")

	return &next, nil
}
