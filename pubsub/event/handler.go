package event

import (
	"context"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/shopspring/decimal"

	"ticketing/entity"
	"ticketing/metrics"
)

type Mailer interface {
	SendTicketConfirmation(ctx context.Context, confirmation entity.TicketConfirmation) error
	SendTransferConfirmation(ctx context.Context, confirmation entity.TransferConfirmation) error
	SendRefundConfirmation(ctx context.Context, confirmation entity.RefundConfirmation) error
}

type TicketsRepository interface {
	Get(ctx context.Context, ticketID string) (entity.Ticket, error)
	RecordConfirmationSent(ctx context.Context, ticketID string, email string, sentAt time.Time) error
}

type EventsRepository interface {
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

type UsersRepository interface {
	Get(ctx context.Context, userID string) (entity.User, error)
}

type PaymentRefunder interface {
	RefundPayment(ctx context.Context, paymentIntentID string, amount decimal.Decimal, transactionID string) error
}

type Handler struct {
	mailer   Mailer
	tickets  TicketsRepository
	events   EventsRepository
	users    UsersRepository
	refunder PaymentRefunder
}

func NewHandler(
	mailer Mailer,
	tickets TicketsRepository,
	events EventsRepository,
	users UsersRepository,
	refunder PaymentRefunder,
) Handler {
	if mailer == nil {
		panic("missing mailer")
	}
	if tickets == nil {
		panic("missing tickets repository")
	}
	if events == nil {
		panic("missing events repository")
	}
	if users == nil {
		panic("missing users repository")
	}
	if refunder == nil {
		panic("missing payment refunder")
	}

	return Handler{
		mailer:   mailer,
		tickets:  tickets,
		events:   events,
		users:    users,
		refunder: refunder,
	}
}

func (h Handler) Handlers() []cqrs.EventHandler {
	return []cqrs.EventHandler{
		h.SendTicketConfirmationHandler(),
		h.SendTransferConfirmationHandler(),
		h.SendRefundConfirmationHandler(),
		h.RefundPaymentHandler(),
	}
}

// notify is the error boundary of every email: a failed send is logged and dropped,
// it never fails the message and never reaches the lifecycle operation that caused it.
func (h Handler) notify(ctx context.Context, kind string, send func() error) bool {
	err := send()
	if err == nil {
		return true
	}

	metrics.NotificationsFailed.WithLabelValues(kind).Inc()
	log.FromContext(ctx).WithError(err).WithField("notification", kind).Warn("Could not send notification, dropping it")

	return false
}

// skipMissing turns a missing row into a skipped message. Anything else is returned and retried.
func skipMissing(ctx context.Context, err error, what string) error {
	if errors.Is(err, entity.ErrNotFound) {
		log.FromContext(ctx).WithError(err).Warnf("%s no longer exists, skipping notification", what)
		return nil
	}

	return err
}
