package event

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"ticketing/entity"
)

func (h Handler) SendRefundConfirmationHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"SendRefundConfirmationHandler",
		func(ctx context.Context, event *entity.TicketRefunded_v1) error {
			ticket, err := h.tickets.Get(ctx, event.TicketID)
			if err != nil {
				return skipMissing(ctx, err, "ticket")
			}

			ticketEvent, err := h.events.Get(ctx, ticket.EventID)
			if err != nil {
				return skipMissing(ctx, err, "event")
			}

			user, err := h.users.Get(ctx, event.UserID)
			if err != nil {
				return skipMissing(ctx, err, "user")
			}

			h.notify(ctx, "refund_confirmation", func() error {
				return h.mailer.SendRefundConfirmation(ctx, entity.RefundConfirmation{
					Email:         user.Email,
					Name:          user.Name,
					TicketNumber:  ticket.TicketNumber,
					EventTitle:    ticketEvent.Title,
					RefundAmount:  event.RefundAmount,
					Currency:      event.Currency,
					TransactionID: event.TransactionID,
				})
			})

			return nil
		},
	)
}

// RefundPaymentHandler returns the money at the processor for tickets that were paid there.
func (h Handler) RefundPaymentHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"RefundPaymentHandler",
		func(ctx context.Context, event *entity.TicketRefunded_v1) error {
			if event.PaymentIntentID == "" {
				return nil
			}

			log.FromContext(ctx).WithField("ticket_id", event.TicketID).Info("Refunding payment")

			err := h.refunder.RefundPayment(ctx, event.PaymentIntentID, event.RefundAmount, event.TransactionID)
			if err != nil {
				return fmt.Errorf("could not refund payment %s: %w", event.PaymentIntentID, err)
			}

			return nil
		},
	)
}
