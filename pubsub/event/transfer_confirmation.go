package event

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"ticketing/entity"
)

func (h Handler) SendTransferConfirmationHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"SendTransferConfirmationHandler",
		func(ctx context.Context, event *entity.TicketTransferred_v1) error {
			ticket, err := h.tickets.Get(ctx, event.TicketID)
			if err != nil {
				return skipMissing(ctx, err, "ticket")
			}
			if ticket.UserID != event.ToUserID {
				log.FromContext(ctx).WithField("ticket_id", event.TicketID).Info("Ticket changed owner again, skipping transfer confirmation")
				return nil
			}

			ticketEvent, err := h.events.Get(ctx, ticket.EventID)
			if err != nil {
				return skipMissing(ctx, err, "event")
			}

			user, err := h.users.Get(ctx, event.ToUserID)
			if err != nil {
				return skipMissing(ctx, err, "user")
			}

			email := event.ToEmail
			if email == "" {
				email = user.Email
			}

			h.notify(ctx, "transfer_confirmation", func() error {
				return h.mailer.SendTransferConfirmation(ctx, entity.TransferConfirmation{
					Email:        email,
					Name:         user.Name,
					TicketNumber: ticket.TicketNumber,
					EventTitle:   ticketEvent.Title,
					EventDate:    ticketEvent.StartsAt,
					VenueName:    ticketEvent.VenueName,
					QRCode:       ticket.QRCode,
				})
			})

			return nil
		},
	)
}
