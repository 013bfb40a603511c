package event

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"ticketing/entity"
)

func (h Handler) SendTicketConfirmationHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"SendTicketConfirmationHandler",
		func(ctx context.Context, event *entity.TicketIssued_v1) error {
			logger := log.FromContext(ctx).WithField("ticket_id", event.TicketID)

			ticket, err := h.tickets.Get(ctx, event.TicketID)
			if err != nil {
				return skipMissing(ctx, err, "ticket")
			}
			if ticket.UserID != event.UserID {
				// the ticket moved on, its current qr code belongs to somebody else
				logger.Info("Ticket changed owner before confirmation was sent, skipping")
				return nil
			}

			ticketEvent, err := h.events.Get(ctx, ticket.EventID)
			if err != nil {
				return skipMissing(ctx, err, "event")
			}

			user, err := h.users.Get(ctx, ticket.UserID)
			if err != nil {
				return skipMissing(ctx, err, "user")
			}

			email := event.Email
			if email == "" {
				email = user.Email
			}

			sent := h.notify(ctx, "ticket_confirmation", func() error {
				return h.mailer.SendTicketConfirmation(ctx, entity.TicketConfirmation{
					Email:        email,
					Name:         user.Name,
					TicketNumber: ticket.TicketNumber,
					EventTitle:   ticketEvent.Title,
					EventDate:    ticketEvent.StartsAt,
					VenueName:    ticketEvent.VenueName,
					VenueCity:    ticketEvent.VenueCity,
					TotalPrice:   ticket.TotalPrice,
					Currency:     ticket.Currency,
					QRCode:       ticket.QRCode,
				})
			})
			if !sent {
				return nil
			}

			err = h.tickets.RecordConfirmationSent(ctx, ticket.TicketID, email, time.Now().UTC())
			if err != nil {
				logger.WithError(err).Warn("Could not record sent confirmation")
			}

			return nil
		},
	)
}
