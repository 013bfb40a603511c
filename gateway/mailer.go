package gateway

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/domodwyer/mailyak/v3"
	"github.com/valyala/fasttemplate"

	"ticketing/entity"
)

const (
	ticketConfirmationBody = `Hi {{name}},

thank you for your purchase. Your ticket {{ticket_number}} for {{event_title}} is ready.

When:  {{event_date}}
Where: {{venue_name}}, {{venue_city}}
Paid:  {{total_price}} {{currency}}

Show this code at the entrance: {{qr_code}}
`

	transferConfirmationBody = `Hi {{name}},

ticket {{ticket_number}} for {{event_title}} has been transferred to you.

When:  {{event_date}}
Where: {{venue_name}}

Your new entrance code: {{qr_code}}
The code of the previous holder is no longer valid.
`

	refundConfirmationBody = `Hi {{name}},

your ticket {{ticket_number}} for {{event_title}} has been refunded.

Amount:         {{refund_amount}} {{currency}}
Transaction id: {{transaction_id}}
`
)

const eventDateLayout = "Monday 2 January 2006, 15:04"

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type SMTPMailer struct {
	config SMTPConfig
	auth   smtp.Auth

	ticketConfirmation   *fasttemplate.Template
	transferConfirmation *fasttemplate.Template
	refundConfirmation   *fasttemplate.Template
}

func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	if config.Host == "" {
		panic("missing smtp host")
	}
	if config.From == "" {
		panic("missing mail sender")
	}

	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	return &SMTPMailer{
		config:               config,
		auth:                 auth,
		ticketConfirmation:   fasttemplate.New(ticketConfirmationBody, "{{", "}}"),
		transferConfirmation: fasttemplate.New(transferConfirmationBody, "{{", "}}"),
		refundConfirmation:   fasttemplate.New(refundConfirmationBody, "{{", "}}"),
	}
}

func (m *SMTPMailer) SendTicketConfirmation(ctx context.Context, confirmation entity.TicketConfirmation) error {
	subject, body := m.ticketConfirmationMessage(confirmation)
	return m.send(ctx, confirmation.Email, subject, body)
}

func (m *SMTPMailer) SendTransferConfirmation(ctx context.Context, confirmation entity.TransferConfirmation) error {
	subject, body := m.transferConfirmationMessage(confirmation)
	return m.send(ctx, confirmation.Email, subject, body)
}

func (m *SMTPMailer) SendRefundConfirmation(ctx context.Context, confirmation entity.RefundConfirmation) error {
	subject, body := m.refundConfirmationMessage(confirmation)
	return m.send(ctx, confirmation.Email, subject, body)
}

func (m *SMTPMailer) ticketConfirmationMessage(confirmation entity.TicketConfirmation) (string, string) {
	body := m.ticketConfirmation.ExecuteString(map[string]any{
		"name":          confirmation.Name,
		"ticket_number": confirmation.TicketNumber,
		"event_title":   confirmation.EventTitle,
		"event_date":    confirmation.EventDate.Format(eventDateLayout),
		"venue_name":    confirmation.VenueName,
		"venue_city":    confirmation.VenueCity,
		"total_price":   confirmation.TotalPrice.StringFixed(2),
		"currency":      strings.ToUpper(confirmation.Currency),
		"qr_code":       confirmation.QRCode,
	})

	return "Your ticket for " + confirmation.EventTitle, body
}

func (m *SMTPMailer) transferConfirmationMessage(confirmation entity.TransferConfirmation) (string, string) {
	body := m.transferConfirmation.ExecuteString(map[string]any{
		"name":          confirmation.Name,
		"ticket_number": confirmation.TicketNumber,
		"event_title":   confirmation.EventTitle,
		"event_date":    confirmation.EventDate.Format(eventDateLayout),
		"venue_name":    confirmation.VenueName,
		"qr_code":       confirmation.QRCode,
	})

	return "A ticket for " + confirmation.EventTitle + " was transferred to you", body
}

func (m *SMTPMailer) refundConfirmationMessage(confirmation entity.RefundConfirmation) (string, string) {
	body := m.refundConfirmation.ExecuteString(map[string]any{
		"name":           confirmation.Name,
		"ticket_number":  confirmation.TicketNumber,
		"event_title":    confirmation.EventTitle,
		"refund_amount":  confirmation.RefundAmount.StringFixed(2),
		"currency":       strings.ToUpper(confirmation.Currency),
		"transaction_id": confirmation.TransactionID,
	})

	return "Refund for " + confirmation.EventTitle, body
}

func (m *SMTPMailer) send(ctx context.Context, to string, subject string, body string) error {
	if to == "" {
		return fmt.Errorf("%w: missing recipient for %q", entity.ErrValidation, subject)
	}

	mail := mailyak.New(net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port)), m.auth)
	mail.To(to)
	mail.From(m.config.From)
	mail.FromName(m.config.FromName)
	mail.Subject(subject)
	mail.Plain().Set(body)

	// mailyak does not take a context, a cancelled send is abandoned rather than aborted
	done := make(chan error, 1)
	go func() {
		done <- mail.Send()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("could not send %q to %s: %w", subject, to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("could not send %q to %s: %w", subject, to, ctx.Err())
	}
}
