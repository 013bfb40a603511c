package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ticketing/entity"
	"ticketing/metrics"
	"ticketing/pricing"
	"ticketing/ticketing"
)

// Processor is the external payment processor.
// GetPaymentIntent returns an error wrapping entity.ErrNotFound for unknown intents,
// and webhook calls wrap entity.ErrInvalidWebhookSignature when the signature does not verify.
type Processor interface {
	CreatePaymentIntent(ctx context.Context, request entity.CreatePaymentIntentRequest) (entity.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (entity.PaymentIntent, error)
	RefundPayment(ctx context.Context, request entity.RefundPaymentRequest) error
	VerifyWebhookSignature(payload []byte, signature string) error
	ParseWebhookEvent(payload []byte, signature string) (entity.PaymentWebhookEvent, error)
}

type TicketIssuer interface {
	CreateTicket(ctx context.Context, params ticketing.CreateTicketParams) (entity.Ticket, error)
}

type TicketsRepository interface {
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (entity.Ticket, error)
}

type EventsRepository interface {
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

type Config struct {
	Currency string
	Timeout  time.Duration
	Rates    pricing.Rates
}

const (
	outcomeIssued       = "issued"
	outcomeNotCompleted = "not_completed"
	outcomeFraud        = "fraud"
	outcomeRedeemed     = "redeemed"
	outcomeFailed       = "failed"
)

type Gateway struct {
	processor Processor
	issuer    TicketIssuer
	tickets   TicketsRepository
	events    EventsRepository
	currency  string
	timeout   time.Duration
	rates     pricing.Rates
	now       func() time.Time
}

func NewGateway(
	processor Processor,
	issuer TicketIssuer,
	tickets TicketsRepository,
	events EventsRepository,
	config Config,
) *Gateway {
	if processor == nil {
		panic("missing payment processor")
	}
	if issuer == nil {
		panic("missing ticket issuer")
	}
	if tickets == nil {
		panic("missing tickets repository")
	}
	if events == nil {
		panic("missing events repository")
	}
	if config.Currency == "" {
		panic("missing currency")
	}
	if config.Timeout <= 0 {
		panic("payment timeout must be positive")
	}

	return &Gateway{
		processor: processor,
		issuer:    issuer,
		tickets:   tickets,
		events:    events,
		currency:  strings.ToLower(config.Currency),
		timeout:   config.Timeout,
		rates:     config.Rates,
		now:       time.Now,
	}
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, eventID string, userID string, email string) (entity.PaymentIntent, error) {
	event, err := g.events.Get(ctx, eventID)
	if err != nil {
		return entity.PaymentIntent{}, fmt.Errorf("could not get event %s: %w", eventID, err)
	}

	// informational only, the ticket gets its own breakdown when issued
	breakdown, err := pricing.ComputeVatBreakdown(event.Price, g.rates.Rate(event.VatRegion))
	if err != nil {
		return entity.PaymentIntent{}, fmt.Errorf("could not compute vat for event %s: %w", eventID, err)
	}

	request := entity.CreatePaymentIntentRequest{
		Amount:       pricing.ToMinorUnits(event.Price),
		Currency:     g.currency,
		Description:  "Ticket: " + event.Title,
		ReceiptEmail: email,
		Metadata: map[string]string{
			entity.MetadataEventID:    event.EventID,
			entity.MetadataUserID:     userID,
			entity.MetadataEventTitle: event.Title,
			entity.MetadataBasePrice:  breakdown.BasePrice.StringFixed(2),
			entity.MetadataVatAmount:  breakdown.VatAmount.StringFixed(2),
			entity.MetadataVatRate:    breakdown.VatRate.String(),
			entity.MetadataTotalPrice: breakdown.TotalPrice.StringFixed(2),
		},
		IdempotencyKey: fmt.Sprintf("%s:%s:%d", userID, eventID, g.now().UnixNano()),
	}

	var intent entity.PaymentIntent
	err = g.callProcessor(ctx, "create payment intent", func(ctx context.Context) error {
		var err error
		intent, err = g.processor.CreatePaymentIntent(ctx, request)
		return err
	})
	if err != nil {
		return entity.PaymentIntent{}, err
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"payment_intent_id": intent.ID,
		"event_id":          eventID,
		"user_id":           userID,
		"amount":            intent.Amount,
	}).Info("Payment intent created")

	return intent, nil
}

// ConfirmPaymentAndIssueTicket checks the intent against the processor's record and
// issues exactly one ticket per succeeded intent.
func (g *Gateway) ConfirmPaymentAndIssueTicket(
	ctx context.Context,
	paymentIntentID string,
	eventID string,
	userID string,
	email string,
) (entity.Ticket, error) {
	ticket, err := g.confirm(ctx, paymentIntentID, eventID, userID, email)

	switch {
	case err == nil:
		metrics.PaymentConfirmations.WithLabelValues(outcomeIssued).Inc()
	case errors.Is(err, entity.ErrFraudSuspected):
		metrics.PaymentConfirmations.WithLabelValues(outcomeFraud).Inc()
	case errors.Is(err, entity.ErrPaymentNotCompleted):
		metrics.PaymentConfirmations.WithLabelValues(outcomeNotCompleted).Inc()
	case errors.Is(err, entity.ErrPaymentAlreadyRedeemed):
		metrics.PaymentConfirmations.WithLabelValues(outcomeRedeemed).Inc()
	default:
		metrics.PaymentConfirmations.WithLabelValues(outcomeFailed).Inc()
	}

	return ticket, err
}

func (g *Gateway) confirm(
	ctx context.Context,
	paymentIntentID string,
	eventID string,
	userID string,
	email string,
) (entity.Ticket, error) {
	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"payment_intent_id": paymentIntentID,
		"event_id":          eventID,
		"user_id":           userID,
	})

	var intent entity.PaymentIntent
	err := g.callProcessor(ctx, "get payment intent", func(ctx context.Context) error {
		var err error
		intent, err = g.processor.GetPaymentIntent(ctx, paymentIntentID)
		return err
	})
	if err != nil {
		return entity.Ticket{}, err
	}

	if intent.Status != entity.PaymentIntentSucceeded {
		return entity.Ticket{}, fmt.Errorf("%w: payment intent %s has status %s", entity.ErrPaymentNotCompleted, intent.ID, intent.Status)
	}

	if intentEventID := intent.Metadata[entity.MetadataEventID]; intentEventID != eventID {
		logger.WithField("intent_event_id", intentEventID).Error("Payment intent was created for a different event")
		return entity.Ticket{}, fmt.Errorf("%w: event mismatch", entity.ErrFraudSuspected)
	}
	if intentUserID := intent.Metadata[entity.MetadataUserID]; intentUserID != userID {
		logger.WithField("intent_user_id", intentUserID).Error("Payment intent was created for a different user")
		return entity.Ticket{}, fmt.Errorf("%w: user mismatch", entity.ErrFraudSuspected)
	}

	event, err := g.events.Get(ctx, eventID)
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("could not get event %s: %w", eventID, err)
	}

	// the intent is bound to the price quoted when it was created, a later repricing
	// of the event does not invalidate a payment made at the old price
	quotedPrice, err := decimal.NewFromString(intent.Metadata[entity.MetadataTotalPrice])
	if err != nil {
		logger.WithField("intent_total_price", intent.Metadata[entity.MetadataTotalPrice]).Error("Payment intent has no quoted price")
		return entity.Ticket{}, fmt.Errorf("%w: missing quoted price", entity.ErrFraudSuspected)
	}

	expectedAmount := pricing.ToMinorUnits(quotedPrice)
	if intent.Amount != expectedAmount || !strings.EqualFold(intent.Currency, g.currency) {
		logger.WithFields(logrus.Fields{
			"intent_amount":     intent.Amount,
			"intent_currency":   intent.Currency,
			"expected_amount":   expectedAmount,
			"expected_currency": g.currency,
		}).Error("Payment intent amount does not match the quoted price")
		return entity.Ticket{}, fmt.Errorf("%w: amount mismatch", entity.ErrFraudSuspected)
	}
	if !quotedPrice.Equal(event.Price) {
		logger.WithFields(logrus.Fields{
			"quoted_price": quotedPrice.StringFixed(2),
			"event_price":  event.Price.StringFixed(2),
		}).Info("Event was repriced after the intent was created, issuing at the paid price")
	}

	existing, err := g.tickets.FindByPaymentIntent(ctx, intent.ID)
	if err == nil {
		logger.WithField("ticket_id", existing.TicketID).Warn("Payment intent already redeemed")
		return entity.Ticket{}, fmt.Errorf("%w: ticket %s", entity.ErrPaymentAlreadyRedeemed, existing.TicketID)
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return entity.Ticket{}, fmt.Errorf("could not check payment intent redemption: %w", err)
	}

	if email == "" {
		email = intent.ReceiptEmail
	}

	ticket, err := g.issuer.CreateTicket(ctx, ticketing.CreateTicketParams{
		EventID:         eventID,
		UserID:          userID,
		Email:           email,
		TermsAccepted:   true,
		PaymentIntentID: intent.ID,
		PaidPrice:       &quotedPrice,
	})
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("could not issue ticket for payment intent %s: %w", intent.ID, err)
	}

	return ticket, nil
}

// ValidateWebhookSignature reports false for a missing or invalid signature.
// An error means the signature could not be checked at all.
func (g *Gateway) ValidateWebhookSignature(payload []byte, signature string) (bool, error) {
	err := g.processor.VerifyWebhookSignature(payload, signature)
	if errors.Is(err, entity.ErrInvalidWebhookSignature) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// HandleWebhook issues the ticket of a succeeded intent. Processors redeliver webhooks,
// so an intent that already has its ticket is acknowledged.
func (g *Gateway) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := g.processor.ParseWebhookEvent(payload, signature)
	if err != nil {
		return err
	}

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"webhook_event_id":   event.ID,
		"webhook_event_type": event.Type,
	})

	if event.Type != entity.WebhookPaymentIntentSucceeded || event.Intent == nil {
		logger.Debug("Ignoring webhook event")
		return nil
	}

	intent := event.Intent
	_, err = g.ConfirmPaymentAndIssueTicket(
		ctx,
		intent.ID,
		intent.Metadata[entity.MetadataEventID],
		intent.Metadata[entity.MetadataUserID],
		intent.ReceiptEmail,
	)
	if errors.Is(err, entity.ErrPaymentAlreadyRedeemed) {
		logger.Info("Payment intent already redeemed, acknowledging webhook")
		return nil
	}

	return err
}

// RefundPayment returns money for a processor-paid ticket. The transaction id doubles as
// idempotency key, so redelivered refund events do not refund twice.
func (g *Gateway) RefundPayment(ctx context.Context, paymentIntentID string, amount decimal.Decimal, transactionID string) error {
	return g.callProcessor(ctx, "refund payment", func(ctx context.Context) error {
		return g.processor.RefundPayment(ctx, entity.RefundPaymentRequest{
			PaymentIntentID: paymentIntentID,
			Amount:          pricing.ToMinorUnits(amount),
			IdempotencyKey:  transactionID,
		})
	})
}

func (g *Gateway) callProcessor(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, entity.ErrNotFound) {
		return err
	}

	log.FromContext(ctx).WithError(err).WithField("op", op).Error("Payment provider call failed")

	return &entity.PaymentProviderError{Op: op, Err: err}
}
