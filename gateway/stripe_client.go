package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"ticketing/entity"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// APIURL overrides the Stripe API location. Empty means api.stripe.com.
	APIURL string
}

type StripeClient struct {
	api           *client.API
	webhookSecret string
}

func NewStripeClient(config StripeConfig, httpClient *http.Client) *StripeClient {
	backendConfig := &stripe.BackendConfig{
		HTTPClient: httpClient,
		// retries are left to the caller, confirmations must not be replayed blindly
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     log.FromContext(context.Background()),
	}
	if config.APIURL != "" {
		backendConfig.URL = stripe.String(config.APIURL)
	}

	api := client.New(config.SecretKey, &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
	})

	return &StripeClient{
		api:           api,
		webhookSecret: config.WebhookSecret,
	}
}

func (c *StripeClient) CreatePaymentIntent(ctx context.Context, request entity.CreatePaymentIntentRequest) (entity.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(request.Amount),
		Currency:    stripe.String(request.Currency),
		Description: stripe.String(request.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if request.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(request.ReceiptEmail)
	}
	for key, value := range request.Metadata {
		params.AddMetadata(key, value)
	}
	params.SetIdempotencyKey(request.IdempotencyKey)
	params.Context = ctx

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return entity.PaymentIntent{}, fmt.Errorf("could not create payment intent: %w", err)
	}

	return paymentIntentFromStripe(intent), nil
}

func (c *StripeClient) GetPaymentIntent(ctx context.Context, paymentIntentID string) (entity.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := c.api.PaymentIntents.Get(paymentIntentID, params)
	if isStripeNotFound(err) {
		return entity.PaymentIntent{}, fmt.Errorf("payment intent %s: %w", paymentIntentID, entity.ErrNotFound)
	}
	if err != nil {
		return entity.PaymentIntent{}, fmt.Errorf("could not get payment intent %s: %w", paymentIntentID, err)
	}

	return paymentIntentFromStripe(intent), nil
}

func (c *StripeClient) RefundPayment(ctx context.Context, request entity.RefundPaymentRequest) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(request.PaymentIntentID),
		Amount:        stripe.Int64(request.Amount),
	}
	params.SetIdempotencyKey(request.IdempotencyKey)
	params.Context = ctx

	_, err := c.api.Refunds.New(params)
	if err != nil {
		return fmt.Errorf("could not refund payment intent %s: %w", request.PaymentIntentID, err)
	}

	return nil
}

func (c *StripeClient) VerifyWebhookSignature(payload []byte, signature string) error {
	if c.webhookSecret == "" {
		return errors.New("stripe webhook secret is not configured")
	}

	if err := webhook.ValidatePayload(payload, signature, c.webhookSecret); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidWebhookSignature, err)
	}

	return nil
}

func (c *StripeClient) ParseWebhookEvent(payload []byte, signature string) (entity.PaymentWebhookEvent, error) {
	if err := c.VerifyWebhookSignature(payload, signature); err != nil {
		return entity.PaymentWebhookEvent{}, err
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return entity.PaymentWebhookEvent{}, fmt.Errorf("could not decode stripe event: %w", err)
	}

	result := entity.PaymentWebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if strings.HasPrefix(result.Type, "payment_intent.") && event.Data != nil {
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return entity.PaymentWebhookEvent{}, fmt.Errorf("could not decode payment intent of event %s: %w", event.ID, err)
		}

		paymentIntent := paymentIntentFromStripe(&intent)
		result.Intent = &paymentIntent
	}

	return result, nil
}

func paymentIntentFromStripe(intent *stripe.PaymentIntent) entity.PaymentIntent {
	return entity.PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
		Status:       string(intent.Status),
		ReceiptEmail: intent.ReceiptEmail,
		Metadata:     intent.Metadata,
	}
}

func isStripeNotFound(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound
}
