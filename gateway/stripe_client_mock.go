package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"ticketing/entity"
)

// PaymentProcessorMock is an in-memory payment processor.
// Webhook payloads are {"id": ..., "type": ..., "payment_intent_id": ...} signed with Signature.
type PaymentProcessorMock struct {
	mock sync.Mutex

	Intents        map[string]entity.PaymentIntent
	CreateRequests []entity.CreatePaymentIntentRequest
	Refunds        map[string]entity.RefundPaymentRequest

	Signature string

	// Err, when set, is returned by every processor call.
	Err error
	// Hang makes every processor call wait for its context to be done.
	Hang bool
}

func (c *PaymentProcessorMock) CreatePaymentIntent(ctx context.Context, request entity.CreatePaymentIntentRequest) (entity.PaymentIntent, error) {
	if err := c.fail(ctx); err != nil {
		return entity.PaymentIntent{}, err
	}

	c.mock.Lock()
	defer c.mock.Unlock()

	if c.Intents == nil {
		c.Intents = make(map[string]entity.PaymentIntent)
	}

	intent := entity.PaymentIntent{
		ID:           "pi_" + uuid.NewString(),
		ClientSecret: "secret_" + uuid.NewString(),
		Amount:       request.Amount,
		Currency:     request.Currency,
		Status:       "requires_payment_method",
		ReceiptEmail: request.ReceiptEmail,
		Metadata:     request.Metadata,
	}

	c.Intents[intent.ID] = intent
	c.CreateRequests = append(c.CreateRequests, request)

	return intent, nil
}

func (c *PaymentProcessorMock) GetPaymentIntent(ctx context.Context, paymentIntentID string) (entity.PaymentIntent, error) {
	if err := c.fail(ctx); err != nil {
		return entity.PaymentIntent{}, err
	}

	c.mock.Lock()
	defer c.mock.Unlock()

	intent, ok := c.Intents[paymentIntentID]
	if !ok {
		return entity.PaymentIntent{}, fmt.Errorf("payment intent %s: %w", paymentIntentID, entity.ErrNotFound)
	}

	return intent, nil
}

func (c *PaymentProcessorMock) RefundPayment(ctx context.Context, request entity.RefundPaymentRequest) error {
	if err := c.fail(ctx); err != nil {
		return err
	}

	c.mock.Lock()
	defer c.mock.Unlock()

	if c.Refunds == nil {
		c.Refunds = make(map[string]entity.RefundPaymentRequest)
	}

	c.Refunds[request.IdempotencyKey] = request

	return nil
}

func (c *PaymentProcessorMock) VerifyWebhookSignature(payload []byte, signature string) error {
	if c.Signature == "" || signature != c.Signature {
		return entity.ErrInvalidWebhookSignature
	}

	return nil
}

func (c *PaymentProcessorMock) ParseWebhookEvent(payload []byte, signature string) (entity.PaymentWebhookEvent, error) {
	if err := c.VerifyWebhookSignature(payload, signature); err != nil {
		return entity.PaymentWebhookEvent{}, err
	}

	var body struct {
		ID              string `json:"id"`
		Type            string `json:"type"`
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return entity.PaymentWebhookEvent{}, err
	}

	event := entity.PaymentWebhookEvent{ID: body.ID, Type: body.Type}

	c.mock.Lock()
	defer c.mock.Unlock()

	if intent, ok := c.Intents[body.PaymentIntentID]; ok {
		event.Intent = &intent
	}

	return event, nil
}

// Put stores an intent as the processor would see it.
func (c *PaymentProcessorMock) Put(intent entity.PaymentIntent) {
	c.mock.Lock()
	defer c.mock.Unlock()

	if c.Intents == nil {
		c.Intents = make(map[string]entity.PaymentIntent)
	}

	c.Intents[intent.ID] = intent
}

// Succeed marks an intent as paid.
func (c *PaymentProcessorMock) Succeed(paymentIntentID string) {
	c.mock.Lock()
	defer c.mock.Unlock()

	intent := c.Intents[paymentIntentID]
	intent.Status = entity.PaymentIntentSucceeded
	c.Intents[paymentIntentID] = intent
}

func (c *PaymentProcessorMock) RefundRequests() []entity.RefundPaymentRequest {
	c.mock.Lock()
	defer c.mock.Unlock()

	refunds := make([]entity.RefundPaymentRequest, 0, len(c.Refunds))
	for _, refund := range c.Refunds {
		refunds = append(refunds, refund)
	}

	return refunds
}

func (c *PaymentProcessorMock) fail(ctx context.Context) error {
	if c.Hang {
		<-ctx.Done()
		return ctx.Err()
	}

	return c.Err
}
