package entity

const PaymentIntentSucceeded = "succeeded"

const (
	MetadataEventID    = "event_id"
	MetadataUserID     = "user_id"
	MetadataEventTitle = "event_title"
	MetadataBasePrice  = "base_price"
	MetadataVatAmount  = "vat_amount"
	MetadataVatRate    = "vat_rate"
	MetadataTotalPrice = "total_price"
)

type PaymentIntent struct {
	ID           string            `json:"payment_intent_id"`
	ClientSecret string            `json:"client_secret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	ReceiptEmail string            `json:"receipt_email,omitempty"`
	Metadata     map[string]string `json:"-"`
}

type CreatePaymentIntentRequest struct {
	Amount         int64
	Currency       string
	Description    string
	ReceiptEmail   string
	Metadata       map[string]string
	IdempotencyKey string
}

type RefundPaymentRequest struct {
	PaymentIntentID string
	Amount          int64
	IdempotencyKey  string
}

const WebhookPaymentIntentSucceeded = "payment_intent.succeeded"

// PaymentWebhookEvent is a verified notification pushed by the payment processor.
// Intent is set only for payment intent events.
type PaymentWebhookEvent struct {
	ID     string
	Type   string
	Intent *PaymentIntent
}
