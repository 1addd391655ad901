package events

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pawsocial/payment-service-go/internal/payment"
)

const (
	PaymentQueuedEventName    = "PaymentQueued"
	PaymentQueuedEventVersion = 1
)

// PaymentQueuedPayload is the v1 payload carried on the payments queue.
type PaymentQueuedPayload struct {
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// PaymentQueuedEnvelope is the enveloped event structure.
type PaymentQueuedEnvelope = EventEnvelope[PaymentQueuedPayload]

// BuildPaymentQueuedEnvelope wraps an intent for transport. The partition key
// groups messages per user so downstream consumers can shard on it.
func BuildPaymentQueuedEnvelope(in payment.Intent, now time.Time) PaymentQueuedEnvelope {
	return PaymentQueuedEnvelope{
		EventName:    PaymentQueuedEventName,
		EventVersion: PaymentQueuedEventVersion,
		EventID:      uuid.NewString(),
		Producer:     producerName,
		PartitionKey: strconv.FormatInt(in.UserID, 10),
		OccurredAt:   now,
		Payload: PaymentQueuedPayload{
			UserID:      in.UserID,
			Amount:      in.Amount,
			Currency:    in.Currency,
			Description: in.Description,
			Timestamp:   now,
		},
	}
}
