package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pawsocial/payment-service-go/internal/payment"
)

// ErrQueueUnavailable wraps transport failures from the broker.
var ErrQueueUnavailable = errors.New("payment queue unavailable")

// maxBatchChunk is the transport-imposed cap on items per delivery chunk.
const maxBatchChunk = 10

// publishChannel matches the methods from *amqp.Channel that the dispatcher uses.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Close() error
}

// Dispatcher forwards payment intents to the external queue. It does not wait
// for downstream processing and implements no retry or backoff; callers
// observe raw transport failures.
type Dispatcher struct {
	ch  publishChannel
	now func() time.Time
}

func NewDispatcher(conn *amqp.Connection) (*Dispatcher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	// Declare the queue up front so publish never fails on missing infra.
	_, err = ch.QueueDeclare(PaymentQueuedQueue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare %s: %w", PaymentQueuedQueue, err)
	}

	return &Dispatcher{ch: ch, now: time.Now}, nil
}

func (d *Dispatcher) Close() error {
	return d.ch.Close()
}

// Enqueue serializes the intent and hands it to the broker, returning the
// assigned message id.
func (d *Dispatcher) Enqueue(ctx context.Context, in payment.Intent) (string, error) {
	ev := BuildPaymentQueuedEnvelope(in, d.now().UTC())

	body, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", PaymentQueuedEventName, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err = d.ch.PublishWithContext(
		pubCtx,
		"",                 // default exchange
		PaymentQueuedQueue, // queue name as routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.EventID,
			Body:         body,
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: publish: %v", ErrQueueUnavailable, err)
	}
	return ev.EventID, nil
}

// BatchItem records one accepted intent of a batch.
type BatchItem struct {
	Index     int    `json:"index"`
	MessageID string `json:"message_id"`
}

// BatchFailure records one rejected intent of a batch.
type BatchFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BatchResult reports per-item outcomes; a batch is never atomic.
type BatchResult struct {
	Accepted []BatchItem    `json:"accepted"`
	Rejected []BatchFailure `json:"rejected"`
}

// EnqueueBatch forwards intents in chunks of at most maxBatchChunk items.
// Each item succeeds or fails on its own; a failed item does not stop the
// rest of its chunk or later chunks.
func (d *Dispatcher) EnqueueBatch(ctx context.Context, intents []payment.Intent) BatchResult {
	res := BatchResult{}

	offset := 0
	for _, chunk := range chunkIntents(intents) {
		for i, in := range chunk {
			idx := offset + i
			msgID, err := d.Enqueue(ctx, in)
			if err != nil {
				res.Rejected = append(res.Rejected, BatchFailure{Index: idx, Reason: err.Error()})
				continue
			}
			res.Accepted = append(res.Accepted, BatchItem{Index: idx, MessageID: msgID})
		}
		offset += len(chunk)
	}

	return res
}

// chunkIntents splits intents into delivery chunks of at most maxBatchChunk.
func chunkIntents(intents []payment.Intent) [][]payment.Intent {
	var chunks [][]payment.Intent
	for start := 0; start < len(intents); start += maxBatchChunk {
		end := start + maxBatchChunk
		if end > len(intents) {
			end = len(intents)
		}
		chunks = append(chunks, intents[start:end])
	}
	return chunks
}

// QueueStats reports what the broker exposes on a passive declare: messages
// ready for delivery and attached consumers.
type QueueStats struct {
	Queue           string `json:"queue"`
	VisibleMessages int    `json:"visible_messages"`
	Consumers       int    `json:"consumers"`
}

func (d *Dispatcher) Stats(ctx context.Context) (QueueStats, error) {
	q, err := d.ch.QueueDeclarePassive(PaymentQueuedQueue, true, false, false, false, nil)
	if err != nil {
		return QueueStats{}, fmt.Errorf("%w: inspect queue: %v", ErrQueueUnavailable, err)
	}
	return QueueStats{
		Queue:           q.Name,
		VisibleMessages: q.Messages,
		Consumers:       q.Consumers,
	}, nil
}
