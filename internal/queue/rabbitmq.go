// Package queue carries analysis jobs and results over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"atsfit/internal/config"
	"atsfit/internal/errors"
)

// Handler processes one message body. Returning a validation AppError drops
// the message; any other error requeues it.
type Handler func(ctx context.Context, body []byte) error

// RabbitMQ holds one connection with a dedicated publishing channel
type RabbitMQ struct {
	conn   *amqp.Connection
	cfg    config.QueueConfig
	logger *errors.Logger

	publishMu sync.Mutex
	publishCh *amqp.Channel
}

// NewRabbitMQ dials the broker
func NewRabbitMQ(cfg config.QueueConfig, logger *errors.Logger) (*RabbitMQ, error) {
	if cfg.URL == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "queue url is required", nil)
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to connect to RabbitMQ", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to open RabbitMQ channel", err)
	}

	logger.Info("Connected to RabbitMQ", "jobs_queue", cfg.JobsQueue, "results_exchange", cfg.ResultsExchange)
	return &RabbitMQ{conn: conn, cfg: cfg, logger: logger, publishCh: ch}, nil
}

// EnsureTopology declares the durable jobs queue and the results exchange,
// plus a durable results queue bound under the results routing key
func (r *RabbitMQ) EnsureTopology() error {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	ch := r.publishCh
	if _, err := ch.QueueDeclare(r.cfg.JobsQueue, true, false, false, false, nil); err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to declare jobs queue", err).
			WithContext("queue", r.cfg.JobsQueue)
	}
	if err := ch.ExchangeDeclare(r.cfg.ResultsExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to declare results exchange", err).
			WithContext("exchange", r.cfg.ResultsExchange)
	}
	resultsQueue := r.cfg.ResultsExchange + "." + r.cfg.ResultsRoutingKey
	if _, err := ch.QueueDeclare(resultsQueue, true, false, false, false, nil); err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to declare results queue", err).
			WithContext("queue", resultsQueue)
	}
	if err := ch.QueueBind(resultsQueue, r.cfg.ResultsRoutingKey, r.cfg.ResultsExchange, false, nil); err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to bind results queue", err).
			WithContext("queue", resultsQueue)
	}

	r.logger.Debug("RabbitMQ topology ready",
		"jobs_queue", r.cfg.JobsQueue,
		"results_exchange", r.cfg.ResultsExchange,
		"results_queue", resultsQueue)
	return nil
}

// PublishJSON sends v as a persistent JSON message
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchange, routingKey string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeEncodeFailed, "failed to encode message", err)
	}

	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	err = r.publishCh.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to publish message", err).
			WithContext("exchange", exchange).
			WithContext("routing_key", routingKey)
	}
	return nil
}

// PublishJob enqueues a job on the jobs queue through the default exchange
func (r *RabbitMQ) PublishJob(ctx context.Context, job any) error {
	return r.PublishJSON(ctx, "", r.cfg.JobsQueue, job)
}

// PublishResult sends a result to the results exchange
func (r *RabbitMQ) PublishResult(ctx context.Context, result any) error {
	return r.PublishJSON(ctx, r.cfg.ResultsExchange, r.cfg.ResultsRoutingKey, result)
}

// Consume delivers jobs to handler with manual acknowledgement until ctx is
// cancelled or the broker closes the channel
func (r *RabbitMQ) Consume(ctx context.Context, handler Handler) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to open consumer channel", err)
	}
	defer ch.Close()

	if err := ch.Qos(max(r.cfg.Prefetch, 1), 0, false); err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to set QoS", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, r.cfg.JobsQueue, "", false, false, false, false, nil)
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "failed to register consumer", err).
			WithContext("queue", r.cfg.JobsQueue)
	}

	r.logger.Info("Consumer started", "queue", r.cfg.JobsQueue, "prefetch", r.cfg.Prefetch)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Consumer stopping", "queue", r.cfg.JobsQueue)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.NewNetworkError(errors.ErrCodeQueueFailed, "delivery channel closed", nil)
			}
			settle(&d, handler(ctx, d.Body), r.logger)
		}
	}
}

// Close closes the publishing channel and the connection
func (r *RabbitMQ) Close() error {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()
	if err := r.publishCh.Close(); err != nil && !r.conn.IsClosed() {
		r.logger.LogError(err, "Failed to close RabbitMQ channel")
	}
	return r.conn.Close()
}

// acknowledger is the settlement half of amqp.Delivery
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Requeue reports whether a message that failed with err is worth retrying.
// Validation failures will fail the same way again.
func Requeue(err error) bool {
	appErr, ok := errors.AsAppError(err)
	return !ok || appErr.Type != errors.ErrorTypeValidation
}

func settle(d acknowledger, err error, logger *errors.Logger) {
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			logger.LogError(ackErr, "Failed to ack message")
		}
		return
	}

	requeue := Requeue(err)
	logger.LogError(err, "Message handling failed", "requeue", requeue)
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		logger.LogError(nackErr, "Failed to nack message")
	}
}
