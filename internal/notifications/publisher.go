// Package notifications publishes member-facing events to RabbitMQ. The
// downstream notification consumers (push, email) live outside this service;
// this side only emits.
package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/TaskRupee/task_rupee_app/internal/core/domain"
	portssvc "github.com/TaskRupee/task_rupee_app/internal/core/ports/services"
	"github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the durable topic exchange member events are published to.
// Routing keys are the notification categories (e.g. "withdrawal.approved").
const ExchangeName = "member_events"

// event is the JSON envelope published per notification.
type event struct {
	TargetID  string                      `json:"targetID"`
	Category  domain.NotificationCategory `json:"category"`
	Title     string                      `json:"title"`
	Message   string                      `json:"message"`
	Payload   map[string]any              `json:"payload,omitempty"`
	EmittedAt time.Time                   `json:"emittedAt"`
}

// AMQPPublisher implements the Notifier port over a RabbitMQ topic exchange.
// Publishing is fire-and-forget: failures are logged, never propagated, so a
// broker outage cannot roll back a ledger write or a state transition.
type AMQPPublisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *slog.Logger
}

var _ portssvc.Notifier = (*AMQPPublisher)(nil)

// NewAMQPPublisher connects to the broker and declares the topic exchange.
func NewAMQPPublisher(amqpURL string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := channel.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{
		conn:    conn,
		channel: channel,
		logger:  logger,
	}, nil
}

// Notify publishes one event with the category as the routing key.
func (p *AMQPPublisher) Notify(ctx context.Context, targetID string, category domain.NotificationCategory, title, message string, payload map[string]any) {
	body, err := json.Marshal(event{
		TargetID:  targetID,
		Category:  category,
		Title:     title,
		Message:   message,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("Failed to marshal notification event",
			slog.String("category", string(category)),
			slog.String("error", err.Error()))
		return
	}

	err = p.channel.PublishWithContext(ctx,
		ExchangeName,     // exchange
		string(category), // routing key
		false,            // mandatory
		false,            // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		p.logger.Error("Failed to publish notification event",
			slog.String("category", string(category)),
			slog.String("target_id", targetID),
			slog.String("error", err.Error()))
	}
}

// Close gracefully closes the channel and connection.
func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
