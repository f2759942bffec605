// Package notify publishes engagement events (posts, reposts, likes, comments,
// follows) to a RabbitMQ exchange so downstream consumers (feed builders,
// notification senders) can react. Publishing is strictly best-effort: a nil
// publisher or a broker failure never fails the mutation that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the fanout exchange engagement events are published to.
const ExchangeName = "engagement"

// Event is one engagement event. Subject is only set for events aimed at a
// user rather than a post (currently just follows).
type Event struct {
	Type      string `json:"type"`
	Actor     string `json:"actor"`
	PostID    int    `json:"post_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher writes events to a RabbitMQ channel. All methods are safe on a
// nil receiver, so callers can wire one unconditionally.
type Publisher struct {
	ch   *amqp.Channel
	conn *amqp.Connection
}

// Dial connects to the broker, declares the fanout exchange and returns a
// ready Publisher.
func Dial(ctx context.Context, url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("err establishing rabbitmq connection: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("err opening rabbitmq channel: %w", err)
	}
	err = ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("err declaring exchange: %w", err)
	}
	return &Publisher{ch: ch, conn: conn}, nil
}

// Publish sends one event. Failures are logged at warn and swallowed.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil || p.ch == nil {
		return
	}
	event.Timestamp = time.Now().UnixMilli()
	body, err := json.Marshal(event)
	if err != nil {
		slog.Warn("event marshal failed", "type", event.Type, "err", err)
		return
	}
	err = p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		slog.Warn("event publish failed", "type", event.Type, "err", err)
	}
}

// Close tears down the channel and connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
