// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package events publishes attendance domain events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	// DefaultQueue receives attendance.marked events.
	DefaultQueue = "qrattend.attendance"

	// TypeAttendanceMarked is the event name set on the message and in its body.
	TypeAttendanceMarked = "attendance.marked"
)

// ErrClosed is returned when publishing on a closed publisher.
var ErrClosed = errors.New("events: publisher closed")

// AttendanceMarked is emitted once per successful redemption.
type AttendanceMarked struct {
	Event     string    `json:"event"`
	RecordID  string    `json:"recordId"`
	SessionID string    `json:"sessionId"`
	StudentID string    `json:"studentId"`
	TeacherID string    `json:"teacherId"`
	Subject   string    `json:"subject"`
	MarkedAt  time.Time `json:"markedAt"`
}

// Publisher delivers domain events.
type Publisher interface {
	PublishAttendanceMarked(ctx context.Context, ev AttendanceMarked) error
	Close() error
}

// Noop discards every event. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishAttendanceMarked(context.Context, AttendanceMarked) error { return nil }
func (Noop) Close() error                                                     { return nil }

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes persistent JSON messages to a durable queue.
type AMQPPublisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     channel
	queue  string
	closed bool
	logger zerolog.Logger
}

// NewAMQPPublisher dials rawURL and declares queue.
func NewAMQPPublisher(rawURL, queue string, logger zerolog.Logger) (*AMQPPublisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	p := newPublisher(ch, queue, logger)
	p.conn = conn
	logger.Info().Str("url", redact(rawURL)).Str("queue", queue).Msg("connected to RabbitMQ")
	return p, nil
}

func newPublisher(ch channel, queue string, logger zerolog.Logger) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, queue: queue, logger: logger}
}

func (p *AMQPPublisher) PublishAttendanceMarked(ctx context.Context, ev AttendanceMarked) error {
	ev.Event = TypeAttendanceMarked
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	return p.ch.PublishWithContext(
		ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         TypeAttendanceMarked,
			MessageId:    ev.RecordID,
			Timestamp:    ev.MarkedAt,
			Body:         body,
		},
	)
}

// Ping reports whether the broker connection is still open.
func (p *AMQPPublisher) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.conn != nil && p.conn.IsClosed() {
		return errors.New("broker connection closed")
	}
	return nil
}

// Close closes the channel and connection. Safe to call twice.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}

// redact hides credentials in broker URLs before logging.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	return u.Redacted()
}
