package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// EventsQueue is the durable queue all domain events are published to.
const EventsQueue = "task_events"

// Domain event types.
const (
	EventUserRegistered = "user.registered"
	EventTaskCreated    = "task.created"
	EventTaskUpdated    = "task.updated"
	EventTaskDeleted    = "task.deleted"
)

// ErrChannelUnavailable is returned when the client has no open channel.
var ErrChannelUnavailable = errors.New("RabbitMQ channel is not available")

// Event is a domain event. It carries identifiers only, never task contents or credentials.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	TaskID     string    `json:"task_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType, userID, taskID string) Event {
	return Event{
		Type:       eventType,
		UserID:     userID,
		TaskID:     taskID,
		OccurredAt: time.Now().UTC(),
	}
}

// DecodeEvent parses a delivery body produced by PublishEvent.
func DecodeEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if event.Type == "" {
		return Event{}, errors.New("failed to decode event: missing type")
	}
	return event, nil
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares the events queue.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareEventsQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareEventsQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		EventsQueue, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare %s: %w", EventsQueue, err)
	}
	return q, nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishEvent publishes event to the events queue as persistent JSON.
func (c *Client) PublishEvent(event Event) error {
	if c.channel == nil {
		return ErrChannelUnavailable
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = c.channel.Publish(
		"",          // default exchange
		EventsQueue, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         event.Type,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// ConsumeEvents starts a goroutine feeding decoded events to handler.
// Undecodable messages are dropped; handler errors requeue the message.
func (c *Client) ConsumeEvents(handler func(Event) error, log logrus.FieldLogger) error {
	if c.channel == nil {
		return ErrChannelUnavailable
	}

	queue, err := declareEventsQueue(c.channel)
	if err != nil {
		return err
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			if err := HandleDelivery(msg, handler); err != nil {
				log.WithError(err).WithField("delivery_tag", msg.DeliveryTag).Warn("event not processed")
			}
		}
	}()
	return nil
}

// Acknowledger is the part of amqp.Delivery HandleDelivery needs.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// HandleDelivery decodes one message, runs handler and settles the message.
func HandleDelivery(msg amqp.Delivery, handler func(Event) error) error {
	return settle(&msg, msg.Body, handler)
}

func settle(ack Acknowledger, body []byte, handler func(Event) error) error {
	event, err := DecodeEvent(body)
	if err != nil {
		// Poison message: redelivery would never succeed.
		if nackErr := ack.Nack(false, false); nackErr != nil {
			return errors.Join(err, nackErr)
		}
		return err
	}
	if err := handler(event); err != nil {
		if nackErr := ack.Nack(false, true); nackErr != nil {
			return errors.Join(err, nackErr)
		}
		return err
	}
	return ack.Ack(false)
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishEvent(Event) error { return nil }
