package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/avstrong/rentals/internal/logger"
)

var ErrDeliveriesClosed = errors.New("delivery channel closed by broker")

type reloader interface {
	Reload(ctx context.Context) (int64, error)
}

type Conf struct {
	L          *logger.Logger
	URL        string
	Exchange   string
	Queue      string
	RoutingKey string
	Prefetch   int
	// RetryDelay is waited before a failed reload is requeued, so a broken
	// source does not turn into a redelivery storm.
	RetryDelay time.Duration
}

// CatalogChanged is published by whatever writes listings, rules or bookings.
// The body is informational; any delivery triggers a full reload.
type CatalogChanged struct {
	Reason     string  `json:"reason"`
	ListingIDs []int64 `json:"listing_ids"`
}

type Consumer struct {
	l        *logger.Logger
	conf     Conf
	reloader reloader
	conn     *amqp.Connection
	ch       *amqp.Channel
}

func New(conf Conf, reloader reloader) *Consumer {
	//nolint:exhaustruct
	return &Consumer{
		l:        conf.L,
		conf:     conf,
		reloader: reloader,
	}
}

// Dial connects and declares a durable topic exchange with a durable queue
// bound to it by the configured routing key.
func (c *Consumer) Dial() error {
	conn, err := amqp.Dial(c.conf.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()

		return fmt.Errorf("open channel: %w", err)
	}

	if err = c.setup(ch); err != nil {
		ch.Close()
		conn.Close()

		return err
	}

	c.conn = conn
	c.ch = ch

	return nil
}

func (c *Consumer) setup(ch *amqp.Channel) error {
	if c.conf.Prefetch > 0 {
		if err := ch.Qos(c.conf.Prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
	}

	if err := ch.ExchangeDeclare(c.conf.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %q: %w", c.conf.Exchange, err)
	}

	if _, err := ch.QueueDeclare(c.conf.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %q: %w", c.conf.Queue, err)
	}

	if err := ch.QueueBind(c.conf.Queue, c.conf.RoutingKey, c.conf.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %q to %q: %w", c.conf.Queue, c.conf.Exchange, err)
	}

	return nil
}

// Run consumes until ctx is done or the broker closes the channel.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.conf.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %q: %w", c.conf.Queue, err)
	}

	c.l.LogInfo("Listening for catalog changes on queue %s", c.conf.Queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}

				return ErrDeliveriesClosed
			}

			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	traceID, ok := d.Headers["x-trace-id"].(string)
	if !ok || traceID == "" {
		traceID = uuid.New().String()
	}

	l := c.l.With("trace_id", traceID, "delivery_tag", d.DeliveryTag)

	var event CatalogChanged

	if len(d.Body) > 0 {
		if err := json.Unmarshal(d.Body, &event); err != nil {
			l.LogWarn("Dropping malformed catalog change message: %v", err.Error())

			if err = d.Reject(false); err != nil {
				l.LogErrorf("Could not reject message: %v", err.Error())
			}

			return
		}
	}

	version, err := c.reloader.Reload(ctx)
	if err != nil {
		l.LogErrorf("Catalog reload after %q failed, message requeued: %v", event.Reason, err.Error())

		select {
		case <-time.After(c.conf.RetryDelay):
		case <-ctx.Done():
		}

		if err = d.Nack(false, true); err != nil {
			l.LogErrorf("Could not nack message: %v", err.Error())
		}

		return
	}

	l.LogInfo("Catalog reloaded to version %d after %q (%d listings touched)", version, event.Reason, len(event.ListingIDs))

	if err = d.Ack(false); err != nil {
		l.LogErrorf("Could not ack message: %v", err.Error())
	}
}

func (c *Consumer) Close() error {
	var errs []error

	if c.ch != nil {
		errs = append(errs, c.ch.Close())
	}

	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}

	return errors.Join(errs...)
}
