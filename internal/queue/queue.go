package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"joke-plugin/internal/config"
	"joke-plugin/internal/models"
	"joke-plugin/pkg/logger"

	"github.com/nats-io/nats.go"
)

const (
	UsageSubject    = "jokes.used"
	TelegramSubject = "telegram.send"
	ConsumerGroup   = "joke-plugin"

	fetchBatch   = 10
	fetchMaxWait = 500 * time.Millisecond
	maxDeliver   = 5
)

// ErrUndeliverable marks a handler failure that a redelivery cannot fix.
// Such messages are acked and dropped instead of nak'ed.
var ErrUndeliverable = errors.New("message cannot be delivered")

type NATS struct {
	conn      *nats.Conn
	jetstream nats.JetStreamContext
	cfg       config.NATSConfig
}

func New(cfg config.NATSConfig) (*NATS, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name(ConsumerGroup))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to get JetStream: %w", err)
	}

	n := &NATS{
		conn:      conn,
		jetstream: js,
		cfg:       cfg,
	}

	if err := n.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}

	return n, nil
}

func (n *NATS) ensureStream() error {
	_, err := n.jetstream.StreamInfo(n.cfg.StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", n.cfg.StreamName, err)
	}

	_, err = n.jetstream.AddStream(&nats.StreamConfig{
		Name:     n.cfg.StreamName,
		Subjects: []string{UsageSubject, TelegramSubject},
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", n.cfg.StreamName, err)
	}
	logger.Info("Created JetStream stream", logger.String("stream", n.cfg.StreamName))
	return nil
}

func (n *NATS) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

type TelegramMessage struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (n *NATS) PublishUsage(ctx context.Context, usage *models.JokeUsage) error {
	if err := n.publish(ctx, UsageSubject, usage); err != nil {
		return fmt.Errorf("failed to publish joke usage: %w", err)
	}

	logger.Debug("Joke usage published to queue",
		logger.Design(usage.DesignID),
		logger.Mode(string(usage.Mode)),
	)
	return nil
}

func (n *NATS) PublishTelegramMessage(ctx context.Context, msg *TelegramMessage) error {
	if err := n.publish(ctx, TelegramSubject, msg); err != nil {
		return fmt.Errorf("failed to publish telegram message: %w", err)
	}

	logger.Debug("Telegram message published to queue",
		logger.Int64("chat_id", msg.ChatID),
	)
	return nil
}

func (n *NATS) publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = n.jetstream.Publish(subject, data, nats.Context(ctx))
	return err
}

func (n *NATS) ConsumeUsage(ctx context.Context, handler func(*models.JokeUsage) error) error {
	return consume(ctx, n, UsageSubject, "usage", handler)
}

func (n *NATS) ConsumeTelegramMessages(ctx context.Context, handler func(*TelegramMessage) error) error {
	return consume(ctx, n, TelegramSubject, "telegram", handler)
}

// consume pulls messages from subject until ctx is done. Messages that fail
// to decode or whose handler fails are nak'ed for redelivery, at most
// maxDeliver times.
func consume[T any](ctx context.Context, n *NATS, subject, durable string, handler func(*T) error) error {
	sub, err := n.jetstream.PullSubscribe(
		subject,
		ConsumerGroup+"-"+durable,
		nats.BindStream(n.cfg.StreamName),
		nats.MaxDeliver(maxDeliver),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgs, err := sub.Fetch(fetchBatch, nats.MaxWait(fetchMaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			return fmt.Errorf("failed to fetch messages: %w", err)
		}

		for _, msg := range msgs {
			process(msg.Data, msg, subject, handler)
		}
	}
}

type acker interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
}

func process[T any](data []byte, ack acker, subject string, handler func(*T) error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		logger.Error("Failed to unmarshal message",
			logger.Err(err),
			logger.String("subject", subject),
		)
		ack.Nak()
		return
	}

	if err := handler(&v); errors.Is(err, ErrUndeliverable) {
		logger.Warn("Dropping undeliverable message",
			logger.Err(err),
			logger.String("subject", subject),
		)
		ack.Ack()
		return
	} else if err != nil {
		logger.Error("Failed to process message",
			logger.Err(err),
			logger.String("subject", subject),
		)
		ack.Nak()
		return
	}

	ack.Ack()
}
