package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"quiz-rush-service/internal/domain"
)

// DefaultQueue receives one message per finished round.
const DefaultQueue = "round.finished"

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RoundFinished is the JSON body of a round.finished message.
type RoundFinished struct {
	RoundID     string           `json:"roundId"`
	GameType    domain.GameType  `json:"gameType"`
	PlayerID    string           `json:"playerId"`
	DisplayName string           `json:"displayName"`
	Score       int              `json:"score"`
	Reason      domain.EndReason `json:"reason"`
	EndedAt     time.Time        `json:"endedAt"`
}

// Publisher sends round.finished events to a durable queue on the default exchange.
type Publisher struct {
	conn  *amqp.Connection
	queue string

	mu sync.Mutex
	ch Channel
}

// Dial connects, opens a channel and declares the queue.
func Dial(url, queue string) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	p := NewPublisher(ch, queue)
	p.conn = conn
	return p, nil
}

// NewPublisher wraps an already prepared channel.
func NewPublisher(ch Channel, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Publisher{ch: ch, queue: queue}
}

func (p *Publisher) PublishRoundFinished(ctx context.Context, result domain.RoundResult) error {
	msg, err := Encode(result)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Encode builds the persistent JSON message for a finished round.
func Encode(result domain.RoundResult) (amqp.Publishing, error) {
	body, err := json.Marshal(RoundFinished{
		RoundID:     result.RoundID,
		GameType:    result.GameType,
		PlayerID:    result.Player.ID,
		DisplayName: domain.NormalizeName(result.Player.DisplayName),
		Score:       result.Score,
		Reason:      result.Reason,
		EndedAt:     result.EndedAt.UTC(),
	})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode round: %w", err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    result.RoundID,
		Timestamp:    result.EndedAt.UTC(),
		Type:         DefaultQueue,
		Body:         body,
	}, nil
}
