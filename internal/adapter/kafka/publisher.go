package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github-profile-miner/internal/common"
	"github-profile-miner/internal/config"
	"github-profile-miner/internal/domain"

	"github.com/charmbracelet/log"
	"github.com/segmentio/kafka-go"
)

// messageWriter *kafka.Writer 的最小子集
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher 把领域事件写入 Kafka，以 username 为 key 哈希分区，同一用户的事件保持顺序
type Publisher struct {
	writer messageWriter
	topic  string
	logger *log.Logger
}

// NewPublisher 创建 Kafka 事件发布器
func NewPublisher(cfg config.KafkaConfig, logger *log.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("no kafka topic configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return newPublisher(writer, cfg.Topic, logger), nil
}

func newPublisher(w messageWriter, topic string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = common.NopLogger()
	}
	return &Publisher{
		writer: w,
		topic:  topic,
		logger: logger.With("component", "kafka"),
	}
}

// Publish 发送一条事件
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Username),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event to kafka topic %s: %w", p.topic, err)
	}

	p.logger.Debug("event published", "type", event.Type, "username", event.Username, "id", event.ID)
	return nil
}

// Close 刷新缓冲并关闭连接
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Discard 未配置 Kafka 时使用，丢弃所有事件
type Discard struct{}

func (Discard) Publish(context.Context, domain.Event) error { return nil }

func (Discard) Close() error { return nil }
