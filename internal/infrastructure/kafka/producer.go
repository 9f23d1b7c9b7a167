package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/notification"
)

// Producer は座席変更を Kafka トピックに配信する
// イベントIDをキーにして、同じイベントの変更が同じパーティションに順序通り並ぶようにする
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer は同期プロデューサーを作成する
func NewProducer(brokers []string, topic string) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Timeout = 10 * time.Second
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("Kafkaプロデューサーの作成に失敗しました: %w", err)
	}
	return NewProducerWith(producer, topic), nil
}

// NewProducerWith は既存の SyncProducer を使う
func NewProducerWith(producer sarama.SyncProducer, topic string) *Producer {
	return &Producer{producer: producer, topic: topic}
}

// Publish は座席変更を1件送信する
func (p *Producer) Publish(_ context.Context, topic string, change notification.SeatChange) error {
	value, err := change.Encode()
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(change.EventID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(change.Type)},
			{Key: []byte("topic"), Value: []byte(topic)},
			{Key: []byte("reservation_id"), Value: []byte(change.ReservationID)},
		},
		Timestamp: change.OccurredAt,
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("Kafkaへの配信に失敗: %w", err)
	}
	return nil
}

// Close はプロデューサーを閉じる
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("Kafkaプロデューサーの終了に失敗: %w", err)
	}
	return nil
}

var _ notification.Publisher = (*Producer)(nil)
