package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/logger"
)

// topicPattern は全イベントの座席変更チャネルに一致する
const topicPattern = "seats.*"

// Publisher は座席変更を Redis Pub/Sub に配信する
// チャネル名はトピック（seats.<eventID>）をそのまま使う
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish は座席変更をJSONで配信する
func (p *Publisher) Publish(ctx context.Context, topic string, change notification.SeatChange) error {
	payload, err := change.Encode()
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("Redisへの配信に失敗: %w", err)
	}
	return nil
}

// Relay は Redis Pub/Sub で受け取った座席変更をローカルの配信先へ中継する
// 複数インスタンス構成で、どのインスタンスで確定した予約も全インスタンスの観測者に届ける
type Relay struct {
	client *redis.Client
	target notification.Publisher
}

func NewRelay(client *redis.Client, target notification.Publisher) *Relay {
	return &Relay{client: client, target: target}
}

// Run は ctx がキャンセルされるまで購読を続ける
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, topicPattern)
	defer sub.Close()

	// 購読の確立を待つ
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("Redis購読に失敗: %w", err)
	}
	logger.Info("座席変更の中継を開始しました", zap.String("pattern", topicPattern))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			logger.Info("座席変更の中継を停止しました")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(ctx, msg.Channel, []byte(msg.Payload))
		}
	}
}

// forward は1件のメッセージを復号して中継する
func (r *Relay) forward(ctx context.Context, channel string, payload []byte) {
	if _, ok := notification.EventIDFromTopic(channel); !ok {
		logger.Warn("不明なチャネルのメッセージを破棄しました", zap.String("channel", channel))
		return
	}
	change, err := notification.Decode(payload)
	if err != nil {
		logger.Warn("座席変更の復号に失敗しました", zap.String("channel", channel), zap.Error(err))
		return
	}
	if err := r.target.Publish(ctx, channel, change); err != nil {
		logger.Warn("座席変更の中継に失敗しました", zap.String("channel", channel), zap.Error(err))
	}
}

var _ notification.Publisher = (*Publisher)(nil)
