package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
)

// ChangeType は座席状態変更の種類
type ChangeType string

const (
	ChangeSeatReserved  ChangeType = "seatReserved"
	ChangeSeatCancelled ChangeType = "seatCancelled"
)

const topicPrefix = "seats."

// SeatChange は予約確定・キャンセルで座席の占有が変化したことを表す通知
type SeatChange struct {
	Type          ChangeType  `json:"type"`
	EventID       string      `json:"event_id"`
	Seats         []seat.Seat `json:"seats"`
	ReservationID string      `json:"reservation_id"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// Topic はイベント単位の購読キーを返す
func Topic(eventID string) string {
	return topicPrefix + eventID
}

// EventIDFromTopic は購読キーからイベントIDを取り出す
func EventIDFromTopic(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, topicPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Encode はJSONにエンコードする
func (c SeatChange) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// Decode はJSONから SeatChange を復元する
func Decode(data []byte) (SeatChange, error) {
	var c SeatChange
	if err := json.Unmarshal(data, &c); err != nil {
		return SeatChange{}, fmt.Errorf("座席変更通知のデコードに失敗: %w", err)
	}
	return c, nil
}

// Publisher は座席変更通知の配信先
// 配信はベストエフォートで、失敗してもコミット済みの予約は取り消されない
type Publisher interface {
	Publish(ctx context.Context, topic string, change SeatChange) error
}

// PublisherFunc は関数を Publisher として扱うためのアダプタ
type PublisherFunc func(ctx context.Context, topic string, change SeatChange) error

func (f PublisherFunc) Publish(ctx context.Context, topic string, change SeatChange) error {
	return f(ctx, topic, change)
}

// Nop は何もしない Publisher
var Nop Publisher = PublisherFunc(func(context.Context, string, SeatChange) error { return nil })

// SinkError は特定の配信先での失敗
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s への配信に失敗: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

type sink struct {
	name      string
	publisher Publisher
}

// Fanout は登録済みの全配信先へ順に通知する
// 一部の配信先が失敗しても残りへの配信は継続する
type Fanout struct {
	sinks    []sink
	observer func(sink string, err error)
}

// NewFanout は新しい Fanout を作成する
func NewFanout() *Fanout {
	return &Fanout{}
}

// Add は配信先を追加する
func (f *Fanout) Add(name string, p Publisher) *Fanout {
	f.sinks = append(f.sinks, sink{name: name, publisher: p})
	return f
}

// OnResult は配信先ごとの結果を受け取るコールバックを設定する（メトリクス用）
func (f *Fanout) OnResult(fn func(sink string, err error)) *Fanout {
	f.observer = fn
	return f
}

// Len は登録済みの配信先数を返す
func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Publish は全配信先へ通知し、失敗をまとめて返す
func (f *Fanout) Publish(ctx context.Context, topic string, change SeatChange) error {
	var errs []error
	for _, s := range f.sinks {
		err := s.publisher.Publish(ctx, topic, change)
		if f.observer != nil {
			f.observer(s.name, err)
		}
		if err != nil {
			errs = append(errs, &SinkError{Sink: s.name, Err: err})
		}
	}
	return errors.Join(errs...)
}
