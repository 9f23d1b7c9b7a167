package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/metrics"
)

const warmLockKey = "worker:availability-cache-warmer"

// UpcomingEventLister は開始前のイベントを返す
type UpcomingEventLister interface {
	ListUpcoming(ctx context.Context, limit int) ([]*event.Event, error)
}

// AvailabilityRefresher は空席数を計算し直して表示用キャッシュに保存する
type AvailabilityRefresher interface {
	Refresh(ctx context.Context, eventID string) (int, error)
}

// Locker は複数インスタンス間で1回の実行を1つに絞る
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

// AvailabilityCacheWarmer は開始前イベントの空席数キャッシュを定期的に温める
// キャッシュは表示用で、予約の可否判定には使われない
type AvailabilityCacheWarmer struct {
	events   UpcomingEventLister
	index    AvailabilityRefresher
	locker   Locker
	metrics  *metrics.Metrics
	interval time.Duration
	limit    int
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewAvailabilityCacheWarmer は新しいワーカーを作成
// locker が nil の場合はロックなしで実行する（単一インスタンス構成）
func NewAvailabilityCacheWarmer(
	events UpcomingEventLister,
	index AvailabilityRefresher,
	locker Locker,
	m *metrics.Metrics,
	interval time.Duration,
	limit int,
) *AvailabilityCacheWarmer {
	return &AvailabilityCacheWarmer{
		events:   events,
		index:    index,
		locker:   locker,
		metrics:  m,
		interval: interval,
		limit:    limit,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はワーカーを開始
func (w *AvailabilityCacheWarmer) Start(ctx context.Context) {
	logger.Info("空席数キャッシュウォーマー開始",
		zap.Duration("interval", w.interval),
		zap.Int("limit", w.limit),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	w.warm(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("空席数キャッシュウォーマー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("空席数キャッシュウォーマー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

// Stop はワーカーを停止し、実行中の周回の終了を待つ
func (w *AvailabilityCacheWarmer) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

// warm は1周分の更新を行い、更新したイベント数を返す
func (w *AvailabilityCacheWarmer) warm(ctx context.Context) int {
	log := logger.Get()

	if w.locker != nil {
		release, acquired, err := w.locker.TryLock(ctx, warmLockKey, w.interval)
		if err != nil {
			log.Warn("ウォーマーのロック取得に失敗", zap.Error(err))
			return 0
		}
		if !acquired {
			log.Debug("他のインスタンスが実行中のためスキップ")
			return 0
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("ウォーマーのロック解放に失敗", zap.Error(err))
			}
		}()
	}

	events, err := w.events.ListUpcoming(ctx, w.limit)
	if err != nil {
		log.Error("開始前イベントの取得に失敗", zap.Error(err))
		return 0
	}

	refreshed := 0
	for _, ev := range events {
		if ctx.Err() != nil {
			break
		}
		count, err := w.index.Refresh(ctx, ev.ID)
		if err != nil {
			if !errors.Is(err, event.ErrEventNotFound) {
				log.Warn("空席数の更新に失敗", zap.String("event_id", ev.ID), zap.Error(err))
			}
			continue
		}
		if w.metrics != nil {
			w.metrics.AvailableSeats.WithLabelValues(ev.ID).Set(float64(count))
		}
		refreshed++
	}

	if refreshed > 0 {
		log.Debug("空席数キャッシュを更新", zap.Int("events", refreshed))
	}
	return refreshed
}
