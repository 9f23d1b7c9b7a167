package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
	redisinfra "github.com/sanosuguru/go-stadium-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/logger"
)

const (
	availabilityCacheTTL = 30 * time.Second
)

// AvailabilityCache は表示用の空席数キャッシュ
type AvailabilityCache interface {
	GetAvailableCount(ctx context.Context, eventID string) (int, error)
	SetAvailableCount(ctx context.Context, eventID string, count int, ttl time.Duration) error
}

// AvailabilityIndex はイベントの座席占有状況を確定予約から導出する
// 占有判定（OccupiedSeats, SeatStatus）は常にストアを読み、キャッシュは空席数の表示にのみ使う
type AvailabilityIndex struct {
	eventRepo       event.Repository
	reservationRepo reservation.Repository
	cache           AvailabilityCache
}

func NewAvailabilityIndex(er event.Repository, rr reservation.Repository, cache AvailabilityCache) *AvailabilityIndex {
	return &AvailabilityIndex{eventRepo: er, reservationRepo: rr, cache: cache}
}

// Summary はイベントの座席状況
type Summary struct {
	EventID       string
	Grid          seat.Grid
	TotalSeats    int
	ReservedSeats []seat.Seat
	Available     int
}

// OccupiedSeats は確定予約が占有している座席の集合を1回の読み取りで返す
func (a *AvailabilityIndex) OccupiedSeats(ctx context.Context, eventID string) (seat.Set, error) {
	if _, err := a.eventRepo.GetByID(ctx, nil, eventID); err != nil {
		return nil, err
	}
	return a.occupied(ctx, eventID)
}

func (a *AvailabilityIndex) occupied(ctx context.Context, eventID string) (seat.Set, error) {
	seats, err := a.reservationRepo.OccupiedSeats(ctx, nil, eventID)
	if err != nil {
		return nil, fmt.Errorf("占有座席の取得に失敗: %w", err)
	}
	return seat.NewSet(seats...), nil
}

// SeatStatus は1席の状態を返す
func (a *AvailabilityIndex) SeatStatus(ctx context.Context, eventID string, s seat.Seat) (seat.Status, error) {
	ev, err := a.eventRepo.GetByID(ctx, nil, eventID)
	if err != nil {
		return "", err
	}
	if !ev.Grid.Contains(s) {
		return "", reservation.NewSeatError(s, reservation.ErrOutOfBounds)
	}
	occupied, err := a.occupied(ctx, eventID)
	if err != nil {
		return "", err
	}
	if occupied.Has(s) {
		return seat.StatusReserved, nil
	}
	return seat.StatusVacant, nil
}

// Summary は総座席数・予約済み座席・空席数を返す
func (a *AvailabilityIndex) Summary(ctx context.Context, eventID string) (*Summary, error) {
	ev, err := a.eventRepo.GetByID(ctx, nil, eventID)
	if err != nil {
		return nil, err
	}
	occupied, err := a.occupied(ctx, eventID)
	if err != nil {
		return nil, err
	}
	total := ev.Grid.TotalSeats()
	return &Summary{
		EventID:       ev.ID,
		Grid:          ev.Grid,
		TotalSeats:    total,
		ReservedSeats: occupied.Sorted(),
		Available:     total - occupied.Len(),
	}, nil
}

// CountAvailable は空席数を返す（表示用、キャッシュを優先）
func (a *AvailabilityIndex) CountAvailable(ctx context.Context, eventID string) (int, error) {
	// キャッシュから取得を試みる
	if a.cache != nil {
		count, err := a.cache.GetAvailableCount(ctx, eventID)
		if err == nil {
			logger.Debug("キャッシュヒット", zap.String("event_id", eventID), zap.Int("count", count))
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	return a.Refresh(ctx, eventID)
}

// Refresh はストアから空席数を計算し直してキャッシュに保存する
// 読み取り後に確定した予約の無効化より保存が遅れると、古い値が availabilityCacheTTL の間残る
// 表示用のため許容し、占有判定はキャッシュを使わない
func (a *AvailabilityIndex) Refresh(ctx context.Context, eventID string) (int, error) {
	summary, err := a.Summary(ctx, eventID)
	if err != nil {
		return 0, err
	}

	if a.cache != nil {
		if cacheErr := a.cache.SetAvailableCount(ctx, eventID, summary.Available, availabilityCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return summary.Available, nil
}
