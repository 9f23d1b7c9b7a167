package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/notification"
)

func TestAvailabilityCache_GetAvailableCount(t *testing.T) {
	ctx := context.Background()
	key := "seats:available:event-1"

	t.Run("キャッシュミス時はErrCacheMissを返す", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewAvailabilityCache(client)
		mock.ExpectGet(key).RedisNil()

		_, err := cache.GetAvailableCount(ctx, "event-1")

		assert.ErrorIs(t, err, ErrCacheMiss)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("キャッシュにセットした値を取得できる", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewAvailabilityCache(client)
		mock.ExpectSet(key, 100, 30*time.Second).SetVal("OK")
		mock.ExpectGet(key).SetVal("100")

		require.NoError(t, cache.SetAvailableCount(ctx, "event-1", 100, 30*time.Second))
		count, err := cache.GetAvailableCount(ctx, "event-1")

		require.NoError(t, err)
		assert.Equal(t, 100, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("接続エラーはキャッシュミスと区別される", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewAvailabilityCache(client)
		mock.ExpectGet(key).SetErr(errors.New("connection refused"))

		_, err := cache.GetAvailableCount(ctx, "event-1")

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCacheMiss)
		assert.Contains(t, err.Error(), "キャッシュ取得に失敗")
	})
}

func TestAvailabilityCache_InvalidateOnSeatChange(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	cache := NewAvailabilityCache(client)

	mock.ExpectDel("seats:available:event-1").SetVal(1)
	mock.ExpectDel("seats:available:event-2").SetErr(errors.New("connection refused"))

	err := cache.Publish(ctx, notification.Topic("event-1"), notification.SeatChange{
		Type:    notification.ChangeSeatReserved,
		EventID: "event-1",
	})
	require.NoError(t, err)

	err = cache.Invalidate(ctx, "event-2")
	assert.ErrorContains(t, err, "キャッシュ無効化に失敗")
	assert.NoError(t, mock.ExpectationsWereMet())
}
