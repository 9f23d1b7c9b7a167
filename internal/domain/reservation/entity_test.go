package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
)

var baseTime = time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)

func createTestEvent(t *testing.T, startAt time.Time) *event.Event {
	t.Helper()
	grid, err := seat.NewGrid(2, 2)
	require.NoError(t, err)
	return event.NewEvent("event-1", "テストマッチ", "テストスタジアム", grid, startAt, baseTime)
}

func createTestReservation(t *testing.T, startAt time.Time) *Reservation {
	t.Helper()
	ev := createTestEvent(t, startAt)
	return NewConfirmed("res-1", "user-1", ev, []seat.Seat{{Row: 1, Number: 1}, {Row: 1, Number: 2}}, "pay-4242", baseTime)
}

func TestNewConfirmed(t *testing.T) {
	startAt := baseTime.Add(10 * 24 * time.Hour)
	ev := createTestEvent(t, startAt)
	seats := []seat.Seat{{Row: 2, Number: 1}, {Row: 1, Number: 2}}

	r := NewConfirmed("res-1", "user-1", ev, seats, "pay-4242", baseTime)

	assert.Equal(t, "res-1", r.ID)
	assert.Equal(t, "user-1", r.OwnerID)
	assert.Equal(t, ev.ID, r.EventID)
	assert.Equal(t, startAt, r.EventStartAt)
	assert.Equal(t, StatusConfirmed, r.Status)
	assert.Equal(t, "pay-4242", r.PaymentRef)
	assert.Equal(t, baseTime, r.CreatedAt)
	assert.Nil(t, r.CancelledAt)
	assert.Equal(t, seats, r.Seats)

	// 呼び出し元のスライスを変更しても影響を受けない
	seats[0] = seat.Seat{Row: 9, Number: 9}
	assert.Equal(t, seat.Seat{Row: 2, Number: 1}, r.Seats[0])
}

func TestReservation_Cancel(t *testing.T) {
	window := DefaultCancellationWindow

	tests := []struct {
		name        string
		requesterID string
		startIn     time.Duration
		cancelled   bool
		errExpected error
	}{
		{name: "4日前ならキャンセルできる", requesterID: "user-1", startIn: 4 * 24 * time.Hour},
		{name: "ちょうど期限ならキャンセルできる", requesterID: "user-1", startIn: window},
		{name: "2日前はキャンセル期限切れ", requesterID: "user-1", startIn: 2 * 24 * time.Hour, errExpected: ErrCancellationWindowClosed},
		{name: "期限を1秒過ぎるとキャンセルできない", requesterID: "user-1", startIn: window - time.Second, errExpected: ErrCancellationWindowClosed},
		{name: "他人の予約はキャンセルできない", requesterID: "user-2", startIn: 10 * 24 * time.Hour, errExpected: ErrForbidden},
		{name: "キャンセル済みは再キャンセルできない", requesterID: "user-1", startIn: 10 * 24 * time.Hour, cancelled: true, errExpected: ErrAlreadyCancelled},
		{name: "権限チェックが状態チェックより優先される", requesterID: "user-2", startIn: 10 * 24 * time.Hour, cancelled: true, errExpected: ErrForbidden},
		{name: "状態チェックが期限チェックより優先される", requesterID: "user-1", startIn: time.Hour, cancelled: true, errExpected: ErrAlreadyCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := createTestReservation(t, baseTime.Add(tt.startIn))
			if tt.cancelled {
				r.Status = StatusCancelled
			}

			err := r.Cancel(tt.requesterID, baseTime, window)
			if tt.errExpected != nil {
				assert.ErrorIs(t, err, tt.errExpected)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, r.Status)
			require.NotNil(t, r.CancelledAt)
			assert.Equal(t, baseTime, *r.CancelledAt)
			assert.Equal(t, baseTime, r.UpdatedAt)
		})
	}
}

func TestReservation_Cancel_AlwaysRejectsRepeat(t *testing.T) {
	r := createTestReservation(t, baseTime.Add(10*24*time.Hour))
	require.NoError(t, r.Cancel("user-1", baseTime, DefaultCancellationWindow))

	for i := 0; i < 5; i++ {
		err := r.Cancel("user-1", baseTime.Add(time.Duration(i)*time.Minute), DefaultCancellationWindow)
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
	}
	assert.Equal(t, StatusCancelled, r.Status)
}

func TestReservation_Cancel_WindowNeverReopens(t *testing.T) {
	r := createTestReservation(t, baseTime.Add(2*24*time.Hour))

	now := baseTime
	require.ErrorIs(t, r.Cancel("user-1", now, DefaultCancellationWindow), ErrCancellationWindowClosed)
	for _, later := range []time.Duration{time.Second, time.Hour, 48 * time.Hour, 30 * 24 * time.Hour} {
		assert.ErrorIs(t, r.Cancel("user-1", now.Add(later), DefaultCancellationWindow), ErrCancellationWindowClosed)
	}
	assert.True(t, r.IsConfirmed())
}

func TestReservation_Clone(t *testing.T) {
	r := createTestReservation(t, baseTime.Add(10*24*time.Hour))
	require.NoError(t, r.Cancel("user-1", baseTime, DefaultCancellationWindow))

	c := r.Clone()
	c.Seats[0] = seat.Seat{Row: 2, Number: 2}
	*c.CancelledAt = baseTime.Add(time.Hour)

	assert.Equal(t, seat.Seat{Row: 1, Number: 1}, r.Seats[0])
	assert.Equal(t, baseTime, *r.CancelledAt)
}
