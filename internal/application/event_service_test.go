package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/clock"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/idgen"
)

func newEventService(repo event.Repository) *EventService {
	return NewEventService(repo, idgen.NewSequence("event"), clock.NewFixed(baseTime))
}

func TestEventService_CreateEvent_Success(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := newEventService(mockRepo)

	input := CreateEventInput{
		Name:        "東京ダービー",
		Venue:       "国立競技場",
		Rows:        20,
		SeatsPerRow: 30,
		StartAt:     baseTime.Add(14 * 24 * time.Hour),
	}

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*event.Event")).Return(nil)

	result, err := service.CreateEvent(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "event-000001", result.ID)
	assert.Equal(t, input.Name, result.Name)
	assert.Equal(t, input.Venue, result.Venue)
	assert.Equal(t, seat.Grid{Rows: 20, SeatsPerRow: 30}, result.Grid)
	assert.Equal(t, 600, result.Grid.TotalSeats())
	assert.Equal(t, baseTime, result.CreatedAt)
	mockRepo.AssertExpectations(t)
}

func TestEventService_CreateEvent_ValidationError(t *testing.T) {
	tests := []struct {
		name        string
		input       CreateEventInput
		errExpected error
	}{
		{
			name:        "名前なし",
			input:       CreateEventInput{Rows: 1, SeatsPerRow: 1, StartAt: baseTime},
			errExpected: event.ErrEventNameRequired,
		},
		{
			name:        "座席数0",
			input:       CreateEventInput{Name: "試合", Rows: 0, SeatsPerRow: 10, StartAt: baseTime},
			errExpected: seat.ErrInvalidGrid,
		},
		{
			name:        "総座席数が桁あふれする寸法",
			input:       CreateEventInput{Name: "試合", Rows: 1 << 32, SeatsPerRow: 1 << 32, StartAt: baseTime},
			errExpected: seat.ErrInvalidGrid,
		},
		{
			name:        "開始時刻なし",
			input:       CreateEventInput{Name: "試合", Rows: 1, SeatsPerRow: 1},
			errExpected: event.ErrStartAtRequired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockEventRepository)
			service := newEventService(mockRepo)

			result, err := service.CreateEvent(context.Background(), tt.input)

			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.errExpected)
			assert.Contains(t, err.Error(), "バリデーションエラー")
			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestEventService_CreateEvent_RepositoryError(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := newEventService(mockRepo)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*event.Event")).Return(errors.New("db error"))

	result, err := service.CreateEvent(context.Background(), CreateEventInput{
		Name: "試合", Rows: 2, SeatsPerRow: 2, StartAt: baseTime.Add(time.Hour),
	})

	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "イベント作成に失敗しました")
}

func TestEventService_GetEvent(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := newEventService(mockRepo)
	ctx := context.Background()

	mockRepo.On("GetByID", ctx, nil, "event-1").Return(testEvent(time.Hour), nil)
	mockRepo.On("GetByID", ctx, nil, "missing").Return(nil, event.ErrEventNotFound)

	got, err := service.GetEvent(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, "event-1", got.ID)

	_, err = service.GetEvent(ctx, "missing")
	assert.ErrorIs(t, err, event.ErrEventNotFound)
}

func TestEventService_ListEvents(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{name: "既定値", limit: 0, offset: 0, wantLimit: 20, wantOffset: 0},
		{name: "指定値", limit: 10, offset: 5, wantLimit: 10, wantOffset: 5},
		{name: "上限", limit: 1000, offset: 0, wantLimit: 100, wantOffset: 0},
		{name: "負のオフセット", limit: 10, offset: -5, wantLimit: 10, wantOffset: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockEventRepository)
			service := newEventService(mockRepo)
			ctx := context.Background()

			mockRepo.On("List", ctx, tt.wantLimit, tt.wantOffset).Return([]*event.Event{testEvent(time.Hour)}, nil)

			result, err := service.ListEvents(ctx, tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Len(t, result, 1)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestEventService_ListUpcoming(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := newEventService(mockRepo)
	ctx := context.Background()

	mockRepo.On("ListUpcoming", ctx, baseTime, 50).Return([]*event.Event{testEvent(time.Hour)}, nil)

	result, err := service.ListUpcoming(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, result, 1)
	mockRepo.AssertExpectations(t)
}
