package rabbitmq

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
)

// MockChannel implements channel
type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	a := m.Called(name, durable, autoDelete, exclusive, noWait, args)
	return amqp.Queue{Name: name}, a.Error(0)
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	a := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return a.Error(0)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

func testChange() notification.SeatChange {
	return notification.SeatChange{
		Type:          notification.ChangeSeatCancelled,
		EventID:       "event-1",
		Seats:         []seat.Seat{{Row: 2, Number: 3}},
		ReservationID: "res-1",
		OccurredAt:    time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_DeclaresDurableQueue(t *testing.T) {
	ch := new(MockChannel)
	ch.On("QueueDeclare", "seat_changes", true, false, false, false, amqp.Table(nil)).Return(nil)

	_, err := newPublisher(ch, "seat_changes")

	require.NoError(t, err)
	ch.AssertExpectations(t)
}

func TestPublisher_DeclareFailureClosesChannel(t *testing.T) {
	ch := new(MockChannel)
	ch.On("QueueDeclare", "seat_changes", true, false, false, false, amqp.Table(nil)).Return(errors.New("access refused"))
	ch.On("Close").Return(nil)

	_, err := newPublisher(ch, "seat_changes")

	assert.ErrorContains(t, err, "キュー宣言に失敗しました")
	ch.AssertCalled(t, "Close")
}

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	change := testChange()
	body, err := change.Encode()
	require.NoError(t, err)

	ch := new(MockChannel)
	ch.On("QueueDeclare", "seat_changes", true, false, false, false, amqp.Table(nil)).Return(nil)
	ch.On("PublishWithContext", ctx, "", "seat_changes", false, false, mock.MatchedBy(func(msg amqp.Publishing) bool {
		return msg.DeliveryMode == amqp.Persistent &&
			msg.ContentType == "application/json" &&
			msg.Type == "seatCancelled" &&
			msg.Headers["event_id"] == "event-1" &&
			msg.Headers["topic"] == "seats.event-1" &&
			string(msg.Body) == string(body)
	})).Return(nil).Once()

	p, err := newPublisher(ch, "seat_changes")
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, notification.Topic("event-1"), change))
	ch.AssertExpectations(t)
}

func TestPublisher_PublishError(t *testing.T) {
	ctx := context.Background()
	ch := new(MockChannel)
	ch.On("QueueDeclare", "seat_changes", true, false, false, false, amqp.Table(nil)).Return(nil)
	ch.On("PublishWithContext", ctx, "", "seat_changes", false, false, mock.Anything).Return(amqp.ErrClosed)

	p, err := newPublisher(ch, "seat_changes")
	require.NoError(t, err)

	err = p.Publish(ctx, notification.Topic("event-1"), testChange())
	assert.ErrorIs(t, err, amqp.ErrClosed)
}
