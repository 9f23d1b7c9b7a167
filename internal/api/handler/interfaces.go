package handler

import (
	"context"
	"net/http"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/application"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
)

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error)
	GetEvent(ctx context.Context, id string) (*event.Event, error)
	ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error)
}

// AvailabilityInterface は座席占有状況の読み取りインターフェース
type AvailabilityInterface interface {
	SeatStatus(ctx context.Context, eventID string, s seat.Seat) (seat.Status, error)
	Summary(ctx context.Context, eventID string) (*application.Summary, error)
	CountAvailable(ctx context.Context, eventID string) (int, error)
}

// LedgerInterface は予約台帳のインターフェース
type LedgerInterface interface {
	CommitReservation(ctx context.Context, input application.CommitInput) (*reservation.Reservation, error)
	CancelReservation(ctx context.Context, reservationID, requesterID string) (*reservation.Reservation, error)
	GetReservation(ctx context.Context, reservationID, requesterID string) (*reservation.Reservation, error)
	ListOwnerReservations(ctx context.Context, ownerID string, limit, offset int) ([]*reservation.Reservation, error)
}

// SeatObserverHub は座席変更をリアルタイムに受け取る観測者の接続先
type SeatObserverHub interface {
	ServeWS(w http.ResponseWriter, r *http.Request, eventID string) error
}
