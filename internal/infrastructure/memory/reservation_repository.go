package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/transaction"
)

// ReservationRepository は予約リポジトリのメモリ実装
// PostgreSQL の部分一意インデックスと同じく、確定予約間の座席重複と同時刻の重複を拒否する
type ReservationRepository struct {
	store *Store
}

func NewReservationRepository(s *Store) *ReservationRepository {
	return &ReservationRepository{store: s}
}

func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	return r.store.update(tx, func(mt *memTx) error {
		if _, exists := r.store.reservations[res.ID]; exists {
			return fmt.Errorf("予約作成に失敗: ID %s は既に存在します", res.ID)
		}
		if res.IsConfirmed() {
			if err := r.checkConstraints(res); err != nil {
				return err
			}
		}
		r.store.reservations[res.ID] = res.Clone()
		r.store.order = append(r.store.order, res.ID)
		mt.onRollback(func() {
			delete(r.store.reservations, res.ID)
			r.store.order = r.store.order[:len(r.store.order)-1]
		})
		return nil
	})
}

// checkConstraints は (event_id, row, seat_number) と (owner_id, event_start_at) の一意性を検査する
func (r *ReservationRepository) checkConstraints(res *reservation.Reservation) error {
	requested := seat.NewSet(res.Seats...)
	for _, other := range r.store.reservations {
		if !other.IsConfirmed() {
			continue
		}
		if other.OwnerID == res.OwnerID && other.EventStartAt.Equal(res.EventStartAt) {
			return reservation.ErrTimeSlotConflict
		}
		if other.EventID != res.EventID {
			continue
		}
		for _, s := range other.Seats {
			if requested.Has(s) {
				return reservation.NewSeatError(s, reservation.ErrSeatAlreadyReserved)
			}
		}
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, tx transaction.Tx, id string) (*reservation.Reservation, error) {
	var out *reservation.Reservation
	err := r.store.view(ctx, tx, func() error {
		res, ok := r.store.reservations[id]
		if !ok {
			return reservation.ErrReservationNotFound
		}
		out = res.Clone()
		return nil
	})
	return out, err
}

// GetByIDForUpdate はトランザクションがストア全体を直列化しているため GetByID と同じ
func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*reservation.Reservation, error) {
	if tx == nil {
		return nil, ErrTxRequired
	}
	return r.GetByID(ctx, tx, id)
}

func (r *ReservationRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*reservation.Reservation, error) {
	var out []*reservation.Reservation
	err := r.store.view(ctx, nil, func() error {
		// 作成順の逆（新しい順）
		for i := len(r.store.order) - 1; i >= 0; i-- {
			res := r.store.reservations[r.store.order[i]]
			if res.OwnerID == ownerID {
				out = append(out, res.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page(out, limit, offset), nil
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	return r.store.update(tx, func(mt *memTx) error {
		prev, ok := r.store.reservations[res.ID]
		if !ok {
			return reservation.ErrReservationNotFound
		}
		if prev.IsCancelled() && res.IsConfirmed() {
			return fmt.Errorf("予約更新に失敗: キャンセル済みの予約は確定に戻せません")
		}
		updated := prev.Clone()
		updated.Status = res.Status
		updated.UpdatedAt = res.UpdatedAt
		if res.CancelledAt != nil {
			at := *res.CancelledAt
			updated.CancelledAt = &at
		}
		r.store.reservations[res.ID] = updated
		mt.onRollback(func() { r.store.reservations[res.ID] = prev })
		return nil
	})
}

func (r *ReservationRepository) OccupiedSeats(ctx context.Context, tx transaction.Tx, eventID string) ([]seat.Seat, error) {
	var out []seat.Seat
	err := r.store.view(ctx, tx, func() error {
		for _, res := range r.store.reservations {
			if res.EventID == eventID && res.IsConfirmed() {
				out = append(out, res.Seats...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	seat.SortRowMajor(out)
	return out, nil
}

func (r *ReservationRepository) ConfirmedStartTimes(ctx context.Context, tx transaction.Tx, ownerID string, from time.Time) ([]time.Time, error) {
	var out []time.Time
	err := r.store.view(ctx, tx, func() error {
		for _, res := range r.store.reservations {
			if res.OwnerID == ownerID && res.IsConfirmed() && !res.EventStartAt.Before(from) {
				out = append(out, res.EventStartAt)
			}
		}
		return nil
	})
	return out, err
}

var _ reservation.Repository = (*ReservationRepository)(nil)
