package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/transaction"
)

// PostgreSQL のエラーコード
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// 部分一意インデックス名（migrations と一致させる）
const (
	constraintActiveSeat = "uq_reservation_seats_active"
	constraintOwnerSlot  = "uq_reservations_owner_slot"
)

// classify はドライバーのエラーをドメインのエラーに変換する
func classify(op string, err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch pqErr.Code {
	case codeUniqueViolation:
		switch pqErr.Constraint {
		case constraintActiveSeat:
			return fmt.Errorf("%s: %w", op, reservation.ErrSeatAlreadyReserved)
		case constraintOwnerSlot:
			return fmt.Errorf("%s: %w", op, reservation.ErrTimeSlotConflict)
		}
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%s: %w: %w", op, transaction.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
