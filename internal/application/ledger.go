package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/clock"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/idgen"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/metrics"
)

const publishTimeout = 5 * time.Second

// Ledger は予約の確定・キャンセルを行う唯一の更新経路
// 競合の判定はトランザクション内で読み直した状態とストアの一意制約で行い、自動リトライはしない
type Ledger struct {
	txManager       transaction.Manager
	eventRepo       event.Repository
	reservationRepo reservation.Repository
	publisher       notification.Publisher
	ids             idgen.Generator
	clock           clock.Clock
	window          time.Duration
	metrics         *metrics.Metrics
}

// LedgerOption は Ledger の設定を変更する
type LedgerOption func(*Ledger)

// WithPublisher は座席変更通知の配信先を設定する
func WithPublisher(p notification.Publisher) LedgerOption {
	return func(l *Ledger) { l.publisher = p }
}

// WithIDGenerator は予約IDの生成器を設定する
func WithIDGenerator(g idgen.Generator) LedgerOption {
	return func(l *Ledger) { l.ids = g }
}

// WithClock は時刻の取得元を設定する
func WithClock(c clock.Clock) LedgerOption {
	return func(l *Ledger) { l.clock = c }
}

// WithCancellationWindow はキャンセル締め切り（開始時刻の何時間前まで）を設定する
func WithCancellationWindow(d time.Duration) LedgerOption {
	return func(l *Ledger) { l.window = d }
}

// WithMetrics はメトリクスを設定する
func WithMetrics(m *metrics.Metrics) LedgerOption {
	return func(l *Ledger) { l.metrics = m }
}

func NewLedger(tm transaction.Manager, er event.Repository, rr reservation.Repository, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		txManager:       tm,
		eventRepo:       er,
		reservationRepo: rr,
		publisher:       notification.Nop,
		ids:             idgen.UUIDv7(),
		clock:           clock.Real(),
		window:          reservation.DefaultCancellationWindow,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CancellationWindow は設定中のキャンセル締め切りを返す
func (l *Ledger) CancellationWindow() time.Duration {
	return l.window
}

type CommitInput struct {
	OwnerID    string
	EventID    string
	Seats      []seat.Seat
	PaymentRef string
}

// CommitReservation は座席を検証して予約を確定する
// 全座席が確保されるか、何も永続化されないかのどちらか
func (l *Ledger) CommitReservation(ctx context.Context, input CommitInput) (*reservation.Reservation, error) {
	log := logger.FromContext(ctx).With(
		zap.String("owner_id", input.OwnerID),
		zap.String("event_id", input.EventID),
		zap.Int("seat_count", len(input.Seats)),
	)

	res, err := l.commit(ctx, input)
	if l.metrics != nil {
		l.metrics.ReservationsTotal.WithLabelValues(statusLabel(err)).Inc()
	}
	if err != nil {
		logRejection(log, "予約を確定できません", err)
		return nil, err
	}

	log.Info("予約を確定しました", zap.String("reservation_id", res.ID))
	l.publish(ctx, notification.ChangeSeatReserved, res)
	return res, nil
}

func (l *Ledger) commit(ctx context.Context, input CommitInput) (*reservation.Reservation, error) {
	if err := reservation.ValidateInput(input.OwnerID, input.Seats); err != nil {
		return nil, err
	}

	id, err := l.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("予約IDの生成に失敗: %w", err)
	}

	tx, err := l.txManager.Begin(ctx)
	if err != nil {
		return nil, reservation.Transient("トランザクション開始に失敗", err)
	}
	defer tx.Rollback()

	ev, err := l.eventRepo.GetByID(ctx, tx, input.EventID)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			return nil, err
		}
		return nil, reservation.Transient("イベント取得に失敗", err)
	}

	req := reservation.Request{OwnerID: input.OwnerID, EventID: input.EventID, Event: ev, Seats: input.Seats}
	snap, err := l.snapshot(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	now := l.clock.Now()
	if err := reservation.Validate(req, snap, now); err != nil {
		return nil, err
	}

	res := reservation.NewConfirmed(id, input.OwnerID, ev, input.Seats, input.PaymentRef, now)
	if err := l.reservationRepo.Create(ctx, tx, res); err != nil {
		_ = tx.Rollback()
		return nil, l.resolveCommitConflict(ctx, req, err)
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return nil, l.resolveCommitConflict(ctx, req, err)
	}
	return res, nil
}

// snapshot は検証に必要な共有状態を読み取る（tx が nil の場合はトランザクション外）
func (l *Ledger) snapshot(ctx context.Context, tx transaction.Tx, req reservation.Request) (reservation.Snapshot, error) {
	starts, err := l.reservationRepo.ConfirmedStartTimes(ctx, tx, req.OwnerID, req.Event.StartAt)
	if err != nil {
		return reservation.Snapshot{}, reservation.Transient("予約済み時間帯の取得に失敗", err)
	}
	occupied, err := l.reservationRepo.OccupiedSeats(ctx, tx, req.Event.ID)
	if err != nil {
		return reservation.Snapshot{}, reservation.Transient("占有座席の取得に失敗", err)
	}
	return reservation.Snapshot{Occupied: seat.NewSet(occupied...), OwnerStarts: starts}, nil
}

// resolveCommitConflict はストアが拒否した書き込みの原因を、ロールバック後の状態から判定する
// 競合相手が確定していれば検証エラーとして報告し、説明できない直列化失敗は一時的エラーとする
func (l *Ledger) resolveCommitConflict(ctx context.Context, req reservation.Request, cause error) error {
	seatConflict := errors.Is(cause, reservation.ErrSeatAlreadyReserved)
	slotConflict := errors.Is(cause, reservation.ErrTimeSlotConflict)
	if !seatConflict && !slotConflict && !errors.Is(cause, transaction.ErrConflict) {
		return reservation.Transient("予約の保存に失敗", cause)
	}

	snap, err := l.snapshot(ctx, nil, req)
	if err != nil {
		if seatConflict || slotConflict {
			return withRequestedSeat(req, cause)
		}
		return err
	}
	if err := reservation.Validate(req, snap, l.clock.Now()); err != nil {
		return err
	}
	// 競合相手が既にキャンセルされている場合もストアの判定を優先する
	if seatConflict || slotConflict {
		return withRequestedSeat(req, cause)
	}
	return reservation.Transient("並行する予約と競合しました", cause)
}

// withRequestedSeat は座席を特定できない座席競合に、要求順で最初の座席を付与する
func withRequestedSeat(req reservation.Request, cause error) error {
	if !errors.Is(cause, reservation.ErrSeatAlreadyReserved) || len(req.Seats) == 0 {
		return cause
	}
	if _, ok := reservation.SeatOf(cause); ok {
		return cause
	}
	return reservation.NewSeatError(req.Seats[0], cause)
}

// CancelReservation は予約をキャンセルして座席を解放する
func (l *Ledger) CancelReservation(ctx context.Context, reservationID, requesterID string) (*reservation.Reservation, error) {
	log := logger.FromContext(ctx).With(
		zap.String("reservation_id", reservationID),
		zap.String("requester_id", requesterID),
	)

	res, err := l.cancel(ctx, reservationID, requesterID)
	if l.metrics != nil {
		l.metrics.CancellationsTotal.WithLabelValues(statusLabel(err)).Inc()
	}
	if err != nil {
		logRejection(log, "予約をキャンセルできません", err)
		return nil, err
	}

	log.Info("予約をキャンセルしました", zap.String("event_id", res.EventID))
	l.publish(ctx, notification.ChangeSeatCancelled, res)
	return res, nil
}

func (l *Ledger) cancel(ctx context.Context, reservationID, requesterID string) (*reservation.Reservation, error) {
	tx, err := l.txManager.Begin(ctx)
	if err != nil {
		return nil, reservation.Transient("トランザクション開始に失敗", err)
	}
	defer tx.Rollback()

	res, err := l.reservationRepo.GetByIDForUpdate(ctx, tx, reservationID)
	if err != nil {
		if errors.Is(err, reservation.ErrReservationNotFound) {
			return nil, err
		}
		_ = tx.Rollback()
		return nil, l.resolveCancelConflict(ctx, reservationID, requesterID, err)
	}

	if err := res.Cancel(requesterID, l.clock.Now(), l.window); err != nil {
		return nil, err
	}

	if err := l.reservationRepo.UpdateStatus(ctx, tx, res); err != nil {
		_ = tx.Rollback()
		return nil, l.resolveCancelConflict(ctx, reservationID, requesterID, err)
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return nil, l.resolveCancelConflict(ctx, reservationID, requesterID, err)
	}
	return res, nil
}

// resolveCancelConflict は並行するキャンセルに敗れた場合、最新の状態で判定し直す
func (l *Ledger) resolveCancelConflict(ctx context.Context, reservationID, requesterID string, cause error) error {
	if !errors.Is(cause, transaction.ErrConflict) {
		return reservation.Transient("予約の更新に失敗", cause)
	}
	latest, err := l.reservationRepo.GetByID(ctx, nil, reservationID)
	if err != nil {
		return reservation.Transient("予約の再取得に失敗", err)
	}
	if err := latest.Cancel(requesterID, l.clock.Now(), l.window); err != nil {
		return err
	}
	return reservation.Transient("並行する更新と競合しました", cause)
}

// GetReservation は本人の予約を取得する
func (l *Ledger) GetReservation(ctx context.Context, reservationID, requesterID string) (*reservation.Reservation, error) {
	res, err := l.reservationRepo.GetByID(ctx, nil, reservationID)
	if err != nil {
		return nil, err
	}
	if res.OwnerID != requesterID {
		return nil, reservation.ErrForbidden
	}
	return res, nil
}

// ListOwnerReservations は本人の予約一覧を新しい順に取得する
func (l *Ledger) ListOwnerReservations(ctx context.Context, ownerID string, limit, offset int) ([]*reservation.Reservation, error) {
	if ownerID == "" {
		return nil, reservation.ErrOwnerIDRequired
	}
	limit, offset = normalizePage(limit, offset)
	return l.reservationRepo.ListByOwner(ctx, ownerID, limit, offset)
}

// publish はコミット後に座席変更を通知する
// 失敗してもコミット済みの予約には影響させず、ログにのみ残す
func (l *Ledger) publish(ctx context.Context, typ notification.ChangeType, res *reservation.Reservation) {
	change := notification.SeatChange{
		Type:          typ,
		EventID:       res.EventID,
		Seats:         res.Seats,
		ReservationID: res.ID,
		OccurredAt:    l.clock.Now(),
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := l.publisher.Publish(pubCtx, notification.Topic(res.EventID), change); err != nil {
		logger.FromContext(ctx).Warn("座席変更通知の配信に失敗しました",
			zap.String("type", string(typ)),
			zap.String("event_id", res.EventID),
			zap.String("reservation_id", res.ID),
			zap.Error(err),
		)
	}
}

func statusLabel(err error) string {
	if err == nil {
		return "success"
	}
	return strings.ToLower(string(reservation.CodeOf(err)))
}

// logRejection は業務ルールによる拒否を Info、インフラ起因の失敗を Error で記録する
func logRejection(log *zap.Logger, msg string, err error) {
	code := reservation.CodeOf(err)
	fields := []zap.Field{zap.String("code", string(code)), zap.Error(err)}
	if s, ok := reservation.SeatOf(err); ok {
		fields = append(fields, zap.Stringer("seat", s))
	}
	switch code {
	case reservation.CodeTransient, reservation.CodeInternal:
		log.Error(msg, fields...)
	default:
		log.Info(msg, fields...)
	}
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
