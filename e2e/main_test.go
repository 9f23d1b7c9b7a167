package e2e

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/application"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/infrastructure/memory"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/infrastructure/realtime"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/clock"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/idgen"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/pricing"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/server"
)

// baseTime はE2Eテストの基準時刻
var baseTime = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

// TestServer はE2Eテスト用のサーバー
// 外部サービスを使わずインメモリストアで全レイヤーを組み立てる
type TestServer struct {
	Echo  *echo.Echo
	Hub   *realtime.Hub
	Clock *clock.Fixed
}

// NewTestServer はテスト用サーバーを作成
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	prices, err := pricing.NewCalculator("250")
	require.NoError(t, err)

	clk := clock.NewFixed(baseTime)
	st := memory.NewStore()
	events := memory.NewEventRepository(st)
	reservations := memory.NewReservationRepository(st)

	hub := realtime.NewHub()
	t.Cleanup(hub.Close)

	fanout := notification.NewFanout().Add("websocket", hub)

	eventService := application.NewEventService(events, idgen.NewSequence("event"), clk)
	availability := application.NewAvailabilityIndex(events, reservations, nil)
	ledger := application.NewLedger(memory.NewTxManager(st), events, reservations,
		application.WithPublisher(fanout),
		application.WithIDGenerator(idgen.NewSequence("res")),
		application.WithClock(clk),
		application.WithCancellationWindow(72*time.Hour),
	)

	e := server.New(server.Deps{
		Events:       eventService,
		Availability: availability,
		Ledger:       ledger,
		Hub:          hub,
		Prices:       prices,
	})

	return &TestServer{Echo: e, Hub: hub, Clock: clk}
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// As は指定ユーザーとしてリクエストを実行
func (s *TestServer) As(userID, method, path string, body interface{}) *httptest.ResponseRecorder {
	return s.Request(method, path, body, map[string]string{"X-User-ID": userID})
}

// CreateEvent はイベントを作成してIDを返す
func (s *TestServer) CreateEvent(t *testing.T, name string, rows, seatsPerRow int, startAt time.Time) string {
	t.Helper()
	rec := s.Request("POST", "/api/v1/events", map[string]interface{}{
		"name":          name,
		"venue":         "国立競技場",
		"rows":          rows,
		"seats_per_row": seatsPerRow,
		"start_at":      startAt.Format(time.RFC3339),
	}, nil)
	require.Equal(t, 201, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["id"].(string)
}

// decode はレスポンスボディをデコードする
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
