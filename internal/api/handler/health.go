package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/logger"
)

const healthCheckTimeout = 2 * time.Second

// Dependency はヘルスチェック対象の外部依存
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler はヘルスチェックハンドラー
type HealthHandler struct {
	deps []Dependency
	now  func() time.Time
}

// NewHealthHandler はHealthHandlerを作成する
func NewHealthHandler(deps ...Dependency) *HealthHandler {
	return &HealthHandler{deps: deps, now: time.Now}
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Check はヘルスチェックを行う
// @Summary ヘルスチェック
// @Description アプリケーションと依存先の健全性を確認する
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Check(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Timestamp: h.now().Format(time.RFC3339)}
	code := http.StatusOK

	if len(h.deps) > 0 {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
		defer cancel()

		resp.Dependencies = make(map[string]string, len(h.deps))
		for _, d := range h.deps {
			if err := d.Ping(ctx); err != nil {
				logger.Warn("依存先のヘルスチェックに失敗", zap.String("dependency", d.Name), zap.Error(err))
				resp.Dependencies[d.Name] = "down"
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Dependencies[d.Name] = "up"
		}
	}
	return c.JSON(code, resp)
}
