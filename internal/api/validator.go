package api

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator はEcho用のカスタムバリデーター
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は新しいバリデーターを作成する
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate はリクエストのバリデーションを実行する
// 検証エラーはエラーハンドラーで 400 VALIDATION_ERROR になる
func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}
