package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	// HeaderUserID は JWT を使わない構成でのユーザー識別ヘッダー
	HeaderUserID = "X-User-ID"

	userIDKey = "user_id"
)

var (
	ErrMissingIdentity = errors.New("ユーザーIDが必要です")
	ErrInvalidToken    = errors.New("無効なトークンです")
)

// Identity はリクエストの所有者IDを解決してコンテキストに格納する
// secret が設定されている場合は Bearer JWT の sub を、未設定の場合は X-User-ID ヘッダーを使う
func Identity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var (
				id  string
				err error
			)
			if secret != "" {
				id, err = subjectFromBearer(c.Request().Header.Get(echo.HeaderAuthorization), secret)
			} else {
				id = strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
				if id == "" {
					err = ErrMissingIdentity
				}
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			c.Set(userIDKey, id)
			return next(c)
		}
	}
}

func subjectFromBearer(header, secret string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", ErrMissingIdentity
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// UserID は Identity が解決した所有者IDを返す
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
