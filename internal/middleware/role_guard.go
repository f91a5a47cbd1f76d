package middleware

import (
	"net/http"

	"eatoff/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// カート更新系。メッセージは端末側の「サインインしてください」表示に使う。
func RequireSignIn() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id, ok := c.Get(CtxUserIDKey).(int64); !ok || id <= 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("sign in required"))
			}
			return next(c)
		}
	}
}

// ADMINだけ許可
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if model.Role(role) != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}
			return next(c)
		}
	}
}
