package middleware

import (
	"errors"
	"net/http"

	"eatoff/internal/repository"

	"github.com/labstack/echo/v4"
)

// TokenVersionGuard はJWTのtvとDBのtoken_versionを突き合わせる。
// 未ログイン（user_id無し）はそのまま通す。必須にしたいルートは AuthJWT を前に置く。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok {
				return next(c)
			}
			tv, _ := c.Get(CtxTokenVersionKey).(int)

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			case err != nil:
				c.Logger().Errorf("token version lookup user=%d: %v", userID, err)
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
			}

			// 停止ユーザー、またはログアウト済みのトークン
			if !user.IsActive || user.TokenVersion != tv {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			return next(c)
		}
	}
}
