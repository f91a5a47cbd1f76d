package middleware

import (
	"errors"
	"net/http"
	"strings"

	"eatoff/internal/config"
	"eatoff/internal/token"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
)

var errNoToken = errors.New("no bearer token")

// AuthJWT はBearerトークン必須。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	issuer := token.NewIssuer(cfg.JWTSecret, 0)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := authenticate(c, issuer); err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			return next(c)
		}
	}
}

// OptionalAuthJWT はヘッダが無ければ未ログインとして通す。
// ヘッダがあって不正なら401（黙って未ログイン扱いにはしない）。
func OptionalAuthJWT(cfg config.Config) echo.MiddlewareFunc {
	issuer := token.NewIssuer(cfg.JWTSecret, 0)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := authenticate(c, issuer)
			if err != nil && !errors.Is(err, errNoToken) {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, issuer *token.Issuer) error {
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	if authz == "" {
		return errNoToken
	}

	scheme, raw, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return token.ErrInvalidToken
	}

	id, err := issuer.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}

	c.Set(CtxUserIDKey, id.UserID)
	c.Set(CtxUserRoleKey, string(id.Role))
	c.Set(CtxTokenVersionKey, id.TokenVersion)
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
