package token

import (
	"errors"
	"strconv"
	"time"

	"eatoff/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
)

// アクセストークンの有効期限
const DefaultTTL = 15 * time.Minute

var ErrInvalidToken = errors.New("invalid token")

// tv はユーザーの token_version。ログアウトで上がると古いトークンは通らない
type Claims struct {
	Role         string `json:"role"`
	TokenVersion int    `json:"tv"`
	jwt.RegisteredClaims
}

// 検証済みトークンから取り出した本人情報
type Identity struct {
	UserID       int64
	Role         model.Role
	TokenVersion int
}

// HS256 で署名・検証する
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

func (i *Issuer) Issue(user *model.User, now time.Time) (string, time.Time, error) {
	exp := now.Add(i.ttl)

	claims := Claims{
		Role:         string(user.Role),
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse は署名・期限・クレームを検証する。失敗は全部 ErrInvalidToken
func (i *Issuer) Parse(raw string) (Identity, error) {
	var claims Claims

	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || !tok.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrInvalidToken
	}
	if claims.Role == "" || claims.TokenVersion < 0 {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		UserID:       userID,
		Role:         model.Role(claims.Role),
		TokenVersion: claims.TokenVersion,
	}, nil
}
