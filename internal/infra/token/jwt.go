package token

import (
	"errors"
	"time"

	"orderapp/internal/config"
	"orderapp/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// アクセストークンのclaims
type Claims struct {
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion int    `json:"tv"`
	jwt.RegisteredClaims
}

// HS256で署名・検証する
type JWTIssuer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
}

func NewJWTIssuer(cfg config.JWT) *JWTIssuer {
	return &JWTIssuer{
		key:      []byte(cfg.Key),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.Expiry,
	}
}

func (i *JWTIssuer) Issue(user model.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.ttl)

	claims := Claims{
		Email:        user.Email,
		Role:         string(user.Role),
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// 署名・期限・iss・audを確認してclaimsを返す
func (i *JWTIssuer) Parse(raw string) (*Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.key, nil
	})
	if err != nil || tok == nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	if !claims.VerifyIssuer(i.issuer, true) || !claims.VerifyAudience(i.audience, true) {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Role == "" || claims.TokenVersion < 0 {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
