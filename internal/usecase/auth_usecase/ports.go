package auth

import (
	"errors"
	"time"

	"orderapp/internal/domain/model"
)

var (
	// 入力が不正
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrWeakPassword       = errors.New("weak password")

	// 競合
	ErrEmailAlreadyExists = errors.New("email already exists")

	// メールまたはパスワードが違う
	ErrInvalidCredentials = errors.New("invalid credentials")
	// 連続失敗でロック中
	ErrLockedOut = errors.New("user is locked out")
	// 匿名トークンを渡せるユーザーがいない
	ErrNoUsers = errors.New("no users available")
	// トークンの持ち主がいない
	ErrUnauthorized = errors.New("unauthorized")
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(user model.User, now time.Time) (token string, expiresAt time.Time, err error)
}

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

// ログイン・匿名トークンの出力
type TokenOutput struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int        `json:"expires_in"`
	User        model.User `json:"user"`
}

func issueToken(issuer AccessTokenIssuer, user model.User, now time.Time) (TokenOutput, error) {
	token, exp, err := issuer.Issue(user, now)
	if err != nil {
		return TokenOutput{}, err
	}
	return TokenOutput{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(exp.Sub(now).Seconds()),
		User:        user,
	}, nil
}
