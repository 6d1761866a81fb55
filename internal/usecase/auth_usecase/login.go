package auth

import (
	"context"
	"errors"
	"time"

	"orderapp/internal/repository"
)

const (
	// この回数続けて失敗したらロック
	MaxFailedLogins = 5
	LockoutDuration = 5 * time.Minute
)

// handlerからusecaseに渡す入力
type LoginInput struct {
	Email    string
	Password string
}

type LoginUsecase struct {
	userRepo repository.UserRepository
	verifier PasswordVerifier
	issuer   AccessTokenIssuer
	clock    Clock
}

func NewLoginUsecase(
	userRepo repository.UserRepository,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	clock Clock,
) *LoginUsecase {
	return &LoginUsecase{
		userRepo: userRepo,
		verifier: verifier,
		issuer:   issuer,
		clock:    clock,
	}
}

// ログイン処理を実行する
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (TokenOutput, error) {
	//emailでユーザー取得
	user, err := u.userRepo.FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return TokenOutput{}, ErrInvalidCredentials
		}
		return TokenOutput{}, err
	}

	now := u.clock.Now()

	//ロック中はパスワードを見ない
	if user.IsLockedOut(now) {
		return TokenOutput{}, ErrLockedOut
	}

	//パスワード照合
	if ok := u.verifier.Verify(in.Password, user.PasswordHash); !ok {
		user.FailedLoginCount++
		locked := user.FailedLoginCount >= MaxFailedLogins
		if locked {
			end := now.Add(LockoutDuration)
			user.LockoutEnd = &end
			user.FailedLoginCount = 0
		}
		if err := u.userRepo.Update(ctx, user); err != nil {
			return TokenOutput{}, err
		}
		if locked {
			return TokenOutput{}, ErrLockedOut
		}
		return TokenOutput{}, ErrInvalidCredentials
	}

	//成功したら失敗回数をリセットして最終ログイン時刻更新
	user.FailedLoginCount = 0
	user.LockoutEnd = nil
	user.LastLoginAt = &now
	if err := u.userRepo.Update(ctx, user); err != nil {
		return TokenOutput{}, err
	}

	return issueToken(u.issuer, *user, now)
}
