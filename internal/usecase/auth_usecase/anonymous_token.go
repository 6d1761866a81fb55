package auth

import (
	"context"
	"math/rand/v2"

	"orderapp/internal/domain/model"
	"orderapp/internal/repository"
)

// デモ用：ログインなしでUSERのトークンを渡す
type AnonymousTokenUsecase struct {
	userRepo repository.UserRepository
	issuer   AccessTokenIssuer
	clock    Clock
	pick     func(n int) int
}

func NewAnonymousTokenUsecase(
	userRepo repository.UserRepository,
	issuer AccessTokenIssuer,
	clock Clock,
) *AnonymousTokenUsecase {
	return &AnonymousTokenUsecase{
		userRepo: userRepo,
		issuer:   issuer,
		clock:    clock,
		pick:     rand.IntN,
	}
}

// テストで選ばれるユーザーを固定する
func (u *AnonymousTokenUsecase) WithPicker(pick func(n int) int) *AnonymousTokenUsecase {
	u.pick = pick
	return u
}

func (u *AnonymousTokenUsecase) Execute(ctx context.Context) (TokenOutput, error) {
	users, err := u.userRepo.List(ctx)
	if err != nil {
		return TokenOutput{}, err
	}

	//ADMINは配らない
	candidates := make([]model.User, 0, len(users))
	for _, usr := range users {
		if usr.Role == model.RoleUser {
			candidates = append(candidates, usr)
		}
	}
	if len(candidates) == 0 {
		return TokenOutput{}, ErrNoUsers
	}

	user := candidates[u.pick(len(candidates))]
	return issueToken(u.issuer, user, u.clock.Now())
}
