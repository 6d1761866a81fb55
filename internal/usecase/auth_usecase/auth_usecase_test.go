package auth_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"orderapp/internal/domain/model"
	"orderapp/internal/infra/memory"
	"orderapp/internal/repository"
	auth "orderapp/internal/usecase/auth_usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// =====================
// Mock: UserRepository
// =====================

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]model.User)
	return users, args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementTokenVersion(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

// =====================
// Helper
// =====================

type seqID struct{ n int }

func (g *seqID) NewID() string {
	g.n++
	return "user-" + strconv.Itoa(g.n)
}

type stubClock struct{ now time.Time }

func (c *stubClock) Now() time.Time { return c.now }

// 発行内容をそのまま文字列にする
type stubIssuer struct{}

func (stubIssuer) Issue(user model.User, now time.Time) (string, time.Time, error) {
	return "token-for-" + user.Email, now.Add(time.Hour), nil
}

// テストを速くするため平文の前に印をつけるだけ
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

type plainVerifier struct{}

func (plainVerifier) Verify(plain string, hashed string) bool { return hashed == "hashed:"+plain }

var authNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

const goodPassword = "CorrectPW1"

func registerUser(t *testing.T, users repository.UserRepository, email string) model.User {
	t.Helper()
	uc := auth.NewRegisterUserUsecase(users, plainHasher{}, &seqID{}, &stubClock{now: authNow})
	out, err := uc.Execute(context.Background(), auth.RegisterUserInput{Email: email, Password: goodPassword})
	require.NoError(t, err)
	return out.User
}

// =====================
// Register
// =====================

func TestRegister_Success(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)

	email := "user@test.com"

	userRepo.On("FindByEmail", mock.Anything, email).Return(nil, repository.ErrUserNotFound)
	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		// 保存されるユーザーが最低限正しい形かを見る
		return u.Email == email && u.Role == model.RoleUser && u.TokenVersion == 0 && u.PasswordHash == "hashed:"+goodPassword
	})).Return(nil)

	uc := auth.NewRegisterUserUsecase(userRepo, plainHasher{}, &seqID{}, &stubClock{now: authNow})

	// 前後の空白と大文字は正規化される
	out, err := uc.Execute(ctx, auth.RegisterUserInput{Email: "  User@Test.com ", Password: goodPassword})
	assert.NoError(t, err)
	assert.Equal(t, email, out.User.Email)
	assert.Equal(t, "user-1", out.User.ID)
	assert.Equal(t, authNow, out.User.CreatedAt)

	userRepo.AssertExpectations(t)
}

func TestRegister_InputErrors(t *testing.T) {
	cases := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"empty email", "", goodPassword, auth.ErrInvalidEmailFormat},
		{"not an email", "user-at-test", goodPassword, auth.ErrInvalidEmailFormat},
		{"display name", "Bob <bob@test.com>", goodPassword, auth.ErrInvalidEmailFormat},
		{"short password", "user@test.com", "Ab1", auth.ErrPasswordTooShort},
		{"no digit", "user@test.com", "Password", auth.ErrWeakPassword},
		{"no upper", "user@test.com", "password1", auth.ErrWeakPassword},
		{"no lower", "user@test.com", "PASSWORD1", auth.ErrWeakPassword},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			userRepo := new(MockUserRepository)
			uc := auth.NewRegisterUserUsecase(userRepo, plainHasher{}, &seqID{}, &stubClock{now: authNow})

			_, err := uc.Execute(context.Background(), auth.RegisterUserInput{Email: tc.email, Password: tc.password})
			assert.ErrorIs(t, err, tc.want)

			// 入力で落ちるので repo は呼ばれない
			userRepo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
			userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := memory.NewStore().Users()
	registerUser(t, users, "dup@test.com")

	uc := auth.NewRegisterUserUsecase(users, plainHasher{}, &seqID{n: 5}, &stubClock{now: authNow})
	_, err := uc.Execute(context.Background(), auth.RegisterUserInput{Email: "DUP@test.com", Password: goodPassword})
	assert.ErrorIs(t, err, auth.ErrEmailAlreadyExists)
}

// 同時登録はunique違反で返ってくる
func TestRegister_ConflictOnCreate(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("FindByEmail", mock.Anything, "race@test.com").Return(nil, repository.ErrUserNotFound)
	userRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(repository.ErrConflict)

	uc := auth.NewRegisterUserUsecase(userRepo, plainHasher{}, &seqID{}, &stubClock{now: authNow})
	_, err := uc.Execute(context.Background(), auth.RegisterUserInput{Email: "race@test.com", Password: goodPassword})
	assert.ErrorIs(t, err, auth.ErrEmailAlreadyExists)
	userRepo.AssertExpectations(t)
}

func TestRegister_Admin(t *testing.T) {
	users := memory.NewStore().Users()
	uc := auth.NewRegisterUserUsecase(users, plainHasher{}, &seqID{}, &stubClock{now: authNow})

	out, err := uc.ExecuteAdmin(context.Background(), auth.RegisterUserInput{Email: "admin@test.com", Password: goodPassword})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, out.User.Role)
}

// =====================
// Login
// =====================

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	users := memory.NewStore().Users()
	registerUser(t, users, "user@test.com")

	uc := auth.NewLoginUsecase(users, plainVerifier{}, stubIssuer{}, &stubClock{now: authNow})
	out, err := uc.Execute(ctx, auth.LoginInput{Email: "USER@test.com", Password: goodPassword})
	require.NoError(t, err)

	assert.Equal(t, "token-for-user@test.com", out.AccessToken)
	assert.Equal(t, "Bearer", out.TokenType)
	assert.Equal(t, 3600, out.ExpiresIn)

	saved, err := users.FindByEmail(ctx, "user@test.com")
	require.NoError(t, err)
	require.NotNil(t, saved.LastLoginAt)
	assert.Equal(t, authNow, *saved.LastLoginAt)
}

func TestLogin_UnknownEmail(t *testing.T) {
	uc := auth.NewLoginUsecase(memory.NewStore().Users(), plainVerifier{}, stubIssuer{}, &stubClock{now: authNow})
	_, err := uc.Execute(context.Background(), auth.LoginInput{Email: "nobody@test.com", Password: goodPassword})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	users := memory.NewStore().Users()
	registerUser(t, users, "user@test.com")

	clock := &stubClock{now: authNow}
	uc := auth.NewLoginUsecase(users, plainVerifier{}, stubIssuer{}, clock)
	wrong := auth.LoginInput{Email: "user@test.com", Password: "WrongPW1"}

	for i := 1; i < auth.MaxFailedLogins; i++ {
		_, err := uc.Execute(ctx, wrong)
		require.ErrorIs(t, err, auth.ErrInvalidCredentials, "attempt %d", i)
	}

	// 5回目でロック
	_, err := uc.Execute(ctx, wrong)
	assert.ErrorIs(t, err, auth.ErrLockedOut)

	// ロック中は正しいパスワードでも通らない
	_, err = uc.Execute(ctx, auth.LoginInput{Email: "user@test.com", Password: goodPassword})
	assert.ErrorIs(t, err, auth.ErrLockedOut)

	// 期限が過ぎたら通る
	clock.now = authNow.Add(auth.LockoutDuration + time.Second)
	_, err = uc.Execute(ctx, auth.LoginInput{Email: "user@test.com", Password: goodPassword})
	require.NoError(t, err)

	saved, err := users.FindByEmail(ctx, "user@test.com")
	require.NoError(t, err)
	assert.Equal(t, 0, saved.FailedLoginCount)
	assert.Nil(t, saved.LockoutEnd)
}

func TestLogin_UpdateFailure(t *testing.T) {
	userRepo := new(MockUserRepository)
	dbErr := errors.New("db down")

	userRepo.On("FindByEmail", mock.Anything, "user@test.com").Return(&model.User{
		ID:           "u1",
		Email:        "user@test.com",
		PasswordHash: "hashed:" + goodPassword,
		Role:         model.RoleUser,
	}, nil)
	userRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(dbErr)

	uc := auth.NewLoginUsecase(userRepo, plainVerifier{}, stubIssuer{}, &stubClock{now: authNow})
	_, err := uc.Execute(context.Background(), auth.LoginInput{Email: "user@test.com", Password: goodPassword})
	assert.ErrorIs(t, err, dbErr)
	userRepo.AssertExpectations(t)
}

// =====================
// Anonymous token
// =====================

func TestAnonymousToken_PicksOnlyUsers(t *testing.T) {
	users := memory.NewStore().Users()
	reg := auth.NewRegisterUserUsecase(users, plainHasher{}, &seqID{}, &stubClock{now: authNow})
	_, err := reg.ExecuteAdmin(context.Background(), auth.RegisterUserInput{Email: "admin@test.com", Password: goodPassword})
	require.NoError(t, err)
	_, err = auth.NewRegisterUserUsecase(users, plainHasher{}, &seqID{n: 1}, &stubClock{now: authNow}).
		Execute(context.Background(), auth.RegisterUserInput{Email: "b@test.com", Password: goodPassword})
	require.NoError(t, err)
	_, err = auth.NewRegisterUserUsecase(users, plainHasher{}, &seqID{n: 2}, &stubClock{now: authNow}).
		Execute(context.Background(), auth.RegisterUserInput{Email: "c@test.com", Password: goodPassword})
	require.NoError(t, err)

	var gotN int
	uc := auth.NewAnonymousTokenUsecase(users, stubIssuer{}, &stubClock{now: authNow}).
		WithPicker(func(n int) int {
			gotN = n
			return n - 1
		})

	out, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, gotN)
	assert.Equal(t, "c@test.com", out.User.Email)
	assert.Equal(t, model.RoleUser, out.User.Role)
}

func TestAnonymousToken_NoUsers(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("List", mock.Anything).Return([]model.User{{ID: "a", Role: model.RoleAdmin}}, nil)

	uc := auth.NewAnonymousTokenUsecase(userRepo, stubIssuer{}, &stubClock{now: authNow})
	_, err := uc.Execute(context.Background())
	assert.ErrorIs(t, err, auth.ErrNoUsers)
}

// =====================
// Logout
// =====================

func TestLogout(t *testing.T) {
	ctx := context.Background()
	users := memory.NewStore().Users()
	u := registerUser(t, users, "user@test.com")

	uc := auth.NewLogoutUsecase(users)
	require.NoError(t, uc.Execute(ctx, u.ID))

	saved, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.TokenVersion)

	assert.ErrorIs(t, uc.Execute(ctx, ""), auth.ErrUnauthorized)
	assert.ErrorIs(t, uc.Execute(ctx, "missing"), auth.ErrUnauthorized)
}

// =====================
// bcrypt
// =====================

func TestBcryptHasherAndVerifier(t *testing.T) {
	h := auth.NewBcryptPasswordHasher(bcrypt.MinCost)
	v := auth.NewBcryptPasswordVerifier()

	hashed, err := h.Hash(goodPassword)
	require.NoError(t, err)
	assert.NotEqual(t, goodPassword, hashed)
	assert.True(t, v.Verify(goodPassword, hashed))
	assert.False(t, v.Verify("WrongPW1", hashed))
}
