package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"collaborative-workspace/internal/domain"
	"collaborative-workspace/internal/repository"
	"collaborative-workspace/internal/repository/mocks"
	"collaborative-workspace/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_Register_Success(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, err := service.NewAuthService(mockUserRepo, "very-secret-key", 1)
	require.NoError(t, err, "创建 AuthService 不应失败")

	ctx := context.Background()
	username := "newbie"
	password := "StrongPass123"
	email := "newbie@example.com"

	// Register 返回前会清空密码字段，哈希在 Save 时捕获、调用结束后再断言
	var savedHash string
	mockUserRepo.On("Save", ctx, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) { // 模拟数据库填充字段
			userArg := args.Get(1).(*domain.User)
			assert.Equal(t, username, userArg.Username)
			assert.Equal(t, email, userArg.Email)
			savedHash = userArg.Password
			userArg.ID = 5
			userArg.CreatedAt = time.Now().Add(-time.Second)
			userArg.UpdatedAt = time.Now().Add(-time.Second)
		}).
		Return(nil).
		Once()

	registeredUser, err := authService.Register(ctx, username, password, email)

	assert.NoError(t, err)
	require.NotNil(t, registeredUser)
	assert.Equal(t, uint(5), registeredUser.ID)
	assert.Equal(t, username, registeredUser.Username)
	assert.Empty(t, registeredUser.Password, "返回的用户密码应为空")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(savedHash), []byte(password)), "密码应被正确哈希")

	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	mockUserRepo.On("Save", ctx, mock.AnythingOfType("*domain.User")).
		Return(repository.ErrDuplicateEntry).
		Once()

	_, err := authService.Register(ctx, "existingUser", "password", "email@test.com")

	assert.ErrorIs(t, err, service.ErrRegistrationFailed)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_EmptyInput(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)

	_, err := authService.Register(context.Background(), "", "", "email@test.com")

	assert.ErrorIs(t, err, service.ErrInvalidInput)
	mockUserRepo.AssertNotCalled(t, "Save")
}

func TestAuthService_Login_Success(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	password := "StrongPass123"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)

	mockUserRepo.On("FindByUsername", ctx, "alice").
		Return(&domain.User{ID: 7, Username: "alice", Password: string(hash), Email: "alice@example.com"}, nil).
		Once()

	token, user, err := authService.Login(ctx, "alice", password)

	assert.NoError(t, err)
	assert.NotEmpty(t, token, "登录成功应返回 JWT")
	require.NotNil(t, user)
	assert.Equal(t, uint(7), user.ID)
	assert.Empty(t, user.Password)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.DefaultCost)
	mockUserRepo.On("FindByUsername", ctx, "alice").
		Return(&domain.User{ID: 7, Username: "alice", Password: string(hash)}, nil).
		Once()

	token, user, err := authService.Login(ctx, "alice", "wrong")

	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)
	assert.Empty(t, token)
	assert.Nil(t, user)
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "ghost").
		Return(nil, repository.ErrUserNotFound).
		Once()

	// 用户不存在和密码错误对客户端不可区分
	_, _, err := authService.Login(ctx, "ghost", "whatever")
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)
}

func TestAuthService_Login_RepositoryError(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "alice").
		Return(nil, errors.New("connection refused")).
		Once()

	_, _, err := authService.Login(ctx, "alice", "password")
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)
}

func TestNewAuthService_EmptySecret(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	_, err := service.NewAuthService(mockUserRepo, "", 1)
	assert.Error(t, err, "空密钥应拒绝创建")
}
