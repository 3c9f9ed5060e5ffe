package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"foodgram/internal/config"
	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/repository"
	"foodgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRevoker struct {
	mock.Mock
}

func (m *mockRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	args := m.Called(ctx, jti, ttl)
	return args.Error(0)
}

const testSecret = "test-secret-with-enough-entropy-0123456789"

func newAuthService(t *testing.T) (*AuthService, repository.UserRepository, *revokerStub) {
	t.Helper()
	users := repository.NewUserRepository(testutil.NewTestDB(t))
	revoker := &revokerStub{}
	svc := NewAuthService(users, &config.Config{JWTSecret: testSecret, TokenTTLHours: 2}, revoker)
	return svc, users, revoker
}

func registerInput() RegisterInput {
	return RegisterInput{
		Email:     "cook@example.com",
		Username:  "cook.42",
		FirstName: "Ivan",
		LastName:  "Petrov",
		Password:  "s3cure-pass",
	}
}

func TestAuthServiceRegister(t *testing.T) {
	svc, users, _ := newAuthService(t)
	ctx := context.Background()

	out, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	assert.NotZero(t, out.ID)
	assert.Equal(t, "cook@example.com", out.Email)
	assert.Equal(t, "cook.42", out.Username)

	stored, err := users.GetByID(ctx, out.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cure-pass", stored.Password)
	assert.False(t, stored.IsAdmin)

	t.Run("duplicate email", func(t *testing.T) {
		in := registerInput()
		in.Username = "other"
		_, err := svc.Register(ctx, in)
		appErr := assertCode(t, err, models.CodeValidation)
		assert.Equal(t, repository.MsgEmailTaken, appErr.Fields["email"])
	})

	t.Run("duplicate username", func(t *testing.T) {
		in := registerInput()
		in.Email = "other@example.com"
		_, err := svc.Register(ctx, in)
		appErr := assertCode(t, err, models.CodeValidation)
		assert.Equal(t, repository.MsgUsernameTaken, appErr.Fields["username"])
	})
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	svc, _, _ := newAuthService(t)

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"bad username", func(in *RegisterInput) { in.Username = "has space" }, "username"},
		{"missing first name", func(in *RegisterInput) { in.FirstName = "" }, "first_name"},
		{"short password", func(in *RegisterInput) { in.Password = "short" }, "password"},
		{"numeric password", func(in *RegisterInput) { in.Password = "1234567890" }, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := registerInput()
			tt.mutate(&in)
			_, err := svc.Register(context.Background(), in)
			appErr := assertCode(t, err, models.CodeValidation)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestAuthServiceLoginAndLogout(t *testing.T) {
	svc, _, revoker := newAuthService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	token, err := svc.Login(ctx, LoginInput{Email: "cook@example.com", Password: "s3cure-pass"})
	require.NoError(t, err)

	claims, err := middleware.ParseAccessToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.NotEmpty(t, claims.JTI)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), claims.ExpiresAt, time.Minute)

	require.NoError(t, svc.Logout(ctx, claims))
	assert.Equal(t, claims.JTI, revoker.jti)
	assert.Greater(t, revoker.ttl, time.Hour)

	for _, in := range []LoginInput{
		{Email: "cook@example.com", Password: "wrong-password"},
		{Email: "ghost@example.com", Password: "s3cure-pass"},
	} {
		_, err := svc.Login(ctx, in)
		appErr := assertCode(t, err, models.CodeValidation)
		assert.Equal(t, MsgInvalidCredentials, appErr.Fields["non_field_errors"])
	}
}

func TestAuthServiceLogoutRevokerFailure(t *testing.T) {
	revoker := new(mockRevoker)
	revoker.On("Revoke", mock.Anything, "jti-1", mock.AnythingOfType("time.Duration")).
		Return(errors.New("redis down")).Once()
	svc := NewAuthService(repository.NewUserRepository(testutil.NewTestDB(t)),
		&config.Config{JWTSecret: testSecret, TokenTTLHours: 2}, revoker)

	err := svc.Logout(context.Background(), &middleware.AccessClaims{UserID: 1, JTI: "jti-1", ExpiresAt: time.Now().Add(time.Hour)})
	assertCode(t, err, models.CodeInternal)
	revoker.AssertExpectations(t)
}

func TestAuthServiceLogoutExpiredToken(t *testing.T) {
	svc, _, revoker := newAuthService(t)
	err := svc.Logout(context.Background(), &middleware.AccessClaims{UserID: 1, JTI: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	assert.Empty(t, revoker.jti)
}

func TestAuthServiceSetPassword(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	err = svc.SetPassword(ctx, registered.ID, SetPasswordInput{NewPassword: "brand-new-pass", CurrentPassword: "wrong"})
	appErr := assertCode(t, err, models.CodeValidation)
	assert.Equal(t, MsgWrongPassword, appErr.Fields["current_password"])

	err = svc.SetPassword(ctx, registered.ID, SetPasswordInput{NewPassword: "short", CurrentPassword: "s3cure-pass"})
	appErr = assertCode(t, err, models.CodeValidation)
	assert.Contains(t, appErr.Fields, "new_password")

	require.NoError(t, svc.SetPassword(ctx, registered.ID, SetPasswordInput{NewPassword: "brand-new-pass", CurrentPassword: "s3cure-pass"}))
	_, err = svc.Login(ctx, LoginInput{Email: "cook@example.com", Password: "brand-new-pass"})
	require.NoError(t, err)
}

func TestAuthServiceRequiresSecret(t *testing.T) {
	users := repository.NewUserRepository(testutil.NewTestDB(t))
	svc := NewAuthService(users, &config.Config{}, nil)
	_, err := svc.Register(context.Background(), registerInput())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginInput{Email: "cook@example.com", Password: "s3cure-pass"})
	assertCode(t, err, models.CodeInternal)
}
