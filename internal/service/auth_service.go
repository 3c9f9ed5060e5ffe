package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"foodgram/internal/config"
	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/repository"
	"foodgram/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 7 * 24 * time.Hour

// Authentication messages.
const (
	MsgInvalidCredentials = "Невозможно войти с предоставленными учетными данными."
	MsgWrongPassword      = "Неправильный пароль."
)

// TokenRevoker blacklists a token id until it expires.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService registers users and issues and revokes their tokens.
type AuthService struct {
	users   repository.UserRepository
	secret  string
	ttl     time.Duration
	revoker TokenRevoker
	now     func() time.Time
}

func NewAuthService(users repository.UserRepository, cfg *config.Config, revoker TokenRevoker) *AuthService {
	ttl := defaultTokenTTL
	secret := ""
	if cfg != nil {
		secret = cfg.JWTSecret
		if cfg.TokenTTLHours > 0 {
			ttl = time.Duration(cfg.TokenTTLHours) * time.Hour
		}
	}
	return &AuthService{users: users, secret: secret, ttl: ttl, revoker: revoker, now: time.Now}
}

type RegisterInput struct {
	Email     string `json:"email" validate:"required,notblank,email,max=254"`
	Username  string `json:"username" validate:"required,notblank,max=150,username"`
	FirstName string `json:"first_name" validate:"required,notblank,max=150"`
	LastName  string `json:"last_name" validate:"required,notblank,max=150"`
	Password  string `json:"password" validate:"required"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

type SetPasswordInput struct {
	NewPassword     string `json:"new_password" validate:"required"`
	CurrentPassword string `json:"current_password" validate:"required"`
}

// Register creates an account. Email and username must be unused.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.RegisteredUser, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := validation.Validate(in); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword("password", in.Password); err != nil {
		return nil, err
	}

	if existing, err := s.users.GetByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewFieldValidationError(map[string]string{"email": repository.MsgEmailTaken})
	}
	if existing, err := s.users.GetByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewFieldValidationError(map[string]string{"username": repository.MsgUsernameTaken})
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return &models.RegisteredUser{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// Login checks credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (string, error) {
	if err := validation.Validate(in); err != nil {
		return "", err
	}
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		return "", err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		return "", models.NewFieldValidationError(map[string]string{"non_field_errors": MsgInvalidCredentials})
	}
	return s.generateToken(user.ID, user.Username)
}

// Logout revokes the token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.AccessClaims) error {
	if claims == nil || claims.JTI == "" || s.revoker == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.JTI, ttl); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// SetPassword replaces the password after checking the current one.
func (s *AuthService) SetPassword(ctx context.Context, userID uint, in SetPasswordInput) error {
	if err := validation.Validate(in); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)) != nil {
		return models.NewFieldValidationError(map[string]string{"current_password": MsgWrongPassword})
	}
	if err := validation.ValidatePassword("new_password", in.NewPassword); err != nil {
		return err
	}
	hash, err := HashPassword(in.NewPassword)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *AuthService) generateToken(userID uint, username string) (string, error) {
	if s.secret == "" {
		return "", models.NewInternalError(fmt.Errorf("JWT secret not configured"))
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      middleware.TokenIssuer,
		"aud":      middleware.TokenAudience,
		"exp":      now.Add(s.ttl).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}
