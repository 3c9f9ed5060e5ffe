// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"foodgram/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Token claims issued by the auth endpoints.
const (
	TokenIssuer   = "foodgram-api"
	TokenAudience = "foodgram-client"
)

// Authentication messages.
const (
	MsgCredentialsMissing = "Учетные данные не были предоставлены."
	MsgInvalidToken       = "Недопустимый токен."
	MsgTokenRevoked       = "Токен отозван."
)

var (
	errNoToken      = errors.New("no token")
	errInvalidToken = errors.New("invalid token")
)

// AccessClaims is the validated subset of a token's claims.
type AccessClaims struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

// TokenRevocations reports whether a token id has been revoked (logout).
type TokenRevocations interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthOptions configures Authenticate.
type AuthOptions struct {
	Secret      string
	Revocations TokenRevocations
	// AllowQueryToken accepts ?token= for clients that cannot set headers (websocket).
	AllowQueryToken bool
}

// ExtractToken returns the raw token from "Token <jwt>" or "Bearer <jwt>".
func ExtractToken(authHeader string) (string, bool) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 {
		return "", false
	}
	switch parts[0] {
	case "Token", "Bearer":
		return parts[1], true
	default:
		return "", false
	}
}

// ParseAccessToken validates signature, expiry, issuer, audience and subject.
func ParseAccessToken(secret, raw string) (*AccessClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, errInvalidToken
	}

	out := &AccessClaims{UserID: uint(userID)}
	if jti, ok := claims["jti"].(string); ok {
		out.JTI = jti
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// Authenticate resolves the caller from the request, checking revocation.
// errNoToken is returned when the request carries no credentials at all.
func Authenticate(c *fiber.Ctx, opts AuthOptions) (*AccessClaims, error) {
	raw := ""
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		token, ok := ExtractToken(header)
		if !ok {
			return nil, errInvalidToken
		}
		raw = token
	}
	if raw == "" && opts.AllowQueryToken {
		raw = c.Query("token")
	}
	if raw == "" {
		return nil, errNoToken
	}

	claims, err := ParseAccessToken(opts.Secret, raw)
	if err != nil {
		return nil, err
	}
	if claims.JTI != "" && opts.Revocations != nil {
		revoked, err := opts.Revocations.IsRevoked(c.UserContext(), claims.JTI)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "token revocation check failed", "error", err)
		} else if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// ErrTokenRevoked is returned for tokens invalidated by logout.
var ErrTokenRevoked = errors.New("token revoked")

// SetUser stores the caller in locals and in the user context for logging.
func SetUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

// AuthRequired rejects requests without a valid token.
func AuthRequired(opts AuthOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := Authenticate(c, opts)
		if err != nil {
			return respondAuthError(c, err)
		}
		SetUser(c, claims.UserID)
		c.Locals("tokenClaims", claims)
		return c.Next()
	}
}

// AuthOptional identifies the caller when a valid token is present and
// otherwise continues anonymously. A malformed or revoked token is still rejected.
func AuthOptional(opts AuthOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := Authenticate(c, opts)
		switch {
		case errors.Is(err, errNoToken):
			return c.Next()
		case err != nil:
			return respondAuthError(c, err)
		}
		SetUser(c, claims.UserID)
		c.Locals("tokenClaims", claims)
		return c.Next()
	}
}

func respondAuthError(c *fiber.Ctx, err error) error {
	msg := MsgInvalidToken
	switch {
	case errors.Is(err, errNoToken):
		msg = MsgCredentialsMissing
	case errors.Is(err, ErrTokenRevoked):
		msg = MsgTokenRevoked
	}
	return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
}
