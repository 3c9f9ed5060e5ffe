package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(_ context.Context, jti string) (bool, error) {
	return r[jti], nil
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func validClaims(userID uint, exp time.Duration, jti string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": TokenIssuer,
		"aud": TokenAudience,
		"exp": time.Now().Add(exp).Unix(),
		"iat": time.Now().Unix(),
		"jti": jti,
	}
}

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	opts := AuthOptions{Secret: testSecret, Revocations: revokedSet{"revoked-jti": true}}

	app.Get("/test", AuthRequired(opts), func(c *fiber.Ctx) error {
		userID := c.Locals("userID")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"userID": userID})
	})

	wrongIssuer := validClaims(123, time.Hour, "a")
	wrongIssuer["iss"] = "someone-else"
	noExpiry := validClaims(123, time.Hour, "b")
	delete(noExpiry, "exp")

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID uint
		expectedError  string
	}{
		{
			name:           "Bearer scheme",
			authHeader:     "Bearer " + signToken(t, validClaims(123, time.Hour, "ok")),
			expectedStatus: http.StatusOK,
			expectedUserID: 123,
		},
		{
			name:           "Token scheme",
			authHeader:     "Token " + signToken(t, validClaims(7, time.Hour, "ok")),
			expectedStatus: http.StatusOK,
			expectedUserID: 7,
		},
		{
			name:           "Missing Header",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  MsgCredentialsMissing,
		},
		{
			name:           "Invalid Format",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  MsgInvalidToken,
		},
		{
			name:           "Malformed Token",
			authHeader:     "Bearer malformed.token.here",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + signToken(t, validClaims(123, -time.Hour, "old")),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong issuer",
			authHeader:     "Bearer " + signToken(t, wrongIssuer),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Missing expiry",
			authHeader:     "Bearer " + signToken(t, noExpiry),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Revoked token",
			authHeader:     "Bearer " + signToken(t, validClaims(123, time.Hour, "revoked-jti")),
			expectedStatus: http.StatusUnauthorized,
			expectedError:  MsgTokenRevoked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, float64(tt.expectedUserID), body["userID"])
			} else if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, body["errors"])
			}
		})
	}
}

func TestAuthOptional(t *testing.T) {
	app := fiber.New()
	app.Get("/test", AuthOptional(AuthOptions{Secret: testSecret}), func(c *fiber.Ctx) error {
		uid, _ := c.Locals("userID").(uint)
		return c.JSON(fiber.Map{"userID": uid})
	})

	t.Run("anonymous passes", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("valid token identifies caller", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Token "+signToken(t, validClaims(42, time.Hour, "x")))
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, float64(42), body["userID"])
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Token nonsense")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAuthRequired_QueryToken(t *testing.T) {
	app := fiber.New()

	app.Get("/ws-test", AuthRequired(AuthOptions{Secret: testSecret, AllowQueryToken: true}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/no-query", AuthRequired(AuthOptions{Secret: testSecret}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	token := signToken(t, validClaims(1, time.Hour, "q"))

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{"Token via Query Param", "/ws-test?token=" + token, http.StatusOK},
		{"Query Param not accepted", "/no-query?token=" + token, http.StatusUnauthorized},
		{"Missing Token", "/ws-test", http.StatusUnauthorized},
		{"Invalid Token", "/ws-test?token=invalid-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestExtractToken(t *testing.T) {
	tok, ok := ExtractToken("Token abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	tok, ok = ExtractToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = ExtractToken("Basic abc")
	assert.False(t, ok)

	_, ok = ExtractToken("Token")
	assert.False(t, ok)
}
