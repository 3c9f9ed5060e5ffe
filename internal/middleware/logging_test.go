package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	ConfigureLogger(&buf, level, "json")
	t.Cleanup(func() { ConfigureLogger(os.Stdout, "info", "text") })
	return &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var out map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &out))
	return out
}

func TestRequestHandlerAddsContextAttrs(t *testing.T) {
	buf := captureLogs(t, "debug")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, uint(7))
	ctx = context.WithValue(ctx, TraceIDKey, "trace-1")
	Logger.DebugContext(ctx, "hello")

	line := lastLine(t, buf)
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.EqualValues(t, 7, line["user_id"])
	assert.Equal(t, "trace-1", line["trace_id"])
}

func TestConfigureLoggerLevel(t *testing.T) {
	buf := captureLogs(t, "warn")

	Logger.Info("dropped")
	assert.Zero(t, buf.Len())

	Logger.Warn("kept")
	assert.Equal(t, "kept", lastLine(t, buf)["msg"])
}

func TestStructuredLoggerLevelByStatus(t *testing.T) {
	buf := captureLogs(t, "info")

	app := fiber.New()
	app.Use(StructuredLogger())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/missing", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })

	tests := []struct {
		path  string
		level string
		msg   string
	}{
		{"/ok", "INFO", "request handled"},
		{"/missing", "WARN", "request rejected"},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.path, nil))
		require.NoError(t, err)
		resp.Body.Close()

		line := lastLine(t, buf)
		assert.Equal(t, tt.level, line["level"], tt.path)
		assert.Equal(t, tt.msg, line["msg"], tt.path)
		assert.Equal(t, tt.path, line["path"])
	}
}
