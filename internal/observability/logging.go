// Package observability holds the logging, metrics and tracing plumbing
// shared by the repository, service and realtime layers.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the sink for repository and socket logs. The middleware package
// swaps in its request-aware logger at init.
var Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger replaces Logger. nil is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		Logger = l
	}
}

// Per-row success logs can be switched off; failures are always logged.
var (
	LogRepoWrites    = true
	LogSocketTraffic = true
)

// RepoLogger tags repository logs with the table they touch.
type RepoLogger struct {
	table string
}

func NewRepoLogger(table string) RepoLogger {
	return RepoLogger{table: table}
}

// Write logs a committed mutation. args are slog key/value pairs.
func (l RepoLogger) Write(ctx context.Context, op string, args ...any) {
	if !LogRepoWrites {
		return
	}
	Logger.InfoContext(ctx, "repository "+op,
		append([]any{slog.String("table", l.table), slog.String("operation", op)}, args...)...)
}

// Fail logs a mutation that did not commit.
func (l RepoLogger) Fail(ctx context.Context, op string, err error) {
	Logger.ErrorContext(ctx, "repository "+op+" failed",
		slog.String("table", l.table),
		slog.String("operation", op),
		slog.Any("error", err),
	)
}

// SocketLogger tags realtime logs with the hub name.
type SocketLogger struct {
	hub string
}

func NewSocketLogger(hub string) SocketLogger {
	return SocketLogger{hub: hub}
}

// Event logs a connection lifecycle event such as "connected" or "disconnected".
func (l SocketLogger) Event(ctx context.Context, userID uint, event string, args ...any) {
	if !LogSocketTraffic {
		return
	}
	Logger.InfoContext(ctx, "websocket "+event,
		append([]any{slog.String("hub", l.hub), slog.Uint64("user_id", uint64(userID))}, args...)...)
}

// Fail logs a socket error for userID during event.
func (l SocketLogger) Fail(ctx context.Context, userID uint, err error, event string) {
	Logger.ErrorContext(ctx, "websocket "+event+" failed",
		slog.String("hub", l.hub),
		slog.Uint64("user_id", uint64(userID)),
		slog.Any("error", err),
	)
}
