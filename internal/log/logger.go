// Package log provides structured event logging.
// Events are written as JSON lines to a size-rotated file, since the
// terminal UI owns stdout.
package log

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Event name constants.
const (
	EventSessionRestored       = "session_restored"
	EventSignIn                = "sign_in"
	EventSignUp                = "sign_up"
	EventSignOut               = "sign_out"
	EventTokenRefreshed        = "token_refreshed"
	EventThreadsLoaded         = "threads_loaded"
	EventThreadCreated         = "thread_created"
	EventMessageInserted       = "message_inserted"
	EventTriggerAcked          = "trigger_acked"
	EventSendFailed            = "send_failed"
	EventSubscriptionStarted   = "subscription_started"
	EventSubscriptionStopped   = "subscription_stopped"
	EventSubscriptionReconnect = "subscription_reconnect"
	EventSubscriptionTrace     = "subscription_trace"
	EventStaleResult           = "stale_result_dropped"
)

// Options controls the log file.
type Options struct {
	Level      string // debug | info | warn | error
	MaxSizeMB  int
	MaxAgeDays int
}

// Logger writes structured events.
type Logger struct {
	z *zap.Logger
}

// NewLogger creates a Logger that writes to logs/threadline.log inside dir.
// Creates the logs/ directory if it does not already exist.
func NewLogger(dir string, opts Options) (*Logger, error) {
	logsDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(logsDir, "threadline.log"),
			MaxSize:  opts.MaxSizeMB,
			MaxAge:   opts.MaxAgeDays,
			Compress: true,
		}),
		level,
	)

	return &Logger{z: zap.New(core)}, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Event writes an info entry tagged with the event name.
func (l *Logger) Event(event string, fields ...zap.Field) {
	l.z.Info(event, append(fields, zap.String("event", event))...)
}

// Debug writes a debug entry tagged with the event name.
func (l *Logger) Debug(event string, fields ...zap.Field) {
	l.z.Debug(event, append(fields, zap.String("event", event))...)
}

// Error writes an error entry tagged with the event name.
func (l *Logger) Error(event string, err error, fields ...zap.Field) {
	l.z.Error(event, append(fields, zap.String("event", event), zap.Error(err))...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
