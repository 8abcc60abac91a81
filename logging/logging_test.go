package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-auth-stateless/logging"
)

func TestZapLogger_WritesKeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.NewZapLogger(zap.New(core)).Named("auth")

	logger.Debug("debug message", "k", "v")
	logger.Info("info message", "user_id", "123")
	logger.Warn("warn message")
	logger.Error("error message", "code", 500)

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "auth", entries[0].LoggerName)
	assert.Equal(t, "v", entries[0].ContextMap()["k"])

	assert.Equal(t, "123", entries[1].ContextMap()["user_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.EqualValues(t, 500, entries[3].ContextMap()["code"])
}

func TestZapLogger_NilFallsBackToNop(t *testing.T) {
	logger := logging.NewZapLogger(nil)
	assert.NotPanics(t, func() {
		logger.Info("ignored", "k", "v")
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  logging.Config
	}{
		{name: "json", cfg: logging.Config{Level: "info", Format: "json"}},
		{name: "console", cfg: logging.Config{Level: "debug", Format: "console"}},
		{name: "unknown level", cfg: logging.Config{Level: "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := logging.New(tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, l)
		})
	}
}
