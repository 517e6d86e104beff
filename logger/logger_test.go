package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	assert.Equal(t, DefaultLevel, cfg.Level)
	assert.Equal(t, DefaultFormat, cfg.Format)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
}

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		t.Run(format, func(t *testing.T) {
			log, err := New(Config{Level: "debug", Format: format, OutputPaths: []string{"stderr"}})
			require.NoError(t, err)
			require.NotNil(t, log)
			log.With(String("scan_id", "abc")).Debug("ready")
		})
	}
}

func TestNew_BadOutputPath(t *testing.T) {
	_, err := New(Config{OutputPaths: []string{"/nonexistent-dir/x/y.log"}})
	assert.Error(t, err)
}

func TestWith_AttachesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromZap(zap.New(core)).With(String("scan_id", "abc"))

	log.Warn("close page failed", Error(errors.New("boom")), Int("attempt", 2))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["scan_id"])
	assert.Equal(t, "boom", fields["error"])
	assert.EqualValues(t, 2, fields["attempt"])
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Info("discarded")
	assert.NoError(t, log.Sync())
}
