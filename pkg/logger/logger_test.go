package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestL_Uninitialized(t *testing.T) {
	saved := Log
	Log = nil
	t.Cleanup(func() { Log = saved })

	assert.NotNil(t, L())
	assert.NotPanics(t, func() {
		L().Info("dropped")
		Sync()
	})
}

func TestInit(t *testing.T) {
	saved := Log
	t.Cleanup(func() { Log = saved })

	tests := []struct {
		name  string
		opts  Options
		level zapcore.Level
	}{
		{"production json", Options{Level: "warn", Format: "json"}, zapcore.WarnLevel},
		{"development console", Options{Level: "DEBUG", Format: "console", Development: true}, zapcore.DebugLevel},
		{"unknown level falls back to info", Options{Level: "verbose"}, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, Init(tt.opts))
			assert.True(t, L().Core().Enabled(tt.level))
			if tt.level > zapcore.DebugLevel {
				assert.False(t, L().Core().Enabled(tt.level-1))
			}
		})
	}
}
