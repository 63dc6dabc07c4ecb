package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want zap.AtomicLevel
	}{
		{"", zap.NewAtomicLevelAt(zap.InfoLevel)},
		{"DEBUG", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{" warn ", zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"verbose", zap.NewAtomicLevelAt(zap.InfoLevel)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want.Level(), parseLevel(tt.raw).Level())
		})
	}
}

func TestNormalizeEncoding(t *testing.T) {
	assert.Equal(t, "console", normalizeEncoding("Console"))
	assert.Equal(t, "json", normalizeEncoding(""))
	assert.Equal(t, "json", normalizeEncoding("xml"))
}

func TestNew(t *testing.T) {
	l, err := New(Config{Level: "error", Encoding: "console"})
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zap.WarnLevel))
	assert.True(t, l.Core().Enabled(zap.ErrorLevel))
}
