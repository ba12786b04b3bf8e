package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	testCases := []struct {
		level    string
		format   string
		expected zapcore.Level
	}{
		{level: "debug", format: "json", expected: zapcore.DebugLevel},
		{level: "warn", format: "console", expected: zapcore.WarnLevel},
		{level: "error", format: "json", expected: zapcore.ErrorLevel},
		{level: "", format: "", expected: zapcore.InfoLevel},
		{level: "bogus", format: "json", expected: zapcore.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.level+"/"+tc.format, func(t *testing.T) {
			l, err := New(tc.level, tc.format, "signaged")
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tc.expected))
			if tc.expected > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tc.expected-1))
			}
		})
	}
}
