package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewDefault(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, logger.Logger)
}

func TestWithComponent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := Wrap(zap.New(core)).WithComponent("scanner")

	logger.Warn("archive failed", zap.String("archive", "Clock"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "scanner", entries[0].LoggerName)
	assert.Equal(t, "Clock", entries[0].ContextMap()["archive"])
}

func TestWrapNil(t *testing.T) {
	assert.NotNil(t, Wrap(nil).Logger)
}
