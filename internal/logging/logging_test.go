package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewConfig_Levels(t *testing.T) {
	assert.Equal(t, zap.InfoLevel, NewConfig(false).Level.Level())
	assert.Equal(t, zap.DebugLevel, NewConfig(true).Level.Level())
}

func TestNew(t *testing.T) {
	logger, err := New(true)
	require.NoError(t, err)
	defer logger.Sync()

	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}
