package observability_test

import (
	"context"
	"testing"

	"orderapp/internal/config"
	"orderapp/internal/infra/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Level(t *testing.T) {
	log, err := observability.NewLogger(config.Config{LogLevel: "warn", Otel: config.Otel{ServiceName: "test"}})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := observability.NewLogger(config.Config{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestSetup_NoEndpoint(t *testing.T) {
	tp, shutdown, err := observability.Setup(context.Background(), config.Otel{})
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.NoError(t, shutdown(context.Background()))
}
