package logger

import (
	"context"
	"testing"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud", Format: "json", OutputPath: "stdout"}, config.AppConfig{})
	assert.ErrorContains(t, err, "invalid log level")
}

func TestNew_Console(t *testing.T) {
	log, err := New(config.LogConfig{Level: "debug", Format: "console", OutputPath: "stdout"}, config.AppConfig{Name: "juanheart-api"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))
}

func TestFromContext(t *testing.T) {
	fallback := zap.NewNop()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	scoped := zap.NewExample()
	ctx := WithContext(context.Background(), scoped)
	assert.Same(t, scoped, FromContext(ctx, fallback))
}
