package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContextCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core)).WithComponent("journal")

	ctx := WithLogger(context.Background(), l.With("tenant", "acme"))
	Info(ctx, "entry posted", "entry_id", "2025-01-001")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "entry posted", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "journal", fields["component"])
	assert.Equal(t, "acme", fields["tenant"])
	assert.Equal(t, "2025-01-001", fields["entry_id"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "nonsense", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.False(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
}

func TestFromContextDefault(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}
