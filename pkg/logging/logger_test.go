package logging

import (
	"context"
	"errors"
	"testing"

	"dex_trader/pkg/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"debug", "debug", false},
		{"INFO", "info", false},
		{"", "info", false},
		{"warning", "warn", false},
		{"error", "error", false},
		{"verbose", "info", true},
	}
	for _, tt := range tests {
		lvl, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
		assert.Equal(t, tt.want, lvl.String())
	}
}

func TestZapLogger_Fields(t *testing.T) {
	obsCore, logs := observer.New(zap.DebugLevel)
	logger := NewFromCore(obsCore)

	logger.Info("estimate", "market", "0xabc", "amount", 5, "dangling")
	logger.WithField("stream", "orderbook").Warn("reconnect", "err", errors.New("eof"))
	logger.WithFields(map[string]interface{}{"a": 1}).Debug("fields")

	entries := logs.All()
	require.Len(t, entries, 3)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "0xabc", ctx["market"])
	assert.NotContains(t, ctx, "dangling")

	ctx = entries[1].ContextMap()
	assert.Equal(t, "orderbook", ctx["stream"])
	assert.Equal(t, "eof", ctx["err"])

	assert.Equal(t, int64(1), entries[2].ContextMap()["a"])
}

func TestZapLogger_OTelBridge(t *testing.T) {
	tel, err := telemetry.Setup("test-logger")
	require.NoError(t, err)
	defer func() {
		_ = tel.Shutdown(context.Background())
	}()

	logger, err := NewZapLogger("DEBUG")
	require.NoError(t, err)

	logger.Info("bridged", "key", "value")
	logger.Debug("debug message", "status", "testing")

	_ = logger.Sync()
}

func TestGlobalLogger(t *testing.T) {
	obsCore, logs := observer.New(zap.InfoLevel)
	prev := GetGlobalLogger()
	SetGlobalLogger(NewFromCore(obsCore))
	defer SetGlobalLogger(prev)

	Info("hello", "k", "v")
	Debug("filtered")
	assert.Equal(t, 1, logs.Len())
}
