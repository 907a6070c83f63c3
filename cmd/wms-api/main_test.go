package main

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSigningSecretPrefersConfigured(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	require.Equal(t, "s3cret", signingSecret("s3cret", zap.New(core)))
	require.Zero(t, logs.Len())
}

func TestSigningSecretGeneratesEphemeralWhenUnset(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logr := zap.New(core)

	first := signingSecret("", logr)
	second := signingSecret("", logr)
	require.NotEmpty(t, first)
	require.NotEqual(t, first, second)
	require.Equal(t, 2, logs.FilterMessage("TILES_SIGNED_URL_SECRET not set, using an ephemeral secret").Len())
}
