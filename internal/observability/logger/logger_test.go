package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromFallsBackToProcessLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Set(zap.New(core))

	From(context.Background()).Info("hello")
	require.Equal(t, 1, logs.Len())
}

func TestToContextScopesFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	scoped := zap.New(core).With(RequestID("req-1"))
	ctx := ToContext(context.Background(), scoped)

	From(ctx).Info("scoped")
	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
}

func TestFingerprintNeverLeaksRaw(t *testing.T) {
	raw := "super-secret-code"
	fp := Fingerprint(raw)
	require.Len(t, fp, 8)
	require.NotContains(t, fp, raw)
	require.Equal(t, fp, Fingerprint(raw))
	require.Empty(t, Fingerprint(""))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "debug", parseLevel("DEBUG").String())
	require.Equal(t, "warn", parseLevel("warning").String())
	require.Equal(t, "info", parseLevel("nope").String())
}

func TestMask(t *testing.T) {
	require.Equal(t, "", Mask(""))
	require.Equal(t, "***", Mask("bob"))
	require.Equal(t, "u…r", Mask("User"))
	require.Equal(t, "j…@e….com", Mask(" JDoe@Example.com "))
	require.Equal(t, "a@e….org", Mask("a@example.org"))
}
