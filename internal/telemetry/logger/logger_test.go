package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNew_JSONFormatProducesJSONHandler(t *testing.T) {
	l := New(Config{Level: "info", Format: "json", Output: "stdout"})
	assert.NotNil(t, l)
}

func TestWithTraceID_ScopesSubsequentLogLines(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithTraceID(context.Background(), "trace-123")
	scoped := FromContext(ctx, base)
	scoped.Info("hello")

	assert.Contains(t, buf.String(), "trace-123")
}

func TestFromContext_NoTraceIDReturnsBaseUnchanged(t *testing.T) {
	base := slog.Default()
	scoped := FromContext(context.Background(), base)
	assert.Same(t, base, scoped)
}
