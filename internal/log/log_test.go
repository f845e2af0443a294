package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	t.Run("text format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewWithWriter(&buf, Config{Level: slog.LevelInfo})

		logger.Info("hello", "key", "value")

		out := buf.String()
		if !strings.Contains(out, "hello") {
			t.Errorf("output missing message: %q", out)
		}
		if !strings.Contains(out, "key=value") {
			t.Errorf("output missing attribute: %q", out)
		}
	})

	t.Run("json format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewWithWriter(&buf, Config{JSON: true})

		logger.Info("hello")

		out := buf.String()
		if !strings.Contains(out, `"msg":"hello"`) {
			t.Errorf("output not JSON: %q", out)
		}
	})

	t.Run("level filtering", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewWithWriter(&buf, Config{Level: slog.LevelWarn})

		logger.Debug("quiet")
		logger.Info("also quiet")
		logger.Warn("loud")

		out := buf.String()
		if strings.Contains(out, "quiet") {
			t.Errorf("below-level records not filtered: %q", out)
		}
		if !strings.Contains(out, "loud") {
			t.Errorf("warn record missing: %q", out)
		}
	})
}

func TestNewNop(t *testing.T) {
	t.Parallel()

	logger := NewNop()
	// Must not panic and must not write anywhere observable.
	logger.Info("discarded")
	logger.Error("also discarded")
}
