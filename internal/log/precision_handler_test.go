package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"strings"
	"testing"
)

// TestPrecisionHandler_RoundsFloats tests that float attributes are rounded.
func TestPrecisionHandler_RoundsFloats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{
			name:  "long float is rounded",
			value: 0.123456789,
			want:  "delta=0.123457",
		},
		{
			name:  "small float is rounded",
			value: 0.000123456789,
			want:  "delta=0.000123",
		},
		{
			name:  "short float is unchanged",
			value: 0.25,
			want:  "delta=0.25",
		},
		{
			name:  "integer is unchanged",
			value: 123456789,
			want:  "delta=123456789",
		},
		{
			name:  "string is unchanged",
			value: "0.123456789",
			want:  "delta=0.123456789",
		},
		{
			name:  "infinity is unchanged",
			value: math.Inf(1),
			want:  "delta=+Inf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewLogger(&buf, true)
			logger.Debug("round", "delta", tt.value)

			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected output to contain %q, got %q", tt.want, buf.String())
			}
		})
	}
}

// TestPrecisionHandler_Groups tests rounding inside groups and WithAttrs.
func TestPrecisionHandler_Groups(t *testing.T) {
	t.Parallel()

	t.Run("rounds inside groups", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, true)
		logger.Debug("ranks", slog.Group("rank", slog.Float64("a.html", 0.3333333333)))

		if !strings.Contains(buf.String(), "rank.a.html=0.333333") {
			t.Errorf("expected rounded group value, got %q", buf.String())
		}
	})

	t.Run("rounds WithAttrs values", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, true).With("damping", 0.8500000001)
		logger.Debug("start")

		if !strings.Contains(buf.String(), "damping=0.85") || strings.Contains(buf.String(), "0.8500000001") {
			t.Errorf("expected rounded attribute, got %q", buf.String())
		}
	})

	t.Run("keeps precision through WithGroup", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, true).WithGroup("iter")
		logger.Debug("round", "delta", 0.1111111111)

		if !strings.Contains(buf.String(), "iter.delta=0.111111") {
			t.Errorf("expected rounded grouped value, got %q", buf.String())
		}
	})
}

// TestNewLogger tests logger levels.
func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("verbose logs debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		NewLogger(&buf, true).Debug("visible")
		if !strings.Contains(buf.String(), "visible") {
			t.Errorf("expected debug output, got %q", buf.String())
		}
	})

	t.Run("quiet drops info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, false)
		logger.Info("hidden")
		logger.Warn("shown")

		if strings.Contains(buf.String(), "hidden") {
			t.Errorf("expected info to be dropped, got %q", buf.String())
		}
		if !strings.Contains(buf.String(), "shown") {
			t.Errorf("expected warn output, got %q", buf.String())
		}
	})

	t.Run("JSON logger rounds", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		NewJSONLogger(&buf, true).Debug("round", "delta", 0.987654321)

		var record map[string]any
		if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
			t.Fatalf("failed to decode JSON log: %v", err)
		}
		if record["delta"] != 0.987654 {
			t.Errorf("expected delta 0.987654, got %v", record["delta"])
		}
	})

	t.Run("nil handler falls back to default", func(t *testing.T) {
		t.Parallel()

		h := NewPrecisionHandler(nil, -1)
		if h.handler == nil {
			t.Error("expected default handler")
		}
		if h.scale != 1 {
			t.Errorf("expected scale 1 for negative precision, got %v", h.scale)
		}
	})
}
