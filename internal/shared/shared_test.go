package shared

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, _ := GenerateState()

	if a == "" || a == b {
		t.Errorf("expected distinct non-empty states, got %q and %q", a, b)
	}
	if strings.ContainsAny(a, "+/=") {
		t.Errorf("state should be URL safe, got %q", a)
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	if err := SetLogLevel(logger, "warn"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if logger.GetLevel() != log.WarnLevel {
		t.Errorf("expected warn level, got %v", logger.GetLevel())
	}

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}

	if err := SetLogLevel(logger, "loud"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	if err := SetLogLevel(logger, ""); err != nil {
		t.Errorf("empty level should be ignored, got %v", err)
	}
}

func TestLogStyles(t *testing.T) {
	styles := LogStyles()

	for _, level := range []log.Level{log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel} {
		badge := styles.Levels[level].String()
		if !strings.Contains(badge, strings.ToUpper(level.String())[:4]) {
			t.Errorf("expected %s badge, got %q", level, badge)
		}
	}

	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Info("styled", "err", "boom")
	if !strings.Contains(buf.String(), "styled") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}
