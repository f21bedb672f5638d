package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerFormatsModuleAndAttrs(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(NewHandler(&out, nil)).With(slog.String("module", "pipeline"))
	logger.Info("pipeline rebuilt", "root", "geometry")

	line := out.String()
	if !strings.Contains(line, "INFO [pipeline] pipeline rebuilt root=geometry") {
		t.Errorf("line = %q", line)
	}
	if strings.Contains(line, "\033[") {
		t.Error("colours written to a non terminal")
	}
}

func TestHandlerLevel(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(NewHandler(&out, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(out.String(), "hidden") || !strings.Contains(out.String(), "shown") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSetupRejectsLevel(t *testing.T) {
	if err := Setup("loud"); err == nil {
		t.Error("expected an error")
	}
}
