package logger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/firasghr/GoProfileEngine/logger"
)

func TestLevels_FilterOutput(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.LevelWarn, &buf)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("sub-level messages emitted:\n%s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("expected messages missing:\n%s", out)
	}
}

func TestSetLevel_AtRuntime(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.LevelError, &buf)

	log.Info("before")
	log.SetLevel(logger.LevelDebug)
	log.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Errorf("suppressed message emitted:\n%s", out)
	}
	if !strings.Contains(out, "after") {
		t.Errorf("message missing after SetLevel:\n%s", out)
	}
}

func TestComponent_PrefixesAndSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.LevelInfo, &buf)
	sup := log.Component("supervisor")
	nested := sup.Component("keepalive")

	sup.Infof("instance %s launched", "abc")
	nested.Info("tick")

	out := buf.String()
	if !strings.Contains(out, "[supervisor] instance abc launched") {
		t.Errorf("component prefix missing:\n%s", out)
	}
	if !strings.Contains(out, "[supervisor.keepalive] tick") {
		t.Errorf("nested component prefix missing:\n%s", out)
	}

	// Raising the level on the child silences the parent too.
	buf.Reset()
	nested.SetLevel(logger.LevelError)
	log.Info("parent message")
	if buf.Len() != 0 {
		t.Errorf("parent not silenced by child SetLevel:\n%s", buf.String())
	}
}
