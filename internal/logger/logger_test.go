package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestUseRoutesLevels(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	Use(zap.New(core))
	defer Use(nil)

	Infof("dropped %d", 1)
	Warnf("pattern %s unknown", "bogus")
	Errorf("sink failed: %v", "boom")

	if logs.Len() != 2 {
		t.Fatalf("expected 2 entries at warn+, got %d", logs.Len())
	}
	if got := logs.All()[0].Message; got != "pattern bogus unknown" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "socsim.log")
	if err := Init(true, "debug", path, false); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer Use(nil)

	Debugf("hello %s", "file")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello file") || !strings.Contains(string(data), "DEBUG") {
		t.Fatalf("unexpected log content: %q", data)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if parseLevel("verbose") != zapcore.InfoLevel {
		t.Fatalf("expected info fallback")
	}
	if parseLevel("WARNING") != zapcore.WarnLevel {
		t.Fatalf("expected warn for WARNING")
	}
}
