package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestLoggerAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autopiano.log")
	if err := os.WriteFile(path, []byte("existing line\n"), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}
	var console bytes.Buffer
	l := New(&console, path, false)
	l.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 6, 789_000_000, time.UTC) }
	l.Infof("loaded %d voices", 2)
	l.Warnf("volume %.1f", 0.9)
	l.Debugf("hidden")
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	want := []string{
		"existing line",
		"[2024-03-09 14:05:06.789] [INFO] loaded 2 voices",
		"[2024-03-09 14:05:06.789] [WARN] volume 0.9",
	}
	if len(lines) != len(want) {
		t.Fatalf("log lines = %q", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if got := console.String(); got != "WARN: volume 0.9\n" {
		t.Fatalf("console = %q", got)
	}
}

func TestLoggerDebugToggle(t *testing.T) {
	var console bytes.Buffer
	l := New(&console, "", false)
	l.Debugf("first")
	l.SetDebug(true)
	l.Debugf("beat %d", 3)
	if got := console.String(); got != "[DEBUG] beat 3\n" {
		t.Fatalf("console = %q", got)
	}
}

func TestLoggerFileLineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fmt.log")
	l := New(nil, path, true)
	l.Errorf("boom")
	l.Close()
	raw, _ := os.ReadFile(path)
	re := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}\] \[ERROR\] boom\n$`)
	if !re.Match(raw) {
		t.Fatalf("unexpected line %q", raw)
	}
}

func TestDiscardAndNilAreSafe(t *testing.T) {
	Discard().Errorf("ignored")
	var l *Logger
	l.Infof("ignored")
	l.Debugf("ignored")
	if err := l.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
