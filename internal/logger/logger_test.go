package logger

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesOutputAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "marbles.txt")
	var buf bytes.Buffer
	l := New(path, &buf)

	l.Info("shot", "power", 5)
	l.Warn("lookup miss")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !strings.Contains(buf.String(), "shot") || !strings.Contains(buf.String(), "power=5") {
		t.Errorf("output missing structured line: %q", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "lookup miss") {
		t.Errorf("log file = %q, want the warning", data)
	}
}

func TestMessagesKeepsLatest(t *testing.T) {
	l := Discard()
	l.Debug("not shown on the HUD")
	for i := 0; i < MaxMessages+3; i++ {
		l.Info(fmt.Sprintf("line %d", i))
	}

	msgs := l.Messages()
	if len(msgs) != MaxMessages {
		t.Fatalf("len(Messages()) = %d, want %d", len(msgs), MaxMessages)
	}
	if msgs[0].Text != "line 3" {
		t.Errorf("oldest message = %q, want %q", msgs[0].Text, "line 3")
	}
	if last := msgs[len(msgs)-1].Text; last != fmt.Sprintf("line %d", MaxMessages+2) {
		t.Errorf("newest message = %q", last)
	}
}

func TestMessageFormatsKeyvals(t *testing.T) {
	l := Discard()
	l.Info("knocked out", "count", 2, "score", 7)
	msgs := l.Messages()
	if len(msgs) != 1 || msgs[0].Text != "knocked out count=2 score=7" {
		t.Errorf("Messages() = %+v", msgs)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("", &buf)
	if err := l.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug): %v", err)
	}
	l.Debug("state change", "to", "AimShot")
	if !strings.Contains(buf.String(), "state change") {
		t.Errorf("debug line missing after SetLevel(debug): %q", buf.String())
	}
	if err := l.SetLevel("loud"); err == nil {
		t.Error("SetLevel(loud) succeeded")
	}
}
