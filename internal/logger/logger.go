package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// LogFilePath is the default log file, relative to the working directory.
const LogFilePath = "logs/marbles.txt"

// MaxMessages is how many recent lines the HUD keeps.
const MaxMessages = 8

// Message is one line shown on the HUD.
type Message struct {
	Text string
	At   time.Time
}

// Logger writes structured lines to an output and appends them to a file on disk. It also
// remembers the latest info-or-higher lines for the HUD.
type Logger struct {
	base *log.Logger
	file *os.File

	mu       sync.Mutex
	messages []Message
}

// New returns a Logger writing to w (nil means nowhere) and appending to the file at path.
// An empty path or an unwritable file only disables the file copy.
func New(path string, w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
	}
	l := &Logger{}
	out := w
	if path != "" {
		_ = os.MkdirAll(filepath.Dir(path), 0755)
		if f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			l.file = f
			out = io.MultiWriter(w, f)
		}
	}
	l.base = log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
		Prefix:          "marbles",
	})
	return l
}

// Discard returns a Logger that writes nowhere but still records HUD messages.
func Discard() *Logger {
	return New("", io.Discard)
}

// SetLevel sets the minimum level by name ("debug", "info", "warn", "error").
func (l *Logger) SetLevel(name string) error {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	l.base.SetLevel(lvl)
	return nil
}

func (l *Logger) Debug(msg string, keyvals ...any) {
	l.base.Debug(msg, keyvals...)
}

func (l *Logger) Info(msg string, keyvals ...any) {
	l.base.Info(msg, keyvals...)
	l.remember(msg, keyvals)
}

func (l *Logger) Warn(msg string, keyvals ...any) {
	l.base.Warn(msg, keyvals...)
	l.remember(msg, keyvals)
}

func (l *Logger) Error(msg string, keyvals ...any) {
	l.base.Error(msg, keyvals...)
	l.remember(msg, keyvals)
}

// Fatal logs at error level, closes the file and exits with status 1.
func (l *Logger) Fatal(msg string, keyvals ...any) {
	l.base.Error(msg, keyvals...)
	_ = l.Close()
	os.Exit(1)
}

// Log records a plain line at info level.
func (l *Logger) Log(line string) {
	l.Info(line)
}

// Messages returns the remembered lines, oldest first.
func (l *Logger) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Close releases the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) remember(msg string, keyvals []any) {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, Message{Text: b.String(), At: time.Now()})
	if n := len(l.messages); n > MaxMessages {
		l.messages = append(l.messages[:0], l.messages[n-MaxMessages:]...)
	}
}
