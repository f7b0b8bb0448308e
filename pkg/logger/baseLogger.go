package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// BaseLogger writes prefixed lines to writer, or to the standard logger when writer is nil.
type BaseLogger struct {
	mu     *sync.Mutex
	prefix string
	writer io.Writer
}

func NewLogger(writer io.Writer, prefix string) *BaseLogger {
	return &BaseLogger{
		mu:     &sync.Mutex{},
		writer: writer,
		prefix: prefix,
	}
}

// Discard returns a logger that drops everything, handy in tests.
func Discard() *BaseLogger {
	return NewLogger(io.Discard, "")
}

func (l *BaseLogger) Log(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	message := strings.TrimRight(fmt.Sprintf(format, v...), "\n")
	if l.prefix != "" {
		message = l.prefix + " " + message
	}
	if l.writer != nil {
		fmt.Fprintln(l.writer, message)
		return
	}
	log.Print(message)
}

// WithPrefix returns a child logger sharing the writer and lock of l.
func (l *BaseLogger) WithPrefix(extraPrefix string) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix := extraPrefix
	if l.prefix != "" {
		prefix = l.prefix + " " + extraPrefix
	}
	return &BaseLogger{mu: l.mu, writer: l.writer, prefix: prefix}
}

func (l *BaseLogger) SetPrefix(prefix string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prefix = prefix
}

func (l *BaseLogger) SetWriter(writer io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = writer
}
