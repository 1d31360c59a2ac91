package output

import (
	"bytes"
	"sync"
)

// lineWriter splits a byte stream into lines and hands each complete line,
// prefixed and newline-terminated, to emit.
type lineWriter struct {
	prefix string
	emit   func(string) error

	mu  sync.Mutex
	buf bytes.Buffer
}

func newLineWriter(prefix string, emit func(string) error) *lineWriter {
	return &lineWriter{prefix: prefix, emit: emit}
}

// Write implements io.Writer. It reports len(p) once the bytes are
// buffered, even if emitting a complete line fails afterwards.
func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			return len(p), nil
		}
		line := string(w.buf.Next(i + 1))
		if err := w.emit(w.prefix + trimCR(line)); err != nil {
			return len(p), err
		}
	}
}

// Flush emits a trailing partial line.
func (w *lineWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() == 0 {
		return nil
	}
	line := w.buf.String()
	w.buf.Reset()
	return w.emit(w.prefix + line + "\n")
}

// trimCR turns a CRLF line ending into LF.
func trimCR(line string) string {
	if n := len(line); n >= 2 && line[n-2] == '\r' {
		return line[:n-2] + "\n"
	}
	return line
}
