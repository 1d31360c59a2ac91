package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/encoding/htmlindex"
)

// Style selects where output goes.
type Style string

// Styles.
const (
	StyleConsole Style = "console"
	StyleFile    Style = "file"
	StyleNone    Style = "none"
)

// Console line prefixes, one per channel.
const (
	PrefixOutput   = "[mongod output] "
	PrefixError    = "[mongod error] "
	PrefixCommands = "[mongod commands] "
)

// DefaultEncoding is used when FileOptions.Encoding is blank.
const DefaultEncoding = "utf-8"

// ParseStyle parses a style name, ignoring case.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(strings.TrimSpace(s))); st {
	case StyleConsole, StyleFile, StyleNone:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q (valid: console, file, none)", ErrUnknownStyle, s)
}

// FileOptions configures the file style.
type FileOptions struct {
	// Path of the log file. It is created on the first write and appended to.
	Path string

	// Encoding of the file, by WHATWG label ("utf-8", "iso-8859-1",
	// "windows-1252", "shift_jis", ...).
	Encoding string
}

// Sinks are the three output channels. Close flushes partial lines and
// closes the log file, if one was opened.
type Sinks struct {
	Stdout   io.Writer
	Stderr   io.Writer
	Commands io.Writer

	flushers []*lineWriter
	file     *fileSink
	once     sync.Once
	closeErr error
}

// Route builds sinks for style, writing console output to os.Stdout.
func Route(style string, opts FileOptions) (*Sinks, error) {
	return RouteTo(os.Stdout, style, opts)
}

// RouteTo builds sinks for style with an explicit console writer.
func RouteTo(console io.Writer, style string, opts FileOptions) (*Sinks, error) {
	st, err := ParseStyle(style)
	if err != nil {
		return nil, err
	}

	switch st {
	case StyleNone:
		return &Sinks{Stdout: io.Discard, Stderr: io.Discard, Commands: io.Discard}, nil

	case StyleFile:
		fs, err := newFileSink(opts)
		if err != nil {
			return nil, err
		}
		s := &Sinks{file: fs}
		s.Stdout = s.track(newLineWriter(PrefixOutput, fs.writeLine))
		s.Stderr = s.track(newLineWriter(PrefixError, fs.writeLine))
		s.Commands = s.track(newLineWriter(PrefixCommands, fs.writeLine))
		return s, nil

	default:
		cs := &consoleSink{w: console}
		s := &Sinks{}
		s.Stdout = s.track(newLineWriter(PrefixOutput, cs.writeLine))
		s.Stderr = s.track(newLineWriter(PrefixError, cs.writeLine))
		s.Commands = s.track(newLineWriter(PrefixCommands, cs.writeLine))
		return s, nil
	}
}

// Discard returns sinks that drop everything.
func Discard() *Sinks {
	return &Sinks{Stdout: io.Discard, Stderr: io.Discard, Commands: io.Discard}
}

func (s *Sinks) track(w *lineWriter) *lineWriter {
	s.flushers = append(s.flushers, w)
	return w
}

// FilePath returns the log file path for the file style, or "".
func (s *Sinks) FilePath() string {
	if s.file == nil {
		return ""
	}
	return s.file.path
}

// Close flushes buffered partial lines and closes the file. It is safe to
// call more than once.
func (s *Sinks) Close() error {
	s.once.Do(func() {
		for _, w := range s.flushers {
			if err := w.Flush(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
		if s.file != nil {
			if err := s.file.close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}

type consoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *consoleSink) writeLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, line)
	return err
}

// ValidateEncoding resolves an encoding label, failing with
// ErrUnknownEncoding.
func ValidateEncoding(label string) error {
	if label == "" {
		return nil
	}
	if _, err := htmlindex.Get(label); err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
	}
	return nil
}
