package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// fileSink is shared by all three channels of the file style. One mutex
// guards the encoder and the file, and the file is opened on first write.
type fileSink struct {
	path string
	enc  *encoding.Encoder

	mu   sync.Mutex
	f    *os.File
	dead error
}

func newFileSink(opts FileOptions) (*fileSink, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, ErrNoFile
	}
	label := opts.Encoding
	if strings.TrimSpace(label) == "" {
		label = DefaultEncoding
	}
	if err := ValidateEncoding(label); err != nil {
		return nil, err
	}
	e, _ := htmlindex.Get(label)

	path, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("output: resolve %s: %w", opts.Path, err)
	}
	// Characters the target charset cannot represent are replaced, not fatal.
	return &fileSink{path: path, enc: encoding.ReplaceUnsupported(e.NewEncoder())}, nil
}

func (s *fileSink) writeLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dead != nil {
		return s.dead
	}
	if s.f == nil {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			s.dead = fmt.Errorf("output: create directory for %s: %w", s.path, err)
			return s.dead
		}
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			s.dead = fmt.Errorf("output: open %s: %w", s.path, err)
			return s.dead
		}
		s.f = f
	}

	b, err := s.enc.Bytes([]byte(line))
	if err != nil {
		return fmt.Errorf("output: encode line for %s: %w", s.path, err)
	}
	_, err = s.f.Write(b)
	return err
}

func (s *fileSink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.dead = os.ErrClosed
	return err
}
