package scripts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/getmockd/embedmongo/pkg/logging"
)

// DefaultCharset decodes script files when Runner.Charset is blank.
const DefaultCharset = "utf-8"

// Runner evaluates every file of a scripts directory.
type Runner struct {
	Evaluator Evaluator

	// Charset is a WHATWG encoding label. Defaults to utf-8.
	Charset string

	// Pattern filters file names with doublestar syntax. Blank runs every
	// regular file.
	Pattern string

	Log *slog.Logger
}

// Run evaluates the files of dir in name order, stopping at the first
// failure. A dir that is not a directory is logged and skipped.
func (r *Runner) Run(ctx context.Context, dir string, conn Conn) error {
	log := logging.OrNop(r.Log)
	enc, err := r.check(conn.Database)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if fi, err := os.Stat(abs); err != nil || !fi.IsDir() {
		log.Info("scripts directory is not a directory, nothing to run", "dir", abs)
		return nil
	}
	files, err := r.files(abs)
	if err != nil {
		log.Info("can't read scripts directory", "dir", abs, "error", err)
		return nil
	}
	log.Info("running scripts", "dir", abs, "files", len(files), "database", conn.Database)

	sess, err := r.Evaluator.Open(ctx, conn)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close(context.WithoutCancel(ctx)) }()

	for _, f := range files {
		name := filepath.Base(f)
		code, err := readScript(f, enc)
		if err != nil {
			return &FileError{File: name, Message: err.Error(), Err: err}
		}
		if err := sess.Eval(ctx, code); err != nil {
			msg := err.Error()
			var ee *EvalError
			if errors.As(err, &ee) {
				msg = ee.Message
			}
			log.Error("script failed", "file", name, "error", msg)
			return &FileError{File: name, Message: msg, Err: err}
		}
		log.Info("script ran", "file", name)
	}
	log.Info("data initialized")
	return nil
}

// Check reports the problems Run would fail on before touching the
// server: a blank database, an unknown charset or a bad pattern.
func (r *Runner) Check(database string) error {
	_, err := r.check(database)
	return err
}

func (r *Runner) check(database string) (encoding.Encoding, error) {
	if strings.TrimSpace(database) == "" {
		return nil, ErrDatabaseNameMissing
	}
	enc, err := Charset(r.Charset)
	if err != nil {
		return nil, err
	}
	if r.Pattern != "" && !doublestar.ValidatePattern(r.Pattern) {
		return nil, fmt.Errorf("scripts: bad pattern %q", r.Pattern)
	}
	return enc, nil
}

// files lists the regular files of dir selected by the pattern, sorted by
// name.
func (r *Runner) files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if fi, err := os.Stat(p); err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if r.Pattern != "" {
			if ok, _ := doublestar.Match(r.Pattern, e.Name()); !ok {
				continue
			}
		}
		files = append(files, p)
	}
	return files, nil
}

// Charset resolves an encoding label, defaulting to utf-8.
func Charset(label string) (encoding.Encoding, error) {
	if strings.TrimSpace(label) == "" {
		label = DefaultCharset
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, label)
	}
	return enc, nil
}

func readScript(path string, enc encoding.Encoding) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return Wrap(string(text)), nil
}

// Wrap joins the lines of text with newlines and wraps them in an
// immediately invoked anonymous function.
func Wrap(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return "(function() {\n" + text + "\n})();"
}
