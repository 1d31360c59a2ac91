package cliconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/embedmongo/pkg/output"
	"github.com/getmockd/embedmongo/pkg/scripts"
)

// Validate checks the values every phase relies on. Problems are joined
// and wrapped with ErrInvalidConfig; style, encoding and charset problems
// also match the errors of the packages that define them.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Version) == "" {
		add("version is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		add("port %d is out of range", c.Port)
	}
	if c.StartTimeout < 0 {
		add("startTimeout %d is out of range", c.StartTimeout)
	}
	if c.Proxy.Port < 0 || c.Proxy.Port > 65535 {
		add("proxy.port %d is out of range", c.Proxy.Port)
	}
	if c.Proxy.Host != "" && c.Proxy.Port == 0 {
		add("proxy.port is required with proxy.host")
	}

	style, err := output.ParseStyle(c.Logging)
	if err != nil {
		errs = append(errs, err)
	} else if style == output.StyleFile {
		if strings.TrimSpace(c.LogFile) == "" {
			errs = append(errs, output.ErrNoFile)
		}
		if err := output.ValidateEncoding(c.LogFileEncoding); err != nil {
			errs = append(errs, err)
		}
	}

	switch c.Launcher {
	case LauncherExec, LauncherDocker:
	default:
		add("launcher %q is not one of exec, docker", c.Launcher)
	}
	if strings.TrimSpace(c.Project) == "" {
		add("project is required")
	}
	if strings.TrimSpace(c.StateFile) == "" {
		add("stateFile is required")
	}

	if _, err := scripts.Charset(c.Scripts.Charset); err != nil {
		errs = append(errs, err)
	}
	if c.Scripts.Pattern != "" && !doublestar.ValidatePattern(c.Scripts.Pattern) {
		add("scripts.pattern %q is not a valid pattern", c.Scripts.Pattern)
	}

	switch strings.ToLower(c.Scripts.Evaluator) {
	case "", scripts.EvaluatorAuto, scripts.EvaluatorDriver, scripts.EvaluatorShell:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", scripts.ErrUnknownEvaluator, c.Scripts.Evaluator))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
