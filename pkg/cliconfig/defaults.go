package cliconfig

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/getmockd/embedmongo/pkg/distribution"
	"github.com/getmockd/embedmongo/pkg/output"
	"github.com/getmockd/embedmongo/pkg/paths"
	"github.com/getmockd/embedmongo/pkg/scripts"
)

// DefaultVersion is the server version started when none is configured.
const DefaultVersion = "2.2.1"

// DefaultPort is the server port when neither a port nor randomPort is set.
const DefaultPort = 27017

// DefaultStartTimeout is the default readiness timeout in seconds.
const DefaultStartTimeout = 120

// DefaultLogFile is the output file of the file logging style.
const DefaultLogFile = "embedmongo.log"

// Launcher names.
const (
	LauncherExec   = "exec"
	LauncherDocker = "docker"
)

// DefaultLauncher runs a local mongod executable.
const DefaultLauncher = LauncherExec

// DefaultProject names the project when none is configured and the
// working directory is unusable.
const DefaultProject = "default"

var projectUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// ProjectFromDir derives a project name from a directory's base name.
func ProjectFromDir(dir string) string {
	name := strings.Trim(projectUnsafe.ReplaceAllString(filepath.Base(dir), "_"), "_.")
	if name == "" {
		return DefaultProject
	}
	return name
}

func defaultProject() string {
	cwd, err := os.Getwd()
	if err != nil {
		return DefaultProject
	}
	return ProjectFromDir(cwd)
}

// NewDefault creates a new Config with default values.
func NewDefault() *Config {
	cfg := &Config{
		Version:         DefaultVersion,
		Port:            DefaultPort,
		StartTimeout:    DefaultStartTimeout,
		Logging:         string(output.StyleConsole),
		LogFile:         DefaultLogFile,
		LogFileEncoding: output.DefaultEncoding,
		LogLevel:        "info",
		LogFormat:       "text",
		DownloadPath:    distribution.DefaultBaseURL,
		CacheDir:        paths.Cache(),
		Launcher:        DefaultLauncher,
		Project:         defaultProject(),
		StateFile:       paths.StateFile(),
		VerifyImports:   true,
		Scripts: ScriptsConfig{
			Charset:   scripts.DefaultCharset,
			Evaluator: scripts.EvaluatorAuto,
		},
		Sources: make(map[string]string),
	}

	// Mark all as default source
	for _, key := range []string{
		"version", "port", "startTimeout", "logging", "logFile", "logFileEncoding",
		"logLevel", "logFormat", "downloadPath", "cacheDir", "launcher", "project",
		"stateFile", "verifyImports", "scripts.charset", "scripts.evaluator",
	} {
		cfg.Sources[key] = SourceDefault
	}

	return cfg
}
