// Package paths locates the on-disk files embedmongo shares between phases.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	appName = "embedmongo"

	// DirMode is the permission mode for directories embedmongo creates.
	DirMode os.FileMode = 0o755

	// FileMode is the permission mode for files embedmongo creates.
	FileMode os.FileMode = 0o644
)

// Runtime is the directory holding per-session state (instance records,
// supervisor logs).
//
//	Linux:   $XDG_RUNTIME_DIR/embedmongo or ~/.cache/embedmongo/run
//	macOS:   ~/Library/Caches/embedmongo/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, appName)
	}
	return filepath.Join(xdg.CacheHome, appName, "run")
}

// StateFile is the default path of the shared key/value store.
func StateFile() string {
	return filepath.Join(Runtime(), "session.json")
}

// SupervisorLog is where a detached supervisor writes its own log.
func SupervisorLog(project string) string {
	return filepath.Join(Runtime(), project+"-supervisor.log")
}

// Cache is the directory downloaded MongoDB distributions are unpacked into.
func Cache() string {
	return filepath.Join(xdg.CacheHome, appName)
}

// ConfigDir holds the global config file.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// GlobalConfig is the path of the global config file.
func GlobalConfig() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// EnsureDir creates dir and its parents with DirMode.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, DirMode)
}
