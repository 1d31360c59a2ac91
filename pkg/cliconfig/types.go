// Package cliconfig provides configuration types and loading for the
// embedmongo CLI.
package cliconfig

import (
	"github.com/getmockd/embedmongo/pkg/distribution"
	"github.com/getmockd/embedmongo/pkg/importer"
)

// Config is the complete configuration of every embedmongo phase.
// Values come from several sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables (EMBEDMONGO_*)
// 3. Local config file (.embedmongo.yaml in the current directory)
// 4. Global config file ($XDG_CONFIG_HOME/embedmongo/config.yaml)
// 5. Default values (lowest priority)
type Config struct {
	// Server settings
	Version          string   `yaml:"version" json:"version"`
	Features         string   `yaml:"features,omitempty" json:"features,omitempty"`
	Port             int      `yaml:"port" json:"port"`
	RandomPort       bool     `yaml:"randomPort" json:"randomPort"`
	BindIP           string   `yaml:"bindIp,omitempty" json:"bindIp,omitempty"`
	DataDir          string   `yaml:"databaseDirectory,omitempty" json:"databaseDirectory,omitempty"`
	AuthEnabled      bool     `yaml:"authEnabled" json:"authEnabled"`
	Journal          bool     `yaml:"journal" json:"journal"`
	StorageEngine    string   `yaml:"storageEngine,omitempty" json:"storageEngine,omitempty"`
	UnixSocketPrefix string   `yaml:"unixSocketPrefix,omitempty" json:"unixSocketPrefix,omitempty"`
	ExtraArgs        []string `yaml:"args,omitempty" json:"args,omitempty"`
	StartTimeout     int      `yaml:"startTimeout" json:"startTimeout"` // seconds

	// Server output routing
	Logging         string `yaml:"logging" json:"logging"`
	LogFile         string `yaml:"logFile" json:"logFile"`
	LogFileEncoding string `yaml:"logFileEncoding" json:"logFileEncoding"`

	// Diagnostic logging of embedmongo itself
	LogLevel  string `yaml:"logLevel" json:"logLevel"`
	LogFormat string `yaml:"logFormat" json:"logFormat"`

	// Distribution settings
	DownloadPath string                   `yaml:"downloadPath" json:"downloadPath"`
	Distro       string                   `yaml:"distro,omitempty" json:"distro,omitempty"`
	CacheDir     string                   `yaml:"cacheDir" json:"cacheDir"`
	Proxy        distribution.ProxyConfig `yaml:"proxy,omitempty" json:"proxy,omitempty"`
	BinDir       string                   `yaml:"binDir,omitempty" json:"binDir,omitempty"`
	MongodBin    string                   `yaml:"mongodBin,omitempty" json:"mongodBin,omitempty"`
	ImportBin    string                   `yaml:"mongoimportBin,omitempty" json:"mongoimportBin,omitempty"`
	Launcher     string                   `yaml:"launcher" json:"launcher"`
	Image        string                   `yaml:"image,omitempty" json:"image,omitempty"`

	// Phase settings
	Wait      bool   `yaml:"wait" json:"wait"`
	Skip      bool   `yaml:"skip" json:"skip"`
	Project   string `yaml:"project" json:"project"`
	StateFile string `yaml:"stateFile" json:"stateFile"`

	// Import settings
	Imports               []importer.Spec `yaml:"imports,omitempty" json:"imports,omitempty"`
	DefaultImportDatabase string          `yaml:"defaultImportDatabase,omitempty" json:"defaultImportDatabase,omitempty"`
	Parallel              bool            `yaml:"parallel" json:"parallel"`
	ImportWait            bool            `yaml:"importWait" json:"importWait"`
	VerifyImports         bool            `yaml:"verifyImports" json:"verifyImports"`

	// Script settings
	Scripts ScriptsConfig `yaml:"scripts" json:"scripts"`

	// Sources tracks where each value came from (for `embedmongo status -v`)
	Sources map[string]string `yaml:"-" json:"-"`

	// SetFields records the keys present in a loaded file, so an explicit
	// false can override a true default.
	SetFields map[string]bool `yaml:"-" json:"-"`
}

// ScriptsConfig configures the scripts phase.
type ScriptsConfig struct {
	Directory string `yaml:"directory,omitempty" json:"directory,omitempty"`
	Database  string `yaml:"database,omitempty" json:"database,omitempty"`
	Charset   string `yaml:"charset" json:"charset"`
	Pattern   string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Evaluator string `yaml:"evaluator" json:"evaluator"`
	ShellBin  string `yaml:"shellBin,omitempty" json:"shellBin,omitempty"`
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceEnv     = "env"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceFile    = "file"
	SourceFlag    = "flag"
)
