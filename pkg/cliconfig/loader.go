package cliconfig

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/embedmongo/pkg/paths"
)

// LocalConfigFileNames are the names to search for local config (in order).
var LocalConfigFileNames = []string{".embedmongo.yaml", ".embedmongo.yml"}

// GlobalConfigFileNames are the names to search for global config (in order).
var GlobalConfigFileNames = []string{"config.yaml", "config.yml"}

// FindLocalConfig searches for .embedmongo.yaml or .embedmongo.yml in the current directory.
func FindLocalConfig() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return findFirst(cwd, LocalConfigFileNames), nil
}

// FindGlobalConfig returns the path to the global config file.
// Returns empty string if not found.
func FindGlobalConfig() string {
	return findFirst(paths.ConfigDir(), GlobalConfigFileNames)
}

func findFirst(dir string, names []string) string {
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadConfigFile loads a Config from a YAML file. The document is checked
// against the config schema before it is decoded.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Sources: make(map[string]string), SetFields: make(map[string]bool)}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, yamlError(path, err)
	}
	if len(doc.Content) == 0 {
		return cfg, nil
	}
	if err := validateSchema(path, &doc); err != nil {
		return nil, err
	}
	if err := doc.Decode(cfg); err != nil {
		return nil, yamlError(path, err)
	}
	collectSetFields(doc.Content[0], "", cfg.SetFields)
	resolveRelative(cfg, filepath.Dir(path))
	return cfg, nil
}

// resolveRelative makes the import files and scripts directory of a
// loaded file relative to the file's own directory.
func resolveRelative(cfg *Config, base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i := range cfg.Imports {
		cfg.Imports[i].File = abs(cfg.Imports[i].File)
	}
	cfg.Scripts.Directory = abs(cfg.Scripts.Directory)
}

// collectSetFields records the mapping keys of node, two levels deep, as
// dotted paths ("port", "scripts.charset").
func collectSetFields(node *yaml.Node, prefix string, set map[string]bool) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := prefix + node.Content[i].Value
		set[key] = true
		if prefix == "" {
			collectSetFields(node.Content[i+1], key+".", set)
		}
	}
}

// ConfigError represents a configuration file error with location info.
type ConfigError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		loc := "line " + strconv.Itoa(e.Line)
		if e.Column > 0 {
			loc += ", column " + strconv.Itoa(e.Column)
		}
		return e.Path + " (" + loc + "): " + e.Message
	}
	return e.Path + ": " + e.Message
}

// Is makes every ConfigError match ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

var yamlLine = regexp.MustCompile(`line (\d+)`)

func yamlError(path string, err error) error {
	ce := &ConfigError{Path: path, Message: err.Error()}
	var te *yaml.TypeError
	if errors.As(err, &te) && len(te.Errors) > 0 {
		ce.Message = te.Errors[0]
	}
	if m := yamlLine.FindStringSubmatch(ce.Message); m != nil {
		ce.Line, _ = strconv.Atoi(m[1])
	}
	return ce
}

// LoadAll loads configuration from all sources and merges them.
// Precedence: env > explicit or local config > global config > defaults.
// Flags are applied by the caller on top.
func LoadAll(explicitPath string) (*Config, error) {
	// Start with defaults
	cfg := NewDefault()

	// Load global config
	if globalPath := FindGlobalConfig(); globalPath != "" {
		globalCfg, err := LoadConfigFile(globalPath)
		if err != nil {
			return nil, err
		}
		MergeConfig(cfg, globalCfg, SourceGlobal)
	}

	// Load the explicit config, else the local one
	if explicitPath == "" {
		explicitPath = os.Getenv(EnvConfig)
	}
	if explicitPath != "" {
		fileCfg, err := LoadConfigFile(explicitPath)
		if err != nil {
			return nil, err
		}
		MergeConfig(cfg, fileCfg, SourceFile)
	} else if localPath, err := FindLocalConfig(); err == nil && localPath != "" {
		localCfg, err := LoadConfigFile(localPath)
		if err != nil {
			return nil, err
		}
		MergeConfig(cfg, localCfg, SourceLocal)
	}

	// Load environment variables
	if err := LoadEnvConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
