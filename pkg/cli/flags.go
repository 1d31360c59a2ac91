package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/getmockd/embedmongo/pkg/cli/internal/flags"
	"github.com/getmockd/embedmongo/pkg/cli/internal/parse"
	"github.com/getmockd/embedmongo/pkg/cliconfig"
	"github.com/getmockd/embedmongo/pkg/importer"
)

// configValue is a flag bound to a config key. Flags set on the command
// line are applied on top of the loaded config by loadConfig.
type configValue interface {
	pflag.Value
	key() string
	apply(cfg *cliconfig.Config) error
}

type stringValue struct {
	k     string
	v     string
	field func(*cliconfig.Config) *string
}

func (f *stringValue) String() string                    { return f.v }
func (f *stringValue) Set(s string) error                { f.v = s; return nil }
func (f *stringValue) Type() string                      { return "string" }
func (f *stringValue) key() string                       { return f.k }
func (f *stringValue) apply(cfg *cliconfig.Config) error { *f.field(cfg) = f.v; return nil }

type intValue struct {
	k     string
	v     int
	field func(*cliconfig.Config) *int
}

func (f *intValue) String() string { return strconv.Itoa(f.v) }
func (f *intValue) Set(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	f.v = n
	return nil
}
func (f *intValue) Type() string                      { return "int" }
func (f *intValue) key() string                       { return f.k }
func (f *intValue) apply(cfg *cliconfig.Config) error { *f.field(cfg) = f.v; return nil }

type boolValue struct {
	k     string
	v     bool
	field func(*cliconfig.Config) *bool
}

func (f *boolValue) String() string { return strconv.FormatBool(f.v) }
func (f *boolValue) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("%q is not a boolean", s)
	}
	f.v = b
	return nil
}
func (f *boolValue) Type() string                      { return "bool" }
func (f *boolValue) key() string                       { return f.k }
func (f *boolValue) apply(cfg *cliconfig.Config) error { *f.field(cfg) = f.v; return nil }

// listValue collects a repeatable flag. Values given on the command line
// replace the configured list.
type listValue struct {
	flags.StringSlice
	k     string
	parse func(cfg *cliconfig.Config, values []string) error
}

func (f *listValue) key() string { return f.k }
func (f *listValue) apply(cfg *cliconfig.Config) error {
	return f.parse(cfg, f.GetSlice())
}

func stringFlag(fs *pflag.FlagSet, name, key, def, usage string, field func(*cliconfig.Config) *string) {
	fs.Var(&stringValue{k: key, v: def, field: field}, name, usage)
}

func intFlag(fs *pflag.FlagSet, name, shorthand, key string, def int, usage string, field func(*cliconfig.Config) *int) {
	fs.VarP(&intValue{k: key, v: def, field: field}, name, shorthand, usage)
}

func boolFlag(fs *pflag.FlagSet, name, key string, def bool, usage string, field func(*cliconfig.Config) *bool) {
	fs.VarPF(&boolValue{k: key, v: def, field: field}, name, "", usage).NoOptDefVal = "true"
}

func listFlag(fs *pflag.FlagSet, name, key, usage string, parse func(*cliconfig.Config, []string) error) {
	fs.Var(&listValue{k: key, parse: parse}, name, usage)
}

// addCommonFlags registers the flags every command shares.
func addCommonFlags(fs *pflag.FlagSet) {
	stringFlag(fs, "project", "project", "", "Project name the instance is published under (default: current directory name)",
		func(c *cliconfig.Config) *string { return &c.Project })
	stringFlag(fs, "state-file", "stateFile", "", "Path of the state file shared between phases",
		func(c *cliconfig.Config) *string { return &c.StateFile })
	boolFlag(fs, "skip", "skip", false, "Skip this phase entirely",
		func(c *cliconfig.Config) *bool { return &c.Skip })
	stringFlag(fs, "log-level", "logLevel", "info", "Log level (debug, info, warn, error)",
		func(c *cliconfig.Config) *string { return &c.LogLevel })
	stringFlag(fs, "log-format", "logFormat", "text", "Log format (text, json)",
		func(c *cliconfig.Config) *string { return &c.LogFormat })
}

// addServerFlags registers the flags describing the server to start.
func addServerFlags(fs *pflag.FlagSet) {
	stringFlag(fs, "version", "version", cliconfig.DefaultVersion, "MongoDB version to run (e.g. 4.0.2, 3.6, V4_0)",
		func(c *cliconfig.Config) *string { return &c.Version })
	stringFlag(fs, "features", "features", "", "Comma-separated feature list replacing the version's defaults",
		func(c *cliconfig.Config) *string { return &c.Features })
	intFlag(fs, "port", "p", "port", cliconfig.DefaultPort, "Server port",
		func(c *cliconfig.Config) *int { return &c.Port })
	boolFlag(fs, "random-port", "randomPort", false, "Allocate a free port instead of --port",
		func(c *cliconfig.Config) *bool { return &c.RandomPort })
	stringFlag(fs, "bind-ip", "bindIp", "", "Address to bind (default: server default)",
		func(c *cliconfig.Config) *string { return &c.BindIP })
	stringFlag(fs, "database-directory", "databaseDirectory", "", "Data directory (default: temporary, removed on stop)",
		func(c *cliconfig.Config) *string { return &c.DataDir })
	boolFlag(fs, "auth", "authEnabled", false, "Enable authentication",
		func(c *cliconfig.Config) *bool { return &c.AuthEnabled })
	boolFlag(fs, "journal", "journal", false, "Enable journaling",
		func(c *cliconfig.Config) *bool { return &c.Journal })
	stringFlag(fs, "storage-engine", "storageEngine", "", "Storage engine (e.g. wiredTiger, mmapv1)",
		func(c *cliconfig.Config) *string { return &c.StorageEngine })
	stringFlag(fs, "unix-socket-prefix", "unixSocketPrefix", "", "Directory for the server's Unix socket",
		func(c *cliconfig.Config) *string { return &c.UnixSocketPrefix })
	listFlag(fs, "arg", "args", "Extra mongod argument (repeatable)",
		func(c *cliconfig.Config, values []string) error {
			c.ExtraArgs = values
			return nil
		})
	intFlag(fs, "start-timeout", "", "startTimeout", cliconfig.DefaultStartTimeout, "Seconds to wait for the server to accept connections",
		func(c *cliconfig.Config) *int { return &c.StartTimeout })
}

// addOutputFlags registers the flags routing child process output.
func addOutputFlags(fs *pflag.FlagSet) {
	stringFlag(fs, "logging", "logging", "console", "Where child process output goes (console, file, none)",
		func(c *cliconfig.Config) *string { return &c.Logging })
	stringFlag(fs, "log-file", "logFile", cliconfig.DefaultLogFile, "Output file for --logging=file",
		func(c *cliconfig.Config) *string { return &c.LogFile })
	stringFlag(fs, "log-file-encoding", "logFileEncoding", "utf-8", "Encoding of the output file",
		func(c *cliconfig.Config) *string { return &c.LogFileEncoding })
}

// addBinaryFlags registers the flags locating MongoDB executables.
func addBinaryFlags(fs *pflag.FlagSet) {
	stringFlag(fs, "bin-dir", "binDir", "", "Directory holding mongod, mongoimport and mongo; skips downloading",
		func(c *cliconfig.Config) *string { return &c.BinDir })
}

// addDistributionFlags registers the flags selecting and fetching the
// server distribution.
func addDistributionFlags(fs *pflag.FlagSet) {
	stringFlag(fs, "download-path", "downloadPath", "", "Base URL of MongoDB downloads",
		func(c *cliconfig.Config) *string { return &c.DownloadPath })
	stringFlag(fs, "distro", "distro", "", "Linux build flavour for 4.2 and later (e.g. ubuntu2204)",
		func(c *cliconfig.Config) *string { return &c.Distro })
	stringFlag(fs, "cache-dir", "cacheDir", "", "Directory downloaded distributions are unpacked into",
		func(c *cliconfig.Config) *string { return &c.CacheDir })
	stringFlag(fs, "mongod-bin", "mongodBin", "", "mongod executable to run; skips downloading",
		func(c *cliconfig.Config) *string { return &c.MongodBin })
	stringFlag(fs, "launcher", "launcher", cliconfig.DefaultLauncher, "How the server runs (exec, docker)",
		func(c *cliconfig.Config) *string { return &c.Launcher })
	stringFlag(fs, "image", "image", "", "Container image for --launcher=docker (default: mongo:<version>)",
		func(c *cliconfig.Config) *string { return &c.Image })
	stringFlag(fs, "proxy-host", "proxy.host", "", "Download proxy host",
		func(c *cliconfig.Config) *string { return &c.Proxy.Host })
	intFlag(fs, "proxy-port", "", "proxy.port", 0, "Download proxy port",
		func(c *cliconfig.Config) *int { return &c.Proxy.Port })
	stringFlag(fs, "proxy-protocol", "proxy.protocol", "", "Download URL scheme the proxy applies to (http, https)",
		func(c *cliconfig.Config) *string { return &c.Proxy.Protocol })
	stringFlag(fs, "non-proxy-hosts", "proxy.nonProxyHosts", "", "Hosts that bypass the proxy, separated by '|'",
		func(c *cliconfig.Config) *string { return &c.Proxy.NonProxyHosts })
}

// addImportFlags registers the import phase flags.
func addImportFlags(fs *pflag.FlagSet) {
	listFlag(fs, "import", "imports", "Import [DATABASE.]COLLECTION=FILE or FILE (repeatable)",
		func(c *cliconfig.Config, values []string) error {
			specs := make([]importer.Spec, 0, len(values))
			for _, v := range values {
				s, err := parseImport(v)
				if err != nil {
					return err
				}
				specs = append(specs, s)
			}
			c.Imports = specs
			return nil
		})
	stringFlag(fs, "default-import-database", "defaultImportDatabase", "", "Database for imports that name none",
		func(c *cliconfig.Config) *string { return &c.DefaultImportDatabase })
	boolFlag(fs, "parallel", "parallel", false, "Run imports concurrently",
		func(c *cliconfig.Config) *bool { return &c.Parallel })
	boolFlag(fs, "verify-imports", "verifyImports", true, "Check every import file is a JSON array before importing",
		func(c *cliconfig.Config) *bool { return &c.VerifyImports })
	stringFlag(fs, "mongoimport-bin", "mongoimportBin", "", "mongoimport executable (default: from --bin-dir or PATH)",
		func(c *cliconfig.Config) *string { return &c.ImportBin })
}

// addScriptsFlags registers the scripts phase flags.
func addScriptsFlags(fs *pflag.FlagSet) {
	stringFlag(fs, "scripts-directory", "scripts.directory", "", "Directory of scripts to evaluate in name order",
		func(c *cliconfig.Config) *string { return &c.Scripts.Directory })
	stringFlag(fs, "database-name", "scripts.database", "", "Database scripts run against",
		func(c *cliconfig.Config) *string { return &c.Scripts.Database })
	stringFlag(fs, "scripts-charset", "scripts.charset", "utf-8", "Encoding of the script files",
		func(c *cliconfig.Config) *string { return &c.Scripts.Charset })
	stringFlag(fs, "scripts-pattern", "scripts.pattern", "", "Only run files matching this glob (e.g. '*.js')",
		func(c *cliconfig.Config) *string { return &c.Scripts.Pattern })
	stringFlag(fs, "evaluator", "scripts.evaluator", "auto", "How scripts are evaluated (auto, driver, shell)",
		func(c *cliconfig.Config) *string { return &c.Scripts.Evaluator })
	stringFlag(fs, "shell-bin", "scripts.shellBin", "", "mongo or mongosh executable for the shell evaluator",
		func(c *cliconfig.Config) *string { return &c.Scripts.ShellBin })
}

// parseImport reads an --import value: "FILE", "COLLECTION=FILE" or
// "DATABASE.COLLECTION=FILE". The collection defaults to the file name.
func parseImport(v string) (importer.Spec, error) {
	target, file, ok := parse.KeyValue(v, '=')
	if !ok {
		file = v
		target = ""
	}
	file = strings.TrimSpace(file)
	if file == "" {
		return importer.Spec{}, fmt.Errorf("--import %q: %w", v, importer.ErrFileRequired)
	}
	s := importer.Spec{File: filepath.Clean(file)}
	if db, coll, ok := parse.KeyValue(target, '.'); ok {
		s.Database, s.Collection = strings.TrimSpace(db), strings.TrimSpace(coll)
	} else {
		s.Collection = strings.TrimSpace(target)
	}
	return s, nil
}

// applyFlags sets the config values of every flag given on the command
// line and marks them as coming from flags.
func applyFlags(cfg *cliconfig.Config, fs *pflag.FlagSet) error {
	var errs []error
	fs.Visit(func(f *pflag.Flag) {
		v, ok := f.Value.(configValue)
		if !ok {
			return
		}
		if err := v.apply(cfg); err != nil {
			errs = append(errs, err)
			return
		}
		cfg.Sources[v.key()] = cliconfig.SourceFlag
	})
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", cliconfig.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// forwardFlags renders the flags given on the command line so a child
// process sees the same configuration.
func forwardFlags(fs *pflag.FlagSet, skip ...string) []string {
	var args []string
	fs.Visit(func(f *pflag.Flag) {
		for _, s := range skip {
			if f.Name == s {
				return
			}
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			for _, v := range sv.GetSlice() {
				args = append(args, "--"+f.Name+"="+v)
			}
			return
		}
		args = append(args, "--"+f.Name+"="+f.Value.String())
	})
	return args
}
