package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names
const (
	EnvConfig                = "EMBEDMONGO_CONFIG"
	EnvVersion               = "EMBEDMONGO_VERSION"
	EnvFeatures              = "EMBEDMONGO_FEATURES"
	EnvPort                  = "EMBEDMONGO_PORT"
	EnvRandomPort            = "EMBEDMONGO_RANDOM_PORT"
	EnvBindIP                = "EMBEDMONGO_BIND_IP"
	EnvDataDir               = "EMBEDMONGO_DATABASE_DIRECTORY"
	EnvAuthEnabled           = "EMBEDMONGO_AUTH_ENABLED"
	EnvJournal               = "EMBEDMONGO_JOURNAL"
	EnvStorageEngine         = "EMBEDMONGO_STORAGE_ENGINE"
	EnvUnixSocketPrefix      = "EMBEDMONGO_UNIX_SOCKET_PREFIX"
	EnvStartTimeout          = "EMBEDMONGO_START_TIMEOUT"
	EnvLogging               = "EMBEDMONGO_LOGGING"
	EnvLogFile               = "EMBEDMONGO_LOG_FILE"
	EnvLogFileEncoding       = "EMBEDMONGO_LOG_FILE_ENCODING"
	EnvLogLevel              = "EMBEDMONGO_LOG_LEVEL"
	EnvLogFormat             = "EMBEDMONGO_LOG_FORMAT"
	EnvDownloadPath          = "EMBEDMONGO_DOWNLOAD_PATH"
	EnvDistro                = "EMBEDMONGO_DISTRO"
	EnvCacheDir              = "EMBEDMONGO_CACHE_DIR"
	EnvProxyHost             = "EMBEDMONGO_PROXY_HOST"
	EnvProxyPort             = "EMBEDMONGO_PROXY_PORT"
	EnvProxyUser             = "EMBEDMONGO_PROXY_USER"
	EnvProxyPassword         = "EMBEDMONGO_PROXY_PASSWORD"
	EnvBinDir                = "EMBEDMONGO_BIN_DIR"
	EnvMongodBin             = "EMBEDMONGO_MONGOD_BIN"
	EnvImportBin             = "EMBEDMONGO_MONGOIMPORT_BIN"
	EnvLauncher              = "EMBEDMONGO_LAUNCHER"
	EnvImage                 = "EMBEDMONGO_IMAGE"
	EnvWait                  = "EMBEDMONGO_WAIT"
	EnvSkip                  = "EMBEDMONGO_SKIP"
	EnvProject               = "EMBEDMONGO_PROJECT"
	EnvStateFile             = "EMBEDMONGO_STATE_FILE"
	EnvDefaultImportDatabase = "EMBEDMONGO_DEFAULT_IMPORT_DATABASE"
	EnvParallel              = "EMBEDMONGO_PARALLEL"
	EnvImportWait            = "EMBEDMONGO_IMPORT_WAIT"
	EnvScriptsDirectory      = "EMBEDMONGO_SCRIPTS_DIRECTORY"
	EnvDatabaseName          = "EMBEDMONGO_DATABASE_NAME"
	EnvScriptsCharset        = "EMBEDMONGO_SCRIPTS_CHARSET"
	EnvScriptsEvaluator      = "EMBEDMONGO_SCRIPTS_EVALUATOR"
)

// envLoader applies environment variables to a config, recording the
// first malformed value.
type envLoader struct {
	cfg *Config
	err error
}

func (l *envLoader) strVar(name, key string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
		l.cfg.Sources[key] = SourceEnv
	}
}

func (l *envLoader) intVar(name, key string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		if l.err == nil {
			l.err = fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, name, v)
		}
		return
	}
	*dst = n
	l.cfg.Sources[key] = SourceEnv
}

func (l *envLoader) boolVar(name, key string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		*dst = ParseBool(v)
		l.cfg.Sources[key] = SourceEnv
	}
}

// ParseBool accepts true, 1 and yes in any case.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// LoadEnvConfig loads configuration from environment variables.
// It only sets values that are present in the environment.
func LoadEnvConfig(cfg *Config) error {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}
	l := &envLoader{cfg: cfg}

	l.strVar(EnvVersion, "version", &cfg.Version)
	l.strVar(EnvFeatures, "features", &cfg.Features)
	l.intVar(EnvPort, "port", &cfg.Port)
	l.boolVar(EnvRandomPort, "randomPort", &cfg.RandomPort)
	l.strVar(EnvBindIP, "bindIp", &cfg.BindIP)
	l.strVar(EnvDataDir, "databaseDirectory", &cfg.DataDir)
	l.boolVar(EnvAuthEnabled, "authEnabled", &cfg.AuthEnabled)
	l.boolVar(EnvJournal, "journal", &cfg.Journal)
	l.strVar(EnvStorageEngine, "storageEngine", &cfg.StorageEngine)
	l.strVar(EnvUnixSocketPrefix, "unixSocketPrefix", &cfg.UnixSocketPrefix)
	l.intVar(EnvStartTimeout, "startTimeout", &cfg.StartTimeout)

	l.strVar(EnvLogging, "logging", &cfg.Logging)
	l.strVar(EnvLogFile, "logFile", &cfg.LogFile)
	l.strVar(EnvLogFileEncoding, "logFileEncoding", &cfg.LogFileEncoding)
	l.strVar(EnvLogLevel, "logLevel", &cfg.LogLevel)
	l.strVar(EnvLogFormat, "logFormat", &cfg.LogFormat)

	l.strVar(EnvDownloadPath, "downloadPath", &cfg.DownloadPath)
	l.strVar(EnvDistro, "distro", &cfg.Distro)
	l.strVar(EnvCacheDir, "cacheDir", &cfg.CacheDir)
	l.strVar(EnvProxyHost, "proxy.host", &cfg.Proxy.Host)
	l.intVar(EnvProxyPort, "proxy.port", &cfg.Proxy.Port)
	l.strVar(EnvProxyUser, "proxy.user", &cfg.Proxy.User)
	l.strVar(EnvProxyPassword, "proxy.password", &cfg.Proxy.Password)
	l.strVar(EnvBinDir, "binDir", &cfg.BinDir)
	l.strVar(EnvMongodBin, "mongodBin", &cfg.MongodBin)
	l.strVar(EnvImportBin, "mongoimportBin", &cfg.ImportBin)
	l.strVar(EnvLauncher, "launcher", &cfg.Launcher)
	l.strVar(EnvImage, "image", &cfg.Image)

	l.boolVar(EnvWait, "wait", &cfg.Wait)
	l.boolVar(EnvSkip, "skip", &cfg.Skip)
	l.strVar(EnvProject, "project", &cfg.Project)
	l.strVar(EnvStateFile, "stateFile", &cfg.StateFile)

	l.strVar(EnvDefaultImportDatabase, "defaultImportDatabase", &cfg.DefaultImportDatabase)
	l.boolVar(EnvParallel, "parallel", &cfg.Parallel)
	l.boolVar(EnvImportWait, "importWait", &cfg.ImportWait)

	l.strVar(EnvScriptsDirectory, "scripts.directory", &cfg.Scripts.Directory)
	l.strVar(EnvDatabaseName, "scripts.database", &cfg.Scripts.Database)
	l.strVar(EnvScriptsCharset, "scripts.charset", &cfg.Scripts.Charset)
	l.strVar(EnvScriptsEvaluator, "scripts.evaluator", &cfg.Scripts.Evaluator)

	return l.err
}
