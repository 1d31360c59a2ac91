package cliconfig

// merger copies set values from one config into another, updating
// sources tracking.
type merger struct {
	target, source *Config
	sourceType     string
}

func (m merger) str(key string, dst *string, src string) {
	if src != "" {
		*dst = src
		m.target.Sources[key] = m.sourceType
	}
}

func (m merger) num(key string, dst *int, src int) {
	if src != 0 {
		*dst = src
		m.target.Sources[key] = m.sourceType
	}
}

// flag merges a boolean. Checking `if src` cannot detect an explicit
// false, so SetFields (populated during file loading) decides whether the
// key was present. Without SetFields (a config built programmatically)
// only true is merged.
func (m merger) flag(key string, dst *bool, src bool) {
	set := src
	if m.source.SetFields != nil {
		set = m.source.SetFields[key]
	}
	if set {
		*dst = src
		m.target.Sources[key] = m.sourceType
	}
}

// MergeConfig merges source config into target, updating sources tracking.
// Only non-zero values from source are applied.
func MergeConfig(target, source *Config, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}
	m := merger{target: target, source: source, sourceType: sourceType}

	m.str("version", &target.Version, source.Version)
	m.str("features", &target.Features, source.Features)
	m.num("port", &target.Port, source.Port)
	m.flag("randomPort", &target.RandomPort, source.RandomPort)
	m.str("bindIp", &target.BindIP, source.BindIP)
	m.str("databaseDirectory", &target.DataDir, source.DataDir)
	m.flag("authEnabled", &target.AuthEnabled, source.AuthEnabled)
	m.flag("journal", &target.Journal, source.Journal)
	m.str("storageEngine", &target.StorageEngine, source.StorageEngine)
	m.str("unixSocketPrefix", &target.UnixSocketPrefix, source.UnixSocketPrefix)
	if source.ExtraArgs != nil {
		target.ExtraArgs = source.ExtraArgs
		target.Sources["args"] = sourceType
	}
	m.num("startTimeout", &target.StartTimeout, source.StartTimeout)

	m.str("logging", &target.Logging, source.Logging)
	m.str("logFile", &target.LogFile, source.LogFile)
	m.str("logFileEncoding", &target.LogFileEncoding, source.LogFileEncoding)
	m.str("logLevel", &target.LogLevel, source.LogLevel)
	m.str("logFormat", &target.LogFormat, source.LogFormat)

	m.str("downloadPath", &target.DownloadPath, source.DownloadPath)
	m.str("distro", &target.Distro, source.Distro)
	m.str("cacheDir", &target.CacheDir, source.CacheDir)
	m.str("proxy.host", &target.Proxy.Host, source.Proxy.Host)
	m.num("proxy.port", &target.Proxy.Port, source.Proxy.Port)
	m.str("proxy.protocol", &target.Proxy.Protocol, source.Proxy.Protocol)
	m.str("proxy.user", &target.Proxy.User, source.Proxy.User)
	m.str("proxy.password", &target.Proxy.Password, source.Proxy.Password)
	m.str("proxy.nonProxyHosts", &target.Proxy.NonProxyHosts, source.Proxy.NonProxyHosts)
	m.str("binDir", &target.BinDir, source.BinDir)
	m.str("mongodBin", &target.MongodBin, source.MongodBin)
	m.str("mongoimportBin", &target.ImportBin, source.ImportBin)
	m.str("launcher", &target.Launcher, source.Launcher)
	m.str("image", &target.Image, source.Image)

	m.flag("wait", &target.Wait, source.Wait)
	m.flag("skip", &target.Skip, source.Skip)
	m.str("project", &target.Project, source.Project)
	m.str("stateFile", &target.StateFile, source.StateFile)

	if source.Imports != nil {
		target.Imports = source.Imports
		target.Sources["imports"] = sourceType
	}
	m.str("defaultImportDatabase", &target.DefaultImportDatabase, source.DefaultImportDatabase)
	m.flag("parallel", &target.Parallel, source.Parallel)
	m.flag("importWait", &target.ImportWait, source.ImportWait)
	m.flag("verifyImports", &target.VerifyImports, source.VerifyImports)

	m.str("scripts.directory", &target.Scripts.Directory, source.Scripts.Directory)
	m.str("scripts.database", &target.Scripts.Database, source.Scripts.Database)
	m.str("scripts.charset", &target.Scripts.Charset, source.Scripts.Charset)
	m.str("scripts.pattern", &target.Scripts.Pattern, source.Scripts.Pattern)
	m.str("scripts.evaluator", &target.Scripts.Evaluator, source.Scripts.Evaluator)
	m.str("scripts.shellBin", &target.Scripts.ShellBin, source.Scripts.ShellBin)
}
