package mongod

import (
	"runtime"
	"slices"
	"strconv"

	"github.com/getmockd/embedmongo/pkg/version"
)

// ArgsProcessor rewrites a generated command line.
type ArgsProcessor func(args []string) []string

// WithAuth swaps --noauth for --auth when enabled, adding --auth if the
// generator emitted neither.
func WithAuth(enabled bool) ArgsProcessor {
	return func(args []string) []string {
		if !enabled {
			return args
		}
		out := slices.DeleteFunc(slices.Clone(args), func(a string) bool { return a == "--noauth" })
		if !slices.Contains(out, "--auth") {
			out = append(out, "--auth")
		}
		return out
	}
}

// BuildArgs generates the mongod command line for cfg, then applies
// cfg.Processors. cfg.Port and cfg.DataDir must already be resolved.
func BuildArgs(cfg Config) []string {
	v := cfg.Version
	args := []string{
		"--port", strconv.Itoa(cfg.Port),
		"--dbpath", cfg.DataDir,
	}
	if cfg.BindIP != "" {
		args = append(args, "--bind_ip", cfg.BindIP)
	}
	if cfg.IPv6 {
		args = append(args, "--ipv6")
	}
	// Features come from the release unless an explicit list replaced them,
	// and a discarded list leaves none, so the release bounds apply as well.
	if v.Has(version.FeatureSyncDelay) || (v.Known() && v.AtLeast(2, 2)) {
		args = append(args, "--syncdelay=0")
	}
	// --nohttpinterface was removed in 3.6.
	if v.Known() && !v.Has(version.FeatureNoHTTPInterfaceArg) && !v.AtLeast(3, 6) {
		args = append(args, "--nohttpinterface")
	}
	// --nojournal was removed in 6.1.
	if !cfg.Journal && !v.AtLeast(6, 1) {
		args = append(args, "--nojournal")
	}
	if cfg.StorageEngine != "" && (v.Has(version.FeatureStorageEngine) || v.AtLeast(3, 0)) {
		args = append(args, "--storageEngine", cfg.StorageEngine)
	}
	if !v.AtLeast(4, 0) {
		args = append(args, "--noauth")
	}
	if cfg.UnixSocketPrefix != "" && runtime.GOOS != "windows" {
		args = append(args, "--unixSocketPrefix="+cfg.UnixSocketPrefix)
	}
	args = append(args, cfg.ExtraArgs...)

	processors := append([]ArgsProcessor{WithAuth(cfg.AuthEnabled)}, cfg.Processors...)
	for _, p := range processors {
		args = p(args)
	}
	return args
}
