package cli

import (
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/embedmongo/pkg/cliconfig"
	"github.com/getmockd/embedmongo/pkg/importer"
)

func TestParseImport(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want importer.Spec
	}{
		{"file only", "users.json", importer.Spec{File: "users.json"}},
		{"collection", "people=users.json", importer.Spec{Collection: "people", File: "users.json"}},
		{"database and collection", "app.people=data/users.json", importer.Spec{Database: "app", Collection: "people", File: filepath.Clean("data/users.json")}},
		{"spaces trimmed", " app . people = ./users.json", importer.Spec{Database: "app", Collection: "people", File: "users.json"}},
		{"directory", "app.=seed/", importer.Spec{Database: "app", File: "seed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseImport(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseImport_BlankFile(t *testing.T) {
	for _, in := range []string{"", "app.users=", "users=  "} {
		_, err := parseImport(in)
		assert.ErrorIs(t, err, importer.ErrFileRequired, "input %q", in)
	}
}

func newTestFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addCommonFlags(fs)
	addServerFlags(fs)
	addImportFlags(fs)
	addScriptsFlags(fs)
	return fs
}

func TestApplyFlags(t *testing.T) {
	fs := newTestFlags(t)
	require.NoError(t, fs.Parse([]string{
		"--version", "4.0.2",
		"--random-port",
		"--port=0",
		"--import", "app.users=users.json",
		"--import", "orders.json",
		"--database-name", "app",
		"--journal=false",
	}))

	cfg := cliconfig.NewDefault()
	cfg.Journal = true
	cfg.Imports = []importer.Spec{{File: "from-config.json"}}
	require.NoError(t, applyFlags(cfg, fs))

	assert.Equal(t, "4.0.2", cfg.Version)
	assert.True(t, cfg.RandomPort)
	assert.Equal(t, 0, cfg.Port)
	assert.False(t, cfg.Journal)
	assert.Equal(t, "app", cfg.Scripts.Database)
	assert.Equal(t, []importer.Spec{
		{Database: "app", Collection: "users", File: "users.json"},
		{File: "orders.json"},
	}, cfg.Imports)

	assert.Equal(t, cliconfig.SourceFlag, cfg.Sources["version"])
	assert.Equal(t, cliconfig.SourceFlag, cfg.Sources["imports"])
	assert.Equal(t, cliconfig.SourceFlag, cfg.Sources["scripts.database"])
	assert.NotEqual(t, cliconfig.SourceFlag, cfg.Sources["bindIp"])
}

func TestApplyFlags_UnsetFlagsKeepConfig(t *testing.T) {
	fs := newTestFlags(t)
	require.NoError(t, fs.Parse(nil))

	cfg := cliconfig.NewDefault()
	cfg.Version = "3.6.5"
	cfg.Sources["version"] = cliconfig.SourceLocal
	require.NoError(t, applyFlags(cfg, fs))

	assert.Equal(t, "3.6.5", cfg.Version)
	assert.Equal(t, cliconfig.SourceLocal, cfg.Sources["version"])
}

func TestApplyFlags_BadImport(t *testing.T) {
	fs := newTestFlags(t)
	require.NoError(t, fs.Parse([]string{"--import", "app.users="}))

	err := applyFlags(cliconfig.NewDefault(), fs)
	assert.ErrorIs(t, err, cliconfig.ErrInvalidConfig)
	assert.ErrorIs(t, err, importer.ErrFileRequired)
}

func TestIntFlag_RejectsText(t *testing.T) {
	fs := newTestFlags(t)
	assert.Error(t, fs.Parse([]string{"--port", "many"}))
}

func TestForwardFlags(t *testing.T) {
	fs := newTestFlags(t)
	fs.Bool("wait", false, "")
	require.NoError(t, fs.Parse([]string{
		"--project", "billing",
		"--wait",
		"--port", "28017",
		"--arg", "--quiet",
		"--arg", "--nounixsocket",
	}))

	got := forwardFlags(fs, "wait")
	assert.ElementsMatch(t, []string{
		"--project=billing",
		"--port=28017",
		"--arg=--quiet",
		"--arg=--nounixsocket",
	}, got)

	// Forwarded flags parse back to the same config.
	again := newTestFlags(t)
	require.NoError(t, again.Parse(got))
	want, have := cliconfig.NewDefault(), cliconfig.NewDefault()
	require.NoError(t, applyFlags(want, fs))
	require.NoError(t, applyFlags(have, again))
	assert.Equal(t, want.Project, have.Project)
	assert.Equal(t, want.Port, have.Port)
	assert.Equal(t, want.ExtraArgs, have.ExtraArgs)
}
