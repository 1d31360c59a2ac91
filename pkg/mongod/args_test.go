package mongod

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/getmockd/embedmongo/pkg/version"
)

func cfgFor(v string) Config {
	return Config{Version: version.Resolve(nil, v, ""), Port: 37017, DataDir: "/tmp/db"}
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func() Config
		has     []string
		hasNot  []string
		ordered []string
	}{
		{
			name:    "legacy 2.2",
			cfg:     func() Config { return cfgFor("2.2.1") },
			ordered: []string{"--port", "37017", "--dbpath", "/tmp/db"},
			has:     []string{"--syncdelay=0", "--nohttpinterface", "--nojournal", "--noauth"},
			hasNot:  []string{"--storageEngine", "--auth", "--bind_ip"},
		},
		{
			name: "3.6 storage engine and bind ip",
			cfg: func() Config {
				c := cfgFor("3.6.23")
				c.StorageEngine = "wiredTiger"
				c.BindIP = "127.0.0.1"
				return c
			},
			has:    []string{"--storageEngine", "wiredTiger", "--bind_ip", "--noauth"},
			hasNot: []string{"--nohttpinterface"},
		},
		{
			name: "storage engine ignored before 3.0",
			cfg: func() Config {
				c := cfgFor("2.6.12")
				c.StorageEngine = "mmapv1"
				return c
			},
			hasNot: []string{"--storageEngine"},
		},
		{
			name: "discarded feature list keeps release flags",
			cfg: func() Config {
				c := Config{Version: version.Resolve(nil, "3.6.23", "ONLY_WITH_SSL,BOGUS"), Port: 37017, DataDir: "/tmp/db"}
				c.StorageEngine = "wiredTiger"
				return c
			},
			has:    []string{"--syncdelay=0", "--storageEngine", "wiredTiger"},
			hasNot: []string{"--nohttpinterface"},
		},
		{
			name:   "discarded feature list on 2.2",
			cfg:    func() Config { return Config{Version: version.Resolve(nil, "2.2.1", "BOGUS"), Port: 37017, DataDir: "/tmp/db"} },
			has:    []string{"--syncdelay=0", "--nohttpinterface"},
			hasNot: []string{"--storageEngine"},
		},
		{
			name:   "7.0 has no nojournal or noauth",
			cfg:    func() Config { return cfgFor("7.0.24") },
			hasNot: []string{"--nojournal", "--noauth", "--nohttpinterface"},
		},
		{
			name: "journal on",
			cfg: func() Config {
				c := cfgFor("3.4.15")
				c.Journal = true
				return c
			},
			hasNot: []string{"--nojournal"},
		},
		{
			name: "auth swaps noauth",
			cfg: func() Config {
				c := cfgFor("3.6.23")
				c.AuthEnabled = true
				return c
			},
			has:    []string{"--auth"},
			hasNot: []string{"--noauth"},
		},
		{
			name: "ipv6 and extra args",
			cfg: func() Config {
				c := cfgFor("4.0.28")
				c.IPv6 = true
				c.ExtraArgs = []string{"--quiet"}
				return c
			},
			has: []string{"--ipv6", "--quiet"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := BuildArgs(tt.cfg())
			for _, a := range tt.has {
				assert.Contains(t, args, a)
			}
			for _, a := range tt.hasNot {
				assert.NotContains(t, args, a)
			}
			if tt.ordered != nil {
				assert.Equal(t, tt.ordered, args[:len(tt.ordered)])
			}
		})
	}
}

func TestBuildArgs_UnixSocketPrefix(t *testing.T) {
	c := cfgFor("3.6.23")
	c.UnixSocketPrefix = "/tmp/sock"
	args := BuildArgs(c)
	if runtime.GOOS == "windows" {
		assert.NotContains(t, args, "--unixSocketPrefix=/tmp/sock")
	} else {
		assert.Contains(t, args, "--unixSocketPrefix=/tmp/sock")
	}
}

func TestBuildArgs_ProcessorsRunAfterAuth(t *testing.T) {
	c := cfgFor("3.6.23")
	c.AuthEnabled = true
	var seen []string
	c.Processors = []ArgsProcessor{func(args []string) []string {
		seen = args
		return append(args, "--verbose")
	}}

	args := BuildArgs(c)
	assert.Contains(t, seen, "--auth")
	assert.Equal(t, "--verbose", args[len(args)-1])
}

func TestWithAuth(t *testing.T) {
	in := []string{"--port", "1", "--noauth"}
	assert.Equal(t, in, WithAuth(false)(in))
	assert.Equal(t, []string{"--port", "1", "--auth"}, WithAuth(true)(in))
	assert.Equal(t, []string{"--port", "1", "--noauth"}, in, "input is not modified")
	assert.Equal(t, []string{"--auth"}, WithAuth(true)([]string{"--auth"}))
}

func TestContainerArgs(t *testing.T) {
	in := []string{"--port", "1", "--dbpath", "/d", "--bind_ip", "127.0.0.1", "--ipv6",
		"--unixSocketPrefix=/s", "--nojournal", "--storageEngine", "wiredTiger"}
	assert.Equal(t, []string{"--nojournal", "--storageEngine", "wiredTiger"}, containerArgs(in))
}

func TestConfig_Host(t *testing.T) {
	assert.Equal(t, "127.0.0.1", Config{}.Host())
	assert.Equal(t, "::1", Config{IPv6: true}.Host())
	assert.Equal(t, "127.0.0.1", Config{BindIP: "0.0.0.0"}.Host())
	assert.Equal(t, "10.0.0.5", Config{BindIP: "10.0.0.5"}.Host())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, cfgFor("3.6.23").validate())

	c := cfgFor("3.6.23")
	c.Port = 70000
	assert.ErrorIs(t, c.validate(), ErrConfig)

	c = cfgFor("3.6.23")
	c.BindIP = "not an ip"
	assert.ErrorIs(t, c.validate(), ErrConfig)

	assert.ErrorIs(t, Config{Version: version.Resolve(nil, "", "")}.validate(), ErrConfig)
}

func TestState_Transitions(t *testing.T) {
	assert.True(t, canTransition(StateIdle, StateConfiguring))
	assert.True(t, canTransition(StateConfiguring, StateFailed))
	assert.True(t, canTransition(StateStarting, StateFailed))
	assert.True(t, canTransition(StateWaiting, StateRunning))
	assert.False(t, canTransition(StateRunning, StateFailed))
	assert.False(t, canTransition(StateStopped, StateRunning))
	assert.False(t, canTransition(StateIdle, StateRunning))

	assert.Equal(t, "waiting", StateWaiting.String())
	assert.Equal(t, "unknown", State(42).String())
}
