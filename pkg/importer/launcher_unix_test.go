//go:build unix

package importer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/embedmongo/pkg/output"
	"github.com/getmockd/embedmongo/pkg/version"
)

// fakeMongoImport writes a script that records its arguments to argsFile
// and then runs body.
func fakeMongoImport(t *testing.T, body string) (bin, argsFile string) {
	t.Helper()
	dir := t.TempDir()
	bin = filepath.Join(dir, "mongoimport")
	argsFile = filepath.Join(dir, "args")
	script := "#!/bin/sh\necho \"$@\" >> " + argsFile + "\n" + body + "\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, argsFile
}

func TestMongoImportLauncher_RunsBinary(t *testing.T) {
	bin, argsFile := fakeMongoImport(t, "echo imported 2 documents")
	var console bytes.Buffer
	sinks, err := output.RouteTo(&console, "console", output.FileOptions{})
	require.NoError(t, err)

	l := &MongoImportLauncher{Bin: bin, Host: "127.0.0.1", Port: 4242, Version: version.Resolve(nil, "3.6.23", ""), Sinks: sinks}
	h, err := l.Launch(context.Background(), Job{Database: "db", Collection: "c", File: "/x/c.json", Upsert: true, Timeout: 10 * time.Second})
	require.NoError(t, err)
	require.NoError(t, h.Wait())
	require.NoError(t, sinks.Close())

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, "--host 127.0.0.1 --port 4242 --db db --collection c --file /x/c.json --jsonArray --mode=upsert", strings.TrimSpace(string(args)))
	assert.Contains(t, console.String(), output.PrefixCommands+bin+" --host 127.0.0.1")
	assert.Contains(t, console.String(), output.PrefixOutput+"imported 2 documents")
}

func TestMongoImportLauncher_NonZeroExit(t *testing.T) {
	bin, _ := fakeMongoImport(t, "exit 7")
	l := &MongoImportLauncher{Bin: bin, Host: "127.0.0.1", Port: 1}

	h, err := l.Launch(context.Background(), Job{Database: "db", Collection: "c", File: "/x/c.json", Timeout: 10 * time.Second})
	require.NoError(t, err)

	err = h.Wait()
	var je *JobError
	require.ErrorAs(t, err, &je)
	assert.Equal(t, 7, je.ExitCode)
	assert.False(t, je.TimedOut)
	assert.ErrorIs(t, err, ErrJobFailed)
}

func TestMongoImportLauncher_Timeout(t *testing.T) {
	bin, _ := fakeMongoImport(t, "exec sleep 30")
	l := &MongoImportLauncher{Bin: bin, Host: "127.0.0.1", Port: 1}

	start := time.Now()
	h, err := l.Launch(context.Background(), Job{Database: "db", Collection: "slow", File: "/x/slow.json", Timeout: 200 * time.Millisecond})
	require.NoError(t, err)

	err = h.Wait()
	var je *JobError
	require.ErrorAs(t, err, &je)
	assert.True(t, je.TimedOut)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestMongoImportLauncher_MissingBinary(t *testing.T) {
	l := &MongoImportLauncher{Bin: filepath.Join(t.TempDir(), "nope"), Host: "127.0.0.1", Port: 1}
	_, err := l.Launch(context.Background(), Job{Database: "db", Collection: "c", File: "/x/c.json"})
	assert.ErrorIs(t, err, ErrLaunch)
}

func TestPipeline_WithMongoImportTimeoutFailsPipeline(t *testing.T) {
	bin, argsFile := fakeMongoImport(t, `case "$*" in *slow*) exec sleep 30;; esac`)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"fast.json": "[]", "slow.json": "[]", "zlast.json": "[]"})

	p := &Pipeline{Launcher: &MongoImportLauncher{Bin: bin, Host: "127.0.0.1", Port: 1}}
	err := p.Run(context.Background(), []Spec{{File: dir, TimeoutMillis: 200}}, "db", false)

	var je *JobError
	require.ErrorAs(t, err, &je)
	assert.Equal(t, "slow", je.Collection)
	assert.True(t, je.TimedOut)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.NotContains(t, string(args), "zlast", "jobs after a failure are not launched")
}
