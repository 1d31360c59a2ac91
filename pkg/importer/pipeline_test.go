package importer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Launcher that logs every launch and wait.
type recorder struct {
	mu     sync.Mutex
	events []string

	exitCodes map[string]int
	launchErr map[string]error
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) Launch(_ context.Context, job Job) (Handle, error) {
	if err := r.launchErr[job.Collection]; err != nil {
		r.add("launch-failed " + job.Collection)
		return nil, err
	}
	r.add("launch " + job.Collection)
	return &recordedHandle{r: r, job: job}, nil
}

type recordedHandle struct {
	r   *recorder
	job Job
}

func (h *recordedHandle) Wait() error {
	h.r.add("wait " + h.job.Collection)
	if code := h.r.exitCodes[h.job.Collection]; code != 0 {
		return &JobError{File: h.job.File, Database: h.job.Database, Collection: h.job.Collection, ExitCode: code}
	}
	return nil
}

func twoSpecs(t *testing.T) []Spec {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"first.json": "[]", "second.json": "[]"})
	return []Spec{
		{File: filepath.Join(dir, "first.json")},
		{File: filepath.Join(dir, "second.json")},
	}
}

func TestPipeline_Sequential(t *testing.T) {
	r := &recorder{}
	p := &Pipeline{Launcher: r}

	require.NoError(t, p.Run(context.Background(), twoSpecs(t), "db", false))
	assert.Equal(t, []string{"launch first", "wait first", "launch second", "wait second"}, r.Events())
}

func TestPipeline_Concurrent(t *testing.T) {
	r := &recorder{}
	p := &Pipeline{Launcher: r}

	require.NoError(t, p.Run(context.Background(), twoSpecs(t), "db", true))
	assert.Equal(t, []string{"launch first", "launch second", "wait first", "wait second"}, r.Events())
}

func TestPipeline_SequentialStopsOnFirstFailure(t *testing.T) {
	r := &recorder{exitCodes: map[string]int{"first": 3}}
	p := &Pipeline{Launcher: r}

	err := p.Run(context.Background(), twoSpecs(t), "db", false)
	require.ErrorIs(t, err, ErrJobFailed)

	var je *JobError
	require.ErrorAs(t, err, &je)
	assert.Equal(t, "first", je.Collection)
	assert.Equal(t, 3, je.ExitCode)
	assert.Contains(t, err.Error(), "first.json")
	assert.Equal(t, []string{"launch first", "wait first"}, r.Events())
}

func TestPipeline_ConcurrentDrainsAndJoinsFailures(t *testing.T) {
	r := &recorder{exitCodes: map[string]int{"first": 1, "second": 2}}
	p := &Pipeline{Launcher: r}

	err := p.Run(context.Background(), twoSpecs(t), "db", true)
	require.Error(t, err)
	assert.Equal(t, []string{"launch first", "launch second", "wait first", "wait second"}, r.Events())

	var je *JobError
	require.ErrorAs(t, err, &je)
	assert.Equal(t, "first", je.Collection, "the first failure in launch order is reported first")
	assert.Contains(t, err.Error(), "exit code 1")
	assert.Contains(t, err.Error(), "exit code 2")
}

func TestPipeline_LaunchFailureStopsLaunching(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.json": "[]", "b.json": "[]", "c.json": "[]"})
	boom := errors.New("no such binary")
	r := &recorder{launchErr: map[string]error{"b": boom}}
	p := &Pipeline{Launcher: r}

	err := p.Run(context.Background(), []Spec{{File: dir}}, "db", true)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"launch a", "launch-failed b", "wait a"}, r.Events())
}

func TestPipeline_ValidatesBeforeLaunching(t *testing.T) {
	specs := twoSpecs(t)
	specs = append(specs, Spec{File: ""})
	r := &recorder{}
	p := &Pipeline{Launcher: r}

	err := p.Run(context.Background(), specs, "db", false)
	require.ErrorIs(t, err, ErrFileRequired)
	assert.Empty(t, r.Events())

	err = p.Run(context.Background(), twoSpecs(t), "", false)
	require.ErrorIs(t, err, ErrDatabaseRequired)
	assert.Empty(t, r.Events())
}

func TestPipeline_VerifyRejectsNonArray(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.json": "[]", "b.json": `{"not": "array"}`})
	r := &recorder{}
	p := &Pipeline{Launcher: r, Verify: true}

	err := p.Run(context.Background(), []Spec{{File: dir}}, "db", false)
	require.ErrorIs(t, err, ErrNotJSONArray)
	assert.Empty(t, r.Events())
}

func TestPipeline_NoImportsIsSuccess(t *testing.T) {
	r := &recorder{}
	p := &Pipeline{Launcher: r}
	assert.NoError(t, p.Run(context.Background(), nil, "", true))
	assert.Empty(t, r.Events())
}

func TestPipeline_DirectoryExpandsToOneJobPerFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.json": "[]", "b.json": "[]"})
	r := &recorder{}
	p := &Pipeline{Launcher: r}

	require.NoError(t, p.Run(context.Background(), []Spec{{File: dir}}, "db", false))
	assert.Equal(t, []string{"launch a", "wait a", "launch b", "wait b"}, r.Events())
}

func TestPipeline_CheckLaunchesNothing(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.json": "[]", "b.json": `{"not": "array"}`})
	r := &recorder{}

	jobs, err := (&Pipeline{Launcher: r}).Check([]Spec{{File: dir}}, "db")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	_, err = (&Pipeline{Launcher: r, Verify: true}).Check([]Spec{{File: dir}}, "db")
	assert.ErrorIs(t, err, ErrNotJSONArray)
	assert.Empty(t, r.Events())
}
