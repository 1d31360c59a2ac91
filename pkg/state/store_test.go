package state

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract runs the behaviour every writable Store shares.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "embedmongo.port.demo")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "embedmongo.port.demo", "37017"))
	v, err := s.Get(ctx, "embedmongo.port.demo")
	require.NoError(t, err)
	assert.Equal(t, "37017", v)

	require.NoError(t, s.Set(ctx, "embedmongo.port.demo", "37018"))
	v, err = s.Get(ctx, "embedmongo.port.demo")
	require.NoError(t, err)
	assert.Equal(t, "37018", v)

	require.NoError(t, s.Delete(ctx, "embedmongo.port.demo"))
	require.NoError(t, s.Delete(ctx, "embedmongo.port.demo"))
	_, err = s.Get(ctx, "embedmongo.port.demo")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Set(ctx, " ", "x"), ErrBlankKey)
	_, err = s.Get(ctx, "")
	assert.ErrorIs(t, err, ErrBlankKey)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
	require.NoError(t, err)
	storeContract(t, s)
}

func TestFileStore_SharedBetweenHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	a, err := NewFileStore(path)
	require.NoError(t, err)
	b, err := NewFileStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Set(ctx, "k", "from-a"))
	v, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "from-a", v)
}

func TestFileStore_ConcurrentWritersKeepEveryKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// separate handles mimic separate processes
			s, err := NewFileStore(path)
			if !assert.NoError(t, err) {
				return
			}
			assert.NoError(t, s.Set(ctx, fmt.Sprintf("key%d", i), "v"))
		}()
	}
	wg.Wait()

	s, err := NewFileStore(path)
	require.NoError(t, err)
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap, 20)
}

func TestFileStore_Await(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	waiter, err := NewFileStore(path)
	require.NoError(t, err)
	writer, err := NewFileStore(path)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = writer.Set(ctx, "ready", "yes")
	}()

	v, err := waiter.Await(ctx, "ready")
	require.NoError(t, err)
	assert.Equal(t, "yes", v)
}

func TestFileStore_AwaitCancelled(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = s.Await(ctx, "never")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEnvStore(t *testing.T) {
	env := map[string]string{"EMBEDMONGO_PORT_MY_APP": "40001", "EMPTY": ""}
	s := EnvStore{Lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}
	ctx := context.Background()

	v, err := s.Get(ctx, "embedmongo.port.my-app")
	require.NoError(t, err)
	assert.Equal(t, "40001", v)

	_, err = s.Get(ctx, "empty")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Set(ctx, "a", "b"), ErrReadOnly)
	assert.ErrorIs(t, s.Delete(ctx, "a"), ErrReadOnly)
}

func TestEnvName(t *testing.T) {
	tests := map[string]string{
		"embedmongo.port.demo":     "EMBEDMONGO_PORT_DEMO",
		"embedmongo.port.my-app.2": "EMBEDMONGO_PORT_MY_APP_2",
		"a/b c":                    "A_B_C",
	}
	for in, want := range tests {
		assert.Equal(t, want, EnvName(in), in)
	}
}

func TestLayered(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	env := EnvStore{Lookup: func(k string) (string, bool) {
		if k == "ONLY_ENV" {
			return "env", true
		}
		return "", false
	}}
	l := Layered{mem, env}

	v, err := l.Get(ctx, "only.env")
	require.NoError(t, err)
	assert.Equal(t, "env", v)

	require.NoError(t, l.Set(ctx, "only.env", "mem"))
	v, err = l.Get(ctx, "only.env")
	require.NoError(t, err)
	assert.Equal(t, "mem", v, "first layer wins")

	assert.ErrorIs(t, Layered{env}.Set(ctx, "x", "y"), ErrReadOnly)

	_, err = l.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	type instance struct{ port int }
	r.Put(InstanceKey, &instance{port: 1234})

	got, ok := Lookup[*instance](r, InstanceKey)
	require.True(t, ok)
	assert.Equal(t, 1234, got.port)

	_, ok = Lookup[string](r, InstanceKey)
	assert.False(t, ok, "wrong type")

	_, ok = r.Remove(InstanceKey)
	assert.True(t, ok)
	_, ok = r.Get(InstanceKey)
	assert.False(t, ok)
}

func TestInstanceRecord_RoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	rec := &InstanceRecord{
		ID:            NewInstanceID(),
		Project:       "demo",
		SupervisorPID: 4242,
		Launcher:      "exec",
		Host:          "127.0.0.1",
		Port:          27017,
		Version:       "3.6.23",
		StartedAt:     time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, SaveInstance(ctx, s, rec))

	got, err := LoadInstance(ctx, s, "demo")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.Equal(t, "127.0.0.1:27017", got.Address())

	_, err = LoadInstance(ctx, s, "other")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, RemoveInstance(ctx, s, "demo"))
	_, err = LoadInstance(ctx, s, "demo")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, SaveInstance(ctx, s, &InstanceRecord{}))
}
