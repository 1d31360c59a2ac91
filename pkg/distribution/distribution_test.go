package distribution

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/embedmongo/pkg/version"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		features string
		opts     Options
		want     string
	}{
		{
			name:    "linux legacy generic build",
			version: "3.6.23",
			opts:    Options{Platform: Platform{"linux", "amd64"}},
			want:    "https://fastdl.mongodb.org/linux/mongodb-linux-x86_64-3.6.23.tgz",
		},
		{
			name:    "linux distro build",
			version: "7.0.24",
			opts:    Options{Platform: Platform{"linux", "arm64"}, Distro: "ubuntu2204"},
			want:    "https://fastdl.mongodb.org/linux/mongodb-linux-aarch64-ubuntu2204-7.0.24.tgz",
		},
		{
			name:    "old osx",
			version: "2.2.1",
			opts:    Options{Platform: Platform{"darwin", "amd64"}},
			want:    "https://fastdl.mongodb.org/osx/mongodb-osx-x86_64-2.2.1.tgz",
		},
		{
			name:    "macos renamed",
			version: "6.0.25",
			opts:    Options{Platform: Platform{"darwin", "arm64"}, BaseURL: "http://mirror.local/mongo/"},
			want:    "http://mirror.local/mongo/osx/mongodb-macos-arm64-6.0.25.tgz",
		},
		{
			name:     "windows 2008plus ssl",
			version:  "3.2.20",
			features: "ONLY_WINDOWS_2008_SERVER,ONLY_WITH_SSL",
			opts:     Options{Platform: Platform{"windows", "amd64"}},
			want:     "https://fastdl.mongodb.org/win32/mongodb-win32-x86_64-2008plus-ssl-3.2.20.zip",
		},
		{
			name:    "unknown version used verbatim",
			version: "9.1.0",
			opts:    Options{Platform: Platform{"linux", "amd64"}},
			want:    "https://fastdl.mongodb.org/linux/mongodb-linux-x86_64-9.1.0.tgz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Resolve(version.Resolve(nil, tt.version, tt.features), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.URL)
			assert.Equal(t, filepath.Base(tt.want), d.Archive)
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	_, err := Resolve(version.Resolve(nil, "3.6.23", ""), Options{Platform: Platform{"linux", "386"}})
	assert.ErrorIs(t, err, ErrDistribution)

	_, err = Resolve(version.Resolve(nil, "3.6.23", ""), Options{Platform: Platform{"plan9", "amd64"}})
	assert.ErrorIs(t, err, ErrDistribution)

	_, err = Resolve(version.Resolve(nil, "", ""), Options{Platform: Platform{"linux", "amd64"}})
	require.ErrorIs(t, err, ErrDistribution)
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "", de.Version)
}

func TestProxyFunc(t *testing.T) {
	must := func(s string) *url.URL {
		u, err := url.Parse(s)
		require.NoError(t, err)
		return u
	}

	p := ProxyConfig{Host: "proxy.corp", Port: 3128, Protocol: "http", NonProxyHosts: "*.internal|mirror.corp"}
	fn := p.ProxyFunc()

	got, err := fn(must("http://fastdl.mongodb.org/linux/x.tgz"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "proxy.corp:3128", got.Host)

	// scheme differs from the proxy protocol
	got, err = fn(must("https://fastdl.mongodb.org/linux/x.tgz"))
	require.NoError(t, err)
	assert.Nil(t, got)

	// bypassed hosts
	for _, u := range []string{"http://a.internal/x.tgz", "http://mirror.corp/x.tgz"} {
		got, err = fn(must(u))
		require.NoError(t, err)
		assert.Nil(t, got, u)
	}

	https := ProxyConfig{Host: "proxy.corp", Port: 8443, Protocol: "HTTPS", User: "u", Password: "p"}.ProxyFunc()
	got, err = https(must("https://fastdl.mongodb.org/x.tgz"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u", got.User.Username())
}

func buildTgz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o755, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestStore_FetchDownloadsOnce(t *testing.T) {
	archive := buildTgz(t, map[string]string{
		"mongodb-linux-x86_64-3.6.23/bin/" + BinName("mongod"):       "#!/bin/sh\n",
		"mongodb-linux-x86_64-3.6.23/bin/" + BinName("mongoimport"): "#!/bin/sh\n",
		"mongodb-linux-x86_64-3.6.23/README":                        "readme",
	})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	d := Distribution{Version: "3.6.23", Archive: "mongodb-linux-x86_64-3.6.23.tgz", Format: "tgz", URL: srv.URL + "/linux/mongodb-linux-x86_64-3.6.23.tgz"}
	s := NewStore(t.TempDir(), srv.Client(), nil)

	bin, err := s.Fetch(context.Background(), d)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(bin, BinName("mongod")))
	assert.FileExists(t, filepath.Join(bin, BinName("mongoimport")))
	assert.NoFileExists(t, filepath.Join(bin, "README"))

	again, err := s.Fetch(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, bin, again)
	assert.Equal(t, int32(1), hits.Load())

	leftovers, _ := filepath.Glob(filepath.Join(s.Dir(), "*.download"))
	assert.Empty(t, leftovers)
}

func TestStore_FetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	s := NewStore(t.TempDir(), NewClient(ProxyConfig{}, 5*time.Second), nil)
	_, err := s.Fetch(context.Background(), Distribution{Version: "9.9.9", Archive: "x.tgz", Format: "tgz", URL: srv.URL + "/x.tgz"})
	require.ErrorIs(t, err, ErrDistribution)
	assert.Contains(t, err.Error(), `"9.9.9"`)
}

func TestStore_FetchArchiveWithoutMongod(t *testing.T) {
	archive := buildTgz(t, map[string]string{"pkg/bin/other": "x"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	dir := t.TempDir()
	s := NewStore(dir, srv.Client(), nil)
	_, err := s.Fetch(context.Background(), Distribution{Version: "1", Archive: "p.tgz", Format: "tgz", URL: srv.URL})
	assert.ErrorIs(t, err, ErrDistribution)

	_, statErr := os.Stat(filepath.Join(dir, "p.partial"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestBinEntry(t *testing.T) {
	assert.Equal(t, "mongod", binEntry("mongodb-linux/bin/mongod"))
	assert.Equal(t, "mongod.exe", binEntry(`mongodb-win32\bin\mongod.exe`))
	assert.Equal(t, "", binEntry("mongodb-linux/bin/"))
	assert.Equal(t, "", binEntry("mongodb-linux/lib/libx.so"))
	assert.Equal(t, "", binEntry("../../bin/../etc/passwd"))
}
