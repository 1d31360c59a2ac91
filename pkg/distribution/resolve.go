package distribution

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/getmockd/embedmongo/pkg/version"
)

// DefaultBaseURL is where distributions are downloaded from.
const DefaultBaseURL = "https://fastdl.mongodb.org"

// Platform identifies the host a distribution must run on.
type Platform struct {
	OS   string // GOOS
	Arch string // GOARCH
}

// Current returns the platform of this process.
func Current() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// Distribution is one downloadable archive.
type Distribution struct {
	Version string `json:"version"` // download path component
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	Archive string `json:"archive"` // file name
	Format  string `json:"format"`  // "tgz" or "zip"
	URL     string `json:"url"`
}

// Name is the archive file name without extension; the cache directory
// uses it.
func (d Distribution) Name() string {
	return strings.TrimSuffix(d.Archive, "."+d.Format)
}

// Options tune Resolve.
type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Distro selects a Linux build flavour such as "ubuntu2204" or
	// "rhel80". Releases from 4.2 on publish no generic Linux archive.
	Distro string

	Platform Platform
}

// Resolve builds the download location for desc on opts.Platform.
func Resolve(desc version.Descriptor, opts Options) (Distribution, error) {
	fail := func(format string, args ...any) (Distribution, error) {
		return Distribution{}, &Error{Version: desc.Raw(), Err: fmt.Errorf(format, args...)}
	}

	if strings.TrimSpace(desc.DownloadPath()) == "" {
		return fail("blank version")
	}

	p := opts.Platform
	if p.OS == "" {
		p = Current()
	}
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	arch, err := archName(p, desc)
	if err != nil {
		return fail("%v", err)
	}

	d := Distribution{Version: desc.DownloadPath(), Arch: arch, Format: "tgz"}
	var dir, flavour string
	switch p.OS {
	case "linux":
		dir, d.OS = "linux", "linux"
		if opts.Distro != "" {
			flavour = opts.Distro + "-"
		}
	case "darwin":
		dir, d.OS = "osx", "osx"
		if desc.AtLeast(4, 2) {
			d.OS = "macos"
		}
	case "windows":
		dir, d.OS, d.Format = "win32", "win32", "zip"
		switch {
		case desc.Has(version.FeatureOnlyWindows2008Server) && desc.Has(version.FeatureOnlyWithSSL):
			flavour = "2008plus-ssl-"
		case desc.Has(version.FeatureOnlyWindows2008Server):
			flavour = "2008plus-"
		}
	case "solaris":
		if desc.Has(version.FeatureNoSolarisSupport) {
			return fail("no Solaris builds for this version")
		}
		dir, d.OS = "sunos5", "sunos5"
	default:
		return fail("unsupported operating system %s", p.OS)
	}

	d.Archive = fmt.Sprintf("mongodb-%s-%s-%s%s.%s", d.OS, d.Arch, flavour, d.Version, d.Format)
	d.URL = fmt.Sprintf("%s/%s/%s", base, dir, d.Archive)
	return d, nil
}

func archName(p Platform, desc version.Descriptor) (string, error) {
	switch p.Arch {
	case "amd64":
		return "x86_64", nil
	case "386":
		if desc.Has(version.FeatureOnly64Bit) {
			return "", fmt.Errorf("only 64-bit builds exist for this version")
		}
		return "i686", nil
	case "arm64":
		if p.OS == "darwin" {
			return "arm64", nil
		}
		return "aarch64", nil
	}
	return "", fmt.Errorf("unsupported architecture %s", p.Arch)
}
