package version

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/getmockd/embedmongo/pkg/logging"
)

// Version is a release in the closed table of known MongoDB versions.
type Version struct {
	token  string // V3_6_23
	dotted string // 3.6.23
	major  int
	minor  int
	patch  int
}

// Token returns the enum-style name, e.g. "V3_6_23".
func (v Version) Token() string { return v.token }

// String returns the dotted release number.
func (v Version) String() string { return v.dotted }

// Major returns the major release number.
func (v Version) Major() int { return v.major }

// Minor returns the minor release number.
func (v Version) Minor() int { return v.minor }

// releases lists every version the resolver recognises.
var releases = []string{
	"1.6.5", "1.7.6",
	"1.8.0", "1.8.1", "1.8.2", "1.8.4", "1.8.5",
	"2.0.1", "2.0.4", "2.0.5", "2.0.6", "2.0.7", "2.0.8", "2.0.9",
	"2.1.0", "2.1.1", "2.1.2",
	"2.2.0", "2.2.1", "2.2.3", "2.2.4", "2.2.5", "2.2.6", "2.2.7",
	"2.4.0", "2.4.1", "2.4.2", "2.4.3", "2.4.5", "2.4.6", "2.4.7", "2.4.8", "2.4.9", "2.4.10",
	"2.5.0", "2.5.1", "2.5.3", "2.5.4",
	"2.6.0", "2.6.1", "2.6.8", "2.6.10", "2.6.11", "2.6.12",
	"3.0.0", "3.0.1", "3.0.2", "3.0.4", "3.0.5", "3.0.6", "3.0.7", "3.0.8", "3.0.14",
	"3.1.0", "3.1.6",
	"3.2.0", "3.2.1", "3.2.20",
	"3.3.1",
	"3.4.0", "3.4.3", "3.4.5", "3.4.15",
	"3.5.5",
	"3.6.0", "3.6.2", "3.6.3", "3.6.5", "3.6.22", "3.6.23",
	"4.0.2", "4.0.12", "4.0.28",
	"4.2.24",
	"4.4.29",
	"5.0.31",
	"6.0.25",
	"7.0.24",
	"8.0.15",
}

var known = func() map[string]Version {
	m := make(map[string]Version, len(releases))
	for _, r := range releases {
		major, minor, patch, ok := parseDotted(r)
		if !ok {
			panic("version: bad release entry " + r)
		}
		v := Version{token: tokenOf(r), dotted: r, major: major, minor: minor, patch: patch}
		m[v.token] = v
	}
	return m
}()

// Known returns every known version in release order.
func Known() []Version {
	out := make([]Version, 0, len(releases))
	for _, r := range releases {
		out = append(out, known[tokenOf(r)])
	}
	return out
}

// tokenOf maps user text onto the table key: uppercase, dots become
// underscores, and a leading V is added when missing.
func tokenOf(text string) string {
	tok := strings.ReplaceAll(strings.ToUpper(text), ".", "_")
	if !strings.HasPrefix(tok, "V") {
		tok = "V" + tok
	}
	return tok
}

func parseDotted(s string) (major, minor, patch int, ok bool) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V"), ".")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, 0, 0, false
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], true
}

// defaultFeatures is the feature set a known release carries when no
// explicit list is configured.
func defaultFeatures(v Version) FeatureSet {
	at := func(major, minor int) bool {
		return v.major > major || (v.major == major && v.minor >= minor)
	}
	var fs []Feature
	if at(2, 2) {
		fs = append(fs, FeatureSyncDelay)
	}
	if at(2, 4) {
		fs = append(fs, FeatureTextSearch)
	}
	if at(3, 0) {
		fs = append(fs, FeatureStorageEngine)
	}
	if at(3, 4) {
		fs = append(fs, FeatureOnly64Bit, FeatureNoChunkSizeArg, FeatureMongosConfigDBSetStyle)
	}
	if at(3, 6) {
		fs = append(fs, FeatureNoHTTPInterfaceArg, FeatureNoSolarisSupport, FeatureNoBindIPToLocalhost)
	}
	return NewFeatureSet(fs...)
}

// Descriptor is the resolved form of configured version text. It is either
// Known, carrying a table entry and its features, or unknown, carrying the
// raw text and no features. Descriptors are immutable values.
type Descriptor struct {
	version  Version
	raw      string
	features FeatureSet
}

// Known reports whether the text matched the version table.
func (d Descriptor) Known() bool { return d.version.token != "" }

// Name is the table token for known versions and the original text otherwise.
func (d Descriptor) Name() string {
	if d.Known() {
		return d.version.token
	}
	return d.raw
}

// Raw returns the text the descriptor was resolved from.
func (d Descriptor) Raw() string { return d.raw }

// DownloadPath is the version component of distribution URLs.
func (d Descriptor) DownloadPath() string {
	if d.Known() {
		return d.version.dotted
	}
	return d.raw
}

// Version returns the table entry for known descriptors.
func (d Descriptor) Version() (Version, bool) {
	return d.version, d.Known()
}

// Features returns the feature set. Always empty for unknown versions.
func (d Descriptor) Features() FeatureSet { return d.features }

// Has reports whether the descriptor carries feature f.
func (d Descriptor) Has(f Feature) bool { return d.features.Has(f) }

// AtLeast compares the release against major.minor. Unknown versions are
// compared by their dotted text when it parses, and are otherwise assumed
// to be newer than anything in the table.
func (d Descriptor) AtLeast(major, minor int) bool {
	vmaj, vmin := d.version.major, d.version.minor
	if !d.Known() {
		var ok bool
		vmaj, vmin, _, ok = parseDotted(d.raw)
		if !ok {
			return true
		}
	}
	return vmaj > major || (vmaj == major && vmin >= minor)
}

// String implements fmt.Stringer.
func (d Descriptor) String() string {
	if d.Known() {
		return d.version.dotted
	}
	return d.raw + " (unknown)"
}

// MarshalJSON renders the descriptor for `status` and `resolve` output.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name         string    `json:"name"`
		Known        bool      `json:"known"`
		DownloadPath string    `json:"downloadPath"`
		Features     []Feature `json:"features"`
	}{d.Name(), d.Known(), d.DownloadPath(), d.features.List()})
}

// Resolve maps versionText onto the version table. featuresText is an
// optional comma-separated feature list that replaces the release's
// default features; a list with any unknown token is discarded with a
// warning, leaving no features at all. Text that matches no release yields an unknown descriptor and a
// warning, never an error.
func Resolve(log *slog.Logger, versionText, featuresText string) Descriptor {
	log = logging.Component(log, "version")

	v, ok := known[tokenOf(versionText)]
	if !ok {
		log.Warn("unrecognised MongoDB version, this might be a new version that is not yet known; attempting download anyway",
			"version", versionText)
		if strings.TrimSpace(featuresText) != "" {
			log.Warn("features ignored for unrecognised version", "features", featuresText)
		}
		return Descriptor{raw: versionText}
	}

	if strings.TrimSpace(featuresText) == "" {
		return Descriptor{version: v, raw: versionText, features: defaultFeatures(v)}
	}
	explicit, bad := parseFeatures(featuresText)
	if bad != "" {
		log.Warn("unknown feature, discarding feature list", "feature", bad, "features", featuresText)
		return Descriptor{version: v, raw: versionText, features: NewFeatureSet()}
	}
	return Descriptor{version: v, raw: versionText, features: explicit}
}
