package version

import (
	"slices"
	"strings"
)

// Feature is a capability flag that changes how a server version is
// launched or which distribution is downloaded.
type Feature string

// Known features.
const (
	FeatureSyncDelay              Feature = "SYNC_DELAY"
	FeatureTextSearch             Feature = "TEXT_SEARCH"
	FeatureStorageEngine          Feature = "STORAGE_ENGINE"
	FeatureOnly64Bit              Feature = "ONLY_64BIT"
	FeatureNoChunkSizeArg         Feature = "NO_CHUNKSIZE_ARG"
	FeatureMongosConfigDBSetStyle Feature = "MONGOS_CONFIGDB_SET_STYLE"
	FeatureNoHTTPInterfaceArg     Feature = "NO_HTTP_INTERFACE_ARG"
	FeatureOnlyWithSSL            Feature = "ONLY_WITH_SSL"
	FeatureOnlyWindows2008Server  Feature = "ONLY_WINDOWS_2008_SERVER"
	FeatureNoSolarisSupport       Feature = "NO_SOLARIS_SUPPORT"
	FeatureNoBindIPToLocalhost    Feature = "NO_BIND_IP_TO_LOCALHOST"
)

var knownFeatures = map[Feature]struct{}{
	FeatureSyncDelay:              {},
	FeatureTextSearch:             {},
	FeatureStorageEngine:          {},
	FeatureOnly64Bit:              {},
	FeatureNoChunkSizeArg:         {},
	FeatureMongosConfigDBSetStyle: {},
	FeatureNoHTTPInterfaceArg:     {},
	FeatureOnlyWithSSL:            {},
	FeatureOnlyWindows2008Server:  {},
	FeatureNoSolarisSupport:       {},
	FeatureNoBindIPToLocalhost:    {},
}

// FeatureSet is an immutable set of features.
type FeatureSet struct {
	m map[Feature]struct{}
}

// NewFeatureSet builds a set from the given features.
func NewFeatureSet(features ...Feature) FeatureSet {
	if len(features) == 0 {
		return FeatureSet{}
	}
	m := make(map[Feature]struct{}, len(features))
	for _, f := range features {
		m[f] = struct{}{}
	}
	return FeatureSet{m: m}
}

// Has reports whether f is in the set.
func (s FeatureSet) Has(f Feature) bool {
	_, ok := s.m[f]
	return ok
}

// Len returns the number of features.
func (s FeatureSet) Len() int { return len(s.m) }

// List returns the features sorted by name.
func (s FeatureSet) List() []Feature {
	out := make([]Feature, 0, len(s.m))
	for f := range s.m {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// String renders the set the way it is written in configuration.
func (s FeatureSet) String() string {
	list := s.List()
	parts := make([]string, len(list))
	for i, f := range list {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

// MarshalText implements encoding.TextMarshaler.
func (s FeatureSet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// parseFeatures turns "a, b ,c" into a set. The first unknown token is
// returned as bad and the set is empty.
func parseFeatures(text string) (set FeatureSet, bad string) {
	var list []Feature
	for _, tok := range strings.Split(text, ",") {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		f := Feature(tok)
		if _, ok := knownFeatures[f]; !ok {
			return FeatureSet{}, tok
		}
		list = append(list, f)
	}
	return NewFeatureSet(list...), ""
}
