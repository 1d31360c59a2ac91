// Package version resolves free-form MongoDB version text into a
// distribution descriptor.
//
// Resolution is fail-open: text that names no known release still yields a
// usable Descriptor (Known reports false) carrying the text verbatim, so new
// upstream releases can be downloaded before this table learns about them.
//
//	d := version.Resolve(log, "3.6.23", "")
//	d.Known()          // true
//	d.DownloadPath()   // "3.6.23"
//	d.Has(version.FeatureStorageEngine)
package version
