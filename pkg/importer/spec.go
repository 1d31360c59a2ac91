package importer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/embedmongo/pkg/logging"
)

// DefaultTimeout bounds one mongoimport run.
const DefaultTimeout = 200 * time.Second

// Spec is one entry of the imports list.
type Spec struct {
	// Database defaults to the pipeline's default database.
	Database string `yaml:"database,omitempty" json:"database,omitempty"`

	// Collection defaults to the file's base name. When it is blank and
	// File is a directory, every matching file in it is imported.
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`

	File string `yaml:"file" json:"file"`

	// Pattern selects files of a directory spec, relative to the directory.
	// "**" descends into subdirectories. Blank matches *.json in any case.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	// Drop and Upsert default to true.
	Drop   *bool `yaml:"dropOnImport,omitempty" json:"dropOnImport,omitempty"`
	Upsert *bool `yaml:"upsertOnImport,omitempty" json:"upsertOnImport,omitempty"`

	// TimeoutMillis defaults to 200000.
	TimeoutMillis int64 `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// DropOnImport reports whether the collection is dropped first.
func (s Spec) DropOnImport() bool { return s.Drop == nil || *s.Drop }

// UpsertOnImport reports whether documents are upserted.
func (s Spec) UpsertOnImport() bool { return s.Upsert == nil || *s.Upsert }

// Timeout returns the per-job timeout.
func (s Spec) Timeout() time.Duration {
	if s.TimeoutMillis <= 0 {
		return DefaultTimeout
	}
	return time.Duration(s.TimeoutMillis) * time.Millisecond
}

func (s Spec) String() string {
	return fmt.Sprintf("{database=%q collection=%q file=%q drop=%t upsert=%t timeout=%s}",
		s.Database, s.Collection, s.File, s.DropOnImport(), s.UpsertOnImport(), s.Timeout())
}

// Job is one resolved mongoimport run.
type Job struct {
	Database   string
	Collection string
	File       string
	Drop       bool
	Upsert     bool
	Timeout    time.Duration
}

func (j Job) String() string {
	return fmt.Sprintf("%s -> %s.%s", j.File, j.Database, j.Collection)
}

// Expand resolves a spec into jobs. A directory spec without a collection
// yields one job per matching file, sorted by path; any other spec yields
// exactly one job.
func Expand(s Spec, defaultDatabase string) ([]Job, error) {
	if strings.TrimSpace(s.File) == "" {
		return nil, ErrFileRequired
	}
	db := s.Database
	if strings.TrimSpace(db) == "" {
		db = defaultDatabase
	}
	if strings.TrimSpace(db) == "" {
		return nil, ErrDatabaseRequired
	}
	if s.Pattern != "" && !doublestar.ValidatePattern(s.Pattern) {
		return nil, fmt.Errorf("importer: bad pattern %q", s.Pattern)
	}

	abs, err := filepath.Abs(s.File)
	if err != nil {
		return nil, err
	}
	job := Job{
		Database: db,
		Drop:     s.DropOnImport(),
		Upsert:   s.UpsertOnImport(),
		Timeout:  s.Timeout(),
	}

	if strings.TrimSpace(s.Collection) == "" {
		if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
			files, err := dataFiles(abs, s.Pattern)
			if err != nil {
				return nil, err
			}
			jobs := make([]Job, 0, len(files))
			for _, f := range files {
				j := job
				j.File = f
				j.Collection = CollectionName(f)
				if j.Collection == "" {
					return nil, fmt.Errorf("%w: cannot derive one from %q", ErrCollectionRequired, f)
				}
				jobs = append(jobs, j)
			}
			return jobs, nil
		}
	}

	job.File = abs
	job.Collection = s.Collection
	if strings.TrimSpace(job.Collection) == "" {
		job.Collection = CollectionName(abs)
	}
	if job.Collection == "" {
		return nil, fmt.Errorf("%w: cannot derive one from %q", ErrCollectionRequired, s.File)
	}
	return []Job{job}, nil
}

// Plan expands every spec, failing on the first invalid one. A directory
// holding no matching files contributes no jobs and is logged.
func Plan(log *slog.Logger, specs []Spec, defaultDatabase string) ([]Job, error) {
	log = logging.OrNop(log)
	var jobs []Job
	for i, s := range specs {
		js, err := Expand(s, defaultDatabase)
		if err != nil {
			return nil, fmt.Errorf("import #%d %s: %w", i+1, s.File, err)
		}
		if len(js) == 0 {
			log.Warn("no data files in import directory", "dir", s.File, "pattern", s.Pattern)
		}
		jobs = append(jobs, js...)
	}
	return jobs, nil
}

// CollectionName is the base name of path with the last extension removed.
func CollectionName(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

// dataFiles lists the absolute paths of the regular files in dir selected
// by pattern.
func dataFiles(dir, pattern string) ([]string, error) {
	var names []string
	if pattern == "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
				names = append(names, e.Name())
			}
		}
	} else {
		matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("importer: glob %q in %s: %w", pattern, dir, err)
		}
		names = matches
	}

	files := make([]string, 0, len(names))
	for _, n := range names {
		files = append(files, filepath.Join(dir, filepath.FromSlash(n)))
	}
	slices.Sort(files)
	return files, nil
}
