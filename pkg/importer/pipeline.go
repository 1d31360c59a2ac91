package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getmockd/embedmongo/pkg/logging"
)

// Pipeline runs import specs through a Launcher.
type Pipeline struct {
	Launcher Launcher

	// Verify checks every file is a JSON array before launching anything.
	Verify bool

	Log *slog.Logger
}

type launched struct {
	job Job
	h   Handle
}

// Run imports specs in order. All specs are validated first. In
// sequential mode each job is awaited before the next is launched; in
// concurrent mode every job is launched and then awaited in launch order.
// The first failure stops further launches; jobs already running are still
// awaited and their failures joined to the returned error.
func (p *Pipeline) Run(ctx context.Context, specs []Spec, defaultDatabase string, concurrent bool) error {
	log := logging.OrNop(p.Log)
	if len(specs) == 0 {
		log.Error("no imports found, check your configuration")
		return nil
	}
	log.Info("importing", "defaultDatabase", defaultDatabase, "specs", len(specs), "concurrent", concurrent)

	jobs, err := p.Check(specs, defaultDatabase)
	if err != nil {
		return err
	}

	var pending []launched
	for _, job := range jobs {
		log.Info("import", "file", job.File, "database", job.Database, "collection", job.Collection,
			"drop", job.Drop, "upsert", job.Upsert, "timeout", job.Timeout)

		h, err := p.Launcher.Launch(ctx, job)
		if err != nil {
			return p.drain(pending, fmt.Errorf("%s: %w", job, err))
		}
		if !concurrent {
			if err := p.await(launched{job, h}); err != nil {
				return err
			}
			continue
		}
		pending = append(pending, launched{job, h})
	}
	return p.drain(pending, nil)
}

// Check expands specs into jobs and, with Verify set, checks every file.
// Nothing is launched.
func (p *Pipeline) Check(specs []Spec, defaultDatabase string) ([]Job, error) {
	jobs, err := Plan(p.Log, specs, defaultDatabase)
	if err != nil {
		return nil, err
	}
	if p.Verify {
		for _, j := range jobs {
			if err := VerifyFile(j.File); err != nil {
				return nil, err
			}
		}
	}
	return jobs, nil
}

// drain awaits pending jobs in order. Once one fails, the rest are still
// awaited and every failure after the first is joined to it.
func (p *Pipeline) drain(pending []launched, first error) error {
	errs := []error{first}
	for _, l := range pending {
		if err := p.await(l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) await(l launched) error {
	start := time.Now()
	if err := l.h.Wait(); err != nil {
		return err
	}
	logging.OrNop(p.Log).Info("import finished", "file", l.job.File, "collection", l.job.Collection,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
