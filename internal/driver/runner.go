// Package driver runs checks for many routines: mode handling, the
// already-checked cache, and a bounded worker pool. One routine is
// always checked single-threaded; parallelism exists only across
// routines.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"

	"plcheck/internal/ast"
	"plcheck/internal/bridge"
	"plcheck/internal/cache"
	"plcheck/internal/checker"
	"plcheck/internal/diag"
	"plcheck/internal/source"
)

// Options configure a batch run.
type Options struct {
	Check checker.Options
	Mode  checker.Mode

	// Jobs bounds the worker pool; 0 means GOMAXPROCS.
	Jobs int

	// Cache may be nil (disabled). fresh_start empties it before the
	// batch; every_start ignores cached verdicts but still refreshes them.
	Cache *cache.Store

	// Notify, when set, is called from worker goroutines: once when a
	// routine's check starts (res nil) and once with its result. The
	// callback must be safe for concurrent use.
	Notify func(r *ast.Routine, res *checker.Result)
}

func (o *Options) notify(r *ast.Routine, res *checker.Result) {
	if o.Notify != nil {
		o.Notify(r, res)
	}
}

// Outcome is the batch result. Results keeps the input order regardless
// of completion order.
type Outcome struct {
	Results []*checker.Result
	// SkippedCached counts routines whose cached verdict was reused.
	SkippedCached int
}

// HasErrors reports whether any routine produced an error diagnostic.
func (o *Outcome) HasErrors() bool {
	for _, r := range o.Results {
		if r.HasErrors() {
			return true
		}
	}
	return false
}

// CheckAll checks every routine. A usage error on one routine becomes an
// error diagnostic on that routine's result; the batch continues. Any
// other failure aborts the batch.
func CheckAll(ctx context.Context, host bridge.Host, routines []*ast.Routine, opts Options) (*Outcome, error) {
	out := &Outcome{Results: make([]*checker.Result, len(routines))}

	if opts.Mode == checker.ModeDisabled {
		for i, r := range routines {
			out.Results[i] = checker.SkippedResult(r)
		}
		return out, nil
	}
	if opts.Mode == checker.ModeFirstCall {
		if err := opts.Cache.DropAll(); err != nil {
			return nil, fmt.Errorf("reset check cache: %w", err)
		}
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if limit, err := safecast.Convert[int](len(routines)); err == nil && limit > 0 && limit < jobs {
		jobs = limit
	}

	optsTag := optionsTag(opts.Check)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	skipped := make([]bool, len(routines))

	for i, r := range routines {
		i, r := i, r
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			key := cache.Fingerprint(r, optsTag)
			if opts.Mode == checker.ModeFirstCall {
				if entry, hit, err := opts.Cache.Get(key); err == nil && hit && !entry.HasErrors {
					out.Results[i] = checker.SkippedResult(r)
					skipped[i] = true
					opts.notify(r, out.Results[i])
					return nil
				}
			}
			opts.notify(r, nil)
			res, err := checker.Check(r, host, opts.Check)
			if err != nil {
				if errors.Is(err, bridge.ErrInvalidInput) {
					out.Results[i] = usageResult(r, err)
					opts.notify(r, out.Results[i])
					return nil
				}
				return fmt.Errorf("check %s: %w", r.QualifiedName(), err)
			}
			out.Results[i] = res
			opts.notify(r, res)
			if cacheErr := opts.Cache.Put(key, res.HasErrors(), r.Signature); cacheErr != nil {
				return fmt.Errorf("cache %s: %w", r.QualifiedName(), cacheErr)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, s := range skipped {
		if s {
			out.SkippedCached++
		}
	}
	return out, nil
}

// usageResult turns a per-routine usage error into a reportable result
// so one bad routine does not sink the batch.
func usageResult(r *ast.Routine, err error) *checker.Result {
	bag := diag.NewBag(1)
	bag.Add(diag.New(diag.SevError, diag.CodeFeatureNotSupported, source.Span{}, "", err.Error()))
	return &checker.Result{
		Routine:     r,
		Diagnostics: bag.Items(),
		IsChecked:   false,
	}
}

// optionsTag folds the options that influence diagnostics into the cache
// fingerprint.
func optionsTag(o checker.Options) string {
	flag := func(b bool) byte {
		if b {
			return '1'
		}
		return '0'
	}
	return string([]byte{
		flag(o.FatalErrors),
		flag(o.OtherWarnings),
		flag(o.ExtraWarnings),
		flag(o.PerformanceWarnings),
		flag(o.SecurityWarnings),
		flag(o.CompatibilityWarnings),
		flag(o.CollectDeps),
	})
}
