package bundle

import (
	"context"
	"fmt"
	"html"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/gridspace/grid-pages/internal/config"
	"github.com/gridspace/grid-pages/internal/fsutil"
	"github.com/gridspace/grid-pages/internal/logger"
	"github.com/gridspace/grid-pages/internal/repository/lock"
)

// IndexFilename is the synthesized redirect page at the bundle root.
const IndexFilename = "index.html"

// Copy records one optional copy and its outcome.
type Copy struct {
	// Source is the path copied from.
	Source string
	// Destination is the path copied to.
	Destination string
	// Outcome reports whether the copy happened.
	Outcome fsutil.Outcome
}

// Report summarizes the optional steps of one assembly.
type Report struct {
	// Libraries lists library copies in configuration order.
	Libraries []Copy
	// Assets lists asset replication copies in configuration order.
	Assets []Copy
	// SourceMaps lists sourcemap copies in configuration order.
	SourceMaps []Copy
}

// Count returns how many copies in list have outcome.
func Count(list []Copy, outcome fsutil.Outcome) int {
	n := 0

	for _, c := range list {
		if c.Outcome == outcome {
			n++
		}
	}

	return n
}

// RedirectPage returns the index.html body redirecting to entryPath.
func RedirectPage(entryPath string) []byte {
	return []byte(`<!doctype html><meta http-equiv="refresh" content="0;url=` +
		html.EscapeString(entryPath) + `">Redirecting…` + "\n")
}

// Assemble rebuilds layout.OutDir from scratch.
func Assemble(ctx context.Context, layout *config.Layout) (*Report, error) {
	ctx = logger.WithName(ctx, "bundle")

	if err := config.Validate(layout); err != nil {
		return nil, err
	}

	guard, err := lock.Acquire(layout.OutDir, lock.DefaultStaleAfter)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", layout.OutDir, err)
	}

	defer func() {
		if releaseErr := guard.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Failed to release bundle lock", "path", guard.Path(), "error", releaseErr)
		}
	}()

	logger.InfoKV(ctx, "Preparing static bundle", "out_dir", layout.OutDir)

	a := &assembler{layout: layout, report: new(Report)}

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"clear output directory", a.clear},
		{"copy web assets", a.copyWeb},
		{"copy libraries", a.copyLibraries},
		{"write redirect page", a.writeRedirect},
		{"replicate assets", a.replicateAssets},
		{"copy sourcemaps", a.copySourceMaps},
	}

	for _, step := range steps {
		if err = step.run(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}

		if err = guard.Refresh(); err != nil {
			return nil, err
		}
	}

	logger.InfoKV(ctx, "Static bundle ready",
		"out_dir", layout.OutDir,
		"libraries", Count(a.report.Libraries, fsutil.Copied),
		"asset_targets", Count(a.report.Assets, fsutil.Copied),
		"sourcemaps", Count(a.report.SourceMaps, fsutil.Copied),
	)

	return a.report, nil
}

// assembler carries one run's layout and report between steps.
type assembler struct {
	// layout is the validated build layout.
	layout *config.Layout
	// report collects optional copy outcomes.
	report *Report
}

func (a *assembler) out(rel ...string) string {
	return filepath.Join(append([]string{a.layout.OutDir}, rel...)...)
}

func (a *assembler) clear(context.Context) error {
	return fsutil.EmptyDir(a.layout.OutDir)
}

func (a *assembler) copyWeb(ctx context.Context) error {
	return fsutil.CopyTree(ctx, a.layout.WebDir, a.layout.OutDir)
}

func (a *assembler) copyLibraries(ctx context.Context) error {
	copies := make([]Copy, len(a.layout.Libraries))
	for i, name := range a.layout.Libraries {
		copies[i] = Copy{
			Source:      filepath.Join(a.layout.SourceDir, name),
			Destination: a.out("lib", name),
		}
	}

	if err := tryCopyAll(ctx, copies); err != nil {
		return err
	}

	a.report.Libraries = copies

	return nil
}

func (a *assembler) writeRedirect(context.Context) error {
	return fsutil.WriteFileAtomic(a.out(IndexFilename), RedirectPage(a.layout.EntryPath), config.DefaultFilePermissions)
}

func (a *assembler) replicateAssets(ctx context.Context) error {
	source := filepath.Join(a.layout.SourceDir, a.layout.AssetDir)

	copies := make([]Copy, len(a.layout.AssetTargets))
	for i, target := range a.layout.AssetTargets {
		copies[i] = Copy{Source: source, Destination: a.out(target)}
	}

	a.report.Assets = copies

	ok, err := fsutil.Exists(source)
	if err != nil {
		return err
	}

	if !ok {
		logger.DebugKV(ctx, "Asset directory not found, skipping replication", "source", source)

		return nil
	}

	return tryCopyAll(ctx, copies)
}

func (a *assembler) copySourceMaps(ctx context.Context) error {
	copies := make([]Copy, 0, len(a.layout.SourceMaps))

	for _, sm := range a.layout.SourceMaps {
		c := Copy{Source: sm.Source, Destination: a.out(sm.Destination)}

		outcome, err := fsutil.TryCopy(ctx, c.Source, c.Destination)
		if err != nil {
			return err
		}

		c.Outcome = outcome
		copies = append(copies, c)
	}

	a.report.SourceMaps = copies

	return nil
}

// tryCopyAll runs TryCopy for every entry concurrently and stores outcomes in place.
// Destinations must be disjoint.
func tryCopyAll(ctx context.Context, copies []Copy) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for i := range copies {
		group.Go(func() error {
			outcome, err := fsutil.TryCopy(groupCtx, copies[i].Source, copies[i].Destination)
			if err != nil {
				return err
			}

			copies[i].Outcome = outcome

			logger.DebugKV(ctx, "Optional copy",
				"source", copies[i].Source,
				"destination", copies[i].Destination,
				"outcome", outcome.String(),
			)

			return nil
		})
	}

	return group.Wait()
}
