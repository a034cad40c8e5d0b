// Package lint checks the custom command invocations of CMake listfiles against a command schema.
package lint

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/ngld/knossos/packages/cmkschema/pkg/cmdschema"
	"github.com/ngld/knossos/packages/cmkschema/pkg/listfile"
)

// Diagnostic is a violation found at a specific invocation.
type Diagnostic struct {
	File      string
	Pos       listfile.Pos
	Command   string
	Violation cmdschema.Violation
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Pos.Line, d.Pos.Col, d.Violation)
}

// Options controls Check.
type Options struct {
	// Jobs limits the number of files checked in parallel. Values below 1 mean one job per file.
	Jobs int
	// Progress is called once for every checked file. It has to be safe for concurrent use.
	Progress func(file string)
}

// CheckSource validates every invocation of a registered command in src. Commands missing from the
// registry are passed through.
func CheckSource(ctx context.Context, registry *cmdschema.Registry, name string, src []byte) ([]Diagnostic, error) {
	invocations, err := listfile.Scan(name, src)
	if err != nil {
		return nil, err
	}

	result := make([]Diagnostic, 0)
	for _, inv := range invocations {
		spec, err := registry.Lookup(inv.Name)
		if err != nil {
			if cmdschema.IsNotFound(err) {
				cmdschema.Log(ctx).Trace().Str("path", name).
					Int("line", inv.Pos.Line).
					Int("col", inv.Pos.Col).
					Str("command", inv.Name).
					Msg("Skipping unknown command")
				continue
			}
			return nil, err
		}

		for _, violation := range spec.Validate(spec.Classify(inv.Tokens())) {
			result = append(result, Diagnostic{
				File:      name,
				Pos:       inv.Pos,
				Command:   spec.Name,
				Violation: violation,
			})
		}
	}

	return result, nil
}

// Check reads and validates all files in parallel. The diagnostics are sorted by file and position.
func Check(ctx context.Context, registry *cmdschema.Registry, files []string, opts Options) ([]Diagnostic, error) {
	var lock sync.Mutex
	result := make([]Diagnostic, 0)

	eg, ctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		eg.SetLimit(opts.Jobs)
	}

	for _, file := range files {
		file := file
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			src, err := os.ReadFile(file)
			if err != nil {
				return eris.Wrapf(err, "failed to read %s", file)
			}

			diags, err := CheckSource(ctx, registry, file, src)
			if err != nil {
				return eris.Wrapf(err, "failed to check %s", file)
			}
			cmdschema.Log(ctx).Debug().Str("path", file).Int("problems", len(diags)).Msg("Checked listfile")

			lock.Lock()
			result = append(result, diags...)
			lock.Unlock()

			if opts.Progress != nil {
				opts.Progress(file)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line < b.Pos.Line
		}
		return a.Pos.Col < b.Pos.Col
	})
	return result, nil
}
