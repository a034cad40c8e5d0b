package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ngld/knossos/packages/cmkschema/pkg/cmdschema"
	"github.com/ngld/knossos/packages/cmkschema/pkg/lint"
)

var checkCmd = &cobra.Command{
	Use:   "check [patterns...]",
	Short: "Checks the invocations of custom commands in CMake listfiles",
	Long: `Scans every listfile matching the passed glob patterns (or the include patterns from the
config) and reports invocations of custom commands which don't match their declared signature.
Commands which aren't part of the schema are ignored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, err := setup(cmd)
		if err != nil {
			return err
		}

		showProgress, err := cmd.Flags().GetBool("progress")
		if err != nil {
			return err
		}

		registry, err := loadRegistry(ctx, cfg)
		if err != nil {
			return err
		}

		patterns := args
		if len(patterns) == 0 {
			patterns = cfg.Include
		}

		files, err := expandPatterns(patterns)
		if err != nil {
			return err
		}
		cmdschema.Log(ctx).Debug().Int("files", len(files)).Msg("Collected listfiles")

		opts := lint.Options{Jobs: cfg.Jobs}
		if showProgress {
			bar := getProgressBar(int64(len(files)), "checking")
			opts.Progress = func(string) {
				_ = bar.Add(1)
			}
			defer bar.Finish()
		}

		diags, err := lint.Check(ctx, registry, files, opts)
		if err != nil {
			return err
		}

		for _, diag := range diags {
			colorstring.Fprintf(os.Stdout, "[bold]%s:%d:%d:[reset] [red]%s[reset]\n", diag.File, diag.Pos.Line, diag.Pos.Col, diag.Violation.String())
		}

		if len(diags) > 0 {
			return eris.Errorf("found %d problem(s) in %d file(s)", len(diags), len(files))
		}

		fmt.Fprintf(os.Stderr, "Checked %d file(s), no problems found.\n", len(files))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolP("progress", "p", false, "show a progress bar")
}

func getProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.NewOptions64(length, progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(os.Stderr), progressbar.OptionShowCount())
}

// expandPatterns resolves glob patterns into a sorted list of unique files. Patterns without
// glob characters are used as plain paths.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	files := make([]string, 0)

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, eris.Wrapf(err, "invalid pattern %s", pattern)
		}

		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				files = append(files, match)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}
