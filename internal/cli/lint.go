package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reqlint/reqlint/pkg/lint"
	"github.com/reqlint/reqlint/pkg/requirements"
)

// lintOpts holds the command-line flags for the lint command.
type lintOpts struct {
	format string // "text" or "json"
	failOn string // lowest severity that causes a non-zero exit
}

// lintCommand creates the lint command.
func (c *CLI) lintCommand() *cobra.Command {
	opts := lintOpts{format: "text", failOn: "error"}

	cmd := &cobra.Command{
		Use:   "lint <file>...",
		Short: "Check requirements manifests for syntax and consistency problems",
		Long: `Check requirements manifests for syntax and consistency problems.

Every non-blank, non-comment line must parse as a valid package specifier,
and no package may appear with duplicate or conflicting version constraints.

Examples:
  reqlint lint requirements.txt
  reqlint lint requirements.txt dev-requirements.txt
  reqlint lint --format json requirements.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLint(args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", opts.format, "output format: text or json")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", opts.failOn, "exit non-zero at this severity: info, warning, or error")

	return cmd
}

func (c *CLI) runLint(paths []string, opts lintOpts) error {
	threshold, err := lint.ParseSeverity(opts.failOn)
	if err != nil {
		return err
	}

	var reports []*lint.Report
	failed := 0
	for _, path := range paths {
		report, err := c.lintFile(path)
		if err != nil {
			return err
		}
		reports = append(reports, report)
		if exceeds(report, threshold) {
			failed++
		}
	}

	if opts.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		for _, report := range reports {
			printReport(report)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d manifests failed", failed, len(paths))
	}
	return nil
}

func (c *CLI) lintFile(path string) (*lint.Report, error) {
	m, err := requirements.ParseFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := c.loadConfig(path)
	if err != nil {
		return nil, err
	}
	return lint.New(cfg).Run(m), nil
}

// exceeds reports whether any finding is at or above the severity threshold.
func exceeds(r *lint.Report, threshold lint.Severity) bool {
	for _, f := range r.Findings {
		if f.Severity >= threshold {
			return true
		}
	}
	return false
}

func printReport(r *lint.Report) {
	if len(r.Findings) == 0 {
		printSuccess("%s: no problems found", r.Path)
		return
	}
	for _, f := range r.Findings {
		printFinding(r.Path, f)
	}
	printDetail("%d errors, %d warnings, %d notes",
		r.Counts["error"], r.Counts["warning"], r.Counts["info"])
}
