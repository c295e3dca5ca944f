package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reqlint/reqlint/pkg/check"
	"github.com/reqlint/reqlint/pkg/requirements"
)

// checkOpts holds the command-line flags for the check and outdated commands.
type checkOpts struct {
	workers       int    // concurrent registry lookups
	refresh       bool   // bypass HTTP cache
	includeYanked bool   // consider yanked releases
	format        string // "text" or "json"
	failOn        string // "unsatisfiable" or "outdated"
}

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	opts := checkOpts{workers: 20, format: "text", failOn: "unsatisfiable"}

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Verify requirements against the package registry",
		Long: `Verify requirements against the package registry.

For every specifier the registry is asked which versions exist. Each
requirement is classified: ok (constraints admit the latest release),
outdated (satisfiable but behind), unsatisfiable (no published version
matches), not_found, or unknown (lookup failed).

Examples:
  reqlint check requirements.txt
  reqlint check --refresh requirements.txt
  reqlint check --format json requirements.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.runCheck(cmd, args[0], opts)
			if err != nil {
				return err
			}
			if opts.format == "json" {
				return writeJSONResult(result)
			}
			printCheckResult(result)
			return checkExit(result, opts.failOn)
		},
	}

	addCheckFlags(cmd, &opts)
	cmd.Flags().StringVar(&opts.failOn, "fail-on", opts.failOn, "exit non-zero at this status: unsatisfiable or outdated")
	return cmd
}

// checkExit converts a check result into the command's exit error per the
// --fail-on threshold. "unsatisfiable" fails on unsatisfiable and missing
// packages; "outdated" additionally fails when any requirement is behind.
func checkExit(result *check.Result, failOn string) error {
	broken := result.Counts[string(check.StatusUnsatisfiable)] + result.Counts[string(check.StatusNotFound)]
	switch failOn {
	case "unsatisfiable":
		if broken > 0 {
			return fmt.Errorf("%d requirements cannot be satisfied", broken)
		}
		return nil
	case "outdated":
		if broken > 0 {
			return fmt.Errorf("%d requirements cannot be satisfied", broken)
		}
		if n := result.Counts[string(check.StatusOutdated)]; n > 0 {
			return fmt.Errorf("%d requirements are outdated", n)
		}
		return nil
	default:
		return fmt.Errorf("unknown --fail-on value %q", failOn)
	}
}

// outdatedCommand creates the outdated command. It runs the same registry
// check but reports only requirements that exclude the latest release.
func (c *CLI) outdatedCommand() *cobra.Command {
	opts := checkOpts{workers: 20, format: "text"}

	cmd := &cobra.Command{
		Use:   "outdated <file>",
		Short: "List requirements that exclude the latest release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.runCheck(cmd, args[0], opts)
			if err != nil {
				return err
			}

			var stale []check.Item
			for _, it := range result.Items {
				if it.Status == check.StatusOutdated {
					stale = append(stale, it)
				}
			}
			if opts.format == "json" {
				result.Items = stale
				result.Counts = map[string]int{string(check.StatusOutdated): len(stale)}
				return writeJSONResult(result)
			}
			if len(stale) == 0 {
				printSuccess("All requirements admit the latest releases")
				return nil
			}
			for _, it := range stale {
				printWarning("%s %s (latest: %s, newest match: %s)", it.Package, it.Specifier, it.Latest, it.Matched)
			}
			printDetail("%d of %d requirements are outdated", len(stale), len(result.Items))
			return nil
		},
	}

	addCheckFlags(cmd, &opts)
	return cmd
}

func addCheckFlags(cmd *cobra.Command, opts *checkOpts) {
	cmd.Flags().IntVar(&opts.workers, "workers", opts.workers, "concurrent registry lookups")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cache")
	cmd.Flags().BoolVar(&opts.includeYanked, "include-yanked", false, "consider yanked releases as candidates")
	cmd.Flags().StringVar(&opts.format, "format", opts.format, "output format: text or json")
}

func (c *CLI) runCheck(cmd *cobra.Command, path string, opts checkOpts) (*check.Result, error) {
	ctx := cmd.Context()

	m, err := requirements.ParseFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := c.loadConfig(path)
	if err != nil {
		return nil, err
	}
	checker, err := c.newChecker(ctx, cfg)
	if err != nil {
		return nil, err
	}

	specs := len(m.SpecifierLines())
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Checking %d packages against %s", specs, cfg.Registry.URL))
	if opts.format != "json" {
		spinner.Start()
	}
	track := newProgress(c.Logger)

	result, err := checker.Check(ctx, m, check.Options{
		Workers:       opts.workers,
		Refresh:       opts.refresh,
		IncludeYanked: opts.includeYanked,
		Logger:        func(msg string, args ...any) { c.Logger.Warnf(msg, args...) },
	})
	if opts.format != "json" {
		spinner.Stop()
	}
	if err != nil {
		return nil, err
	}

	track.done(fmt.Sprintf("Checked %d packages", specs))
	return result, nil
}

func printCheckResult(result *check.Result) {
	for _, it := range result.Items {
		switch it.Status {
		case check.StatusOK:
			printSuccess("%s %s (latest: %s)", it.Package, it.Specifier, it.Latest)
		case check.StatusOutdated:
			printWarning("%s %s: %s", it.Package, it.Specifier, it.Detail)
		case check.StatusUnknown:
			printInfo("%s: %s", it.Package, it.Detail)
		default:
			printError("%s: %s", it.Package, it.Detail)
		}
	}
	printDetail("%d ok, %d outdated, %d unsatisfiable, %d not found, %d unknown",
		result.Counts[string(check.StatusOK)],
		result.Counts[string(check.StatusOutdated)],
		result.Counts[string(check.StatusUnsatisfiable)],
		result.Counts[string(check.StatusNotFound)],
		result.Counts[string(check.StatusUnknown)])
}

func writeJSONResult(result *check.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
