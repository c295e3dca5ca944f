package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reqlint/reqlint/pkg/requirements"
)

// fmtOpts holds the command-line flags for the fmt command.
type fmtOpts struct {
	write bool // rewrite files in place
	check bool // exit non-zero when files are not formatted
	diff  bool // print differences instead of full output
}

// fmtCommand creates the fmt command.
func (c *CLI) fmtCommand() *cobra.Command {
	var opts fmtOpts

	cmd := &cobra.Command{
		Use:   "fmt <file>...",
		Short: "Rewrite requirements manifests in canonical form",
		Long: `Rewrite requirements manifests in canonical form.

Package names are normalized (PEP 503), extras are sorted, constraint spacing
is collapsed, and inline comments are separated by two spaces. Comments, blank
lines, directives, and line order are preserved. Formatting is idempotent.

By default the formatted manifest is written to stdout.

Examples:
  reqlint fmt requirements.txt             # print formatted output
  reqlint fmt -w requirements.txt          # rewrite in place
  reqlint fmt --check requirements.txt     # CI gate, no output changes
  reqlint fmt --diff requirements.txt      # show what would change`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.write, "write", "w", false, "rewrite files in place")
	cmd.Flags().BoolVar(&opts.check, "check", false, "exit non-zero if any file is not formatted")
	cmd.Flags().BoolVar(&opts.diff, "diff", false, "print per-line differences")

	return cmd
}

func runFmt(paths []string, opts fmtOpts) error {
	var unformatted []string

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		m, err := requirements.Parse(bytes.NewReader(data))
		if err != nil {
			return err
		}
		m.Path = path

		formatted := m.Formatted()
		changed := formatted != string(data)
		if changed {
			unformatted = append(unformatted, path)
		}

		switch {
		case opts.check:
			if changed {
				printWarning("%s is not formatted", path)
			}
		case opts.diff:
			if changed {
				printDiff(path, string(data), formatted)
			}
		case opts.write:
			if changed {
				if err := os.WriteFile(path, []byte(formatted), 0o644); err != nil {
					return err
				}
				printSuccess("Formatted %s", path)
			}
		default:
			fmt.Print(formatted)
		}
	}

	if (opts.check || opts.diff) && len(unformatted) > 0 {
		return fmt.Errorf("%d files are not formatted", len(unformatted))
	}
	return nil
}

// printDiff shows changed lines pairwise. Formatting never adds or removes
// lines except for a final trailing newline, so positional comparison holds.
func printDiff(path, before, after string) {
	oldLines := strings.Split(strings.TrimSuffix(before, "\n"), "\n")
	newLines := strings.Split(strings.TrimSuffix(after, "\n"), "\n")

	printInfo("%s", path)
	for i := 0; i < len(oldLines) || i < len(newLines); i++ {
		var o, n string
		if i < len(oldLines) {
			o = oldLines[i]
		}
		if i < len(newLines) {
			n = newLines[i]
		}
		if o == n {
			continue
		}
		fmt.Println(styleIconError.Render("-") + " " + StyleDim.Render(o))
		fmt.Println(styleIconSuccess.Render("+") + " " + StyleValue.Render(n))
	}
}
