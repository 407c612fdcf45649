package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bpdoc/pkg/errors"
	"github.com/matzehuels/bpdoc/pkg/manifest"
)

// runsCommand creates the runs command, which lists recorded runs.
func (c *CLI) runsCommand() *cobra.Command {
	var (
		path  string
		limit int
		plain bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the runs recorded in the resume manifest",
		Long: `List generation runs recorded in the manifest, newest first.

In a terminal the list is interactive; use --plain for a static table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				printInfo("No runs recorded in %s", path)
				return nil
			}

			store, err := manifest.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if plain || !isTerminal(os.Stdout) {
				fmt.Fprintln(stdout, runTable(runs, -1).Render())
				return nil
			}

			p := tea.NewProgram(NewRunListModel(runs), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "run browser")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "manifest", manifest.DefaultFile, "run manifest database")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&plain, "plain", false, "print a static table")

	return cmd
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
