package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/fakestat/internal/store"
)

func newValidateCmd() *cobra.Command {
	var (
		normalize bool
		compact   bool
	)

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check that a JSON file imports cleanly",
		Long: `Imports FILE into an empty store with the same checks the service applies.
With --normalize the re-derived export is printed to stdout.`,
		Example: `  fakestat validate stats.json
  fakestat validate stats.json --normalize --compact > clean.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}

			st := store.NewMemoryStore()
			if err := st.ImportJSON(data); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d records OK\n", args[0], st.Len())

			if normalize {
				out, err := st.ExportJSON(!compact)
				if err != nil {
					return fmt.Errorf("exporting: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&normalize, "normalize", false, "print the normalized export")
	cmd.Flags().BoolVar(&compact, "compact", false, "single-line JSON with --normalize")

	return cmd
}
