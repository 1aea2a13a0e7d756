package cli

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/fakestat/internal/preset"
	"github.com/AngelCh415/fakestat/internal/store"
)

func newGenerateCmd() *cobra.Command {
	var (
		cfg     = preset.DefaultConfig()
		output  string
		compact bool
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a preset and write it as JSON",
		Long: `Runs the preset generator into a fresh store and writes the export.

Each advertiser gets a uniform lead count within the leads range and a
conversion percentage within the conversion range. With --noob the last
record is a low-quality advertiser with 6-9 leads and no FTDs.`,
		Example: `  fakestat generate --advertisers 10 --output stats.json
  fakestat generate --leads-min 50 --leads-max 50 --conversion-min 10 --conversion-max 10 --compact --seed 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			st := store.NewMemoryStore(store.WithRand(rand.New(rand.NewSource(seed))))
			gen := preset.NewGenerator(log, preset.WithRand(rand.New(rand.NewSource(seed+1))))

			sum, err := gen.Run(st, cfg)
			if err != nil {
				return err
			}
			data, err := st.ExportJSON(!compact)
			if err != nil {
				return fmt.Errorf("exporting: %w", err)
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating file: %w", err)
				}
				defer f.Close()
				out = f
			}
			if _, err := fmt.Fprintln(out, string(data)); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}

			fmt.Fprint(cmd.ErrOrStderr(), sum.String())
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d records to %s\n", sum.Generated, output)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.LeadsMin, "leads-min", cfg.LeadsMin, "minimum leads per advertiser")
	cmd.Flags().IntVar(&cfg.LeadsMax, "leads-max", cfg.LeadsMax, "maximum leads per advertiser")
	cmd.Flags().IntVar(&cfg.AdvertisersCount, "advertisers", cfg.AdvertisersCount, "number of records (1-20)")
	cmd.Flags().Float64Var(&cfg.ConversionMin, "conversion-min", cfg.ConversionMin, "minimum conversion percent")
	cmd.Flags().Float64Var(&cfg.ConversionMax, "conversion-max", cfg.ConversionMax, "maximum conversion percent")
	cmd.Flags().BoolVar(&cfg.IncludeNoob, "noob", false, "include one noob advertiser")
	cmd.Flags().StringVar(&output, "output", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&compact, "compact", false, "single-line JSON")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time-based)")

	return cmd
}
