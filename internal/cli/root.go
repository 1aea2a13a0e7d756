package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/fakestat/internal/config"
)

// NewRootCmd creates the root fakestat command.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "fakestat",
		Short: "Synthetic advertiser traffic stats for testing",
		Long: `fakestat keeps an in-memory list of advertiser traffic stats, generates
randomized presets, and exports them as JSON for downstream testing.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "optional config file (env vars take precedence)")

	root.AddCommand(
		newServeCmd(&configPath),
		newGenerateCmd(),
		newValidateCmd(),
	)

	return root
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.FromEnv(), nil
	}
	return config.Load(path)
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
