package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/fakestat/internal/app"
)

func newServeCmd(configPath *string) *cobra.Command {
	var (
		port      string
		staticDir string
		noSample  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Example: `  fakestat serve --port 9000
  fakestat serve --static-dir ./web/dist --no-sample`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("static-dir") {
				cfg.StaticDir = staticDir
			}
			if noSample {
				cfg.SeedSample = false
			}

			log := newLogger(cfg.LogLevel)
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return app.New(cfg, log).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&port, "port", "8080", "listen port")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "serve a front-end from this directory")
	cmd.Flags().BoolVar(&noSample, "no-sample", false, "start with an empty store")

	return cmd
}
