package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgallion1/docquiz/internal/app"
	"github.com/spf13/cobra"
)

func serveCMD() *cobra.Command {
	var port string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, cliLogger(cfg))
			if err != nil {
				return err
			}
			defer a.Close()
			a.Start(ctx)
			return a.Serve(ctx)
		},
	}
	serve.Flags().StringVar(&port, "port", "", "listen port (default PORT)")
	return serve
}
