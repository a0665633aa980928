package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	srv "github.com/mohammad-safakhou/careergraph/internal/server"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, *cfgPath, os.Stdout)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = a.Close(closeCtx)
			}()

			addr := a.cfg.Server.Address
			if serveAddr != "" {
				addr = serveAddr
			}
			e := srv.New(srv.Deps{
				Config:   a.cfg,
				Pipeline: a.orch,
				Logger:   a.log,
				Metrics:  a.metrics,
				Version:  version,
			})
			return srv.Run(ctx, e, addr, 10*time.Second, a.log)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")
	return serve
}
