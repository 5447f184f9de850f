package main

import (
	"github.com/spf13/cobra"

	"github.com/justestif/moodify/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recommendation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			c, err := build(cmd.Context(), a.cfg, a.log)
			if err != nil {
				return err
			}
			defer c.Close()

			cfg := web.ServerConfig{
				Addr:           a.cfg.Server.Addr,
				MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
				MaxPixels:      a.cfg.Detector.MaxPixels,
				Runner:         c.orchestrator,
				Logger:         a.log,
			}
			// Assign only when set so a nil repository stays a nil interface.
			if runs := c.Runs(); runs != nil {
				cfg.Runs = runs
			}

			server, err := web.NewServer(cfg)
			if err != nil {
				return err
			}
			return server.Run()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
