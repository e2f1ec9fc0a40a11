package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-split/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the message pipeline over HTTP",
		Long: `Start the HTTP API used by the chat front end:

  POST /api/process  {"message": "...", "lastTransaction": {...}, "currentUser": "..."}
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "listen address (default: server.addr from config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	opts := server.Options{
		Processor:      a.pipeline,
		Normalizer:     a.normalizer,
		Logger:         logger(),
		Location:       a.cfg.Location,
		BodyLimit:      a.cfg.Server.BodyLimit,
		RequestTimeout: a.cfg.Server.RequestTimeout,
	}
	if a.journal != nil {
		opts.Recorder = a.journal
	}

	return server.New(opts).Run(ctx, addr, a.cfg.Server.ShutdownTimeout)
}
