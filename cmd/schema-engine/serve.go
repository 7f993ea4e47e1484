package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"schema-engine/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr  string
		flags planFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API over the schema store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(st,
				server.WithLogger(a.log.Logger),
				server.WithMatchOptions(flags.options()),
			)

			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	flags.register(cmd)

	return cmd
}
