package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pixelmint/internal/ledger/registry"
	"pixelmint/internal/ledger/rpc"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Local ledger utilities",
	}
	ledgerCmd.AddCommand(newLedgerServeCommand(ctx))
	return ledgerCmd
}

func newLedgerServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local registry over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			logger := ctx.log()
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Serving ledger on http://%s\n", bind)
			return rpc.Serve(runCtx, bind, rpc.Handler(registry.New(st, logger), logger), logger)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "127.0.0.1:7780", "Address to listen on")
	return cmd
}
