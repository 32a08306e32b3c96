package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pixelmint/internal/config"
	"pixelmint/internal/identity"
)

func newIdentityCommand(ctx *commandContext) *cobra.Command {
	identityCmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the signing identity",
	}

	identityCmd.AddCommand(newIdentityInitCommand(ctx))
	identityCmd.AddCommand(newIdentityShowCommand(ctx))

	return identityCmd
}

func newIdentityInitCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a new signing key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			kf, err := identity.Generate(cfg.Identity.KeyPath, overwrite)
			if err != nil {
				return err
			}
			signer, err := kf.Signer()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote identity key to %s\n", kf.Path())
			fmt.Fprintf(out, "Address: %s\n", signer.Address())
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing key")
	return cmd
}

func newIdentityShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the identity address",
		RunE: func(cmd *cobra.Command, args []string) error {
			kf, err := ctx.identity(nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			signer, err := kf.Signer()
			if err != nil {
				fmt.Fprintf(out, "No identity at %s; run 'pixelmint identity init'\n", kf.Path())
				return nil
			}
			fmt.Fprintf(out, "Address: %s\n", signer.Address())
			fmt.Fprintf(out, "Key:     %s\n", kf.Path())

			if ctx.config.Ledger.Backend != config.BackendLocal {
				return nil
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			count, err := st.CountRegistrations(cmd.Context(), signer.Address())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Registrations (local ledger): %d\n", count)
			return nil
		},
	}
}
