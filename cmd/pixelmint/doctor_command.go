package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pixelmint/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, identity and backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			targets := preflight.Targets{}
			if kf, err := ctx.identity(nil); err == nil {
				targets.Identity = kf
			}
			if assets, err := ctx.storage(); err == nil {
				targets.Storage = assets
			}
			if ledger, err := ctx.ledger(); err == nil {
				targets.Ledger = ledger
			}

			results := preflight.RunAll(cmd.Context(), cfg, targets)
			colorize := shouldColorize(cmd.OutOrStdout())
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, statusLabel(r.Passed, colorize), r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
}

func statusLabel(passed, colorize bool) string {
	label, code := "FAIL", "31"
	if passed {
		label, code = "OK", "32"
	}
	if !colorize {
		return label
	}
	return "\x1b[" + code + "m" + label + ansiReset
}
