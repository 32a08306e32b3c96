package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"pixelmint/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var attempt string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the pixelmint log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			attempt = strings.TrimSpace(attempt)
			emit := func(line string) {
				if attempt != "" && !strings.Contains(line, attempt) {
					return
				}
				fmt.Fprintln(out, line)
			}

			tail, offset, err := logs.Last(cfg.LogPath(), lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				emit(line)
			}
			if !follow {
				return nil
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return logs.Follow(runCtx, cfg.LogPath(), offset, logs.DefaultPoll, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&attempt, "attempt", "", "Only show lines mentioning this attempt id")
	return cmd
}
