package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"pixelmint/internal/encoder"
	"pixelmint/internal/identity"
	"pixelmint/internal/logging"
	"pixelmint/internal/notifications"
	"pixelmint/internal/preflight"
	"pixelmint/internal/publish"
	"pixelmint/internal/record"
	"pixelmint/internal/store"
)

type publishFailure struct {
	Kind     publish.Kind    `json:"kind"`
	Stage    string          `json:"stage,omitempty"`
	Attempts int             `json:"attempts,omitempty"`
	Phase    publish.Phase   `json:"phase"`
	Message  string          `json:"message"`
	Hint     string          `json:"hint,omitempty"`
	Entries  []logging.Entry `json:"diagnostics,omitempty"`
}

type publishResult struct {
	AttemptID    string                `json:"attempt_id"`
	Confirmation *publish.Confirmation `json:"confirmation,omitempty"`
	Failure      *publishFailure       `json:"error,omitempty"`
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool
	var jsonOut bool
	var skipPreflight bool
	var showDiagnostics bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the saved canvas and register it on the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var approver identity.Approver = identity.AutoApprove
			if !assumeYes {
				approver = promptApprover(cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			kf, err := ctx.identity(approver)
			if err != nil {
				return err
			}
			assets, err := ctx.storage()
			if err != nil {
				return err
			}
			ledger, err := ctx.ledger()
			if err != nil {
				return err
			}

			// Without an identity the attempt fails before touching any
			// backend, so health checks would only add network traffic.
			if !skipPreflight && kf.IsAuthorized() {
				results := preflight.RunAll(runCtx, cfg, preflight.Targets{Storage: assets, Ledger: ledger})
				if failed := preflight.Failed(results); len(failed) > 0 {
					for _, r := range failed {
						fmt.Fprintf(cmd.ErrOrStderr(), "preflight: %s: %s\n", r.Name, r.Detail)
					}
					return fmt.Errorf("%d preflight check(s) failed; run 'pixelmint doctor' for details", len(failed))
				}
			}

			canvas, err := loadCanvas(cmd, ctx)
			if err != nil {
				return err
			}

			pipeline, err := publish.New(publish.Dependencies{
				Identity: kf,
				Encoder:  encoder.PNG{Scale: cfg.Canvas.Scale},
				Assets:   assets,
				Records:  assets,
				Ledger:   ledger,
			}, ctx.policy(),
				publish.WithLogger(ctx.log()),
				publish.WithTemplate(record.Template{
					Symbol:               cfg.Metadata.Symbol,
					Description:          cfg.Metadata.Description,
					Category:             cfg.Metadata.Category,
					SellerFeeBasisPoints: cfg.Metadata.SellerFeeBasisPoints,
				}, cfg.Metadata.Mutable),
			)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var result publishResult
			var outcome *publish.Outcome
			for event := range pipeline.Start(runCtx, canvas) {
				result.AttemptID = event.AttemptID
				if !jsonOut {
					fmt.Fprintf(out, "%-18s %s\n", phaseLabel(event.Phase), event.Message)
				}
				if event.Outcome != nil {
					outcome = event.Outcome
				}
			}
			if outcome == nil {
				return errors.New("publish attempt ended without an outcome")
			}

			// Host-side reporting must not be cut short by an interrupt that
			// arrived after the attempt committed.
			reportCtx := context.WithoutCancel(runCtx)
			notifier := notifications.NewService(cfg)

			if conf := outcome.Confirmation; conf != nil {
				result.Confirmation = conf
				if err := recordPublication(reportCtx, ctx, result.AttemptID, *conf); err != nil {
					logging.WarnWithContext(ctx.log(), "failed to record publication", "history_write_failed",
						logging.String("attempt_id", result.AttemptID),
						logging.Error(err),
						logging.String("error_hint", "the asset is registered; only local history is missing"),
					)
				}
				if err := notifier.NotifyPublished(reportCtx, *conf); err != nil {
					ctx.log().Debug("publish notification failed", logging.Error(err))
				}
				if jsonOut {
					return writeJSON(cmd, result)
				}
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Published %s\n", conf.Name)
				fmt.Fprintf(out, "  Registration: %s\n", conf.ID)
				fmt.Fprintf(out, "  Image:        %s\n", conf.Image)
				fmt.Fprintf(out, "  Record:       %s\n", conf.Record)
				fmt.Fprintf(out, "  Owner:        %s\n", conf.Owner)
				return nil
			}

			perr := outcome.Err
			if err := notifier.NotifyPublishFailed(reportCtx, perr); err != nil {
				ctx.log().Debug("failure notification failed", logging.Error(err))
			}
			result.Failure = &publishFailure{
				Kind:     perr.Kind,
				Stage:    perr.Stage,
				Attempts: perr.Attempts,
				Phase:    perr.Phase,
				Message:  perr.Error(),
				Hint:     perr.Hint,
			}
			if showDiagnostics {
				result.Failure.Entries = perr.Diagnostics
			}
			if jsonOut {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
				return perr
			}
			errOut := cmd.ErrOrStderr()
			if perr.Hint != "" {
				fmt.Fprintf(errOut, "Hint: %s\n", perr.Hint)
			}
			if showDiagnostics {
				for _, entry := range perr.Diagnostics {
					fmt.Fprintf(errOut, "  %s %-5s %s\n", entry.Time.Format("15:04:05.000"), entry.Level, entry.Message)
				}
			}
			return perr
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Approve the signature request without prompting")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the result as JSON")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip backend health checks before publishing")
	cmd.Flags().BoolVar(&showDiagnostics, "diagnostics", false, "Show the attempt's captured log on failure")
	return cmd
}

// promptApprover asks on out and reads the answer from in. End of input declines.
func promptApprover(in io.Reader, out io.Writer) identity.Approver {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, intent identity.Intent) (bool, error) {
		fmt.Fprintf(out, "Signature request: %s\nApprove? [y/N]: ", intent.Summary())
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("read approval: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

func recordPublication(ctx context.Context, cmdCtx *commandContext, attemptID string, conf publish.Confirmation) error {
	st, err := cmdCtx.openStore()
	if err != nil {
		return err
	}
	_, err = st.RecordPublication(ctx, store.Publication{
		AttemptID:      attemptID,
		Name:           conf.Name,
		RegistrationID: conf.ID,
		ImageLocator:   conf.Image,
		RecordLocator:  conf.Record,
		Owner:          conf.Owner,
		RecordAttempts: conf.Attempts,
	})
	return err
}
