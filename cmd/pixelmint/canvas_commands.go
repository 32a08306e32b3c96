package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pixelmint/internal/config"
	"pixelmint/internal/encoder"
	"pixelmint/internal/raster"
	"pixelmint/internal/store"
)

func newCanvasCommand(ctx *commandContext) *cobra.Command {
	canvasCmd := &cobra.Command{
		Use:   "canvas",
		Short: "Inspect and edit the saved canvas",
	}

	canvasCmd.AddCommand(newCanvasShowCommand(ctx))
	canvasCmd.AddCommand(newCanvasPaintCommand(ctx))
	canvasCmd.AddCommand(newCanvasFillCommand(ctx))
	canvasCmd.AddCommand(newCanvasClearCommand(ctx))
	canvasCmd.AddCommand(newCanvasExportCommand(ctx))

	return canvasCmd
}

func newCanvasShowCommand(ctx *commandContext) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the canvas",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadCanvas(cmd, ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderCanvas(r, !plain && shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Disable colour output")
	return cmd
}

func newCanvasPaintCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "paint X Y COLOR",
		Short: "Paint one cell (x and y start at 0)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid x %q", args[0])
			}
			y, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid y %q", args[1])
			}
			colour, err := validColour(args[2])
			if err != nil {
				return err
			}

			var changed bool
			_, err = editCanvas(cmd, ctx, func(c *raster.Canvas) error {
				var paintErr error
				changed, paintErr = c.Paint(x, y, colour)
				return paintErr
			})
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintf(cmd.OutOrStdout(), "Painted (%d, %d) %s\n", x, y, colour)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Cell (%d, %d) is already %s\n", x, y, colour)
			}
			return nil
		},
	}
}

func newCanvasFillCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fill COLOR",
		Short: "Paint every cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			colour, err := validColour(args[0])
			if err != nil {
				return err
			}
			if _, err := editCanvas(cmd, ctx, func(c *raster.Canvas) error {
				c.Fill(colour)
				return nil
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Filled canvas with %s\n", colour)
			return nil
		},
	}
}

func newCanvasClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset the canvas to white",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := editCanvas(cmd, ctx, func(c *raster.Canvas) error {
				c.Clear()
				return nil
			}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Canvas cleared")
			return nil
		},
	}
}

func newCanvasExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var scale int
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the canvas as a PNG file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target, err := config.ExpandPath(strings.TrimSpace(outPath))
			if err != nil || target == "" {
				return fmt.Errorf("invalid output path %q", outPath)
			}
			if scale == 0 {
				scale = cfg.Canvas.Scale
			}
			r, err := loadCanvas(cmd, ctx)
			if err != nil {
				return err
			}
			asset, err := encoder.Export(r, scale, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %dx%d PNG to %s (%d bytes)\n", asset.Width, asset.Height, target, len(asset.Data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "canvas.png", "Destination PNG path")
	cmd.Flags().IntVar(&scale, "scale", 0, "Pixels per cell (defaults to canvas.scale)")
	return cmd
}

func loadCanvas(cmd *cobra.Command, ctx *commandContext) (raster.Raster, error) {
	st, err := ctx.openStore()
	if err != nil {
		return raster.Raster{}, err
	}
	r, _, err := st.LoadCanvas(cmd.Context(), ctx.config.Canvas.Key)
	return r, err
}

func editCanvas(cmd *cobra.Command, ctx *commandContext, edit func(*raster.Canvas) error) (raster.Raster, error) {
	st, err := ctx.openStore()
	if err != nil {
		return raster.Raster{}, err
	}
	lock := store.NewCanvasLock(ctx.config.CanvasLockPath())
	return st.EditCanvas(cmd.Context(), lock, ctx.config.Canvas.Key, edit)
}

func validColour(value string) (string, error) {
	value = strings.TrimSpace(value)
	if _, err := encoder.ParseColour(value); err != nil {
		return "", fmt.Errorf("invalid colour %q: %w", value, err)
	}
	return value, nil
}
