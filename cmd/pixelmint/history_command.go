package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List confirmed publications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			pubs, err := st.ListPublications(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, pubs)
			}
			out := cmd.OutOrStdout()
			if len(pubs) == 0 {
				fmt.Fprintln(out, "No publications yet")
				return nil
			}
			rows := make([][]string, 0, len(pubs))
			for _, p := range pubs {
				rows = append(rows, []string{
					strconv.FormatInt(p.ID, 10),
					p.CreatedAt.Local().Format("2006-01-02 15:04"),
					p.Name,
					p.RegistrationID,
					strconv.Itoa(p.RecordAttempts),
					p.ImageLocator,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Published", "Name", "Registration", "Tries", "Image"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries (0 for all)")
	return cmd
}
