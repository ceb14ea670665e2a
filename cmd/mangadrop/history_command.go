package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mangadrop/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON    bool
		fileName  string
		outcome   string
		limit     int
		pruneDays int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the journal of delivery decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ctx.config.History.Enabled {
				return errors.New("delivery history is disabled (history.enabled = false)")
			}
			store, err := history.Open(ctx.config.HistoryDBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if pruneDays > 0 {
				removed, err := store.Prune(cmd.Context(), time.Now().AddDate(0, 0, -pruneDays))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %s older than %d days\n", pluralize(int(removed), "entry", "entries"), pruneDays)
				return nil
			}

			entries, err := store.List(cmd.Context(), history.ListOptions{
				FileName: fileName,
				Outcome:  outcome,
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			if asJSON {
				if entries == nil {
					entries = []history.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No deliveries recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.RecordedAt.Local().Format("2006-01-02 15:04"),
					shortID(e.BatchID),
					string(e.Source),
					e.FileName,
					e.Outcome,
					e.Reason,
					formatBytes(e.SizeBytes),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{col("When"), col("Batch"), col("Source"), col("File"), col("Outcome"), col("Reason"), num("Size")},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&fileName, "file", "", "Only show entries for this file name")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Only show delivered, queued, or failed entries")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to show (0 for all)")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete entries older than this many days instead of listing")
	return cmd
}
