package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mangadrop/internal/delivery"
	"mangadrop/internal/notifications"
	"mangadrop/internal/services"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and replay ebooks waiting for the device",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueSendCommand(ctx))
	queueCmd.AddCommand(newQueueFlushCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List queued ebooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := ctx.queue().List()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, nonNilRecords(records))
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}
			fmt.Fprintln(out, renderRecords(records))
			var total int64
			for _, r := range records {
				total += r.FileSize
			}
			fmt.Fprintf(out, "%s waiting, %s total\n", pluralize(len(records), "ebook", "ebooks"), formatBytes(total))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm FILE_NAME...",
		Aliases: []string{"cancel"},
		Short:   "Drop queued ebooks without delivering them",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, cleanup, err := ctx.coordinator()
			if err != nil {
				return err
			}
			defer cleanup()
			q := coord.Queue()
			out := cmd.OutOrStdout()
			return coord.Locked(cmd.Context(), func() error {
				for _, name := range args {
					rec, ok, err := q.Find(strings.TrimSpace(name))
					if err != nil {
						return err
					}
					if !ok {
						return services.Wrap(services.ErrNotFound, "queue", "remove", name+" is not queued", nil)
					}
					if err := q.Remove(rec); err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed %s from the queue\n", rec.FileName)
				}
				return nil
			})
		},
	}
}

func newQueueSendCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "send FILE_NAME...",
		Short: "Deliver specific queued ebooks to the device",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, cleanup, err := ctx.coordinator()
			if err != nil {
				return err
			}
			defer cleanup()
			runCtx, _ := batchContext(cmd.Context())
			q := coord.Queue()

			var results []delivery.Result
			err = coord.Locked(runCtx, func() error {
				for _, name := range args {
					rec, ok, err := q.Find(strings.TrimSpace(name))
					if err != nil {
						return err
					}
					if !ok {
						return services.Wrap(services.ErrNotFound, "queue", "send", name+" is not queued", nil)
					}
					mount, err := ctx.scan(runCtx)
					if err != nil {
						return err
					}
					result, err := coord.Redeliver(runCtx, rec, mount)
					results = append(results, result)
					if err != nil {
						return err
					}
				}
				return nil
			})
			if asJSON {
				if jsonErr := writeJSON(cmd, resultsJSON(results)); jsonErr != nil {
					return jsonErr
				}
				return err
			}
			renderResults(cmd.OutOrStdout(), results)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newQueueFlushCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Deliver every queued ebook that fits on the device",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, cleanup, err := ctx.coordinator()
			if err != nil {
				return err
			}
			defer cleanup()
			runCtx, _ := batchContext(cmd.Context())

			results, err := coord.RedeliverAll(runCtx, ctx.scan)
			delivered, queued := countOutcomes(results)
			ctx.notify(func(n notifications.Service) error {
				return n.NotifyQueueFlushed(runCtx, delivered, queued)
			})
			if asJSON {
				if jsonErr := writeJSON(cmd, resultsJSON(results)); jsonErr != nil {
					return jsonErr
				}
				return err
			}
			out := cmd.OutOrStdout()
			if len(results) == 0 && err == nil {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}
			renderResults(out, results)
			fmt.Fprintf(out, "%s delivered, %s still queued\n",
				pluralize(delivered, "ebook", "ebooks"),
				pluralize(queued, "ebook", "ebooks"),
			)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
