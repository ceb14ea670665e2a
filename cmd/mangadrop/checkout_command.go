package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mangadrop/internal/artifact"
	"mangadrop/internal/content"
	"mangadrop/internal/logging"
	"mangadrop/internal/notifications"
	"mangadrop/internal/services"
)

func newCheckoutCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "checkout SERIES_ID",
		Short: "Package every cart entry of a series and deliver it",
		Long: `Checkout resolves the series, packages each cart entry into a Kindle ebook,
and delivers the ebooks one by one. When the device is missing or full an
ebook is parked in the local queue; run "mangadrop queue flush" later.
The cart is cleared once every entry was packaged and handed off.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seriesID := strings.TrimSpace(args[0])
			c := ctx.cart()
			entries, err := c.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return errors.New("cart is empty; add entries with `mangadrop cart add`")
			}

			runCtx, batchID := batchContext(cmd.Context())
			logger := logging.WithContext(runCtx, ctx.log())

			resolver := ctx.resolver()
			series, err := resolver.Series(runCtx, seriesID)
			if err != nil {
				return err
			}
			units, err := content.Select(series, entries)
			if err != nil {
				return err
			}
			asm, err := ctx.assembler(resolver)
			if err != nil {
				return err
			}
			coord, cleanup, err := ctx.coordinator()
			if err != nil {
				return err
			}
			defer cleanup()

			logger.Info("checkout started",
				logging.String(logging.FieldEventType, "checkout_started"),
				logging.String("series", series.Title),
				logging.Int("units", len(units)),
			)

			var (
				artifacts []artifact.Artifact
				failures  []error
			)
			for _, unit := range units {
				unitCtx := services.WithUnit(runCtx, unit.Label())
				a, err := asm.Assemble(unitCtx, unit)
				if err != nil {
					logging.ErrorWithContext(logging.WithContext(unitCtx, logger), "packaging failed", "unit_failed",
						logging.Error(err),
						logging.ErrorKind(err),
						logging.String(logging.FieldErrorHint, "rerun checkout; the cart is kept when a unit fails"),
					)
					failures = append(failures, fmt.Errorf("%s: %w", unit.Label(), err))
					continue
				}
				artifacts = append(artifacts, a)
			}

			results, deliverErr := coord.DeliverBatch(runCtx, artifacts, ctx.scan)
			if deliverErr != nil {
				failures = append(failures, deliverErr)
			}
			if len(failures) == 0 {
				if err := c.Clear(); err != nil {
					failures = append(failures, err)
				}
			}
			delivered, queued := countOutcomes(results)
			ctx.notify(func(n notifications.Service) error {
				return n.NotifyBatchCompleted(runCtx, series.Title, delivered, queued, len(units)-len(artifacts))
			})

			if asJSON {
				if err := writeJSON(cmd, map[string]any{
					"batch_id": batchID,
					"series":   series.Title,
					"results":  resultsJSON(results),
				}); err != nil {
					return err
				}
				return errors.Join(failures...)
			}

			out := cmd.OutOrStdout()
			renderResults(out, results)
			fmt.Fprintf(out, "Batch %s: %s delivered, %s queued\n",
				shortID(batchID),
				pluralize(delivered, "ebook", "ebooks"),
				pluralize(queued, "ebook", "ebooks"),
			)
			return errors.Join(failures...)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
