package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mangadrop/internal/cart"
	"mangadrop/internal/services"
)

func newCartCommand(ctx *commandContext) *cobra.Command {
	cartCmd := &cobra.Command{
		Use:   "cart",
		Short: "Stage volumes and chapters for packaging",
		Long: `Cart entries are a volume ("3") or a volume and chapter joined by a dash ("3-12").
Run "mangadrop checkout SERIES_ID" to package and deliver the cart.`,
	}

	cartCmd.AddCommand(&cobra.Command{
		Use:   "add ENTRY...",
		Short: "Append entries to the cart",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.cart()
			for _, arg := range args {
				entry := cart.Entry(arg)
				if err := c.Add(entry); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", describeEntry(entry))
			}
			return nil
		},
	})

	cartCmd.AddCommand(&cobra.Command{
		Use:     "rm ENTRY...",
		Aliases: []string{"remove"},
		Short:   "Remove entries from the cart",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.cart()
			var errs []error
			for _, arg := range args {
				entry := cart.Entry(arg)
				if err := c.Remove(entry); err != nil {
					if errors.Is(err, services.ErrNotFound) {
						fmt.Fprintf(cmd.OutOrStdout(), "%s is not in the cart\n", describeEntry(entry))
					}
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", describeEntry(entry))
			}
			return errors.Join(errs...)
		},
	})

	var lsJSON bool
	lsCmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cart entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := ctx.cart().List()
			if err != nil {
				return err
			}
			if lsJSON {
				values := make([]string, 0, len(entries))
				for _, e := range entries {
					values = append(values, string(e))
				}
				return writeJSON(cmd, values)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Cart is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for i, e := range entries {
				volume, chapter, hasChapter, err := cart.ParseEntry(e)
				if err != nil {
					rows = append(rows, []string{fmt.Sprint(i + 1), string(e), "", "invalid"})
					continue
				}
				kind := "volume"
				if hasChapter {
					kind = "chapter"
				}
				rows = append(rows, []string{fmt.Sprint(i + 1), volume, chapter, kind})
			}
			fmt.Fprintln(out, renderTable([]column{num("#"), col("Volume"), col("Chapter"), col("Type")}, rows))
			return nil
		},
	}
	lsCmd.Flags().BoolVar(&lsJSON, "json", false, "Output as JSON")
	cartCmd.AddCommand(lsCmd)

	cartCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.cart().Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared")
			return nil
		},
	})

	return cartCmd
}

func describeEntry(e cart.Entry) string {
	volume, chapter, hasChapter, err := cart.ParseEntry(e)
	if err != nil {
		return string(e)
	}
	if hasChapter {
		return fmt.Sprintf("volume %s chapter %s", volume, chapter)
	}
	return "volume " + volume
}
