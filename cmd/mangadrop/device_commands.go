package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mangadrop/internal/artifact"
	"mangadrop/internal/catalog"
	"mangadrop/internal/logging"
	"mangadrop/internal/services"
)

func newDeviceCommand(ctx *commandContext) *cobra.Command {
	deviceCmd := &cobra.Command{
		Use:   "device",
		Short: "Inspect the Kindle and the ebooks installed on it",
	}
	deviceCmd.AddCommand(newDeviceStatusCommand(ctx))
	deviceCmd.AddCommand(newDeviceListCommand(ctx))
	deviceCmd.AddCommand(newDeviceRemoveCommand(ctx))
	return deviceCmd
}

func newDeviceStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the device is mounted and how much space is free",
		RunE: func(cmd *cobra.Command, args []string) error {
			mount, err := ctx.scan(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, mount)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			name := ctx.config.Device.Name
			if !mount.Connected {
				fmt.Fprintln(out, renderStatusLine(name, statusWarn, "not connected", colorize))
				return nil
			}
			fmt.Fprintln(out, renderStatusLine(name, statusOK, "mounted at "+mount.Path, colorize))
			fmt.Fprintln(out, renderStatusLine("Free space", statusInfo, formatBytes(mount.AvailableBytes), colorize))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newDeviceListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List ebooks recorded in the device catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.openCatalog(cmd)
			if err != nil {
				return err
			}
			records, err := cat.List()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, nonNilRecords(records))
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No ebooks installed")
				return nil
			}
			fmt.Fprintln(out, renderRecords(records))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newDeviceRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm FILE_NAME...",
		Aliases: []string{"uninstall"},
		Short:   "Delete ebooks from the device and its catalog",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := ctx.openCatalog(cmd)
			if err != nil {
				return err
			}
			coord, cleanup, err := ctx.coordinator()
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			logger := ctx.log()
			return coord.Locked(cmd.Context(), func() error {
				for _, name := range args {
					name = strings.TrimSpace(name)
					if err := cat.Uninstall(name); err != nil {
						return err
					}
					logger.Info("ebook uninstalled",
						logging.String(logging.FieldEventType, "ebook_uninstalled"),
						logging.String("file_name", name),
					)
					fmt.Fprintf(out, "Removed %s from the device\n", name)
				}
				return nil
			})
		},
	}
}

// openCatalog scans the device and binds its catalog.
func (c *commandContext) openCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	mount, err := c.scan(cmd.Context())
	if err != nil {
		return nil, err
	}
	if !mount.Connected {
		return nil, services.Wrap(services.ErrDeviceNotConnected, "device", "scan", c.config.Device.Name+" is not mounted", nil)
	}
	return catalog.Open(mount, c.layout())
}

func (c *commandContext) layout() catalog.Layout {
	return catalog.Layout{
		CatalogFile:  c.config.Device.CatalogFile,
		DocumentsDir: c.config.Device.DocumentsDir,
	}
}

func renderRecords(records []artifact.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		chapter := ""
		if r.ChapterTitle != nil {
			chapter = *r.ChapterTitle
		}
		rows = append(rows, []string{r.FileName, r.MangaTitle, r.VolumeTitle, chapter, formatBytes(r.FileSize)})
	}
	return renderTable(
		[]column{col("File"), col("Series"), col("Volume"), col("Chapter"), num("Size")},
		rows,
	)
}

func nonNilRecords(records []artifact.Record) []artifact.Record {
	if records == nil {
		return []artifact.Record{}
	}
	return records
}
