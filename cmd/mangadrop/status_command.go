package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mangadrop/internal/preflight"
	"mangadrop/internal/staging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the device, kindlegen, MangaDex, and local directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			mount, err := ctx.scan(cmd.Context())
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, nil)
			leftovers, err := staging.ListDirectories(cfg.Paths.WorkDir)
			if err != nil {
				return err
			}
			var leftoverBytes int64
			for _, d := range leftovers {
				leftoverBytes += d.Size
			}

			if asJSON {
				return writeJSON(cmd, map[string]any{
					"device":  mount,
					"checks":  results,
					"ready":   !preflight.Failed(results),
					"staging": map[string]any{
						"directories": len(leftovers),
						"size_bytes":  leftoverBytes,
					},
				})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, "Device")
			if mount.Connected {
				fmt.Fprintln(out, renderStatusLine(cfg.Device.Name, statusOK,
					fmt.Sprintf("mounted at %s, %s free", mount.Path, formatBytes(mount.AvailableBytes)), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine(cfg.Device.Name, statusWarn, "not connected (checkout will queue)", colorize))
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Dependencies")
			for _, r := range results {
				kind := statusOK
				switch {
				case r.Passed:
				case r.Optional:
					kind = statusWarn
				default:
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if len(leftovers) > 0 {
				fmt.Fprintln(out, renderStatusLine("Staging", statusInfo,
					fmt.Sprintf("%s, %s (removed after 24h)", pluralize(len(leftovers), "unit directory", "unit directories"), formatBytes(leftoverBytes)), colorize))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
