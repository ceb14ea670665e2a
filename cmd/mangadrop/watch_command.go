package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"mangadrop/internal/delivery"
	"mangadrop/internal/device"
	"mangadrop/internal/logging"
	"mangadrop/internal/notifications"
)

const mountPollInterval = 500 * time.Millisecond

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Flush the queue whenever the device is plugged in",
		Long: `Watch listens for udev block events announcing a filesystem with the
configured device label. Each time the device appears and is mounted the
queue is flushed. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, cleanup, err := ctx.coordinator()
			if err != nil {
				return err
			}
			defer cleanup()
			logger := ctx.log()
			runCtx := cmd.Context()

			triggers := make(chan struct{}, 1)
			watcher := device.NewWatcher(ctx.config.Device.Name, logger, func(_ context.Context, event device.Event) {
				logger.Info("device event",
					logging.String(logging.FieldEventType, "device_event"),
					logging.String("action", event.Action),
					logging.String("devname", event.DevName),
				)
				select {
				case triggers <- struct{}{}:
				default:
				}
			})
			if watcher == nil {
				return errors.New("device.name is empty; nothing to watch")
			}
			if err := watcher.Start(runCtx); err != nil {
				return fmt.Errorf("start device watcher: %w", err)
			}
			defer watcher.Stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching for %s; press Ctrl-C to stop\n", ctx.config.Device.Name)
			flushQueue(runCtx, coord, ctx, out, 0)

			for {
				select {
				case <-runCtx.Done():
					return nil
				case <-triggers:
					flushQueue(runCtx, coord, ctx, out, settle)
				}
			}
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", 10*time.Second, "How long to wait for the device to be mounted after it appears")
	return cmd
}

// flushQueue waits up to settle for the device to mount, then replays the
// queue. Errors are logged; watching continues.
func flushQueue(ctx context.Context, coord *delivery.Coordinator, cc *commandContext, out io.Writer, settle time.Duration) {
	logger := cc.log()
	if records, err := coord.Queue().List(); err != nil || len(records) == 0 {
		if err != nil {
			logging.WarnWithContext(logger, "queue unreadable", "queue_read_failed", logging.Error(err))
		}
		return
	}
	if !waitForMount(ctx, cc, settle) {
		return
	}

	runCtx, _ := batchContext(ctx)
	results, err := coord.RedeliverAll(runCtx, cc.scan)
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(runCtx, logger), "queue flush failed", "queue_flush_failed",
			logging.Error(err),
			logging.ErrorKind(err),
		)
	}
	if len(results) > 0 {
		renderResults(out, results)
	}
	delivered, queued := countOutcomes(results)
	cc.notify(func(n notifications.Service) error {
		return n.NotifyQueueFlushed(runCtx, delivered, queued)
	})
}

func waitForMount(ctx context.Context, cc *commandContext, settle time.Duration) bool {
	deadline := time.Now().Add(settle)
	ticker := time.NewTicker(mountPollInterval)
	defer ticker.Stop()
	for {
		mount, err := cc.scan(ctx)
		if err == nil && mount.Connected {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
