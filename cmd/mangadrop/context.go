package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mangadrop/internal/assemble"
	"mangadrop/internal/cart"
	"mangadrop/internal/config"
	"mangadrop/internal/content"
	"mangadrop/internal/content/mangadex"
	"mangadrop/internal/delivery"
	"mangadrop/internal/device"
	"mangadrop/internal/fetch"
	"mangadrop/internal/history"
	"mangadrop/internal/logging"
	"mangadrop/internal/notifications"
	"mangadrop/internal/packager"
	"mangadrop/internal/queue"
	"mangadrop/internal/services"
	"mangadrop/internal/staging"
)

const staleWorkDirAge = 24 * time.Hour

// dependencies replaces pipeline collaborators. Nil fields use the real
// implementations built from configuration.
type dependencies struct {
	scan     func(ctx context.Context, name string) (device.Mount, error)
	resolver content.Resolver
	fetcher  assemble.PageFetcher
	packager packager.Packager
	notifier notifications.Service
}

type commandContext struct {
	configFlag *string
	deps       dependencies

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, deps dependencies) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		deps:       deps,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// log returns the CLI logger. The first call also prunes old logs and stale
// work directories.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger

		logging.PruneLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays)
		staging.CleanStale(cfg.Paths.WorkDir, staleWorkDirAge, logger)
	})
	return c.logger
}

func (c *commandContext) cart() *cart.Cart {
	return cart.New(c.config.Paths.CartPath)
}

func (c *commandContext) queue() *queue.Queue {
	return queue.New(c.config.Paths.QueueDir)
}

func (c *commandContext) scan(ctx context.Context) (device.Mount, error) {
	name := c.config.Device.Name
	if c.deps.scan != nil {
		return c.deps.scan(ctx, name)
	}
	scanner := device.NewScanner(
		device.WithTimeout(c.config.ScanTimeout()),
		device.WithLogger(c.log()),
	)
	return scanner.Scan(ctx, name)
}

func (c *commandContext) notifier() notifications.Service {
	if c.deps.notifier != nil {
		return c.deps.notifier
	}
	return notifications.NewService(c.config)
}

// notify runs send and logs a failure. Notifications never fail a command.
func (c *commandContext) notify(send func(notifications.Service) error) {
	if err := send(c.notifier()); err != nil {
		logging.WarnWithContext(c.log(), "notification not sent", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no push message for this run"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func (c *commandContext) resolver() content.Resolver {
	if c.deps.resolver != nil {
		return c.deps.resolver
	}
	return mangadex.New(c.config, mangadex.WithLogger(c.log()))
}

func (c *commandContext) assembler(resolver content.Resolver) (*assemble.Assembler, error) {
	logger := c.log()
	fetcher := c.deps.fetcher
	if fetcher == nil {
		fetcher = fetch.NewFromConfig(c.config, fetch.WithLogger(logger))
	}
	pkg := c.deps.packager
	if pkg == nil {
		kindle, err := packager.NewKindleFromConfig(c.config, logger)
		if err != nil {
			return nil, err
		}
		pkg = kindle
	}
	if created, err := assemble.EnsureMarkers(c.config); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "cli", "render markers", c.config.Paths.AssetsDir, err)
	} else if len(created) > 0 {
		logger.Info("rendered default marker images",
			logging.String(logging.FieldEventType, "markers_rendered"),
			logging.Int("count", len(created)),
			logging.String("assets_dir", c.config.Paths.AssetsDir),
		)
	}
	return assemble.New(c.config, fetcher, resolver, pkg, assemble.WithLogger(logger)), nil
}

// coordinator builds the delivery coordinator. The returned cleanup closes
// the history journal.
func (c *commandContext) coordinator() (*delivery.Coordinator, func(), error) {
	logger := c.log()
	q := c.queue()
	if err := q.EnsureInitialized(); err != nil {
		return nil, func() {}, err
	}
	opts := []delivery.Option{delivery.WithLogger(logger)}
	cleanup := func() {}
	if c.config.History.Enabled {
		store, err := history.Open(c.config.HistoryDBPath())
		if err != nil {
			logging.WarnWithContext(logger, "delivery history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "deliveries are not journaled for this run"),
				logging.String(logging.FieldErrorHint, "check state_dir permissions or remove a corrupt history.db"),
			)
		} else {
			opts = append(opts, delivery.WithJournal(store))
			cleanup = func() { _ = store.Close() }
		}
	}
	return delivery.New(c.config, q, opts...), cleanup, nil
}

// batchContext tags ctx with a fresh batch correlation ID.
func batchContext(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return services.WithBatchID(ctx, id), id
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// describeError renders err with a next step for the common failure kinds.
func describeError(err error) string {
	msg := err.Error()
	switch {
	case errors.Is(err, delivery.ErrBusy):
		return msg + "\nhint: wait for the other mangadrop process (watch or checkout) to finish"
	case errors.Is(err, services.ErrStoreCorrupt):
		return msg + "\nhint: the store file named above is not valid JSON; repair it or move it aside"
	case errors.Is(err, services.ErrDeviceNotConnected):
		return msg + "\nhint: connect the Kindle and check device.name in the config"
	case errors.Is(err, services.ErrConfiguration):
		return msg + "\nhint: run `mangadrop config validate`"
	case errors.Is(err, services.ErrConversion):
		return msg + "\nhint: check that kindlegen is installed and packager.kindlegen_binary points at it"
	default:
		return msg
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
