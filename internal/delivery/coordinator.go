package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"
	"time"

	"mangadrop/internal/artifact"
	"mangadrop/internal/catalog"
	"mangadrop/internal/config"
	"mangadrop/internal/device"
	"mangadrop/internal/fileutil"
	"mangadrop/internal/history"
	"mangadrop/internal/logging"
	"mangadrop/internal/queue"
	"mangadrop/internal/services"
)

// ScanFunc produces a fresh view of the device mount.
type ScanFunc func(ctx context.Context) (device.Mount, error)

// Journal records delivery decisions.
type Journal interface {
	Record(ctx context.Context, entry history.Entry) (int64, error)
}

// Result describes what happened to one artifact.
type Result struct {
	FileName string
	Outcome  Outcome
	// Added is false when the destination store already listed the file.
	Added bool
	Mount device.Mount
}

// Coordinator routes artifacts between the device catalog and the queue.
type Coordinator struct {
	queue        *queue.Queue
	layout       catalog.Layout
	safetyMargin int64
	journal      Journal
	lockPath     string
	lockTimeout  time.Duration
	logger       *slog.Logger
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithJournal attaches a history journal.
func WithJournal(j Journal) Option {
	return func(c *Coordinator) {
		c.journal = j
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logging.NewComponentLogger(logger, "delivery")
	}
}

// WithLockPath overrides the store lock location. An empty path disables
// locking.
func WithLockPath(path string) Option {
	return func(c *Coordinator) {
		c.lockPath = path
	}
}

// WithLockTimeout bounds how long Locked waits for a competing holder.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.lockTimeout = d
		}
	}
}

// New constructs a coordinator from the [device] and [paths] sections.
func New(cfg *config.Config, q *queue.Queue, opts ...Option) *Coordinator {
	c := &Coordinator{
		queue: q,
		layout: catalog.Layout{
			CatalogFile:  cfg.Device.CatalogFile,
			DocumentsDir: cfg.Device.DocumentsDir,
		},
		safetyMargin: cfg.Device.SafetyMarginBytes,
		lockPath:     cfg.LockPath(),
		lockTimeout:  defaultLockTimeout,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Queue returns the delivery queue.
func (c *Coordinator) Queue() *queue.Queue {
	return c.queue
}

// Layout returns the catalog layout used on the device.
func (c *Coordinator) Layout() catalog.Layout {
	return c.layout
}

// Decide applies the routing rule with the configured safety margin.
func (c *Coordinator) Decide(a artifact.Artifact, mount device.Mount) Outcome {
	return Decide(a, mount, c.safetyMargin)
}

// Deliver routes a freshly assembled artifact. Either way the artifact's
// temporary file is removed once it has been copied and recorded.
func (c *Coordinator) Deliver(ctx context.Context, a artifact.Artifact, mount device.Mount) (Result, error) {
	logger := logging.WithContext(ctx, c.logger).With(logging.String("file_name", a.FileName()))
	outcome := c.Decide(a, mount)
	result := Result{FileName: a.FileName(), Outcome: outcome, Mount: mount}

	if outcome.Delivered() {
		added, err := c.install(a, mount)
		switch {
		case err == nil:
			result.Added = added
		case errors.Is(err, services.ErrInsufficientSpace):
			logging.WarnWithContext(logger, "device filled up during copy; queueing", "delivery_fallback",
				logging.Alert("free_space_misreported"),
				logging.Error(err),
				logging.String(logging.FieldImpact, "artifact waits in the local queue"),
				logging.String(logging.FieldErrorHint, "free space on the device, then run queue flush"),
			)
			outcome = Outcome{Status: StatusQueued, Reason: ReasonInsufficientSpace}
			result.Outcome = outcome
		default:
			c.journalDecision(ctx, history.SourceFresh, a, mount, outcome, err)
			return result, err
		}
	}

	if !outcome.Delivered() {
		added, err := c.queue.Add(a)
		if err != nil {
			c.journalDecision(ctx, history.SourceFresh, a, mount, outcome, err)
			return result, fmt.Errorf("queue %s: %w", a.FileName(), err)
		}
		result.Added = added
	}

	if err := fileutil.RemoveIfExists(a.Path); err != nil {
		logger.Debug("artifact temp file not removed", logging.Error(err))
	}
	c.journalDecision(ctx, history.SourceFresh, a, mount, outcome, nil)
	c.logOutcome(logger, outcome, result.Added, a)
	return result, nil
}

// Redeliver replays one queued record. On success the record and its queued
// copy are removed. When the decision still says queue, the record is left
// untouched and ErrDeviceNotConnected or ErrInsufficientSpace is returned.
func (c *Coordinator) Redeliver(ctx context.Context, rec artifact.Record, mount device.Mount) (Result, error) {
	logger := logging.WithContext(ctx, c.logger).With(logging.String("file_name", rec.FileName))
	a, err := c.queue.Artifact(rec)
	if err != nil {
		return Result{FileName: rec.FileName}, fmt.Errorf("rebuild queued artifact: %w", err)
	}
	outcome := c.Decide(a, mount)
	result := Result{FileName: rec.FileName, Outcome: outcome, Mount: mount}

	if !outcome.Delivered() {
		c.journalDecision(ctx, history.SourceQueue, a, mount, outcome, nil)
		c.logOutcome(logger, outcome, false, a)
		return result, deferredError(outcome, rec.FileName)
	}

	added, err := c.install(a, mount)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientSpace) {
			result.Outcome = Outcome{Status: StatusQueued, Reason: ReasonInsufficientSpace}
		}
		c.journalDecision(ctx, history.SourceQueue, a, mount, result.Outcome, err)
		return result, err
	}
	result.Added = added
	if err := c.queue.Remove(rec); err != nil {
		c.journalDecision(ctx, history.SourceQueue, a, mount, outcome, err)
		return result, fmt.Errorf("remove %s from queue: %w", rec.FileName, err)
	}
	c.journalDecision(ctx, history.SourceQueue, a, mount, outcome, nil)
	c.logOutcome(logger, outcome, added, a)
	return result, nil
}

// DeliverBatch delivers artifacts in order, scanning the device before each
// one. Capacity and connectivity never abort the batch; other failures are
// collected and returned together.
func (c *Coordinator) DeliverBatch(ctx context.Context, artifacts []artifact.Artifact, scan ScanFunc) ([]Result, error) {
	var (
		results []Result
		errs    []error
	)
	err := c.Locked(ctx, func() error {
		for _, a := range artifacts {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				return nil
			}
			mount := c.scan(ctx, scan)
			result, err := c.Deliver(ctx, a, mount)
			results = append(results, result)
			if err != nil {
				errs = append(errs, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, errors.Join(errs...)
}

// RedeliverAll replays every queued record, scanning before each one.
// Records that are still deferred stay queued and are not errors.
func (c *Coordinator) RedeliverAll(ctx context.Context, scan ScanFunc) ([]Result, error) {
	var (
		results []Result
		errs    []error
	)
	err := c.Locked(ctx, func() error {
		records, err := c.queue.List()
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				return nil
			}
			mount := c.scan(ctx, scan)
			result, err := c.Redeliver(ctx, rec, mount)
			results = append(results, result)
			if err != nil && !services.Expected(err) {
				errs = append(errs, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, errors.Join(errs...)
}

// install copies a into the device documents folder and records it in the
// catalog. An artifact already listed in the catalog is not copied again.
func (c *Coordinator) install(a artifact.Artifact, mount device.Mount) (bool, error) {
	cat, err := catalog.Open(mount, c.layout)
	if err != nil {
		return false, err
	}
	if err := cat.EnsureInitialized(); err != nil {
		return false, err
	}
	exists, err := cat.Contains(a.FileName())
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := fileutil.CopyVerified(a.Path, cat.DocumentPath(a.FileName())); err != nil {
		if errors.Is(err, syscall.ENOSPC) {
			return false, services.Wrap(services.ErrInsufficientSpace, "delivery", "copy to device", a.FileName(), err)
		}
		return false, fmt.Errorf("copy %s to device: %w", a.FileName(), err)
	}
	return cat.Add(a.Record())
}

func (c *Coordinator) scan(ctx context.Context, scan ScanFunc) device.Mount {
	if scan == nil {
		return device.Mount{}
	}
	mount, err := scan(ctx)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "device scan failed; treating device as absent", "device_scan_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "artifacts are queued instead of delivered"),
			logging.String(logging.FieldErrorHint, "check that lsblk is installed"),
		)
		return device.Mount{}
	}
	return mount
}

func (c *Coordinator) journalDecision(ctx context.Context, source history.Source, a artifact.Artifact, mount device.Mount, outcome Outcome, cause error) {
	if c.journal == nil {
		return
	}
	entry := history.Entry{
		Source:         source,
		FileName:       a.FileName(),
		Series:         a.SeriesTitle,
		Kind:           string(a.Kind),
		Outcome:        string(outcome.Status),
		Reason:         outcome.Reason,
		SizeBytes:      a.Size,
		AvailableBytes: mount.AvailableBytes,
		MountPath:      mount.Path,
	}
	if batchID, ok := services.BatchIDFromContext(ctx); ok {
		entry.BatchID = batchID
	}
	if cause != nil {
		entry.Outcome = "failed"
		entry.Reason = services.Kind(cause)
	}
	if _, err := c.journal.Record(ctx, entry); err != nil {
		logging.WarnWithContext(c.logger, "delivery decision not journaled", "history_write_failed",
			logging.String("file_name", entry.FileName),
			logging.Error(err),
			logging.String(logging.FieldImpact, "history listing will miss this delivery"),
		)
	}
}

func (c *Coordinator) logOutcome(logger *slog.Logger, outcome Outcome, added bool, a artifact.Artifact) {
	attrs := append(logging.DecisionAttrs("delivery_route", string(outcome.Status), outcome.Reason),
		logging.String(logging.FieldEventType, "artifact_"+string(outcome.Status)),
		logging.Int64("size_bytes", a.Size),
		logging.Bool("duplicate", !added),
	)
	if outcome.Delivered() {
		logger.Info("artifact delivered to device", logging.Args(attrs...)...)
		return
	}
	logger.Info("artifact queued", logging.Args(attrs...)...)
}

func deferredError(outcome Outcome, fileName string) error {
	if outcome.Reason == ReasonDeviceNotConnected {
		return services.Wrap(services.ErrDeviceNotConnected, "delivery", "redeliver", fileName, nil)
	}
	return services.Wrap(services.ErrInsufficientSpace, "delivery", "redeliver", fileName, nil)
}
