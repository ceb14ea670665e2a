package device

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"mangadrop/internal/logging"
)

// Event is a udev block event for a device carrying the watched label.
type Event struct {
	Action  string
	DevName string
	Label   string
}

// Watcher listens for udev netlink events announcing a block device with the
// configured filesystem label.
type Watcher struct {
	label   string
	logger  *slog.Logger
	handler func(ctx context.Context, event Event)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewWatcher returns nil when label is blank.
func NewWatcher(label string, logger *slog.Logger, handler func(ctx context.Context, event Event)) *Watcher {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}
	return &Watcher{
		label:   label,
		logger:  logging.NewComponentLogger(logger, "device-watcher"),
		handler: handler,
	}
}

// Start connects to the kernel uevent socket and begins dispatching events.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return err
	}
	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true

	quit := w.quit
	go w.loop(ctx, conn, quit)

	w.logger.Info("device watcher started",
		logging.String(logging.FieldEventType, "device_watcher_started"),
		logging.String("label", w.label),
	)
	return nil
}

// Stop shuts down the watcher. Safe on nil and unstarted watchers.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.quit)
	w.quit = nil
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.running = false
	w.logger.Info("device watcher stopped",
		logging.String(logging.FieldEventType, "device_watcher_stopped"),
	)
}

// Running reports whether the watcher is active.
func (w *Watcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(events, errs, w.matcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			w.dispatch(ctx, uevent)
		case err := <-errs:
			logging.WarnWithContext(w.logger, "udev monitor error", "device_watcher_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "plug-in events may be missed"),
			)
		}
	}
}

// matcher selects block add/change events whose filesystem label is the
// watched label.
func (w *Watcher) matcher() netlink.Matcher {
	action := "add|change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":   "block",
			"ID_FS_LABEL": "^" + regexp.QuoteMeta(w.label) + "$",
		},
	})
	return rules
}

func (w *Watcher) dispatch(ctx context.Context, uevent netlink.UEvent) {
	event := eventFromUEvent(uevent)
	if event.Label != w.label {
		return
	}
	w.logger.Info("device plugged in",
		logging.String(logging.FieldEventType, "device_detected"),
		logging.String("devname", event.DevName),
		logging.String("action", event.Action),
	)
	if w.handler != nil {
		w.handler(ctx, event)
	}
}

func eventFromUEvent(uevent netlink.UEvent) Event {
	devname := uevent.Env["DEVNAME"]
	if devname == "" {
		if parts := strings.Split(uevent.Env["DEVPATH"], "/"); len(parts) > 0 && parts[len(parts)-1] != "" {
			devname = "/dev/" + parts[len(parts)-1]
		}
	} else if !strings.HasPrefix(devname, "/") {
		devname = "/dev/" + devname
	}
	return Event{
		Action:  string(uevent.Action),
		DevName: devname,
		Label:   uevent.Env["ID_FS_LABEL"],
	}
}
