package device

import (
	"context"
	"errors"
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

type stubExecutor struct {
	output []byte
	err    error
	binary string
	args   []string
}

func (s *stubExecutor) Output(_ context.Context, binary string, args ...string) ([]byte, error) {
	s.binary = binary
	s.args = args
	return s.output, s.err
}

const sampleLSBLK = `NAME="sda" LABEL="" MOUNTPOINT=""
NAME="sda1" LABEL="Backup Disk" MOUNTPOINT="/media/user/Backup Disk"
NAME="sdb" LABEL="Kindle" MOUNTPOINT=""
NAME="sdc" LABEL="Kindle" MOUNTPOINT="/media/user/Kindle"
NAME="sdd" LABEL="My\x20Kindle" MOUNTPOINT="/media/user/My\x20Kindle"
`

func TestParseLSBLK(t *testing.T) {
	devices := ParseLSBLK(sampleLSBLK)
	if len(devices) != 5 {
		t.Fatalf("expected 5 devices, got %d", len(devices))
	}
	if devices[1].Label != "Backup Disk" || devices[1].MountPoint != "/media/user/Backup Disk" {
		t.Fatalf("spaces inside quotes not preserved: %+v", devices[1])
	}
	if devices[4].Label != "My Kindle" || devices[4].MountPoint != "/media/user/My Kindle" {
		t.Fatalf("hex escapes not decoded: %+v", devices[4])
	}
}

func TestScanPicksFirstMountedMatch(t *testing.T) {
	exec := &stubExecutor{output: []byte(sampleLSBLK)}
	var probed string
	scanner := NewScanner(
		WithEnumerator(NewLSBLK(exec)),
		WithStatfs(func(path string) (int64, error) {
			probed = path
			return 5000, nil
		}),
	)

	mount, err := scanner.Scan(context.Background(), "Kindle")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !mount.Connected || mount.Path != "/media/user/Kindle" || mount.AvailableBytes != 5000 {
		t.Fatalf("unexpected mount %+v", mount)
	}
	if probed != "/media/user/Kindle" {
		t.Fatalf("statfs probed %q", probed)
	}
	if exec.binary != "lsblk" || len(exec.args) != 4 || exec.args[0] != "-P" {
		t.Fatalf("unexpected lsblk invocation %s %v", exec.binary, exec.args)
	}
}

func TestScanNoMatchIsDisconnected(t *testing.T) {
	scanner := NewScanner(
		WithEnumerator(NewLSBLK(&stubExecutor{output: []byte(sampleLSBLK)})),
		WithStatfs(func(string) (int64, error) { t.Fatal("statfs should not run"); return 0, nil }),
	)
	mount, err := scanner.Scan(context.Background(), "Kobo")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if mount.Connected || mount.Path != "" || mount.AvailableBytes != 0 {
		t.Fatalf("expected disconnected mount, got %+v", mount)
	}
}

func TestScanEnumerationFailure(t *testing.T) {
	scanner := NewScanner(WithEnumerator(NewLSBLK(&stubExecutor{err: errors.New("lsblk missing")})))
	if _, err := scanner.Scan(context.Background(), "Kindle"); err == nil {
		t.Fatal("expected enumeration error")
	}
}

func TestScanStatfsFailure(t *testing.T) {
	scanner := NewScanner(
		WithEnumerator(NewLSBLK(&stubExecutor{output: []byte(sampleLSBLK)})),
		WithStatfs(func(string) (int64, error) { return 0, errors.New("io") }),
	)
	if _, err := scanner.Scan(context.Background(), "Kindle"); err == nil {
		t.Fatal("expected statfs error")
	}
}

func TestRealStatfsReportsSpace(t *testing.T) {
	available, err := realStatfs(t.TempDir())
	if err != nil {
		t.Fatalf("realStatfs: %v", err)
	}
	if available < 0 {
		t.Fatalf("unexpected available bytes %d", available)
	}
}

func TestNewWatcher(t *testing.T) {
	if NewWatcher("  ", nil, nil) != nil {
		t.Fatal("expected nil watcher for blank label")
	}
	var w *Watcher
	w.Stop()
	if w.Running() {
		t.Fatal("nil watcher should not be running")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil watcher: %v", err)
	}

	w = NewWatcher("Kindle", nil, nil)
	if w == nil || w.Running() {
		t.Fatal("expected unstarted watcher")
	}
	w.Stop()
}

func TestWatcherDispatchFiltersLabel(t *testing.T) {
	var got []Event
	w := NewWatcher("Kindle", nil, func(_ context.Context, event Event) {
		got = append(got, event)
	})

	w.dispatch(context.Background(), netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"DEVNAME": "sdc", "ID_FS_LABEL": "Kindle", "SUBSYSTEM": "block"},
	})
	w.dispatch(context.Background(), netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"DEVPATH": "/devices/pci0000:00/usb1/block/sdd", "ID_FS_LABEL": "Kindle2"},
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 dispatched event, got %d", len(got))
	}
	if got[0].DevName != "/dev/sdc" || got[0].Action != "add" {
		t.Fatalf("unexpected event %+v", got[0])
	}
}

func TestEventFromUEventDevPathFallback(t *testing.T) {
	event := eventFromUEvent(netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{"DEVPATH": "/devices/x/block/sde"}})
	if event.DevName != "/dev/sde" {
		t.Fatalf("unexpected devname %q", event.DevName)
	}
}
