// Package device locates the USB-mounted e-reader and reports its free space.
//
// A Scan is one snapshot of truth: callers rescan before every delivery
// decision because the device may be unplugged or filled between artifacts.
// Watcher listens for udev block events so the CLI can replay the delivery
// queue as soon as the reader is plugged in.
package device
