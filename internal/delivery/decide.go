package delivery

import (
	"mangadrop/internal/artifact"
	"mangadrop/internal/device"
)

// Status is the routing result of a delivery decision.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusQueued    Status = "queued"
)

// Reasons attached to queued outcomes.
const (
	ReasonDeviceNotConnected = "device_not_connected"
	ReasonInsufficientSpace  = "insufficient_space"
)

// DefaultSafetyMargin is added to the available bytes before comparing with
// the artifact size.
const DefaultSafetyMargin int64 = 100

// Outcome is the result of Decide.
type Outcome struct {
	Status Status
	Reason string
}

// Delivered reports whether the artifact should be copied to the device.
func (o Outcome) Delivered() bool {
	return o.Status == StatusDelivered
}

// Decide routes a to the device or the queue based on one scan of mount.
func Decide(a artifact.Artifact, mount device.Mount, safetyMargin int64) Outcome {
	if !mount.Connected {
		return Outcome{Status: StatusQueued, Reason: ReasonDeviceNotConnected}
	}
	if mount.AvailableBytes+safetyMargin > a.Size {
		return Outcome{Status: StatusDelivered}
	}
	return Outcome{Status: StatusQueued, Reason: ReasonInsufficientSpace}
}
