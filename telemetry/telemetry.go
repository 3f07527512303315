// Package telemetry defines the runtime's observability sink and a
// Redis-backed implementation of it.
package telemetry

import (
	"time"

	"github.com/gomav/mavlink"
)

// Recorder observes connection lifecycle and heartbeat events from a
// network.Runtime. A nil Recorder is never passed to user code; the
// runtime defaults to Noop.
type Recorder interface {
	ConnectionOpened(peer mavlink.PeerAddress)
	ConnectionLost(peer mavlink.PeerAddress, err error)
	HeartbeatSeen(peer mavlink.PeerAddress, at time.Time)
}

// Noop discards every event; it is the runtime's default recorder.
type Noop struct{}

func (Noop) ConnectionOpened(mavlink.PeerAddress)            {}
func (Noop) ConnectionLost(mavlink.PeerAddress, error)        {}
func (Noop) HeartbeatSeen(mavlink.PeerAddress, time.Time)     {}
