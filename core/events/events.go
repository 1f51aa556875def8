// Package events defines the domain events published on the internal bus.
// Subscribers (logging, notification adapters) consume them out of band so
// the control loop never blocks on observers.
package events

import "time"

// CommandIssued is published after a charging-amps command is confirmed sent.
type CommandIssued struct {
	Amps         int
	PreviousAmps float64
	Time         time.Time
}

// OvercurrentDetected is published once per excursion when the instantaneous
// house reading stays above the warn threshold for the configured number of
// consecutive samples.
type OvercurrentDetected struct {
	Amps      float64
	Threshold float64
	Time      time.Time
}

// SessionRecovered is published when the supervisor rebuilds a session after
// a tick failure.
type SessionRecovered struct {
	SessionID string
	Cause     string
	Time      time.Time
}
