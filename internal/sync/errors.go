package sync

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes a cycle can hit.
var (
	// ErrNotConnected means a push was requested while the monitor
	// believes we are offline. No network call is attempted.
	ErrNotConnected = errors.New("not connected")

	// ErrProtocol means the server response body did not match the
	// expected batch shape. Treated as a retryable transport failure,
	// it may be a transient server bug.
	ErrProtocol = errors.New("protocol violation")

	// ErrCycleRunning means a synchronous cycle was requested while
	// another cycle is already in flight.
	ErrCycleRunning = errors.New("sync cycle already running")
)

// RemoteError is a non-2xx response from the sync endpoint. The message
// is the server-reported one, surfaced verbatim in notifications.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server rejected sync (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server rejected sync (HTTP %d)", e.Status)
}
