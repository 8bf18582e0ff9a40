package lifecycle

import (
	"sync/atomic"
	"time"
)

var (
	shuttingDown atomic.Bool
	shutdownAt   atomic.Int64 // unix nanos, 0 while serving
)

// SetShuttingDown sets the shutdown flag. Call when SIGTERM/SIGINT received.
// Health handler returns 503 with status shutting-down while true.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
	if v {
		shutdownAt.Store(time.Now().UnixNano())
	} else {
		shutdownAt.Store(0)
	}
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// ShuttingDownSince returns when the shutdown flag was set, or the zero time
// while the process is serving.
func ShuttingDownSince() time.Time {
	ns := shutdownAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
