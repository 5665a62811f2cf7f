package runtime

import (
	"context"
	"os/signal"
	"syscall"
	"time"
)

// DefaultDrainTimeout bounds a graceful shutdown when none is configured.
const DefaultDrainTimeout = 10 * time.Second

// SignalContext is cancelled on SIGINT or SIGTERM. Every long-lived part of the portal hangs
// off it: the gRPC health status flips to NOT_SERVING before GracefulStop, the outbox
// publisher and the schedule consumer return from Run, and main drains the HTTP server.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// DrainContext returns the deadline for draining after SignalContext fired. It must not derive
// from the signal context, which is already done by then.
func DrainContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}
