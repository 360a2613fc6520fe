package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger receives task errors and panics. Replace it in tests or to route
// background failures to a different sink.
var Logger logrus.FieldLogger = logrus.StandardLogger()

// run executes fn once with a timeout, converting a panic into an error
func run(parentCtx context.Context, timeout time.Duration, fn func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()

	return fn(ctx)
}

// SafeGo executes fn in a goroutine with a timeout and panic recovery.
// Failures are logged under taskName.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		if err := run(parentCtx, timeout, fn); err != nil {
			Logger.WithField("task", taskName).WithError(err).Error("background task failed")
		}
	}()
}

// Every runs fn each interval until ctx is cancelled. Each run is bounded by
// the interval. A failed or panicking run is logged and the loop continues.
// The returned channel is closed once the loop exits.
func Every(ctx context.Context, interval time.Duration, taskName string, fn func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := run(ctx, interval, fn); err != nil {
					Logger.WithField("task", taskName).WithError(err).Warn("periodic task failed")
				}
			}
		}
	}()

	return done
}
