package recognize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
)

type openResult[T any] struct {
	value T
	err   error
}

// openWithTimeout bounds stream-open latency when backend RPCs stall.
func openWithTimeout[T any](ctx context.Context, timeout time.Duration, open func() (T, error)) (T, error) {
	if timeout <= 0 {
		return open()
	}

	resultCh := make(chan openResult[T], 1)
	go func() {
		value, err := open()
		resultCh <- openResult[T]{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-timer.C:
		return zero, fmt.Errorf("timed out after %s", timeout)
	case result := <-resultCh:
		return result.value, result.err
	}
}

// runWithTimeout bounds one blocking stream operation (for example the initial Send).
func runWithTimeout(ctx context.Context, timeout time.Duration, call func() error) error {
	_, err := openWithTimeout(ctx, timeout, func() (struct{}, error) {
		return struct{}{}, call()
	})
	return err
}

// waitForReady blocks until the gRPC connection enters Ready or fails.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}
