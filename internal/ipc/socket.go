package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const socketName = "interpret.sock"

// ErrAlreadyRunning means another owner answered on the runtime socket.
var ErrAlreadyRunning = errors.New("interpret is already running")

// RuntimeSocketPath returns $XDG_RUNTIME_DIR/interpret.sock.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, socketName), nil
}

// AcquireOptions tunes stale-socket recovery.
type AcquireOptions struct {
	// ProbeTimeout bounds the status round trip to an existing socket.
	ProbeTimeout time.Duration
	// Retries is the number of extra listen attempts after a stale socket is removed.
	Retries int
	// OnStale runs after a stale socket file is unlinked.
	OnStale func(path string)
}

// Owner is the listening end of the runtime socket held by the relay process.
type Owner struct {
	Listener net.Listener
	Path     string
}

// Release stops listening and unlinks the socket file.
func (o *Owner) Release() error {
	closeErr := o.Listener.Close()
	if err := os.Remove(o.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Join(closeErr, fmt.Errorf("remove socket %s: %w", o.Path, err))
	}
	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		return closeErr
	}
	return nil
}

// Acquire listens on path. A socket file left by a dead owner is removed and
// the listen retried; a live owner yields ErrAlreadyRunning. A socket whose
// probe neither succeeds nor reports "no owner" is left in place.
func Acquire(ctx context.Context, path string, opts AcquireOptions) (*Owner, error) {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 200 * time.Millisecond
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 25 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return &Owner{Listener: listener, Path: path}, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		lastErr = err

		alive, probeErr := Probe(ctx, path, opts.ProbeTimeout)
		switch {
		case alive:
			return nil, ErrAlreadyRunning
		case probeErr != nil:
			return nil, fmt.Errorf("probe existing socket %s: %w", path, probeErr)
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
		if opts.OnStale != nil {
			opts.OnStale(path)
		}
	}

	return nil, fmt.Errorf("acquire socket %s after %d retries: %w", path, opts.Retries, lastErr)
}
