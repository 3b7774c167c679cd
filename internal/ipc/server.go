package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	// MaxRequestBytes bounds one request line.
	MaxRequestBytes = 4096

	readTimeout    = 2 * time.Second
	handlerTimeout = 10 * time.Second
)

// Handler processes one control request for the owner process.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts unix-socket clients until ctx is done or listener closes.
// Each connection carries exactly one request line and one response line.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()
			_ = json.NewEncoder(c).Encode(serveConn(ctx, c, handler))
		}(conn)
	}
}

func serveConn(ctx context.Context, c net.Conn, handler Handler) Response {
	_ = c.SetReadDeadline(time.Now().Add(readTimeout))

	reader := bufio.NewReader(io.LimitReader(c, MaxRequestBytes+1))
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if len(line) > MaxRequestBytes {
			return Response{OK: false, Error: fmt.Sprintf("read request: exceeds %d bytes", MaxRequestBytes)}
		}
		return Response{OK: false, Error: fmt.Sprintf("read request: %v", err)}
	}
	_ = c.SetReadDeadline(time.Time{})

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Response{OK: false, Error: fmt.Sprintf("decode request: %v", err)}
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		return Response{OK: false, Error: "request command is empty"}
	}

	reqCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()
	return handler.Handle(reqCtx, req)
}
