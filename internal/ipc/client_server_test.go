package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendRoundTrip(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "interpret.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			require.Equal(t, "source", req.Command)
			require.Equal(t, "fr-FR", req.Argument)
			return Response{OK: true, State: "listening", Message: "source language set", Payload: json.RawMessage(`{"code":"fr-FR"}`)}
		}))
	}()

	resp, err := Send(context.Background(), socketPath, Request{Command: "source", Argument: "fr-FR"}, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "listening", resp.State)
	require.Equal(t, "source language set", resp.Message)
	require.JSONEq(t, `{"code":"fr-FR"}`, string(resp.Payload))

	cancel()
	require.NoError(t, <-serveDone)
}

func TestSendDecodeResponseError(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "interpret.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		_, _ = reader.ReadBytes('\n')
		_, _ = conn.Write([]byte("not-json\n"))
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: "status"}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestSendReadResponseError(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "interpret.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		_ = conn.Close()
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: "status"}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read response")
}

func TestServeDecodeRequestErrorResponse(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "interpret.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, _ Request) Response {
			return Response{OK: true}
		}))
	}()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")

	cancel()
	require.NoError(t, <-serveDone)
}

func TestProbe(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "interpret.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			if req.Command == "status" {
				return Response{OK: true, State: "idle"}
			}
			return Response{OK: false, Error: "bad"}
		}))
	}()

	alive, probeErr := Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, probeErr)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-serveDone)

	alive, probeErr = Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, probeErr)
	require.False(t, alive)
}

func TestSendReportsNoOwner(t *testing.T) {
	runtimeDir := t.TempDir()

	_, err := Send(context.Background(), filepath.Join(runtimeDir, "missing.sock"), Request{Command: "status"}, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNoOwner)

	stale := filepath.Join(runtimeDir, "stale.sock")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o600))
	_, err = Send(context.Background(), stale, Request{Command: "status"}, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNoOwner)
}

func TestSendRejectsEmptyCommand(t *testing.T) {
	_, err := Send(context.Background(), filepath.Join(t.TempDir(), "interpret.sock"), Request{Command: "  "}, 100*time.Millisecond)
	require.ErrorContains(t, err, "request command is empty")
}

func TestServeRejectsEmptyAndOversizedRequests(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "interpret.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handled := make(chan Request, 4)
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			handled <- req
			return Response{OK: true}
		}))
	}()

	roundTrip := func(payload string) Response {
		conn, err := net.Dial("unix", socketPath)
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Write([]byte(payload))
		require.NoError(t, err)

		line, err := bufio.NewReader(conn).ReadBytes('\n')
		require.NoError(t, err)
		var resp Response
		require.NoError(t, json.Unmarshal(line, &resp))
		return resp
	}

	resp := roundTrip(`{"command":" "}` + "\n")
	require.False(t, resp.OK)
	require.Equal(t, "request command is empty", resp.Error)

	resp = roundTrip(`{"command":"` + strings.Repeat("x", MaxRequestBytes) + `"}` + "\n")
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "exceeds")

	resp = roundTrip(`{"command":" status "}` + "\n")
	require.True(t, resp.OK)
	require.Equal(t, "status", (<-handled).Command)
	require.Empty(t, handled)

	cancel()
	require.NoError(t, <-serveDone)
}
