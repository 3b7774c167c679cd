package recognize

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLiveCheckReportsUnsupportedEnvironment(t *testing.T) {
	err := NewLive(nil, nil, nil).Check(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedEnvironment)

	err = NewLive(&fakeSource{}, &fakeBackend{checkErr: errors.New("missing key")}, nil).Check(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedEnvironment)
	require.Contains(t, err.Error(), "missing key")

	err = NewLive(&fakeSource{checkErr: errors.New("no devices")}, &fakeBackend{}, nil).Check(context.Background())
	require.ErrorIs(t, err, ErrUnsupportedEnvironment)
	require.Contains(t, err.Error(), "no devices")

	require.NoError(t, NewLive(&fakeSource{}, &fakeBackend{}, nil).Check(context.Background()))
}

func TestLiveOpenDialFailure(t *testing.T) {
	source := &fakeSource{}
	live := NewLive(source, &fakeBackend{dialErr: errors.New("refused")}, nil)

	_, err := live.Open(context.Background(), StreamConfig{LanguageCode: "en-US"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "refused")
	require.Equal(t, int32(0), source.starts.Load())
}

func TestLiveOpenCaptureFailureClosesConn(t *testing.T) {
	conn := newFakeConn(io.EOF, true)
	live := NewLive(&fakeSource{startErr: errors.New("busy")}, &fakeBackend{conn: conn}, nil)

	_, err := live.Open(context.Background(), StreamConfig{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "busy")
	require.True(t, conn.isClosed())
}

func TestLiveStreamResultsThenNaturalEnd(t *testing.T) {
	conn := newFakeConn(io.EOF, true)
	source := &fakeSource{}
	live := NewLive(source, &fakeBackend{conn: conn}, nil)

	stream, err := live.Open(context.Background(), StreamConfig{LanguageCode: "es-ES"})
	require.NoError(t, err)

	source.capture.chunks <- []byte{1, 2}
	source.capture.chunks <- nil
	conn.responses <- Response{Results: []Result{{Text: "hola"}}}
	conn.responses <- Response{Results: []Result{{Text: "hola mundo", Final: true}}}
	conn.finish()

	events := drain(t, stream)
	require.Len(t, events, 3)
	require.Equal(t, EventResult, events[0].Kind)
	require.Equal(t, []Fragment{{Text: "hola"}}, events[0].Fragments)
	require.Equal(t, []Fragment{{Text: "hola mundo", Final: true}}, events[1].Fragments)
	require.Equal(t, EventEnded, events[2].Kind)
	require.True(t, source.capture.isStopped())
	require.Eventually(t, func() bool { return conn.chunkCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestLiveStreamStopFlushesAndEnds(t *testing.T) {
	conn := newFakeConn(io.EOF, true)
	source := &fakeSource{}
	stream, err := NewLive(source, &fakeBackend{conn: conn}, nil).Open(context.Background(), StreamConfig{})
	require.NoError(t, err)

	require.NoError(t, stream.Stop())
	require.NoError(t, stream.Stop())

	events := drain(t, stream)
	require.Len(t, events, 1)
	require.Equal(t, EventEnded, events[0].Kind)
	require.Equal(t, int32(1), conn.closeSends.Load())
}

func TestLiveStreamStopForcesEndAfterGrace(t *testing.T) {
	conn := newFakeConn(io.EOF, false)
	live := NewLive(&fakeSource{}, &fakeBackend{conn: conn}, nil)
	live.stopGrace = 30 * time.Millisecond

	stream, err := live.Open(context.Background(), StreamConfig{})
	require.NoError(t, err)
	require.NoError(t, stream.Stop())

	events := drain(t, stream)
	require.Len(t, events, 1)
	require.Equal(t, EventEnded, events[0].Kind)
	require.True(t, conn.isClosed())
}

func TestLiveStreamHardFailure(t *testing.T) {
	conn := newFakeConn(errors.New("network down"), true)
	stream, err := NewLive(&fakeSource{}, &fakeBackend{conn: conn}, nil).Open(context.Background(), StreamConfig{})
	require.NoError(t, err)

	conn.finish()

	events := drain(t, stream)
	require.Len(t, events, 1)
	require.Equal(t, EventError, events[0].Kind)
	require.EqualError(t, events[0].Err, "network down")
}

func TestEventKindString(t *testing.T) {
	require.Equal(t, "result", EventResult.String())
	require.Equal(t, "ended", EventEnded.String())
	require.Equal(t, "error", EventError.String())
	require.Equal(t, "unknown", EventKind(0).String())
}

func drain(t *testing.T, stream Stream) []Event {
	t.Helper()

	var events []Event
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-stream.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("stream did not close; events so far: %+v", events)
		}
	}
}

func TestLiveStreamLogsDroppedAudio(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	conn := newFakeConn(io.EOF, true)
	source := &fakeSource{}
	stream, err := NewLive(source, &fakeBackend{conn: conn}, logger).Open(context.Background(), StreamConfig{})
	require.NoError(t, err)

	source.capture.dropped.Store(3)
	require.NoError(t, stream.Stop())
	drain(t, stream)

	require.Contains(t, logs.String(), "audio chunks dropped")
	require.Contains(t, logs.String(), "dropped=3")
}

type fakeBackend struct {
	checkErr error
	dialErr  error
	conn     *fakeConn
}

func (b *fakeBackend) Name() string { return "fake" }
func (b *fakeBackend) Check() error { return b.checkErr }
func (b *fakeBackend) Dial(context.Context, StreamConfig) (Conn, error) {
	if b.dialErr != nil {
		return nil, b.dialErr
	}
	return b.conn, nil
}

type fakeConn struct {
	responses chan Response
	endErr    error
	// closeSendEnds makes CloseSend finish the response stream.
	closeSendEnds bool

	finishOnce sync.Once
	closeOnce  sync.Once
	closed     chan struct{}
	closeSends atomic.Int32

	mu     sync.Mutex
	chunks [][]byte
}

func newFakeConn(endErr error, closeSendEnds bool) *fakeConn {
	return &fakeConn{
		responses:     make(chan Response, 16),
		endErr:        endErr,
		closeSendEnds: closeSendEnds,
		closed:        make(chan struct{}),
	}
}

func (c *fakeConn) finish() {
	c.finishOnce.Do(func() { close(c.responses) })
}

func (c *fakeConn) SendAudio(chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, chunk)
	return nil
}

func (c *fakeConn) chunkCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.chunks)
}

func (c *fakeConn) Recv() (Response, error) {
	select {
	case resp, ok := <-c.responses:
		if !ok {
			return Response{}, c.endErr
		}
		return resp, nil
	case <-c.closed:
		return Response{}, errors.New("use of closed connection")
	}
}

func (c *fakeConn) CloseSend() error {
	c.closeSends.Add(1)
	if c.closeSendEnds {
		c.finish()
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fakeSource struct {
	checkErr error
	startErr error
	starts   atomic.Int32
	capture  *fakeCapture
}

func (s *fakeSource) Check(context.Context) error { return s.checkErr }

func (s *fakeSource) Start(context.Context) (AudioCapture, error) {
	s.starts.Add(1)
	if s.startErr != nil {
		return nil, s.startErr
	}
	s.capture = &fakeCapture{chunks: make(chan []byte, 16)}
	return s.capture, nil
}

type fakeCapture struct {
	chunks  chan []byte
	once    sync.Once
	stopped atomic.Bool
	dropped atomic.Int64
}

func (c *fakeCapture) Dropped() int64 { return c.dropped.Load() }

func (c *fakeCapture) Chunks() <-chan []byte { return c.chunks }

func (c *fakeCapture) Stop() error {
	c.once.Do(func() {
		c.stopped.Store(true)
		close(c.chunks)
	})
	return nil
}

func (c *fakeCapture) isStopped() bool { return c.stopped.Load() }
