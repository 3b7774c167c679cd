package audio

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaptureOnPCMChunkingAndStopFlushesPending(t *testing.T) {
	capture := newCapture(Device{}, 8)

	input := make([]byte, chunkSizeBytes+111)
	for i := range input {
		input[i] = byte(i % 255)
	}

	n, err := capture.onPCM(input)
	require.NoError(t, err)
	require.Equal(t, len(input), n)
	require.Equal(t, int64(len(input)), capture.BytesCaptured())

	firstChunk := <-capture.Chunks()
	require.Len(t, firstChunk, chunkSizeBytes)
	require.Equal(t, input[:chunkSizeBytes], firstChunk)

	require.NoError(t, capture.Stop())

	remaining, ok := <-capture.Chunks()
	require.True(t, ok)
	require.Equal(t, input[chunkSizeBytes:], remaining)

	_, ok = <-capture.Chunks()
	require.False(t, ok)
}

func TestCaptureDropsOldestChunkWhenConsumerLags(t *testing.T) {
	capture := newCapture(Device{}, 2)

	for i := 0; i < 4; i++ {
		chunk := make([]byte, chunkSizeBytes)
		chunk[0] = byte(i)
		_, err := capture.onPCM(chunk)
		require.NoError(t, err)
	}

	require.Equal(t, int64(2), capture.Dropped())
	require.Equal(t, byte(2), (<-capture.Chunks())[0])
	require.Equal(t, byte(3), (<-capture.Chunks())[0])
	require.Equal(t, int64(4*chunkSizeBytes), capture.BytesCaptured())
}

func TestCaptureOnPCMReturnsEOFWhenStopped(t *testing.T) {
	capture := newCapture(Device{}, 1)
	require.NoError(t, capture.Stop())

	n, err := capture.onPCM([]byte{1, 2, 3})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(0), capture.BytesCaptured())
}

func TestCaptureOnPCMIgnoresEmptyBuffer(t *testing.T) {
	capture := newCapture(Device{}, 1)
	n, err := capture.onPCM(nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCaptureStopIsIdempotent(t *testing.T) {
	capture := newCapture(Device{ID: "mic-1", Description: "Mic"}, 1)
	require.Equal(t, "mic-1", capture.Device().ID)

	capture.Close()
	require.NoError(t, capture.Stop())
	_, ok := <-capture.Chunks()
	require.False(t, ok)
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	called := false
	writer := writerFunc(func(b []byte) (int, error) {
		called = true
		require.Equal(t, []byte{1, 2, 3}, b)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, called)
}

func TestDecodePCM16LE(t *testing.T) {
	require.Equal(t, []int16{1, -1, 256}, DecodePCM16LE([]byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x01, 0x07}))
	require.Empty(t, DecodePCM16LE(nil))
}

func TestPlayPCMEmptyIsNoop(t *testing.T) {
	require.NoError(t, PlayPCM(context.Background(), nil, 24000, "test"))
}

func TestPlayPCMRejectsInvalidRate(t *testing.T) {
	err := PlayPCM(context.Background(), []int16{1}, 0, "test")
	require.Error(t, err)
	require.Contains(t, err.Error(), "sample rate")
}

func TestPlayPCMHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, PlayPCM(ctx, []int16{1}, 24000, "test"), context.Canceled)
}
