package indicator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCueBankCoversEveryKind(t *testing.T) {
	for _, kind := range []cueKind{cueStart, cueStop, cueError} {
		require.NotEmpty(t, cueBank[kind], "cue %d", kind)
	}
	require.Empty(t, cueBank[cueKind(99)])
}

func TestAppendToneLength(t *testing.T) {
	got := appendTone(nil, tone{hz: 440, dur: 100 * time.Millisecond}, 0.2)
	require.Len(t, got, sampleCount(100*time.Millisecond))
}

func TestAppendToneSkipsInvalidTone(t *testing.T) {
	prefix := []int16{7}
	require.Equal(t, prefix, appendTone(prefix, tone{hz: 0, dur: 100 * time.Millisecond}, 0.2))
	require.Equal(t, prefix, appendTone(prefix, tone{hz: 440}, 0.2))
	require.Equal(t, prefix, appendTone(prefix, tone{hz: 440, dur: 100 * time.Millisecond}, 0))
}

func TestAppendToneRampsFromSilence(t *testing.T) {
	got := appendTone(nil, tone{hz: 440, dur: 50 * time.Millisecond}, 0.5)
	require.Zero(t, got[0])
	require.Zero(t, got[len(got)-1])
	peak := 0.5 * 32767
	for _, sample := range got {
		require.LessOrEqual(t, int(sample), int(peak)+1)
	}
}

func TestRenderCueInsertsGaps(t *testing.T) {
	single := renderCue([]tone{{hz: 440, dur: 50 * time.Millisecond}}, 0.2)
	double := renderCue([]tone{{hz: 440, dur: 50 * time.Millisecond}, {hz: 440, dur: 50 * time.Millisecond}}, 0.2)
	require.Len(t, double, 2*len(single)+sampleCount(cueGap))
	require.Nil(t, renderCue(nil, 0.2))
}

func TestSampleCount(t *testing.T) {
	require.Equal(t, 0, sampleCount(0))
	require.Equal(t, 400, sampleCount(25*time.Millisecond))
}

func TestEmitCueRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, emitCue(ctx, cueStart), context.Canceled)
}

func TestEmitCueRejectsUnknownKind(t *testing.T) {
	require.ErrorContains(t, emitCue(context.Background(), cueKind(99)), "unknown cue")
}
