package indicator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rbright/interpret/internal/audio"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueError
)

const (
	cueSampleRate = 16000
	cueVolume     = 0.18
	cueGap        = 22 * time.Millisecond
	cueMaxRamp    = 5 * time.Millisecond
)

type tone struct {
	hz  float64
	dur time.Duration
}

// cueTones: rising pair on start, a single low tone on stop, falling pair on error.
var cueTones = map[cueKind][]tone{
	cueStart: {{hz: 880, dur: 70 * time.Millisecond}, {hz: 1175, dur: 70 * time.Millisecond}},
	cueStop:  {{hz: 620, dur: 120 * time.Millisecond}},
	cueError: {{hz: 480, dur: 75 * time.Millisecond}, {hz: 360, dur: 90 * time.Millisecond}},
}

var cueBank = renderBank(cueTones)

func renderBank(tones map[cueKind][]tone) map[cueKind][]int16 {
	bank := make(map[cueKind][]int16, len(tones))
	for kind, parts := range tones {
		bank[kind] = renderCue(parts, cueVolume)
	}
	return bank
}

func emitCue(ctx context.Context, kind cueKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	samples, ok := cueBank[kind]
	if !ok || len(samples) == 0 {
		return fmt.Errorf("unknown cue %d", kind)
	}
	return audio.PlayPCM(ctx, samples, cueSampleRate, "interpret indicator cue")
}

// renderCue concatenates tones separated by cueGap of silence.
func renderCue(parts []tone, volume float64) []int16 {
	if len(parts) == 0 {
		return nil
	}
	gap := sampleCount(cueGap)
	var pcm []int16
	for i, part := range parts {
		if i > 0 {
			pcm = append(pcm, make([]int16, gap)...)
		}
		pcm = appendTone(pcm, part, volume)
	}
	return pcm
}

// appendTone writes a sine with a linear attack and release to avoid clicks.
func appendTone(pcm []int16, t tone, volume float64) []int16 {
	n := sampleCount(t.dur)
	if n == 0 || t.hz <= 0 || volume <= 0 {
		return pcm
	}
	ramp := min(max(n/10, 1), sampleCount(cueMaxRamp))
	step := 2 * math.Pi * t.hz / cueSampleRate
	for i := 0; i < n; i++ {
		gain := volume * envelope(i, n, ramp)
		pcm = append(pcm, int16(math.Round(math.Sin(step*float64(i))*gain*math.MaxInt16)))
	}
	return pcm
}

func envelope(i, n, ramp int) float64 {
	return min(1, float64(i)/float64(ramp), float64(n-1-i)/float64(ramp))
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
