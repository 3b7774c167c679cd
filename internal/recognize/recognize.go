// Package recognize opens continuous speech recognition streams fed by live audio.
package recognize

import (
	"context"
	"errors"
)

// ErrUnsupportedEnvironment reports that no recognition capability is available.
var ErrUnsupportedEnvironment = errors.New("speech recognition is not available in this environment")

// SpeechPhrase is one boosted vocabulary hint.
type SpeechPhrase struct {
	Phrase string
	Boost  float32
}

// StreamConfig controls one recognition stream.
type StreamConfig struct {
	LanguageCode         string
	Model                string
	AutomaticPunctuation bool
	Continuous           bool
	InterimResults       bool
	Phrases              []SpeechPhrase
}

// Fragment is one recognized result, interim or final.
type Fragment struct {
	Text  string
	Final bool
}

type EventKind int

const (
	// EventResult carries every fragment of the stream so far, in arrival order.
	EventResult EventKind = iota + 1
	// EventEnded reports a natural end or the completion of Stop.
	EventEnded
	// EventError reports a hard failure.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one notification from an open stream.
type Event struct {
	Kind      EventKind
	Fragments []Fragment
	Err       error
}

// Stream is one open recognition stream.
//
// Events closes after exactly one terminal event (EventEnded or EventError).
// Callers must drain Events until it closes. Stop is idempotent and always
// leads to EventEnded.
type Stream interface {
	Events() <-chan Event
	Stop() error
}

// Recognizer opens recognition streams.
type Recognizer interface {
	// Check returns an error wrapping ErrUnsupportedEnvironment when streams cannot be opened.
	Check(context.Context) error
	Open(context.Context, StreamConfig) (Stream, error)
}

// AudioCapture is a live PCM chunk source (16 kHz mono s16le).
type AudioCapture interface {
	Chunks() <-chan []byte
	Stop() error
}

// AudioSource starts microphone captures.
type AudioSource interface {
	Check(context.Context) error
	Start(context.Context) (AudioCapture, error)
}

// Result is one backend recognition hypothesis.
type Result struct {
	Text  string
	Final bool
}

// Response is one backend message.
type Response struct {
	Results []Result
}

// Backend dials speech recognition services.
type Backend interface {
	Name() string
	// Check validates credentials and configuration without dialing.
	Check() error
	Dial(context.Context, StreamConfig) (Conn, error)
}

// Conn is one backend stream connection.
//
// Recv returns io.EOF when the service ended the stream on its own
// (end of audio, duration limits) rather than failing.
type Conn interface {
	SendAudio([]byte) error
	Recv() (Response, error)
	CloseSend() error
	Close() error
}
