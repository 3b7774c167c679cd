package pipeline

import (
	"github.com/rbright/interpret/internal/fault"
	"github.com/rbright/interpret/internal/fsm"
	"github.com/rbright/interpret/internal/languages"
)

// Listener receives pipeline output on the event goroutine. Implementations
// must not block.
type Listener interface {
	OnTranscript(text string)
	OnTranslation(text string)
	OnError(kind fault.Kind, detail string)
	OnTranslating(active bool)
	OnStatus(state fsm.State)
	OnLanguages(source, target languages.Language)
}

// NopListener ignores every notification. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) OnTranscript(string)                               {}
func (NopListener) OnTranslation(string)                              {}
func (NopListener) OnError(fault.Kind, string)                        {}
func (NopListener) OnTranslating(bool)                                {}
func (NopListener) OnStatus(fsm.State)                                {}
func (NopListener) OnLanguages(languages.Language, languages.Language) {}

// Listeners fans notifications out in order.
type Listeners []Listener

func (ls Listeners) OnTranscript(text string) {
	for _, l := range ls {
		l.OnTranscript(text)
	}
}

func (ls Listeners) OnTranslation(text string) {
	for _, l := range ls {
		l.OnTranslation(text)
	}
}

func (ls Listeners) OnError(kind fault.Kind, detail string) {
	for _, l := range ls {
		l.OnError(kind, detail)
	}
}

func (ls Listeners) OnTranslating(active bool) {
	for _, l := range ls {
		l.OnTranslating(active)
	}
}

func (ls Listeners) OnStatus(state fsm.State) {
	for _, l := range ls {
		l.OnStatus(state)
	}
}

func (ls Listeners) OnLanguages(source, target languages.Language) {
	for _, l := range ls {
		l.OnLanguages(source, target)
	}
}
