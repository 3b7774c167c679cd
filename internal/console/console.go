// Package console renders transcript and translation updates to a terminal.
package console

import (
	"fmt"
	"io"

	"github.com/rbright/interpret/internal/fault"
	"github.com/rbright/interpret/internal/fsm"
	"github.com/rbright/interpret/internal/languages"
	"github.com/rbright/interpret/internal/pipeline"
)

// TranslationErrorText replaces the translation pane after a failed call.
const TranslationErrorText = "Translation error occurred. Please try again."

// Renderer writes one line per update. It runs on the pipeline goroutine.
type Renderer struct {
	pipeline.NopListener

	out    io.Writer
	source languages.Language
	target languages.Language
}

func New(out io.Writer, source, target languages.Language) *Renderer {
	return &Renderer{out: out, source: source, target: target}
}

func (r *Renderer) OnTranscript(text string) {
	r.printf("%s › %s\n", r.source.Code, text)
}

func (r *Renderer) OnTranslation(text string) {
	r.printf("%s » %s\n", r.target.Code, text)
}

func (r *Renderer) OnTranslating(active bool) {
	if active {
		r.printf("Translating...\n")
	}
}

func (r *Renderer) OnError(kind fault.Kind, detail string) {
	switch kind {
	case fault.TranslationFailed, fault.InvalidResponse:
		r.printf("%s » %s\n", r.target.Code, TranslationErrorText)
	case fault.UnsupportedEnvironment:
		r.printf("speech recognition unavailable: %s\n", detail)
	default:
		r.printf("speech recognition error: %s\n", detail)
	}
}

func (r *Renderer) OnStatus(state fsm.State) {
	r.printf("[%s]\n", state)
}

func (r *Renderer) OnLanguages(source, target languages.Language) {
	r.source = source
	r.target = target
	r.printf("[%s → %s]\n", source.Name, target.Name)
}

func (r *Renderer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}
