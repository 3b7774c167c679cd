// Package playback speaks text through OpenAI speech synthesis and Pulse.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/interpret/internal/audio"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// SampleRate of OpenAI "pcm" speech output.
	SampleRate = 24000

	DefaultModel = string(openai.TTSModel1)
	DefaultVoice = string(openai.VoiceAlloy)

	synthTimeout = 30 * time.Second
	queueSize    = 16
)

// ErrMissingAPIKey reports that no OpenAI key is available for synthesis.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

// Config selects the speech model and credentials.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
}

type playFunc func(ctx context.Context, samples []int16, sampleRate int, mediaName string) error

type utterance struct {
	text         string
	languageCode string
}

// Speaker plays utterances one at a time, in the order Play received them.
type Speaker struct {
	client *openai.Client
	model  string
	voice  string
	logger *slog.Logger
	play   playFunc

	queue  chan utterance
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, logger *slog.Logger) (*Speaker, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = base
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	voice := strings.TrimSpace(cfg.Voice)
	if voice == "" {
		voice = DefaultVoice
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Speaker{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		voice:  voice,
		logger: logger,
		play:   audio.PlayPCM,
		queue:  make(chan utterance, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	s.wg.Add(1)
	go s.worker()
	return s, nil
}

// Play queues text for synthesis and returns immediately. Failures are logged.
// OpenAI speech models infer the spoken language from the text, so
// languageCode only labels the utterance in logs. A full queue drops text.
func (s *Speaker) Play(text, languageCode string) {
	text = strings.TrimSpace(text)
	if text == "" || s.ctx.Err() != nil {
		return
	}

	select {
	case <-s.ctx.Done():
	case s.queue <- utterance{text: text, languageCode: languageCode}:
	default:
		s.logger.Warn("playback queue full, dropping utterance", "language", languageCode, "chars", len(text))
	}
}

func (s *Speaker) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case u := <-s.queue:
			if s.ctx.Err() != nil {
				return
			}
			started := time.Now()
			if err := s.speak(s.ctx, u.text); err != nil {
				s.logger.Warn("playback failed", "language", u.languageCode, "error", err)
				continue
			}
			s.logger.Debug("playback finished", "language", u.languageCode, "chars", len(u.text), "elapsed_ms", time.Since(started).Milliseconds())
		}
	}
}

// Close cancels queued and in-flight playback and waits for it to finish.
func (s *Speaker) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Speaker) speak(ctx context.Context, text string) error {
	synthCtx, cancel := context.WithTimeout(ctx, synthTimeout)
	defer cancel()

	resp, err := s.client.CreateSpeech(synthCtx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Close()

	raw, err := io.ReadAll(resp)
	if err != nil {
		return fmt.Errorf("read speech audio: %w", err)
	}
	samples := audio.DecodePCM16LE(raw)
	if len(samples) == 0 {
		return errors.New("synthesized speech is empty")
	}
	return s.play(ctx, samples, SampleRate, "interpret playback")
}
