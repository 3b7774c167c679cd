package recognize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"
)

const DefaultDeepgramEndpoint = "wss://api.deepgram.com/v1/listen"

// DeepgramConfig configures the Deepgram live transcription backend.
type DeepgramConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	DialTimeout time.Duration
	DebugSink   io.Writer
}

// Deepgram streams audio to the Deepgram live listen websocket.
type Deepgram struct {
	cfg DeepgramConfig
}

func NewDeepgram(cfg DeepgramConfig) *Deepgram {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultDeepgramEndpoint
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return &Deepgram{cfg: cfg}
}

func (d *Deepgram) Name() string { return "deepgram" }

func (d *Deepgram) Check() error {
	if strings.TrimSpace(d.cfg.APIKey) == "" {
		return errors.New("DEEPGRAM_API_KEY is not set")
	}
	if _, err := url.Parse(d.cfg.Endpoint); err != nil {
		return fmt.Errorf("parse deepgram endpoint: %w", err)
	}
	return nil
}

// listenURL builds the streaming query for one stream configuration.
func (d *Deepgram) listenURL(cfg StreamConfig) (string, error) {
	u, err := url.Parse(d.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse deepgram endpoint: %w", err)
	}

	q := u.Query()
	q.Set("encoding", "linear16")
	q.Set("sample_rate", "16000")
	q.Set("channels", "1")
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	q.Set("punctuate", strconv.FormatBool(cfg.AutomaticPunctuation))
	if lang := strings.TrimSpace(cfg.LanguageCode); lang != "" {
		q.Set("language", lang)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = strings.TrimSpace(d.cfg.Model)
	}
	if model != "" {
		q.Set("model", model)
	}
	for _, phrase := range cfg.Phrases {
		text := strings.TrimSpace(phrase.Phrase)
		if text == "" {
			continue
		}
		q.Add("keywords", fmt.Sprintf("%s:%s", text, strconv.FormatFloat(float64(phrase.Boost), 'f', -1, 32)))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *Deepgram) Dial(ctx context.Context, cfg StreamConfig) (Conn, error) {
	target, err := d.listenURL(cfg)
	if err != nil {
		return nil, err
	}

	dialer := gws.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.cfg.DialTimeout,
	}
	header := http.Header{
		"Authorization": {"Token " + d.cfg.APIKey},
	}
	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial deepgram: %w (http %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial deepgram: %w", err)
	}
	return &deepgramConn{conn: conn, debugSink: d.cfg.DebugSink}, nil
}

type deepgramMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type deepgramConn struct {
	conn      *gws.Conn
	debugSink io.Writer

	writeMu    sync.Mutex
	closedSend bool
	closeOnce  sync.Once
}

func (c *deepgramConn) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closedSend {
		return errors.New("stream already closed for sending")
	}
	return c.conn.WriteMessage(gws.BinaryMessage, chunk)
}

// CloseSend asks Deepgram to flush pending results and close the socket.
func (c *deepgramConn) CloseSend() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closedSend {
		return nil
	}
	c.closedSend = true
	return c.conn.WriteMessage(gws.TextMessage, []byte(`{"type":"CloseStream"}`))
}

func (c *deepgramConn) Recv() (Response, error) {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if gws.IsCloseError(err, gws.CloseNormalClosure) {
				return Response{}, io.EOF
			}
			return Response{}, err
		}

		if sink := c.debugSink; sink != nil {
			_, _ = sink.Write(append(append([]byte(nil), payload...), '\n'))
		}

		var msg deepgramMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return Response{}, fmt.Errorf("decode deepgram message: %w", err)
		}
		// Metadata, SpeechStarted and UtteranceEnd carry no transcript.
		if msg.Type != "" && msg.Type != "Results" {
			continue
		}
		if len(msg.Channel.Alternatives) == 0 {
			continue
		}
		return Response{Results: []Result{{
			Text:  msg.Channel.Alternatives[0].Transcript,
			Final: msg.IsFinal,
		}}}, nil
	}
}

func (c *deepgramConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}
