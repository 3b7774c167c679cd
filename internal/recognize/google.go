package recognize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
)

const defaultDialTimeout = 5 * time.Second

// GoogleConfig configures the Cloud Speech-to-Text backend.
type GoogleConfig struct {
	// Endpoint overrides the service address (host:port).
	Endpoint string
	// CredentialsFile is a service account JSON file. Empty uses application default credentials.
	CredentialsFile string
	// Insecure dials Endpoint in plaintext without credentials (local emulators).
	Insecure    bool
	DialTimeout time.Duration
	// DebugSink receives one protojson line per response when set.
	DebugSink io.Writer
}

// Google streams audio to Cloud Speech-to-Text StreamingRecognize.
type Google struct {
	cfg GoogleConfig
}

func NewGoogle(cfg GoogleConfig) *Google {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return &Google{cfg: cfg}
}

func (g *Google) Name() string { return "google" }

// Check verifies that credentials can be located.
func (g *Google) Check() error {
	if g.cfg.Insecure {
		if strings.TrimSpace(g.cfg.Endpoint) == "" {
			return errors.New("insecure google recognizer requires an endpoint")
		}
		return nil
	}

	candidates := []string{
		strings.TrimSpace(g.cfg.CredentialsFile),
		strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "gcloud", "application_default_credentials.json"))
	}
	for i, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if i < 2 {
				return fmt.Errorf("google credentials file %q: %w", path, err)
			}
			continue
		}
		return nil
	}
	return errors.New("no Google credentials found (set GOOGLE_APPLICATION_CREDENTIALS or recognizer.google.credentials_file)")
}

// Dial opens one StreamingRecognize RPC and sends its configuration.
func (g *Google) Dial(ctx context.Context, cfg StreamConfig) (Conn, error) {
	client, grpcConn, err := g.newClient(ctx)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	closeAll := func() {
		cancel()
		_ = client.Close()
		if grpcConn != nil {
			_ = grpcConn.Close()
		}
	}

	stream, err := openWithTimeout(ctx, g.cfg.DialTimeout, func() (speechpb.Speech_StreamingRecognizeClient, error) {
		return client.StreamingRecognize(streamCtx)
	})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("open streaming recognizer: %w", err)
	}

	req := googleConfigRequest(cfg)
	if err := runWithTimeout(ctx, g.cfg.DialTimeout, func() error { return stream.Send(req) }); err != nil {
		closeAll()
		return nil, fmt.Errorf("send initial streaming config: %w", err)
	}

	return &googleConn{
		stream:    stream,
		closeAll:  closeAll,
		debugSink: g.cfg.DebugSink,
	}, nil
}

func (g *Google) newClient(ctx context.Context) (*speech.Client, *grpc.ClientConn, error) {
	endpoint := strings.TrimSpace(g.cfg.Endpoint)
	if !g.cfg.Insecure {
		var opts []option.ClientOption
		if endpoint != "" {
			opts = append(opts, option.WithEndpoint(endpoint))
		}
		if path := strings.TrimSpace(g.cfg.CredentialsFile); path != "" {
			opts = append(opts, option.WithCredentialsFile(path))
		}
		client, err := speech.NewClient(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create speech client: %w", err)
		}
		return client, nil, nil
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial speech grpc %q: %w", endpoint, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, g.cfg.DialTimeout)
	defer cancel()
	conn.Connect()
	if err := waitForReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("wait for speech grpc readiness: %w", err)
	}

	client, err := speech.NewClient(ctx, option.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("create speech client: %w", err)
	}
	return client, conn, nil
}

func googleConfigRequest(cfg StreamConfig) *speechpb.StreamingRecognizeRequest {
	languageCode := strings.TrimSpace(cfg.LanguageCode)
	if languageCode == "" {
		languageCode = "en-US"
	}

	recognition := &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            16000,
		AudioChannelCount:          1,
		LanguageCode:               languageCode,
		EnableAutomaticPunctuation: cfg.AutomaticPunctuation,
		Model:                      strings.TrimSpace(cfg.Model),
	}
	for _, phrase := range cfg.Phrases {
		text := strings.TrimSpace(phrase.Phrase)
		if text == "" {
			continue
		}
		recognition.SpeechContexts = append(recognition.SpeechContexts, &speechpb.SpeechContext{
			Phrases: []string{text},
			Boost:   phrase.Boost,
		})
	}

	return &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:          recognition,
				SingleUtterance: !cfg.Continuous,
				InterimResults:  cfg.InterimResults,
			},
		},
	}
}

type googleConn struct {
	stream    speechpb.Speech_StreamingRecognizeClient
	closeAll  func()
	debugSink io.Writer

	mu         sync.Mutex
	closedSend bool
	closeOnce  sync.Once
}

func (c *googleConn) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	c.mu.Lock()
	closed := c.closedSend
	c.mu.Unlock()
	if closed {
		return errors.New("stream already closed for sending")
	}

	return c.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: chunk},
	})
}

func (c *googleConn) Recv() (Response, error) {
	resp, err := c.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) || status.Code(err) == codes.OutOfRange {
			return Response{}, io.EOF
		}
		return Response{}, err
	}

	if sink := c.debugSink; sink != nil {
		if b, err := protojson.Marshal(resp); err == nil {
			_, _ = sink.Write(append(b, '\n'))
		}
	}

	if st := resp.GetError(); st != nil && st.GetCode() != int32(codes.OK) {
		// Stream duration limits surface as OUT_OF_RANGE.
		if codes.Code(st.GetCode()) == codes.OutOfRange {
			return Response{}, io.EOF
		}
		return Response{}, status.ErrorProto(st)
	}

	var out Response
	for _, result := range resp.GetResults() {
		alternatives := result.GetAlternatives()
		if len(alternatives) == 0 {
			continue
		}
		out.Results = append(out.Results, Result{
			Text:  alternatives[0].GetTranscript(),
			Final: result.GetIsFinal(),
		})
	}
	return out, nil
}

func (c *googleConn) CloseSend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closedSend {
		return nil
	}
	c.closedSend = true
	return c.stream.CloseSend()
}

func (c *googleConn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closedSend = true
		c.mu.Unlock()
		c.closeAll()
	})
	return nil
}
