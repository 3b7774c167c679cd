// Package web exposes the pipeline to a browser UI over HTTP and a
// websocket event feed.
package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rbright/interpret/internal/fault"
	"github.com/rbright/interpret/internal/languages"
	"github.com/rbright/interpret/internal/pipeline"
	"github.com/rbright/interpret/internal/session"
)

const requestTimeout = 5 * time.Second

// Controller is the pipeline surface the gateway drives.
type Controller interface {
	StartCapture(ctx context.Context, sourceCode string) error
	StopCapture(ctx context.Context) error
	SetSourceLanguage(ctx context.Context, code string) error
	SetTargetLanguage(ctx context.Context, code string) error
	Status(ctx context.Context) (pipeline.Status, error)
	Play(ctx context.Context, pane pipeline.Pane) error
}

type Server struct {
	app    *fiber.App
	ctrl   Controller
	hub    *Hub
	logger *slog.Logger
}

type startRequest struct {
	Source string `json:"source"`
}

type languageRequest struct {
	Code string `json:"code"`
}

type playbackRequest struct {
	Pane string `json:"pane"`
}

func New(ctrl Controller, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "interpret",
			DisableStartupMessage: true,
		}),
		ctrl:   ctrl,
		hub:    hub,
		logger: logger,
	}
	s.routes()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	s.logger.Info("web gateway listening", "addr", ln.Addr().String())
	select {
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	api := s.app.Group("/api")
	api.Get("/languages", func(c *fiber.Ctx) error {
		return c.JSON(languages.All())
	})
	api.Get("/status", s.status)
	api.Post("/capture/start", s.startCapture)
	api.Post("/capture/stop", s.stopCapture)
	api.Put("/languages/source", s.setLanguage(s.ctrl.SetSourceLanguage))
	api.Put("/languages/target", s.setLanguage(s.ctrl.SetTargetLanguage))
	api.Post("/playback", s.playback)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.stream))
}

func (s *Server) status(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	status, err := s.ctrl.Status(ctx)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(status)
}

func (s *Server) startCapture(c *fiber.Ctx) error {
	var req startRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	if err := s.ctrl.StartCapture(ctx, req.Source); err != nil {
		return s.fail(c, err)
	}
	return s.status(c)
}

func (s *Server) stopCapture(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := s.ctrl.StopCapture(ctx); err != nil {
		return s.fail(c, err)
	}
	return s.status(c)
}

func (s *Server) setLanguage(set func(context.Context, string) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req languageRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if strings.TrimSpace(req.Code) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "`code` field is required"})
		}

		ctx, cancel := requestContext(c)
		defer cancel()
		if err := set(ctx, req.Code); err != nil {
			return s.fail(c, err)
		}
		return s.status(c)
	}
}

func (s *Server) playback(c *fiber.Ctx) error {
	var req playbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	if err := s.ctrl.Play(ctx, pipeline.Pane(req.Pane)); err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true, "pane": req.Pane})
}

func (s *Server) stream(conn *websocket.Conn) {
	defer conn.Close()

	events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()
	s.logger.Debug("websocket client connected", "clients", s.hub.Clients())

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			s.logger.Debug("websocket client disconnected")
			return
		case payload, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	code := statusCode(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("web request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, languages.ErrUnsupported):
		return fiber.StatusBadRequest
	case errors.Is(err, session.ErrActive):
		return fiber.StatusConflict
	case errors.Is(err, pipeline.ErrPlaybackDisabled):
		return fiber.StatusConflict
	case errors.Is(err, pipeline.ErrStopped):
		return fiber.StatusServiceUnavailable
	case fault.KindOf(err) == fault.UnsupportedEnvironment:
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusUnprocessableEntity
	}
}

func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}
