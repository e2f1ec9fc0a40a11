// Package server exposes the message pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Veraticus/spice-split/internal/engine"
	"github.com/Veraticus/spice-split/internal/normalize"
	"github.com/Veraticus/spice-split/internal/storage"
)

// Processor runs one message through the pipeline.
type Processor interface {
	Process(ctx context.Context, req engine.Request) engine.Outcome
}

// Recorder stores processed messages for auditing.
type Recorder interface {
	Record(ctx context.Context, e *storage.Entry) error
}

// Options configures a Server. Recorder is optional. RequestTimeout
// bounds each pipeline run; zero leaves it unbounded.
type Options struct {
	Processor      Processor
	Normalizer     *normalize.Normalizer
	Recorder       Recorder
	Logger         *slog.Logger
	Location       *time.Location
	BodyLimit      int
	RequestTimeout time.Duration
}

// Server is the fiber application serving the chat front end.
type Server struct {
	app        *fiber.App
	processor  Processor
	normalizer *normalize.Normalizer
	recorder   Recorder
	logger     *slog.Logger
	location   *time.Location
	timeout    time.Duration
}

// New builds the server and registers its routes.
func New(opts Options) *Server {
	s := &Server{
		processor:  opts.Processor,
		normalizer: opts.Normalizer,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
		location:   opts.Location,
		timeout:    opts.RequestTimeout,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.normalizer == nil {
		s.normalizer = normalize.New(normalize.Options{})
	}

	cfg := fiber.Config{
		AppName:               "spice",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	}
	if opts.BodyLimit > 0 {
		cfg.BodyLimit = opts.BodyLimit
	}
	s.app = fiber.New(cfg)

	s.app.Use(s.requestLogger)
	s.app.Get("/healthz", healthz)
	s.app.Post("/api/process", s.process)
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves on addr until ctx is done, then shuts down gracefully,
// giving in-flight requests up to shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()
	s.logger.Info("HTTP server listening", "addr", addr)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Gracefully shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return <-errCh
}

func healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	requestID := c.Get(fiber.HeaderXRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(fiber.HeaderXRequestID, requestID)

	err := c.Next()
	if err != nil {
		// Let the error handler write the status before it is logged.
		if handlerErr := s.errorHandler(c, err); handlerErr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	s.logger.Debug("request handled",
		"request_id", requestID,
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start))
	return nil
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Erro interno"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		s.logger.Error("handler error", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
