package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Veraticus/spice-split/internal/common"
	"github.com/Veraticus/spice-split/internal/engine"
	"github.com/Veraticus/spice-split/internal/model"
	"github.com/Veraticus/spice-split/internal/storage"
)

// processRequest is the body of POST /api/process.
type processRequest struct {
	Message         string          `json:"message"`
	CurrentUser     string          `json:"currentUser"`
	CurrentDate     string          `json:"currentDate"`
	LastTransaction json.RawMessage `json:"lastTransaction"`
}

// processResponse wraps every pipeline answer, including fallbacks.
type processResponse struct {
	Data    model.Response `json:"data"`
	Success bool           `json:"success"`
}

func (s *Server) process(c *fiber.Ctx) error {
	var body processRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "JSON inválido"})
	}

	req := engine.Request{
		Message:     strings.TrimSpace(body.Message),
		CurrentUser: strings.TrimSpace(body.CurrentUser),
		CurrentDate: s.parseDate(body.CurrentDate),
		Correction:  s.parseCorrection(body.LastTransaction),
	}
	if err := engine.Validate(req); errors.Is(err, common.ErrEmptyMessage) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Mensagem vazia"})
	}

	ctx := c.UserContext()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	out := s.processor.Process(ctx, req)
	resp := model.ToResponse(out.Result)

	s.record(c, req, out, resp, time.Since(start))
	return c.JSON(processResponse{Success: true, Data: resp})
}

// parseCorrection is best effort: a broken prior transaction only loses
// correction context.
func (s *Server) parseCorrection(raw json.RawMessage) *model.Draft {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	d, err := s.normalizer.ParseDraft(raw)
	if err != nil {
		s.logger.Warn("ignoring unreadable lastTransaction", "error", err)
		return nil
	}
	return d
}

func (s *Server) parseDate(text string) time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}
	}
	for _, layout := range []string{model.DateLayout, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, text, s.location); err == nil {
			return model.DateOnly(t.In(s.location))
		}
	}
	s.logger.Warn("ignoring unreadable currentDate", "currentDate", text)
	return time.Time{}
}

func (s *Server) record(c *fiber.Ctx, req engine.Request, out engine.Outcome, resp model.Response, latency time.Duration) {
	if s.recorder == nil {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("failed to encode audit response", "error", err)
		return
	}
	entry := &storage.Entry{
		Message:     req.Message,
		CurrentUser: req.CurrentUser,
		Stage:       string(out.Stage),
		Action:      string(out.Result.Action),
		Model:       out.Model,
		Response:    payload,
		Attempts:    out.Attempts,
		Latency:     latency,
	}
	if err := s.recorder.Record(c.UserContext(), entry); err != nil {
		s.logger.Warn("failed to record audit entry", "error", err)
	}
}
