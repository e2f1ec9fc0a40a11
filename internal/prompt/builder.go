// Package prompt renders the instructions and per-message context sent to
// the text understanding providers.
package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Veraticus/spice-split/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Config holds the household facts baked into the system prompt.
type Config struct {
	Participants model.Participants
	// SystemOverride replaces the rendered system prompt when set.
	SystemOverride string
	Categories     []model.Category
	Pets           []string
}

// DefaultConfig returns the household configured out of the box.
func DefaultConfig() Config {
	return Config{
		Participants: model.DefaultParticipants(),
		Categories:   model.Categories(),
		Pets:         []string{"Bento", "Nego"},
	}
}

// Input is the per-message data rendered into the context prompt.
type Input struct {
	Date        time.Time
	Correction  *model.Draft
	CurrentUser string
	Message     string
}

// Builder renders prompts from embedded templates.
type Builder struct {
	context *template.Template
	system  string
}

// New parses the templates and renders the system prompt once.
func New(cfg Config) (*Builder, error) {
	funcMap := template.FuncMap{
		"formatDate": formatDate,
		"join":       strings.Join,
	}

	system, err := template.New("system.tmpl").Funcs(funcMap).ParseFS(templateFS, "templates/system.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse template system: %w", err)
	}
	context, err := template.New("context.tmpl").Funcs(funcMap).ParseFS(templateFS, "templates/context.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse template context: %w", err)
	}

	b := &Builder{context: context, system: strings.TrimSpace(cfg.SystemOverride)}
	if b.system != "" {
		return b, nil
	}

	categories := make([]string, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		categories = append(categories, c.String())
	}
	data := struct {
		A, B         model.Payer
		DefaultPayer model.Payer
		Categories   []string
		Pets         []string
	}{
		A:            cfg.Participants.A,
		B:            cfg.Participants.B,
		DefaultPayer: cfg.Participants.A,
		Categories:   categories,
		Pets:         cfg.Pets,
	}

	var buf bytes.Buffer
	if err := system.ExecuteTemplate(&buf, "system.tmpl", data); err != nil {
		return nil, fmt.Errorf("failed to execute system template: %w", err)
	}
	b.system = strings.TrimSpace(buf.String())
	return b, nil
}

// System returns the behaviour instructions.
func (b *Builder) System() string {
	return b.system
}

// Context renders the message with its date, user and correction context,
// ending with a reminder to answer in JSON. Relay providers receive it
// alongside System.
func (b *Builder) Context(in Input) (string, error) {
	return b.render(in, true)
}

// Full renders System followed by the context, for prompt-completion
// providers that take a single text.
func (b *Builder) Full(in Input) (string, error) {
	ctx, err := b.render(in, false)
	if err != nil {
		return "", err
	}
	return b.system + "\n\n" + ctx, nil
}

func (b *Builder) render(in Input, reminder bool) (string, error) {
	data := struct {
		Date            time.Time
		CurrentUser     string
		LastTransaction string
		Message         string
		Reminder        bool
	}{
		Date:        in.Date,
		CurrentUser: in.CurrentUser,
		Message:     in.Message,
		Reminder:    reminder,
	}
	if in.Correction != nil {
		raw, err := json.Marshal(model.ToDTO(in.Correction))
		if err != nil {
			return "", fmt.Errorf("failed to encode correction context: %w", err)
		}
		data.LastTransaction = string(raw)
	}

	var buf bytes.Buffer
	if err := b.context.ExecuteTemplate(&buf, "context.tmpl", data); err != nil {
		return "", fmt.Errorf("failed to execute context template: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func formatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}
