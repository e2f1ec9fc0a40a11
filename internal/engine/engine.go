// Package engine runs the provider cascade that turns one chat message
// into a reply or a transaction draft.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/spice-split/internal/common"
	"github.com/Veraticus/spice-split/internal/heuristic"
	"github.com/Veraticus/spice-split/internal/llm"
	"github.com/Veraticus/spice-split/internal/model"
	"github.com/Veraticus/spice-split/internal/normalize"
	"github.com/Veraticus/spice-split/internal/prompt"
	"github.com/Veraticus/spice-split/internal/split"
)

// Stage names the cascade step that produced an outcome.
type Stage string

// Cascade stages.
const (
	StagePrimary   Stage = "primary"
	StageSecondary Stage = "secondary"
	StageHeuristic Stage = "heuristic"
	StageBackup    Stage = "backup"
	StageFallback  Stage = "fallback"
	StageGuard     Stage = "guard"
)

// ApologyMessage is returned when every stage came back empty handed.
const ApologyMessage = "Desculpe, não consegui entender. Tente ser mais específico, com o valor e o que foi comprado."

const (
	guardPrefix        = "⚠️ Indisponibilidade temporária\n\nNão consegui processar sua mensagem.\n\nDiagnóstico: "
	maxDiagnosticRunes = 120
)

// expenseSignal is a numeral of two or more digits, a strong hint that
// the message describes an expense.
var expenseSignal = regexp.MustCompile(`\d{2,}`)

// Options wires the pipeline collaborators. Relay and Completer may be
// nil, in which case their stage is skipped.
type Options struct {
	Relay            Relay
	Completer        Completer
	Normalizer       *normalize.Normalizer
	Reconciler       *split.Reconciler
	Extractor        *heuristic.Extractor
	Prompts          *prompt.Builder
	Location         *time.Location
	Logger           *slog.Logger
	Now              func() time.Time
	Participants     model.Participants
	Models           []string
	PrimaryTimeout   time.Duration
	SecondaryTimeout time.Duration
	DisableHeuristic bool
}

// Request is one inbound message.
type Request struct {
	CurrentDate time.Time // zero means today in the pipeline location
	Correction  *model.Draft
	Message     string
	CurrentUser string
}

// Outcome is the pipeline answer plus how it was obtained.
type Outcome struct {
	Result   model.Result
	Stage    Stage
	Model    string
	Attempts int
}

// Validate rejects requests the pipeline must never see.
func Validate(req Request) error {
	if strings.TrimSpace(req.Message) == "" {
		return common.ErrEmptyMessage
	}
	return nil
}

// Pipeline is the provider cascade. It holds no per-request state and
// may serve concurrent requests.
type Pipeline struct {
	relay            Relay
	completer        Completer
	normalizer       *normalize.Normalizer
	reconciler       *split.Reconciler
	extractor        *heuristic.Extractor
	prompts          *prompt.Builder
	location         *time.Location
	logger           *slog.Logger
	now              func() time.Time
	participants     model.Participants
	models           []string
	primaryTimeout   time.Duration
	secondaryTimeout time.Duration
	heuristic        bool
}

// New builds a pipeline. Normalizer, Reconciler, Extractor and Prompts are required.
func New(opts Options) (*Pipeline, error) {
	if opts.Normalizer == nil || opts.Reconciler == nil || opts.Extractor == nil || opts.Prompts == nil {
		return nil, fmt.Errorf("pipeline needs a normalizer, reconciler, extractor and prompt builder: %w", common.ErrMissingConfig)
	}

	p := &Pipeline{
		relay:            opts.Relay,
		completer:        opts.Completer,
		normalizer:       opts.Normalizer,
		reconciler:       opts.Reconciler,
		extractor:        opts.Extractor,
		prompts:          opts.Prompts,
		location:         opts.Location,
		logger:           opts.Logger,
		now:              opts.Now,
		participants:     opts.Participants,
		models:           opts.Models,
		primaryTimeout:   opts.PrimaryTimeout,
		secondaryTimeout: opts.SecondaryTimeout,
		heuristic:        !opts.DisableHeuristic,
	}
	if p.location == nil {
		p.location = time.UTC
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.participants.A == "" || p.participants.B == "" {
		p.participants = model.DefaultParticipants()
	}
	if p.primaryTimeout == 0 {
		p.primaryTimeout = 25 * time.Second
	}
	if p.secondaryTimeout == 0 {
		p.secondaryTimeout = 20 * time.Second
	}
	return p, nil
}

// run is the state of one Process call.
type run struct {
	req      Request
	date     time.Time
	payer    model.Payer
	backup   *Outcome
	outcome  Outcome
	attempts int
}

// stateFn is one cascade state; it returns the next state or nil when done.
type stateFn func(ctx context.Context, r *run) stateFn

// Process runs the cascade. It always returns a well formed outcome:
// provider failures move on to the next stage and a panic anywhere below
// becomes a diagnostic chat reply.
func (p *Pipeline) Process(ctx context.Context, req Request) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			detail := diagnose(rec)
			p.logger.Error("pipeline panicked", "panic", detail)
			out = Outcome{Result: model.Chat(guardPrefix + detail), Stage: StageGuard}
		}
	}()

	today := req.CurrentDate
	if today.IsZero() {
		today = p.now().In(p.location)
	}
	r := &run{
		req:   req,
		date:  model.DateOnly(today),
		payer: p.participants.DefaultPayer(req.CurrentUser),
	}

	for state := stateFn(p.tryPrimary); state != nil; {
		state = state(ctx, r)
	}

	r.outcome.Attempts = r.attempts
	p.logger.Info("message processed",
		"stage", r.outcome.Stage,
		"action", r.outcome.Result.Action,
		"model", r.outcome.Model,
		"attempts", r.attempts)
	return r.outcome
}

func (p *Pipeline) tryPrimary(ctx context.Context, r *run) stateFn {
	if p.relay == nil || ctx.Err() != nil {
		return p.trySecondary
	}

	contextPrompt, err := p.prompts.Context(p.promptInput(r))
	if err != nil {
		p.logger.Warn("failed to build relay prompt", "stage", StagePrimary, "error", err)
		return p.trySecondary
	}
	req := llm.RelayRequest{
		Message:           r.req.Message,
		UserContextPrompt: contextPrompt,
		SystemPrompt:      p.prompts.System(),
		CurrentUser:       r.req.CurrentUser,
		CurrentDate:       r.date.Format(model.DateLayout),
	}
	if r.req.Correction != nil {
		req.LastTransaction = model.ToDTO(r.req.Correction)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.primaryTimeout)
	defer cancel()

	r.attempts++
	env, err := p.relay.Send(callCtx, req)
	if err != nil {
		p.logger.Warn("primary provider failed", "stage", StagePrimary, "error", err)
		return p.trySecondary
	}

	res := p.normalizer.Normalize(env, p.defaults(r))
	if p.keep(r, res, StagePrimary, "", p.hasSecondary() || p.heuristic) {
		return nil
	}
	return p.trySecondary
}

func (p *Pipeline) trySecondary(ctx context.Context, r *run) stateFn {
	if p.completer == nil || len(p.models) == 0 {
		return p.tryHeuristic
	}

	full, err := p.prompts.Full(p.promptInput(r))
	if err != nil {
		p.logger.Warn("failed to build completion prompt", "stage", StageSecondary, "error", err)
		return p.tryHeuristic
	}

	for i, m := range p.models {
		if ctx.Err() != nil {
			break
		}

		r.attempts++
		text, err := p.complete(ctx, m, full)
		if err != nil {
			p.logger.Warn("secondary provider failed", "stage", StageSecondary, "model", m, "error", err)
			continue
		}

		res := p.normalizer.Normalize(normalize.FromText(text), p.defaults(r))
		if p.keep(r, res, StageSecondary, m, i < len(p.models)-1 || p.heuristic) {
			return nil
		}
	}
	return p.tryHeuristic
}

func (p *Pipeline) complete(ctx context.Context, variant, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.secondaryTimeout)
	defer cancel()
	return p.completer.Complete(callCtx, variant, text)
}

func (p *Pipeline) tryHeuristic(_ context.Context, r *run) stateFn {
	if !p.heuristic || !expenseSignal.MatchString(r.req.Message) {
		return p.finalFallback
	}

	ext, ok := p.extractor.Extract(r.req.Message, r.payer, r.date)
	if !ok {
		return p.finalFallback
	}
	p.finish(r, model.Transaction(ext.Message, ext.Draft), StageHeuristic, "")
	return nil
}

func (p *Pipeline) finalFallback(_ context.Context, r *run) stateFn {
	if r.backup != nil {
		r.outcome = *r.backup
		r.outcome.Stage = StageBackup
		return nil
	}
	r.outcome = Outcome{Result: model.Chat(ApologyMessage), Stage: StageFallback}
	return nil
}

// keep decides whether res ends the cascade. Chat replies to messages
// that look like expenses are kept aside as backup while a later stage
// can still produce a transaction.
func (p *Pipeline) keep(r *run, res model.Result, stage Stage, variant string, laterStage bool) bool {
	if res.Action == model.ActionChat && laterStage && expenseSignal.MatchString(r.req.Message) {
		p.logger.Debug("chat reply to an expense message kept as backup", "stage", stage, "model", variant)
		r.backup = &Outcome{Result: res, Stage: stage, Model: variant}
		return false
	}
	p.finish(r, res, stage, variant)
	return true
}

func (p *Pipeline) finish(r *run, res model.Result, stage Stage, variant string) {
	if res.IsTransaction() {
		res = p.correct(r, res)
	}
	r.outcome = Outcome{Result: res, Stage: stage, Model: variant}
}

// correct re-reads the split from the raw message, since providers are
// not trusted with split arithmetic, and records the original message.
func (p *Pipeline) correct(r *run, res model.Result) model.Result {
	d := *res.Draft
	d.SourceText = r.req.Message

	if s, ok := p.reconciler.DualMention(r.req.Message); ok && disagrees(&d, s, p.participants) {
		p.logger.Info("provider split overridden by message",
			"rule", s.Rule, "provider_total", d.TotalAmount.String(), "total", s.Total.String())
		s.Apply(&d, p.participants)
		res.Message = model.ConfirmationMessage(&d, p.participants)
	}

	if d.SplitPolicy == model.SplitCustom && (d.ShareA.IsNegative() || d.ShareB.IsNegative()) {
		p.logger.Warn("draft has a negative share",
			"share_a", d.ShareA.String(), "share_b", d.ShareB.String(), "total", d.TotalAmount.String())
	}

	res.Draft = &d
	return res
}

// disagrees reports whether applying s would change the draft's numbers.
func disagrees(d *model.Draft, s split.Split, participants model.Participants) bool {
	want := *d
	s.Apply(&want, participants)
	return !want.TotalAmount.Equal(d.TotalAmount) ||
		want.SplitPolicy != d.SplitPolicy ||
		!want.ShareA.Equal(d.ShareA) ||
		!want.ShareB.Equal(d.ShareB)
}

func (p *Pipeline) hasSecondary() bool {
	return p.completer != nil && len(p.models) > 0
}

func (p *Pipeline) defaults(r *run) normalize.Defaults {
	return normalize.Defaults{Date: r.date, Payer: r.payer, SourceText: r.req.Message}
}

func (p *Pipeline) promptInput(r *run) prompt.Input {
	return prompt.Input{
		Date:        r.date,
		Correction:  r.req.Correction,
		CurrentUser: r.req.CurrentUser,
		Message:     r.req.Message,
	}
}

// diagnose renders a recovered value as a single short line.
func diagnose(rec any) string {
	s := fmt.Sprint(rec)
	if i := strings.IndexAny(s, "[\n"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		s = "erro desconhecido"
	}
	return truncate(s, maxDiagnosticRunes)
}

func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes-1]) + "…"
}
