package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-split/internal/engine"
	"github.com/Veraticus/spice-split/internal/model"
)

// Greeting opens every chat session.
const Greeting = "Oi! Me conta o que vocês gastaram recentemente? Ex: 'Jantar 150 ontem'"

const helpText = `Comandos:
  /usuario <nome>  troca o usuário atual
  /ajuda           mostra esta ajuda
  /sair            encerra a conversa
Depois de uma proposta de gasto, responda "s" para confirmar ou "n" para descartar.`

// Processor is the part of the pipeline a chat session needs.
type Processor interface {
	Process(ctx context.Context, req engine.Request) engine.Outcome
}

// ChatSession is an interactive terminal conversation. Confirmed drafts
// are only remembered as correction context for the next message.
type ChatSession struct {
	processor    Processor
	in           *LineReader
	out          io.Writer
	newID        func() string
	pending      *model.Draft
	last         *model.Draft
	participants model.Participants
	user         string
}

// NewChatSession builds a session reading from in and writing to out.
func NewChatSession(p Processor, in io.Reader, out io.Writer, participants model.Participants, user string) *ChatSession {
	return &ChatSession{
		processor:    p,
		in:           NewLineReader(in),
		out:          out,
		newID:        uuid.NewString,
		participants: participants,
		user:         user,
	}
}

// Last returns the most recently confirmed draft, if any.
func (s *ChatSession) Last() *model.Draft {
	return s.last
}

// Run loops until the input ends, the user leaves or ctx is canceled.
func (s *ChatSession) Run(ctx context.Context) error {
	s.println(FormatTitle("spice chat"))
	s.println(InfoStyle.Render(BotIcon + " " + Greeting))

	for {
		s.print(FormatPrompt(s.promptLabel()))
		line, err := s.in.ReadLine(ctx)
		switch {
		case errors.Is(err, ErrInputCancelled), errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("failed to read input: %w", err)
		}

		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if done := s.command(line); done {
				return nil
			}
			continue
		}
		if s.pending != nil && s.answer(line) {
			continue
		}
		s.pending = nil
		s.send(ctx, line)
	}
}

func (s *ChatSession) promptLabel() string {
	if s.user == "" {
		return "você"
	}
	return s.user
}

func (s *ChatSession) command(line string) bool {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "/sair", "/quit", "/exit":
		s.println(SubtleStyle.Render("Até mais! " + SpiceIcon))
		return true
	case "/usuario", "/user":
		if len(fields) < 2 {
			s.println(FormatError("Informe o nome: /usuario " + string(s.participants.A)))
			return false
		}
		who, ok := s.participants.Resolve(strings.Join(fields[1:], " "))
		if !ok {
			s.println(FormatError(fmt.Sprintf("Usuário desconhecido. Use %s ou %s.", s.participants.A, s.participants.B)))
			return false
		}
		s.user = string(who)
		s.println(FormatSuccess("Agora falando como " + s.user + "."))
	case "/ajuda", "/help":
		s.println(SubtleStyle.Render(helpText))
	default:
		s.println(FormatError("Comando desconhecido. Digite /ajuda."))
	}
	return false
}

// answer handles a yes/no reply to a pending draft. It reports false when
// line is not an answer, so it is processed as a new message.
func (s *ChatSession) answer(line string) bool {
	switch strings.ToLower(strings.Trim(line, " .!")) {
	case "s", "sim", "ok", "confirmo", "confirma", "isso", "y", "yes":
		d := s.pending
		msg := "✅ Atualizado com sucesso!"
		if !d.IsCorrection() {
			d.CorrectionID = s.newID()
			msg = "✅ Salvo com sucesso!"
		}
		s.last, s.pending = d, nil
		s.println(SuccessStyle.Render(msg))
		return true
	case "n", "não", "nao", "cancela", "no":
		s.pending = nil
		s.println(SubtleStyle.Render("Descartado."))
		return true
	}
	return false
}

func (s *ChatSession) send(ctx context.Context, line string) {
	req := engine.Request{Message: line, Correction: s.last, CurrentUser: s.user}
	if err := engine.Validate(req); err != nil {
		s.println(FormatError("Mensagem vazia."))
		return
	}

	out := s.processor.Process(ctx, req)
	s.println(RenderOutcome(out, s.participants))

	if out.Result.IsTransaction() {
		draft := *out.Result.Draft
		s.pending = &draft
		s.println(PromptStyle.Render("Confirmar? (s/n)"))
	}
}

func (s *ChatSession) print(text string) {
	_, _ = fmt.Fprint(s.out, text)
}

func (s *ChatSession) println(text string) {
	_, _ = fmt.Fprintln(s.out, text)
}
