package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/spice-split/internal/classification"
	"github.com/Veraticus/spice-split/internal/common"
	"github.com/Veraticus/spice-split/internal/model"
	"github.com/Veraticus/spice-split/internal/split"
)

// maxDepth bounds how far nested wrappers are followed.
const maxDepth = 6

// providerErrorPrefix is prepended to provider error texts shown as chat.
const providerErrorPrefix = "Erro do provedor: "

// Options configures a Normalizer. Zero-valued tables fall back to the defaults.
type Options struct {
	Categories   *classification.Canonicalizer
	Reconciler   *split.Reconciler
	Participants model.Participants
	Aliases      *FieldAliases
	WrapperKeys  []string
	TextKeys     []string
}

// Defaults fill draft fields the provider left out.
type Defaults struct {
	Date       time.Time
	Payer      model.Payer
	SourceText string
}

// Normalizer converts provider envelopes into results. It keeps no
// per-call state and is safe for concurrent use.
type Normalizer struct {
	categories   *classification.Canonicalizer
	reconciler   *split.Reconciler
	participants model.Participants
	aliases      FieldAliases
	wrapperKeys  []string
	textKeys     []string
}

// New builds a Normalizer.
func New(opts Options) *Normalizer {
	n := &Normalizer{
		categories:   opts.Categories,
		reconciler:   opts.Reconciler,
		participants: opts.Participants,
		wrapperKeys:  opts.WrapperKeys,
		textKeys:     opts.TextKeys,
	}
	if n.participants.A == "" || n.participants.B == "" {
		n.participants = model.DefaultParticipants()
	}
	if n.categories == nil {
		n.categories = classification.NewCanonicalizer(classification.DefaultTaxonomy())
	}
	if opts.Aliases != nil {
		n.aliases = *opts.Aliases
	} else {
		n.aliases = DefaultFieldAliases(n.participants)
	}
	if len(n.wrapperKeys) == 0 {
		n.wrapperKeys = DefaultWrapperKeys()
	}
	if len(n.textKeys) == 0 {
		n.textKeys = DefaultTextKeys()
	}
	return n
}

// Normalize converts an envelope into a chat reply, a transaction draft or
// a recurrence cancellation. It never fails: payloads it cannot make sense
// of produce a diagnostic chat reply naming what was received.
func (n *Normalizer) Normalize(env Envelope, def Defaults) model.Result {
	if r, ok := n.envelope(env, def, 0); ok {
		return r
	}
	return model.Chat(diagnostic(env))
}

func (n *Normalizer) envelope(env Envelope, def Defaults, depth int) (model.Result, bool) {
	if depth > maxDepth {
		return model.Result{}, false
	}
	switch env.Kind {
	case KindArray:
		if len(env.Array) == 0 {
			return model.Result{}, false
		}
		return n.envelope(FromValue(env.Array[0]), def, depth+1)
	case KindString:
		parsed := FromText(env.Text)
		if parsed.Kind != KindString {
			return n.envelope(parsed, def, depth+1)
		}
		if strings.TrimSpace(parsed.Text) == "" {
			return model.Result{}, false
		}
		return model.Chat(parsed.Text), true
	case KindObject:
		return n.object(env.Object, def, depth)
	default:
		return model.Result{}, false
	}
}

func (n *Normalizer) object(obj map[string]any, def Defaults, depth int) (model.Result, bool) {
	action := strings.ToLower(strings.TrimSpace(stringField(obj, "action")))

	// A bare {"output": ...} wrapper, as returned by agent style relays.
	if out, ok := obj["output"]; ok && action == "" {
		if r, ok := n.envelope(FromValue(out), def, depth+1); ok {
			return r, true
		}
	}

	if action == string(model.ActionCancelRecurrence) {
		return n.cancellation(obj), true
	}

	if tx, ok := n.nestedObject(obj["transaction"]); ok {
		if d, ok := n.draft(tx, def); ok {
			msg, ok := n.message(obj)
			if !ok {
				msg, ok = n.message(tx)
			}
			if !ok {
				msg = model.ConfirmationMessage(d, n.participants)
			}
			return model.Transaction(msg, d), true
		}
	}

	if action == string(model.ActionChat) {
		if msg, ok := n.message(obj); ok {
			return model.Chat(msg), true
		}
	}

	for _, key := range n.wrapperKeys {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		env := FromValue(v)
		if env.Kind == KindString {
			// A plain string under "data" is more likely a date than a payload.
			if env = FromText(env.Text); env.Kind == KindString {
				continue
			}
		}
		if r, ok := n.envelope(env, def, depth+1); ok {
			return r, true
		}
	}

	if d, ok := n.draft(obj, def); ok {
		msg, ok := n.message(obj)
		if !ok {
			msg = model.ConfirmationMessage(d, n.participants)
		}
		return model.Transaction(msg, d), true
	}

	if msg, ok := n.message(obj); ok {
		return model.Chat(msg), true
	}
	return model.Result{}, false
}

// nestedObject accepts an object, a JSON string holding one, or an array
// whose first element is one.
func (n *Normalizer) nestedObject(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}
	env := FromValue(v)
	if env.Kind == KindString {
		env = FromText(env.Text)
	}
	if env.Kind == KindArray && len(env.Array) > 0 {
		env = FromValue(env.Array[0])
	}
	return env.Object, env.Kind == KindObject
}

func (n *Normalizer) cancellation(obj map[string]any) model.Result {
	name, ok := "", false
	if c, found := n.nestedObject(obj["cancellation"]); found {
		name, ok = lookupString(c, n.aliases.Name)
	}
	if !ok {
		name, ok = lookupString(obj, n.aliases.Name)
	}
	if !ok {
		if tx, found := n.nestedObject(obj["transaction"]); found {
			name, _ = lookupString(tx, n.aliases.Name)
		}
	}

	msg, ok := n.message(obj)
	if !ok {
		msg = fmt.Sprintf("Entendi! Vou cancelar a recorrência de %s. Confere?", name)
	}
	return model.CancelRecurrence(msg, name)
}

// message finds the first usable text field of obj.
func (n *Normalizer) message(obj map[string]any) (string, bool) {
	for _, key := range n.textKeys {
		s, ok := obj[key].(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		s = strings.TrimSpace(s)
		if key == "error" {
			return providerErrorPrefix + s, true
		}
		return s, true
	}
	return "", false
}

// ParseDraft decodes a prior transaction sent along as correction context.
func (n *Normalizer) ParseDraft(raw json.RawMessage) (*model.Draft, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", common.ErrMalformedPayload)
	}
	obj, ok := n.nestedObject(v)
	if !ok {
		return nil, fmt.Errorf("draft is not an object: %w", common.ErrMalformedPayload)
	}
	if tx, ok := n.nestedObject(obj["transaction"]); ok {
		obj = tx
	}
	d, ok := n.draft(obj, Defaults{})
	if !ok {
		return nil, fmt.Errorf("draft lacks a name or a positive amount: %w", common.ErrMalformedPayload)
	}
	return d, nil
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func diagnostic(env Envelope) string {
	switch env.Kind {
	case KindObject:
		keys := make([]string, 0, len(env.Object))
		for k := range env.Object {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) == 0 {
			return "Recebi uma resposta vazia do provedor."
		}
		return "Recebi dados do provedor mas não entendi o formato: " + strings.Join(keys, ", ")
	case KindArray:
		if len(env.Array) > 0 {
			return diagnostic(FromValue(env.Array[0]))
		}
		return "Recebi uma lista vazia do provedor."
	case KindString:
		if parsed := FromText(env.Text); parsed.Kind != KindString {
			return diagnostic(parsed)
		}
		return "Recebi uma resposta vazia do provedor."
	default:
		return fmt.Sprintf("Recebi dados do provedor mas não entendi o formato: %v", env.Raw)
	}
}
