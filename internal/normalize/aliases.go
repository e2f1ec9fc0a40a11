package normalize

import (
	"strings"

	"github.com/Veraticus/spice-split/internal/model"
)

// FieldAliases lists, per draft field, the keys a provider may use for it.
// The canonical wire name comes first in every list.
type FieldAliases struct {
	Name         []string
	Amount       []string
	Total        []string
	MyShare      []string
	Remaining    []string
	Category     []string
	Payer        []string
	Date         []string
	Shared       []string
	CorrectionID []string
	SplitType    []string
	Shares       []string
	ShareA       []string
	ShareB       []string
	Installments []string
	Recurrence   []string
	SourceText   []string
}

// DefaultFieldAliases returns the alias table, with per-participant share
// keys such as share_douglas derived from the participant names.
func DefaultFieldAliases(p model.Participants) FieldAliases {
	return FieldAliases{
		Name:         []string{"nome", "name", "description", "descricao", "title", "item"},
		Amount:       []string{"valor", "amount", "value", "price", "preco"},
		Total:        []string{"valor_total", "total", "total_amount", "totalAmount"},
		MyShare:      []string{"minha_parte", "my_share", "myShare", "own_share"},
		Remaining:    []string{"restante", "remaining", "other_share", "resto"},
		Category:     []string{"categoria", "category", "type", "tipo"},
		Payer:        []string{"pagador", "payer", "paid_by", "user"},
		Date:         []string{"data", "date", "occurred_on"},
		Shared:       []string{"compartilhado", "shared", "is_shared"},
		CorrectionID: []string{"id", "correction_id", "transaction_id"},
		SplitType:    []string{"split_type", "split", "divisao_tipo"},
		Shares:       []string{"shares", "divisao", "partes"},
		ShareA:       []string{"share_a", "share_" + strings.ToLower(string(p.A))},
		ShareB:       []string{"share_b", "share_" + strings.ToLower(string(p.B))},
		Installments: []string{"parcelas", "installments"},
		Recurrence:   []string{"periodicidade", "recurrence", "frequency"},
		SourceText:   []string{"raw_input", "source_text"},
	}
}

// DefaultWrapperKeys are the nested payload keys, in priority order.
func DefaultWrapperKeys() []string {
	return []string{"data", "payload", "result", "body", "json"}
}

// DefaultTextKeys are the message-bearing keys, in priority order.
func DefaultTextKeys() []string {
	return []string{"message", "mensagem", "text", "content", "response", "reply", "output", "raw", "error"}
}

// lookup returns the value of the first alias present with a non-null value.
func lookup(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func lookupString(obj map[string]any, keys []string) (string, bool) {
	v, ok := lookup(obj, keys)
	if !ok {
		return "", false
	}
	return asString(v)
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case map[string]any:
		// {"categoria": {"nome": "Mercado"}} style nesting.
		for _, k := range []string{"nome", "name", "label", "value"} {
			if s, ok := t[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), true
			}
		}
	}
	return "", false
}
