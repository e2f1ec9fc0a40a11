package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-split/internal/model"
)

var dateLayouts = []string{
	model.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// draft builds a draft from obj when it looks like a transaction: it must
// carry a name and at least one positive amount-like field.
func (n *Normalizer) draft(obj map[string]any, def Defaults) (*model.Draft, bool) {
	name, ok := lookupString(obj, n.aliases.Name)
	if !ok {
		return nil, false
	}

	amount, hasAmount := lookupAmount(obj, n.aliases.Amount)
	total, hasTotal := lookupAmount(obj, n.aliases.Total)
	mine, hasMine := lookupAmount(obj, n.aliases.MyShare)
	remaining, hasRemaining := lookupAmount(obj, n.aliases.Remaining)

	// splitKnown is set when the total is stated or is the sum of both shares.
	splitKnown := true
	switch {
	case hasTotal:
	case hasAmount:
		total = amount
	case hasMine && hasRemaining:
		total = mine.Add(remaining)
	case hasMine:
		total, splitKnown = mine, false
	case hasRemaining:
		total, splitKnown = remaining, false
	default:
		return nil, false
	}
	if !total.IsPositive() {
		return nil, false
	}

	category, _ := lookupString(obj, n.aliases.Category)
	d := &model.Draft{
		Name:             name,
		TotalAmount:      total,
		Category:         n.categories.Canonicalize(category),
		Payer:            n.payer(obj, def.Payer),
		OccurredOn:       n.date(obj, def.Date),
		CorrectionID:     correctionID(obj, n.aliases.CorrectionID),
		InstallmentCount: installments(obj, n.aliases.Installments),
		Recurrence:       recurrence(obj, n.aliases.Recurrence),
		SourceText:       def.SourceText,
		SplitPolicy:      model.SplitEqual,
		Shared:           true,
	}
	if s, ok := lookupString(obj, n.aliases.SourceText); ok {
		d.SourceText = s
	}

	shared, hasShared := lookupBool(obj, n.aliases.Shared)
	if hasShared {
		d.Shared = shared
	}

	splitType, _ := lookupString(obj, n.aliases.SplitType)
	switch strings.ToLower(splitType) {
	case "equal", "igual", "50/50", "meio a meio":
		return d, true
	}

	switch {
	case splitKnown && hasMine && !mine.Equal(total):
		n.assignOwn(d, mine)
	case n.sharesMap(obj, d):
	case n.shareFields(obj, d):
	case strings.EqualFold(splitType, string(model.SplitCustom)) && n.reconciler != nil && def.SourceText != "":
		s := n.reconciler.Reconcile(def.SourceText, total)
		if s.Policy == model.SplitCustom {
			s.Apply(d, n.participants)
			if hasShared {
				d.Shared = shared
			}
		}
	case hasShared && !shared:
		n.assignOwn(d, total)
	}

	if d.SplitPolicy == model.SplitCustom && !hasShared {
		d.Shared = !d.ShareA.IsZero() && !d.ShareB.IsZero()
	}
	return d, true
}

// assignOwn gives the payer the stated share and the other participant the rest.
func (n *Normalizer) assignOwn(d *model.Draft, own decimal.Decimal) {
	other := d.TotalAmount.Sub(own)
	d.SplitPolicy = model.SplitCustom
	if d.Payer == n.participants.B {
		d.ShareA, d.ShareB = other, own
		return
	}
	d.ShareA, d.ShareB = own, other
}

// setShares fills whichever shares were given. When both are given but do
// not add up, the total wins and share B is derived from share A.
func (n *Normalizer) setShares(d *model.Draft, a, b decimal.Decimal, hasA, hasB bool) bool {
	switch {
	case hasA && hasB && a.Add(b).Equal(d.TotalAmount):
		d.ShareA, d.ShareB = a, b
	case hasA:
		d.ShareA, d.ShareB = a, d.TotalAmount.Sub(a)
	case hasB:
		d.ShareA, d.ShareB = d.TotalAmount.Sub(b), b
	default:
		return false
	}
	d.SplitPolicy = model.SplitCustom
	return true
}

// sharesMap reads {"shares": {"Douglas": 60, "Lara": 40}}.
func (n *Normalizer) sharesMap(obj map[string]any, d *model.Draft) bool {
	v, ok := lookup(obj, n.aliases.Shares)
	if !ok {
		return false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}

	var a, b decimal.Decimal
	var hasA, hasB bool
	for key, raw := range m {
		amt, ok := toDecimal(raw)
		if !ok {
			continue
		}
		who, ok := n.participants.Resolve(key)
		if !ok {
			switch strings.ToLower(key) {
			case "a", "share_a":
				who, ok = n.participants.A, true
			case "b", "share_b":
				who, ok = n.participants.B, true
			}
		}
		switch {
		case ok && who == n.participants.A:
			a, hasA = amt, true
		case ok && who == n.participants.B:
			b, hasB = amt, true
		}
	}
	return n.setShares(d, a, b, hasA, hasB)
}

func (n *Normalizer) shareFields(obj map[string]any, d *model.Draft) bool {
	a, hasA := lookupAmount(obj, n.aliases.ShareA)
	b, hasB := lookupAmount(obj, n.aliases.ShareB)
	return n.setShares(d, a, b, hasA, hasB)
}

func (n *Normalizer) payer(obj map[string]any, fallback model.Payer) model.Payer {
	if s, ok := lookupString(obj, n.aliases.Payer); ok {
		if p, ok := n.participants.Resolve(s); ok {
			return p
		}
	}
	if p, ok := n.participants.Resolve(string(fallback)); ok {
		return p
	}
	return n.participants.A
}

func (n *Normalizer) date(obj map[string]any, fallback time.Time) time.Time {
	if s, ok := lookupString(obj, n.aliases.Date); ok {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return model.DateOnly(t)
			}
		}
	}
	if fallback.IsZero() {
		return fallback
	}
	return model.DateOnly(fallback)
}

func lookupAmount(obj map[string]any, keys []string) (decimal.Decimal, bool) {
	v, ok := lookup(obj, keys)
	if !ok {
		return decimal.Zero, false
	}
	return toDecimal(v)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		return model.ParseAmount(t)
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	default:
		return decimal.Zero, false
	}
}

func lookupBool(obj map[string]any, keys []string) (bool, bool) {
	v, ok := lookup(obj, keys)
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case json.Number:
		return t.String() != "0", true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "sim", "yes", "s", "1":
			return true, true
		case "false", "não", "nao", "no", "n", "0":
			return false, true
		}
	}
	return false, false
}

func correctionID(obj map[string]any, keys []string) string {
	v, ok := lookup(obj, keys)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func installments(obj map[string]any, keys []string) int {
	v, ok := lookup(obj, keys)
	if !ok {
		return 1
	}
	d, ok := toDecimal(v)
	if !ok || d.LessThan(decimal.NewFromInt(1)) {
		return 1
	}
	return int(d.IntPart())
}

func recurrence(obj map[string]any, keys []string) model.Recurrence {
	s, ok := lookupString(obj, keys)
	if !ok {
		return model.RecurrenceOneOff
	}
	switch strings.ToLower(s) {
	case "mensal", "monthly", "month", "recorrente", "recurring":
		return model.RecurrenceMonthly
	}
	return model.RecurrenceOneOff
}
