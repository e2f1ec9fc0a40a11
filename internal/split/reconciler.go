package split

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-split/internal/model"
)

// Split is the outcome of reconciling a message with a total amount.
// Own is the speaker's (payer's) share and Other the remaining party's.
type Split struct {
	Total  decimal.Decimal
	Own    decimal.Decimal
	Other  decimal.Decimal
	Policy model.SplitPolicy
	Rule   string // name of the rule that fired, empty for the default
	Shared bool
}

// Reconciler applies ordered phrase rules to decide shares. It holds only
// compiled, read-only state and is safe for concurrent use.
type Reconciler struct {
	dual []compiledDual
	excl []compiledExclusive
}

// NewReconciler compiles rules, expanding {OTHER} with the participant names.
func NewReconciler(rules Rules, participants model.Participants) (*Reconciler, error) {
	dual, excl, err := compile(rules, participants.Names())
	if err != nil {
		return nil, err
	}
	return &Reconciler{dual: dual, excl: excl}, nil
}

// Reconcile decides total, shares and shared status for a message.
//
// Dual mentions win over exclusivity phrases; when neither matches the
// expense is split equally and tentativeTotal is kept.
func (r *Reconciler) Reconcile(text string, tentativeTotal decimal.Decimal) Split {
	if s, ok := r.DualMention(text); ok {
		return s
	}

	for _, rule := range r.excl {
		if !rule.re.MatchString(text) {
			continue
		}
		s := Split{
			Total:  tentativeTotal,
			Policy: model.SplitCustom,
			Rule:   rule.Name,
			Shared: false,
		}
		if rule.Owner == ExclusiveOwn {
			s.Own, s.Other = tentativeTotal, decimal.Zero
		} else {
			s.Own, s.Other = decimal.Zero, tentativeTotal
		}
		return s
	}

	half := tentativeTotal.Div(decimal.NewFromInt(2))
	return Split{
		Total:  tentativeTotal,
		Own:    half,
		Other:  half,
		Policy: model.SplitEqual,
		Shared: true,
	}
}

// DualMention runs only the "total X ... share Y" rules. The larger amount
// is the total. The smaller one is the speaker's share unless the rule
// attributes it to the other party. Two equal amounts are not a dual mention.
func (r *Reconciler) DualMention(text string) (Split, bool) {
	for _, rule := range r.dual {
		m := rule.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		first, ok1 := model.ParseAmount(m[1])
		second, ok2 := model.ParseAmount(m[2])
		if !ok1 || !ok2 || first.Equal(second) {
			continue
		}

		total, stated := first, second
		if second.GreaterThan(first) {
			total, stated = second, first
		}

		s := Split{
			Total:  total,
			Policy: model.SplitCustom,
			Rule:   rule.Name,
			Shared: true,
		}
		if rule.Attribution == AttributeOther {
			s.Other = stated
			s.Own = total.Sub(stated)
		} else {
			s.Own = stated
			s.Other = total.Sub(stated)
		}
		return s, true
	}
	return Split{}, false
}

// Apply writes the split onto a draft, mapping the payer's share to
// participant A or B. Equal splits leave the stored shares at zero.
func (s Split) Apply(d *model.Draft, participants model.Participants) {
	d.TotalAmount = s.Total
	d.SplitPolicy = s.Policy
	d.Shared = s.Shared
	if s.Policy != model.SplitCustom {
		d.ShareA, d.ShareB = decimal.Zero, decimal.Zero
		return
	}
	if d.Payer == participants.B {
		d.ShareA, d.ShareB = s.Other, s.Own
		return
	}
	d.ShareA, d.ShareB = s.Own, s.Other
}
