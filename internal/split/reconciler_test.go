package split

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-split/internal/model"
)

func newTestReconciler(t *testing.T) *Reconciler {
	t.Helper()
	r, err := NewReconciler(DefaultRules(), model.DefaultParticipants())
	require.NoError(t, err)
	return r
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewReconciler_InvalidRules(t *testing.T) {
	tests := []struct {
		name   string
		rules  Rules
		errMsg string
	}{
		{
			name:   "bad regex",
			rules:  Rules{DualMention: []DualMentionRule{{Name: "broken", Pattern: `({N}`}}},
			errMsg: "failed to compile split rule broken",
		},
		{
			name:   "wrong capture count",
			rules:  Rules{DualMention: []DualMentionRule{{Name: "single", Pattern: `total {N}`}}},
			errMsg: "must capture exactly two amounts",
		},
		{
			name:   "bad exclusivity regex",
			rules:  Rules{Exclusivity: []ExclusivityRule{{Name: "broken", Pattern: `(`}}},
			errMsg: "failed to compile exclusivity rule broken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReconciler(tt.rules, model.DefaultParticipants())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestReconcile(t *testing.T) {
	r := newTestReconciler(t)

	tests := []struct {
		name       string
		text       string
		tentative  string
		wantTotal  string
		wantOwn    string
		wantOther  string
		wantPolicy model.SplitPolicy
		wantRule   string
		wantShared bool
	}{
		{
			name:       "english total then own share",
			text:       "Lunch came to 200, but I paid 150",
			tentative:  "0",
			wantTotal:  "200",
			wantOwn:    "150",
			wantOther:  "50",
			wantPolicy: model.SplitCustom,
			wantRule:   "total_then_own_en",
			wantShared: true,
		},
		{
			name:       "english other party pays",
			text:       "Dinner 300, the other party pays 100",
			tentative:  "0",
			wantTotal:  "300",
			wantOwn:    "200",
			wantOther:  "100",
			wantPolicy: model.SplitCustom,
			wantRule:   "total_then_other_en",
			wantShared: true,
		},
		{
			name:       "portuguese total then own share with comma decimals",
			text:       "O jantar deu 180,50 mas eu paguei 100",
			tentative:  "0",
			wantTotal:  "180.50",
			wantOwn:    "100",
			wantOther:  "80.50",
			wantPolicy: model.SplitCustom,
			wantRule:   "total_then_own_pt",
			wantShared: true,
		},
		{
			name:       "portuguese named participant pays",
			text:       "Mercado 400, a Lara paga 150",
			tentative:  "0",
			wantTotal:  "400",
			wantOwn:    "250",
			wantOther:  "150",
			wantPolicy: model.SplitCustom,
			wantRule:   "total_then_other_pt",
			wantShared: true,
		},
		{
			name:       "smaller number first still becomes the share",
			text:       "paguei 60 de 90 no bar",
			tentative:  "0",
			wantTotal:  "90",
			wantOwn:    "60",
			wantOther:  "30",
			wantPolicy: model.SplitCustom,
			wantRule:   "own_of_total_pt",
			wantShared: true,
		},
		{
			name:       "portuguese amount then what I paid",
			text:       "Jantar 300, paguei 100",
			tentative:  "0",
			wantTotal:  "300",
			wantOwn:    "100",
			wantOther:  "200",
			wantPolicy: model.SplitCustom,
			wantRule:   "amount_then_paid_pt",
			wantShared: true,
		},
		{
			name:       "english just for myself",
			text:       "Bought something just for myself, 90",
			tentative:  "90",
			wantTotal:  "90",
			wantOwn:    "90",
			wantOther:  "0",
			wantPolicy: model.SplitCustom,
			wantRule:   "only_own_en",
			wantShared: false,
		},
		{
			name:       "portuguese only mine",
			text:       "Camiseta 70, só minha",
			tentative:  "70",
			wantTotal:  "70",
			wantOwn:    "70",
			wantOther:  "0",
			wantPolicy: model.SplitCustom,
			wantRule:   "only_own_pt",
			wantShared: false,
		},
		{
			name:       "portuguese only the other party",
			text:       "Vestido 250 só dela",
			tentative:  "250",
			wantTotal:  "250",
			wantOwn:    "0",
			wantOther:  "250",
			wantPolicy: model.SplitCustom,
			wantRule:   "only_other_pt",
			wantShared: false,
		},
		{
			name:       "default equal split",
			text:       "Market 350",
			tentative:  "350",
			wantTotal:  "350",
			wantOwn:    "175",
			wantOther:  "175",
			wantPolicy: model.SplitEqual,
			wantShared: true,
		},
		{
			name:       "dual mention beats exclusivity",
			text:       "came to 120 but I paid 20, not shared",
			tentative:  "120",
			wantTotal:  "120",
			wantOwn:    "20",
			wantOther:  "100",
			wantPolicy: model.SplitCustom,
			wantRule:   "total_then_own_en",
			wantShared: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Reconcile(tt.text, dec(tt.tentative))
			assert.True(t, dec(tt.wantTotal).Equal(got.Total), "total %s", got.Total)
			assert.True(t, dec(tt.wantOwn).Equal(got.Own), "own %s", got.Own)
			assert.True(t, dec(tt.wantOther).Equal(got.Other), "other %s", got.Other)
			assert.Equal(t, tt.wantPolicy, got.Policy)
			assert.Equal(t, tt.wantRule, got.Rule)
			assert.Equal(t, tt.wantShared, got.Shared)
			if got.Policy == model.SplitCustom {
				assert.True(t, got.Own.Add(got.Other).Equal(got.Total), "custom shares must add up exactly")
			}
		})
	}
}

func TestDualMention_EqualNumbersIgnored(t *testing.T) {
	r := newTestReconciler(t)
	_, ok := r.DualMention("came to 100 and I paid 100")
	assert.False(t, ok)
}

func TestSplitApply(t *testing.T) {
	p := model.DefaultParticipants()
	s := Split{Total: dec("200"), Own: dec("150"), Other: dec("50"), Policy: model.SplitCustom, Shared: true}

	d := &model.Draft{Payer: p.B}
	s.Apply(d, p)
	assert.True(t, d.ShareA.Equal(dec("50")))
	assert.True(t, d.ShareB.Equal(dec("150")))
	assert.Equal(t, model.SplitCustom, d.SplitPolicy)

	d = &model.Draft{Payer: p.A}
	s.Apply(d, p)
	assert.True(t, d.ShareA.Equal(dec("150")))
	assert.True(t, d.ShareB.Equal(dec("50")))

	equal := Split{Total: dec("80"), Own: dec("40"), Other: dec("40"), Policy: model.SplitEqual, Shared: true}
	equal.Apply(d, p)
	assert.True(t, d.ShareA.IsZero())
	assert.True(t, d.ShareB.IsZero())
	assert.True(t, d.TotalAmount.Equal(dec("80")))
}
