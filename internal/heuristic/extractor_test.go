package heuristic

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-split/internal/classification"
	"github.com/Veraticus/spice-split/internal/model"
	"github.com/Veraticus/spice-split/internal/split"
)

var today = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	participants := model.DefaultParticipants()
	reconciler, err := split.NewReconciler(split.DefaultRules(), participants)
	require.NoError(t, err)
	keywords := classification.NewKeywordClassifier(classification.DefaultKeywordRules(), model.CategoryShopping)
	return NewExtractor(keywords, reconciler, participants)
}

func TestExtract_Market(t *testing.T) {
	e := newTestExtractor(t)

	got, ok := e.Extract("Market 350", "Douglas", today)
	require.True(t, ok)

	d := got.Draft
	assert.Equal(t, "Market", d.Name)
	assert.Equal(t, model.CategoryGroceries, d.Category)
	assert.True(t, d.TotalAmount.Equal(decimal.NewFromInt(350)))
	assert.Equal(t, model.SplitEqual, d.SplitPolicy)
	assert.True(t, d.Shared)
	assert.Equal(t, model.Payer("Douglas"), d.Payer)
	assert.Equal(t, 1, d.InstallmentCount)
	assert.Equal(t, model.RecurrenceOneOff, d.Recurrence)
	assert.Equal(t, today, d.OccurredOn)
	assert.Equal(t, "Market 350", d.SourceText)
	require.NoError(t, d.Validate())

	assert.Equal(t, "Entendi! Registrando Market de R$ 350.00 em Mercado, pago por Douglas. Dividido meio a meio. Confere?", got.Message)
}

func TestExtract(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name             string
		text             string
		defaultPayer     model.Payer
		wantName         string
		wantTotal        string
		wantShareA       string
		wantShareB       string
		wantCategory     model.Category
		wantPolicy       model.SplitPolicy
		wantPayer        model.Payer
		wantRecurrence   model.Recurrence
		wantInstallments int
		wantShared       bool
		wantDate         time.Time
	}{
		{
			name:           "largest number is the total",
			text:           "jantar 2 pessoas 150",
			defaultPayer:   "Lara",
			wantName:       "Jantar",
			wantTotal:      "150",
			wantCategory:   model.CategoryRestaurants,
			wantPolicy:     model.SplitEqual,
			wantPayer:      "Lara",
			wantRecurrence: model.RecurrenceOneOff,
			wantShared:     true,
			wantDate:       today,
		},
		{
			name:           "dual mention supersedes the largest number",
			text:           "Lunch came to 200, but I paid 150",
			defaultPayer:   "Douglas",
			wantName:       "Lunch came to",
			wantTotal:      "200",
			wantShareA:     "150",
			wantShareB:     "50",
			wantCategory:   model.CategoryRestaurants,
			wantPolicy:     model.SplitCustom,
			wantPayer:      "Douglas",
			wantRecurrence: model.RecurrenceOneOff,
			wantShared:     true,
			wantDate:       today,
		},
		{
			name:           "shares follow the payer",
			text:           "Lunch came to 200, but I paid 150",
			defaultPayer:   "Lara",
			wantName:       "Lunch came to",
			wantTotal:      "200",
			wantShareA:     "50",
			wantShareB:     "150",
			wantCategory:   model.CategoryRestaurants,
			wantPolicy:     model.SplitCustom,
			wantPayer:      "Lara",
			wantRecurrence: model.RecurrenceOneOff,
			wantShared:     true,
			wantDate:       today,
		},
		{
			name:           "subscription is monthly",
			text:           "Netflix R$ 55,90",
			defaultPayer:   "Douglas",
			wantName:       "Netflix",
			wantTotal:      "55.90",
			wantCategory:   model.CategorySubscriptions,
			wantPolicy:     model.SplitEqual,
			wantPayer:      "Douglas",
			wantRecurrence: model.RecurrenceMonthly,
			wantShared:     true,
			wantDate:       today,
		},
		{
			name:             "installments are not amounts",
			text:             "Tênis 600 em 3x",
			defaultPayer:     "Douglas",
			wantName:         "Tênis",
			wantTotal:        "600",
			wantCategory:     model.CategoryShopping,
			wantPolicy:       model.SplitEqual,
			wantPayer:        "Douglas",
			wantRecurrence:   model.RecurrenceOneOff,
			wantInstallments: 3,
			wantShared:       true,
			wantDate:         today,
		},
		{
			name:           "explicit payer and yesterday",
			text:           "Uber 45 ontem, Lara pagou",
			defaultPayer:   "Douglas",
			wantName:       "Uber",
			wantTotal:      "45",
			wantCategory:   model.CategoryTransport,
			wantPolicy:     model.SplitEqual,
			wantPayer:      "Lara",
			wantRecurrence: model.RecurrenceOneOff,
			wantShared:     true,
			wantDate:       today.AddDate(0, 0, -1),
		},
		{
			name:           "exclusive purchase",
			text:           "Bought something just for myself, 90",
			defaultPayer:   "Douglas",
			wantName:       "Bought something just for myself",
			wantTotal:      "90",
			wantShareA:     "90",
			wantShareB:     "0",
			wantCategory:   model.CategoryShopping,
			wantPolicy:     model.SplitCustom,
			wantPayer:      "Douglas",
			wantRecurrence: model.RecurrenceOneOff,
			wantShared:     false,
			wantDate:       today,
		},
		{
			name:           "no leading words",
			text:           "120 no petshop",
			defaultPayer:   "",
			wantName:       DefaultName,
			wantTotal:      "120",
			wantCategory:   model.CategoryPet,
			wantPolicy:     model.SplitEqual,
			wantPayer:      "Douglas",
			wantRecurrence: model.RecurrenceOneOff,
			wantShared:     true,
			wantDate:       today,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.Extract(tt.text, tt.defaultPayer, today)
			require.True(t, ok)
			d := got.Draft

			assert.Equal(t, tt.wantName, d.Name)
			assert.True(t, decimal.RequireFromString(tt.wantTotal).Equal(d.TotalAmount), "total %s", d.TotalAmount)
			assert.Equal(t, tt.wantCategory, d.Category)
			assert.Equal(t, tt.wantPolicy, d.SplitPolicy)
			assert.Equal(t, tt.wantPayer, d.Payer)
			assert.Equal(t, tt.wantRecurrence, d.Recurrence)
			assert.Equal(t, tt.wantShared, d.Shared)
			assert.Equal(t, tt.wantDate, d.OccurredOn)

			wantInstallments := tt.wantInstallments
			if wantInstallments == 0 {
				wantInstallments = 1
			}
			assert.Equal(t, wantInstallments, d.InstallmentCount)

			if tt.wantPolicy == model.SplitCustom {
				assert.True(t, decimal.RequireFromString(tt.wantShareA).Equal(d.ShareA), "shareA %s", d.ShareA)
				assert.True(t, decimal.RequireFromString(tt.wantShareB).Equal(d.ShareB), "shareB %s", d.ShareB)
			}
			require.NoError(t, d.Validate())
			assert.Contains(t, got.Message, "R$ "+model.FormatAmount(d.TotalAmount))
		})
	}
}

func TestExtract_NoNumbers(t *testing.T) {
	e := newTestExtractor(t)
	_, ok := e.Extract("oi, tudo bem?", "Douglas", today)
	assert.False(t, ok)
}

func TestExtract_ZeroAmount(t *testing.T) {
	e := newTestExtractor(t)
	_, ok := e.Extract("mercado 0", "Douglas", today)
	assert.False(t, ok)
}
