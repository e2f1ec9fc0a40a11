// Package heuristic derives a transaction draft straight from message text
// when no upstream provider could.
package heuristic

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-split/internal/classification"
	"github.com/Veraticus/spice-split/internal/model"
	"github.com/Veraticus/spice-split/internal/split"
)

// DefaultName labels drafts whose message has no leading words.
const DefaultName = model.DefaultName

var (
	numberRe      = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	leadingNameRe = regexp.MustCompile(`^[\s\p{P}]*([\p{L}][\p{L}\s'-]*)`)
	installmentRe = regexp.MustCompile(`(?i)\b(?:em\s+)?(\d{1,2})\s*(?:x\b|parcelas\b|vezes\b|installments\b)`)
	yesterdayRe   = regexp.MustCompile(`(?i)\b(?:ontem|yesterday)\b`)
	currencyWords = regexp.MustCompile(`(?i)(?:^|\s)(?:r\$|\$|reais|de|por|com)\s*$`)
)

// Extraction is a draft plus the confirmation message shown to the user.
type Extraction struct {
	Draft   *model.Draft
	Message string
}

// Extractor is a regex-only fallback that never calls out of process.
type Extractor struct {
	keywords     *classification.KeywordClassifier
	reconciler   *split.Reconciler
	participants model.Participants
	payerRules   []*regexp.Regexp
}

// NewExtractor wires the keyword table and split rules into an extractor.
func NewExtractor(keywords *classification.KeywordClassifier, reconciler *split.Reconciler, participants model.Participants) *Extractor {
	e := &Extractor{
		keywords:     keywords,
		reconciler:   reconciler,
		participants: participants,
	}
	for _, name := range participants.Names() {
		n := regexp.QuoteMeta(name)
		e.payerRules = append(e.payerRules, regexp.MustCompile(
			`(?i)\b`+n+`\s+(?:pagou|que pagou|paid)\b(\s*(?:r\$|\$)?\s*\d)?|\bpago por\s+`+n+`\b|\bpaid by\s+`+n+`\b`))
	}
	return e
}

// Extract builds a draft from raw text. ok is false when the text has no numbers.
func (e *Extractor) Extract(text string, defaultPayer model.Payer, defaultDate time.Time) (Extraction, bool) {
	count, installmentSpan := installments(text)

	amounts := make([]decimal.Decimal, 0, 4)
	firstNumber := -1
	for _, loc := range numberRe.FindAllStringIndex(text, -1) {
		if installmentSpan != nil && loc[0] >= installmentSpan[0] && loc[1] <= installmentSpan[1] {
			continue
		}
		d, ok := model.ParseAmount(text[loc[0]:loc[1]])
		if !ok {
			continue
		}
		if firstNumber < 0 {
			firstNumber = loc[0]
		}
		amounts = append(amounts, d)
	}
	if len(amounts) == 0 {
		return Extraction{}, false
	}

	largest := amounts[0]
	for _, a := range amounts[1:] {
		if a.GreaterThan(largest) {
			largest = a
		}
	}

	match, _ := e.keywords.Classify(text)

	date := model.DateOnly(defaultDate)
	if yesterdayRe.MatchString(text) {
		date = date.AddDate(0, 0, -1)
	}

	recurrence := model.RecurrenceOneOff
	if match.Category == model.CategorySubscriptions {
		recurrence = model.RecurrenceMonthly
	}

	d := &model.Draft{
		Name:             leadingName(text[:firstNumber]),
		OccurredOn:       date,
		Category:         match.Category,
		Payer:            e.payer(text, defaultPayer),
		InstallmentCount: count,
		Recurrence:       recurrence,
		SourceText:       text,
	}
	s := e.reconciler.Reconcile(text, largest)
	s.Apply(d, e.participants)

	if !d.TotalAmount.IsPositive() {
		return Extraction{}, false
	}

	return Extraction{Draft: d, Message: model.ConfirmationMessage(d, e.participants)}, true
}

func (e *Extractor) payer(text string, fallback model.Payer) model.Payer {
	for i, re := range e.payerRules {
		m := re.FindStringSubmatchIndex(text)
		// "Lara pagou 50" states her share of a split, not who paid the bill.
		if m == nil || m[2] >= 0 {
			continue
		}
		if i == 0 {
			return e.participants.A
		}
		return e.participants.B
	}
	if fallback == "" {
		return e.participants.A
	}
	return fallback
}

// installments returns the installment count and the span it was read from.
func installments(text string) (int, []int) {
	m := installmentRe.FindStringSubmatchIndex(text)
	if m == nil {
		return 1, nil
	}
	n, err := strconv.Atoi(text[m[2]:m[3]])
	if err != nil || n < 1 {
		return 1, nil
	}
	return n, m[:2]
}

// leadingName takes the alphabetic run that precedes the first amount.
func leadingName(prefix string) string {
	prefix = currencyWords.ReplaceAllString(prefix, "")
	m := leadingNameRe.FindStringSubmatch(prefix)
	if m == nil {
		return DefaultName
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return DefaultName
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}
