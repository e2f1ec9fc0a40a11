// Package split decides how an expense is divided between the two
// participants from the wording of the message.
package split

import (
	"fmt"
	"regexp"
	"strings"
)

// Attribution says whose share the smaller number of a dual mention is.
type Attribution int

const (
	// AttributeOwn means the smaller amount is the speaker's own share.
	AttributeOwn Attribution = iota
	// AttributeOther means the phrase assigns the smaller amount to the other party.
	AttributeOther
)

// Exclusivity says who an unshared expense belongs to.
type Exclusivity int

const (
	// ExclusiveOwn means the expense is entirely the speaker's.
	ExclusiveOwn Exclusivity = iota
	// ExclusiveOther means the expense is entirely the other party's.
	ExclusiveOther
)

// numberPattern matches an amount as typed in chat, with an optional currency marker.
const numberPattern = `(?:r\$|\$)?\s*(\d+(?:[.,]\d+)*)`

// DualMentionRule recognises "total X ... my share Y" phrasing. Pattern
// must contain exactly two capture groups holding the amounts.
type DualMentionRule struct {
	Name        string
	Pattern     string
	Attribution Attribution
}

// ExclusivityRule recognises "this one is only mine/theirs" phrasing.
type ExclusivityRule struct {
	Name    string
	Pattern string
	Owner   Exclusivity
}

// Rules is the ordered rule configuration of a Reconciler. The
// placeholders {N} and {OTHER} are expanded at construction: {N} to an
// amount, {OTHER} to words naming the other party, participant names included.
type Rules struct {
	DualMention []DualMentionRule
	Exclusivity []ExclusivityRule
	OtherWords  []string
}

// DefaultRules returns the Portuguese and English phrasing understood out of the box.
func DefaultRules() Rules {
	return Rules{
		OtherWords: []string{
			"the other party", "other party", "my partner", "partner", "she", "he",
			"a outra pessoa", "a outra parte", "ela", "ele",
		},
		DualMention: []DualMentionRule{
			{
				Name:        "total_then_own_pt",
				Pattern:     `(?:deu|foi|custou|ficou|total(?: de| foi| deu)?|conta de)\s*{N}.*?(?:eu\s+)?(?:paguei|pago|vou pagar|fico com|minha parte (?:é|e|foi|de|:)?)\s*{N}`,
				Attribution: AttributeOwn,
			},
			{
				Name:        "total_then_other_pt",
				Pattern:     `{N}.*?\b(?:{OTHER})\s+(?:paga|pagou|vai pagar|deve|fica com|me deve)\s*{N}`,
				Attribution: AttributeOther,
			},
			{
				Name:        "own_of_total_pt",
				Pattern:     `(?:paguei|pago|minha parte (?:é|e|foi)?)\s*{N}\s*(?:de|do total de|dos)\s*{N}`,
				Attribution: AttributeOwn,
			},
			{
				Name:        "amount_then_paid_pt",
				Pattern:     `{N}.*?\b(?:eu\s+)?(?:paguei|pago)\s*{N}`,
				Attribution: AttributeOwn,
			},
			{
				Name:        "total_then_own_en",
				Pattern:     `(?:came to|cost|was|total(?: of| was)?|bill (?:was|of))\s*{N}.*?\bi(?:'m| am)?\s*(?:paid|pay|paying|covered|cover|owe)\s*{N}`,
				Attribution: AttributeOwn,
			},
			{
				Name:        "total_then_other_en",
				Pattern:     `{N}.*?\b(?:{OTHER})\s+(?:pays|paid|will pay|owes|covers|covered)\s*{N}`,
				Attribution: AttributeOther,
			},
			{
				Name:        "own_of_total_en",
				Pattern:     `(?:i paid|my share (?:is|was)?)\s*{N}\s*(?:of|out of)\s*{N}`,
				Attribution: AttributeOwn,
			},
		},
		Exclusivity: []ExclusivityRule{
			{
				Name:    "only_other_pt",
				Pattern: `\b(?:só|so|somente|apenas)\s+(?:dela|dele|pra ela|pra ele|para ela|para ele|pr[ao] {OTHER}|d[ao] {OTHER})\b|\bcompra (?:dela|dele|d[ao] {OTHER})\b`,
				Owner:   ExclusiveOther,
			},
			{
				Name:    "only_other_en",
				Pattern: `\b(?:just|only)\s+(?:hers|his|for her|for him|for {OTHER})\b|\b{OTHER}'s own\b`,
				Owner:   ExclusiveOther,
			},
			{
				Name:    "only_own_pt",
				Pattern: `\b(?:só|so|somente|apenas)\s+(?:meu|minha|pra mim|para mim)\b|\b(?:compra|gasto) (?:minha|meu|pessoal)\b|\bnão (?:é )?compartilhad[oa]\b`,
				Owner:   ExclusiveOwn,
			},
			{
				Name:    "only_own_en",
				Pattern: `\b(?:just|only) (?:mine|for me|for myself)\b|\bmy own purchase\b|\bfor myself\b|\bnot shared\b`,
				Owner:   ExclusiveOwn,
			},
		},
	}
}

type compiledDual struct {
	re *regexp.Regexp
	DualMentionRule
}

type compiledExclusive struct {
	re *regexp.Regexp
	ExclusivityRule
}

// compile expands placeholders and compiles every rule case-insensitively.
func compile(rules Rules, names []string) ([]compiledDual, []compiledExclusive, error) {
	words := make([]string, 0, len(rules.OtherWords)+len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			words = append(words, regexp.QuoteMeta(strings.ToLower(n)))
		}
	}
	for _, w := range rules.OtherWords {
		words = append(words, regexp.QuoteMeta(strings.ToLower(w)))
	}
	other := strings.Join(words, "|")

	expand := func(p string) string {
		p = strings.ReplaceAll(p, "{N}", numberPattern)
		return strings.ReplaceAll(p, "{OTHER}", "(?:"+other+")")
	}

	dual := make([]compiledDual, 0, len(rules.DualMention))
	for _, r := range rules.DualMention {
		re, err := regexp.Compile("(?i)" + expand(r.Pattern))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to compile split rule %s: %w", r.Name, err)
		}
		if re.NumSubexp() != 2 {
			return nil, nil, fmt.Errorf("split rule %s must capture exactly two amounts, got %d", r.Name, re.NumSubexp())
		}
		dual = append(dual, compiledDual{DualMentionRule: r, re: re})
	}

	excl := make([]compiledExclusive, 0, len(rules.Exclusivity))
	for _, r := range rules.Exclusivity {
		re, err := regexp.Compile("(?i)" + expand(r.Pattern))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to compile exclusivity rule %s: %w", r.Name, err)
		}
		excl = append(excl, compiledExclusive{ExclusivityRule: r, re: re})
	}

	return dual, excl, nil
}
