// Package classification maps free text to the fixed expense taxonomy.
package classification

import (
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/spice-split/internal/model"
)

// Synonym maps a lowercase key to a taxonomy label.
type Synonym struct {
	Key   string
	Label model.Category
}

// Taxonomy is the configuration of the canonicalizer: the allowed labels,
// an ordered synonym table and the bucket used when nothing matches.
type Taxonomy struct {
	Fallback model.Category
	Labels   []model.Category
	Synonyms []Synonym
}

// DefaultTaxonomy returns the household taxonomy with its synonym table.
// Synonyms are checked in order, so more specific keys come first.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Labels:   model.Categories(),
		Fallback: model.CategoryShopping,
		Synonyms: []Synonym{
			{Key: "supermercado", Label: model.CategoryGroceries},
			{Key: "mercado", Label: model.CategoryGroceries},
			{Key: "groceries", Label: model.CategoryGroceries},
			{Key: "grocery", Label: model.CategoryGroceries},
			{Key: "alimentacao", Label: model.CategoryRestaurants},
			{Key: "alimentação", Label: model.CategoryRestaurants},
			{Key: "restaurante", Label: model.CategoryRestaurants},
			{Key: "restaurants", Label: model.CategoryRestaurants},
			{Key: "restaurant", Label: model.CategoryRestaurants},
			{Key: "food", Label: model.CategoryRestaurants},
			{Key: "dining", Label: model.CategoryRestaurants},
			{Key: "transporte", Label: model.CategoryTransport},
			{Key: "transport", Label: model.CategoryTransport},
			{Key: "combustivel", Label: model.CategoryTransport},
			{Key: "moradia", Label: model.CategoryHousing},
			{Key: "housing", Label: model.CategoryHousing},
			{Key: "casa", Label: model.CategoryHousing},
			{Key: "contas", Label: model.CategoryHousing},
			{Key: "utilities", Label: model.CategoryHousing},
			{Key: "lazer", Label: model.CategoryLeisure},
			{Key: "leisure", Label: model.CategoryLeisure},
			{Key: "entertainment", Label: model.CategoryLeisure},
			{Key: "saude", Label: model.CategoryHealth},
			{Key: "saúde", Label: model.CategoryHealth},
			{Key: "health", Label: model.CategoryHealth},
			{Key: "farmacia", Label: model.CategoryHealth},
			{Key: "pessoal", Label: model.CategoryPersonal},
			{Key: "personal", Label: model.CategoryPersonal},
			{Key: "assinaturas", Label: model.CategorySubscriptions},
			{Key: "assinatura", Label: model.CategorySubscriptions},
			{Key: "subscriptions", Label: model.CategorySubscriptions},
			{Key: "subscription", Label: model.CategorySubscriptions},
			{Key: "streaming", Label: model.CategorySubscriptions},
			{Key: "pet", Label: model.CategoryPet},
			{Key: "cachorro", Label: model.CategoryPet},
			{Key: "compras", Label: model.CategoryShopping},
			{Key: "shopping", Label: model.CategoryShopping},
			{Key: "outros", Label: model.CategoryShopping},
			{Key: "other", Label: model.CategoryShopping},
		},
	}
}

// minContainedKeyLen keeps very short inputs from matching every key that
// happens to contain them.
const minContainedKeyLen = 3

// Canonicalizer resolves arbitrary category text to a taxonomy label.
// It is immutable and safe for concurrent use.
type Canonicalizer struct {
	labels   map[model.Category]struct{}
	exact    map[string]model.Category
	synonyms []Synonym
	fallback model.Category
}

// NewCanonicalizer builds a canonicalizer from a taxonomy. Synonyms that
// point outside the label set are dropped so the result is always a member.
func NewCanonicalizer(tax Taxonomy) *Canonicalizer {
	c := &Canonicalizer{
		labels:   make(map[model.Category]struct{}, len(tax.Labels)),
		exact:    make(map[string]model.Category, len(tax.Synonyms)),
		synonyms: make([]Synonym, 0, len(tax.Synonyms)),
		fallback: tax.Fallback,
	}
	for _, l := range tax.Labels {
		c.labels[l] = struct{}{}
	}
	if _, ok := c.labels[c.fallback]; !ok && len(tax.Labels) > 0 {
		c.fallback = tax.Labels[len(tax.Labels)-1]
	}
	for _, s := range tax.Synonyms {
		if _, ok := c.labels[s.Label]; !ok {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(s.Key))
		if key == "" {
			continue
		}
		if _, dup := c.exact[key]; !dup {
			c.exact[key] = s.Label
		}
		c.synonyms = append(c.synonyms, Synonym{Key: key, Label: s.Label})
	}
	return c
}

// Canonicalize returns the taxonomy label for text. It never fails: text
// that matches nothing lands in the fallback bucket.
func (c *Canonicalizer) Canonicalize(text string) model.Category {
	if _, ok := c.labels[model.Category(text)]; ok {
		return model.Category(text)
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return c.fallback
	}
	if label, ok := c.exact[lower]; ok {
		return label
	}

	for _, s := range c.synonyms {
		if strings.Contains(lower, s.Key) {
			return s.Label
		}
		if utf8.RuneCountInString(lower) >= minContainedKeyLen && strings.Contains(s.Key, lower) {
			return s.Label
		}
	}

	return c.fallback
}

// IsLabel reports whether text is already a taxonomy label.
func (c *Canonicalizer) IsLabel(text string) bool {
	_, ok := c.labels[model.Category(text)]
	return ok
}

// Fallback returns the bucket used for unrecognized text.
func (c *Canonicalizer) Fallback() model.Category {
	return c.fallback
}
