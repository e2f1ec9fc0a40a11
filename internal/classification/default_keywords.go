package classification

import "github.com/Veraticus/spice-split/internal/model"

// DefaultKeywordRules returns the keyword table used to guess a category
// straight from a chat message. Order matters: the first rule with a
// matching keyword wins, so Pet and Subscriptions are checked before the
// broader buckets that share vocabulary with them.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{
			Name:     "pet",
			Category: model.CategoryPet,
			Keywords: []string{"ração", "racao", "rações", "racoes", "veterin", "petshop", "pet shop", "banho e tosa", "creche do", "cachorro"},
			Words:    []string{"bento", "nego"},
		},
		{
			Name:     "subscriptions",
			Category: model.CategorySubscriptions,
			Keywords: []string{"netflix", "spotify", "assinatura", "disney", "hbo", "prime video", "youtube premium", "icloud", "deezer", "globoplay", "subscription"},
		},
		{
			Name:     "groceries",
			Category: model.CategoryGroceries,
			Keywords: []string{"mercado", "supermercado", "market", "supermarket", "grocery", "feira", "hortifruti", "açougue", "acougue", "atacad", "sacolão"},
		},
		{
			Name:     "restaurants",
			Category: model.CategoryRestaurants,
			Keywords: []string{"restaurante", "restaurant", "jantar", "almoço", "almoco", "lanche", "ifood", "pizza", "hamburg", "sushi", "padaria", "café", "cafe", "lunch", "dinner", "breakfast"},
		},
		{
			Name:     "transport",
			Category: model.CategoryTransport,
			Keywords: []string{"uber", "taxi", "táxi", "gasolina", "combustível", "combustivel", "estacionamento", "pedágio", "pedagio", "ônibus", "onibus", "metrô", "fuel", "parking"},
			Words:    []string{"metro"},
		},
		{
			Name:     "health",
			Category: model.CategoryHealth,
			Keywords: []string{"farmácia", "farmacia", "remédio", "remedio", "médico", "medico", "consulta", "exame", "dentista", "hospital", "pharmacy", "doctor"},
		},
		{
			Name:     "housing",
			Category: model.CategoryHousing,
			Keywords: []string{"aluguel", "condomínio", "condominio", "conta de luz", "energia", "conta de água", "conta de agua", "internet", "iptu", "gás"},
		},
		{
			Name:     "leisure",
			Category: model.CategoryLeisure,
			Keywords: []string{"cinema", "show", "teatro", "ingresso", "viagem", "passeio", "parque", "movie", "concert", "trip"},
		},
		{
			Name:     "personal",
			Category: model.CategoryPersonal,
			Keywords: []string{"cabelo", "salão", "salao", "manicure", "barbeiro", "academia", "roupa", "haircut", "gym"},
		},
	}
}
