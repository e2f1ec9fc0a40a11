// Package model defines the core domain models used throughout the application.
package model

// Category is one label of the fixed expense taxonomy.
type Category string

// Taxonomy labels. The Portuguese names are part of the external contract
// shared with the persistence layer and must not be translated.
const (
	CategoryHousing       Category = "Moradia"
	CategoryGroceries     Category = "Mercado"
	CategoryRestaurants   Category = "Alimentação"
	CategoryTransport     Category = "Transporte"
	CategoryLeisure       Category = "Lazer"
	CategoryHealth        Category = "Saúde"
	CategoryPersonal      Category = "Pessoal"
	CategorySubscriptions Category = "Assinaturas"
	CategoryPet           Category = "Pet"
	CategoryShopping      Category = "Compras"
)

// Categories returns the taxonomy in display order.
func Categories() []Category {
	return []Category{
		CategoryHousing,
		CategoryGroceries,
		CategoryRestaurants,
		CategoryTransport,
		CategoryLeisure,
		CategoryHealth,
		CategoryPersonal,
		CategorySubscriptions,
		CategoryPet,
		CategoryShopping,
	}
}

func (c Category) String() string {
	return string(c)
}
