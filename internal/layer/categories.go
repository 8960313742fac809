package layer

// Category groups layers into a semantic bucket used for POI aggregation
// and data-quality scoring. ExpectedMin is the feature count below which a
// neighborhood-scale selection is considered under-fetched.
type Category struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	LayerIDs    []string `json:"layer_ids"`
	ExpectedMin int      `json:"expected_min"`
}

// DefaultCategories returns the static category table in stable order.
func DefaultCategories() []Category {
	return []Category{
		{ID: "food", Name: "Food & Drink", LayerIDs: []string{"restaurants", "cafes"}, ExpectedMin: 10},
		{ID: "shopping", Name: "Shopping", LayerIDs: []string{"shops", "supermarkets"}, ExpectedMin: 10},
		{ID: "health", Name: "Health", LayerIDs: []string{"hospitals", "pharmacies"}, ExpectedMin: 3},
		{ID: "education", Name: "Education", LayerIDs: []string{"schools"}, ExpectedMin: 2},
		{ID: "transit", Name: "Transit", LayerIDs: []string{"transit-stops"}, ExpectedMin: 5},
		{ID: "buildings", Name: "Buildings", LayerIDs: []string{"buildings"}, ExpectedMin: 50},
		{ID: "parks", Name: "Parks & Green", LayerIDs: []string{"parks", "trees"}, ExpectedMin: 5},
	}
}

// CategoryByID returns the category with the given id, or false.
func CategoryByID(cats []Category, id string) (Category, bool) {
	for _, c := range cats {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
