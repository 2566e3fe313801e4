package llm

// Candidate is a raw bar extracted from search results, not yet reconciled
// against the store. Field names follow the extraction schema the model is
// prompted to emit.
type Candidate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
	MenuURL     string `json:"cocktail_menu_url"`
}
