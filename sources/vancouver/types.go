package vancouver

// SearchResponse ist die Top-Level-Struktur der Open-Data-API-Antwort
// (Explore v2.1, records-Endpoint).
type SearchResponse struct {
	TotalCount int              `json:"total_count"`
	Results    []map[string]any `json:"results"`
}

// Quell-Felder, die nicht als Tag-Kandidaten durchgereicht werden,
// weil der Adapter sie selbst konsumiert.
var consumedFields = map[string]bool{
	"registryid":        true,
	"title_of_work":     true,
	"descriptionofwork": true,
	"artists":           true,
	"photourl":          true,
	"keywords":          true,
}
