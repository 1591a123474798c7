package burnaby

// ExportResponse ist die Struktur des Collection-Exports des
// Burnaby-Gallery-CMS.
type ExportResponse struct {
	Items []map[string]any `json:"items"`
}

// Quell-Felder, die der Adapter selbst konsumiert.
var consumedFields = map[string]bool{
	"id":          true,
	"title":       true,
	"description": true,
	"artist":      true,
	"photo":       true,
	"keywords":    true,
}
