package models

// RawImportRecord ist die adapter-native Zwischenform eines Datensatzes:
// Quell-Feldnamen auf Skalarwerte, dazu Künstlernamen und absolute
// Foto-URLs. Flüchtig; wird nach der Normalisierung verworfen.
type RawImportRecord struct {
	Source     string
	ExternalID string
	Fields     map[string]any
	Artists    []string
	PhotoURLs  []string
}

// ArtworkDraft ist die kanonische, noch nicht persistierte Form eines
// Kunstwerks nach der Feld-Normalisierung. Künstlernamen sind hier noch
// nicht aufgelöst, Foto-URLs noch nicht gecacht.
type ArtworkDraft struct {
	Source      string
	ExternalID  string
	Title       string
	Description string

	// Reihenfolge entspricht der Nennung in der Quelle
	ArtistNames []string

	// Dedupliziert (case-insensitiv), Reihenfolge des ersten Auftretens
	Keywords []string

	// Nur Schema-bekannte Schlüssel; Werte in kanonischer String-Form
	Tags map[string]string

	// Absolute URLs, Quell-Origin
	PhotoURLs []string
}
