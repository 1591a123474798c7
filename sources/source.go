package sources

import (
	"context"
	"fmt"

	"art-registry/models"
)

// FieldMapping ist die statische, pro Quelle deklarierte Umbenennungs-
// Tabelle. Neue Quellen bringen eine neue Tabelle mit; es wird nie
// ad hoc auf Quellennamen verzweigt.
type FieldMapping struct {
	// Quell-Feldname -> kanonischer Tag-Schlüssel
	Renames map[string]string
	// Feste Tags, die jede Zeile dieser Quelle bekommt (z.B. city)
	StaticTags map[string]string
}

// Source ist das Interface, das jeder Quell-Adapter (z.B. Vancouver
// Open Data, Burnaby Gallery) implementieren muss.
type Source interface {
	// Name gibt den eindeutigen Namen der Quelle zurück (z.B. "vancouver").
	Name() string

	// Fetch holt alle Rohdatensätze der Quelle und konvertiert sie in
	// RawImportRecords. Datensätze, die die Adapter-Validierung nicht
	// bestehen, werden übersprungen und gezählt, nicht batch-fatal.
	Fetch(ctx context.Context) (records []*models.RawImportRecord, skipped int, err error)

	// Mapping gibt die Umbenennungs-Tabelle der Quelle zurück.
	Mapping() FieldMapping
}

// SourceFormatError meldet einen Rohdatensatz, dem ein Pflichtfeld
// fehlt oder dessen Felder die falsche Form haben.
type SourceFormatError struct {
	Source string
	Field  string
	Reason string
}

func (e *SourceFormatError) Error() string {
	return fmt.Sprintf("%s record: field %q: %s", e.Source, e.Field, e.Reason)
}
