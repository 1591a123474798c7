package services

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"art-registry/models"
	"art-registry/schema"
	"art-registry/sources"
)

// Felder, die strukturell sind und nicht über die Tag-Tabelle laufen.
var structuralFields = map[string]bool{
	"title":       true,
	"description": true,
	"keywords":    true,
}

// Normalizer wandelt RawImportRecords in kanonische ArtworkDrafts um.
// Schema und Umbenennungs-Tabelle werden explizit injiziert; dieselbe
// Eingabe liefert immer denselben Draft.
type Normalizer struct {
	registry *schema.Registry
	mapping  sources.FieldMapping
	logger   *zap.Logger
}

// NewNormalizer erstellt einen Normalizer für eine Quelle.
func NewNormalizer(registry *schema.Registry, mapping sources.FieldMapping, logger *zap.Logger) *Normalizer {
	return &Normalizer{registry: registry, mapping: mapping, logger: logger}
}

// Normalize überführt einen Rohdatensatz in die kanonische Form.
// Unbekannte Quell-Felder ohne deklarierte Umbenennung werden mit
// Warnung verworfen (nie still); deklarierte Umbenennungen auf
// Schlüssel, die das Schema nicht kennt, sind ein SchemaViolationError
// und überspringen den Datensatz.
func (n *Normalizer) Normalize(rec *models.RawImportRecord) (*models.ArtworkDraft, []string, error) {
	draft := &models.ArtworkDraft{
		Source:      rec.Source,
		ExternalID:  rec.ExternalID,
		Title:       asString(rec.Fields["title"]),
		Description: asString(rec.Fields["description"]),
		ArtistNames: append([]string(nil), rec.Artists...),
		Tags:        map[string]string{},
	}
	var warnings []string

	draft.Keywords = SplitKeywords(asString(rec.Fields["keywords"]))

	// Deterministische Reihenfolge über die Quell-Schlüssel
	fieldKeys := make([]string, 0, len(rec.Fields))
	for key := range rec.Fields {
		if !structuralFields[key] {
			fieldKeys = append(fieldKeys, key)
		}
	}
	sort.Strings(fieldKeys)

	for _, key := range fieldKeys {
		canonical, declared := n.mapping.Renames[key]
		if !declared {
			warnings = append(warnings, fmt.Sprintf("field %q dropped: no rename declared", key))
			n.logger.Warn("Quell-Feld ohne Umbenennung verworfen",
				zap.String("source", rec.Source), zap.String("field", key))
			continue
		}
		value, err := n.registry.Coerce(canonical, rec.Fields[key])
		if err != nil {
			return nil, warnings, err
		}
		if value == "" {
			continue
		}
		draft.Tags[canonical] = value
	}

	// Feste Tags der Quelle, ebenfalls schema-validiert
	staticKeys := make([]string, 0, len(n.mapping.StaticTags))
	for key := range n.mapping.StaticTags {
		staticKeys = append(staticKeys, key)
	}
	sort.Strings(staticKeys)
	for _, key := range staticKeys {
		value, err := n.registry.Coerce(key, n.mapping.StaticTags[key])
		if err != nil {
			return nil, warnings, err
		}
		if value != "" {
			draft.Tags[key] = value
		}
	}

	// Foto-URLs müssen absolut sein; der Adapter hat relative Pfade
	// bereits aufgelöst, alles andere ist ein Adapter-Fehler.
	for _, photo := range rec.PhotoURLs {
		u, err := url.Parse(photo)
		if err != nil || !u.IsAbs() {
			warnings = append(warnings, fmt.Sprintf("photo url %q dropped: not absolute", photo))
			continue
		}
		draft.PhotoURLs = append(draft.PhotoURLs, photo)
	}

	if draft.Title == "" {
		return nil, warnings, errors.New("normalized draft has empty title")
	}
	return draft, warnings, nil
}

// SplitKeywords zerlegt eine Komma-Liste: trimmen, case-insensitiv
// deduplizieren, Reihenfolge des ersten Auftretens erhalten.
func SplitKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		kw := strings.TrimSpace(part)
		if kw == "" {
			continue
		}
		folded := strings.ToLower(kw)
		if seen[folded] {
			continue
		}
		seen[folded] = true
		out = append(out, kw)
	}
	return out
}

// asString bringt einen Skalarwert in String-Form (leere Form für nil).
func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}
