package burnaby

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"art-registry/config"
	"art-registry/models"
	"art-registry/sources"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// mapping ist die statische Umbenennungs-Tabelle für die Burnaby Art
// Gallery. Jede Zeile bekommt zusätzlich das feste Tag city=burnaby.
var mapping = sources.FieldMapping{
	Renames: map[string]string{
		"medium": "material",
		"date":   "start_date",
		"status": "status",
	},
	StaticTags: map[string]string{
		"city": "burnaby",
	},
}

// Adapter implementiert das Source-Interface für den
// Collection-Export der Burnaby Art Gallery.
type Adapter struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewAdapter erstellt einen neuen Burnaby-Adapter.
func NewAdapter(cfg *config.Config, logger *zap.Logger) *Adapter {
	return &Adapter{Config: cfg, Logger: logger}
}

// Name gibt den Namen der Quelle zurück.
func (a *Adapter) Name() string { return "burnaby" }

// Mapping gibt die Umbenennungs-Tabelle der Quelle zurück.
func (a *Adapter) Mapping() sources.FieldMapping { return mapping }

// Fetch holt den kompletten Export in einem Request.
func (a *Adapter) Fetch(ctx context.Context) ([]*models.RawImportRecord, int, error) {
	log := a.Logger.With(zap.String("source", a.Name()))
	log.Info("Starte Fetch vom Burnaby-Gallery-Export.")

	endpoint := a.Config.BurnabyBaseURL + a.Config.BurnabyExport
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("bad status: %s", resp.Status)
	}

	var export ExportResponse
	if err := json.NewDecoder(resp.Body).Decode(&export); err != nil {
		return nil, 0, err
	}

	var records []*models.RawImportRecord
	skipped := 0
	for _, item := range export.Items {
		rec, err := a.mapRecord(item)
		if err != nil {
			skipped++
			log.Warn("Datensatz übersprungen", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	log.Info("Fetch abgeschlossen", zap.Int("records", len(records)), zap.Int("skipped", skipped))
	return records, skipped, nil
}

// mapRecord konvertiert einen Export-Eintrag in unser internes
// RawImportRecord. Relative Foto-Pfade werden gegen die bekannte
// Basis-URL der Quelle aufgelöst.
func (a *Adapter) mapRecord(item map[string]any) (*models.RawImportRecord, error) {
	externalID := scalarString(item["id"])
	if externalID == "" {
		return nil, &sources.SourceFormatError{Source: a.Name(), Field: "id", Reason: "missing"}
	}
	title := scalarString(item["title"])
	if title == "" {
		return nil, &sources.SourceFormatError{Source: a.Name(), Field: "title", Reason: "missing"}
	}

	rec := &models.RawImportRecord{
		Source:     a.Name(),
		ExternalID: externalID,
		Fields: map[string]any{
			"title":       title,
			"description": scalarString(item["description"]),
			"keywords":    scalarString(item["keywords"]),
		},
	}

	// "artist" kann mehrere Namen mit Semikolon trennen
	for _, name := range strings.Split(scalarString(item["artist"]), ";") {
		if name = strings.TrimSpace(name); name != "" {
			rec.Artists = append(rec.Artists, name)
		}
	}

	if photo := scalarString(item["photo"]); photo != "" {
		abs, err := a.absolutePhotoURL(photo)
		if err != nil {
			return nil, &sources.SourceFormatError{Source: a.Name(), Field: "photo", Reason: err.Error()}
		}
		rec.PhotoURLs = append(rec.PhotoURLs, abs)
	}

	for key, value := range item {
		if consumedFields[key] {
			continue
		}
		rec.Fields[key] = value
	}

	return rec, nil
}

// absolutePhotoURL löst einen relativen Foto-Pfad gegen die Basis-URL
// auf. Bereits absolute URLs werden unverändert übernommen.
func (a *Adapter) absolutePhotoURL(photo string) (string, error) {
	u, err := url.Parse(photo)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return photo, nil
	}
	base, err := url.Parse(a.Config.BurnabyBaseURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}

// scalarString bringt einen Skalarwert sicher in String-Form.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}
