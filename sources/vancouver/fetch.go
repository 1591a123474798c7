package vancouver

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

// mapping ist die statische Umbenennungs-Tabelle für Vancouver Open Data.
var mapping = sources.FieldMapping{
	Renames: map[string]string{
		"primarymaterial":   "material",
		"installation_date": "start_date",
		"height":            "dimensions",
		"status":            "status",
		"type":              "type",
	},
}

// Adapter implementiert das Source-Interface für das Vancouver
// Open-Data-Portal (public-art Dataset).
type Adapter struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewAdapter erstellt einen neuen Vancouver-Adapter.
func NewAdapter(cfg *config.Config, logger *zap.Logger) *Adapter {
	return &Adapter{Config: cfg, Logger: logger}
}

// Name gibt den Namen der Quelle zurück.
func (a *Adapter) Name() string { return "vancouver" }

// Mapping gibt die Umbenennungs-Tabelle der Quelle zurück.
func (a *Adapter) Mapping() sources.FieldMapping { return mapping }

// Fetch holt das Dataset seitenweise über die Explore-API.
func (a *Adapter) Fetch(ctx context.Context) ([]*models.RawImportRecord, int, error) {
	log := a.Logger.With(zap.String("source", a.Name()))
	log.Info("Starte Fetch vom Vancouver Open-Data-Portal.")

	var records []*models.RawImportRecord
	skipped := 0
	limit := a.Config.VancouverLimit
	if limit <= 0 {
		limit = 100
	}

	for offset := 0; ; offset += limit {
		page, err := a.fetchPage(ctx, limit, offset)
		if err != nil {
			return nil, skipped, fmt.Errorf("vancouver page fetch (offset %d): %w", offset, err)
		}
		for _, result := range page.Results {
			rec, err := a.mapRecord(result)
			if err != nil {
				skipped++
				log.Warn("Datensatz übersprungen", zap.Error(err))
				continue
			}
			records = append(records, rec)
		}
		if len(page.Results) < limit || offset+limit >= page.TotalCount {
			break
		}
	}

	log.Info("Fetch abgeschlossen", zap.Int("records", len(records)), zap.Int("skipped", skipped))
	return records, skipped, nil
}

func (a *Adapter) fetchPage(ctx context.Context, limit, offset int) (*SearchResponse, error) {
	endpoint := fmt.Sprintf("%s/catalog/datasets/%s/records?limit=%d&offset=%d",
		a.Config.VancouverBaseURL, url.PathEscape(a.Config.VancouverDataset), limit, offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var page SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

// mapRecord konvertiert ein API-Result in unser internes RawImportRecord.
// Reiner Transform, kein globaler Zustand.
func (a *Adapter) mapRecord(result map[string]any) (*models.RawImportRecord, error) {
	externalID := scalarString(result["registryid"])
	if externalID == "" {
		return nil, &sources.SourceFormatError{Source: a.Name(), Field: "registryid", Reason: "missing"}
	}
	title := scalarString(result["title_of_work"])
	if title == "" {
		return nil, &sources.SourceFormatError{Source: a.Name(), Field: "title_of_work", Reason: "missing"}
	}

	rec := &models.RawImportRecord{
		Source:     a.Name(),
		ExternalID: externalID,
		Fields: map[string]any{
			"title":       title,
			"description": scalarString(result["descriptionofwork"]),
			"keywords":    scalarString(result["keywords"]),
		},
	}

	// Künstlernamen: Liste oder Semikolon-getrennter String
	switch artists := result["artists"].(type) {
	case []any:
		for _, v := range artists {
			if name := scalarString(v); name != "" {
				rec.Artists = append(rec.Artists, name)
			}
		}
	case string:
		for _, name := range strings.Split(artists, ";") {
			if name = strings.TrimSpace(name); name != "" {
				rec.Artists = append(rec.Artists, name)
			}
		}
	case nil:
		// Werke ohne bekannte Künstler sind gültig
	default:
		return nil, &sources.SourceFormatError{Source: a.Name(), Field: "artists", Reason: "unexpected shape"}
	}

	// Foto-URL: Objekt mit "url"-Feld, bereits absolut
	if photo, ok := result["photourl"].(map[string]any); ok {
		if u := scalarString(photo["url"]); u != "" {
			rec.PhotoURLs = append(rec.PhotoURLs, u)
		}
	}

	// Alle übrigen Felder als Tag-Kandidaten durchreichen; der
	// Normalizer entscheidet anhand von Mapping und Schema.
	for key, value := range result {
		if consumedFields[key] {
			continue
		}
		rec.Fields[key] = value
	}

	return rec, nil
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
