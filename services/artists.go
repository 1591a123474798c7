package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"art-registry/models"
)

// ArtistResolutionConflict meldet ein fehlgeschlagenes Find-or-Create
// nach bereits einem Wiederholungsversuch.
type ArtistResolutionConflict struct {
	Name string
	Err  error
}

func (e *ArtistResolutionConflict) Error() string {
	return fmt.Sprintf("artist resolution conflict for %q: %v", e.Name, e.Err)
}

func (e *ArtistResolutionConflict) Unwrap() error { return e.Err }

// ArtistResolver löst Künstler-Anzeigenamen auf Artist-Zeilen auf.
// Pro normalisiertem Namen existiert höchstens eine Zeile, auch unter
// konkurrierenden Imports: das Find-or-Create läuft über den
// Unique-Constraint der Datenbank, nicht über Check-then-Insert.
type ArtistResolver struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewArtistResolver erstellt einen neuen ArtistResolver.
func NewArtistResolver(db *gorm.DB, logger *zap.Logger) *ArtistResolver {
	return &ArtistResolver{DB: db, Logger: logger}
}

// NormalizeArtistName ist der Deduplizierungs-Schlüssel: case-gefaltet,
// interner Whitespace kollabiert, getrimmt. Kein Fuzzy-Matching --
// nahe Duplikate sind ein Kurationsproblem.
func NormalizeArtistName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Resolve gibt für eine geordnete Namensliste die zugehörigen
// Artist-IDs in derselben Reihenfolge zurück und legt unbekannte Namen
// an. Doppelte Namen innerhalb der Liste werden auf dieselbe ID
// abgebildet und nur einmal zurückgegeben.
func (r *ArtistResolver) Resolve(ctx context.Context, names []string) ([]uint, error) {
	var ids []uint
	seen := map[string]bool{}

	for _, name := range names {
		normalized := NormalizeArtistName(name)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true

		id, err := r.findOrCreate(ctx, name, normalized)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// findOrCreate legt den Künstler atomar an (Unique-Constraint +
// DoNothing) und liest anschließend die gewinnende Zeile. Ein
// transienter Race wird genau einmal wiederholt.
func (r *ArtistResolver) findOrCreate(ctx context.Context, name, normalized string) (uint, error) {
	for attempt := 0; attempt < 2; attempt++ {
		artist := models.Artist{Name: strings.TrimSpace(name), NormalizedName: normalized}
		res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "normalized_name"}},
			DoNothing: true,
		}).Create(&artist)
		if res.Error != nil {
			if attempt == 0 {
				r.Logger.Warn("Artist-Insert fehlgeschlagen, wiederhole einmal",
					zap.String("name", name), zap.Error(res.Error))
				continue
			}
			return 0, &ArtistResolutionConflict{Name: name, Err: res.Error}
		}
		if res.RowsAffected > 0 && artist.ID != 0 {
			return artist.ID, nil
		}

		// Konflikt: eine andere Import-Instanz hat gewonnen, Zeile lesen
		var existing models.Artist
		err := r.DB.WithContext(ctx).
			Where("normalized_name = ?", normalized).
			First(&existing).Error
		if err == nil {
			return existing.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) || attempt > 0 {
			return 0, &ArtistResolutionConflict{Name: name, Err: err}
		}
	}
	return 0, &ArtistResolutionConflict{Name: name, Err: errors.New("retry exhausted")}
}
