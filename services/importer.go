package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"art-registry/config"
	"art-registry/models"
	"art-registry/schema"
	"art-registry/sources"
)

// Stages der Record-Zustandsmaschine. Ein Fehlschlag hält nur den
// betroffenen Datensatz an, nie den Batch.
const (
	StagePending         = "pending"
	StageNormalized      = "normalized"
	StageArtistsResolved = "artists_resolved"
	StageMediaCached     = "media_cached"
	StagePersisted       = "persisted"
)

// RecordFailure beschreibt einen fehlgeschlagenen Datensatz mit der
// Stage, in der er gescheitert ist.
type RecordFailure struct {
	ExternalID string `json:"external_id"`
	Stage      string `json:"stage"`
	Reason     string `json:"reason"`
}

// BatchSummary ist das Ergebnis eines Batch-Laufs. Übersprungene und
// fehlgeschlagene Datensätze werden vollständig aufgeführt, nie still
// verworfen.
type BatchSummary struct {
	RunID     string          `json:"run_id,omitempty"`
	Source    string          `json:"source"`
	DryRun    bool            `json:"dry_run"`
	Persisted int             `json:"persisted"`
	Updated   int             `json:"updated"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Warnings  []string        `json:"warnings,omitempty"`
	Failures  []RecordFailure `json:"failures,omitempty"`

	// Fotos, die nicht gecacht werden konnten (Record trotzdem persistiert)
	MediaErrors int `json:"media_errors"`
}

// ImportService orchestriert die Pipeline pro Datensatz:
// Normalisierung -> Künstler-Auflösung -> Media-Caching -> Persistenz.
type ImportService struct {
	Config   *config.Config
	DB       *gorm.DB
	Logger   *zap.Logger
	Media    *MediaCache
	Sources  []sources.Source
	Resolver *ArtistResolver
}

// NewImportService erstellt eine neue Instanz des ImportService.
func NewImportService(cfg *config.Config, db *gorm.DB, media *MediaCache, logger *zap.Logger, srcs []sources.Source) *ImportService {
	return &ImportService{
		Config:   cfg,
		DB:       db,
		Logger:   logger,
		Media:    media,
		Sources:  srcs,
		Resolver: NewArtistResolver(db, logger),
	}
}

// SourceByName gibt die registrierte Quelle mit diesem Namen zurück.
func (s *ImportService) SourceByName(name string) sources.Source {
	for _, src := range s.Sources {
		if src.Name() == name {
			return src
		}
	}
	return nil
}

// RunAll führt den Import für alle registrierten Quellen aus.
func (s *ImportService) RunAll(ctx context.Context) ([]*BatchSummary, error) {
	var summaries []*BatchSummary
	for _, src := range s.Sources {
		summary, err := s.RunSource(ctx, src, false)
		if err != nil {
			s.Logger.Error("Batch für Quelle fehlgeschlagen", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// RunSource führt einen Batch-Lauf für eine Quelle aus. Wiederholte
// Läufe gegen unveränderte Quelldaten erzeugen keine neuen Artwork-
// oder Artist-Zeilen (Upsert auf den stabilen Import-Schlüssel).
// Nur Storage-Ausfälle sind batch-fatal.
func (s *ImportService) RunSource(ctx context.Context, src sources.Source, dryRun bool) (*BatchSummary, error) {
	log := s.Logger.With(zap.String("source", src.Name()), zap.Bool("dry_run", dryRun))
	log.Info("Starte Import-Batch.")

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.Config.BatchTimeoutMinutes)*time.Minute)
	defer cancel()

	// Tag-Schema laden und injizieren; ohne Schema kein Batch.
	var tagKeys []models.TagKey
	if err := s.DB.WithContext(ctx).Find(&tagKeys).Error; err != nil {
		return nil, fmt.Errorf("loading tag schema: %w", err)
	}
	registry, err := schema.NewRegistry(tagKeys)
	if err != nil {
		return nil, fmt.Errorf("building tag schema registry: %w", err)
	}
	log.Info("Tag-Schema geladen", zap.Int("keys", registry.Keys()), zap.Int("version", registry.Version()))

	records, skipped, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching source %s: %w", src.Name(), err)
	}

	summary := &BatchSummary{Source: src.Name(), DryRun: dryRun, Skipped: skipped}
	startedAt := time.Now().UTC()
	if !dryRun {
		run := models.ImportRun{
			ID:        uuid.NewString(),
			Source:    src.Name(),
			StartedAt: startedAt,
			Skipped:   skipped,
		}
		if err := s.DB.WithContext(ctx).Create(&run).Error; err != nil {
			return nil, fmt.Errorf("creating import run: %w", err)
		}
		summary.RunID = run.ID
	}

	normalizer := NewNormalizer(registry, src.Mapping(), s.Logger)

	var wg sync.WaitGroup
	var mu sync.Mutex
	semaphore := make(chan struct{}, s.Config.MediaMaxConcurrent)

	for _, rec := range records {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(rec *models.RawImportRecord) {
			defer wg.Done()
			defer func() { <-semaphore }()

			created, warnings, mediaErrs, failure := s.processRecord(ctx, normalizer, rec, dryRun)

			mu.Lock()
			defer mu.Unlock()
			summary.Warnings = append(summary.Warnings, warnings...)
			summary.MediaErrors += mediaErrs
			if failure != nil {
				summary.Failed++
				summary.Failures = append(summary.Failures, *failure)
				return
			}
			if created {
				summary.Persisted++
			} else {
				summary.Updated++
			}
		}(rec)
	}
	wg.Wait()

	if !dryRun && summary.RunID != "" {
		s.finalizeRun(ctx, summary, startedAt)
	}

	log.Info("Import-Batch abgeschlossen",
		zap.Int("persisted", summary.Persisted),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("media_errors", summary.MediaErrors))
	return summary, nil
}

// processRecord führt die Zustandsmaschine für genau einen Datensatz
// aus: pending -> normalized -> artists_resolved -> media_cached ->
// persisted, oder Failed(stage) ab der Stage, die gescheitert ist.
func (s *ImportService) processRecord(ctx context.Context, normalizer *Normalizer, rec *models.RawImportRecord, dryRun bool) (created bool, warnings []string, mediaErrs int, failure *RecordFailure) {
	log := s.Logger.With(zap.String("source", rec.Source), zap.String("external_id", rec.ExternalID))
	stage := StagePending

	draft, warns, err := normalizer.Normalize(rec)
	for _, w := range warns {
		warnings = append(warnings, fmt.Sprintf("%s/%s: %s", rec.Source, rec.ExternalID, w))
	}
	if err != nil {
		log.Warn("Normalisierung fehlgeschlagen", zap.Error(err))
		return false, warnings, 0, &RecordFailure{ExternalID: rec.ExternalID, Stage: stage, Reason: err.Error()}
	}
	stage = StageNormalized

	var artistIDs []uint
	if !dryRun {
		artistIDs, err = s.Resolver.Resolve(ctx, draft.ArtistNames)
		if err != nil {
			log.Error("Künstler-Auflösung fehlgeschlagen", zap.Error(err))
			return false, warnings, 0, &RecordFailure{ExternalID: rec.ExternalID, Stage: stage, Reason: err.Error()}
		}
	}
	stage = StageArtistsResolved

	// Fehlende Fotos sind nicht fatal für den Datensatz.
	var refs []*models.CacheRef
	if !dryRun {
		for _, photoURL := range draft.PhotoURLs {
			ref, err := s.Media.Ensure(ctx, photoURL)
			if err != nil {
				mediaErrs++
				warnings = append(warnings, fmt.Sprintf("%s/%s: %v", rec.Source, rec.ExternalID, err))
				log.Warn("Foto konnte nicht gecacht werden", zap.String("url", photoURL), zap.Error(err))
				continue
			}
			refs = append(refs, ref)
		}
	}
	stage = StageMediaCached

	if dryRun {
		// Validieren und berichten, nichts schreiben
		return false, warnings, mediaErrs, nil
	}

	created, err = s.persistArtwork(ctx, draft, artistIDs, refs)
	if err != nil {
		log.Error("Persistenz fehlgeschlagen", zap.Error(err))
		return false, warnings, mediaErrs, &RecordFailure{ExternalID: rec.ExternalID, Stage: stage, Reason: err.Error()}
	}

	log.Debug("Datensatz persistiert", zap.Bool("created", created))
	return created, warnings, mediaErrs, nil
}

// persistArtwork schreibt Kunstwerk, Künstler-Links und Foto-Links als
// eine atomare Einheit. Der Upsert läuft über den stabilen Schlüssel
// (source, external_id); Wiederholungen aktualisieren statt zu
// duplizieren.
func (s *ImportService) persistArtwork(ctx context.Context, draft *models.ArtworkDraft, artistIDs []uint, refs []*models.CacheRef) (bool, error) {
	tagsJSON, err := json.Marshal(draft.Tags)
	if err != nil {
		return false, err
	}
	keywordsJSON, err := json.Marshal(draft.Keywords)
	if err != nil {
		return false, err
	}

	created := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Artwork{}).
			Where("source = ? AND external_id = ?", draft.Source, draft.ExternalID).
			Count(&existing).Error; err != nil {
			return err
		}
		created = existing == 0

		artwork := models.Artwork{
			Source:      draft.Source,
			ExternalID:  draft.ExternalID,
			Title:       draft.Title,
			Description: draft.Description,
			Tags:        tagsJSON,
			Keywords:    keywordsJSON,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "source"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "description", "tags", "keywords", "updated_at",
			}),
		}).Create(&artwork)
		if res.Error != nil {
			return res.Error
		}
		if artwork.ID == 0 {
			// Konfliktfall: bestehende Zeile nachladen
			if err := tx.Where("source = ? AND external_id = ?", draft.Source, draft.ExternalID).
				First(&artwork).Error; err != nil {
				return err
			}
		}

		// Künstler-Links vollständig ersetzen, Reihenfolge aus der Quelle
		if err := tx.Where("artwork_id = ?", artwork.ID).Delete(&models.ArtworkArtist{}).Error; err != nil {
			return err
		}
		for i, artistID := range artistIDs {
			link := models.ArtworkArtist{ArtworkID: artwork.ID, ArtistID: artistID, Position: i}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}

		// Foto-Links: nur auf existierende Cache-Einträge zeigen
		for i, ref := range refs {
			photo := models.ArtworkPhoto{ArtworkID: artwork.ID, CacheRefID: ref.ID, Position: i}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "artwork_id"}, {Name: "cache_ref_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"position"}),
			}).Create(&photo).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return created, err
}

// finalizeRun schreibt Zähler und Summary in die ImportRun-Zeile.
func (s *ImportService) finalizeRun(ctx context.Context, summary *BatchSummary, startedAt time.Time) {
	finished := time.Now().UTC()
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		s.Logger.Warn("Summary konnte nicht serialisiert werden", zap.Error(err))
	}
	updates := map[string]any{
		"started_at":  startedAt,
		"finished_at": finished,
		"persisted":   summary.Persisted,
		"updated":     summary.Updated,
		"failed":      summary.Failed,
		"skipped":     summary.Skipped,
		"summary":     summaryJSON,
	}
	if err := s.DB.WithContext(ctx).Model(&models.ImportRun{}).
		Where("id = ?", summary.RunID).
		Updates(updates).Error; err != nil {
		s.Logger.Error("ImportRun konnte nicht finalisiert werden", zap.String("run_id", summary.RunID), zap.Error(err))
	}
}
