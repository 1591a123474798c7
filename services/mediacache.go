package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"art-registry/config"
	"art-registry/models"
	"art-registry/storage"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MediaFetchError meldet ein Foto, das nicht gecacht werden konnte.
// Der Import des Kunstwerks läuft ohne dieses Foto weiter.
type MediaFetchError struct {
	URL    string
	Reason string
	Err    error
}

func (e *MediaFetchError) Error() string {
	return fmt.Sprintf("media fetch %s: %s", e.URL, e.Reason)
}

func (e *MediaFetchError) Unwrap() error { return e.Err }

var (
	cacheKeyPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	extPattern      = regexp.MustCompile(`^[a-z0-9]+$`)
)

// CacheKey ist der stabile Hash der Quell-URL (content-addressed per
// URL, nicht per Bytes): wiederholte Imports derselben URL treffen
// denselben Cache-Eintrag.
func CacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:24]
}

// BuildCachePath ist der einzige Konstruktor für Cache-Pfade. Er nimmt
// ausschließlich (Namespace, Zeitpunkt, CacheKey, Extension) -- es gibt
// keinen Codepfad, der eine rohe URL als Pfadsegment akzeptiert. Der
// Rückgabewert kann damit nie "://" enthalten.
func BuildCachePath(namespace string, fetchedAt time.Time, cacheKey, ext string) (string, error) {
	ok := false
	for _, ns := range allowedNamespaces {
		if namespace == ns {
			ok = true
			break
		}
	}
	if !ok {
		return "", fmt.Errorf("cache namespace %q not allowed", namespace)
	}
	if !cacheKeyPattern.MatchString(cacheKey) {
		return "", fmt.Errorf("cache key %q contains illegal characters", cacheKey)
	}
	if !extPattern.MatchString(ext) {
		return "", fmt.Errorf("extension %q contains illegal characters", ext)
	}
	return fmt.Sprintf("%s/%s/%s.%s", namespace, fetchedAt.UTC().Format("2006/01/02"), cacheKey, ext), nil
}

// MediaCache holt Quell-Fotos und legt sie content-addressed im
// Objektspeicher ab.
type MediaCache struct {
	Config   *config.Config
	DB       *gorm.DB
	S3Client *s3.Client
	Logger   *zap.Logger

	client *http.Client
}

// NewMediaCache erstellt einen MediaCache mit begrenztem Timeout und
// begrenzter Redirect-Anzahl.
func NewMediaCache(cfg *config.Config, db *gorm.DB, s3Client *s3.Client, logger *zap.Logger) *MediaCache {
	maxRedirects := cfg.MediaMaxRedirects
	return &MediaCache{
		Config:   cfg,
		DB:       db,
		S3Client: s3Client,
		Logger:   logger,
		client: &http.Client{
			Timeout: time.Duration(cfg.MediaFetchTimeout) * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

// Ensure gibt den CacheRef für eine Quell-URL zurück. Existiert der
// Eintrag und ist das Objekt verifiziert vorhanden, wird er unverändert
// zurückgegeben (Cache-Hit, kein Netzwerk-Call). Sonst wird gefetcht,
// hochgeladen und die Zeile upserted.
func (m *MediaCache) Ensure(ctx context.Context, rawURL string) (*models.CacheRef, error) {
	log := m.Logger.With(zap.String("url", rawURL))

	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &MediaFetchError{URL: rawURL, Reason: "not an absolute http(s) url"}
	}

	key := CacheKey(rawURL)

	var existing models.CacheRef
	if err := m.DB.WithContext(ctx).Where("cache_key = ?", key).First(&existing).Error; err == nil {
		present, headErr := storage.ObjectExists(ctx, m.S3Client, m.Config.S3Bucket, existing.StoredPath)
		if headErr == nil && present {
			log.Debug("Cache-Hit, Objekt verifiziert vorhanden.", zap.String("stored_path", existing.StoredPath))
			return &existing, nil
		}
		log.Warn("Cache-Eintrag ohne Objekt, fetche neu.", zap.String("stored_path", existing.StoredPath))
	}

	data, contentType, ext, err := m.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	fetchedAt := time.Now().UTC()
	storedPath, err := BuildCachePath(m.Config.CacheNamespace, fetchedAt, key, ext)
	if err != nil {
		// Fail fast: ein unbaubarer Pfad darf nie persistiert werden
		return nil, &MediaFetchError{URL: rawURL, Reason: "cache path construction failed", Err: err}
	}

	if err := storage.UploadFile(ctx, m.S3Client, m.Config.S3Bucket, storedPath, data, contentType); err != nil {
		return nil, &MediaFetchError{URL: rawURL, Reason: "upload failed", Err: err}
	}

	ref := models.CacheRef{
		CacheKey:    key,
		StoredPath:  storedPath,
		SourceURL:   rawURL,
		ContentType: contentType,
		ByteSize:    int64(len(data)),
		FetchedAt:   fetchedAt,
	}
	err = m.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"stored_path", "source_url", "content_type", "byte_size", "fetched_at", "updated_at",
		}),
	}).Create(&ref).Error
	if err != nil {
		return nil, &MediaFetchError{URL: rawURL, Reason: "cache ref persist failed", Err: err}
	}

	log.Info("Foto gecacht", zap.String("stored_path", storedPath), zap.Int("bytes", len(data)))
	return &ref, nil
}

// fetch lädt die URL mit begrenzter Größe und prüft per Sniffing, dass
// es sich um ein Bild handelt.
func (m *MediaCache) fetch(ctx context.Context, rawURL string) (data []byte, contentType, ext string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", "", &MediaFetchError{URL: rawURL, Reason: "request build failed", Err: err}
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, "", "", &MediaFetchError{URL: rawURL, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", "", &MediaFetchError{URL: rawURL, Reason: fmt.Sprintf("bad status: %s", resp.Status)}
	}

	limited := io.LimitReader(resp.Body, m.Config.MediaMaxBytes+1)
	data, err = io.ReadAll(limited)
	if err != nil {
		return nil, "", "", &MediaFetchError{URL: rawURL, Reason: "body read failed", Err: err}
	}
	if int64(len(data)) > m.Config.MediaMaxBytes {
		return nil, "", "", &MediaFetchError{URL: rawURL, Reason: fmt.Sprintf("payload exceeds %d bytes", m.Config.MediaMaxBytes)}
	}

	mtype := mimetype.Detect(data)
	if !isImageMIME(mtype.String()) {
		return nil, "", "", &MediaFetchError{URL: rawURL, Reason: fmt.Sprintf("unsupported content type %s", mtype.String())}
	}

	return data, mtype.String(), extensionFor(mtype), nil
}

func isImageMIME(mime string) bool {
	return len(mime) > 6 && mime[:6] == "image/"
}

// extensionFor leitet die Datei-Endung aus dem gesnifften Typ ab.
func extensionFor(mtype *mimetype.MIME) string {
	ext := mtype.Extension()
	if len(ext) > 1 && ext[0] == '.' {
		return ext[1:]
	}
	return "bin"
}
