package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"art-registry/config"
	"art-registry/models"
	"art-registry/services"
	"art-registry/sources"
	"art-registry/sources/burnaby"
	"art-registry/sources/vancouver"
	"art-registry/storage"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	importedArtworksCounter   prometheus.Counter
	mediaFetchFailuresCounter prometheus.Counter
	rejectedImagePathsCounter prometheus.Counter
)

func init() {
	importedArtworksCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "imported_artworks_total",
			Help: "Total number of new artworks persisted by import batches.",
		},
	)
	mediaFetchFailuresCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "media_fetch_failures_total",
			Help: "Total number of photos that could not be cached.",
		},
	)
	rejectedImagePathsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rejected_image_paths_total",
			Help: "Total number of image proxy requests rejected by path validation.",
		},
	)
	prometheus.MustRegister(importedArtworksCounter, mediaFetchFailuresCounter, rejectedImagePathsCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to registry database.")

	logging.Info("Running database auto-migration...")
	db.AutoMigrate(
		&models.Artwork{},
		&models.Artist{},
		&models.ArtworkArtist{},
		&models.CacheRef{},
		&models.ArtworkPhoto{},
		&models.TagKey{},
		&models.ImportRun{},
	)

	// Seeding
	seedDefaultTagKeys(db, logging)

	// Setup Sources
	enabledSourceNames := strings.Split(cfg.EnabledSources, ",")
	var enabledSources []sources.Source
	for _, name := range enabledSourceNames {
		switch strings.TrimSpace(name) {
		case "vancouver":
			enabledSources = append(enabledSources, vancouver.NewAdapter(cfg, logging))
		case "burnaby":
			enabledSources = append(enabledSources, burnaby.NewAdapter(cfg, logging))
		default:
			logging.Warn("Unknown source in config", zap.String("source_name", name))
		}
	}
	if len(enabledSources) == 0 {
		logging.Fatal("No valid sources enabled. Check ENABLED_SOURCES in .env")
	}
	logging.Info("Active sources loaded", zap.Strings("sources", enabledSourceNames))

	// Setup Services
	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}
	mediaCache := services.NewMediaCache(cfg, db, s3Client, logging)
	importService := services.NewImportService(cfg, db, mediaCache, logging, enabledSources)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Routes
	setupImageRoutes(router, cfg, s3Client, logging)
	setupImportRoutes(router, db, importService, logging)
	setupArtworkRoutes(router, db, logging)
	setupArtistRoutes(router, db, logging)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled import job...")
		summaries, err := importService.RunAll(context.Background())
		if err != nil {
			logging.Error("Cron job failed", zap.Error(err))
			return
		}
		for _, summary := range summaries {
			importedArtworksCounter.Add(float64(summary.Persisted))
			mediaFetchFailuresCounter.Add(float64(summary.MediaErrors))
		}
		logging.Info("Cron job completed", zap.Int("batches", len(summaries)))
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// imageError schreibt den strukturierten JSON-Fehlerkörper des Proxys.
func imageError(c *gin.Context, status int, kind, message string) {
	c.JSON(status, gin.H{
		"error":        kind,
		"message":      message,
		"details":      gin.H{},
		"show_details": false,
	})
}

var validImageSizes = map[string]bool{
	"thumb":    true,
	"medium":   true,
	"original": true,
}

// setupImageRoutes konfiguriert den validierenden Image-Proxy. Der
// Proxy ist zustandslos, schreibt nie und ist mit unbegrenzter
// Lese-Parallelität aufrufbar.
func setupImageRoutes(router *gin.Engine, cfg *config.Config, s3Client *s3.Client, log *zap.Logger) {
	rg := router.Group("/api/images")

	rg.GET("/:size/*path", func(c *gin.Context) {
		size := c.Param("size")
		if !validImageSizes[size] {
			imageError(c, http.StatusBadRequest, services.KindMalformedImagePath,
				fmt.Sprintf("unknown image size %q", size))
			return
		}

		// Struktur- und Präfix-Prüfung; fängt insbesondere Pfade mit
		// eingebetteter absoluter URL ab ("medium/https://...")
		path, err := services.ValidateImagePath(c.Param("path"))
		if err != nil {
			rejectedImagePathsCounter.Inc()
			var prefixErr *services.InvalidImagePrefixError
			var malformedErr *services.MalformedImagePathError
			switch {
			case errors.As(err, &malformedErr):
				log.Warn("Malformed image path rejected", zap.String("path", c.Param("path")), zap.String("reason", malformedErr.Reason))
				imageError(c, http.StatusBadRequest, malformedErr.Kind(), malformedErr.Error())
			case errors.As(err, &prefixErr):
				log.Warn("Image path with invalid prefix rejected", zap.String("path", c.Param("path")))
				imageError(c, http.StatusBadRequest, prefixErr.Kind(), prefixErr.Error())
			default:
				imageError(c, http.StatusBadRequest, services.KindMalformedImagePath, err.Error())
			}
			return
		}

		data, contentType, err := storage.DownloadFile(c.Request.Context(), s3Client, cfg.S3Bucket, path)
		if err != nil {
			log.Warn("Image not found in cache storage", zap.String("path", path), zap.Error(err))
			imageError(c, http.StatusNotFound, services.KindImageNotFound, "image not found")
			return
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Cache-Control", "public, max-age=86400")
		c.Data(http.StatusOK, contentType, data)
	})
}

// setupImportRoutes konfiguriert die Batch-Trigger-Endpunkte.
func setupImportRoutes(router *gin.Engine, db *gorm.DB, importService *services.ImportService, log *zap.Logger) {
	rg := router.Group("/imports")

	// Alle Quellen, asynchron
	rg.POST("/run", func(c *gin.Context) {
		go func() {
			summaries, err := importService.RunAll(context.Background())
			if err != nil {
				log.Error("Async all-source import failed", zap.Error(err))
				return
			}
			for _, summary := range summaries {
				importedArtworksCounter.Add(float64(summary.Persisted))
				mediaFetchFailuresCounter.Add(float64(summary.MediaErrors))
			}
			log.Info("Async all-source import completed", zap.Int("batches", len(summaries)))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Import for all sources triggered."})
	})

	// Einzelne Quelle; mit ?dry_run=true synchron validieren und berichten
	rg.POST("/source/:name", func(c *gin.Context) {
		src := importService.SourceByName(c.Param("name"))
		if src == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
			return
		}

		if c.Query("dry_run") == "true" {
			summary, err := importService.RunSource(c.Request.Context(), src, true)
			if err != nil {
				log.Error("Dry-run import failed", zap.String("source", src.Name()), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
				return
			}
			c.JSON(http.StatusOK, summary)
			return
		}

		go func() {
			summary, err := importService.RunSource(context.Background(), src, false)
			if err != nil {
				log.Error("Async single-source import failed", zap.String("source", src.Name()), zap.Error(err))
				return
			}
			importedArtworksCounter.Add(float64(summary.Persisted))
			mediaFetchFailuresCounter.Add(float64(summary.MediaErrors))
			log.Info("Async single-source import completed",
				zap.String("source", src.Name()),
				zap.Int("persisted", summary.Persisted),
				zap.Int("failed", summary.Failed))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": fmt.Sprintf("Import for source %s triggered.", src.Name())})
	})

	// Protokoll der letzten Läufe
	rg.GET("/runs", func(c *gin.Context) {
		var runs []models.ImportRun
		if err := db.Order("started_at desc").Limit(50).Find(&runs).Error; err != nil {
			log.Error("Database query for import runs failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, runs)
	})
}

// setupArtworkRoutes konfiguriert die Lese- und Kurations-Endpunkte
// für Kunstwerke.
func setupArtworkRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/artworks")

	rg.GET("/", func(c *gin.Context) {
		var artworks []models.Artwork
		if err := db.Order("created_at desc").Limit(200).Find(&artworks).Error; err != nil {
			log.Error("Database query for artworks failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, artworks)
	})

	// Body-gesteuerter Endpunkt für komplexere Abfragen
	rg.POST("/query", func(c *gin.Context) {
		type ArtworkQuery struct {
			Source   string `json:"source"`
			ArtistID uint   `json:"artist_id"`
			TagKey   string `json:"tag_key"`
			TagValue string `json:"tag_value"`
			Limit    int    `json:"limit"`
		}

		var req ArtworkQuery
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		query := db.Model(&models.Artwork{})

		if req.Source != "" {
			query = query.Where("source = ?", req.Source)
		}
		if req.ArtistID != 0 {
			query = query.Joins("JOIN artwork_artists aa ON aa.artwork_id = artworks.id").
				Where("aa.artist_id = ?", req.ArtistID)
		}
		if req.TagKey != "" && req.TagValue != "" {
			query = query.Where("tags->>? = ?", req.TagKey, req.TagValue)
		}
		if req.Limit > 0 {
			query = query.Limit(req.Limit)
		}

		var artworks []models.Artwork
		if err := query.Order("created_at desc").Find(&artworks).Error; err != nil {
			log.Error("Database query for artworks failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, artworks)
	})

	// Einzelnes Kunstwerk inklusive Künstlern und Fotos
	rg.GET("/:id", func(c *gin.Context) {
		id := c.Param("id")
		var artwork models.Artwork
		if err := db.First(&artwork, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "artwork not found"})
				return
			}
			log.Error("DB error fetching artwork", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		// Künstler in Nennungs-Reihenfolge; leere Liste ist gültig
		// (Darstellung als "Unknown artist" ist Sache der Aufrufer)
		if err := db.
			Joins("JOIN artwork_artists aa ON aa.artist_id = artists.id").
			Where("aa.artwork_id = ?", artwork.ID).
			Order("aa.position").
			Find(&artwork.Artists).Error; err != nil {
			log.Warn("Failed to fetch artists for artwork", zap.String("id", id), zap.Error(err))
		}
		if err := db.
			Joins("JOIN artwork_photos ap ON ap.cache_ref_id = cache_refs.id").
			Where("ap.artwork_id = ?", artwork.ID).
			Order("ap.position").
			Find(&artwork.Photos).Error; err != nil {
			log.Warn("Failed to fetch photos for artwork", zap.String("id", id), zap.Error(err))
		}

		c.JSON(http.StatusOK, artwork)
	})

	// Kurations-Aktion: einzelnen Künstler-Link entfernen. Die
	// Artist-Zeile selbst bleibt bestehen, auch wenn sie sonst
	// nirgends mehr verlinkt ist.
	rg.DELETE("/:id/artists/:artistID", func(c *gin.Context) {
		id := c.Param("id")
		artistID := c.Param("artistID")

		res := db.Where("artwork_id = ? AND artist_id = ?", id, artistID).Delete(&models.ArtworkArtist{})
		if res.Error != nil {
			log.Error("Failed to remove artist link", zap.String("artwork_id", id), zap.String("artist_id", artistID), zap.Error(res.Error))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
			return
		}
		log.Info("Artist link removed", zap.String("artwork_id", id), zap.String("artist_id", artistID))
		c.JSON(http.StatusOK, gin.H{"message": "link removed"})
	})
}

// setupArtistRoutes konfiguriert die Lese-Endpunkte für Künstler.
func setupArtistRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/artists")

	rg.GET("/", func(c *gin.Context) {
		var artists []models.Artist
		if err := db.Order("name").Limit(500).Find(&artists).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, artists)
	})

	rg.GET("/:id/artworks", func(c *gin.Context) {
		id := c.Param("id")
		var artworks []models.Artwork
		if err := db.
			Joins("JOIN artwork_artists aa ON aa.artwork_id = artworks.id").
			Where("aa.artist_id = ?", id).
			Order("aa.position").
			Find(&artworks).Error; err != nil {
			log.Error("Database query for artist artworks failed", zap.String("artist_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, artworks)
	})
}

// seedDefaultTagKeys legt das initiale Tag-Schema an, falls die
// Tabelle leer ist. Schema-Änderungen laufen danach über die
// tag_keys-Tabelle, nicht über Code.
func seedDefaultTagKeys(db *gorm.DB, logger *zap.Logger) {
	var count int64
	db.Model(&models.TagKey{}).Count(&count)
	if count > 0 {
		return
	}
	keys := []models.TagKey{
		{Key: "material", ValueType: models.TagTypeString, SchemaVersion: 1},
		{Key: "start_date", ValueType: models.TagTypeString, SchemaVersion: 1},
		{Key: "dimensions", ValueType: models.TagTypeString, SchemaVersion: 1},
		{Key: "status", ValueType: models.TagTypeEnum, EnumValues: []byte(`["in place","removed","deaccessioned"]`), SchemaVersion: 1},
		{Key: "city", ValueType: models.TagTypeString, SchemaVersion: 1},
		{Key: "type", ValueType: models.TagTypeString, SchemaVersion: 1},
	}
	if err := db.Create(&keys).Error; err != nil {
		logger.Warn("Failed to seed default tag keys", zap.Error(err))
	} else {
		logger.Info("Default tag keys seeded.")
	}
}
