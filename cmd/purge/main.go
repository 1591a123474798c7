package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kelseyhightower/envconfig"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"art-registry/models"
)

// PurgeConfig konfiguriert den manuellen Cache-Purge. Die Retention
// des Media-Caches ist unbegrenzt; dieses Tool ist der einzige Weg,
// Einträge zu entfernen -- DB-Zeile und S3-Objekt immer zusammen.
type PurgeConfig struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	S3Key    string `envconfig:"S3_KEY" required:"true"`
	S3Secret string `envconfig:"S3_SECRET" required:"true"`
	S3URL    string `envconfig:"S3_URL" required:"true"`
	S3Region string `envconfig:"S3_REGION" required:"true"`
	S3Bucket string `envconfig:"S3_BUCKET" required:"true"`

	MaxAgeDays int  `envconfig:"PURGE_MAX_AGE_DAYS" default:"365"`
	DryRun     bool `envconfig:"PURGE_DRY_RUN" default:"false"`
}

func main() {
	log.Println("Starte Cache-Purge...")

	var cfg PurgeConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Fehler beim Laden der Konfiguration: %v", err)
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Fehler beim Verbinden mit der Datenbank: %v", err)
	}

	s3Client, err := createS3Client(cfg)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des S3-Clients: %v", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -cfg.MaxAgeDays)
	log.Printf("Lösche Cache-Einträge älter als %s (dry_run=%v)", cutoff.Format(time.RFC3339), cfg.DryRun)

	var refs []models.CacheRef
	if err := db.Where("fetched_at < ?", cutoff).Find(&refs).Error; err != nil {
		log.Fatalf("Fehler beim Abrufen der Cache-Einträge: %v", err)
	}
	if len(refs) == 0 {
		log.Println("Keine Einträge zu löschen.")
		return
	}

	deleted := 0
	for _, ref := range refs {
		if cfg.DryRun {
			log.Printf("Würde löschen: %s (%s)", ref.StoredPath, ref.SourceURL)
			continue
		}
		// Erst das Objekt, dann Links und Zeile: kein CacheRef darf auf
		// ein gelöschtes Objekt zeigen, die umgekehrte Lücke heilt der
		// nächste Import.
		_, err := s3Client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
			Bucket: aws.String(cfg.S3Bucket),
			Key:    aws.String(ref.StoredPath),
		})
		if err != nil {
			log.Printf("Fehler beim Löschen von %s: %v", ref.StoredPath, err)
			continue
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("cache_ref_id = ?", ref.ID).Delete(&models.ArtworkPhoto{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.CacheRef{}, ref.ID).Error
		})
		if err != nil {
			log.Printf("Fehler beim Löschen der Cache-Zeile %d: %v", ref.ID, err)
			continue
		}
		deleted++
	}

	log.Printf("Cache-Purge abgeschlossen: %d von %d Einträgen gelöscht.", deleted, len(refs))
}

func createS3Client(cfg PurgeConfig) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               cfg.S3URL,
			SigningRegion:     cfg.S3Region,
			HostnameImmutable: true,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3Key, cfg.S3Secret, "")),
		awsconfig.WithRegion(cfg.S3Region),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}
