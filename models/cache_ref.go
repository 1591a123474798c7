package models

import (
	"time"
)

// CacheRef referenziert ein gecachtes Foto im Objektspeicher.
// StoredPath beginnt immer mit einem der erlaubten Präfixe und wird
// ausschließlich aus (Namespace, Datum, CacheKey, Extension) gebaut --
// nie durch Anhängen der Quell-URL.
type CacheRef struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CacheKey    string    `json:"cache_key" gorm:"uniqueIndex;size:64;not null"`
	StoredPath  string    `json:"stored_path" gorm:"size:512;not null"`
	SourceURL   string    `json:"source_url" gorm:"size:2048;not null"`
	ContentType string    `json:"content_type,omitempty" gorm:"size:128"`
	ByteSize    int64     `json:"byte_size"`
	FetchedAt   time.Time `json:"fetched_at"`
}

func (CacheRef) TableName() string { return "cache_refs" }

// ArtworkPhoto verknüpft ein Kunstwerk mit einem Cache-Eintrag.
// Cache-Einträge sind URL-adressiert und können von mehreren
// Kunstwerken geteilt werden.
type ArtworkPhoto struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ArtworkID  uint `json:"artwork_id" gorm:"index:idx_artwork_photos_pair,unique;not null"`
	CacheRefID uint `json:"cache_ref_id" gorm:"index:idx_artwork_photos_pair,unique;not null"`
	Position   int  `json:"position" gorm:"not null;default:0"`
}

func (ArtworkPhoto) TableName() string { return "artwork_photos" }
