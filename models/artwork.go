package models

import (
	"time"
)

// Artwork repräsentiert ein persistiertes Kunstwerk im Register.
type Artwork struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Stabiler Import-Schlüssel: Quelle + externe ID
	Source     string `json:"source" gorm:"index:idx_artworks_source_external,unique;size:64;not null"`
	ExternalID string `json:"external_id" gorm:"index:idx_artworks_source_external,unique;size:128;not null"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	// Tags und Keywords als JSON, Schema-validiert beim Import
	Tags     []byte `json:"tags" gorm:"type:jsonb"`
	Keywords []byte `json:"keywords" gorm:"type:jsonb"`

	// Wird beim Lesen manuell über die Link-Tabelle befüllt
	Artists []Artist   `json:"artists,omitempty" gorm:"-"`
	Photos  []CacheRef `json:"photos,omitempty" gorm:"-"`
}
