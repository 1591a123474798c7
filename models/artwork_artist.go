package models

import (
	"time"
)

// ArtworkArtist modelliert die m:n-Relation Kunstwerk <-> Künstler.
// Ein Kunstwerk ohne Links ist ein gültiger Zustand ("Unknown artist"
// ist eine reine Darstellungsregel der Aufrufer).
type ArtworkArtist struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ArtworkID uint `json:"artwork_id" gorm:"index:idx_artwork_artists_pair,unique;not null"`
	ArtistID  uint `json:"artist_id" gorm:"index:idx_artwork_artists_pair,unique;not null"`

	// Reihenfolge der Nennung aus der Quelle
	Position int `json:"position" gorm:"not null;default:0"`
}

func (ArtworkArtist) TableName() string { return "artwork_artists" }
