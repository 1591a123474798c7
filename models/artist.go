package models

import (
	"time"
)

// Artist repräsentiert eine Künstlerin oder einen Künstler im Register.
// NormalizedName ist der Deduplizierungs-Schlüssel: case-gefaltet,
// Whitespace kollabiert. Pro normalisiertem Namen existiert höchstens
// eine Zeile (Unique-Constraint, nicht Check-then-Insert).
type Artist struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name           string `json:"name" gorm:"not null"`
	NormalizedName string `json:"-" gorm:"uniqueIndex;size:512;not null"`
}
