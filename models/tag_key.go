package models

import (
	"time"
)

// Gültige Werttypen für Tag-Schlüssel.
const (
	TagTypeString = "string"
	TagTypeNumber = "number"
	TagTypeEnum   = "enum"
)

// TagKey ist ein Eintrag des versionierten Tag-Schemas. Das Schema wird
// unabhängig vom Pipeline-Code gepflegt; die Pipeline liest es beim
// Import und lehnt unbekannte Schlüssel ab.
type TagKey struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Key       string `json:"key" gorm:"uniqueIndex;size:128;not null"`
	ValueType string `json:"value_type" gorm:"size:16;not null;default:'string'"`

	// Nur für ValueType == "enum": erlaubte Werte als JSON-Array
	EnumValues []byte `json:"enum_values,omitempty" gorm:"type:jsonb"`

	SchemaVersion int `json:"schema_version" gorm:"not null;default:1"`
}

func (TagKey) TableName() string { return "tag_keys" }
