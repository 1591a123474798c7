package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"art-registry/models"
)

// SchemaViolationError meldet einen Tag-Schlüssel oder -Wert, den das
// Schema nicht kennt. Der betroffene Datensatz wird übersprungen und
// für die Schema-Pflege protokolliert.
type SchemaViolationError struct {
	Key    string
	Value  string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation for key %q: %s", e.Key, e.Reason)
}

// keyDef ist die entpackte Form einer TagKey-Zeile.
type keyDef struct {
	valueType  string
	enumValues []string
}

// Registry ist das injizierte, versionierte Tag-Schema. Es wird beim
// Start eines Imports aus den tag_keys-Zeilen gebaut und explizit an
// den Normalizer übergeben -- kein prozessweiter Singleton.
type Registry struct {
	version int
	keys    map[string]keyDef
}

// NewRegistry baut ein Registry-Objekt aus TagKey-Zeilen. Die höchste
// SchemaVersion der Zeilen wird als Schema-Version geführt.
func NewRegistry(rows []models.TagKey) (*Registry, error) {
	r := &Registry{keys: make(map[string]keyDef, len(rows))}
	for _, row := range rows {
		def := keyDef{valueType: row.ValueType}
		if row.ValueType == models.TagTypeEnum {
			if err := json.Unmarshal(row.EnumValues, &def.enumValues); err != nil {
				return nil, fmt.Errorf("tag key %q: invalid enum values: %w", row.Key, err)
			}
		}
		r.keys[row.Key] = def
		if row.SchemaVersion > r.version {
			r.version = row.SchemaVersion
		}
	}
	return r, nil
}

// Version gibt die Schema-Version zurück.
func (r *Registry) Version() int { return r.version }

// Has prüft, ob der Schlüssel im Schema existiert.
func (r *Registry) Has(key string) bool {
	_, ok := r.keys[key]
	return ok
}

// Keys gibt die Anzahl der bekannten Schlüssel zurück.
func (r *Registry) Keys() int { return len(r.keys) }

// Coerce validiert einen Rohwert gegen den Schlüsseltyp und gibt die
// kanonische String-Form zurück. Unbekannte Schlüssel und ungültige
// Werte liefern einen SchemaViolationError.
func (r *Registry) Coerce(key string, value any) (string, error) {
	def, ok := r.keys[key]
	if !ok {
		return "", &SchemaViolationError{Key: key, Reason: "unknown tag key"}
	}

	s := stringify(value)
	if s == "" {
		return "", nil
	}

	switch def.valueType {
	case models.TagTypeNumber:
		// Numerische Werte müssen parsebar sein; ein Einheiten-Suffix
		// aus der Quelle (z.B. "3.5 m") bleibt erhalten.
		numPart, suffix := splitUnitSuffix(s)
		if _, err := strconv.ParseFloat(numPart, 64); err != nil {
			return "", &SchemaViolationError{Key: key, Value: s, Reason: "not a number"}
		}
		return trimTrailingZeros(numPart) + suffix, nil
	case models.TagTypeEnum:
		for _, allowed := range def.enumValues {
			if strings.EqualFold(s, allowed) {
				return allowed, nil
			}
		}
		return "", &SchemaViolationError{Key: key, Value: s, Reason: "value not in enum"}
	default:
		return s, nil
	}
}

// stringify bringt Skalarwerte aus JSON-Payloads in String-Form.
// Zahlen werden ohne überflüssige Dezimalstellen formatiert
// (Legacy-Migration numerischer Felder auf String-Schlüssel).
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return trimTrailingZeros(strconv.FormatFloat(v, 'f', -1, 64))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// splitUnitSuffix trennt "3.50 m" in Zahlteil und Suffix.
func splitUnitSuffix(s string) (string, string) {
	s = strings.TrimSpace(s)
	end := len(s)
	for i, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '+' {
			continue
		}
		end = i
		break
	}
	return s[:end], s[end:]
}

// trimTrailingZeros entfernt überflüssige Dezimal-Nullen ("3.50" -> "3.5",
// "4.0" -> "4").
func trimTrailingZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
