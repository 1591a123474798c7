package services

import (
	"fmt"
	"strings"
)

// Erlaubte Cache-Namespaces. Schreibseite (BuildCachePath) und
// Leseseite (ValidateImagePath) prüfen gegen dieselbe Liste.
var allowedNamespaces = []string{"artworks", "submissions", "originals", "photos"}

// Fehler-Kinds für den JSON-Fehlerkörper des Image-Proxys.
const (
	KindInvalidImagePrefix = "INVALID_IMAGE_PREFIX"
	KindMalformedImagePath = "MALFORMED_IMAGE_PATH"
	KindImageNotFound      = "IMAGE_NOT_FOUND"
)

// InvalidImagePrefixError meldet einen Pfad außerhalb der erlaubten
// Präfixe.
type InvalidImagePrefixError struct {
	Path string
}

func (e *InvalidImagePrefixError) Error() string {
	return fmt.Sprintf("image path %q does not start with an allowed prefix", e.Path)
}

// Kind gibt das ErrorKind für den JSON-Fehlerkörper zurück.
func (e *InvalidImagePrefixError) Kind() string { return KindInvalidImagePrefix }

// MalformedImagePathError meldet einen strukturell ungültigen Pfad,
// insbesondere eine zweite eingebettete absolute URL.
type MalformedImagePathError struct {
	Path   string
	Reason string
}

func (e *MalformedImagePathError) Error() string {
	return fmt.Sprintf("malformed image path %q: %s", e.Path, e.Reason)
}

// Kind gibt das ErrorKind für den JSON-Fehlerkörper zurück.
func (e *MalformedImagePathError) Kind() string { return KindMalformedImagePath }

// ValidateImagePath prüft einen angefragten Bildpfad und gibt ihn in
// kanonischer Form (ohne führenden Slash) zurück. Abgelehnt werden
// Pfade ohne erlaubtes Präfix sowie strukturell fehlgeformte Pfade --
// allen voran Pfade mit eingebetteter absoluter URL ("medium/https://..."),
// egal welche vorgelagerte Stufe den Wert produziert hat.
func ValidateImagePath(path string) (string, error) {
	p := strings.TrimPrefix(path, "/")
	if p == "" {
		return "", &MalformedImagePathError{Path: path, Reason: "empty path"}
	}
	if strings.Contains(p, "://") {
		return "", &MalformedImagePathError{Path: path, Reason: "embedded absolute url"}
	}
	if strings.Contains(p, "..") {
		return "", &MalformedImagePathError{Path: path, Reason: "path traversal"}
	}
	if strings.Contains(p, "\\") || strings.ContainsRune(p, 0) {
		return "", &MalformedImagePathError{Path: path, Reason: "illegal characters"}
	}

	for _, ns := range allowedNamespaces {
		if strings.HasPrefix(p, ns+"/") && len(p) > len(ns)+1 {
			return p, nil
		}
	}
	return "", &InvalidImagePrefixError{Path: path}
}
