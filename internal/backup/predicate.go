package backup

import (
	"path/filepath"
	"strings"
	"time"
)

// Mode selects which files a pipeline run picks up and whether they are
// removed locally afterwards
type Mode string

const (
	ModeDaily           Mode = "daily"
	ModeCredentialStore Mode = "credential-store"
)

const (
	// DateLayout is the ISO calendar date used in file and container names
	DateLayout = "2006-01-02"

	archiveSuffix      = ".gz"
	structuredDataExt  = ".json"
	archiveMimeType    = "application/gz"
	structuredMimeType = "application/json"
	fallbackMimeType   = "application/octet-stream"
)

// Matches reports whether filename is selected for upload in mode.
//
// Daily: the name ends in ".gz" and contains referenceDate as YYYY-MM-DD
// (literal substring match). Credential-store: the extension is ".json" in
// any case; the date is ignored.
func Matches(filename string, mode Mode, referenceDate time.Time) bool {
	switch mode {
	case ModeDaily:
		return strings.HasSuffix(filename, archiveSuffix) &&
			strings.Contains(filename, referenceDate.Format(DateLayout))
	case ModeCredentialStore:
		return strings.EqualFold(filepath.Ext(filename), structuredDataExt)
	default:
		return false
	}
}

// MimeType returns the content type sent with an upload
func MimeType(filename string) string {
	switch {
	case strings.HasSuffix(filename, archiveSuffix):
		return archiveMimeType
	case strings.EqualFold(filepath.Ext(filename), structuredDataExt):
		return structuredMimeType
	default:
		return fallbackMimeType
	}
}
