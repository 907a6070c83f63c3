package models

import "strings"

// ManifestFormat enumerates supported run manifest encodings.
type ManifestFormat string

const (
	ManifestFormatCSV ManifestFormat = "csv"
	ManifestFormatPDF ManifestFormat = "pdf"
)

// ParseManifestFormat normalises user input, defaulting to CSV.
func ParseManifestFormat(raw string) (ManifestFormat, bool) {
	switch ManifestFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ManifestFormatCSV:
		return ManifestFormatCSV, true
	case ManifestFormatPDF:
		return ManifestFormatPDF, true
	default:
		return "", false
	}
}

// ContentType returns the MIME type served for the format.
func (f ManifestFormat) ContentType() string {
	if f == ManifestFormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}
