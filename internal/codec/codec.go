package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Importer interface for reading network documents from various formats
type Importer interface {
	Parse(r io.Reader) (*Document, error)
	Format() string
}

// Exporter interface for writing network documents to various formats
type Exporter interface {
	Export(doc *Document, w io.Writer) error
	Format() string
}

// Codec both imports and exports one format
type Codec interface {
	Importer
	Exporter
}

// Formats lists the supported format identifiers
func Formats() []string {
	return []string{"json", "yaml"}
}

// ForFormat returns the codec for a format identifier
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// ForPath returns the codec matching a file extension
func ForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("cannot determine format of %q", path)
	}
	return ForFormat(ext)
}

// ForContentType returns the codec for an HTTP content type, defaulting to JSON
func ForContentType(contentType string) Codec {
	if strings.Contains(contentType, "yaml") {
		return NewYAMLCodec()
	}
	return NewJSONCodec()
}
