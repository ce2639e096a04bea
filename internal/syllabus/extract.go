// Package syllabus turns an uploaded syllabus document into plain text and
// finds the "Unit N" sections in it.
package syllabus

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported syllabus format")

// Extractor pulls plain text out of a document on disk.
type Extractor interface {
	Extract(path string) (string, error)
}

// SupportedExtensions lists the file extensions that can be extracted.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".html": true,
	".htm":  true,
	".txt":  true,
	".md":   true,
}

// IsSupported reports whether filename has an extractable extension.
func IsSupported(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ForFile returns the extractor for filename's extension.
func ForFile(filename string, log *slog.Logger) (Extractor, error) {
	if log == nil {
		log = slog.Default()
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFExtractor{log: log}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".md":
		return MarkdownExtractor{}, nil
	case ".txt":
		return textExtractor{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Extract reads the text of the document at path.
func Extract(path string, log *slog.Logger) (string, error) {
	ex, err := ForFile(path, log)
	if err != nil {
		return "", err
	}
	text, err := ex.Extract(path)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}
	return text, nil
}

type textExtractor struct{}

func (textExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
