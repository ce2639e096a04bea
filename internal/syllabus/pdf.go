package syllabus

import (
	"fmt"
	"log/slog"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFExtractor concatenates page text in page order.
type PDFExtractor struct {
	log *slog.Logger
}

func (p *PDFExtractor) Extract(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			p.log.Warn("no text found on page", "page", i)
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			p.log.Warn("failed to read page text", "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			p.log.Warn("no text found on page", "page", i)
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
		p.log.Debug("extracted text from page", "page", i)
	}
	return buf.String(), nil
}
