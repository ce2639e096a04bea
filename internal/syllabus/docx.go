package syllabus

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXExtractor emits one line per non-empty paragraph and one line per
// table row, with cell texts joined by spaces.
type DOCXExtractor struct{}

func (DOCXExtractor) Extract(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", err
	}
	doc, err := docx.Parse(f, st.Size())
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var buf strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			if text := paragraphText(it); text != "" {
				buf.WriteString(text)
				buf.WriteString("\n")
			}
		case *docx.Table:
			writeTable(&buf, it)
		}
	}
	return buf.String(), nil
}

func writeTable(buf *strings.Builder, tbl *docx.Table) {
	for _, row := range tbl.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			for _, para := range cell.Paragraphs {
				if text := paragraphText(para); text != "" {
					cells = append(cells, text)
				}
			}
			for _, nested := range cell.Tables {
				writeTable(buf, nested)
			}
		}
		if len(cells) > 0 {
			buf.WriteString(strings.Join(cells, " "))
			buf.WriteString("\n")
		}
	}
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
