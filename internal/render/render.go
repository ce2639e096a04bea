// Package render turns assembled papers into PDF or HTML documents and writes
// a paper set to disk.
package render

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Tarunkasliwal/qpg/internal/model"
)

// Output formats.
const (
	FormatPDF  = "pdf"
	FormatHTML = "html"
)

// Layouts.
const (
	// LayoutTable prints one row per question with CO, BT and marks columns.
	LayoutTable = "table"
	// LayoutList prints each unit title followed by its numbered questions.
	LayoutList = "list"
)

// Renderer writes one paper as a complete document.
type Renderer interface {
	Render(w io.Writer, p model.Paper, h model.PaperHeader) error
	Ext() string
}

// Labels holds the fixed strings printed on a paper.
type Labels struct {
	Course       string
	Instructor   string
	Date         string
	Paper        string
	QuestionNo   string
	Subquestion  string
	QuestionText string
	CO           string
	BT           string
	Marks        string
	MarksSuffix  string
}

// DefaultLabels returns the English labels.
func DefaultLabels() Labels {
	return Labels{
		Course:       "Course",
		Instructor:   "Instructor",
		Date:         "Date",
		Paper:        "Paper",
		QuestionNo:   "Question No",
		Subquestion:  "Subquestion",
		QuestionText: "Question Text",
		CO:           "CO",
		BT:           "BT",
		Marks:        "Marks",
		MarksSuffix:  "marks",
	}
}

// IsValidFormat checks if a format name is valid.
func IsValidFormat(f string) bool { return f == FormatPDF || f == FormatHTML }

// IsValidLayout checks if a layout name is valid.
func IsValidLayout(l string) bool { return l == LayoutTable || l == LayoutList }

// New returns the renderer for format and layout.
func New(format, layout string, labels Labels) (Renderer, error) {
	if !IsValidLayout(layout) {
		return nil, fmt.Errorf("unknown paper layout %q", layout)
	}
	switch format {
	case FormatPDF:
		return &PDFRenderer{layout: layout, labels: labels, compress: true}, nil
	case FormatHTML:
		return &HTMLRenderer{layout: layout, labels: labels}, nil
	default:
		return nil, fmt.Errorf("unknown paper format %q", format)
	}
}

// FileName returns the file name for paper n.
func FileName(n int, ext string) string {
	return "question_paper_" + strconv.Itoa(n) + "." + ext
}

// row is one question line of a paper.
type row struct {
	Number string // "1a"
	Sub    string // "a"
	Text   string
	CO     string
	BT     string
	Marks  string
}

// unitRows returns the question rows for each selection, tags split out.
func unitRows(p model.Paper) [][]row {
	out := make([][]row, 0, len(p.Selections))
	for i, sel := range p.Selections {
		var rows []row
		for j, t := range model.Tiers {
			q, ok := sel.Questions[t]
			if !ok {
				continue
			}
			text, tags := q.Tags()
			sub := string(rune('a' + j))
			rows = append(rows, row{
				Number: strconv.Itoa(i+1) + sub,
				Sub:    sub,
				Text:   text,
				CO:     tagValue(tags.CO),
				BT:     tagValue(tags.BT),
				Marks:  t.String(),
			})
		}
		out = append(out, rows)
	}
	return out
}

func tagValue(v int) string {
	if v == 0 {
		return "N/A"
	}
	return strconv.Itoa(v)
}

// WritePapers renders every paper into memory and only then writes the files
// into dir, each through a temporary file and a rename. A render failure
// leaves dir untouched. It returns the written file names in paper order.
func WritePapers(dir string, r Renderer, papers []model.Paper, h model.PaperHeader, log *slog.Logger) ([]string, error) {
	if log == nil {
		log = slog.Default()
	}
	bufs := make([]*bytes.Buffer, len(papers))
	for i, p := range papers {
		var buf bytes.Buffer
		if err := r.Render(&buf, p, h); err != nil {
			return nil, fmt.Errorf("render paper %d: %w", p.Number, err)
		}
		bufs[i] = &buf
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	temps := make([]string, 0, len(papers))
	cleanup := func() {
		for _, t := range temps {
			os.Remove(t)
		}
	}
	for i, p := range papers {
		f, err := os.CreateTemp(dir, ".paper-*.tmp")
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("create temp file: %w", err)
		}
		temps = append(temps, f.Name())
		if _, err := bufs[i].WriteTo(f); err != nil {
			f.Close()
			cleanup()
			return nil, fmt.Errorf("write paper %d: %w", p.Number, err)
		}
		if err := f.Close(); err != nil {
			cleanup()
			return nil, fmt.Errorf("close paper %d: %w", p.Number, err)
		}
	}

	names := make([]string, 0, len(papers))
	for i, p := range papers {
		name := FileName(p.Number, r.Ext())
		if err := os.Rename(temps[i], filepath.Join(dir, name)); err != nil {
			cleanup()
			return nil, fmt.Errorf("rename paper %d: %w", p.Number, err)
		}
		names = append(names, name)
		log.Info("paper written", "file", name)
	}
	return names, nil
}
