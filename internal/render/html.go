package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/Tarunkasliwal/qpg/internal/model"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ")

// HTMLRenderer renders papers as standalone HTML pages via Markdown.
type HTMLRenderer struct {
	layout string
	labels Labels
}

func (r *HTMLRenderer) Ext() string { return FormatHTML }

func (r *HTMLRenderer) Render(w io.Writer, p model.Paper, h model.PaperHeader) error {
	var md bytes.Buffer
	r.markdown(&md, p, h)

	var body bytes.Buffer
	if err := markdown.Convert(md.Bytes(), &body); err != nil {
		return fmt.Errorf("convert markdown: %w", err)
	}

	title := html.EscapeString(h.Title)
	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; max-width: 50em; margin: 2em auto; }
table { border-collapse: collapse; width: 100%%; }
th { background: #808080; color: #f5f5f5; }
th, td { border: 1px solid #000; padding: 4px; text-align: left; }
tbody tr:nth-child(even) { background: #d3d3d3; }
</style>
</head>
<body>
%s</body>
</html>
`, title, body.String())
	return err
}

func (r *HTMLRenderer) markdown(md *bytes.Buffer, p model.Paper, h model.PaperHeader) {
	fmt.Fprintf(md, "# %s\n\n", h.Title)
	if h.Course != "" {
		fmt.Fprintf(md, "**%s:** %s  \n", r.labels.Course, h.Course)
	}
	if h.Instructor != "" {
		fmt.Fprintf(md, "**%s:** %s  \n", r.labels.Instructor, h.Instructor)
	}
	if h.Date != "" {
		fmt.Fprintf(md, "**%s:** %s  \n", r.labels.Date, h.Date)
	}
	fmt.Fprintf(md, "\n## %s %d\n\n", r.labels.Paper, p.Number)

	if r.layout == LayoutList {
		for _, sel := range p.Selections {
			fmt.Fprintf(md, "### %s\n\n", sel.Unit.Title)
			for i, t := range model.Tiers {
				q, ok := sel.Questions[t]
				if !ok {
					continue
				}
				text, _ := q.Tags()
				fmt.Fprintf(md, "%d. %s (%s %s)\n", i+1, text, t, r.labels.MarksSuffix)
			}
			md.WriteString("\n")
		}
		return
	}

	fmt.Fprintf(md, "| %s | %s | %s | %s | %s | %s |\n",
		r.labels.QuestionNo, r.labels.Subquestion, r.labels.QuestionText,
		r.labels.CO, r.labels.BT, r.labels.Marks)
	md.WriteString("|---|---|---|---|---|---|\n")
	for _, rows := range unitRows(p) {
		for _, rw := range rows {
			fmt.Fprintf(md, "| %s | %s | %s | %s | %s | %s |\n",
				rw.Number, rw.Sub, cellEscaper.Replace(rw.Text), rw.CO, rw.BT, rw.Marks)
		}
	}
}
