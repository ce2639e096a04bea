package views

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Tarunkasliwal/qpg/internal/i18n"
	"github.com/Tarunkasliwal/qpg/internal/model"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func render(t *testing.T, d IndexData) string {
	t.Helper()
	var b strings.Builder
	if err := IndexPage(d).Render(context.Background(), &b); err != nil {
		t.Fatalf("render: %v", err)
	}
	return b.String()
}

func TestIndexPage(t *testing.T) {
	tests := []struct {
		name    string
		data    IndexData
		want    []string
		notWant []string
	}{
		{
			name: "empty bank",
			data: IndexData{NumPapers: 3, Extensions: []string{".docx", ".pdf"}},
			want: []string{
				"<!doctype html>",
				"<title>Question Paper Generator</title>",
				"<p>No questions in the bank yet.</p>",
				`accept=".docx,.pdf" required>`,
				`name="count" min="1" max="100" value="3">`,
				`<script>`,
			},
			notWant: []string{"Last generated"},
		},
		{
			name: "escapes generation details",
			data: IndexData{
				QuestionCount: 1,
				NumPapers:     5,
				Generation: &model.GenerationInfo{
					SyllabusFile: "<b>notes</b>.pdf",
					Model:        "llama3",
					GeneratedAt:  time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
				},
			},
			want: []string{
				"<p>1 question in the bank.</p>",
				"&lt;b&gt;notes&lt;/b&gt;.pdf",
				"2025-03-01 09:30",
				`value="5"`,
			},
			notWant: []string{"<b>notes</b>"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, tt.data)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("page missing %q", w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("page contains %q", w)
				}
			}
		})
	}
}

func TestIndexPageLocalized(t *testing.T) {
	ctx := i18n.WithLocalizer(context.Background(), i18n.NewLocalizer("es"))
	var b strings.Builder
	if err := IndexPage(IndexData{}).Render(ctx, &b); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(b.String(), "Todavía no hay preguntas en el banco.") {
		t.Errorf("page not localized: %s", b.String())
	}
}
