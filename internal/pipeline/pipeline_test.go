package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Tarunkasliwal/qpg/internal/llm"
	"github.com/Tarunkasliwal/qpg/internal/model"
	"github.com/Tarunkasliwal/qpg/internal/paper"
	"github.com/Tarunkasliwal/qpg/internal/parser"
	"github.com/Tarunkasliwal/qpg/internal/render"
	"github.com/Tarunkasliwal/qpg/internal/store"
	"github.com/Tarunkasliwal/qpg/internal/syllabus"
)

type fakeGenerator struct {
	out     string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.out, f.err
}

func (f *fakeGenerator) Ping(context.Context) error { return nil }
func (f *fakeGenerator) Model() string              { return "fake-model" }

func taggedOutput(units ...int) string {
	var sb strings.Builder
	for _, u := range units {
		fmt.Fprintf(&sb, "Unit %d: Topic %d\n", u, u)
		for i := 1; i <= 3; i++ {
			fmt.Fprintf(&sb, "%d. Four mark question %d.%d [CO:%d] [BT:2] (4 marks).\n", i, u, i, u)
		}
		for i := 4; i <= 6; i++ {
			fmt.Fprintf(&sb, "%d. Six mark question %d.%d [CO:%d] [BT:3] (6 marks).\n", i, u, i, u)
		}
	}
	return sb.String()
}

type fixture struct {
	svc   *Service
	store *store.Store
	gen   *fakeGenerator
	out   string
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	st, err := store.New(":memory:", log)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(t.TempDir(), "papers")
	}
	gen := &fakeGenerator{}
	clock := func() time.Time { return time.Date(2024, 11, 23, 9, 0, 0, 0, time.UTC) }
	svc := New(cfg, st, gen, log, WithRand(rand.New(rand.NewPCG(7, 7))), WithClock(clock))
	return &fixture{svc: svc, store: st, gen: gen, out: cfg.OutputDir}
}

func writeSyllabus(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write syllabus: %v", err)
	}
	return path
}

const twoUnitSyllabus = "Data Communications\nUnit 1: Data Transmission\nSignals.\nUnit 2: Error Detection\nParity.\n"

func TestGenerateQuestions(t *testing.T) {
	f := newFixture(t, Config{})
	f.gen.out = taggedOutput(1, 2)
	path := writeSyllabus(t, "syllabus.txt", twoUnitSyllabus)

	res, err := f.svc.GenerateQuestions(context.Background(), path, "syllabus.txt")
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if strings.Join(res.Units, ",") != "Unit 1,Unit 2" {
		t.Errorf("Units = %v", res.Units)
	}
	if res.Stored != 12 || res.Report.Accepted != 12 || res.Report.DroppedTotal() != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(f.gen.prompts) != 1 || !strings.Contains(f.gen.prompts[0], "- Unit 2") {
		t.Errorf("prompt did not list units: %v", f.gen.prompts)
	}

	ctx := context.Background()
	bank, err := f.store.Bank(ctx)
	if err != nil {
		t.Fatalf("Bank: %v", err)
	}
	if len(bank) != 2 || bank[0].Unit.Title != "Unit 1: Data Transmission" {
		t.Errorf("stored bank = %+v", bank.Labels())
	}
	info, err := f.store.GenerationInfo(ctx)
	if err != nil || info == nil {
		t.Fatalf("GenerationInfo: %v, %v", info, err)
	}
	if info.Model != "fake-model" || info.SyllabusFile != "syllabus.txt" || info.PromptVariant != "strict" {
		t.Errorf("generation info = %+v", info)
	}
	if info.SyllabusHash != ContentHashHex([]byte(twoUnitSyllabus)) {
		t.Error("syllabus hash mismatch")
	}
}

func TestGenerateQuestionsValidationKeepsStore(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	path := writeSyllabus(t, "syllabus.txt", twoUnitSyllabus)

	f.gen.out = taggedOutput(1, 2)
	if _, err := f.svc.GenerateQuestions(ctx, path, "syllabus.txt"); err != nil {
		t.Fatalf("first GenerateQuestions: %v", err)
	}

	// Unit 2 only gets questions with the wrong CO tag.
	f.gen.out = taggedOutput(1) + strings.ReplaceAll(taggedOutput(2), "[CO:2]", "[CO:5]")
	_, err := f.svc.GenerateQuestions(ctx, path, "syllabus.txt")
	var ve *parser.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *parser.ValidationError", err)
	}
	if got := ve.Labels(); len(got) != 1 || got[0] != "Unit 2" {
		t.Errorf("failing units = %v, want [Unit 2]", got)
	}

	n, err := f.store.QuestionCount(ctx)
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if n != 12 {
		t.Errorf("store changed after failed validation: %d questions", n)
	}
}

func TestGenerateQuestionsErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		genErr  error
		wantErr error
	}{
		{"unsupported format", "syllabus.odt", "Unit 1: A", nil, syllabus.ErrUnsupportedFormat},
		{"no units", "syllabus.txt", "Just an outline", nil, ErrNoUnits},
		{"upstream failure", "syllabus.txt", "Unit 1: A", llm.ErrUpstream, llm.ErrUpstream},
		{"protocol failure", "syllabus.txt", "Unit 1: A", llm.ErrProtocol, llm.ErrProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			f.gen.err = tt.genErr
			path := writeSyllabus(t, tt.file, tt.content)
			_, err := f.svc.GenerateQuestions(context.Background(), path, tt.file)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateQuestionsMissingFile(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.svc.GenerateQuestions(context.Background(), filepath.Join(t.TempDir(), "gone.txt"), "gone.txt")
	if !errors.Is(err, ErrSyllabus) {
		t.Errorf("error = %v, want ErrSyllabus", err)
	}
}

func TestGeneratePapers(t *testing.T) {
	for _, format := range []string{render.FormatPDF, render.FormatHTML} {
		t.Run(format, func(t *testing.T) {
			f := newFixture(t, Config{PaperFormat: format, Header: model.PaperHeader{Title: "Exam Question Paper"}})
			ctx := context.Background()
			f.gen.out = taggedOutput(1, 2)
			path := writeSyllabus(t, "syllabus.txt", twoUnitSyllabus)
			if _, err := f.svc.GenerateQuestions(ctx, path, "syllabus.txt"); err != nil {
				t.Fatalf("GenerateQuestions: %v", err)
			}

			names, err := f.svc.GeneratePapers(ctx, PaperRequest{})
			if err != nil {
				t.Fatalf("GeneratePapers: %v", err)
			}
			if len(names) != 3 {
				t.Fatalf("got %d papers, want 3", len(names))
			}
			for i, name := range names {
				want := render.FileName(i+1, format)
				if name != want {
					t.Errorf("name %d = %q, want %q", i, name, want)
				}
				if _, err := os.Stat(filepath.Join(f.out, name)); err != nil {
					t.Errorf("paper missing: %v", err)
				}
			}

			names, err = f.svc.GeneratePapers(ctx, PaperRequest{Count: 5})
			if err != nil || len(names) != 5 {
				t.Errorf("GeneratePapers(5) = %v, %v", names, err)
			}
		})
	}
}

func TestGeneratePapersInsufficient(t *testing.T) {
	f := newFixture(t, Config{QuestionsPerTier: 3})
	ctx := context.Background()

	_, err := f.svc.GeneratePapers(ctx, PaperRequest{})
	if !errors.Is(err, paper.ErrEmptyBank) {
		t.Fatalf("empty store: error = %v, want ErrEmptyBank", err)
	}

	bank := model.Bank{{
		Unit:    model.Unit{Label: "Unit 1", Title: "Unit 1: A"},
		Buckets: model.TierBuckets{model.Tier4: {{Unit: "Unit 1", Text: "q", Marks: model.Tier4}}, model.Tier6: {}},
	}}
	if _, err := f.store.ReplaceQuestions(ctx, bank); err != nil {
		t.Fatalf("ReplaceQuestions: %v", err)
	}
	_, err = f.svc.GeneratePapers(ctx, PaperRequest{})
	var ie *paper.InsufficientError
	if !errors.As(err, &ie) || ie.Units[0] != "Unit 1" {
		t.Fatalf("error = %v, want *paper.InsufficientError for Unit 1", err)
	}
	if entries, _ := os.ReadDir(f.out); len(entries) != 0 {
		t.Errorf("output dir has %d files after failure", len(entries))
	}
}

func TestContentHashHex(t *testing.T) {
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got := ContentHashHex([]byte("hello world")); got != want {
		t.Errorf("ContentHashHex = %q, want %q", got, want)
	}
}
