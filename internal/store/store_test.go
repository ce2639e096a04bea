package store

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/Tarunkasliwal/qpg/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:", slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testBank(units ...string) model.Bank {
	var b model.Bank
	for _, label := range units {
		u := model.Unit{Label: label, Title: label + ": Topic"}
		buckets := model.NewTierBuckets()
		for _, t := range model.Tiers {
			for i := range 3 {
				buckets[t] = append(buckets[t], model.Question{
					Unit:  label,
					Text:  label + " q" + t.String() + "-" + string(rune('a'+i)),
					Marks: t,
				})
			}
		}
		b = append(b, model.UnitQuestions{Unit: u, Buckets: buckets})
	}
	return b
}

func TestReplaceAndBank(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	count, err := s.QuestionCount(ctx)
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 questions, got %d", count)
	}

	n, err := s.ReplaceQuestions(ctx, testBank("Unit 2", "Unit 1"))
	if err != nil {
		t.Fatalf("ReplaceQuestions: %v", err)
	}
	if n != 12 {
		t.Errorf("inserted %d, want 12", n)
	}

	bank, err := s.Bank(ctx)
	if err != nil {
		t.Fatalf("Bank: %v", err)
	}
	if got := bank.Labels(); len(got) != 2 || got[0] != "Unit 2" || got[1] != "Unit 1" {
		t.Fatalf("labels = %v, want [Unit 2 Unit 1]", got)
	}
	if bank[0].Unit.Title != "Unit 2: Topic" {
		t.Errorf("title = %q", bank[0].Unit.Title)
	}
	for _, uq := range bank {
		for _, tier := range model.Tiers {
			if uq.Count(tier) != 3 {
				t.Errorf("%s tier %s: %d questions, want 3", uq.Unit.Label, tier, uq.Count(tier))
			}
			for _, q := range uq.Buckets[tier] {
				if q.ID == 0 || q.Marks != tier || q.Unit != uq.Unit.Label {
					t.Errorf("bad stored question %+v", q)
				}
			}
		}
	}
	if first := bank[0].Buckets[model.Tier4][0].Text; first != "Unit 2 q4-a" {
		t.Errorf("first question = %q, want insertion order", first)
	}
}

func TestReplaceDiscardsPreviousBank(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.ReplaceQuestions(ctx, testBank("Unit 1", "Unit 2", "Unit 3")); err != nil {
		t.Fatalf("ReplaceQuestions: %v", err)
	}
	if _, err := s.ReplaceQuestions(ctx, testBank("Unit 9")); err != nil {
		t.Fatalf("ReplaceQuestions: %v", err)
	}
	list, err := s.ListQuestions(ctx)
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if len(list) != 6 {
		t.Fatalf("expected 6 questions, got %d", len(list))
	}
	for _, q := range list {
		if q.Unit != "Unit 9" {
			t.Errorf("stale question from %s", q.Unit)
		}
	}
}

func TestReplaceIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.ReplaceQuestions(ctx, testBank("Unit 1")); err != nil {
		t.Fatalf("ReplaceQuestions: %v", err)
	}

	bad := testBank("Unit 2")
	bad[0].Buckets[model.Tier6][2].Marks = 5

	if _, err := s.ReplaceQuestions(ctx, bad); err == nil {
		t.Fatal("expected CHECK constraint failure")
	}

	list, err := s.ListQuestions(ctx)
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if len(list) != 6 || list[0].Unit != "Unit 1" {
		t.Errorf("failed replace changed the store: %d questions", len(list))
	}
}

func TestGenerationInfo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	info, err := s.GenerationInfo(ctx)
	if err != nil {
		t.Fatalf("GenerationInfo: %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil info on empty store, got %+v", info)
	}

	want := model.GenerationInfo{
		SyllabusFile:  "syllabus.pdf",
		SyllabusHash:  "abc123",
		Model:         "llama3.2",
		PromptVariant: "strict",
		GeneratedAt:   time.Date(2024, 11, 23, 10, 0, 0, 0, time.UTC),
	}
	if err := s.SetGenerationInfo(ctx, want); err != nil {
		t.Fatalf("SetGenerationInfo: %v", err)
	}
	got, err := s.GenerationInfo(ctx)
	if err != nil {
		t.Fatalf("GenerationInfo: %v", err)
	}
	if got == nil || *got != want {
		t.Errorf("GenerationInfo = %+v, want %+v", got, want)
	}

	if err := s.SetMetadata(ctx, "model", "mistral"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if v, _ := s.GetMetadata(ctx, "model"); v != "mistral" {
		t.Errorf("GetMetadata(model) = %q, want mistral", v)
	}
	if v, err := s.GetMetadata(ctx, "missing"); err != nil || v != "" {
		t.Errorf("GetMetadata(missing) = %q, %v", v, err)
	}
}

func TestExportBank(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bank := testBank("Unit 1")
	bank[0].Buckets[model.Tier4][0].Text = "Define bandwidth. [CO:1] [BT:2]"
	if _, err := s.ReplaceQuestions(ctx, bank); err != nil {
		t.Fatalf("ReplaceQuestions: %v", err)
	}

	exp, err := s.ExportBank(ctx)
	if err != nil {
		t.Fatalf("ExportBank: %v", err)
	}
	if exp.NumUnits != 1 || exp.NumTotal != 6 {
		t.Errorf("export counts = %d units, %d questions", exp.NumUnits, exp.NumTotal)
	}
	if exp.Generation != nil {
		t.Error("expected no generation info")
	}
	q := exp.Units[0].Questions[0]
	if q.Text != "Define bandwidth." || q.CO != 1 || q.BT != 2 || q.Marks != 4 {
		t.Errorf("first exported question = %+v", q)
	}
}
