// Package pipeline runs the two user-facing flows: syllabus to stored
// question bank, and stored bank to rendered paper set.
package pipeline

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/Tarunkasliwal/qpg/internal/llm"
	"github.com/Tarunkasliwal/qpg/internal/llm/prompts"
	"github.com/Tarunkasliwal/qpg/internal/model"
	"github.com/Tarunkasliwal/qpg/internal/paper"
	"github.com/Tarunkasliwal/qpg/internal/parser"
	"github.com/Tarunkasliwal/qpg/internal/render"
	"github.com/Tarunkasliwal/qpg/internal/syllabus"
)

var (
	// ErrNoUnits means the syllabus text has no "Unit N" headers.
	ErrNoUnits = errors.New("no units found in syllabus")
	// ErrSyllabus means the uploaded document could not be read.
	ErrSyllabus = errors.New("could not read syllabus")
)

// QuestionStore is the persistence the flows need.
type QuestionStore interface {
	ReplaceQuestions(ctx context.Context, bank model.Bank) (int, error)
	Bank(ctx context.Context) (model.Bank, error)
	SetGenerationInfo(ctx context.Context, info model.GenerationInfo) error
}

// Config holds the flow parameters.
type Config struct {
	PromptVariant    prompts.PromptVariant
	QuestionsPerTier int
	NumPapers        int
	PaperPolicy      paper.Policy
	PaperFormat      string
	PaperLayout      string
	OutputDir        string
	Header           model.PaperHeader
}

// Service runs generation and paper assembly.
type Service struct {
	cfg   Config
	store QuestionStore
	gen   llm.Generator
	log   *slog.Logger
	rng   *rand.Rand
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRand makes paper assembly use rng. The rng must not be shared between
// goroutines.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// WithClock overrides the time source used for generation records.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(cfg Config, store QuestionStore, gen llm.Generator, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.QuestionsPerTier < 1 {
		cfg.QuestionsPerTier = 3
	}
	if cfg.NumPapers < 1 {
		cfg.NumPapers = 3
	}
	if cfg.PromptVariant == "" {
		cfg.PromptVariant = prompts.PromptStrict
	}
	if cfg.PaperPolicy == "" {
		cfg.PaperPolicy = paper.PolicyRotate
	}
	if cfg.PaperFormat == "" {
		cfg.PaperFormat = render.FormatPDF
	}
	if cfg.PaperLayout == "" {
		cfg.PaperLayout = render.LayoutTable
	}
	s := &Service{cfg: cfg, store: store, gen: gen, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// GenerateResult describes a successful generation.
type GenerateResult struct {
	Units  []string
	Stored int
	Report parser.Report
}

// GenerateQuestions extracts the syllabus at path, asks the model for
// questions, and replaces the stored bank once every unit validates.
// displayName is the file name recorded in the generation metadata.
func (s *Service) GenerateQuestions(ctx context.Context, path, displayName string) (*GenerateResult, error) {
	if !syllabus.IsSupported(path) {
		return nil, fmt.Errorf("%w: %s", syllabus.ErrUnsupportedFormat, filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyllabus, err)
	}
	text, err := syllabus.Extract(path, s.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyllabus, err)
	}

	units := syllabus.ExtractUnits(text)
	if units.Len() == 0 {
		return nil, ErrNoUnits
	}
	s.log.Info("extracted units", "file", displayName, "units", units.Labels())

	prompt, err := prompts.Build(s.cfg.PromptVariant, s.cfg.QuestionsPerTier, units.Labels(), text)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	start := s.now()
	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.log.Error("question generation failed", "model", s.gen.Model(), "error", err)
		return nil, err
	}
	s.log.Info("generated text received", "model", s.gen.Model(), "bytes", len(out), "elapsed", s.now().Sub(start))

	opts := parser.Options{}
	if s.cfg.PromptVariant.Tagged() {
		opts = parser.DefaultOptions()
	}
	bank, report := parser.New(s.log, opts).Parse(out, units)
	s.log.Info("parsed generated text",
		"accepted", report.Accepted,
		"dropped", report.DroppedTotal(),
		"unknown_units", report.UnknownUnits,
	)

	if err := parser.Validate(bank, s.cfg.QuestionsPerTier); err != nil {
		s.log.Error("generated questions failed validation", "error", err)
		return nil, err
	}

	n, err := s.store.ReplaceQuestions(ctx, bank)
	if err != nil {
		return nil, fmt.Errorf("store questions: %w", err)
	}
	info := model.GenerationInfo{
		SyllabusFile:  displayName,
		SyllabusHash:  ContentHashHex(data),
		Model:         s.gen.Model(),
		PromptVariant: string(s.cfg.PromptVariant),
		GeneratedAt:   s.now(),
	}
	if err := s.store.SetGenerationInfo(ctx, info); err != nil {
		return nil, fmt.Errorf("store generation info: %w", err)
	}

	return &GenerateResult{Units: units.Labels(), Stored: n, Report: report}, nil
}

// PaperRequest parameterizes one paper run. Zero values use the configured
// defaults.
type PaperRequest struct {
	Count  int
	Labels *render.Labels
}

// GeneratePapers assembles papers from the stored bank and writes them to the
// output directory. It returns the written file names.
func (s *Service) GeneratePapers(ctx context.Context, req PaperRequest) ([]string, error) {
	count := req.Count
	if count < 1 {
		count = s.cfg.NumPapers
	}
	labels := render.DefaultLabels()
	if req.Labels != nil {
		labels = *req.Labels
	}
	r, err := render.New(s.cfg.PaperFormat, s.cfg.PaperLayout, labels)
	if err != nil {
		return nil, err
	}

	bank, err := s.store.Bank(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	papers, err := paper.Assemble(bank, paper.Options{
		Count:      count,
		MinPerTier: s.cfg.QuestionsPerTier,
		Policy:     s.cfg.PaperPolicy,
	}, s.rng)
	if err != nil {
		s.log.Error("paper assembly failed", "error", err)
		return nil, err
	}

	names, err := render.WritePapers(s.cfg.OutputDir, r, papers, s.cfg.Header, s.log)
	if err != nil {
		return nil, err
	}
	s.log.Info("papers generated", "count", len(names), "policy", s.cfg.PaperPolicy, "format", r.Ext())
	return names, nil
}

// ContentHashHex returns the hex SHA-256 of data.
func ContentHashHex(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
