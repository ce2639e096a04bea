package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Tarunkasliwal/qpg/internal/handler"
	appI18n "github.com/Tarunkasliwal/qpg/internal/i18n"
	"github.com/Tarunkasliwal/qpg/internal/llm"
	"github.com/Tarunkasliwal/qpg/internal/llm/prompts"
	"github.com/Tarunkasliwal/qpg/internal/model"
	"github.com/Tarunkasliwal/qpg/internal/paper"
	"github.com/Tarunkasliwal/qpg/internal/pipeline"
	"github.com/Tarunkasliwal/qpg/internal/render"
	"github.com/Tarunkasliwal/qpg/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "qpg",
		Short: "Generate randomized exam question papers from a syllabus with a local LLM",
	}

	serve := serveCmd()
	root.AddCommand(serve, generateCmd(), papersCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `qpg --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":5000", "HTTP listen address")
	f.String("upload-dir", "uploads", "Directory for uploaded syllabi")
	f.Int64("max-upload-mb", 32, "Maximum syllabus upload size in MiB")
	addStoreFlags(f)
	addLLMFlags(f)
	addPaperFlags(f)
	addLogFlags(f)
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate FILE",
		Short: "Generate and store questions for a syllabus file",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	addStoreFlags(f)
	addLLMFlags(f)
	addPaperFlags(f)
	addLogFlags(f)
	return cmd
}

func papersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "papers",
		Short: "Assemble question papers from the stored bank",
		RunE:  runPapers,
	}
	f := cmd.Flags()
	addStoreFlags(f)
	addPaperFlags(f)
	addLogFlags(f)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored question bank as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", filepath.Join("data", "questions.db"), "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	return cmd
}

func addStoreFlags(f *pflag.FlagSet) {
	f.String("db", filepath.Join("data", "questions.db"), "SQLite database path")
	f.String("output-dir", ".", "Directory for generated papers")
}

func addLLMFlags(f *pflag.FlagSet) {
	f.String("llm-backend", llm.BackendOllama, "Generation API (ollama, openai)")
	f.String("llm-url", "", "Generation API base URL (default depends on backend)")
	f.String("llm-key", "ollama", "API key for the openai backend")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("prompt-variant", string(prompts.PromptStrict), "Generation prompt variant (strict, standard)")
	f.Bool("skip-ping", false, "Do not check the generation API at startup")
}

func addPaperFlags(f *pflag.FlagSet) {
	f.Int("questions-per-tier", 3, "Questions required per unit for each of the 4 and 6 mark tiers")
	f.IntP("papers", "n", 3, "Number of papers to generate")
	f.String("paper-policy", string(paper.PolicyRotate), "Question selection across papers (rotate, reshuffle)")
	f.String("paper-layout", render.LayoutTable, "Paper layout (table, list)")
	f.String("paper-format", render.FormatPDF, "Paper format (pdf, html)")
	f.String("exam-title", "Exam Question Paper", "Title printed on every paper")
	f.String("course", "", "Course name printed on every paper")
	f.String("instructor", "", "Instructor printed on every paper")
	f.String("exam-date", "", "Exam date printed on every paper (default today)")
	f.StringP("lang", "l", "en", "Default language for messages and paper labels (en, es)")
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func setupLogging(v *viper.Viper) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	log := slog.New(logHandler)
	slog.SetDefault(log)
	return log
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QPG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("qpg")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/qpg")
	v.AddConfigPath("/etc/qpg")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// appConfig reads and validates the paper and generation settings.
func appConfig(v *viper.Viper) (model.AppConfig, error) {
	cfg := model.AppConfig{
		UploadDir:        v.GetString("upload-dir"),
		OutputDir:        v.GetString("output-dir"),
		MaxUploadBytes:   v.GetInt64("max-upload-mb") << 20,
		Model:            v.GetString("llm-model"),
		PromptVariant:    strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant"))),
		QuestionsPerTier: v.GetInt("questions-per-tier"),
		NumPapers:        v.GetInt("papers"),
		PaperPolicy:      strings.ToLower(v.GetString("paper-policy")),
		PaperLayout:      strings.ToLower(v.GetString("paper-layout")),
		PaperFormat:      strings.ToLower(v.GetString("paper-format")),
		Header: model.PaperHeader{
			Title:      v.GetString("exam-title"),
			Course:     v.GetString("course"),
			Instructor: v.GetString("instructor"),
			Date:       v.GetString("exam-date"),
		},
		Lang: v.GetString("lang"),
	}
	if cfg.PromptVariant == "" {
		cfg.PromptVariant = string(prompts.PromptStrict)
	}
	if cfg.Header.Date == "" {
		cfg.Header.Date = time.Now().Format("02-Jan-2006")
	}

	switch {
	case !prompts.IsValidVariant(cfg.PromptVariant):
		return cfg, fmt.Errorf("invalid prompt-variant %q (want strict or standard)", cfg.PromptVariant)
	case !paper.IsValidPolicy(cfg.PaperPolicy):
		return cfg, fmt.Errorf("invalid paper-policy %q (want rotate or reshuffle)", cfg.PaperPolicy)
	case !render.IsValidLayout(cfg.PaperLayout):
		return cfg, fmt.Errorf("invalid paper-layout %q (want table or list)", cfg.PaperLayout)
	case !render.IsValidFormat(cfg.PaperFormat):
		return cfg, fmt.Errorf("invalid paper-format %q (want pdf or html)", cfg.PaperFormat)
	case cfg.QuestionsPerTier < 1:
		return cfg, fmt.Errorf("questions-per-tier must be at least 1")
	case cfg.NumPapers < 1:
		return cfg, fmt.Errorf("papers must be at least 1")
	}
	return cfg, nil
}

func pipelineConfig(cfg model.AppConfig) pipeline.Config {
	return pipeline.Config{
		PromptVariant:    prompts.PromptVariant(cfg.PromptVariant),
		QuestionsPerTier: cfg.QuestionsPerTier,
		NumPapers:        cfg.NumPapers,
		PaperPolicy:      paper.Policy(cfg.PaperPolicy),
		PaperFormat:      cfg.PaperFormat,
		PaperLayout:      cfg.PaperLayout,
		OutputDir:        cfg.OutputDir,
		Header:           cfg.Header,
	}
}

func openStore(v *viper.Viper, log *slog.Logger) (*store.Store, error) {
	dbPath := v.GetString("db")
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := store.New(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func newGenerator(ctx context.Context, v *viper.Viper, log *slog.Logger) (llm.Generator, error) {
	backend := strings.ToLower(v.GetString("llm-backend"))
	gen, err := llm.New(backend, v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model"), log)
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	if v.GetBool("skip-ping") {
		return gen, nil
	}
	if err := gen.Ping(ctx); err != nil {
		return nil, fmt.Errorf("LLM health check: %w", err)
	}
	log.Info("LLM endpoint OK", "backend", backend, "model", gen.Model())
	return gen, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	log := setupLogging(v)

	cfg, err := appConfig(v)
	if err != nil {
		return err
	}

	db, err := openStore(v, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := appI18n.Init(cfg.Lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := newGenerator(ctx, v, log)
	if err != nil {
		return err
	}

	svc := pipeline.New(pipelineConfig(cfg), db, gen, log)
	h := handler.New(svc, db, cfg, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(cfg.Lang))
	h.Routes(r)

	srv := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
		}
	}()

	log.Info("starting server",
		"addr", srv.Addr,
		"backend", v.GetString("llm-backend"),
		"model", gen.Model(),
		"prompt_variant", cfg.PromptVariant,
		"questions_per_tier", cfg.QuestionsPerTier,
		"papers", cfg.NumPapers,
		"paper_policy", cfg.PaperPolicy,
		"paper_format", cfg.PaperFormat,
		"lang", cfg.Lang,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	v := viperForCmd(cmd)
	log := setupLogging(v)

	cfg, err := appConfig(v)
	if err != nil {
		return err
	}
	db, err := openStore(v, log)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := newGenerator(ctx, v, log)
	if err != nil {
		return err
	}

	svc := pipeline.New(pipelineConfig(cfg), db, gen, log)
	res, err := svc.GenerateQuestions(ctx, args[0], filepath.Base(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored %d questions for %s\n", res.Stored, strings.Join(res.Units, ", "))
	return nil
}

func runPapers(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	log := setupLogging(v)

	cfg, err := appConfig(v)
	if err != nil {
		return err
	}
	db, err := openStore(v, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := appI18n.Init(cfg.Lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(cmd.Context(), appI18n.NewLocalizer(cfg.Lang))
	labels := handler.PaperLabels(ctx)

	svc := pipeline.New(pipelineConfig(cfg), db, nil, log)
	names, err := svc.GeneratePapers(ctx, pipeline.PaperRequest{Labels: &labels})
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(cfg.OutputDir, name))
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	log := setupLogging(v)

	db, err := openStore(v, log)
	if err != nil {
		return err
	}
	defer db.Close()

	export, err := db.ExportBank(cmd.Context())
	if err != nil {
		return fmt.Errorf("export bank: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
