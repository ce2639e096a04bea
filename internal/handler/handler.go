// Package handler serves the HTTP API and the index page.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Tarunkasliwal/qpg/internal/handler/views"
	"github.com/Tarunkasliwal/qpg/internal/i18n"
	"github.com/Tarunkasliwal/qpg/internal/model"
	"github.com/Tarunkasliwal/qpg/internal/pipeline"
	"github.com/Tarunkasliwal/qpg/internal/render"
	"github.com/Tarunkasliwal/qpg/internal/syllabus"
)

const maxMultipartMemory = 8 << 20

// Flows is the pipeline the handlers drive.
type Flows interface {
	GenerateQuestions(ctx context.Context, path, displayName string) (*pipeline.GenerateResult, error)
	GeneratePapers(ctx context.Context, req pipeline.PaperRequest) ([]string, error)
}

// BankReader reads the stored bank for display.
type BankReader interface {
	QuestionCount(ctx context.Context) (int, error)
	GenerationInfo(ctx context.Context) (*model.GenerationInfo, error)
	ExportBank(ctx context.Context) (model.BankExport, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	flows  Flows
	bank   BankReader
	config model.AppConfig
	log    *slog.Logger
}

// New creates a new Handler.
func New(flows Flows, bank BankReader, cfg model.AppConfig, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{flows: flows, bank: bank, config: cfg, log: log}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/health", h.handleHealth)
	r.Post("/generate-questions", h.handleGenerateQuestions)
	r.Get("/generate-papers", h.handleGeneratePapers)
	r.Post("/generate-papers", h.handleGeneratePapers)
	r.Get("/questions", h.handleQuestions)
	r.Get("/download/{filename}", h.handleDownload)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	count, err := h.bank.QuestionCount(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	info, err := h.bank.GenerationInfo(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := views.IndexPage(views.IndexData{
		QuestionCount: count,
		Generation:    info,
		NumPapers:     h.config.NumPapers,
		Extensions:    supportedExtensions(),
	})
	if err := page.Render(r.Context(), w); err != nil {
		h.log.Error("render error", "error", err)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	if h.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, i18n.T(r.Context(), "ErrUploadTooLarge"), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, i18n.T(r.Context(), "ErrNoFile"), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("syllabus")
	if err != nil || header.Filename == "" {
		jsonError(w, i18n.T(r.Context(), "ErrNoFile"), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !syllabus.IsSupported(header.Filename) {
		jsonError(w, i18n.T(r.Context(), "ErrUnsupportedFormat"), http.StatusBadRequest)
		return
	}

	path, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.log.Info("syllabus uploaded", "filename", header.Filename, "path", path, "size", header.Size)

	res, err := h.flows.GenerateQuestions(r.Context(), path, header.Filename)
	if err != nil {
		h.flowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": i18n.T(r.Context(), "QuestionsGenerated"),
		"units":   res.Units,
	})
}

func (h *Handler) handleGeneratePapers(w http.ResponseWriter, r *http.Request) {
	count := 0
	if s := r.FormValue("count"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			jsonError(w, i18n.T(r.Context(), "ErrBadCount"), http.StatusBadRequest)
			return
		}
		count = n
	}

	labels := PaperLabels(r.Context())
	names, err := h.flows.GeneratePapers(r.Context(), pipeline.PaperRequest{Count: count, Labels: &labels})
	if err != nil {
		h.flowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": i18n.Tp(r.Context(), "PapersGenerated", len(names)),
		"papers":  names,
	})
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	exp, err := h.bank.ExportBank(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		jsonError(w, i18n.T(r.Context(), "ErrFileNotFound"), http.StatusNotFound)
		return
	}
	path := filepath.Join(h.config.OutputDir, name)
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		jsonError(w, i18n.T(r.Context(), "ErrFileNotFound"), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// saveUpload copies the upload into the upload directory under a unique name.
func (h *Handler) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.config.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(h.config.UploadDir, uuid.NewString()+"_"+sanitizeFilename(filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

// PaperLabels returns the paper labels in the context's language.
func PaperLabels(ctx context.Context) render.Labels {
	return render.Labels{
		Course:       i18n.T(ctx, "LabelCourse"),
		Instructor:   i18n.T(ctx, "LabelInstructor"),
		Date:         i18n.T(ctx, "LabelDate"),
		Paper:        i18n.T(ctx, "LabelPaper"),
		QuestionNo:   i18n.T(ctx, "ColQuestionNo"),
		Subquestion:  i18n.T(ctx, "ColSubquestion"),
		QuestionText: i18n.T(ctx, "ColQuestionText"),
		CO:           i18n.T(ctx, "ColCO"),
		BT:           i18n.T(ctx, "ColBT"),
		Marks:        i18n.T(ctx, "ColMarks"),
		MarksSuffix:  i18n.T(ctx, "MarksSuffix"),
	}
}

func supportedExtensions() []string {
	return slices.Sorted(maps.Keys(syllabus.SupportedExtensions))
}

// sanitizeFilename keeps the last path element of an uploaded name. Dots
// inside the name are left alone so "notes..pdf" keeps its extension.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return "unnamed"
	}
	return name
}
