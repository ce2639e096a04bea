package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Tarunkasliwal/qpg/internal/i18n"
	"github.com/Tarunkasliwal/qpg/internal/llm"
	"github.com/Tarunkasliwal/qpg/internal/paper"
	"github.com/Tarunkasliwal/qpg/internal/parser"
	"github.com/Tarunkasliwal/qpg/internal/pipeline"
	"github.com/Tarunkasliwal/qpg/internal/syllabus"
)

// flowError maps a pipeline error onto a localized JSON response.
func (h *Handler) flowError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var ve *parser.ValidationError
	var ie *paper.InsufficientError
	switch {
	case errors.Is(err, syllabus.ErrUnsupportedFormat):
		jsonError(w, i18n.T(ctx, "ErrUnsupportedFormat"), http.StatusBadRequest)
	case errors.Is(err, pipeline.ErrNoUnits):
		jsonError(w, i18n.T(ctx, "ErrNoUnits"), http.StatusBadRequest)
	case errors.Is(err, pipeline.ErrSyllabus):
		h.log.Warn("syllabus extraction failed", "error", err)
		jsonError(w, i18n.T(ctx, "ErrReadSyllabus"), http.StatusBadRequest)
	case errors.Is(err, llm.ErrProtocol):
		jsonError(w, i18n.T(ctx, "ErrProtocol"), http.StatusInternalServerError)
	case errors.Is(err, llm.ErrUpstream):
		jsonError(w, i18n.T(ctx, "ErrUpstream"), http.StatusInternalServerError)
	case errors.Is(err, llm.ErrEmptyResponse):
		jsonError(w, i18n.T(ctx, "ErrEmptyResponse"), http.StatusInternalServerError)
	case errors.As(err, &ve):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": i18n.Td(ctx, "ErrValidation", map[string]any{"Units": strings.Join(ve.Labels(), ", ")}),
			"units": ve.Labels(),
		})
	case errors.As(err, &ie):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": i18n.Td(ctx, "ErrInsufficient", map[string]any{"Units": strings.Join(ie.Units, ", ")}),
			"units": ie.Units,
		})
	case errors.Is(err, paper.ErrEmptyBank):
		jsonError(w, i18n.T(ctx, "ErrNoQuestions"), http.StatusInternalServerError)
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("request failed", "path", r.URL.Path, "error", err)
	jsonError(w, i18n.T(r.Context(), "ErrInternal"), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
