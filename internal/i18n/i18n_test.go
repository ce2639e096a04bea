package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "Question Paper Generator" {
		t.Errorf("T(AppTitle) = %q, want 'Question Paper Generator'", got)
	}

	got = T(ctx, "ColQuestionText")
	if got != "Question Text" {
		t.Errorf("T(ColQuestionText) = %q, want 'Question Text'", got)
	}
}

func TestTranslateSpanish(t *testing.T) {
	ctx := initLang(t, "es")

	got := T(ctx, "GeneratePapers")
	if got != "Generar exámenes" {
		t.Errorf("T(GeneratePapers) = %q, want 'Generar exámenes'", got)
	}

	got = T(ctx, "ErrFileNotFound")
	if got != "Archivo no encontrado" {
		t.Errorf("T(ErrFileNotFound) = %q, want 'Archivo no encontrado'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "QuestionsInBank", 1)
	if got1 != "1 question in the bank." {
		t.Errorf("Tp(QuestionsInBank, 1) = %q", got1)
	}

	got5 := Tp(ctx, "PapersGenerated", 5)
	if got5 != "5 question papers generated successfully!" {
		t.Errorf("Tp(PapersGenerated, 5) = %q", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ErrValidation", map[string]any{"Units": "Unit 2, Unit 3"})
	if got != "Units Unit 2, Unit 3 do not have the required number of questions" {
		t.Errorf("Td(ErrValidation) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestMiddlewareAcceptLanguage(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "Download")
	}))

	tests := []struct {
		accept   string
		want     string
		wantLang string
	}{
		{"es-ES,es;q=0.9", "Descargar", "es"},
		{"fr-FR", "Download", "en"},
		{"fr-CH, es;q=0.8", "Descargar", "es"},
		{"", "Download", "en"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.accept != "" {
			req.Header.Set("Accept-Language", tt.accept)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got != tt.want {
			t.Errorf("Accept-Language %q: got %q, want %q", tt.accept, got, tt.want)
		}
		if cl := rec.Header().Get("Content-Language"); cl != tt.wantLang {
			t.Errorf("Accept-Language %q: Content-Language = %q, want %q", tt.accept, cl, tt.wantLang)
		}
	}
}

func TestMatch(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	tests := []struct {
		accept, fallback, want string
	}{
		{"es-MX", "en", "es"},
		{"en-GB,en;q=0.8", "es", "en"},
		{"de-DE", "es", "es"},
		{"", "es", "es"},
	}
	for _, tt := range tests {
		if got := Match(tt.accept, tt.fallback); got != tt.want {
			t.Errorf("Match(%q, %q) = %q, want %q", tt.accept, tt.fallback, got, tt.want)
		}
	}
}

func TestSupported(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if n := len(Supported()); n != 2 {
		t.Errorf("Supported() has %d languages, want 2", n)
	}
}
