package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	require.NoError(t, Init(lang))
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")
	assert.Equal(t, "This test has ended.", T(ctx, "ErrTestEnded"))
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")
	assert.Equal(t, "Этот тест завершён.", T(ctx, "ErrTestEnded"))
}

func TestLanguages(t *testing.T) {
	initLang(t, "en")
	langs := Languages()
	assert.Contains(t, langs, "en")
	assert.Contains(t, langs, "ru")
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")
	assert.Equal(t, "1 student imported.", Tp(ctx, "StudentsImported", 1))
	assert.Equal(t, "5 students imported.", Tp(ctx, "StudentsImported", 5))

	ru := WithLocalizer(context.Background(), NewLocalizer("ru"))
	assert.Equal(t, "Импортировано 3 студента.", Tp(ru, "StudentsImported", 3))
	assert.Equal(t, "Импортировано 5 студентов.", Tp(ru, "StudentsImported", 5))
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")
	got := Td(ctx, "ImportSummary", map[string]any{"Created": 4, "Skipped": 1})
	assert.Equal(t, "4 created, 1 skipped.", got)
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")
	assert.Equal(t, "NonExistentKey", T(ctx, "NonExistentKey"))
}

func TestFallbackWithoutLocalizer(t *testing.T) {
	initLang(t, "ru")
	assert.Equal(t, "Запрошенный объект не найден.", T(context.Background(), "ErrNotFound"))
}

func TestMiddleware(t *testing.T) {
	initLang(t, "en")

	var got string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "ErrForbidden")
	}))

	tests := []struct {
		name   string
		url    string
		accept string
		want   string
	}{
		{"default", "/", "", "You do not have permission to do that."},
		{"accept-language", "/", "ru-RU,ru;q=0.9,en;q=0.8", "У вас нет прав на это действие."},
		{"query wins", "/?lang=en", "ru", "You do not have permission to do that."},
		{"unknown language", "/", "fr", "You do not have permission to do that."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}
