package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "AppTitle"); got != "Exam Bank" {
		t.Errorf("T(AppTitle) = %q, want 'Exam Bank'", got)
	}
	if got := T(ctx, "StartQuiz"); got != "Start Quiz" {
		t.Errorf("T(StartQuiz) = %q, want 'Start Quiz'", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	if got := T(ctx, "AppTitle"); got != "Банк экзаменов" {
		t.Errorf("T(AppTitle) = %q, want 'Банк экзаменов'", got)
	}
	if got := T(ctx, "StartQuiz"); got != "Начать тест" {
		t.Errorf("T(StartQuiz) = %q, want 'Начать тест'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	en := initLang(t, "en")
	if got := Tp(en, "QuestionsAvailable", 1); got != "1 question available." {
		t.Errorf("Tp(QuestionsAvailable, 1) = %q", got)
	}
	if got := Tp(en, "QuestionsAvailable", 5); got != "5 questions available." {
		t.Errorf("Tp(QuestionsAvailable, 5) = %q", got)
	}

	ru := WithLocalizer(context.Background(), NewLocalizer("ru"))
	tests := map[int]string{
		1:  "Доступен 1 вопрос.",
		3:  "Доступно 3 вопроса.",
		5:  "Доступно 5 вопросов.",
		21: "Доступен 21 вопрос.",
	}
	for n, want := range tests {
		if got := Tp(ru, "QuestionsAvailable", n); got != want {
			t.Errorf("ru Tp(QuestionsAvailable, %d) = %q, want %q", n, got, want)
		}
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "QuestionNofM", map[string]any{"N": 2, "M": 10})
	if got != "Question 2 of 10" {
		t.Errorf("Td(QuestionNofM) = %q, want 'Question 2 of 10'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestInitRejectsUnknownDefault(t *testing.T) {
	if err := Init("de"); err == nil {
		t.Error("expected error for a language without a locale file")
	}
	if err := Init("not a tag!"); err == nil {
		t.Error("expected parse error")
	}
}

func TestMatch(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	tests := []struct {
		name  string
		prefs []string
		want  string
	}{
		{"nothing", nil, "en"},
		{"accept header", []string{"", "", "ru-RU,ru;q=0.9,en;q=0.8"}, "ru"},
		{"query wins", []string{"en", "ru", "ru"}, "en"},
		{"unsupported", []string{"de"}, "en"},
		{"garbage", []string{";;;"}, "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.prefs...); got != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.prefs, got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var title string
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = T(r.Context(), "AppTitle")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ru")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if title != "Банк экзаменов" {
		t.Errorf("Accept-Language ru: got %q", title)
	}

	req = httptest.NewRequest(http.MethodGet, "/?lang=en", nil)
	req.Header.Set("Accept-Language", "ru")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if title != "Exam Bank" {
		t.Errorf("?lang=en: got %q", title)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != "en" {
		t.Errorf("expected lang cookie, got %v", cookies)
	}
}
