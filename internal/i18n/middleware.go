package i18n

import (
	"net/http"

	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// CookieName remembers a language chosen with the ?lang= parameter.
const CookieName = "lang"

// Middleware injects a localizer into every request context. The language
// comes from ?lang=, then the lang cookie, then Accept-Language.
func Middleware() func(http.Handler) http.Handler {
	localizers := make(map[string]*i18n.Localizer, len(supported))
	for _, t := range supported {
		localizers[t.String()] = NewLocalizer(t.String())
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cookie string
			if c, err := r.Cookie(CookieName); err == nil {
				cookie = c.Value
			}
			query := r.URL.Query().Get("lang")
			lang := Match(query, cookie, r.Header.Get("Accept-Language"))
			if query != "" {
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    lang,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := WithLocalizer(r.Context(), localizers[lang])
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
