package middleware

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

var localeKey = localeContextKey{}

// The locales speech synthesis has voices for.
var supportedLocales = language.NewMatcher([]language.Tag{
	language.English, // first entry is the fallback
	language.Indonesian,
	language.Spanish,
})

// Locale resolves the request's language from the Accept-Language header and
// stores its base code ("en", "id", "es") in the context. Unsupported or
// missing languages fall back to English.
func Locale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
		if err != nil {
			tags = nil
		}
		tag, _, _ := supportedLocales.Match(tags...)
		base, _ := tag.Base()
		ctx := context.WithValue(r.Context(), localeKey, base.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LocaleFromContext returns the resolved locale, defaulting to English.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(localeKey).(string); ok && v != "" {
		return v
	}
	return "en"
}
