package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/toolme/internal/i18n"
)

const langKey contextKey = "lang"

// LangFrom returns the language chosen by Language, or the default.
func LangFrom(ctx context.Context) string {
	if l, ok := ctx.Value(langKey).(string); ok && l != "" {
		return l
	}
	return i18n.DefaultLang
}

// WithLang stores lang in ctx.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey, lang)
}

// Language picks the page language: ?lang= (remembered in the session), the
// session's language, then Accept-Language. It runs after LoadSession.
func Language(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := GetVisitor(r.Context())
		lang := ""

		if q := r.URL.Query().Get("lang"); q != "" {
			lang = i18n.Normalize(q)
			if v != nil {
				v.Session.Lang = lang
			}
		}
		if lang == "" && v != nil && v.Session.Lang != "" {
			lang = v.Session.Lang
		}
		if lang == "" {
			lang = fromAcceptLanguage(r.Header.Get("Accept-Language"))
		}

		next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), lang)))
	})
}

// fromAcceptLanguage returns the first supported tag in header order.
func fromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" || tag == "*" {
			continue
		}
		if code := i18n.Normalize(tag); code != "" {
			return code
		}
	}
	return i18n.DefaultLang
}
