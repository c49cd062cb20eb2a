// Package render turns embedded HTML templates into templ components. Every
// page is a "content" block rendered inside the shared layout; HTMX requests
// receive the block alone.
package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/good-yellow-bee/toolme/internal/i18n"
	"github.com/good-yellow-bee/toolme/internal/models"
)

//go:embed templates
var files embed.FS

// messagePrefixes mark backend or validation messages that are catalog keys.
var messagePrefixes = []string{"auth.", "account.", "apply", "publish", "errors.", "projectDetail.", "submissionDetail."}

// View is the data every template receives.
type View struct {
	Lang      string
	User      *models.User
	CSRFField template.HTML
	CSRFToken string
	Nonce     string
	Flash     string
	Path      string
	Title     string
	Data      any

	catalog *i18n.Catalog
}

// T translates key in the view's language.
func (v View) T(key string, args ...any) string {
	if v.catalog == nil {
		return key
	}
	return v.catalog.T(v.Lang, key, args...)
}

// Msg translates msg when it is a catalog key and returns it verbatim
// otherwise.
func (v View) Msg(msg string) string {
	if i18n.IsKey(msg, messagePrefixes...) && v.catalog != nil && v.catalog.Has(v.Lang, msg) {
		return v.T(msg)
	}
	return msg
}

// With returns a copy of v carrying data, for partials that need both.
func (v View) With(data any) View {
	v.Data = data
	return v
}

// Renderer owns the parsed page templates.
type Renderer struct {
	catalog *i18n.Catalog
	pages   map[string]*template.Template
	base    *template.Template
}

// New parses the layout, partials and every page.
func New(catalog *i18n.Catalog) (*Renderer, error) {
	base, err := template.New("").Funcs(funcs()).ParseFS(files, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	names, err := fs.Glob(files, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		t, err := clone.ParseFS(files, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[strings.TrimSuffix(path.Base(name), ".html")] = t
	}
	return &Renderer{catalog: catalog, pages: pages, base: base}, nil
}

// View binds v to the renderer's catalog.
func (r *Renderer) View(v View) View {
	v.catalog = r.catalog
	return v
}

// T translates key into lang.
func (r *Renderer) T(lang, key string, args ...any) string {
	if r.catalog == nil {
		return key
	}
	return r.catalog.T(lang, key, args...)
}

// Has reports whether a page exists.
func (r *Renderer) Has(page string) bool {
	_, ok := r.pages[page]
	return ok
}

// Content is the page's content block as a component.
func (r *Renderer) Content(page string, v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := r.pages[page]
		if !ok {
			return fmt.Errorf("unknown page %q", page)
		}
		return t.ExecuteTemplate(w, "content", r.View(v))
	})
}

// Partial renders one shared partial, such as "alert" or "project_items".
func (r *Renderer) Partial(name string, v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return r.base.ExecuteTemplate(w, name, r.View(v))
	})
}

// Layout wraps content in the site chrome.
func (r *Renderer) Layout(v View) func(templ.Component) templ.Component {
	return func(content templ.Component) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			var body bytes.Buffer
			if err := content.Render(ctx, &body); err != nil {
				return err
			}
			return r.base.ExecuteTemplate(w, "layout", layoutData{View: r.View(v), Body: template.HTML(body.String())})
		})
	}
}

type layoutData struct {
	View
	Body template.HTML
}

// Page writes page with status. HTMX requests get only the content block;
// everything else gets the full layout. Output is buffered so a template
// error still yields a clean 500.
func (r *Renderer) Page(w http.ResponseWriter, req *http.Request, status int, page string, v View) error {
	var c templ.Component = r.Content(page, v)
	if req.Header.Get("HX-Request") != "true" {
		c = r.Layout(v)(c)
	}
	return write(w, req.Context(), status, c)
}

// Fragment writes a component without any layout.
func (r *Renderer) Fragment(w http.ResponseWriter, req *http.Request, status int, c templ.Component) error {
	return write(w, req.Context(), status, c)
}

func write(w http.ResponseWriter, ctx context.Context, status int, c templ.Component) error {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"ts":       models.ParseTimestamp,
		"deadline": func(p models.Project) string { return p.DeadlineDate() },
		"coherent": func(s models.Submission) string { return s.CoherentState() },
		"flag":     i18n.FlagEmoji,
		"locales":  i18n.Supported,
		"add":      func(a, b int) int { return a + b },
		"dict": func(kv ...any) (map[string]any, error) {
			if len(kv)%2 != 0 {
				return nil, fmt.Errorf("dict: odd argument count")
			}
			m := make(map[string]any, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				k, ok := kv[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
				}
				m[k] = kv[i+1]
			}
			return m, nil
		},
	}
}
