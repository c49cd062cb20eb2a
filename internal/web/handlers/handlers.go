// Package handlers implements the pages of the web frontend.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/log"
	"github.com/good-yellow-bee/toolme/internal/models"
	"github.com/good-yellow-bee/toolme/internal/web/middleware"
	"github.com/good-yellow-bee/toolme/internal/web/render"
	"github.com/good-yellow-bee/toolme/internal/web/session"
)

// AttachmentStore keeps files uploaded with submissions.
type AttachmentStore interface {
	MaxBytes() int64
	Upload(ctx context.Context, projectID, filename string, r io.Reader, size int64, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string) (string, error)
}

// Options configures a Handler.
type Options struct {
	PageSize    int
	Attachments AttachmentStore
	Sessions    session.Store
}

type Handler struct {
	renderer    *render.Renderer
	pageSize    int
	attachments AttachmentStore
	sessions    session.Store
}

func NewHandler(renderer *render.Renderer, opts Options) *Handler {
	if opts.PageSize <= 0 {
		opts.PageSize = client.DefaultPageSize
	}
	return &Handler{
		renderer:    renderer,
		pageSize:    opts.PageSize,
		attachments: opts.Attachments,
		sessions:    opts.Sessions,
	}
}

func visitor(r *http.Request) *middleware.Visitor {
	return middleware.GetVisitor(r.Context())
}

// currentUser returns the signed-in user, or nil.
func currentUser(r *http.Request) *models.User {
	v := visitor(r)
	if v == nil {
		return nil
	}
	return v.Auth.State().User()
}

func (h *Handler) view(r *http.Request, title string, data any) render.View {
	v := render.View{
		Lang:      middleware.LangFrom(r.Context()),
		User:      currentUser(r),
		CSRFField: csrf.TemplateField(r),
		CSRFToken: csrf.Token(r),
		Nonce:     middleware.GetCSPNonce(r.Context()),
		Path:      r.URL.RequestURI(),
		Title:     title,
		Data:      data,
	}
	if vis := visitor(r); vis != nil && r.Header.Get("HX-Request") != "true" {
		v.Flash = vis.Session.PopFlash()
	}
	return h.renderer.View(v)
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	if err := h.renderer.Page(w, r, swapStatus(r, status), name, h.view(r, title, data)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("page", name).Msg("render page")
	}
}

type alertData struct {
	Kind    string
	Message string
}

// fragment renders a partial without layout, for HTMX swaps.
func (h *Handler) fragment(w http.ResponseWriter, r *http.Request, status int, partial string, data any) {
	c := h.renderer.Partial(partial, h.view(r, "", data))
	if err := h.renderer.Fragment(w, r, swapStatus(r, status), c); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("partial", partial).Msg("render fragment")
	}
}

type errorData struct {
	Message string
	BackURL string
}

// fail renders the error page for err.
// A backend 401 means the stored credential died; the visitor is signed out
// and sent to the login page.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, backURL string) {
	if errors.Is(err, client.ErrUnauthorized) {
		if v := visitor(r); v != nil {
			if rerr := v.Auth.RefreshUser(r.Context()); rerr != nil {
				log.Ctx(r.Context()).Warn().Err(rerr).Msg("refresh after 401")
			}
		}
		redirect(w, r, middleware.LoginURL(middleware.ReturnPath(r)))
		return
	}
	status, msg := describe(err)
	if status >= 500 {
		log.Ctx(r.Context()).Error().Err(err).Msg("backend request failed")
	} else {
		log.Ctx(r.Context()).Debug().Err(err).Msg("backend rejected request")
	}
	h.page(w, r, status, "error", "", errorData{Message: msg, BackURL: backURL})
}

// describe maps err to a response status and a displayable message. Backend
// 4xx details are shown verbatim; everything else is a generic failure.
func describe(err error) (int, string) {
	var apiErr *client.Error
	switch {
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden:
		return http.StatusForbidden, "errors.forbidden"
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		return http.StatusNotFound, "errors.notFound"
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status, apiErr.Message
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "errors.backend"
	default:
		return http.StatusBadGateway, "errors.backend"
	}
}

// message returns the displayable text of a form error, or fallback for
// errors that carry nothing useful for the visitor.
func message(err error, fallback string) string {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return ve.Key
	}
	var apiErr *client.Error
	if errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// swapStatus answers HTMX requests with 200 so error markup is swapped in;
// htmx discards 4xx and 5xx bodies.
func swapStatus(r *http.Request, status int) int {
	if r.Header.Get("HX-Request") == "true" && status >= 400 {
		return http.StatusOK
	}
	return status
}

// redirect sends the browser to url; HTMX requests get HX-Redirect.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flash stores a one-shot message key shown on the next full page.
func flash(r *http.Request, key string) {
	if v := visitor(r); v != nil {
		v.Session.Flash = key
	}
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusNotFound, "error", "errors.notFound", errorData{Message: "errors.notFound"})
}
