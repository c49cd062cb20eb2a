// Package middleware holds the web frontend's HTTP middleware.
package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/good-yellow-bee/toolme/internal/auth"
	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/log"
	"github.com/good-yellow-bee/toolme/internal/metrics"
	"github.com/good-yellow-bee/toolme/internal/web/session"
)

type contextKey string

const visitorKey contextKey = "visitor"

// SessionCookieName is the browser session cookie.
const SessionCookieName = "toolme_session"

// Visitor is the per-request view of a browser session: the stored session,
// a backend client carrying its credential and the auth state machine.
type Visitor struct {
	Session *session.Session
	Client  *client.Client
	Auth    *auth.Store

	store  session.Store
	secure bool

	// fresh sessions are not stored until something worth keeping is set.
	fresh      bool
	cookieSent bool
}

// GetVisitor returns the visitor set by LoadSession, or nil.
func GetVisitor(ctx context.Context) *Visitor {
	if v, ok := ctx.Value(visitorKey).(*Visitor); ok {
		return v
	}
	return nil
}

// WithVisitor stores v in ctx. Handlers under test use it in place of
// LoadSession.
func WithVisitor(ctx context.Context, v *Visitor) context.Context {
	return context.WithValue(ctx, visitorKey, v)
}

// NewVisitor assembles a visitor around an existing session.
func NewVisitor(sess *session.Session, newClient func(*client.Credential) *client.Client) *Visitor {
	cl := newClient(client.NewCredential(sess.Token))
	st := auth.NewStore(cl.Auth, sess.Auth)
	st.OnChange(func(tr auth.Transition) {
		metrics.AuthTransitionsTotal.WithLabelValues(string(tr.Event), string(tr.To.Phase())).Inc()
	})
	return &Visitor{Session: sess, Client: cl, Auth: st}
}

// sync copies the live credential and auth state back into the session. A
// session never outlives the backend token it carries.
func (v *Visitor) sync() {
	cred := v.Client.Credential()
	v.Session.Token = cred.Token()
	v.Session.Auth = v.Auth.State()
	if exp, ok := cred.ExpiresAt(); ok && exp.Before(v.Session.ExpiresAt) {
		v.Session.ExpiresAt = exp
	}
}

// RenewID moves the session to a fresh id with a full lifetime, capped by
// the current backend token. Call it after a privilege change such as login.
func (v *Visitor) RenewID(ctx context.Context, w http.ResponseWriter) error {
	if v.store == nil {
		return nil
	}
	fresh, err := v.store.New()
	if err != nil {
		return err
	}
	old := v.Session.ID
	v.Session.ID = fresh.ID
	v.Session.CreatedAt = fresh.CreatedAt
	v.Session.ExpiresAt = fresh.ExpiresAt
	v.sync()
	if !v.fresh {
		if err := v.store.Delete(ctx, old); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("delete previous session")
		}
	}
	setSessionCookie(w, v.Session, v.secure)
	v.cookieSent = true
	return nil
}

// worthKeeping reports whether a fresh session carries anything a later
// request needs.
func (v *Visitor) worthKeeping() bool {
	s := v.Session
	return s.Token != "" || s.Lang != "" || s.Flash != "" || s.Auth.IsAuthenticated
}

// sessionWriter sets the cookie for a fresh session just before the
// response headers go out, once the handler has given it something to keep.
type sessionWriter struct {
	http.ResponseWriter
	v         *Visitor
	committed bool
}

func (w *sessionWriter) WriteHeader(status int) {
	w.commit()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *sessionWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true
	v := w.v
	v.sync()
	if v.fresh && !v.cookieSent && v.worthKeeping() {
		setSessionCookie(w.ResponseWriter, v.Session, v.secure)
		v.cookieSent = true
	}
}

// SessionConfig configures LoadSession.
type SessionConfig struct {
	Store     session.Store
	NewClient func(*client.Credential) *client.Client
	Secure    bool
}

// LoadSession finds or starts the browser session and attaches a Visitor to
// the request. A session that is still bootstrapping asks the backend who
// the visitor is before the handler runs, so handlers and RequireAuth
// never see the bootstrapping phase. Changes are saved after the handler.
// A new session is only stored, and its cookie only set, once it holds a
// credential, a language choice or a flash message.
func LoadSession(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := log.Ctx(ctx)

			var sess *session.Session
			fresh := false
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				s, err := cfg.Store.Get(ctx, cookie.Value)
				if err != nil {
					metrics.SessionStoreErrors.WithLabelValues("get").Inc()
					logger.Error().Err(err).Msg("load session")
					http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
					return
				}
				sess = s
			}
			if sess == nil {
				s, err := cfg.Store.New()
				if err != nil {
					metrics.SessionStoreErrors.WithLabelValues("create").Inc()
					logger.Error().Err(err).Msg("create session")
					http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
					return
				}
				sess = s
				fresh = true
			}
			before := *sess

			v := NewVisitor(sess, cfg.NewClient)
			v.store = cfg.Store
			v.secure = cfg.Secure
			v.fresh = fresh

			if sess.Auth.Loading {
				if err := v.Auth.Bootstrap(ctx); err != nil {
					logger.Warn().Err(err).Msg("session bootstrap failed, continuing anonymous")
				}
			}

			sw := &sessionWriter{ResponseWriter: w, v: v}
			next.ServeHTTP(sw, r.WithContext(WithVisitor(ctx, v)))
			sw.commit()

			v.sync()
			if fresh && !v.cookieSent {
				return
			}
			if fresh {
				metrics.SessionsCreatedTotal.Inc()
			}
			if fresh || *sess != before {
				// The request context may already be cancelled by a
				// disconnected client; the session must still be saved.
				if err := cfg.Store.Save(context.WithoutCancel(ctx), sess); err != nil {
					metrics.SessionStoreErrors.WithLabelValues("save").Inc()
					logger.Error().Err(err).Msg("save session")
				}
			}
		})
	}
}

func setSessionCookie(w http.ResponseWriter, sess *session.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
}

// RequireAuth sends anonymous visitors to the login page with the requested
// path in "next". HTMX requests get an HX-Redirect header instead of a 302.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := GetVisitor(r.Context())
		if v != nil && v.Auth.State().IsAuthenticated {
			next.ServeHTTP(w, r)
			return
		}

		target := LoginURL(ReturnPath(r))
		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", target)
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
	})
}

// LoginURL builds /login?next=<path>.
func LoginURL(next string) string {
	next = SafeNext(next)
	if next == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

// ReturnPath is where the visitor should land after logging in. Form posts
// return to the page that held the form.
func ReturnPath(r *http.Request) string {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		if r.Header.Get("HX-Request") == "true" {
			if cur := r.Header.Get("HX-Current-URL"); cur != "" {
				return sameSitePath(cur, r.Host)
			}
		}
		return r.URL.RequestURI()
	}
	return sameSitePath(r.Referer(), r.Host)
}

func sameSitePath(raw, host string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Host != "" && u.Host != host) {
		return "/"
	}
	return u.RequestURI()
}

// SafeNext returns next if it is a local absolute path, "/" otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
