package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"

	"github.com/good-yellow-bee/toolme/internal/web/middleware"
)

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	h := s.handler

	r.Use(middleware.RequestLogger(s.cfg.Logger, s.cfg.VerboseLogging))
	r.Use(middleware.Recoverer)
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.SecurityHeaders)

	// Static files and probes need neither a session nor CSRF.
	r.Handle("/static/*", http.StripPrefix("/static/", s.StaticFS()))
	r.Get("/health", h.Health)

	pages := chi.Chain(
		markPlaintext(s.cfg.SecureCookies),
		csrf.Protect(
			s.cfg.CSRFKey,
			csrf.Secure(s.cfg.SecureCookies),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
		),
		middleware.LoadSession(middleware.SessionConfig{
			Store:     s.sessions,
			NewClient: s.cfg.NewClient,
			Secure:    s.cfg.SecureCookies,
		}),
		middleware.Language,
	)
	r.NotFound(pages.HandlerFunc(h.NotFound).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(pages...)

		// Public routes
		r.Get("/", h.Home)
		r.Get("/projects/more", h.MoreProjects)
		r.Get("/project/{id}", h.ProjectDetail)
		r.Get("/verify-email", h.VerifyEmail)
		r.Post("/lang", h.HandleLang)
		r.Post("/logout", h.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(s.limiter, h.RateLimited))
			r.Get("/login", h.ShowLogin)
			r.Post("/login", h.HandleLogin)
			r.Get("/signup", h.ShowSignUp)
			r.Post("/signup", h.HandleSignUp)
			r.Get("/forgot-password", h.ShowForgotPassword)
			r.Post("/forgot-password", h.HandleForgotPassword)
			r.Get("/reset-password", h.ShowResetPassword)
			r.Post("/reset-password", h.HandleResetPassword)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/publish", h.ShowPublish)
			r.Post("/publish", h.HandlePublish)
			r.Get("/project/{id}/apply", h.ShowApply)
			r.Post("/project/{id}/apply", h.HandleApply)
			r.Get("/project/{id}/edit", h.ShowEdit)
			r.Post("/project/{id}/edit", h.HandleEdit)
			r.Post("/project/{id}/delete", h.HandleDelete)
			r.Get("/project/{id}/submissions", h.ProjectSubmissions)
			r.Get("/my-submissions", h.MySubmissions)
			r.Get("/submission/{id}", h.SubmissionDetail)
			r.Post("/submission/{id}/messages", h.HandleMessage)
			r.Post("/submission/{id}/coherent", h.HandleCoherent)
			r.Get("/account", h.Account)
			r.Post("/account/delete", h.HandleDeleteAccount)
		})
	})

	return r
}

// markPlaintext tells csrf that plain HTTP is expected when cookies are not
// secure, so its HTTPS-only Referer check does not reject local development.
func markPlaintext(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secure && !middleware.IsRequestSecure(r) {
				r = csrf.PlaintextHTTPRequest(r)
			}
			next.ServeHTTP(w, r)
		})
	}
}
