package handlers

import (
	"errors"
	"net/http"

	"github.com/good-yellow-bee/toolme/internal/auth"
	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/i18n"
	"github.com/good-yellow-bee/toolme/internal/log"
	"github.com/good-yellow-bee/toolme/internal/metrics"
	"github.com/good-yellow-bee/toolme/internal/models"
	"github.com/good-yellow-bee/toolme/internal/web/middleware"
)

type credentialsData struct {
	Email string
	Next  string
	Error string
}

func nextParam(r *http.Request) string {
	next := r.FormValue("next")
	if next == "" {
		return ""
	}
	return middleware.SafeNext(next)
}

func isAuthenticated(r *http.Request) bool {
	v := visitor(r)
	return v != nil && v.Auth.State().IsAuthenticated
}

func (h *Handler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if isAuthenticated(r) {
		redirect(w, r, middleware.SafeNext(nextParam(r)))
		return
	}
	h.page(w, r, http.StatusOK, "login", "auth.login", credentialsData{Next: nextParam(r)})
}

// renderFormError answers an auth form. HTMX gets only the alert for the
// form's error slot; a plain post gets the whole page again.
func (h *Handler) renderFormError(w http.ResponseWriter, r *http.Request, status int, page, title string, data credentialsData) {
	if r.Header.Get("HX-Request") == "true" {
		h.fragment(w, r, status, "view_alert", alertData{Kind: "error", Message: data.Error})
		return
	}
	h.page(w, r, status, page, title, data)
}

// HandleLogin signs the visitor in and returns them to "next".
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderFormError(w, r, http.StatusBadRequest, "login", "auth.login", credentialsData{Error: "auth.loginError"})
		return
	}
	data := credentialsData{Email: r.PostFormValue("email"), Next: nextParam(r)}
	password := r.PostFormValue("password")
	if data.Email == "" || password == "" {
		data.Error = "auth.loginError"
		h.renderFormError(w, r, http.StatusBadRequest, "login", "auth.login", data)
		return
	}

	ctx := r.Context()
	v := visitor(r)
	err := v.Auth.Login(ctx, models.LoginInput{Email: data.Email, Password: password})
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		status := http.StatusUnauthorized
		if !errors.Is(err, client.ErrUnauthorized) && !errors.Is(err, auth.ErrNoSession) {
			status, _ = describe(err)
		}
		log.Ctx(ctx).Info().Err(err).Msg("login failed")
		data.Error = message(err, "auth.loginError")
		h.renderFormError(w, r, status, "login", "auth.login", data)
		return
	}
	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()

	if err := v.RenewID(ctx, w); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("renew session id")
	}
	redirect(w, r, middleware.SafeNext(data.Next))
}

func (h *Handler) ShowSignUp(w http.ResponseWriter, r *http.Request) {
	if isAuthenticated(r) {
		redirect(w, r, "/")
		return
	}
	h.page(w, r, http.StatusOK, "signup", "auth.signUp.title", credentialsData{Next: nextParam(r)})
}

// HandleSignUp creates the account and logs in with it.
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderFormError(w, r, http.StatusBadRequest, "signup", "auth.signUp.title", credentialsData{Error: "auth.signUp.error"})
		return
	}
	in := models.SignUpInput{
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	}
	data := credentialsData{Email: in.Email, Next: nextParam(r)}
	if err := in.Validate(); err != nil {
		data.Error = message(err, "auth.signUp.error")
		h.renderFormError(w, r, http.StatusUnprocessableEntity, "signup", "auth.signUp.title", data)
		return
	}

	ctx := r.Context()
	v := visitor(r)
	if err := v.Auth.SignUp(ctx, in); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("signup", "failure").Inc()
		status, _ := describe(err)
		data.Error = message(err, "auth.signUp.error")
		h.renderFormError(w, r, status, "signup", "auth.signUp.title", data)
		return
	}
	metrics.AuthAttemptsTotal.WithLabelValues("signup", "success").Inc()

	if err := v.RenewID(ctx, w); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("renew session id")
	}
	redirect(w, r, middleware.SafeNext(data.Next))
}

// HandleLogout always ends anonymous, whatever the backend answers.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := visitor(r)
	if err := v.Auth.Logout(ctx); err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("backend logout")
	}
	if err := v.RenewID(ctx, w); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("renew session id")
	}
	flash(r, "auth.loggedOut")
	redirect(w, r, "/")
}

type forgotData struct {
	Email     string
	Sent      bool
	ResetLink string
	Error     string
}

func (h *Handler) ShowForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, "forgot_password", "auth.forgotPassword.title", forgotData{})
}

func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.page(w, r, http.StatusBadRequest, "forgot_password", "auth.forgotPassword.title", forgotData{Error: "auth.forgotPassword.error"})
		return
	}
	data := forgotData{Email: r.PostFormValue("email")}
	if !models.IsValidEmail(data.Email) {
		data.Error = models.ErrKeyInvalidEmail
		h.page(w, r, http.StatusUnprocessableEntity, "forgot_password", "auth.forgotPassword.title", data)
		return
	}

	res, err := visitor(r).Client.Auth.ForgotPassword(r.Context(), data.Email)
	if err != nil {
		status, _ := describe(err)
		data.Error = message(err, "auth.forgotPassword.error")
		h.page(w, r, status, "forgot_password", "auth.forgotPassword.title", data)
		return
	}
	data.Sent = true
	data.ResetLink = res.ResetLink
	h.page(w, r, http.StatusOK, "forgot_password", "auth.forgotPassword.title", data)
}

type resetData struct {
	Token string
	Error string
}

func (h *Handler) ShowResetPassword(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, "reset_password", "auth.resetPassword.title", resetData{Token: r.URL.Query().Get("token")})
}

// HandleResetPassword sets the new password. The backend logs the visitor in,
// so the identity is refreshed before going home.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.page(w, r, http.StatusBadRequest, "reset_password", "auth.resetPassword.title", resetData{Error: "auth.resetPassword.error"})
		return
	}
	data := resetData{Token: r.PostFormValue("token")}
	if data.Token == "" {
		h.page(w, r, http.StatusBadRequest, "reset_password", "auth.resetPassword.title", data)
		return
	}
	password := r.PostFormValue("password")
	if err := models.ValidateNewPassword(password, r.PostFormValue("password_confirm")); err != nil {
		data.Error = message(err, "auth.resetPassword.error")
		h.page(w, r, http.StatusUnprocessableEntity, "reset_password", "auth.resetPassword.title", data)
		return
	}

	ctx := r.Context()
	v := visitor(r)
	if err := v.Client.Auth.ResetPassword(ctx, data.Token, password); err != nil {
		status, _ := describe(err)
		data.Error = message(err, "auth.resetPassword.error")
		h.page(w, r, status, "reset_password", "auth.resetPassword.title", data)
		return
	}
	if err := v.Auth.RefreshUser(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("refresh after password reset")
	}
	if err := v.RenewID(ctx, w); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("renew session id")
	}
	redirect(w, r, "/")
}

type verifyData struct {
	Error string
}

// VerifyEmail activates the account from the emailed link.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.page(w, r, http.StatusBadRequest, "verify_email", "auth.verifyEmail.title", verifyData{Error: "auth.verifyEmail.missingToken"})
		return
	}

	ctx := r.Context()
	v := visitor(r)
	if err := v.Client.Auth.VerifyEmail(ctx, token); err != nil {
		status, _ := describe(err)
		h.page(w, r, status, "verify_email", "auth.verifyEmail.title", verifyData{Error: message(err, "auth.verifyEmail.error")})
		return
	}
	if err := v.Auth.RefreshUser(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("refresh after email verification")
	}
	if err := v.RenewID(ctx, w); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("renew session id")
	}
	h.page(w, r, http.StatusOK, "verify_email", "auth.verifyEmail.title", verifyData{})
}

// HandleLang switches the page language and returns to the previous page.
func (h *Handler) HandleLang(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if lang := i18n.Normalize(r.PostFormValue("lang")); lang != "" {
		if v := visitor(r); v != nil {
			v.Session.Lang = lang
		}
	}
	redirect(w, r, middleware.SafeNext(r.PostFormValue("next")))
}

// RateLimited answers a throttled form post.
func (h *Handler) RateLimited(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusTooManyRequests, "error", "", errorData{Message: "auth.rateLimited", BackURL: r.URL.Path})
}
