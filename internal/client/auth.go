package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/toolme/internal/models"
)

const authResource = "auth"

// AuthService wraps /auth endpoints.
type AuthService struct {
	c *Client
}

// TokenResponse is returned by login.
type TokenResponse struct {
	AccessToken string
	TokenType   string
}

// ForgotPasswordResult carries the reset link the backend exposes in
// development when no mail server is configured.
type ForgotPasswordResult struct {
	ResetLink string
}

// SignUp creates an account. It does not log in.
func (s *AuthService) SignUp(ctx context.Context, in models.SignUpInput) (*models.User, error) {
	var w userWire
	err := s.c.do(ctx, call{
		resource:  authResource,
		operation: "signup",
		method:    http.MethodPost,
		path:      "/auth/signup",
		body: signUpPayload{
			Email:           strings.TrimSpace(in.Email),
			Password:        in.Password,
			PasswordConfirm: in.PasswordConfirm,
		},
	}, &w)
	if err != nil {
		return nil, err
	}
	u := mapUser(w)
	return &u, nil
}

// Login authenticates and stores the issued credential on the client.
func (s *AuthService) Login(ctx context.Context, in models.LoginInput) (*TokenResponse, error) {
	var w tokenWire
	err := s.c.do(ctx, call{
		resource:  authResource,
		operation: "login",
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      loginPayload{Email: strings.TrimSpace(in.Email), Password: in.Password},
	}, &w)
	if err != nil {
		return nil, err
	}
	// The cookie is the primary transport; fall back to the body token when
	// a proxy stripped Set-Cookie.
	if s.c.cred.Token() == "" && w.AccessToken != "" {
		s.c.cred.Set(w.AccessToken)
	}
	return &TokenResponse{AccessToken: w.AccessToken, TokenType: w.TokenType}, nil
}

// Me returns the current user, or nil when the backend reports no session.
// Without a credential there is nothing to ask about and no request is sent.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	if s.c.cred.Token() == "" {
		return nil, nil
	}
	var w userWire
	err := s.c.do(ctx, call{
		resource:  authResource,
		operation: "me",
		method:    http.MethodGet,
		path:      "/auth/me",
	}, &w)
	if errors.Is(err, ErrUnauthorized) {
		s.c.cred.Clear()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u := mapUser(w)
	return &u, nil
}

// Logout asks the backend to drop its cookie. The local credential is
// cleared whatever the outcome; the returned error is informational.
func (s *AuthService) Logout(ctx context.Context) error {
	defer s.c.cred.Clear()
	return s.c.do(ctx, call{
		resource:  authResource,
		operation: "logout",
		method:    http.MethodPost,
		path:      "/auth/logout",
	}, nil)
}

// ForgotPassword requests a reset email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResult, error) {
	var w struct {
		ResetLink *string `json:"reset_link"`
	}
	err := s.c.do(ctx, call{
		resource:  authResource,
		operation: "forgot_password",
		method:    http.MethodPost,
		path:      "/auth/forgot-password",
		body:      map[string]string{"email": strings.TrimSpace(email)},
	}, &w)
	if err != nil {
		return nil, err
	}
	res := &ForgotPasswordResult{}
	if w.ResetLink != nil {
		res.ResetLink = *w.ResetLink
	}
	return res, nil
}

// ResetPassword sets a new password using an emailed token. The backend
// logs the user in on success.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	return s.c.do(ctx, call{
		resource:  authResource,
		operation: "reset_password",
		method:    http.MethodPost,
		path:      "/auth/reset-password",
		body:      map[string]string{"token": token, "new_password": password},
	}, nil)
}

// VerifyEmail activates an account from an emailed token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	return s.c.do(ctx, call{
		resource:  authResource,
		operation: "verify_email",
		method:    http.MethodPost,
		path:      "/auth/verify-email",
		body:      map[string]string{"token": token},
	}, nil)
}

// DeleteAccount permanently removes the signed-in account.
func (s *AuthService) DeleteAccount(ctx context.Context, password string) error {
	return s.c.do(ctx, call{
		resource:  authResource,
		operation: "delete_account",
		method:    http.MethodPost,
		path:      "/auth/delete-account",
		body:      map[string]string{"password": password},
	}, nil)
}
