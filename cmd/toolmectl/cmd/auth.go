package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/models"
)

func newAuthCmd(g *globals) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Account and login commands",
		Long: `Commands for signing up, logging in and managing the account.

The login is kept in a credentials file readable by the current user only.

Examples:
  toolmectl auth signup --email ada@example.com
  toolmectl auth login --email ada@example.com
  toolmectl auth whoami
  toolmectl auth logout`,
	}
	authCmd.AddCommand(
		newLoginCmd(g),
		newSignupCmd(g),
		newLogoutCmd(g),
		newWhoamiCmd(g),
		newForgotPasswordCmd(g),
		newResetPasswordCmd(g),
		newVerifyEmailCmd(g),
		newDeleteAccountCmd(g),
	)
	return authCmd
}

func newLoginCmd(g *globals) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			if email == "" {
				var err error
				if email, err = p.line("Email: "); err != nil {
					return err
				}
			}
			if !models.IsValidEmail(email) {
				return &models.ValidationError{Key: models.ErrKeyInvalidEmail}
			}
			password, err := p.password("Password: ")
			if err != nil {
				return err
			}

			c, _, err := g.session(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := c.Auth.Login(ctx, models.LoginInput{Email: email, Password: password}); err != nil {
				var apiErr *client.Error
				if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
					return fmt.Errorf("login failed: %s", apiErr.Message)
				}
				return fmt.Errorf("login: %w", err)
			}
			token := c.Credential().Token()
			if token == "" {
				return errors.New("login: backend did not issue a session cookie")
			}

			stored := &storedCredentials{APIURL: c.BaseURL(), Email: email, Token: token}
			if user, err := c.Auth.Me(ctx); err == nil && user != nil {
				stored.Email = user.Email
			}
			if err := saveCredentials(g.credentialsPath(), stored); err != nil {
				return err
			}
			g.printVerbose(cmd, "credentials saved to %s", g.credentialsPath())
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", stored.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when empty)")
	return cmd
}

func newSignupCmd(g *globals) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			if email == "" {
				var err error
				if email, err = p.line("Email: "); err != nil {
					return err
				}
			}
			password, err := p.password("Password: ")
			if err != nil {
				return err
			}
			confirm, err := p.password("Confirm password: ")
			if err != nil {
				return err
			}
			in := models.SignUpInput{Email: email, Password: password, PasswordConfirm: confirm}
			if err := in.Validate(); err != nil {
				return err
			}

			c, _, err := g.session(cmd)
			if err != nil {
				return err
			}
			user, err := c.Auth.SignUp(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("signup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s. Log in with: toolmectl auth login --email %s\n", user.Email, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when empty)")
	return cmd
}

func newLogoutCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, stored, err := g.session(cmd)
			if err != nil {
				return err
			}
			if stored.Token == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			// The local login is dropped even when the backend call fails.
			if err := c.Auth.Logout(cmd.Context()); err != nil {
				g.printVerbose(cmd, "backend logout failed: %v", err)
			}
			if err := removeCredentials(g.credentialsPath()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.authedSession(cmd)
			if err != nil {
				return err
			}
			user, err := c.Auth.Me(cmd.Context())
			if err != nil {
				return err
			}
			if user == nil {
				return errNotLoggedIn
			}

			if g.output == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{"id": user.ID, "email": user.Email})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.Email, user.ID)
			if exp, ok := c.Credential().ExpiresAt(); ok && g.output == "table" {
				fmt.Fprintf(cmd.OutOrStdout(), "Session expires %s\n", exp.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newForgotPasswordCmd(g *globals) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !models.IsValidEmail(email) {
				return &models.ValidationError{Key: models.ErrKeyInvalidEmail}
			}
			c, _, err := g.session(cmd)
			if err != nil {
				return err
			}
			res, err := c.Auth.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "If the account exists, a reset link is on its way.")
			if res != nil && res.ResetLink != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Reset link: %s\n", res.ResetLink)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResetPasswordCmd(g *globals) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			password, err := p.password("New password: ")
			if err != nil {
				return err
			}
			confirm, err := p.password("Confirm password: ")
			if err != nil {
				return err
			}
			if err := models.ValidateNewPassword(password, confirm); err != nil {
				return err
			}
			c, _, err := g.session(cmd)
			if err != nil {
				return err
			}
			if err := c.Auth.ResetPassword(cmd.Context(), token, password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password updated. You can log in now.")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token from the reset link")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newVerifyEmailCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-email <token>",
		Short: "Confirm an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.session(cmd)
			if err != nil {
				return err
			}
			if err := c.Auth.VerifyEmail(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Email verified.")
			return nil
		},
	}
}

func newDeleteAccountCmd(g *globals) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the logged in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, stored, err := g.authedSession(cmd)
			if err != nil {
				return err
			}
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			if !force {
				ok, err := p.confirm(fmt.Sprintf("Delete account %s and everything it owns?", stored.Email))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			password, err := p.password("Password: ")
			if err != nil {
				return err
			}
			if err := c.Auth.DeleteAccount(cmd.Context(), password); err != nil {
				return err
			}
			if err := removeCredentials(g.credentialsPath()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation question")
	return cmd
}

// requireFound turns a nil lookup into a not-found error.
func requireFound[T any](v *T, what, id string) (*T, error) {
	if v == nil {
		return nil, fmt.Errorf("%s %s not found", what, id)
	}
	return v, nil
}
