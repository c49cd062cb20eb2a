// Package cmd contains the CLI commands for toolmectl.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/i18n"
	"github.com/good-yellow-bee/toolme/internal/models"
	"github.com/good-yellow-bee/toolme/internal/security"
	"github.com/good-yellow-bee/toolme/pkg/config"
)

// apiURLEnv overrides the backend address when --api is not given.
const apiURLEnv = "TOOLME_API_URL"

var errNotLoggedIn = errors.New("not logged in, run: toolmectl auth login")

// globals holds the persistent flags shared by every command.
type globals struct {
	verbose     bool
	output      string
	apiURL      string
	credentials string
	caFile      string
	timeout     time.Duration
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "toolmectl",
		Short: "ToolMe marketplace command line client",
		Long: `toolmectl talks to the ToolMe marketplace API.

Companies publish projects; learners apply with a submission and discuss it
with the project owner in a message thread.

Examples:
  # Log in (the password is prompted for)
  toolmectl auth login --email ada@example.com

  # Browse the open projects, 12 at a time
  toolmectl project list
  toolmectl project list --limit 24

  # Apply to a project
  toolmectl submission apply <project-id> --message "Here is my take" --link https://github.com/ada/solution`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Run when no subcommand is specified
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Global flags
	pf := root.PersistentFlags()
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")
	pf.StringVarP(&g.output, "output", "o", "table", "output format (table, json, plain)")
	pf.StringVar(&g.apiURL, "api", "", "backend base URL (default: $"+apiURLEnv+", the logged in backend, or "+client.DefaultBaseURL+")")
	pf.StringVar(&g.credentials, "credentials", "", "credentials file (default: <user config dir>/toolme/credentials.yaml)")
	pf.StringVar(&g.caFile, "ca-file", "", "extra CA certificate for a privately signed backend")
	pf.DurationVar(&g.timeout, "timeout", 15*time.Second, "backend request timeout")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		switch g.output {
		case "table", "json", "plain":
			return nil
		default:
			return fmt.Errorf("unknown output format %q (table, json, plain)", g.output)
		}
	}

	root.AddCommand(
		newAuthCmd(g),
		newProjectCmd(g),
		newSubmissionCmd(g),
		newVersionCmd(g),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		PrintError(root.ErrOrStderr(), err)
		return err
	}
	return nil
}

// PrintError prints an error message in terms a user can act on.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", describe(err))
}

// printVerbose prints a message only if verbose mode is enabled.
func (g *globals) printVerbose(cmd *cobra.Command, format string, args ...any) {
	if g.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}
}

func (g *globals) credentialsPath() string {
	if g.credentials != "" {
		return g.credentials
	}
	return defaultCredentialsPath()
}

// baseURL resolves the backend: flag, environment, stored login, default.
func (g *globals) baseURL(stored *storedCredentials) string {
	if g.apiURL != "" {
		return g.apiURL
	}
	if env := os.Getenv(apiURLEnv); env != "" {
		return env
	}
	if stored != nil && stored.APIURL != "" {
		return stored.APIURL
	}
	return client.DefaultBaseURL
}

// session loads the stored credential and returns a client carrying it.
func (g *globals) session(cmd *cobra.Command) (*client.Client, *storedCredentials, error) {
	stored, err := loadCredentials(g.credentialsPath())
	if err != nil {
		return nil, nil, err
	}
	base := g.baseURL(stored)
	if stored.APIURL != "" && stored.APIURL != base {
		g.printVerbose(cmd, "stored login belongs to %s, not %s", stored.APIURL, base)
		stored = &storedCredentials{}
	}
	g.printVerbose(cmd, "backend: %s", base)

	transport, err := security.BackendTransport(security.BackendTLSConfig{CAFile: g.caFile})
	if err != nil {
		return nil, nil, err
	}
	c := client.New(base,
		client.WithCredential(client.NewCredential(stored.Token)),
		client.WithHTTPClient(&http.Client{Timeout: g.timeout, Transport: transport}),
		client.WithUserAgent(config.UserAgent("toolmectl")),
	)
	return c, stored, nil
}

// authedSession is session for commands that need a login.
func (g *globals) authedSession(cmd *cobra.Command) (*client.Client, *storedCredentials, error) {
	c, stored, err := g.session(cmd)
	if err != nil {
		return nil, nil, err
	}
	if stored.Token == "" {
		return nil, nil, errNotLoggedIn
	}
	return c, stored, nil
}

var catalog = i18n.MustNew()

// describe turns client and validation errors into readable text.
func describe(err error) string {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		return catalog.T("en", vErr.Key)
	case errors.Is(err, client.ErrUnauthorized):
		return "session expired or not logged in, run: toolmectl auth login"
	case errors.Is(err, client.ErrForbidden):
		if msg := err.Error(); msg != "" {
			return "not allowed: " + msg
		}
		return "not allowed"
	}
	return err.Error()
}
