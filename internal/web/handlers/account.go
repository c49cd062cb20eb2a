package handlers

import (
	"net/http"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/toolme/internal/log"
	"github.com/good-yellow-bee/toolme/internal/models"
)

// deleteConfirmation must be typed to delete an account.
const deleteConfirmation = "DELETE"

type accountData struct {
	Projects    []models.Project
	Submissions []models.Submission
	Error       string
	DeleteError string
}

// loadAccount fetches the visitor's projects and submissions concurrently.
// Projects are sorted newest first.
func (h *Handler) loadAccount(r *http.Request) accountData {
	cl := visitor(r).Client
	var data accountData

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		projects, err := cl.Projects.ListMine(ctx)
		data.Projects = projects
		return err
	})
	g.Go(func() error {
		subs, err := cl.Submissions.ListMine(ctx)
		data.Submissions = subs
		return err
	})
	if err := g.Wait(); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("load account")
		data.Error = message(err, "errors.backend")
	}

	sort.SliceStable(data.Projects, func(i, j int) bool {
		return data.Projects[i].Created().After(data.Projects[j].Created())
	})
	return data
}

func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, "account", "account.title", h.loadAccount(r))
}

// HandleDeleteAccount deletes the account after the password and the typed
// confirmation, then signs the visitor out and goes home.
func (h *Handler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	renderErr := func(status int, msg string) {
		data := h.loadAccount(r)
		data.DeleteError = msg
		h.page(w, r, status, "account", "account.title", data)
	}

	if err := r.ParseForm(); err != nil {
		renderErr(http.StatusBadRequest, "account.deleteError")
		return
	}
	if r.PostFormValue("confirm") != deleteConfirmation {
		renderErr(http.StatusUnprocessableEntity, "account.deleteConfirmMismatch")
		return
	}
	password := r.PostFormValue("password")
	if password == "" {
		renderErr(http.StatusUnprocessableEntity, "account.deleteError")
		return
	}

	v := visitor(r)
	if err := v.Client.Auth.DeleteAccount(ctx, password); err != nil {
		status, _ := describe(err)
		renderErr(status, message(err, "account.deleteError"))
		return
	}
	if err := v.Auth.Logout(ctx); err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("logout after account deletion")
	}
	flash(r, "account.deleted")
	redirect(w, r, "/")
}
