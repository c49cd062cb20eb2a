package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/toolme/internal/attachments"
	"github.com/good-yellow-bee/toolme/internal/log"
	"github.com/good-yellow-bee/toolme/internal/models"
)

type mySubmissionsData struct {
	Submissions []models.Submission
	Error       string
}

// MySubmissions lists the visitor's submissions with unread counts.
func (h *Handler) MySubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := visitor(r).Client.Submissions.ListMine(r.Context())
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.page(w, r, http.StatusOK, "my_submissions", "mySubmissions.title", mySubmissionsData{Submissions: subs})
}

type submissionData struct {
	Thread              *models.SubmissionThread
	Project             *models.Project
	UserID              string
	IsOwner             bool
	CanReply            bool
	ShowCoherentActions bool
	FileURL             string
	Draft               string
	Error               string
}

// loadThread fetches the thread, marks it read, then fetches the project,
// in that order. A missing thread leaves Thread nil.
func (h *Handler) loadThread(r *http.Request, id string) (submissionData, error) {
	ctx := r.Context()
	cl := visitor(r).Client
	data := submissionData{}
	if u := currentUser(r); u != nil {
		data.UserID = u.ID
	}

	thread, err := cl.Submissions.GetThread(ctx, id)
	if err != nil || thread == nil {
		return data, err
	}
	data.Thread = thread

	if err := cl.Submissions.MarkRead(ctx, id); err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("submission", id).Msg("mark read")
	}

	project, err := cl.Projects.Get(ctx, thread.ProjectID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("project", thread.ProjectID).Msg("load thread project")
	}
	data.Project = project
	data.IsOwner = project.IsOwnedBy(data.UserID)
	data.CanReply = data.UserID != "" && (data.IsOwner || thread.LearnerID == data.UserID)
	data.ShowCoherentActions = data.IsOwner && thread.Coherent == nil

	if thread.FileRef != nil && h.attachments != nil && attachments.IsKey(*thread.FileRef) {
		u, err := h.attachments.PresignedURL(ctx, *thread.FileRef)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("presign attachment")
		}
		data.FileURL = u
	}
	return data, nil
}

func (h *Handler) renderThread(w http.ResponseWriter, r *http.Request, status int, data submissionData) {
	if data.Thread == nil && status == http.StatusOK {
		status = http.StatusNotFound
	}
	h.page(w, r, status, "submission", "", data)
}

// SubmissionDetail shows a submission thread.
func (h *Handler) SubmissionDetail(w http.ResponseWriter, r *http.Request) {
	data, err := h.loadThread(r, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "/my-submissions")
		return
	}
	h.renderThread(w, r, http.StatusOK, data)
}

// HandleMessage appends a reply and re-renders the whole thread from the
// backend.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	in := models.MessageInput{Body: r.PostFormValue("body")}

	status := http.StatusOK
	errMsg := ""
	if err := in.Validate(); err != nil {
		status, errMsg = http.StatusUnprocessableEntity, message(err, "errors.backend")
	} else if _, err := visitor(r).Client.Submissions.AddMessage(ctx, id, in); err != nil {
		status, _ = describe(err)
		errMsg = message(err, "errors.backend")
	}

	data, err := h.loadThread(r, id)
	if err != nil {
		h.fail(w, r, err, "/my-submissions")
		return
	}
	if errMsg != "" {
		data.Error = errMsg
		data.Draft = in.Body
	} else if r.Header.Get("HX-Request") != "true" {
		redirect(w, r, "/submission/"+id)
		return
	}
	h.renderThread(w, r, status, data)
}

// HandleCoherent records the owner's judgment and re-renders the thread.
func (h *Handler) HandleCoherent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	coherent, err := strconv.ParseBool(r.PostFormValue("coherent"))
	if err != nil {
		http.Error(w, "invalid coherent value", http.StatusBadRequest)
		return
	}

	status := http.StatusOK
	errMsg := ""
	if _, err := visitor(r).Client.Submissions.SetCoherent(ctx, id, coherent); err != nil {
		status, _ = describe(err)
		errMsg = message(err, "errors.backend")
	}

	data, err := h.loadThread(r, id)
	if err != nil {
		h.fail(w, r, err, "/my-submissions")
		return
	}
	if errMsg == "" && r.Header.Get("HX-Request") != "true" {
		redirect(w, r, "/submission/"+id)
		return
	}
	data.Error = errMsg
	h.renderThread(w, r, status, data)
}
