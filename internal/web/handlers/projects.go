package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/log"
	"github.com/good-yellow-bee/toolme/internal/models"
)

type homeData struct {
	Projects []models.Project
	Total    int
	Shown    int
	NextSkip int
	HasMore  bool
	Error    string
}

// Home shows the landing section and the first page of projects. Browsers
// without JavaScript follow ?shown=N to load up to N more rows.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	want := h.pageSize
	if shown, err := strconv.Atoi(r.URL.Query().Get("shown")); err == nil && shown > 0 {
		want = shown + h.pageSize
	}

	pager := client.NewPager(visitor(r).Client.Projects, h.pageSize)
	data := homeData{}
	if err := pager.FillTo(r.Context(), want); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("list projects")
		data.Error = message(err, "errors.backend")
	}
	if n := pager.Duplicates(); n > 0 {
		log.Ctx(r.Context()).Warn().Int("duplicates", n).Msg("unstable project ordering")
	}
	data.Projects = pager.Items()
	data.Total = pager.Total()
	data.Shown = len(data.Projects)
	data.NextSkip = pager.Offset()
	data.HasMore = pager.HasMore()

	h.page(w, r, http.StatusOK, "home", "", data)
}

// MoreProjects renders the next window of the listing for "load more".
func (h *Handler) MoreProjects(w http.ResponseWriter, r *http.Request) {
	skip, err := strconv.Atoi(r.URL.Query().Get("skip"))
	if err != nil || skip < 0 {
		http.Error(w, "invalid skip", http.StatusBadRequest)
		return
	}

	page, err := visitor(r).Client.Projects.List(r.Context(), client.Page{Skip: skip, Limit: h.pageSize})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int("skip", skip).Msg("list projects")
		h.fragment(w, r, http.StatusBadGateway, "view_alert", alertData{Kind: "error", Message: "errors.backend"})
		return
	}

	next := skip + len(page.Items)
	data := homeData{
		Projects: page.Items,
		Total:    page.Total,
		Shown:    next,
		NextSkip: next,
		HasMore:  len(page.Items) > 0 && client.HasMoreAfter(next, page.Total),
	}
	h.fragment(w, r, http.StatusOK, "project_items", data)
}

type detailData struct {
	Project      *models.Project
	IsOwner      bool
	MySubmission *models.Submission
	Error        string
}

// ProjectDetail shows one project. A missing project renders the not-found
// state with a link back to the listing.
func (h *Handler) ProjectDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	cl := visitor(r).Client

	project, err := cl.Projects.Get(ctx, id)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	if project == nil {
		h.page(w, r, http.StatusNotFound, "project_detail", "projectDetail.notFound", detailData{})
		return
	}

	data := detailData{Project: project}
	if u := currentUser(r); u != nil {
		data.IsOwner = project.IsOwnedBy(u.ID)
		if !data.IsOwner {
			sub, err := cl.Submissions.GetMine(ctx, id)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("project", id).Msg("look up own submission")
			}
			data.MySubmission = sub
		}
	}
	h.page(w, r, http.StatusOK, "project_detail", "", data)
}

type projectFormData struct {
	Heading string
	Submit  string
	Action  string
	BackURL string
	Input   models.ProjectInput
	Error   string
}

func projectInputFromForm(r *http.Request) models.ProjectInput {
	in := models.ProjectInput{
		Title:            r.PostFormValue("title"),
		Domain:           r.PostFormValue("domain"),
		ShortDescription: r.PostFormValue("short_description"),
		FullDescription:  r.PostFormValue("full_description"),
		Deadline:         r.PostFormValue("deadline"),
	}
	if d := r.PostFormValue("delivery_instructions"); d != "" {
		in.DeliveryInstructions = &d
	}
	return in.Trimmed()
}

func publishForm(in models.ProjectInput, errMsg string) projectFormData {
	return projectFormData{
		Heading: "publishPage.title",
		Submit:  "publishPage.submit",
		Action:  "/publish",
		BackURL: "/",
		Input:   in,
		Error:   errMsg,
	}
}

func (h *Handler) ShowPublish(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, "project_form", "publishPage.title", publishForm(models.ProjectInput{}, ""))
}

// HandlePublish creates a project and opens its detail page.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.page(w, r, http.StatusBadRequest, "project_form", "publishPage.title", publishForm(models.ProjectInput{}, "publishPage.error"))
		return
	}
	in := projectInputFromForm(r)
	if err := in.Validate(); err != nil {
		h.page(w, r, http.StatusUnprocessableEntity, "project_form", "publishPage.title", publishForm(in, message(err, "publishPage.error")))
		return
	}

	project, err := visitor(r).Client.Projects.Create(r.Context(), in)
	if errors.Is(err, client.ErrUnauthorized) {
		h.fail(w, r, err, "/")
		return
	}
	if err != nil {
		status, _ := describe(err)
		h.page(w, r, status, "project_form", "publishPage.title", publishForm(in, message(err, "publishPage.error")))
		return
	}
	flash(r, "publishPage.published")
	redirect(w, r, "/project/"+project.ID)
}

// loadOwned fetches the project and checks the visitor owns it. It writes
// the response and returns nil when the handler should stop.
func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request) *models.Project {
	id := chi.URLParam(r, "id")
	project, err := visitor(r).Client.Projects.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/")
		return nil
	}
	if project == nil {
		redirect(w, r, "/")
		return nil
	}
	u := currentUser(r)
	if u == nil || !project.IsOwnedBy(u.ID) {
		redirect(w, r, "/project/"+project.ID)
		return nil
	}
	return project
}

func editForm(p *models.Project, in models.ProjectInput, errMsg string) projectFormData {
	return projectFormData{
		Heading: "projectDetail.editProject",
		Submit:  "common.save",
		Action:  "/project/" + p.ID + "/edit",
		BackURL: "/project/" + p.ID,
		Input:   in,
		Error:   errMsg,
	}
}

func inputFromProject(p *models.Project) models.ProjectInput {
	return models.ProjectInput{
		Title:                p.Title,
		Domain:               p.Domain,
		ShortDescription:     p.ShortDescription,
		FullDescription:      p.FullDescription,
		Deadline:             p.DeadlineDate(),
		DeliveryInstructions: p.DeliveryInstructions,
	}
}

// ShowEdit shows the edit form to the owner. Anyone else lands on the
// detail page; a missing project sends the visitor home.
func (h *Handler) ShowEdit(w http.ResponseWriter, r *http.Request) {
	project := h.loadOwned(w, r)
	if project == nil {
		return
	}
	h.page(w, r, http.StatusOK, "project_form", "projectDetail.editProject", editForm(project, inputFromProject(project), ""))
}

func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	project := h.loadOwned(w, r)
	if project == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.page(w, r, http.StatusBadRequest, "project_form", "projectDetail.editProject", editForm(project, inputFromProject(project), "publishPage.error"))
		return
	}
	in := projectInputFromForm(r)
	if err := in.Validate(); err != nil {
		h.page(w, r, http.StatusUnprocessableEntity, "project_form", "projectDetail.editProject", editForm(project, in, message(err, "publishPage.error")))
		return
	}

	updated, err := visitor(r).Client.Projects.Update(r.Context(), project.ID, models.UpdateFromInput(in))
	if err != nil {
		status, _ := describe(err)
		h.page(w, r, status, "project_form", "projectDetail.editProject", editForm(project, in, message(err, "publishPage.error")))
		return
	}
	if updated == nil {
		redirect(w, r, "/")
		return
	}
	flash(r, "projectDetail.saved")
	redirect(w, r, "/project/"+updated.ID)
}

// HandleDelete removes a project owned by the visitor.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	project := h.loadOwned(w, r)
	if project == nil {
		return
	}
	deleted, err := visitor(r).Client.Projects.Delete(r.Context(), project.ID)
	if err != nil {
		h.fail(w, r, err, "/project/"+project.ID)
		return
	}
	if deleted {
		flash(r, "projectDetail.deleted")
	}
	redirect(w, r, "/account")
}

type projectSubmissionsData struct {
	Project     *models.Project
	Submissions []models.Submission
	Error       string
}

// ProjectSubmissions lists the submissions an owner received.
func (h *Handler) ProjectSubmissions(w http.ResponseWriter, r *http.Request) {
	project := h.loadOwned(w, r)
	if project == nil {
		return
	}
	data := projectSubmissionsData{Project: project}
	subs, err := visitor(r).Client.Submissions.ListForProject(r.Context(), project.ID)
	if err != nil {
		h.fail(w, r, err, "/project/"+project.ID)
		return
	}
	data.Submissions = subs
	h.page(w, r, http.StatusOK, "project_submissions", "projectSubmissions.title", data)
}
