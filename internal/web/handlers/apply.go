package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/toolme/internal/attachments"
	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/log"
	"github.com/good-yellow-bee/toolme/internal/metrics"
	"github.com/good-yellow-bee/toolme/internal/models"
	"github.com/good-yellow-bee/toolme/internal/web/middleware"
)

// Application flow states.
const (
	applyNotFound         = "not_found"
	applyError            = "error"
	applyOwnProject       = "own_project"
	applyAlreadySubmitted = "already_submitted"
	applyForm             = "form"
	applySubmitted        = "submitted"
)

type applyData struct {
	State      string
	Project    *models.Project
	Submission *models.Submission
	Message    string
	Link       string
	AllowFile  bool
	Error      string
}

// loadApply resolves the state a visitor starts the application flow in.
func (h *Handler) loadApply(r *http.Request) (applyData, int) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	cl := visitor(r).Client
	data := applyData{AllowFile: h.attachments != nil}

	project, err := cl.Projects.Get(ctx, id)
	if err != nil {
		status, msg := describe(err)
		data.State, data.Error = applyError, msg
		return data, status
	}
	if project == nil {
		data.State = applyNotFound
		return data, http.StatusNotFound
	}
	data.Project = project

	if u := currentUser(r); u != nil && project.IsOwnedBy(u.ID) {
		data.State = applyOwnProject
		return data, http.StatusOK
	}

	existing, err := cl.Submissions.GetMine(ctx, id)
	if err != nil {
		// The backend still rejects a second submission with 409.
		log.Ctx(ctx).Warn().Err(err).Str("project", id).Msg("look up own submission")
	}
	if existing != nil {
		data.State = applyAlreadySubmitted
		data.Submission = existing
		return data, http.StatusOK
	}

	data.State = applyForm
	return data, http.StatusOK
}

func applyTitle(data applyData) string {
	if data.Project == nil {
		return "projectDetail.notFound"
	}
	return ""
}

func (h *Handler) ShowApply(w http.ResponseWriter, r *http.Request) {
	data, status := h.loadApply(r)
	h.page(w, r, status, "apply", applyTitle(data), data)
}

// HandleApply sends the visitor's submission. A conflict from the backend
// means another submission won the race; the view switches to the
// already-submitted state and shows the backend's explanation.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, status := h.loadApply(r)
	if data.State != applyForm {
		if data.State == applyAlreadySubmitted {
			metrics.SubmissionsTotal.WithLabelValues(applyAlreadySubmitted).Inc()
			status = http.StatusConflict
		}
		h.page(w, r, status, "apply", applyTitle(data), data)
		return
	}

	renderForm := func(status int, msg string) {
		data.Error = msg
		h.page(w, r, status, "apply", "", data)
	}

	if err := h.parseApplyForm(w, r); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			renderForm(http.StatusRequestEntityTooLarge, h.renderer.T(middleware.LangFrom(r.Context()), "applyPage.fileTooLarge", "max", humanBytes(h.attachments.MaxBytes())))
			return
		}
		renderForm(http.StatusBadRequest, "applyPage.error")
		return
	}
	data.Message = r.PostFormValue("message")
	data.Link = r.PostFormValue("link")

	link := data.Link
	in := models.SubmissionInput{Message: data.Message, Link: &link}.Normalize()
	if err := in.Validate(); err != nil {
		renderForm(http.StatusUnprocessableEntity, message(err, "applyPage.error"))
		return
	}

	if h.attachments != nil {
		key, err := h.uploadAttachment(r, data.Project.ID)
		if errors.Is(err, attachments.ErrTooLarge) {
			renderForm(http.StatusRequestEntityTooLarge, h.renderer.T(middleware.LangFrom(r.Context()), "applyPage.fileTooLarge", "max", humanBytes(h.attachments.MaxBytes())))
			return
		}
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("upload attachment")
			renderForm(http.StatusBadGateway, "applyPage.error")
			return
		}
		if key != "" {
			in.FileRef = &key
		}
	}

	cl := visitor(r).Client
	sub, err := cl.Submissions.Create(ctx, data.Project.ID, in)
	switch {
	case errors.Is(err, client.ErrConflict):
		metrics.SubmissionsTotal.WithLabelValues(applyAlreadySubmitted).Inc()
		data.State = applyAlreadySubmitted
		data.Error = message(err, "applyPage.alreadySubmitted")
		if existing, gerr := cl.Submissions.GetMine(ctx, data.Project.ID); gerr == nil {
			data.Submission = existing
		}
		h.page(w, r, http.StatusConflict, "apply", "", data)
	case errors.Is(err, client.ErrUnauthorized):
		h.fail(w, r, err, "/")
	case err != nil:
		metrics.SubmissionsTotal.WithLabelValues("error").Inc()
		status, _ := describe(err)
		renderForm(status, message(err, "applyPage.error"))
	default:
		metrics.SubmissionsTotal.WithLabelValues(applySubmitted).Inc()
		data.State = applySubmitted
		data.Submission = sub
		h.page(w, r, http.StatusCreated, "apply", "", data)
	}
}

// parseApplyForm reads the body, multipart when attachments are enabled.
func (h *Handler) parseApplyForm(w http.ResponseWriter, r *http.Request) error {
	if h.attachments == nil {
		return r.ParseForm()
	}
	limit := h.attachments.MaxBytes() + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := r.ParseMultipartForm(limit)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// uploadAttachment stores the optional "file" field and returns its key,
// or "" when no file was sent.
func (h *Handler) uploadAttachment(r *http.Request, projectID string) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()

	if header.Size > h.attachments.MaxBytes() {
		return "", attachments.ErrTooLarge
	}
	contentType := header.Header.Get("Content-Type")
	key, err := h.attachments.Upload(r.Context(), projectID, header.Filename, file, header.Size, contentType)
	if err != nil {
		return "", err
	}
	metrics.AttachmentBytes.Observe(float64(header.Size))
	return key, nil
}

func humanBytes(n int64) string {
	const mib = 1 << 20
	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%d MiB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
