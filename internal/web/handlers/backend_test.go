package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/toolme/internal/client"
)

type fakeUser struct {
	ID       string
	Email    string
	Password string
}

type fakeProject struct {
	ID                   string  `json:"id"`
	Title                string  `json:"title"`
	Domain               string  `json:"domain"`
	ShortDescription     string  `json:"short_description"`
	FullDescription      string  `json:"full_description"`
	Deadline             string  `json:"deadline"`
	DeliveryInstructions *string `json:"delivery_instructions"`
	CreatedAt            string  `json:"created_at"`
	UserID               string  `json:"user_id"`
}

type fakeMessage struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	SenderID     string `json:"sender_id"`
	Body         string `json:"body"`
	CreatedAt    string `json:"created_at"`
}

type fakeSubmission struct {
	ID           string        `json:"id"`
	ProjectID    string        `json:"project_id"`
	LearnerID    string        `json:"learner_id"`
	Link         *string       `json:"link"`
	FileRef      *string       `json:"file_ref"`
	CreatedAt    string        `json:"created_at"`
	Coherent     *bool         `json:"coherent"`
	MessageCount int           `json:"message_count"`
	UnreadCount  int           `json:"unread_count"`
	Messages     []fakeMessage `json:"messages,omitempty"`
}

// fakeBackend is an in-memory marketplace API speaking the backend's JSON.
type fakeBackend struct {
	mu          sync.Mutex
	users       map[string]*fakeUser // by email
	tokens      map[string]string    // token -> user id
	projects    []*fakeProject
	submissions []*fakeSubmission
	seq         int
	clock       time.Time
	calls       []string

	// hideMine makes my-submission lookups answer 404 while creation still
	// detects the duplicate.
	hideMine   bool
	failLogout bool
	failList   bool
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{
		users:  make(map[string]*fakeUser),
		tokens: make(map[string]string),
		clock:  time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	srv := httptest.NewServer(b.routes())
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			b.mu.Lock()
			b.calls = append(b.calls, req.Method+" "+req.URL.Path)
			b.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	r.Post("/auth/signup", b.signUp)
	r.Post("/auth/login", b.login)
	r.Get("/auth/me", b.me)
	r.Post("/auth/logout", b.logout)
	r.Post("/auth/forgot-password", b.forgotPassword)
	r.Post("/auth/reset-password", b.resetPassword)
	r.Post("/auth/verify-email", b.verifyEmail)
	r.Post("/auth/delete-account", b.deleteAccount)

	r.Get("/projects", b.listProjects)
	r.Post("/projects", b.createProject)
	r.Get("/projects/me", b.myProjects)
	r.Get("/projects/{id}", b.getProject)
	r.Put("/projects/{id}", b.updateProject)
	r.Delete("/projects/{id}", b.deleteProject)
	r.Post("/projects/{id}/submissions", b.createSubmission)
	r.Get("/projects/{id}/submissions", b.projectSubmissions)
	r.Get("/projects/{id}/my-submission", b.mySubmission)

	r.Get("/submissions/me", b.mySubmissions)
	r.Get("/submissions/{id}", b.thread)
	r.Post("/submissions/{id}/read", b.markRead)
	r.Patch("/submissions/{id}/coherent", b.setCoherent)
	r.Post("/submissions/{id}/messages", b.addMessage)
	return r
}

// Seeding helpers, safe to call from tests.

func (b *fakeBackend) addUser(email, password string) *fakeUser {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(email, password)
}

func (b *fakeBackend) addUserLocked(email, password string) *fakeUser {
	b.seq++
	u := &fakeUser{ID: fmt.Sprintf("u%d", b.seq), Email: email, Password: password}
	b.users[email] = u
	return u
}

func (b *fakeBackend) addProject(ownerID, title string) *fakeProject {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	p := &fakeProject{
		ID:               fmt.Sprintf("p%d", b.seq),
		Title:            title,
		Domain:           "web",
		ShortDescription: "short " + title,
		FullDescription:  "full " + title,
		Deadline:         "2030-01-31T00:00:00",
		CreatedAt:        b.tick(),
		UserID:           ownerID,
	}
	b.projects = append(b.projects, p)
	return p
}

func (b *fakeBackend) addSubmission(projectID, learnerID string) *fakeSubmission {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	s := &fakeSubmission{
		ID:        fmt.Sprintf("s%d", b.seq),
		ProjectID: projectID,
		LearnerID: learnerID,
		CreatedAt: b.tick(),
	}
	b.submissions = append(b.submissions, s)
	b.appendMessageLocked(s, learnerID, "first message")
	return s
}

func (b *fakeBackend) project(id string) *fakeProject {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.findProject(id)
}

func (b *fakeBackend) submission(id string) *fakeSubmission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.findSubmission(id)
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *fakeBackend) callLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) resetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// Internals; the caller holds b.mu.

func (b *fakeBackend) tick() string {
	b.clock = b.clock.Add(time.Minute)
	return b.clock.Format("2006-01-02T15:04:05")
}

func (b *fakeBackend) findProject(id string) *fakeProject {
	for _, p := range b.projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (b *fakeBackend) findSubmission(id string) *fakeSubmission {
	for _, s := range b.submissions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (b *fakeBackend) appendMessageLocked(s *fakeSubmission, senderID, body string) fakeMessage {
	b.seq++
	m := fakeMessage{
		ID:           fmt.Sprintf("m%d", b.seq),
		SubmissionID: s.ID,
		SenderID:     senderID,
		Body:         body,
		CreatedAt:    b.tick(),
	}
	s.Messages = append(s.Messages, m)
	s.MessageCount = len(s.Messages)
	return m
}

func (b *fakeBackend) issueToken(w http.ResponseWriter, u *fakeUser) string {
	b.seq++
	token := fmt.Sprintf("tok-%s-%d", u.ID, b.seq)
	b.tokens[token] = u.ID
	http.SetCookie(w, &http.Cookie{Name: client.AuthCookieName, Value: token, Path: "/", HttpOnly: true})
	return token
}

func (b *fakeBackend) userByID(id string) *fakeUser {
	for _, u := range b.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// caller resolves the auth cookie; it answers 401 and returns nil when
// there is no valid session.
func (b *fakeBackend) caller(w http.ResponseWriter, r *http.Request) *fakeUser {
	if ck, err := r.Cookie(client.AuthCookieName); err == nil {
		if id, ok := b.tokens[ck.Value]; ok {
			if u := b.userByID(id); u != nil {
				return u
			}
		}
	}
	writeDetail(w, http.StatusUnauthorized, "Not authenticated")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func summary(s *fakeSubmission) fakeSubmission {
	out := *s
	out.Messages = nil
	return out
}

// Auth endpoints.

func (b *fakeBackend) signUp(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[in.Email]; ok {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	u := b.addUserLocked(in.Email, in.Password)
	writeJSON(w, http.StatusCreated, map[string]string{"id": u.ID, "email": u.Email})
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[in.Email]
	if !ok || u.Password != in.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	token := b.issueToken(w, u)
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (b *fakeBackend) me(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.caller(w, r)
	if u == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": u.ID, "email": u.Email})
}

func (b *fakeBackend) logout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failLogout {
		writeDetail(w, http.StatusInternalServerError, "boom")
		return
	}
	if ck, err := r.Cookie(client.AuthCookieName); err == nil {
		delete(b.tokens, ck.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: client.AuthCookieName, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) forgotPassword(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"reset_link": "http://localhost:5173/reset-password?token=reset-1"})
}

func (b *fakeBackend) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users["reset@example.com"]
	if in.Token != "reset-1" || !ok {
		writeDetail(w, http.StatusBadRequest, "Invalid or expired token")
		return
	}
	u.Password = in.NewPassword
	b.issueToken(w, u)
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users["verify@example.com"]
	if in.Token != "verify-1" || !ok {
		writeDetail(w, http.StatusBadRequest, "Invalid verification token")
		return
	}
	b.issueToken(w, u)
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) deleteAccount(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Password string `json:"password"`
	}
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.caller(w, r)
	if u == nil {
		return
	}
	if u.Password != in.Password {
		writeDetail(w, http.StatusBadRequest, "Incorrect password")
		return
	}
	delete(b.users, u.Email)
	w.WriteHeader(http.StatusNoContent)
}

// Project endpoints.

func (b *fakeBackend) listProjects(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failList {
		writeDetail(w, http.StatusInternalServerError, "database down")
		return
	}
	items := []*fakeProject{}
	for i := skip; i < len(b.projects) && i < skip+limit; i++ {
		items = append(items, b.projects[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(b.projects)})
}

func (b *fakeBackend) myProjects(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.caller(w, r)
	if u == nil {
		return
	}
	out := []*fakeProject{}
	for _, p := range b.projects {
		if p.UserID == u.ID {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *fakeBackend) getProject(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.findProject(chi.URLParam(r, "id"))
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *fakeBackend) createProject(w http.ResponseWriter, r *http.Request) {
	var in fakeProject
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.caller(w, r)
	if u == nil {
		return
	}
	b.seq++
	in.ID = fmt.Sprintf("p%d", b.seq)
	in.UserID = u.ID
	in.CreatedAt = b.tick()
	b.projects = append(b.projects, &in)
	writeJSON(w, http.StatusCreated, in)
}

// ownedProject resolves {id} for a write by its owner.
func (b *fakeBackend) ownedProject(w http.ResponseWriter, r *http.Request) *fakeProject {
	u := b.caller(w, r)
	if u == nil {
		return nil
	}
	p := b.findProject(chi.URLParam(r, "id"))
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return nil
	}
	if p.UserID != u.ID {
		writeDetail(w, http.StatusForbidden, "Not the project owner")
		return nil
	}
	return p
}

func (b *fakeBackend) updateProject(w http.ResponseWriter, r *http.Request) {
	var in map[string]any
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.ownedProject(w, r)
	if p == nil {
		return
	}
	if v, ok := in["title"].(string); ok {
		p.Title = v
	}
	if v, ok := in["domain"].(string); ok {
		p.Domain = v
	}
	if v, ok := in["short_description"].(string); ok {
		p.ShortDescription = v
	}
	if v, ok := in["full_description"].(string); ok {
		p.FullDescription = v
	}
	if v, ok := in["deadline"].(string); ok {
		p.Deadline = v
	}
	if v, ok := in["delivery_instructions"]; ok {
		if s, isStr := v.(string); isStr {
			p.DeliveryInstructions = &s
		} else {
			p.DeliveryInstructions = nil
		}
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *fakeBackend) deleteProject(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.ownedProject(w, r)
	if p == nil {
		return
	}
	for i, q := range b.projects {
		if q.ID == p.ID {
			b.projects = append(b.projects[:i], b.projects[i+1:]...)
			break
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submission endpoints.

func (b *fakeBackend) createSubmission(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message string  `json:"message"`
		Link    *string `json:"link"`
		FileRef *string `json:"file_ref"`
	}
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.caller(w, r)
	if u == nil {
		return
	}
	p := b.findProject(chi.URLParam(r, "id"))
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	if p.UserID == u.ID {
		writeDetail(w, http.StatusBadRequest, "You cannot submit to your own project")
		return
	}
	for _, s := range b.submissions {
		if s.ProjectID == p.ID && s.LearnerID == u.ID {
			writeDetail(w, http.StatusConflict, "You already have a submission for this project")
			return
		}
	}
	b.seq++
	s := &fakeSubmission{
		ID:        fmt.Sprintf("s%d", b.seq),
		ProjectID: p.ID,
		LearnerID: u.ID,
		Link:      in.Link,
		FileRef:   in.FileRef,
		CreatedAt: b.tick(),
	}
	b.submissions = append(b.submissions, s)
	b.appendMessageLocked(s, u.ID, in.Message)
	writeJSON(w, http.StatusCreated, summary(s))
}

func (b *fakeBackend) projectSubmissions(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.ownedProject(w, r)
	if p == nil {
		return
	}
	out := []fakeSubmission{}
	for _, s := range b.submissions {
		if s.ProjectID == p.ID {
			out = append(out, summary(s))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *fakeBackend) mySubmission(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.caller(w, r)
	if u == nil {
		return
	}
	if !b.hideMine {
		for _, s := range b.submissions {
			if s.ProjectID == chi.URLParam(r, "id") && s.LearnerID == u.ID {
				writeJSON(w, http.StatusOK, summary(s))
				return
			}
		}
	}
	writeDetail(w, http.StatusNotFound, "No submission")
}

func (b *fakeBackend) mySubmissions(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.caller(w, r)
	if u == nil {
		return
	}
	out := []fakeSubmission{}
	for _, s := range b.submissions {
		if s.LearnerID == u.ID {
			out = append(out, summary(s))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// participant resolves {id} for its learner or the project owner.
func (b *fakeBackend) participant(w http.ResponseWriter, r *http.Request) (*fakeUser, *fakeSubmission) {
	u := b.caller(w, r)
	if u == nil {
		return nil, nil
	}
	s := b.findSubmission(chi.URLParam(r, "id"))
	if s == nil {
		writeDetail(w, http.StatusNotFound, "Submission not found")
		return nil, nil
	}
	p := b.findProject(s.ProjectID)
	if s.LearnerID != u.ID && (p == nil || p.UserID != u.ID) {
		writeDetail(w, http.StatusForbidden, "Not a participant")
		return nil, nil
	}
	return u, s
}

func (b *fakeBackend) thread(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, s := b.participant(w, r)
	if s == nil {
		return
	}
	out := *s
	if out.Messages == nil {
		out.Messages = []fakeMessage{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *fakeBackend) markRead(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, s := b.participant(w, r)
	if s == nil {
		return
	}
	s.UnreadCount = 0
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) setCoherent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Coherent bool `json:"coherent"`
	}
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, s := b.participant(w, r)
	if s == nil {
		return
	}
	if p := b.findProject(s.ProjectID); p == nil || p.UserID != u.ID {
		writeDetail(w, http.StatusForbidden, "Only the project owner can judge")
		return
	}
	s.Coherent = &in.Coherent
	writeJSON(w, http.StatusOK, summary(s))
}

func (b *fakeBackend) addMessage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Body string `json:"body"`
	}
	if err := decode(r, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, s := b.participant(w, r)
	if s == nil {
		return
	}
	m := b.appendMessageLocked(s, u.ID, in.Body)
	writeJSON(w, http.StatusCreated, m)
}
