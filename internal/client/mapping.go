package client

import "github.com/good-yellow-bee/toolme/internal/models"

// Wire shapes mirror the backend JSON exactly. Each has one mapper into the
// models package; every field is either copied or explicitly defaulted.

type userWire struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func mapUser(w userWire) models.User {
	return models.User{ID: w.ID, Email: w.Email}
}

type tokenWire struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type projectWire struct {
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

func mapProject(w projectWire) models.Project {
	return models.Project{
		ID:                   w.ID,
		Title:                w.Title,
		Domain:               w.Domain,
		ShortDescription:     w.ShortDescription,
		FullDescription:      w.FullDescription,
		Deadline:             w.Deadline,
		DeliveryInstructions: w.DeliveryInstructions,
		CreatedAt:            w.CreatedAt,
		OwnerID:              w.UserID,
	}
}

func mapProjects(ws []projectWire) []models.Project {
	out := make([]models.Project, 0, len(ws))
	for _, w := range ws {
		out = append(out, mapProject(w))
	}
	return out
}

type submissionWire struct {
	ID           string  `json:"id"`
	ProjectID    string  `json:"project_id"`
	LearnerID    string  `json:"learner_id"`
	Link         *string `json:"link"`
	FileRef      *string `json:"file_ref"`
	CreatedAt    string  `json:"created_at"`
	Coherent     *bool   `json:"coherent"`
	MessageCount int     `json:"message_count"`
	UnreadCount  *int    `json:"unread_count"`
}

func mapSubmission(w submissionWire) models.Submission {
	unread := 0
	if w.UnreadCount != nil {
		unread = *w.UnreadCount
	}
	return models.Submission{
		ID:           w.ID,
		ProjectID:    w.ProjectID,
		LearnerID:    w.LearnerID,
		Link:         w.Link,
		FileRef:      w.FileRef,
		CreatedAt:    w.CreatedAt,
		Coherent:     w.Coherent,
		MessageCount: w.MessageCount,
		UnreadCount:  unread,
	}
}

func mapSubmissions(ws []submissionWire) []models.Submission {
	out := make([]models.Submission, 0, len(ws))
	for _, w := range ws {
		out = append(out, mapSubmission(w))
	}
	return out
}

type messageWire struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	SenderID     string `json:"sender_id"`
	Body         string `json:"body"`
	CreatedAt    string `json:"created_at"`
}

func mapMessage(w messageWire) models.Message {
	return models.Message{
		ID:           w.ID,
		SubmissionID: w.SubmissionID,
		SenderID:     w.SenderID,
		Body:         w.Body,
		CreatedAt:    w.CreatedAt,
	}
}

type threadWire struct {
	submissionWire
	Messages []messageWire `json:"messages"`
}

func mapThread(w threadWire) models.SubmissionThread {
	msgs := make([]models.Message, 0, len(w.Messages))
	for _, m := range w.Messages {
		msgs = append(msgs, mapMessage(m))
	}
	return models.SubmissionThread{
		Submission: mapSubmission(w.submissionWire),
		Messages:   msgs,
	}
}

// Request payloads.

type signUpPayload struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type projectCreatePayload struct {
	Title                string  `json:"title"`
	Domain               string  `json:"domain"`
	ShortDescription     string  `json:"short_description"`
	FullDescription      string  `json:"full_description"`
	Deadline             string  `json:"deadline"`
	DeliveryInstructions *string `json:"delivery_instructions"`
}

func toCreatePayload(in models.ProjectInput) projectCreatePayload {
	return projectCreatePayload{
		Title:                in.Title,
		Domain:               in.Domain,
		ShortDescription:     in.ShortDescription,
		FullDescription:      in.FullDescription,
		Deadline:             in.Deadline,
		DeliveryInstructions: in.DeliveryInstructions,
	}
}

// toUpdatePayload includes only the fields that are set. A nil map value is
// encoded as JSON null.
func toUpdatePayload(in models.ProjectUpdate) map[string]any {
	payload := make(map[string]any)
	if in.Title != nil {
		payload["title"] = *in.Title
	}
	if in.Domain != nil {
		payload["domain"] = *in.Domain
	}
	if in.ShortDescription != nil {
		payload["short_description"] = *in.ShortDescription
	}
	if in.FullDescription != nil {
		payload["full_description"] = *in.FullDescription
	}
	if in.Deadline != nil {
		payload["deadline"] = *in.Deadline
	}
	if in.DeliveryInstructions != nil {
		payload["delivery_instructions"] = *in.DeliveryInstructions
	} else if in.ClearDeliveryInstructions {
		payload["delivery_instructions"] = nil
	}
	return payload
}

type submissionCreatePayload struct {
	Message string  `json:"message"`
	Link    *string `json:"link"`
	FileRef *string `json:"file_ref"`
}

func toSubmissionPayload(in models.SubmissionInput) submissionCreatePayload {
	return submissionCreatePayload{
		Message: in.Message,
		Link:    in.Link,
		FileRef: in.FileRef,
	}
}
