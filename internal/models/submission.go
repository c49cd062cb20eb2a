package models

import (
	"strings"
	"time"
)

// Submission and message limits.
const (
	LinkMax    = 2000
	FileRefMax = 500
	BodyMax    = 10_000
)

// Submission and message validation keys.
const (
	ErrKeyLinkScheme = "applyPage.errors.linkScheme"

	keyMessage = "applyPage.errors.message"
	keyLink    = "applyPage.errors.link"
	keyFileRef = "applyPage.errors.fileRef"
	keyBody    = "submissionDetail.errors.body"
)

// Coherence states of a submission as judged by the project owner.
const (
	CoherentUnset = "unset"
	CoherentYes   = "coherent"
	CoherentNo    = "not_coherent"
)

// Submission is a learner's answer to a project. At most one exists per
// (ProjectID, LearnerID); the backend enforces it.
type Submission struct {
	ID           string
	ProjectID    string
	LearnerID    string
	Link         *string
	FileRef      *string
	CreatedAt    string
	Coherent     *bool
	MessageCount int
	UnreadCount  int
}

// CoherentState maps the tri-state Coherent field to a label.
func (s *Submission) CoherentState() string {
	switch {
	case s.Coherent == nil:
		return CoherentUnset
	case *s.Coherent:
		return CoherentYes
	default:
		return CoherentNo
	}
}

// Created parses CreatedAt.
func (s *Submission) Created() time.Time {
	return ParseTimestamp(s.CreatedAt)
}

// SubmissionThread is a submission with its messages in creation order.
type SubmissionThread struct {
	Submission
	Messages []Message
}

// Message is one entry in a submission thread.
type Message struct {
	ID           string
	SubmissionID string
	SenderID     string
	Body         string
	CreatedAt    string
}

// Created parses CreatedAt.
func (m *Message) Created() time.Time {
	return ParseTimestamp(m.CreatedAt)
}

// SubmissionInput is the payload for applying to a project.
type SubmissionInput struct {
	Message string
	Link    *string
	FileRef *string
}

// Normalize trims fields and turns blank optional values into nil.
func (in SubmissionInput) Normalize() SubmissionInput {
	out := SubmissionInput{Message: strings.TrimSpace(in.Message)}
	if in.Link != nil {
		if s := strings.TrimSpace(*in.Link); s != "" {
			out.Link = &s
		}
	}
	if in.FileRef != nil {
		if s := strings.TrimSpace(*in.FileRef); s != "" {
			out.FileRef = &s
		}
	}
	return out
}

// Validate checks message length and link format.
func (in SubmissionInput) Validate() error {
	if err := requireLen(keyMessage, in.Message, 1, BodyMax); err != nil {
		return err
	}
	if in.Link != nil {
		if err := requireLen(keyLink, *in.Link, 0, LinkMax); err != nil {
			return err
		}
		if !strings.HasPrefix(*in.Link, "http://") && !strings.HasPrefix(*in.Link, "https://") {
			return &ValidationError{Key: ErrKeyLinkScheme}
		}
	}
	if in.FileRef != nil {
		return requireLen(keyFileRef, *in.FileRef, 0, FileRefMax)
	}
	return nil
}

// MessageInput is a reply posted to a thread.
type MessageInput struct {
	Body string
}

// Validate checks the body length after trimming.
func (in MessageInput) Validate() error {
	return requireLen(keyBody, strings.TrimSpace(in.Body), 1, BodyMax)
}
