package models

import (
	"strings"
	"time"
)

// Field limits enforced by the backend. The client checks them only to give
// early feedback; the server stays authoritative.
const (
	TitleMax    = 500
	DomainMax   = 200
	TextMax     = 50_000
	DeadlineMax = 50
)

// Message key stems of the project form fields.
const (
	keyTitle                = "publishPage.errors.title"
	keyDomain               = "publishPage.errors.domain"
	keyShortDescription     = "publishPage.errors.shortDescription"
	keyFullDescription      = "publishPage.errors.fullDescription"
	keyDeadline             = "publishPage.errors.deadline"
	keyDeliveryInstructions = "publishPage.errors.deliveryInstructions"
)

// Project is a read-only snapshot of a published project.
type Project struct {
	ID                   string
	Title                string
	Domain               string
	ShortDescription     string
	FullDescription      string
	Deadline             string  // ISO date, possibly with a time part
	DeliveryInstructions *string // nil when the backend sent null or nothing
	CreatedAt            string
	OwnerID              string
}

// IsOwnedBy reports whether userID owns the project.
func (p *Project) IsOwnedBy(userID string) bool {
	return p != nil && userID != "" && p.OwnerID == userID
}

// DeadlineDate returns the YYYY-MM-DD part of the deadline.
func (p *Project) DeadlineDate() string {
	if len(p.Deadline) >= 10 {
		return p.Deadline[:10]
	}
	return p.Deadline
}

// Created parses CreatedAt. The zero time is returned for unparseable values.
func (p *Project) Created() time.Time {
	return ParseTimestamp(p.CreatedAt)
}

// ProjectInput is the payload for publishing a new project.
type ProjectInput struct {
	Title                string
	Domain               string
	ShortDescription     string
	FullDescription      string
	Deadline             string
	DeliveryInstructions *string
}

// Trimmed returns a copy with surrounding whitespace removed. An empty
// delivery instructions value becomes nil.
func (in ProjectInput) Trimmed() ProjectInput {
	out := ProjectInput{
		Title:            strings.TrimSpace(in.Title),
		Domain:           strings.TrimSpace(in.Domain),
		ShortDescription: strings.TrimSpace(in.ShortDescription),
		FullDescription:  strings.TrimSpace(in.FullDescription),
		Deadline:         strings.TrimSpace(in.Deadline),
	}
	if in.DeliveryInstructions != nil {
		if s := strings.TrimSpace(*in.DeliveryInstructions); s != "" {
			out.DeliveryInstructions = &s
		}
	}
	return out
}

// Validate performs the basic length checks.
func (in ProjectInput) Validate() error {
	if err := requireLen(keyTitle, in.Title, 1, TitleMax); err != nil {
		return err
	}
	if err := requireLen(keyDomain, in.Domain, 1, DomainMax); err != nil {
		return err
	}
	if err := requireLen(keyShortDescription, in.ShortDescription, 1, TextMax); err != nil {
		return err
	}
	if err := requireLen(keyFullDescription, in.FullDescription, 1, TextMax); err != nil {
		return err
	}
	if err := requireLen(keyDeadline, in.Deadline, 1, DeadlineMax); err != nil {
		return err
	}
	if in.DeliveryInstructions != nil {
		if err := requireLen(keyDeliveryInstructions, *in.DeliveryInstructions, 0, TextMax); err != nil {
			return err
		}
	}
	return nil
}

// ProjectUpdate is a partial update. Nil fields are left untouched.
// ClearDeliveryInstructions sends an explicit null for delivery_instructions.
type ProjectUpdate struct {
	Title                     *string
	Domain                    *string
	ShortDescription          *string
	FullDescription           *string
	Deadline                  *string
	DeliveryInstructions      *string
	ClearDeliveryInstructions bool
}

// Validate checks the fields the update sets. Set fields may not be blank.
func (u ProjectUpdate) Validate() error {
	fields := []struct {
		key   string
		value *string
		max   int
	}{
		{keyTitle, u.Title, TitleMax},
		{keyDomain, u.Domain, DomainMax},
		{keyShortDescription, u.ShortDescription, TextMax},
		{keyFullDescription, u.FullDescription, TextMax},
		{keyDeadline, u.Deadline, DeadlineMax},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if err := requireLen(f.key, strings.TrimSpace(*f.value), 1, f.max); err != nil {
			return err
		}
	}
	if u.DeliveryInstructions != nil {
		return requireLen(keyDeliveryInstructions, *u.DeliveryInstructions, 0, TextMax)
	}
	return nil
}

// UpdateFromInput builds a full update from an edit form. Empty delivery
// instructions clear the field.
func UpdateFromInput(in ProjectInput) ProjectUpdate {
	in = in.Trimmed()
	u := ProjectUpdate{
		Title:            &in.Title,
		Domain:           &in.Domain,
		ShortDescription: &in.ShortDescription,
		FullDescription:  &in.FullDescription,
		Deadline:         &in.Deadline,
	}
	if in.DeliveryInstructions != nil {
		u.DeliveryInstructions = in.DeliveryInstructions
	} else {
		u.ClearDeliveryInstructions = true
	}
	return u
}
