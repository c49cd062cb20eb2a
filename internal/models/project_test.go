package models

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func validProjectInput() ProjectInput {
	return ProjectInput{
		Title:            "Landing page",
		Domain:           "Web",
		ShortDescription: "Build a landing page",
		FullDescription:  "A longer description",
		Deadline:         "2026-12-31",
	}
}

func TestProject_IsOwnedBy(t *testing.T) {
	p := &Project{ID: "p1", OwnerID: "u1"}

	if !p.IsOwnedBy("u1") {
		t.Error("owner should own the project")
	}
	if p.IsOwnedBy("u2") {
		t.Error("other user should not own the project")
	}
	if p.IsOwnedBy("") {
		t.Error("anonymous user should not own the project")
	}
	var nilProject *Project
	if nilProject.IsOwnedBy("u1") {
		t.Error("nil project has no owner")
	}
}

func TestProject_DeadlineDate(t *testing.T) {
	tests := map[string]string{
		"2026-12-31":          "2026-12-31",
		"2026-12-31T23:59:00": "2026-12-31",
		"soon":                "soon",
	}
	for in, want := range tests {
		p := Project{Deadline: in}
		if got := p.DeadlineDate(); got != want {
			t.Errorf("DeadlineDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProject_Created(t *testing.T) {
	p := Project{CreatedAt: "2026-01-02T10:30:00.123456"}
	want := time.Date(2026, 1, 2, 10, 30, 0, 123456000, time.UTC)
	if got := p.Created(); !got.Equal(want) {
		t.Errorf("Created() = %v, want %v", got, want)
	}

	p.CreatedAt = "garbage"
	if !p.Created().IsZero() {
		t.Error("unparseable timestamp should give zero time")
	}
}

func TestProjectInput_Trimmed(t *testing.T) {
	in := validProjectInput()
	in.Title = "  Landing page  "
	in.DeliveryInstructions = strPtr("   ")

	out := in.Trimmed()
	if out.Title != "Landing page" {
		t.Errorf("Title = %q", out.Title)
	}
	if out.DeliveryInstructions != nil {
		t.Error("blank delivery instructions should become nil")
	}

	in.DeliveryInstructions = strPtr(" zip it ")
	out = in.Trimmed()
	if out.DeliveryInstructions == nil || *out.DeliveryInstructions != "zip it" {
		t.Errorf("DeliveryInstructions = %v", out.DeliveryInstructions)
	}
}

func validationKey(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Key
	}
	return ""
}

func TestProjectInput_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *ProjectInput)
		key    string
	}{
		{"valid", func(*ProjectInput) {}, ""},
		{"missing title", func(in *ProjectInput) { in.Title = "" }, "publishPage.errors.titleRequired"},
		{"long title", func(in *ProjectInput) { in.Title = strings.Repeat("a", TitleMax+1) }, "publishPage.errors.titleTooLong"},
		{"missing domain", func(in *ProjectInput) { in.Domain = "" }, "publishPage.errors.domainRequired"},
		{"missing short description", func(in *ProjectInput) { in.ShortDescription = "" }, "publishPage.errors.shortDescriptionRequired"},
		{"missing full description", func(in *ProjectInput) { in.FullDescription = "" }, "publishPage.errors.fullDescriptionRequired"},
		{"long deadline", func(in *ProjectInput) { in.Deadline = strings.Repeat("9", DeadlineMax+1) }, "publishPage.errors.deadlineTooLong"},
		{"long delivery instructions", func(in *ProjectInput) {
			in.DeliveryInstructions = strPtr(strings.Repeat("d", TextMax+1))
		}, "publishPage.errors.deliveryInstructionsTooLong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validProjectInput()
			tt.mutate(&in)
			err := in.Validate()
			if tt.key == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if got := validationKey(err); got != tt.key {
				t.Errorf("Validate() = %v, want key %q", err, tt.key)
			}
		})
	}
}

func TestProjectUpdate_Validate(t *testing.T) {
	if err := (ProjectUpdate{ClearDeliveryInstructions: true}).Validate(); err != nil {
		t.Errorf("clearing delivery instructions: %v", err)
	}
	if err := (ProjectUpdate{Title: strPtr("Renamed")}).Validate(); err != nil {
		t.Errorf("valid title: %v", err)
	}
	if got := validationKey((ProjectUpdate{Title: strPtr("   ")}).Validate()); got != "publishPage.errors.titleRequired" {
		t.Errorf("blank title key = %q", got)
	}
	if got := validationKey((ProjectUpdate{Domain: strPtr(strings.Repeat("d", DomainMax+1))}).Validate()); got != "publishPage.errors.domainTooLong" {
		t.Errorf("long domain key = %q", got)
	}
}

func TestUpdateFromInput(t *testing.T) {
	in := validProjectInput()
	u := UpdateFromInput(in)
	if u.Title == nil || *u.Title != in.Title {
		t.Errorf("Title = %v", u.Title)
	}
	if !u.ClearDeliveryInstructions || u.DeliveryInstructions != nil {
		t.Error("empty delivery instructions should clear the field")
	}

	in.DeliveryInstructions = strPtr("Send a link")
	u = UpdateFromInput(in)
	if u.ClearDeliveryInstructions || u.DeliveryInstructions == nil || *u.DeliveryInstructions != "Send a link" {
		t.Errorf("delivery instructions not carried: %+v", u)
	}
}
