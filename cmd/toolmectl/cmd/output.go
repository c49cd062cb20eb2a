package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/good-yellow-bee/toolme/internal/models"
)

type projectView struct {
	ID                   string  `json:"id"`
	Title                string  `json:"title"`
	Domain               string  `json:"domain"`
	ShortDescription     string  `json:"short_description"`
	FullDescription      string  `json:"full_description,omitempty"`
	Deadline             string  `json:"deadline"`
	DeliveryInstructions *string `json:"delivery_instructions"`
	CreatedAt            string  `json:"created_at"`
	OwnerID              string  `json:"owner_id"`
}

func viewProject(p models.Project) projectView {
	return projectView{
		ID:                   p.ID,
		Title:                p.Title,
		Domain:               p.Domain,
		ShortDescription:     p.ShortDescription,
		FullDescription:      p.FullDescription,
		Deadline:             p.Deadline,
		DeliveryInstructions: p.DeliveryInstructions,
		CreatedAt:            p.CreatedAt,
		OwnerID:              p.OwnerID,
	}
}

type submissionView struct {
	ID           string  `json:"id"`
	ProjectID    string  `json:"project_id"`
	LearnerID    string  `json:"learner_id"`
	Link         *string `json:"link"`
	FileRef      *string `json:"file_ref"`
	Coherent     string  `json:"coherent"`
	MessageCount int     `json:"message_count"`
	UnreadCount  int     `json:"unread_count"`
	CreatedAt    string  `json:"created_at"`
}

func viewSubmission(s models.Submission) submissionView {
	return submissionView{
		ID:           s.ID,
		ProjectID:    s.ProjectID,
		LearnerID:    s.LearnerID,
		Link:         s.Link,
		FileRef:      s.FileRef,
		Coherent:     s.CoherentState(),
		MessageCount: s.MessageCount,
		UnreadCount:  s.UnreadCount,
		CreatedAt:    s.CreatedAt,
	}
}

type messageView struct {
	ID        string `json:"id"`
	SenderID  string `json:"sender_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

type threadView struct {
	submissionView
	Messages []messageView `json:"messages"`
}

func viewThread(t models.SubmissionThread) threadView {
	v := threadView{submissionView: viewSubmission(t.Submission), Messages: []messageView{}}
	for _, m := range t.Messages {
		v.Messages = append(v.Messages, messageView{ID: m.ID, SenderID: m.SenderID, Body: m.Body, CreatedAt: m.CreatedAt})
	}
	return v
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printProjects(w io.Writer, format string, projects []models.Project) error {
	if format == "json" {
		views := make([]projectView, 0, len(projects))
		for _, p := range projects {
			views = append(views, viewProject(p))
		}
		return printJSON(w, views)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if format == "table" {
		fmt.Fprintln(tw, "ID\tTITLE\tDOMAIN\tDEADLINE")
	}
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, truncate(p.Title, 40), truncate(p.Domain, 20), p.DeadlineDate())
	}
	return tw.Flush()
}

func printProject(w io.Writer, format string, p *models.Project) error {
	if format == "json" {
		return printJSON(w, viewProject(*p))
	}
	fmt.Fprintf(w, "ID:          %s\n", p.ID)
	fmt.Fprintf(w, "Title:       %s\n", p.Title)
	fmt.Fprintf(w, "Domain:      %s\n", p.Domain)
	fmt.Fprintf(w, "Deadline:    %s\n", p.DeadlineDate())
	fmt.Fprintf(w, "Owner:       %s\n", p.OwnerID)
	if created := p.Created(); !created.IsZero() {
		fmt.Fprintf(w, "Created:     %s\n", created.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "\n%s\n", p.ShortDescription)
	if p.FullDescription != "" {
		fmt.Fprintf(w, "\n%s\n", p.FullDescription)
	}
	if p.DeliveryInstructions != nil {
		fmt.Fprintf(w, "\nDelivery instructions:\n%s\n", *p.DeliveryInstructions)
	}
	return nil
}

func printSubmissions(w io.Writer, format string, subs []models.Submission) error {
	if format == "json" {
		views := make([]submissionView, 0, len(subs))
		for _, s := range subs {
			views = append(views, viewSubmission(s))
		}
		return printJSON(w, views)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if format == "table" {
		fmt.Fprintln(tw, "ID\tPROJECT\tLEARNER\tCOHERENT\tMESSAGES\tUNREAD")
	}
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			s.ID, s.ProjectID, s.LearnerID, s.CoherentState(), s.MessageCount, s.UnreadCount)
	}
	return tw.Flush()
}

func printThread(w io.Writer, format string, t *models.SubmissionThread) error {
	if format == "json" {
		return printJSON(w, viewThread(*t))
	}
	fmt.Fprintf(w, "Submission %s on project %s\n", t.ID, t.ProjectID)
	fmt.Fprintf(w, "Learner:  %s\n", t.LearnerID)
	fmt.Fprintf(w, "Coherent: %s\n", t.CoherentState())
	if t.Link != nil {
		fmt.Fprintf(w, "Link:     %s\n", *t.Link)
	}
	if t.FileRef != nil {
		fmt.Fprintf(w, "File:     %s\n", *t.FileRef)
	}
	if len(t.Messages) == 0 {
		fmt.Fprintln(w, "\nNo messages.")
		return nil
	}
	for _, m := range t.Messages {
		stamp := m.CreatedAt
		if created := m.Created(); !created.IsZero() {
			stamp = created.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "\n[%s] %s\n", stamp, m.SenderID)
		for _, line := range strings.Split(m.Body, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 2 {
		return string(r[:n])
	}
	return string(r[:n-2]) + ".."
}
