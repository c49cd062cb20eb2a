package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/models"
)

func newSubmissionCmd(g *globals) *cobra.Command {
	submissionCmd := &cobra.Command{
		Use:     "submission",
		Aliases: []string{"submissions", "sub"},
		Short:   "Submission and message thread commands",
		Long: `Commands for applying to projects and following up on submissions.

Examples:
  # Apply to a project
  toolmectl submission apply <project-id> --message "Hello" --link https://example.com/work

  # Read a thread (marks it read) and reply
  toolmectl submission thread <submission-id>
  toolmectl submission reply <submission-id> --body "Thanks!"

  # As the project owner, judge a submission
  toolmectl submission judge <submission-id> coherent`,
	}
	submissionCmd.AddCommand(
		newSubmissionMineCmd(g),
		newSubmissionListCmd(g),
		newSubmissionApplyCmd(g),
		newSubmissionThreadCmd(g),
		newSubmissionReplyCmd(g),
		newSubmissionJudgeCmd(g),
	)
	return submissionCmd
}

func newSubmissionMineCmd(g *globals) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List your submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.authedSession(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var subs []models.Submission
			if projectID != "" {
				s, err := c.Submissions.GetMine(ctx, projectID)
				if err != nil {
					return err
				}
				if s != nil {
					subs = append(subs, *s)
				}
			} else if subs, err = c.Submissions.ListMine(ctx); err != nil {
				return fmt.Errorf("list my submissions: %w", err)
			}

			if len(subs) == 0 && g.output == "table" {
				fmt.Fprintln(cmd.OutOrStdout(), "No submissions.")
				return nil
			}
			return printSubmissions(cmd.OutOrStdout(), g.output, subs)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "only your submission to this project")
	return cmd
}

func newSubmissionListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List the submissions to a project you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.authedSession(cmd)
			if err != nil {
				return err
			}
			subs, err := c.Submissions.ListForProject(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list submissions: %w", err)
			}
			if len(subs) == 0 && g.output == "table" {
				fmt.Fprintln(cmd.OutOrStdout(), "No submissions.")
				return nil
			}
			return printSubmissions(cmd.OutOrStdout(), g.output, subs)
		},
	}
}

func newSubmissionApplyCmd(g *globals) *cobra.Command {
	var message, link, fileRef string
	cmd := &cobra.Command{
		Use:   "apply <project-id>",
		Short: "Apply to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.SubmissionInput{Message: message, Link: &link, FileRef: &fileRef}.Normalize()
			if err := in.Validate(); err != nil {
				return err
			}
			c, _, err := g.authedSession(cmd)
			if err != nil {
				return err
			}
			s, err := c.Submissions.Create(cmd.Context(), args[0], in)
			if errors.Is(err, client.ErrConflict) {
				return fmt.Errorf("you already applied to project %s: %w", args[0], err)
			}
			if err != nil {
				return fmt.Errorf("apply: %w", err)
			}
			if g.output == "json" {
				return printJSON(cmd.OutOrStdout(), viewSubmission(*s))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submission created: %s\n", s.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "first message to the project owner")
	cmd.Flags().StringVar(&link, "link", "", "link to your work (http:// or https://)")
	cmd.Flags().StringVar(&fileRef, "file-ref", "", "reference to an uploaded file")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newSubmissionThreadCmd(g *globals) *cobra.Command {
	var keepUnread bool
	cmd := &cobra.Command{
		Use:   "thread <submission-id>",
		Short: "Show a submission and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.authedSession(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			thread, err := c.Submissions.GetThread(ctx, args[0])
			if err != nil {
				return err
			}
			if thread, err = requireFound(thread, "submission", args[0]); err != nil {
				return err
			}
			if !keepUnread {
				if err := c.Submissions.MarkRead(ctx, args[0]); err != nil {
					g.printVerbose(cmd, "mark read failed: %v", err)
				}
			}
			return printThread(cmd.OutOrStdout(), g.output, thread)
		},
	}
	cmd.Flags().BoolVar(&keepUnread, "keep-unread", false, "do not mark the thread as read")
	return cmd
}

func newSubmissionReplyCmd(g *globals) *cobra.Command {
	var body string
	cmd := &cobra.Command{
		Use:     "reply <submission-id>",
		Aliases: []string{"message"},
		Short:   "Post a message to a submission thread",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.MessageInput{Body: body}
			if err := in.Validate(); err != nil {
				return err
			}
			c, _, err := g.authedSession(cmd)
			if err != nil {
				return err
			}
			m, err := c.Submissions.AddMessage(cmd.Context(), args[0], in)
			if err != nil {
				return fmt.Errorf("send message: %w", err)
			}
			if g.output == "json" {
				return printJSON(cmd.OutOrStdout(), messageView{ID: m.ID, SenderID: m.SenderID, Body: m.Body, CreatedAt: m.CreatedAt})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Message sent: %s\n", m.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&body, "body", "b", "", "message text")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newSubmissionJudgeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:       "judge <submission-id> <coherent|not-coherent>",
		Short:     "Judge a submission to a project you own",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"coherent", "not-coherent"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var coherent bool
			switch args[1] {
			case "coherent", "yes", "true":
				coherent = true
			case "not-coherent", "no", "false":
				coherent = false
			default:
				return fmt.Errorf("judgment must be coherent or not-coherent, got %q", args[1])
			}
			c, _, err := g.authedSession(cmd)
			if err != nil {
				return err
			}
			s, err := c.Submissions.SetCoherent(cmd.Context(), args[0], coherent)
			if err != nil {
				return fmt.Errorf("judge: %w", err)
			}
			if s, err = requireFound(s, "submission", args[0]); err != nil {
				return err
			}
			if g.output == "json" {
				return printJSON(cmd.OutOrStdout(), viewSubmission(*s))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submission %s is now %s\n", s.ID, s.CoherentState())
			return nil
		},
	}
}
