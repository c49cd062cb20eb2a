package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/models"
)

func newProjectCmd(g *globals) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Project commands",
		Long: `Commands for browsing and publishing projects.

Examples:
  # List the open projects, one page at a time
  toolmectl project list
  toolmectl project list --limit 36
  toolmectl project list --all -o json

  # Publish a project
  toolmectl project create --title "Inventory API" --domain Backend \
    --short "Build a small REST API" --full "..." --deadline 2030-01-31

  # Clear the delivery instructions of a project
  toolmectl project update <id> --clear-delivery`,
	}
	projectCmd.AddCommand(
		newProjectListCmd(g),
		newProjectMineCmd(g),
		newProjectShowCmd(g),
		newProjectCreateCmd(g),
		newProjectUpdateCmd(g),
		newProjectDeleteCmd(g),
	)
	return projectCmd
}

func newProjectListCmd(g *globals) *cobra.Command {
	var (
		pageSize int
		limit    int
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open projects",
		Long: `List the public projects, newest first.

Rows are fetched in windows of --page-size until --limit rows are held.
Raise --limit to load more, or pass --all to walk the whole listing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.session(cmd)
			if err != nil {
				return err
			}
			pager := client.NewPager(c.Projects, pageSize)
			if limit <= 0 {
				limit = pager.PageSize()
			}
			ctx := cmd.Context()
			if all {
				for pager.HasMore() {
					if _, err := pager.Next(ctx); err != nil {
						return fmt.Errorf("list projects: %w", err)
					}
				}
			} else if err := pager.FillTo(ctx, limit); err != nil {
				return fmt.Errorf("list projects: %w", err)
			}

			items := pager.Items()
			if !all && len(items) > limit {
				items = items[:limit]
			}
			if dups := pager.Duplicates(); dups > 0 {
				g.printVerbose(cmd, "dropped %d duplicate row(s) from shifted pages", dups)
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 && g.output == "table" {
				fmt.Fprintln(out, "No projects yet.")
				return nil
			}
			if err := printProjects(out, g.output, items); err != nil {
				return err
			}
			if g.output == "table" {
				fmt.Fprintf(out, "\nShowing %d of %d\n", len(items), pager.Total())
				if len(items) < pager.Total() {
					fmt.Fprintf(out, "Load more with: toolmectl project list --limit %d\n", len(items)+pager.PageSize())
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", client.DefaultPageSize, "rows per backend request")
	cmd.Flags().IntVar(&limit, "limit", 0, "rows to show (default: one page)")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	return cmd
}

func newProjectMineCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List the projects you published",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.authedSession(cmd)
			if err != nil {
				return err
			}
			projects, err := c.Projects.ListMine(cmd.Context())
			if err != nil {
				return fmt.Errorf("list my projects: %w", err)
			}
			if len(projects) == 0 && g.output == "table" {
				fmt.Fprintln(cmd.OutOrStdout(), "You have not published any project.")
				return nil
			}
			return printProjects(cmd.OutOrStdout(), g.output, projects)
		},
	}
}

func newProjectShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.session(cmd)
			if err != nil {
				return err
			}
			p, err := c.Projects.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if p, err = requireFound(p, "project", args[0]); err != nil {
				return err
			}
			return printProject(cmd.OutOrStdout(), g.output, p)
		},
	}
}

// projectFlags binds the editable project fields.
type projectFlags struct {
	title, domain, short, full, deadline, delivery string
	clearDelivery                                  bool
}

func (f *projectFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "project title")
	cmd.Flags().StringVar(&f.domain, "domain", "", "domain, e.g. Backend")
	cmd.Flags().StringVar(&f.short, "short", "", "short description shown in listings")
	cmd.Flags().StringVar(&f.full, "full", "", "full description")
	cmd.Flags().StringVar(&f.deadline, "deadline", "", "deadline, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.delivery, "delivery", "", "delivery instructions")
}

func (f *projectFlags) input() models.ProjectInput {
	in := models.ProjectInput{
		Title:            f.title,
		Domain:           f.domain,
		ShortDescription: f.short,
		FullDescription:  f.full,
		Deadline:         f.deadline,
	}
	if f.delivery != "" {
		d := f.delivery
		in.DeliveryInstructions = &d
	}
	return in.Trimmed()
}

func newProjectCreateCmd(g *globals) *cobra.Command {
	f := &projectFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := f.input()
			if err := in.Validate(); err != nil {
				return err
			}
			c, _, err := g.authedSession(cmd)
			if err != nil {
				return err
			}
			p, err := c.Projects.Create(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create project: %w", err)
			}
			if g.output == "json" {
				return printJSON(cmd.OutOrStdout(), viewProject(*p))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project created: %s\n", p.ID)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newProjectUpdateCmd(g *globals) *cobra.Command {
	f := &projectFlags{}
	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Change fields of a project you own",
		Long: `Change fields of a project you own. Only the given flags are sent;
--clear-delivery removes the delivery instructions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := f.update(cmd)
			if err != nil {
				return err
			}
			c, _, err := g.authedSession(cmd)
			if err != nil {
				return err
			}
			p, err := c.Projects.Update(cmd.Context(), args[0], u)
			if err != nil {
				return fmt.Errorf("update project: %w", err)
			}
			if p, err = requireFound(p, "project", args[0]); err != nil {
				return err
			}
			if g.output == "json" {
				return printJSON(cmd.OutOrStdout(), viewProject(*p))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project updated: %s\n", p.ID)
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&f.clearDelivery, "clear-delivery", false, "remove the delivery instructions")
	cmd.MarkFlagsMutuallyExclusive("delivery", "clear-delivery")
	return cmd
}

// update builds a partial update from the flags that were set.
func (f *projectFlags) update(cmd *cobra.Command) (models.ProjectUpdate, error) {
	var u models.ProjectUpdate
	in := f.input()
	changed := cmd.Flags().Changed
	fields := []struct {
		flag  string
		value string
		dst   **string
	}{
		{"title", in.Title, &u.Title},
		{"domain", in.Domain, &u.Domain},
		{"short", in.ShortDescription, &u.ShortDescription},
		{"full", in.FullDescription, &u.FullDescription},
		{"deadline", in.Deadline, &u.Deadline},
	}
	set := false
	for _, fl := range fields {
		if !changed(fl.flag) {
			continue
		}
		v := fl.value
		*fl.dst = &v
		set = true
	}
	switch {
	case f.clearDelivery:
		u.ClearDeliveryInstructions = true
		set = true
	case changed("delivery"):
		if in.DeliveryInstructions == nil {
			u.ClearDeliveryInstructions = true
		} else {
			u.DeliveryInstructions = in.DeliveryInstructions
		}
		set = true
	}
	if err := u.Validate(); err != nil {
		return u, err
	}
	if !set {
		return u, fmt.Errorf("nothing to update, pass at least one field flag")
	}
	return u, nil
}

func newProjectDeleteCmd(g *globals) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.authedSession(cmd)
			if err != nil {
				return err
			}
			if !force {
				p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				ok, err := p.confirm(fmt.Sprintf("Delete project %s and its submissions?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			deleted, err := c.Projects.Delete(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("delete project: %w", err)
			}
			if !deleted {
				return fmt.Errorf("project %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project deleted: %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation question")
	return cmd
}
