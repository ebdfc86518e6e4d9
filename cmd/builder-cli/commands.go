package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"go-site-builder/internal/auth"
	"go-site-builder/internal/generator"
	"go-site-builder/internal/model"
	"go-site-builder/internal/projectmanager"
	"go-site-builder/internal/templating"
	"go-site-builder/internal/tree"

	"github.com/spf13/cobra"
)

// --- Projects ---

func (c *cli) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "List and manage projects",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your projects, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := c.manager.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPAGES\tPUBLISHED\tUPDATED")
			for _, p := range projects {
				updated := time.UnixMilli(p.UpdatedAt).Format(time.DateTime)
				fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\n", p.ID, p.Name, len(p.Pages), p.Published, updated)
			}
			return tw.Flush()
		},
	}

	var description, templateID string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project, optionally from a starter template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.manager.CreateProject(cmd.Context(), args[0], description, templateID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s) with %d page(s)\n", p.Name, p.ID, len(p.Pages))
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "", "Project description")
	create.Flags().StringVar(&templateID, "template", "", "Starter template id (see `templates`)")

	show := &cobra.Command{
		Use:   "show PROJECT",
		Short: "Print a project document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}

	rename := &cobra.Command{
		Use:   "rename PROJECT NAME",
		Short: "Rename a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			name := args[1]
			return c.manager.UpdateProject(cmd.Context(), args[0], projectmanager.ProjectPatch{Name: &name})
		},
	}

	del := &cobra.Command{
		Use:   "delete PROJECT",
		Short: "Delete a project and its published files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.manager.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, create, show, rename, del)
	return cmd
}

// --- Pages ---

func (c *cli) pagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Add and remove pages",
	}

	var path string
	add := &cobra.Command{
		Use:   "add PROJECT NAME",
		Short: "Append an empty page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			id, err := c.manager.AddPage(cmd.Context(), args[0], args[1], path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	add.Flags().StringVar(&path, "path", "", "URL path of the page, e.g. /about")

	del := &cobra.Command{
		Use:   "delete PROJECT PAGE",
		Short: "Delete a page; the last page cannot be deleted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			return c.manager.DeletePage(cmd.Context(), args[0], args[1])
		},
	}

	cmd.AddCommand(add, del)
	return cmd
}

// --- Components ---

// bagFlags parses the JSON object flags shared by add and update.
type bagFlags struct {
	name   string
	props  string
	styles string
}

func (b *bagFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&b.name, "name", "", "Display name")
	cmd.Flags().StringVar(&b.props, "props", "", `Props as a JSON object, e.g. '{"text":"Hi"}'`)
	cmd.Flags().StringVar(&b.styles, "styles", "", `Styles as a JSON object, e.g. '{"color":"#333"}'`)
}

func (b *bagFlags) parse() (model.Props, model.Styles, error) {
	var props model.Props
	var styles model.Styles
	if b.props != "" {
		if err := json.Unmarshal([]byte(b.props), &props); err != nil {
			return nil, nil, fmt.Errorf("invalid --props: %w", err)
		}
	}
	if b.styles != "" {
		if err := json.Unmarshal([]byte(b.styles), &styles); err != nil {
			return nil, nil, fmt.Errorf("invalid --styles: %w", err)
		}
	}
	return props, styles, nil
}

func (c *cli) componentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "components",
		Aliases: []string{"c"},
		Short:   "Edit the component tree of a page",
	}

	var (
		parent string
		index  int
		bags   bagFlags
	)
	placement := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&parent, "parent", "", "Parent component id (default: page root)")
		cmd.Flags().IntVar(&index, "index", tree.Append, "Position among the siblings (default: append)")
	}

	add := &cobra.Command{
		Use:   "add PROJECT PAGE TYPE",
		Short: "Add a new component",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			props, styles, err := bags.parse()
			if err != nil {
				return err
			}
			if _, err := c.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			data := projectmanager.NewComponent{
				Type:   model.ComponentType(args[2]),
				Name:   bags.name,
				Props:  props,
				Styles: styles,
			}
			id, err := c.manager.AddComponent(cmd.Context(), args[0], args[1], data, parent, index)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	placement(add)
	bags.register(add)

	place := &cobra.Command{
		Use:   "place PROJECT PAGE ITEM",
		Short: "Place a copy of a library item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			id, err := c.manager.PlaceLibraryItem(cmd.Context(), args[0], args[1], args[2], parent, index)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	placement(place)

	update := &cobra.Command{
		Use:   "update PROJECT PAGE COMPONENT",
		Short: "Merge props and styles into a component",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			props, styles, err := bags.parse()
			if err != nil {
				return err
			}
			patch := tree.Patch{Props: props, Styles: styles}
			if cmd.Flags().Changed("name") {
				patch.Name = &bags.name
			}
			if _, err := c.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			return c.manager.UpdateComponent(cmd.Context(), args[0], args[1], args[2], patch)
		},
	}
	bags.register(update)

	move := &cobra.Command{
		Use:   "move PROJECT PAGE COMPONENT",
		Short: "Move a component and its subtree",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			return c.manager.MoveComponent(cmd.Context(), args[0], args[1], args[2], parent, index)
		},
	}
	placement(move)

	del := &cobra.Command{
		Use:   "delete PROJECT PAGE COMPONENT",
		Short: "Delete a component and its subtree",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			return c.manager.DeleteComponent(cmd.Context(), args[0], args[1], args[2])
		},
	}

	cmd.AddCommand(add, place, update, move, del)
	return cmd
}

// --- Publishing ---

func (c *cli) publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish PROJECT",
		Short: "Publish a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			url, err := c.manager.PublishProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published at %s\n", url)
			return nil
		},
	}
}

func (c *cli) unpublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpublish PROJECT",
		Short: "Take a published project offline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			return c.manager.UnpublishProject(cmd.Context(), args[0])
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export PROJECT",
		Short: "Write a project as JSON files to a local directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dir, err := generator.ExportProject(generator.DefaultConfig(out), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", p.Name, dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "sites", "Base output directory")
	return cmd
}

func (c *cli) previewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview PROJECT PAGE",
		Short: "Render a page as HTML to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			page, err := c.manager.Page(args[1])
			if err != nil {
				return err
			}
			engine, err := templating.NewEngine()
			if err != nil {
				return err
			}
			html, err := engine.RenderPage(p, page)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), html)
			return err
		},
	}
}

// --- Catalog ---

func (c *cli) templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List starter templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPAGES")
			for _, t := range c.catalog.Templates() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", t.ID, t.Name, t.Category, len(t.Pages))
			}
			return tw.Flush()
		},
	}
}

func (c *cli) libraryCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "library",
		Short: "List library items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items := c.catalog.All()
			if category != "" {
				items = c.catalog.ByCategory(category)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tTYPE")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Name, it.Category, it.Component.Type)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only list one category")
	return cmd
}

// --- Tokens ---

func (c *cli) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}
	var email, displayName string
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for --user signed with auth.jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			iss, err := auth.NewIssuer([]byte(c.cfg.Auth.JWTSecret), c.cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			tok, err := iss.Issue(&model.User{ID: c.userID, Email: email, DisplayName: displayName})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	issue.Flags().StringVar(&email, "email", "", "Email claim")
	issue.Flags().StringVar(&displayName, "display-name", "", "Display name claim")
	cmd.AddCommand(issue)
	return cmd
}
