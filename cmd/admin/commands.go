package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"wangsammo/backend/internal/complaint"
	"wangsammo/backend/internal/models"
	"wangsammo/backend/internal/storage"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRootCmd(open func(ctx context.Context) (*app, error)) *cobra.Command {
	var a *app

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Operate the Wang Sam Mo complaint service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = open(cmd.Context())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
			}
		},
	}

	current := func() *app { return a }
	root.AddCommand(
		listCmd(current),
		showCmd(current),
		statusCmd(current),
		awardRetryCmd(current),
		setRoleCmd(current),
	)
	return root
}

func listCmd(current func() *app) *cobra.Command {
	var status, category string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List complaints, newest first",
		Example: `  admin list
  admin list --status open --category road --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := current().complaints.List(cmd.Context(), complaint.Filter{
				Status:   models.Status(status),
				Category: models.Category(category),
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			printComplaints(cmd.OutOrStdout(), rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only complaints with this status")
	cmd.Flags().StringVar(&category, "category", "", "only complaints in this category")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of complaints (0 for all)")
	return cmd
}

func showCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <tracking-code>",
		Short: "Show one complaint by its tracking code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := current().complaints.Track(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printComplaint(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

func statusCmd(current func() *app) *cobra.Command {
	var respond string
	var priority int

	cmd := &cobra.Command{
		Use:   "status <complaint-id> <open|in_progress|resolved|closed>",
		Short: "Change the status of a complaint",
		Example: `  admin status 6f1c... resolved --respond "Repaired on Monday" --priority 2`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := complaint.StatusUpdate{
				Status:        models.Status(args[1]),
				AdminResponse: respond,
			}
			if cmd.Flags().Changed("priority") {
				update.Priority = &priority
			}

			c, err := current().complaints.UpdateStatus(cmd.Context(), args[0], update)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", c.ComplaintID, statusLabel(c.Status))
			return nil
		},
	}
	cmd.Flags().StringVar(&respond, "respond", "", "official response shown to the resident")
	cmd.Flags().IntVar(&priority, "priority", 1, "priority from 1 (normal) to 4 (critical)")
	return cmd
}

func awardRetryCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "award-retry",
		Short: "Apply point awards that are still pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := current().complaints.AwardPending(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d pending award(s) applied\n",
				color.New(color.FgGreen).Sprint("✓"), applied)
			return nil
		},
	}
}

func setRoleCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <email> <resident|official|admin>",
		Short: "Change the role of a registered user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := args[1]
			switch role {
			case models.RoleResident, models.RoleOfficial, models.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			ctx := cmd.Context()
			acc, err := current().store.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(args[0])))
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no account for %s", args[0])
			}
			if err != nil {
				return err
			}
			if err := current().store.SetProfileRole(ctx, acc.ID, role); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", acc.Email, color.New(color.FgCyan).Sprint(role))
			return nil
		},
	}
}

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusOpen:
		return color.New(color.FgYellow).Sprint(s)
	case models.StatusInProgress:
		return color.New(color.FgCyan).Sprint(s)
	case models.StatusResolved:
		return color.New(color.FgGreen).Sprint(s)
	default:
		return color.New(color.FgHiBlack).Sprint(s)
	}
}

func printComplaints(w io.Writer, rows []models.Complaint) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "no complaints")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tSTATUS\tCATEGORY\tCREATED\tTITLE")
	for _, c := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.ComplaintID, c.Status, c.Category, c.CreatedAt.Format("2006-01-02 15:04"), c.Title)
	}
	_ = tw.Flush()
}

func printComplaint(w io.Writer, c *models.Complaint) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, c.ComplaintID)
	fmt.Fprintf(w, "  id:        %s\n", c.ID)
	fmt.Fprintf(w, "  title:     %s\n", c.Title)
	fmt.Fprintf(w, "  status:    %s\n", statusLabel(c.Status))
	fmt.Fprintf(w, "  category:  %s\n", c.Category)
	if c.LocationText != "" {
		fmt.Fprintf(w, "  location:  %s\n", c.LocationText)
	}
	if c.Priority != nil {
		fmt.Fprintf(w, "  priority:  %d\n", *c.Priority)
	}
	if c.AdminResponse != nil {
		fmt.Fprintf(w, "  response:  %s\n", *c.AdminResponse)
	}
	fmt.Fprintf(w, "  anonymous: %t\n", c.IsAnonymous)
	fmt.Fprintf(w, "  created:   %s\n", c.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "\n%s\n", c.Description)
}
