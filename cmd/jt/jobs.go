package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thewalkersoft/jobtracker/internal/schema"
	"github.com/thewalkersoft/jobtracker/internal/tracker"
	"github.com/thewalkersoft/jobtracker/internal/ui"
)

var addCmd = &cobra.Command{
	Use:     "add <url-or-shared-text>",
	GroupID: "jobs",
	Short:   "Scrape a posting and save it",
	Long: `Save a job posting. The argument may be a bare URL or any text that
contains one, such as a message shared from a browser; the first http(s)
URL is used. The posting is scraped for company, title and description,
saved locally and uploaded to the sheet.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t, database := openTracker()
		defer database.Close()

		report(t.ScrapeAndSave(cmd.Context(), strings.Join(args, " ")))
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "jobs",
	Short:   "List saved jobs, newest first",
	Long: `List saved jobs, newest first.

Examples:
  jt list --query acme
  jt list --status applied
  jt list --since "last week" --format json`,
	Run: func(cmd *cobra.Command, args []string) {
		query, _ := cmd.Flags().GetString("query")
		statusFlag, _ := cmd.Flags().GetString("status")
		since, _ := cmd.Flags().GetString("since")
		format, _ := cmd.Flags().GetString("format")

		var status schema.Status
		if statusFlag != "" {
			s, ok := schema.LookupStatus(statusFlag)
			if !ok {
				fatalf("Error: unknown status %q (valid: %s)", statusFlag, statusList())
			}
			status = s
		}

		database := openStore()
		defer database.Close()

		jobs, err := database.AllJobs(cmd.Context())
		if err != nil {
			fatalf("Error listing jobs: %v", err)
		}
		jobs = tracker.Filter(jobs, query, status)

		if since != "" {
			cutoff, err := parseSince(since, time.Now())
			if err != nil {
				fatalf("Error: %v", err)
			}
			jobs = createdSince(jobs, cutoff)
		}

		if err := writeJobs(os.Stdout, jobs, format); err != nil {
			fatalf("Error: %v", err)
		}
	},
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: "jobs",
	Short:   "Show one job in full",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID(args[0])
		format, _ := cmd.Flags().GetString("format")

		database := openStore()
		defer database.Close()

		job, err := database.GetJobByID(cmd.Context(), id)
		if err != nil {
			fatalf("Error: %v", err)
		}

		switch format {
		case "json", "yaml":
			if err := writeJobs(os.Stdout, []*schema.Job{job}, format); err != nil {
				fatalf("Error: %v", err)
			}
		default:
			printJob(os.Stdout, job)
		}
	},
}

var statusCmd = &cobra.Command{
	Use:     "status <id> <status>",
	GroupID: "jobs",
	Short:   "Change a job's status",
	Long: `Change a job's status and push the change to the sheet.

Valid statuses: ` + statusList(),
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID(args[0])
		status, ok := schema.LookupStatus(args[1])
		if !ok {
			fatalf("Error: unknown status %q (valid: %s)", args[1], statusList())
		}

		t, database := openTracker()
		defer database.Close()

		report(t.UpdateStatus(cmd.Context(), id, status))
	},
}

var editCmd = &cobra.Command{
	Use:     "edit <id>",
	GroupID: "jobs",
	Short:   "Edit a job's details",
	Long: `Edit a job's company, URL, title or description.

With no field flags on an interactive terminal, a form is shown prefilled
with the current values.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID(args[0])

		var edit tracker.Edit
		for flag, field := range map[string]**string{
			"company":     &edit.CompanyName,
			"url":         &edit.JobURL,
			"title":       &edit.JobTitle,
			"description": &edit.JobDescription,
		} {
			if cmd.Flags().Changed(flag) {
				v, _ := cmd.Flags().GetString(flag)
				*field = &v
			}
		}

		t, database := openTracker()
		defer database.Close()

		if edit.Empty() {
			if !ui.IsInteractive() {
				fatalf("Error: nothing to change (use --company, --url, --title or --description)")
			}
			job, err := t.Job(cmd.Context(), id)
			if err != nil {
				fatalf("Error: %v", err)
			}
			edit, err = editForm(cmd.Context(), job)
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Println(ui.RenderMuted("Edit cancelled"))
				return
			}
			if err != nil {
				fatalf("Error: %v", err)
			}
			if edit.Empty() {
				fmt.Println(ui.RenderMuted("Nothing changed"))
				return
			}
		}

		report(t.UpdateJob(cmd.Context(), id, edit))
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	GroupID: "jobs",
	Short:   "Delete a job locally and from the sheet",
	Long: `Delete a job locally and from the sheet. The deleted job can be
brought back with 'jt restore'.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID(args[0])

		t, database := openTracker()
		defer database.Close()

		report(t.Delete(cmd.Context(), id))
	},
}

var restoreCmd = &cobra.Command{
	Use:     "restore",
	GroupID: "jobs",
	Short:   "Restore the most recently deleted job",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		t, database := openTracker()
		defer database.Close()

		report(t.Restore(cmd.Context()))
	},
}

func init() {
	listCmd.Flags().StringP("query", "q", "", "Only companies containing this text")
	listCmd.Flags().StringP("status", "s", "", "Only jobs with this status")
	listCmd.Flags().String("since", "", `Only jobs saved since a date or phrase ("2024-03-01", "last week")`)
	listCmd.Flags().StringP("format", "f", "table", "Output format: table, json or yaml")

	showCmd.Flags().StringP("format", "f", "text", "Output format: text, json or yaml")

	editCmd.Flags().String("company", "", "New company name")
	editCmd.Flags().String("url", "", "New posting URL")
	editCmd.Flags().String("title", "", "New job title")
	editCmd.Flags().String("description", "", "New description")

	rootCmd.AddCommand(addCmd, listCmd, showCmd, statusCmd, editCmd, deleteCmd, restoreCmd)
}

func statusList() string {
	labels := make([]string, 0, len(schema.Statuses()))
	for _, s := range schema.Statuses() {
		labels = append(labels, strings.ToLower(s.String()))
	}
	return strings.Join(labels, ", ")
}

func createdSince(jobs []*schema.Job, cutoff time.Time) []*schema.Job {
	out := make([]*schema.Job, 0, len(jobs))
	for _, job := range jobs {
		if !job.CreatedAt().Before(cutoff) {
			out = append(out, job)
		}
	}
	return out
}

// writeJobs renders jobs as a table, JSON array or YAML list.
func writeJobs(w io.Writer, jobs []*schema.Job, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(jobs)
	case "table", "":
		printTable(w, jobs)
		return nil
	default:
		return fmt.Errorf("unknown format %q (use table, json or yaml)", format)
	}
}

func printTable(w io.Writer, jobs []*schema.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("No jobs found"))
		return
	}

	width := ui.TerminalWidth(100)
	titleWidth := max(width-60, 12)
	for _, job := range jobs {
		fmt.Fprintf(w, "%s  %-20s  %-*s  %-11s  %s\n",
			ui.RenderAccent(fmt.Sprintf("#%-4d", job.ID)),
			ui.Truncate(job.CompanyName, 20),
			titleWidth, ui.Truncate(job.JobTitle, titleWidth),
			job.CreatedAt().Local().Format("Jan 02 2006"),
			ui.RenderStatus(job.Status),
		)
	}
	fmt.Fprintf(w, "\n%s\n", ui.RenderMuted(fmt.Sprintf("%d job(s)", len(jobs))))
}

func printJob(w io.Writer, job *schema.Job) {
	fmt.Fprintf(w, "%s %s\n", ui.RenderAccent(fmt.Sprintf("#%d", job.ID)), ui.RenderBold(job.CompanyName))
	if job.JobTitle != "" {
		fmt.Fprintf(w, "Title:    %s\n", job.JobTitle)
	}
	fmt.Fprintf(w, "URL:      %s\n", job.JobURL)
	fmt.Fprintf(w, "Status:   %s\n", ui.RenderStatus(job.Status))
	fmt.Fprintf(w, "Saved:    %s\n", job.CreatedAt().Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Modified: %s\n", job.ModifiedAt().Local().Format("2006-01-02 15:04"))
	if job.JobDescription != "" {
		fmt.Fprintf(w, "\n%s\n", job.JobDescription)
	}
}

// editForm asks for new field values, returning only the ones that changed.
func editForm(ctx context.Context, job *schema.Job) (tracker.Edit, error) {
	company, url, title, description := job.CompanyName, job.JobURL, job.JobTitle, job.JobDescription

	notBlank := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("required")
		}
		return nil
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Company").Value(&company).Validate(notBlank),
			huh.NewInput().Title("URL").Value(&url).Validate(notBlank),
			huh.NewInput().Title("Title").Value(&title),
			huh.NewText().Title("Description").Value(&description),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return tracker.Edit{}, err
	}

	var edit tracker.Edit
	if company != job.CompanyName {
		edit.CompanyName = &company
	}
	if url != job.JobURL {
		edit.JobURL = &url
	}
	if title != job.JobTitle {
		edit.JobTitle = &title
	}
	if description != job.JobDescription {
		edit.JobDescription = &description
	}
	return edit, nil
}
