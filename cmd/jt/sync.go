package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thewalkersoft/jobtracker/internal/tracker"
	"github.com/thewalkersoft/jobtracker/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Sync local jobs with the sheet",
	Long: `Run a full two-way sync with the sheet.

Jobs are matched by URL. Jobs missing on one side are copied to the other;
for jobs on both sides with different content, the most recently modified
copy wins, and a tie is settled in favor of the local copy.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		t, database := openTracker()
		defer database.Close()

		if !t.RemoteConfigured() {
			fatalf("Error: no remote configured (set remote.url or JOBTRACKER_REMOTE_URL)")
		}

		fmt.Printf("%s Syncing with %s...\n", ui.RenderAccent("🔄"), viper.GetString("remote.url"))
		start := time.Now()

		_, msg, err := t.Sync(cmd.Context())
		report(msg, err)
		fmt.Printf("   %s\n", ui.RenderMuted("took "+time.Since(start).Round(time.Millisecond).String()))
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		t, database := openTracker()
		defer database.Close()

		last, found, err := t.LastSync(cmd.Context())
		if err != nil {
			fatalf("Error reading sync status: %v", err)
		}
		count, err := database.JobCountContext(cmd.Context())
		if err != nil {
			fatalf("Error counting jobs: %v", err)
		}

		remoteURL := viper.GetString("remote.url")
		if remoteURL == "" {
			remoteURL = ui.RenderWarn("not configured")
		}

		fmt.Printf("\n%s Sync Status\n\n", ui.RenderAccent("📊"))
		fmt.Printf("Database:  %s\n", database.Path())
		fmt.Printf("Remote:    %s\n", remoteURL)
		fmt.Printf("Jobs:      %d\n", count)
		fmt.Printf("Last sync: %s\n", tracker.FormatLastSync(last, found))
		fmt.Println()
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file.csv>",
	GroupID: "sync",
	Short:   "Import jobs from a CSV export",
	Long: `Import jobs from a CSV file with a header row. Columns are matched by
name (companyName, jobUrl, jobTitle, jobDescription, status, timestamp), so
older exports without a jobTitle column import correctly. Rows for URLs
that are already saved update the existing job.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// #nosec G304 - controlled path from CLI
		f, err := os.Open(args[0])
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer f.Close()

		t, database := openTracker()
		defer database.Close()

		_, msg, err := t.Import(cmd.Context(), f)
		report(msg, err)
	},
}

var exportCmd = &cobra.Command{
	Use:     "export <file.csv>",
	GroupID: "sync",
	Short:   "Export all jobs to CSV",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t, database := openTracker()
		defer database.Close()

		f, err := os.Create(args[0])
		if err != nil {
			fatalf("Error: %v", err)
		}

		msg, err := t.Export(cmd.Context(), f)
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		report(msg, err)
	},
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd, importCmd, exportCmd)
}
