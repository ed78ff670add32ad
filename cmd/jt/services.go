package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thewalkersoft/jobtracker/internal/daemon"
	"github.com/thewalkersoft/jobtracker/internal/dashboard"
	"github.com/thewalkersoft/jobtracker/internal/db"
	"github.com/thewalkersoft/jobtracker/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "advanced",
	Short:   "Run periodic sync and the CSV inbox (foreground)",
	Long: `Run the sync daemon in the foreground.

The daemon will:
  1. Sync with the sheet at startup and then on every interval
  2. Import any *.csv file dropped into the inbox directory
  3. Move imported files to inbox/processed/ (or inbox/failed/)
  4. Optionally serve the live dashboard (--dashboard-port)`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		interval := viper.GetDuration("daemon.interval")
		if cmd.Flags().Changed("interval") {
			interval, _ = cmd.Flags().GetDuration("interval")
		}
		inbox := viper.GetString("daemon.inbox")
		if cmd.Flags().Changed("inbox") {
			inbox, _ = cmd.Flags().GetString("inbox")
		}
		dashPort, _ := cmd.Flags().GetInt("dashboard-port")

		t, database := openTracker()
		defer database.Close()

		if !t.RemoteConfigured() {
			fmt.Fprintf(os.Stderr, "%s No remote configured, running inbox only\n", ui.RenderWarn(ui.IconWarn))
		}

		ctx := cmd.Context()
		if dashPort > 0 {
			server, handler := startDashboard(ctx, database, dashPort)
			defer func() { _ = server.Stop() }()
			t.SetNotifier(handler)
		}

		d, err := daemon.New(t, &daemon.Config{
			InboxDir:     inbox,
			SyncInterval: interval,
			Logger:       newLogger("daemon"),
		})
		if err != nil {
			fatalf("Error creating daemon: %v", err)
		}

		fmt.Printf("%s Starting jt daemon...\n", ui.RenderAccent("🚀"))
		fmt.Printf("   Inbox: %s\n", inbox)
		fmt.Printf("   Sync interval: %s\n", interval)
		fmt.Printf("   Database: %s\n", database.Path())
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		if err := d.Start(ctx); err != nil {
			fatalf("Daemon stopped with error: %v", err)
		}
		fmt.Println("Daemon stopped")
	},
}

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "advanced",
	Short:   "Start the WebSocket dashboard",
	Long: `Start the dashboard server.

Endpoints:
  /ws                      live messages (job_update, sync_complete,
                           import_complete, stats)
  /api/jobs?q=&status=     filtered job list as JSON
  /api/jobs/{id}           one job
  /health                  health check

Live job and sync messages are only produced by the process making the
changes; use 'jt daemon --dashboard-port' to get them from the daemon.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		port := viper.GetInt("dashboard.port")
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		database := openStore()
		defer database.Close()

		ctx := cmd.Context()
		server, _ := startDashboard(ctx, database, port)

		fmt.Printf("Dashboard server started on http://localhost:%d\n", port)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", port)
		fmt.Printf("Health check: http://localhost:%d/health\n", port)
		fmt.Println("\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			fatalf("Error during shutdown: %v", err)
		}
		fmt.Println("Dashboard server stopped")
	},
}

// startDashboard serves the dashboard and keeps its stats current from the
// store until ctx is done.
func startDashboard(ctx context.Context, database *db.DB, port int) (*dashboard.Server, *dashboard.Handler) {
	logger := newLogger("dashboard")
	server := dashboard.NewServer(&dashboard.Config{
		Port:   port,
		Jobs:   database,
		Logger: logger,
	})
	handler := dashboard.NewHandler(server, logger)

	if err := server.Start(); err != nil {
		fatalf("Error: failed to start dashboard: %v", err)
	}

	go func() {
		if err := handler.Follow(ctx, database); err != nil {
			logger.Printf("Warning: stats unavailable: %v", err)
		}
	}()
	return server, handler
}

func init() {
	daemonCmd.Flags().Duration("interval", 15*time.Minute, "How often to sync with the sheet")
	daemonCmd.Flags().String("inbox", "", "Directory watched for CSV files (default from config)")
	daemonCmd.Flags().Int("dashboard-port", 0, "Also serve the dashboard on this port (0: off)")

	dashboardCmd.Flags().IntP("port", "p", 8080, "Port to listen on")

	rootCmd.AddCommand(daemonCmd, dashboardCmd)
}
