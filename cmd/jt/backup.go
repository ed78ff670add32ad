package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thewalkersoft/jobtracker/internal/backup"
	"github.com/thewalkersoft/jobtracker/internal/ui"
)

var backupCmd = &cobra.Command{
	Use:     "backup",
	GroupID: "sync",
	Short:   "Dump or load a JSONL snapshot of the local database",
}

var backupDumpCmd = &cobra.Command{
	Use:   "dump <file.jsonl>",
	Short: "Write every job to a JSONL file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		database := openStore()
		defer database.Close()

		result, err := backup.Dump(cmd.Context(), database, args[0])
		if err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("%s Wrote %d job(s) to %s\n", ui.RenderPass(ui.IconPass), result.JobsWritten, result.Path)
	},
}

var backupLoadCmd = &cobra.Command{
	Use:   "load <file.jsonl>",
	Short: "Load jobs from a JSONL file into the local database",
	Long: `Load jobs from a JSONL file. Each valid line is upserted by id; invalid
lines are reported and skipped. Loading does not touch the sheet; run
'jt sync' afterwards to push the loaded jobs.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		noBackup, _ := cmd.Flags().GetBool("no-backup")

		database := openStore()
		defer database.Close()

		result, err := backup.Load(cmd.Context(), database, backup.LoadOptions{
			FromJSONL: args[0],
			DryRun:    dryRun,
			Backup:    !noBackup,
		})
		if err != nil {
			fatalf("Error: %v", err)
		}

		if result.BackupCreated != "" {
			fmt.Printf("%s Previous jobs saved to %s\n", ui.RenderMuted(ui.IconInfo), result.BackupCreated)
		}
		for _, e := range result.Errors {
			fmt.Printf("%s %s\n", ui.RenderWarn(ui.IconWarn), e)
		}

		verb := "Loaded"
		if dryRun {
			verb = "Would load"
		}
		fmt.Printf("%s %s %d job(s), %d invalid line(s)\n", ui.RenderPass(ui.IconPass), verb, result.JobsLoaded, result.Invalid)
	},
}

func init() {
	backupLoadCmd.Flags().Bool("dry-run", false, "Validate the file without writing")
	backupLoadCmd.Flags().Bool("no-backup", false, "Skip dumping the current jobs before loading")

	backupCmd.AddCommand(backupDumpCmd, backupLoadCmd)
	rootCmd.AddCommand(backupCmd)
}
