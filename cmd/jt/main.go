package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/thewalkersoft/jobtracker/internal/ui"
)

var (
	cfgFile string
	verbose bool

	// logOutput receives component logs; set up in PersistentPreRunE.
	logOutput io.Writer = io.Discard
)

var rootCmd = &cobra.Command{
	Use:   "jt",
	Short: "Track job applications and keep them in sync with your sheet",
	Long: `jt keeps a local database of job postings and mirrors it to a
spreadsheet endpoint. Postings are added from a URL (or any shared text
containing one), tracked through their status, and synced both ways.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		setupLogging()
		return nil
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "jobs", Title: "Jobs:"},
		&cobra.Group{ID: "sync", Title: "Sync & Data:"},
		&cobra.Group{ID: "advanced", Title: "Services:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $HOME/.jobtracker/config.toml)")
	pf.String("db", "", "path to the local database")
	pf.String("remote-url", "", "spreadsheet endpoint URL")
	pf.BoolVarP(&verbose, "verbose", "v", false, "also write logs to stderr")

	_ = viper.BindPFlag("db.path", pf.Lookup("db"))
	_ = viper.BindPFlag("remote.url", pf.Lookup("remote-url"))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, ui.RenderError(err))
		os.Exit(1)
	}
}

// configDir returns $HOME/.jobtracker, or .jobtracker when home is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jobtracker"
	}
	return filepath.Join(home, ".jobtracker")
}

func setDefaults(v *viper.Viper) {
	dir := configDir()
	v.SetDefault("db.path", filepath.Join(dir, "jobs.db"))
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.timeout", "20s")
	v.SetDefault("scraper.timeout", "10s")
	v.SetDefault("daemon.interval", "15m")
	v.SetDefault("daemon.inbox", filepath.Join(dir, "inbox"))
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("log.file", filepath.Join(dir, "jt.log"))
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// initConfig loads .env, the config file and JOBTRACKER_* variables into viper.
func initConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("JOBTRACKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// setupLogging sends component logs to a rotating file, and to stderr too
// with --verbose.
func setupLogging() {
	var writers []io.Writer
	if path := viper.GetString("log.file"); path != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    viper.GetInt("log.max_size_mb"),
			MaxBackups: viper.GetInt("log.max_backups"),
			MaxAge:     viper.GetInt("log.max_age_days"),
		})
	}
	if verbose {
		writers = append(writers, os.Stderr)
	}

	switch len(writers) {
	case 0:
		logOutput = io.Discard
	case 1:
		logOutput = writers[0]
	default:
		logOutput = io.MultiWriter(writers...)
	}
}

// newLogger returns a component logger with a bracketed prefix.
func newLogger(component string) *log.Logger {
	return log.New(logOutput, "["+component+"] ", log.LstdFlags)
}
