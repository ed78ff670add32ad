package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/thewalkersoft/jobtracker/internal/ui"
)

// fileConfig is the layout of config.toml.
type fileConfig struct {
	DB        dbConfig        `toml:"db"`
	Remote    remoteConfig    `toml:"remote"`
	Scraper   scraperConfig   `toml:"scraper"`
	Daemon    daemonConfig    `toml:"daemon"`
	Dashboard dashboardConfig `toml:"dashboard"`
	Log       logConfig       `toml:"log"`
}

type dbConfig struct {
	Path string `toml:"path"`
}

type remoteConfig struct {
	URL     string `toml:"url"`
	Timeout string `toml:"timeout"`
}

type scraperConfig struct {
	Timeout string `toml:"timeout"`
}

type daemonConfig struct {
	Interval string `toml:"interval"`
	Inbox    string `toml:"inbox"`
}

type dashboardConfig struct {
	Port int `toml:"port"`
}

type logConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// currentConfig snapshots the effective settings.
func currentConfig(v *viper.Viper) fileConfig {
	return fileConfig{
		DB:        dbConfig{Path: v.GetString("db.path")},
		Remote:    remoteConfig{URL: v.GetString("remote.url"), Timeout: v.GetString("remote.timeout")},
		Scraper:   scraperConfig{Timeout: v.GetString("scraper.timeout")},
		Daemon:    daemonConfig{Interval: v.GetString("daemon.interval"), Inbox: v.GetString("daemon.inbox")},
		Dashboard: dashboardConfig{Port: v.GetInt("dashboard.port")},
		Log: logConfig{
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
	}
}

// writeConfigFile writes cfg as TOML, refusing to replace an existing file
// unless force is set.
func writeConfigFile(path string, cfg fileConfig, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	return f.Close()
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Manage jt configuration",
	Long: `Manage jt configuration.

Settings come from (highest first): command-line flags, JOBTRACKER_*
environment variables (a .env file in the working directory is loaded),
the config file, and built-in defaults. JOBTRACKER_REMOTE_URL sets
remote.url, JOBTRACKER_DB_PATH sets db.path, and so on.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")

		path := cfgFile
		if path == "" {
			path = filepath.Join(configDir(), "config.toml")
		}
		if err := writeConfigFile(path, currentConfig(viper.GetViper()), force); err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderPass(ui.IconPass), path)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings as YAML",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Println(ui.RenderMuted("# " + used))
		}
		out, err := yaml.Marshal(viper.AllSettings())
		if err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Print(string(out))
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
