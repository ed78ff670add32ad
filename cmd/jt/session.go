package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"

	"github.com/thewalkersoft/jobtracker/internal/db"
	"github.com/thewalkersoft/jobtracker/internal/remote"
	"github.com/thewalkersoft/jobtracker/internal/scraper"
	"github.com/thewalkersoft/jobtracker/internal/tracker"
	"github.com/thewalkersoft/jobtracker/internal/ui"
)

// openStore opens and initializes the configured database, exiting on failure.
func openStore() *db.DB {
	path := viper.GetString("db.path")
	database, err := db.Open(path)
	if err != nil {
		fatalf("Error opening database: %v", err)
	}
	if err := database.InitSchema(); err != nil {
		_ = database.Close()
		fatalf("Error initializing schema: %v", err)
	}
	return database
}

// openTracker builds a tracker over the configured store and remote. The
// caller closes the returned store.
func openTracker() (*tracker.Tracker, *db.DB) {
	database := openStore()

	cfg := tracker.Config{
		Scraper: scraper.New(viper.GetDuration("scraper.timeout")),
		Logger:  newLogger("tracker"),
	}
	if url := viper.GetString("remote.url"); url != "" {
		client, err := remote.New(remote.Config{
			URL:     url,
			Timeout: viper.GetDuration("remote.timeout"),
			Logger:  newLogger("remote"),
		})
		if err != nil {
			_ = database.Close()
			fatalf("Error: %v", err)
		}
		cfg.Remote = client
	}

	return tracker.New(database, cfg), database
}

// report prints a controller outcome; a local failure exits with status 1.
func report(msg tracker.Message, err error) {
	if err != nil {
		fatalf("%s", ui.RenderError(err))
	}
	fmt.Println(ui.RenderMessage(msg))
}

func parseID(arg string) int64 {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		fatalf("Error: invalid job id %q", arg)
	}
	return id
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
