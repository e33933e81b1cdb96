package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"groupfeed-backend/lib/configutil"
	"groupfeed-backend/lib/configutil/sqldb"
	"groupfeed-backend/lib/osutil"
	"groupfeed-backend/lib/poststore/db"
	"groupfeed-backend/lib/sessionstore"
	"groupfeed-backend/services/scraper"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scraper-cli",
	Short: "scraper-cli logs into facebook and scrapes group feeds into a local database.",
}

var dbOverride *string

func init() {
	dbOverride = rootCmd.PersistentFlags().String("db", "", "Path to the sqlite database file, overriding config.json5.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type Config struct {
	Db          sqldb.Config `json:"db"`
	JarDir      string       `json:"jar_dir"`
	Headless    bool         `json:"headless"`
	ProbeImages bool         `json:"probe_images"`
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		osutil.Fatal("failed to read config", err)
	}
	if cfg.JarDir == "" {
		cfg.JarDir = ".sessions"
	}
	if *dbOverride != "" {
		cfg.Db = sqldb.Config{File: *dbOverride}
	}
	if cfg.Db.File == "" && cfg.Db.Url == "" {
		cfg.Db.File = "scraper.db"
	}
	return cfg
}

// credentials come from the environment (or a .env next to the binary)
// so passwords never land in config files.
func readCredentials() scraper.Credentials {
	_ = godotenv.Load()
	return scraper.Credentials{
		Email:    os.Getenv("FACEBOOK_EMAIL"),
		Password: os.Getenv("FACEBOOK_PASSWORD"),
	}
}

func buildService(cfg Config) *scraper.Service {
	database, err := cfg.Db.OpenDB()
	if err != nil {
		osutil.Fatal("failed to open db", err)
	}
	_, err = database.Exec(db.Schema)
	if err != nil {
		osutil.Fatal("failed to apply schema", err)
	}

	return scraper.NewService(scraper.Options{
		DB:          database,
		Jar:         sessionstore.NewStore(cfg.JarDir),
		Headless:    cfg.Headless,
		ProbeImages: cfg.ProbeImages,
	})
}
