package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	mastodon "github.com/jamesprial/go-mastodon-api-wrapper"
)

var (
	cfgFile  string
	cfgPath  string
	cfg      *Config
	logger   *slog.Logger
	client   *mastodon.Client
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "mastodon",
	Short: "A command line client for the Mastodon API",
	Long: `mastodon talks to a Mastodon instance: log in, read timelines and
notifications, post statuses, follow streams and export pages that can be
resumed later.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ~/.mastodon/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(resumeCmd)
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, cfgPath, err = LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	logger = setupLogger(cfg.Logging)

	if url, _ := cmd.Flags().GetString("server"); url != "" {
		cfg.Server.URL = url
	}
	if cfg.Server.URL == "" {
		return fmt.Errorf("server.url is required (set it in %s, MASTODON_SERVER_URL or --server)", cfgPath)
	}

	conf := cfg.ClientConfig()
	conf.Logger = logger
	client, err = mastodon.NewClient(conf)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	logger.Debug("client ready", "server", cfg.Server.URL, "config", cfgPath)
	return nil
}

func setupLogger(c LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
