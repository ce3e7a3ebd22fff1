// Package cli contains the catchnews command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yuukiLike/cc-catch-news/internal/app"
	"github.com/yuukiLike/cc-catch-news/internal/config"
	"github.com/yuukiLike/cc-catch-news/internal/logging"
)

const envPrefix = "CATCHNEWS"

var version = "dev"

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the catchnews command. Flags can also be set through
// CATCHNEWS_ONCE, CATCHNEWS_CONFIG and CATCHNEWS_LOG_LEVEL.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "catchnews",
		Short: "Scheduled AI news digest",
		Long: `catchnews collects AI news from Hacker News, Product Hunt, RSS feeds and arXiv,
removes duplicates, asks an LLM to rank and summarize the best items, and
delivers the digest to Discord, WeChat Work and Telegram.

Without --once it runs immediately and then on the configured cron schedule.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v)
		},
	}

	root.Flags().Bool("once", false, "run the pipeline once and exit")
	root.PersistentFlags().String("config", "", "path to the YAML config file")
	root.PersistentFlags().String("log-level", "", "override logging level (debug, info, warn, error)")

	_ = v.BindPFlag("once", root.Flags().Lookup("once"))
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(newVersionCommand(), newCheckCommand(v))
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "catchnews %s\n", version)
		},
	}
}

func newCheckCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and report enabled sources and outputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "schedule: %s (%s)\n", cfg.Scheduler.CronExpression, cfg.Scheduler.Location())
			fmt.Fprintf(out, "model: %s\n", cfg.AI.Model)
			fmt.Fprintf(out, "persistence: %t\n", cfg.Database.URL != "")
			return nil
		},
	}
}

func run(ctx context.Context, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	if !v.GetBool("once") {
		return application.Run(ctx)
	}

	report, err := application.RunOnce(ctx)
	if err != nil {
		if report.RunID == "" {
			return err
		}
		return fmt.Errorf("run %s: %w", report.RunID, err)
	}
	logger.Info("run complete", "run_id", report.RunID, "status", report.Status, "digest_items", report.DigestCount)
	return nil
}

// loadConfig reads .env (when present) into the environment, then the YAML
// config, then applies the --log-level override.
func loadConfig(v *viper.Viper) (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return config.Config{}, err
	}

	if level := v.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}
