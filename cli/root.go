package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hannes/pellucid-sanitizer/config"
)

var (
	// Version is injected via ldflags at build time
	Version = "dev"

	// Global flags
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string

	// cfg is resolved once per invocation in PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pellucid",
	Short: "Privacy sanitization engine for free text",
	Long: `Pellucid detects personally identifiable information in free text and
replaces it with synthetic values or placeholders.

It prefers a remote anonymization service when one is configured and falls
back to an in-process regex engine whenever the remote call fails.`,
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = loaded

		setupLogging(cfg.Logging)

		if err := initSentry(cfg.SentryDSN); err != nil {
			return err
		}
		return nil
	},
}

// loadConfig resolves defaults, then the JSON file, then the environment,
// then explicitly set flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c := config.DefaultConfig()
	if cfgFile != "" {
		if err := config.LoadFromFile(cfgFile, c); err != nil {
			return nil, err
		}
	}
	config.LoadFromEnv(c)

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		c.Logging.Format = logFormat
	}
	if verbose {
		c.Logging.Level = zerolog.DebugLevel.String()
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func setupLogging(lc config.LoggingConfig) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// All structured logs go to stderr so stdout stays clean for piping
	if lc.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().
			Timestamp().
			Logger()
	}
}

func initSentry(dsn string) error {
	if dsn == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          "pellucid@" + Version,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("initializing sentry: %w", err)
	}
	log.Debug().Msg("sentry error reporting enabled")
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to JSON config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")
}

// Execute runs the root command and flushes Sentry on exit
func Execute() error {
	err := rootCmd.Execute()
	sentry.Flush(2 * time.Second)
	return err
}
