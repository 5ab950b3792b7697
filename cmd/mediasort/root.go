package main

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mediasort/internal/app"
	"mediasort/internal/config"
	appLog "mediasort/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "mediasort",
	Short: "Sort photos and videos into event and season folders",
	Long: `mediasort reads the date from each media file name and moves the file
into the folder of the first configured event covering that date, or into a
<year>/<season> folder when no event matches.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initEnv)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default is "+config.DefaultPath()+")")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("input", "", "input directory (overrides input_dir)")
	pf.String("output", "", "output directory (overrides output_dir)")
	pf.String("timezone", "", "IANA timezone for file name dates (overrides timezone)")

	for _, name := range []string{"config", "log-level", "input", "output", "timezone"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}

	rootCmd.AddCommand(sortCmd, matchCmd, eventsCmd, exportCmd, serveCmd)
}

// initEnv loads .env and exposes MEDIASORT_* variables to viper.
func initEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		appLog.Warn("failed to read .env", "err", err)
	}
	viper.SetEnvPrefix("mediasort")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the YAML config and applies flag and environment
// overrides on top of it.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg)

	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	appLog.Debug("effective config",
		"config_path", path,
		"input_dir", cfg.InputDir,
		"output_dir", cfg.Root(),
		"timezone", cfg.Timezone,
		"events", len(cfg.Events),
		"ics_count", len(cfg.ICS),
		"dry_run", cfg.DryRun,
	)
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	if v := viper.GetString("input"); v != "" {
		cfg.InputDir = v
	}
	if v := viper.GetString("output"); v != "" {
		cfg.OutputDir = v
	}
	if v := viper.GetString("timezone"); v != "" {
		cfg.Timezone = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := viper.GetString("listen"); v != "" {
		cfg.Listen = v
	}
	if v := viper.GetString("refresh"); v != "" {
		cfg.RefreshCron = v
	}
	if viper.IsSet("dry-run") {
		cfg.DryRun = viper.GetBool("dry-run")
	}
	if viper.IsSet("watch") {
		cfg.Watch = viper.GetBool("watch")
	}
	cfg.Normalize()
}

// buildApp loads the configuration and wires the components on the real
// filesystem.
func buildApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, afero.NewOsFs())
}
