package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alejandrodnm/fairpath/config"
	"github.com/spf13/cobra"
)

// rootOptions son los flags persistentes comunes a todos los comandos.
type rootOptions struct {
	configPath string
	verbose    bool
	format     string
	compact    bool
}

// cli mantiene la app construida en PersistentPreRunE para cerrarla al final,
// también cuando el comando falla.
type cli struct {
	opts rootOptions
	app  *app
}

func (c *cli) current() *app { return c.app }

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	return c.app.Close()
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:           "fairpath",
		Short:         "Least-action fair value, spectral cycles and causal backtests over daily prices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.opts.configPath)
			if err != nil {
				return err
			}
			if c.opts.verbose {
				cfg.Log.Level = "debug"
			}
			if c.opts.format != "" {
				cfg.Log.Format = c.opts.format
			}
			setupLogger(cfg.Log, cmd.ErrOrStderr())

			c.app, err = newApp(cfg, cmd.OutOrStdout(), c.opts.compact)
			if err != nil {
				return err
			}
			slog.Debug("fairpath starting",
				"config", c.opts.configPath,
				"command", cmd.Name(),
				"data_dir", cfg.Data.Dir,
				"storage", cfg.Storage.Driver,
			)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.opts.configPath, "config", "config/config.yaml", "path to config file")
	root.PersistentFlags().BoolVar(&c.opts.verbose, "verbose", false, "set log level to debug")
	root.PersistentFlags().StringVar(&c.opts.format, "format", "", "log format: text|json (overrides config)")
	root.PersistentFlags().BoolVar(&c.opts.compact, "compact", false, "compact 1-line output")

	root.AddCommand(
		newAnalyzeCmd(c.current),
		newForecastCmd(c.current),
		newScanCmd(c.current),
		newVerifyCmd(c.current),
	)
	return root, c
}

// parseDate acepta YYYY-MM-DD; vacío devuelve zero.
func parseDate(flag, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s %q: want YYYY-MM-DD", flag, v)
	}
	return t, nil
}

func setupLogger(cfg config.LogConfig, w io.Writer) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}
