package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cost-dashboard/analytics"
	cmdcalculate "cost-dashboard/command/calculate"
	cmdimport "cost-dashboard/command/import"
	cmdweb "cost-dashboard/command/web"
	"cost-dashboard/connectors/config"

	"github.com/spf13/cobra"
)

// Cost dashboard backend.
// Usage:
//   cost-dashboard web [--addr :3001] [--data ./data] [--ui ./ui/dist]
//   cost-dashboard import [--days 30] [--out ./data] [--sample 500]
//   cost-dashboard calculate [--data ./data] [--months 6]
// Notes:
// - Provider credentials and attribution come from config.yml (CONFIG_PATH or --config).
// - `web` proxies the vendor billing APIs with credentials passed in request headers and serves
//   dashboard aggregates over <data>/expenses.csv.

var (
	cfgFile string
	debug   bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cost-dashboard",
		Short:         "Cloud and AI spend dashboard backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(h))
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default $CONFIG_PATH or ./config.yml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(webCmd(), importCmd(), calculateCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("config.load.error", "path", path, "error", err)
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func webCmd() *cobra.Command {
	var opts cmdweb.Options
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the provider proxies, dashboard API and built UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return cmdweb.Run(cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "http listen address (host:port), overrides server.addr")
	cmd.Flags().StringVar(&opts.DataDir, "data", "", "directory containing CSV files, overrides server.data_dir")
	cmd.Flags().StringVar(&opts.UIDir, "ui", "", "directory containing built UI (Vite dist), overrides server.ui_dir")
	return cmd
}

func importCmd() *cobra.Command {
	var opts cmdimport.Options
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Fetch configured providers and write expenses.csv",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if opts.DataDir == "" {
				opts.DataDir = cfg.Server.DataDir
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cmdimport.Run(ctx, cfg, opts)
		},
	}
	cmd.Flags().IntVar(&opts.Days, "days", 0, "lookback window in days (default import.days)")
	cmd.Flags().StringVar(&opts.DataDir, "out", "", "output directory (default server.data_dir)")
	cmd.Flags().IntVar(&opts.Sample, "sample", 0, "write this many generated expenses instead of fetching providers")
	return cmd
}

func calculateCmd() *cobra.Command {
	var opts cmdcalculate.Options
	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Aggregate expenses.csv into the spend CSV files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if opts.DataDir == "" {
				opts.DataDir = cfg.Server.DataDir
			}
			return cmdcalculate.Run(opts)
		},
	}
	cmd.Flags().StringVar(&opts.DataDir, "data", "", "directory containing expenses.csv (default server.data_dir)")
	cmd.Flags().IntVar(&opts.Months, "months", analytics.DefaultTrendMonths, "months in the monthly trend")
	return cmd
}
