package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"trustcal/internal/calendar"
	"trustcal/internal/config"
	appLog "trustcal/internal/log"
	"trustcal/internal/model"
	"trustcal/internal/store"
	"trustcal/internal/web"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func rootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "trustcal",
		Short:         "Trust calendar: fast days, holidays, festivals and events",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "trustcal.yaml", "Path to config file (created with defaults if missing)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	root.AddCommand(
		serveCommand(flags),
		monthCommand(flags),
		syncCommand(flags),
		migrateCommand(flags),
	)
	return root
}

// loadConfig reads the config and applies the log level.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	level := cfg.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))
	return cfg, nil
}

func serveCommand(flags *rootFlags) *cobra.Command {
	var listen string
	var noSync bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled festival sync",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			ctx := cmd.Context()
			appLog.Info("trustcal starting", "version", version)

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if !noSync && len(cfg.FestivalFeeds) > 0 {
				stop, err := a.syncer.Schedule(ctx, cfg.SyncCron)
				if err != nil {
					return err
				}
				defer stop()
			}

			srv := web.NewServer(cfg, web.Deps{
				Calendar:  a.loader,
				Admin:     a.admin,
				Festivals: a.store,
				Health:    a.store.Ping,
				Metrics:   promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
			})
			err = web.ListenAndServe(ctx, cfg.Listen, srv.Handler())
			appLog.Info("trustcal exiting")
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "Do not schedule festival feed sync")
	return cmd
}

func monthCommand(flags *rootFlags) *cobra.Command {
	var month string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "month",
		Short: "Print the resolved activities of a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ym := time.Now()
			if month != "" {
				var err error
				if ym, err = time.Parse("2006-01", month); err != nil {
					return fmt.Errorf("--month must be YYYY-MM: %w", err)
				}
			}

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			view, err := a.loader.Month(cmd.Context(), ym.Year(), ym.Month())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			return printMonth(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (default: current month)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

// printMonth writes one line per in-month day. A trailing '*' marks a
// status computed by the default rule.
func printMonth(w io.Writer, view calendar.MonthView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "DATE\tDAY\tSTATUS\tSUN\tACTIVITIES\n")
	for _, d := range view.Days {
		if !d.InMonth || len(d.Activities) == 0 {
			continue
		}
		primary := d.Activities[0]
		status := string(primary.Type)
		if primary.IsDefault {
			status += "*"
		}
		sun := "-"
		if primary.SunTimes != nil {
			sun = primary.SunTimes.Sunrise + "/" + primary.SunTimes.Sunset
		}
		rest := make([]string, 0, len(d.Activities)-1)
		for _, a := range d.Activities[1:] {
			rest = append(rest, fmt.Sprintf("%s: %s", a.Type, a.Title))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			model.DateKey(d.Date), d.Date.Weekday().String()[:3], status, sun, strings.Join(rest, "; "))
	}
	return tw.Flush()
}

func syncCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-festivals",
		Short: "Import festival ICS feeds once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.syncer.SyncAll(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d festivals from %d feeds\n", n, len(cfg.FestivalFeeds))
			return err
		},
	}
}

func migrateCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
