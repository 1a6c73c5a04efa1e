package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Zachdehooge/quake-dashboard/internal/app"
	"github.com/Zachdehooge/quake-dashboard/internal/config"
	"github.com/Zachdehooge/quake-dashboard/internal/dashboard"
	"github.com/Zachdehooge/quake-dashboard/internal/fetcher"
	"github.com/Zachdehooge/quake-dashboard/internal/generator"
	"github.com/Zachdehooge/quake-dashboard/internal/observability"
	"github.com/Zachdehooge/quake-dashboard/internal/quake"
	"github.com/Zachdehooge/quake-dashboard/internal/scheduler"
	"github.com/Zachdehooge/quake-dashboard/internal/server"
)

var (
	configPath string
	verbose    bool
	outputFile string
	windowFlag string
	viewFlag   string
	tabFlag    string
	watchMode  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quake-dashboard",
		Short: "Serve or generate a live earthquake dashboard",
		Long: `Quake Dashboard fetches recent earthquakes from the USGS summary
feeds and shows them on a map with a list, a heat map and a news panel.
Without a subcommand it runs the web server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $QUAKE_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	addServeCmd(rootCmd)
	addGenerateCmd(rootCmd)
	addListCmd(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return cfg, observability.NewLogger(level, cfg.LogFormat), nil
}

func newService(cfg *config.Config, w quake.Window, logger *slog.Logger, metrics *observability.Metrics) *app.Service {
	client := fetcher.NewClient(cfg.FeedBaseURL, cfg.UserAgent, cfg.FetchTimeout, logger, metrics)
	return app.New(client, w, logger, metrics, app.WithLocation(cfg.Location()))
}

func addServeCmd(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
	rootCmd.AddCommand(serveCmd)
}

// runServe runs the server and the refresh scheduler until SIGINT or SIGTERM.
func runServe(cmd *cobra.Command) error {
	cfg, logger, err := setup()
	if err != nil {
		cmd.PrintErrln(fmt.Errorf("failed to load config: %w", err))
		return err
	}
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()
	svc := newService(cfg, cfg.Window(), logger, metrics)
	sched := scheduler.New(nil, cfg.RefreshInterval, svc.ScheduledRefresh, logger)
	svc.SetResetter(sched)

	srv := server.New(svc, server.Options{
		Addr:            cfg.HTTPAddr,
		RefreshInterval: cfg.RefreshInterval,
		FitPadding:      cfg.FitPadding,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !server.IsClosed(err) {
			errCh <- err
		}
	}()

	go svc.Refresh(ctx, app.TriggerStartup)
	sched.Start(ctx)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
		stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func addGenerateCmd(rootCmd *cobra.Command) {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the dashboard to a static HTML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd)
		},
	}

	generateCmd.Flags().StringVarP(&outputFile, "output", "o", "earthquakes.html", "Output HTML file path")
	generateCmd.Flags().StringVarP(&windowFlag, "window", "w", "", "Time window in days: 1, 7 or 30 (default from config)")
	generateCmd.Flags().StringVar(&viewFlag, "view", "markers", "Map presentation: markers or heatmap")
	generateCmd.Flags().StringVar(&tabFlag, "tab", "list", "Side panel: list or news")
	generateCmd.Flags().BoolVar(&watchMode, "watch", false, "Continuously update the HTML file")

	rootCmd.AddCommand(generateCmd)
}

// runGenerate fetches once and writes the page. With --watch it keeps the
// file current on every scheduler tick.
func runGenerate(cmd *cobra.Command) error {
	cfg, logger, err := setup()
	if err != nil {
		cmd.PrintErrln(fmt.Errorf("failed to load config: %w", err))
		return err
	}

	w := cfg.Window()
	if windowFlag != "" {
		if w, err = quake.ParseWindow(windowFlag); err != nil {
			return err
		}
	}
	presentation, err := dashboard.ParsePresentation(viewFlag)
	if err != nil {
		return err
	}
	tab, err := dashboard.ParseTab(tabFlag)
	if err != nil {
		return err
	}

	svc := newService(cfg, w, logger, observability.NewMetrics())
	if err := svc.SelectPresentation(presentation); err != nil {
		return err
	}
	if err := svc.SelectTab(tab); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if verbose {
		cmd.Println("Fetching earthquake data...")
	}
	svc.Refresh(ctx, app.TriggerStartup)
	if err := writePage(cmd, cfg, svc); err != nil {
		return err
	}

	if !watchMode {
		return nil
	}

	cmd.Println(fmt.Sprintf("Watch mode activated. Updating every %s. Press Ctrl+C to stop.", cfg.RefreshInterval))
	sched := scheduler.New(nil, cfg.RefreshInterval, func(ctx context.Context) {
		svc.Refresh(ctx, app.TriggerSchedule)
		if err := writePage(cmd, cfg, svc); err != nil {
			cmd.PrintErrln(fmt.Errorf("update failed: %w", err))
		}
	}, logger)
	sched.Start(ctx)

	<-ctx.Done()
	sched.Stop()
	return nil
}

func writePage(cmd *cobra.Command, cfg *config.Config, svc *app.Service) error {
	refresh := cfg.RefreshInterval
	if !watchMode {
		refresh = 0
	}
	_, v := svc.Snapshot()
	page := generator.NewPage(v, refresh, cfg.FitPadding, time.Now(), svc.Location())

	if verbose {
		cmd.Println(fmt.Sprintf("Generating HTML to %s...", outputFile))
	}
	if err := generator.WriteFile(outputFile, page); err != nil {
		return fmt.Errorf("failed to generate HTML: %w", err)
	}
	cmd.Println(fmt.Sprintf("%s saved to %s", v.Header, outputFile))
	return nil
}

// addListCmd adds a 'list' subcommand to print earthquakes without generating HTML
func addListCmd(rootCmd *cobra.Command) {
	var listWindow string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent earthquakes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				cmd.PrintErrln(fmt.Errorf("failed to load config: %w", err))
				return err
			}

			w := cfg.Window()
			if listWindow != "" {
				if w, err = quake.ParseWindow(listWindow); err != nil {
					return err
				}
			}

			client := fetcher.NewClient(cfg.FeedBaseURL, cfg.UserAgent, cfg.FetchTimeout, logger, observability.NewMetrics())
			events, err := client.FetchEvents(cmd.Context(), w)
			if err != nil {
				cmd.PrintErrln(fmt.Errorf("failed to fetch earthquakes: %w", err))
				return err
			}

			if len(events) == 0 {
				cmd.Println(dashboard.EmptyListText)
				return nil
			}

			loc := cfg.Location()
			cmd.Println(quake.Header(len(events), w) + ":")
			for _, e := range events {
				cmd.Println("---")
				cmd.Println(fmt.Sprintf("Magnitude: %s", quake.FormatMagnitude(e.Magnitude)))
				cmd.Println(fmt.Sprintf("Place: %s", e.Place))
				cmd.Println(fmt.Sprintf("Time: %s", quake.FormatTime(e.Time, loc)))
				cmd.Println(fmt.Sprintf("Details: %s", e.URL))
			}
			return nil
		},
	}

	listCmd.Flags().StringVarP(&listWindow, "window", "w", "", "Time window in days: 1, 7 or 30 (default from config)")
	rootCmd.AddCommand(listCmd)
}
