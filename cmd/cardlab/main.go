// Command cardlab renders the card market dashboard as report files or
// serves it over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"card-market-lab/internal/config"
	"card-market-lab/internal/logger"
	"card-market-lab/internal/observability"
	"card-market-lab/internal/pipeline"
	"card-market-lab/internal/server"
)

var (
	configPath  string
	envFile     string
	useFixtures bool
	outputDir   string
	noXLSX      bool
	serveAddr   string
)

var rootCmd = &cobra.Command{
	Use:   "cardlab",
	Short: "Trading card price analytics dashboard",
	Long: `cardlab loads the monthly feature_set table, aggregates prices by set and
by months since release, classifies sets into price cohorts and reports the
biggest price movers.

Settings come from a YAML file, an optional .env file and CARDLAB_* / DB_*
environment variables.`,
	SilenceUsage: true,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the pipeline once and write report artifacts",
	Long: `Writes REPORT.md, movers.csv, monthly_by_set.csv, release_pivot.csv,
summary.csv and dashboard.xlsx into the output directory.

Example:
  cardlab report --use-fixtures --output-dir out`,
	RunE: runReport,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema to the configured source",
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the synthetic fixture dataset into the configured source",
	RunE:  runSeed,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/cardlab.yaml", "Path to the YAML config file (empty for defaults)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file; missing files are ignored")
	rootCmd.PersistentFlags().BoolVar(&useFixtures, "use-fixtures", false, "Use the in-memory fixture dataset instead of a database")

	reportCmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory (overrides report.output_dir)")
	reportCmd.Flags().BoolVar(&noXLSX, "no-xlsx", false, "Skip dashboard.xlsx")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")

	rootCmd.AddCommand(reportCmd, serveCmd, migrateCmd, seedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// app holds everything a subcommand needs.
type app struct {
	cfg     *config.Config
	log     *logger.Log
	metrics *observability.Metrics
}

func setup() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &app{
		cfg:     cfg,
		log:     log,
		metrics: observability.NewMetrics(cfg.Metrics.Namespace),
	}, nil
}

func loadConfig() (*config.Config, error) {
	if useFixtures {
		// Fixture mode needs no database settings.
		os.Setenv("CARDLAB_SOURCE", config.SourceFixtures)
	}
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (a *app) newPipeline(ctx context.Context) (*pipeline.Pipeline, func(), error) {
	st, err := openStores(ctx, a.cfg, a.metrics, a.log)
	if err != nil {
		return nil, nil, err
	}

	settings, err := pipeline.SettingsFromConfig(a.cfg)
	if err != nil {
		st.close()
		return nil, nil, err
	}

	p := pipeline.New(st.loader, settings).
		WithSource(a.cfg.Source).
		WithFeatureSetLimit(a.cfg.Query.FeatureSetLimit).
		WithMetrics(a.metrics).
		WithLogger(a.log.WithComponent("pipeline"))
	return p, st.close, nil
}

func runReport(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	p, closeStores, err := a.newPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStores()

	dir := a.cfg.Report.OutputDir
	if outputDir != "" {
		dir = outputDir
	}
	_, paths, err := p.RunAndWrite(cmd.Context(), dir, a.cfg.Report.XLSX && !noXLSX)
	if err != nil {
		return err
	}

	fmt.Println("Dashboard report generated:")
	for _, path := range paths {
		fmt.Printf("  - %s\n", path)
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	p, closeStores, err := a.newPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStores()

	cfg := a.cfg.Server
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	return server.New(p, cfg).
		WithMetrics(a.metrics).
		WithLogger(a.log.WithComponent("server")).
		Run(cmd.Context())
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	if err := migrate(cmd.Context(), a.cfg); err != nil {
		return err
	}
	a.log.WithComponent("migrate").WithField("source", a.cfg.Source).Info("migrations applied")
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	if err := seed(cmd.Context(), a.cfg); err != nil {
		return err
	}
	a.log.WithComponent("seed").WithField("source", a.cfg.Source).Info("fixture dataset loaded")
	return nil
}
