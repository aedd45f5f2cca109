// Package pipeline wires loading, data quality checks and report generation
// into a single dashboard run.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"card-market-lab/internal/domain"
	"card-market-lab/internal/loader"
	"card-market-lab/internal/logger"
	"card-market-lab/internal/observability"
	"card-market-lab/internal/reporting"
)

// Pipeline loads the feature table and produces a dashboard report.
// Each Run is synchronous; concurrent Runs share the loader's query cache.
type Pipeline struct {
	loader    *loader.Loader
	generator *reporting.Generator
	quality   *QualityChecker
	source    string
	clock     func() time.Time
	newRunID  func() string
	metrics   *observability.Metrics
	log       *logrus.Entry
}

// New creates a pipeline over l with the given analysis settings.
func New(l *loader.Loader, settings reporting.Settings) *Pipeline {
	return &Pipeline{
		loader:    l,
		generator: reporting.NewGenerator(settings),
		quality:   NewQualityChecker(settings),
		source:    "unknown",
		clock:     func() time.Time { return time.Now().UTC() },
		newRunID:  uuid.NewString,
		log:       logger.Discard().WithComponent("pipeline"),
	}
}

// WithClock sets a custom clock function for deterministic output.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	p.generator = p.generator.WithClock(clock)
	return p
}

// WithRunIDs overrides run ID generation, for deterministic output.
func (p *Pipeline) WithRunIDs(next func() string) *Pipeline {
	p.newRunID = next
	return p
}

// WithSource records the data source name in reports.
func (p *Pipeline) WithSource(source string) *Pipeline {
	p.source = source
	return p
}

// WithFeatureSetLimit enables the row-limit data quality check.
func (p *Pipeline) WithFeatureSetLimit(limit int) *Pipeline {
	p.quality = p.quality.WithFeatureSetLimit(limit)
	return p
}

// WithMetrics records run durations and sizes.
func (p *Pipeline) WithMetrics(m *observability.Metrics) *Pipeline {
	p.metrics = m
	return p
}

// WithLogger sets the log entry used for run logging.
func (p *Pipeline) WithLogger(log *logrus.Entry) *Pipeline {
	p.log = log
	return p
}

// Settings returns the analysis settings.
func (p *Pipeline) Settings() reporting.Settings {
	return p.generator.Settings()
}

// Refresh drops cached source queries so the next Run reloads.
func (p *Pipeline) Refresh() {
	p.loader.Refresh()
}

// Run loads data, checks its quality and generates the report. A load
// failure aborts the run before anything is produced; the returned error
// matches loader.ErrDataAccess. Failed quality checks are reported, not fatal.
func (p *Pipeline) Run(ctx context.Context) (*reporting.Report, error) {
	start := time.Now()
	runID := p.newRunID()
	log := p.log.WithFields(logrus.Fields{"run_id": runID, "source": p.source})

	ds, err := p.loader.Load(ctx)
	if err != nil {
		p.metrics.RecordPipelineRun(time.Since(start), 0, 0, err)
		log.WithError(err).Error("pipeline load failed")
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	quality := p.quality.Check(ds.Observations)
	if !quality.AllPass {
		var failed []string
		for _, c := range quality.Checks {
			if !c.Pass {
				failed = append(failed, c.Name)
			}
		}
		log.WithField("failed_checks", failed).Warn("data quality checks failed")
	}

	report := p.generator.Generate(ds.Observations, ds.CardTypes)
	report.RunID = runID
	report.Source = p.source
	report.DataVersion = computeDataVersion(ds)
	report.DataQuality = convertToDataQuality(quality)

	elapsed := time.Since(start)
	p.metrics.RecordPipelineRun(elapsed, len(ds.Observations), len(report.Movers), nil)
	log.WithFields(logrus.Fields{
		"observations":  report.DataSummary.RawRows,
		"filtered_rows": report.DataSummary.FilteredRows,
		"movers":        len(report.Movers),
		"data_version":  report.DataVersion,
		"elapsed_ms":    elapsed.Milliseconds(),
	}).Info("pipeline run completed")

	return report, nil
}

// RunAndWrite executes Run and writes the report artifacts into outputDir:
//   - REPORT.md
//   - movers.csv
//   - monthly_by_set.csv
//   - release_pivot.csv
//   - summary.csv
//   - dashboard.xlsx (when withXLSX)
func (p *Pipeline) RunAndWrite(ctx context.Context, outputDir string, withXLSX bool) (*reporting.Report, []string, error) {
	report, err := p.Run(ctx)
	if err != nil {
		return nil, nil, err
	}

	paths, err := reporting.WriteArtifacts(report, outputDir, withXLSX)
	if err != nil {
		return report, paths, fmt.Errorf("write artifacts: %w", err)
	}

	p.metrics.RecordReport("markdown")
	p.metrics.RecordReport("csv")
	if withXLSX {
		p.metrics.RecordReport("xlsx")
	}
	p.log.WithFields(logrus.Fields{
		"run_id":     report.RunID,
		"output_dir": outputDir,
		"files":      len(paths),
	}).Info("report artifacts written")

	return report, paths, nil
}

// computeDataVersion computes SHA256 hash of the loaded rows for reproducibility.
// Hash includes every observation (identity, price and metrics) AND card-type
// counts, so any change in the source yields a new version.
func computeDataVersion(ds *loader.Dataset) string {
	h := sha256.New()

	// Part 1: observations
	obsParts := make([]string, 0, len(ds.Observations))
	for _, o := range ds.Observations {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
			o.ItemID, o.ItemName, o.Grade, o.SetName,
			o.Date.UTC().Format("2006-01-02"), formatInt(o.MonthsSinceRelease), formatPrice(o.Price)))
		for _, m := range domain.AllMetrics {
			sb.WriteByte('|')
			if v, ok := o.Metrics[m]; ok {
				sb.WriteString(strconv.FormatFloat(v, 'f', 6, 64))
			}
		}
		obsParts = append(obsParts, sb.String())
	}
	sort.Strings(obsParts)
	h.Write([]byte("OBSERVATIONS\n"))
	h.Write([]byte(strings.Join(obsParts, "\n")))

	// Part 2: card types
	typeParts := make([]string, 0, len(ds.CardTypes))
	for _, t := range ds.CardTypes {
		typeParts = append(typeParts, fmt.Sprintf("%s|%d", t.CardType, t.Count))
	}
	sort.Strings(typeParts)
	h.Write([]byte("\nCARD_TYPES\n"))
	h.Write([]byte(strings.Join(typeParts, "\n")))

	return hex.EncodeToString(h.Sum(nil))[:12] // short hash
}

func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', 6, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
