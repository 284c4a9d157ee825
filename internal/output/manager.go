// internal/output/manager.go
package output

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/valpere/MinwonScrapexter/internal/config"
	"github.com/valpere/MinwonScrapexter/internal/pipeline"
	"github.com/valpere/MinwonScrapexter/internal/utils"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

const checkpointPrefix = "정부24_민원_진행상황_"

// Manager writes the configured output formats and forwards records to sinks
type Manager struct {
	config       config.OutputConfig
	threshold    float64
	standardizer *pipeline.Standardizer
	sinks        []Sink
	logger       logrus.FieldLogger
	now          func() time.Time
}

// NewManager creates a manager. threshold is the similar-name report cutoff.
func NewManager(cfg config.OutputConfig, threshold float64, logger logrus.FieldLogger) (*Manager, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	standardizer, err := pipeline.NewStandardizer(cfg.Transforms)
	if err != nil {
		return nil, fmt.Errorf("invalid output transforms: %w", err)
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if threshold <= 0 {
		threshold = pipeline.DefaultSimilarityThreshold
	}
	return &Manager{
		config:       cfg,
		threshold:    threshold,
		standardizer: standardizer,
		logger:       logger.WithField("component", "output"),
		now:          time.Now,
	}, nil
}

// WithSinks adds database sinks fed by WriteAll
func (m *Manager) WithSinks(sinks ...Sink) *Manager {
	m.sinks = append(m.sinks, sinks...)
	return m
}

// WithClock overrides the time source used for file stamps
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Path joins name onto the output directory
func (m *Manager) Path(name string) string {
	return filepath.Join(m.config.Dir, name)
}

// Persist writes an intermediate record set as CSV. Checkpoint files are
// skipped when checkpoints are disabled.
func (m *Manager) Persist(name string, records []*types.ServiceRecord) error {
	if !m.config.Checkpoints && strings.HasPrefix(name, checkpointPrefix) {
		return nil
	}
	return WriteRecordsFile(m.Path(name), records)
}

// WriteErrors writes the failed-records CSV and returns its path and row count.
// The path is empty when nothing failed.
func (m *Manager) WriteErrors(records []*types.ServiceRecord) (string, int, error) {
	path := m.Path(ErrorsFile)
	n, err := WriteErrorsFile(path, records)
	if err != nil || n == 0 {
		return "", n, err
	}
	return path, n, nil
}

// WriteAll standardizes the final records and writes every configured format.
// mainName overrides the main CSV name when non-empty. Sink failures are
// returned after all files are written.
func (m *Manager) WriteAll(ctx context.Context, records []*types.ServiceRecord, mainName string) (*Summary, error) {
	for _, rec := range records {
		if err := m.standardizer.Apply(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to standardize %q: %w", rec.Name, err)
		}
	}

	enrichments := make([]pipeline.Enrichment, len(records))
	for i, rec := range records {
		enrichments[i] = pipeline.Enrich(rec)
	}

	now := m.now()
	stamp := utils.Stamp(now)
	summary := &Summary{Report: BuildQualityReport(records, enrichments, now)}
	wrote := func(path string) {
		summary.Files = append(summary.Files, path)
		m.logger.WithField("file", path).Info("output written")
	}

	if m.config.HasFormat(config.FormatCSV) {
		if mainName == "" {
			mainName = MainFile
		}
		path := m.Path(mainName)
		if err := WriteRecordsFile(path, records); err != nil {
			return summary, err
		}
		wrote(path)
	}

	if m.config.HasFormat(config.FormatErrors) {
		path, _, err := m.WriteErrors(records)
		if err != nil {
			return summary, err
		}
		if path != "" {
			wrote(path)
		}
	}

	if m.config.HasFormat(config.FormatEnhanced) {
		path := m.Path(EnhancedFileName(stamp))
		if err := WriteEnhancedFile(path, records, enrichments); err != nil {
			return summary, err
		}
		wrote(path)

		pairs := pipeline.SimilarNames(records, m.threshold)
		summary.Similar = len(pairs)
		if len(pairs) > 0 {
			path := m.Path(SimilarFileName(stamp))
			if err := WriteSimilarFile(path, pairs); err != nil {
				return summary, err
			}
			wrote(path)
		}
	}

	if m.config.HasFormat(config.FormatJSONL) {
		path := m.Path(FinetuneFileName(stamp))
		lines, err := WriteJSONLFile(path, records, enrichments)
		if err != nil {
			return summary, err
		}
		m.logger.WithField("examples", lines).Debug("fine-tuning examples generated")
		wrote(path)
	}

	if m.config.HasFormat(config.FormatReport) {
		path := m.Path(ReportFileName(stamp))
		if err := WriteReportFile(path, summary.Report); err != nil {
			return summary, err
		}
		wrote(path)
	}

	if m.config.HasFormat(config.FormatXLSX) {
		path := m.Path(WorkbookFileName(stamp))
		if err := WriteWorkbook(path, records, enrichments, summary.Report); err != nil {
			return summary, err
		}
		wrote(path)
	}

	return summary, m.writeSinks(ctx, records, summary)
}

func (m *Manager) writeSinks(ctx context.Context, records []*types.ServiceRecord, summary *Summary) error {
	if len(m.sinks) == 0 {
		return nil
	}
	summary.Sinks = make(map[string]int, len(m.sinks))

	var errs []error
	for _, sink := range m.sinks {
		n, err := sink.Write(ctx, records)
		if err != nil {
			m.logger.WithError(err).WithField("sink", sink.Name()).Error("sink write failed")
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		summary.Sinks[sink.Name()] = n
	}
	return errors.Join(errs...)
}

// Close closes every sink
func (m *Manager) Close() error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// OpenSinks connects the enabled database sinks
func OpenSinks(ctx context.Context, cfg config.SinksConfig, logger logrus.FieldLogger) ([]Sink, error) {
	var sinks []Sink
	if cfg.SQL.Enabled {
		sink, err := NewSQLSink(ctx, cfg.SQL, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if cfg.Mongo.Enabled {
		sink, err := NewMongoSink(ctx, cfg.Mongo, logger)
		if err != nil {
			for _, s := range sinks {
				s.Close()
			}
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}
