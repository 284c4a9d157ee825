// internal/scraper/engine.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	rerrors "github.com/valpere/MinwonScrapexter/internal/errors"
	"github.com/valpere/MinwonScrapexter/internal/pipeline"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// DefaultBaseURL is the gov.kr civil-service search listing
const DefaultBaseURL = "https://www.gov.kr/search/applyMw?Mcode=11166"

// Output file names written during a run
const (
	InterruptFile = "정부24_민원목록_중단됨.csv"
	CrashFile     = "정부24_민원목록_오류발생.csv"
	TestFile      = "테스트결과.csv"
)

// ErrorPlaceholder fills required fields when processing a record panics
const ErrorPlaceholder = "오류로 인해 정보를 가져올 수 없음"

// DefaultTestURLs are the detail pages processed in test mode
var DefaultTestURLs = []string{
	"https://www.gov.kr/portal/service/serviceInfo/PTR000050100",
	"https://www.gov.kr/portal/service/serviceInfo/174100000001",
}

// CheckpointName returns the checkpoint file name after batch i of n
func CheckpointName(i, n int) string {
	return fmt.Sprintf("정부24_민원_진행상황_%dof%d.csv", i, n)
}

// Persister stores intermediate record sets under a file name
type Persister interface {
	Persist(name string, records []*types.ServiceRecord) error
}

// RunRecorder receives run-level observations
type RunRecorder interface {
	RecordStatus(status types.ErrorStatus)
	PageFetched(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordStatus(types.ErrorStatus) {}
func (noopRecorder) PageFetched(string)             {}

// EngineConfig defines the configuration for the crawl engine
type EngineConfig struct {
	BaseURL         string `yaml:"base_url" json:"base_url"`
	Workers         int    `yaml:"workers" json:"workers"`
	BatchSize       int    `yaml:"batch_size" json:"batch_size"`
	RepairAttempts  int    `yaml:"repair_attempts" json:"repair_attempts"`
	SampleSize      int    `yaml:"sample_size" json:"sample_size"`
	CheckpointEvery int    `yaml:"checkpoint_every" json:"checkpoint_every"`
	ProgressEvery   int    `yaml:"progress_every" json:"progress_every"`

	// MaxErrorRate is the failed share of processed records above which
	// the run is reported as unhealthy
	MaxErrorRate float64 `yaml:"max_error_rate" json:"max_error_rate"`
}

// DefaultEngineConfig returns the engine defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BaseURL:         DefaultBaseURL,
		Workers:         DefaultWorkers(),
		BatchSize:       30,
		RepairAttempts:  DefaultRepairAttempts,
		SampleSize:      10,
		CheckpointEvery: 2,
		ProgressEvery:   5,
		MaxErrorRate:    rerrors.DefaultMaxErrorRate,
	}
}

// RunStats summarizes a run
type RunStats struct {
	Pages     int           `json:"pages"`
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Success   int           `json:"success"`
	Failed    int           `json:"failed"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// SuccessRate returns the success share of processed records in percent
func (s RunStats) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Success) * 100 / float64(s.Processed)
}

// RunResult is the outcome of a crawl
type RunResult struct {
	Records     []*types.ServiceRecord `json:"records"`
	Stats       RunStats               `json:"stats"`
	Dedupe      pipeline.DedupeStats   `json:"dedupe"`
	Interrupted bool                   `json:"interrupted"`
}

// TestResult is the outcome of one test-mode URL
type TestResult struct {
	Record   *types.ServiceRecord `json:"record"`
	Valid    bool                 `json:"valid"`
	Duration time.Duration        `json:"duration"`
}

// Engine runs a crawl end to end: search pages, list extraction, detail
// extraction in batches, validation and repair, deduplication.
type Engine struct {
	config    EngineConfig
	fetcher   *Fetcher
	lists     *ListExtractor
	details   *DetailExtractor
	validator *Validator
	dedupe    *pipeline.RecordDeduplicator
	pages     *rerrors.Service
	persister Persister
	recorder  RunRecorder
	tracker   *ProgressTracker
	logger    logrus.FieldLogger

	mu        sync.Mutex
	processed []*types.ServiceRecord
}

// NewEngine wires an engine around a fetcher, a detail extractor and a
// validator.
func NewEngine(config EngineConfig, fetcher *Fetcher, details *DetailExtractor, validator *Validator, logger logrus.FieldLogger) *Engine {
	defaults := DefaultEngineConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.RepairAttempts <= 0 {
		config.RepairAttempts = defaults.RepairAttempts
	}
	if config.SampleSize <= 0 {
		config.SampleSize = defaults.SampleSize
	}
	if config.CheckpointEvery <= 0 {
		config.CheckpointEvery = defaults.CheckpointEvery
	}
	if config.MaxErrorRate <= 0 || config.MaxErrorRate > 1 {
		config.MaxErrorRate = defaults.MaxErrorRate
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	e := &Engine{
		config:    config,
		fetcher:   fetcher,
		lists:     NewListExtractor(logger),
		details:   details,
		validator: validator,
		dedupe:    &pipeline.RecordDeduplicator{},
		recorder:  noopRecorder{},
		tracker:   NewProgressTracker(config.ProgressEvery, logger),
		logger:    logger,
	}
	e.pages = e.configurePageRetry(rerrors.NewService(rerrors.RetryConfig{
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,
		Linear:     true,
	}))
	return e
}

// configurePageRetry installs the search page retry predicates and the
// failure policy on s
func (e *Engine) configurePageRetry(s *rerrors.Service) *rerrors.Service {
	return s.WithRetryable(IsRetryableError).
		WithThrottled(IsRateLimited).
		WithFailurePolicy(rerrors.FailurePolicy{MaxErrorRate: e.config.MaxErrorRate})
}

// WithPersister sets where checkpoints and interrupt files go
func (e *Engine) WithPersister(p Persister) *Engine {
	e.persister = p
	return e
}

// WithRecorder attaches a run metrics recorder
func (e *Engine) WithRecorder(r RunRecorder) *Engine {
	if r != nil {
		e.recorder = r
	}
	return e
}

// WithPageRetry replaces the search page retry service. Its retry
// predicates and failure policy are reset to the engine's.
func (e *Engine) WithPageRetry(s *rerrors.Service) *Engine {
	e.pages = e.configurePageRetry(s)
	return e
}

// WithDeduplicator replaces the deduplicator
func (e *Engine) WithDeduplicator(d *pipeline.RecordDeduplicator) *Engine {
	e.dedupe = d
	return e
}

// Tracker returns the progress tracker of the running phase
func (e *Engine) Tracker() *ProgressTracker { return e.tracker }

// Run crawls the listing and returns the processed, deduplicated records.
// On cancellation the records completed so far are persisted to the
// interrupt file and returned with ctx's error. A panic is recovered,
// the completed records go to the crash file and an error is returned.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (result *RunResult, err error) {
	result = &RunResult{Stats: RunStats{StartedAt: time.Now()}}
	e.mu.Lock()
	e.processed = nil
	e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("stack", string(debug.Stack())).Errorf("crawl crashed: %v", r)
			e.persist(CrashFile, e.snapshot())
			result.Records = e.snapshot()
			err = fmt.Errorf("crawl crashed: %v", r)
		}
		result.Stats.Elapsed = time.Since(result.Stats.StartedAt)
	}()

	summaries, pages, err := e.CollectSummaries(ctx, opts)
	result.Stats.Pages = pages
	if err != nil {
		return result, err
	}
	if len(summaries) == 0 {
		e.logger.Error("no records extracted from the listing")
		return result, nil
	}
	if opts.SampleOnly || opts.Page < 0 {
		n := min(e.config.SampleSize, len(summaries))
		e.logger.WithField("sample", n).Info("sample mode: processing the first records only")
		summaries = summaries[:n]
	}
	result.Stats.Total = len(summaries)

	workers := e.workers(opts)
	batchSize := e.config.BatchSize
	if opts.BatchSize > 0 {
		batchSize = opts.BatchSize
	}
	batches := chunk(summaries, batchSize)
	e.logger.WithFields(logrus.Fields{
		"records": len(summaries),
		"batches": len(batches),
		"workers": workers,
	}).Info("processing detail pages")

	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		n := i + 1
		e.logger.WithFields(logrus.Fields{"batch": n, "batches": len(batches)}).Info("processing batch")

		records := e.ProcessBatch(ctx, batch, workers)
		e.mu.Lock()
		e.processed = append(e.processed, records...)
		e.mu.Unlock()

		for _, rec := range records {
			if rec.ErrorStatus.IsSuccess() {
				result.Stats.Success++
			} else {
				result.Stats.Failed++
			}
		}
		e.logger.WithFields(logrus.Fields{
			"success": result.Stats.Success,
			"failed":  result.Stats.Failed,
			"elapsed": time.Since(result.Stats.StartedAt).Round(time.Second),
		}).Info("batch complete")

		if n%e.config.CheckpointEvery == 0 || n == len(batches) {
			e.persist(CheckpointName(n, len(batches)), e.snapshot())
		}
	}

	processed := e.snapshot()
	result.Stats.Processed = len(processed)

	if ctxErr := ctx.Err(); ctxErr != nil {
		e.logger.WithFields(logrus.Fields{
			"processed": len(processed),
			"total":     result.Stats.Total,
		}).Warn("crawl interrupted")
		e.persist(InterruptFile, processed)
		result.Records = processed
		result.Interrupted = true
		return result, ctxErr
	}

	result.Records, result.Dedupe = e.dedupe.Deduplicate(processed)
	e.logger.WithFields(logrus.Fields{
		"input":      result.Dedupe.Input,
		"duplicates": result.Dedupe.Duplicates,
		"output":     result.Dedupe.Output,
	}).Info("duplicates merged")
	e.logSummary(result.Stats)
	return result, nil
}

// CollectSummaries fetches the search pages and returns the list
// summaries together with the number of pages the listing has.
func (e *Engine) CollectSummaries(ctx context.Context, opts RunOptions) ([]*types.ServiceRecord, int, error) {
	baseURL := e.config.BaseURL
	if opts.DeptCode != "" {
		u, err := WithQueryParam(baseURL, "deptIncCd", opts.DeptCode)
		if err != nil {
			return nil, 0, err
		}
		baseURL = u
	}

	first, err := e.fetcher.Resolve(ctx, baseURL, ResolveOptions{})
	if err != nil {
		e.recorder.PageFetched("error")
		return nil, 0, fmt.Errorf("fetching first search page: %w", err)
	}
	e.recorder.PageFetched("ok")

	lastPage := LastPage(first)
	e.logger.WithField("pages", lastPage).Info("listing size determined")

	if opts.Page != 0 {
		// a negative page samples the first one
		page := max(opts.Page, 1)
		records, err := e.FetchListPage(ctx, PageURL(baseURL, page), page)
		return records, lastPage, err
	}

	limit := lastPage
	if opts.MaxPages > 0 && opts.MaxPages < limit {
		limit = opts.MaxPages
	}
	pageNumbers := make([]int, limit)
	for i := range pageNumbers {
		pageNumbers[i] = i + 1
	}

	results := RunPool(ctx, pageNumbers, e.workers(opts), func(ctx context.Context, page int) ([]*types.ServiceRecord, error) {
		return e.FetchListPage(ctx, PageURL(baseURL, page), page)
	}, e.tracker.Observe("pages"))

	byPage := make([][]*types.ServiceRecord, limit)
	for res := range results {
		if res.Err != nil {
			e.logger.WithError(res.Err).WithField("page", pageNumbers[res.Index]).Error("search page failed")
			continue
		}
		byPage[res.Index] = res.Value
	}

	var summaries []*types.ServiceRecord
	for _, records := range byPage {
		summaries = append(summaries, records...)
	}
	e.logger.WithField("records", len(summaries)).Info("list extraction complete")

	if err := ctx.Err(); err != nil {
		return summaries, lastPage, err
	}
	return summaries, lastPage, nil
}

// FetchListPage fetches one search page with linear retries and extracts
// its summaries.
func (e *Engine) FetchListPage(ctx context.Context, pageURL string, page int) ([]*types.ServiceRecord, error) {
	var records []*types.ServiceRecord
	err := e.pages.ExecuteWithRetry(ctx, fmt.Sprintf("search page %d", page), func(ctx context.Context) error {
		doc, err := e.fetcher.Page(ctx, pageURL)
		if err != nil {
			e.logger.WithError(err).WithField("page", page).Warn("search page request failed")
			return err
		}
		records = e.lists.ExtractList(doc)
		return nil
	})
	if err != nil {
		e.recorder.PageFetched("error")
		return nil, err
	}
	e.recorder.PageFetched("ok")
	e.logger.WithFields(logrus.Fields{"page": page, "records": len(records)}).Info("search page extracted")
	return records, nil
}

// ProcessBatch processes a batch of summaries concurrently. The returned
// records are in completion order.
func (e *Engine) ProcessBatch(ctx context.Context, batch []*types.ServiceRecord, workers int) []*types.ServiceRecord {
	if len(batch) == 0 {
		return nil
	}
	workers = min(max(workers, 1), len(batch))

	results := RunPool(ctx, batch, workers, func(ctx context.Context, rec *types.ServiceRecord) (*types.ServiceRecord, error) {
		return e.ProcessSingle(ctx, rec), nil
	}, e.tracker.Observe("details"))

	records := make([]*types.ServiceRecord, 0, len(batch))
	for res := range results {
		rec := res.Value
		if res.Err != nil {
			rec = batch[res.Index].Clone()
			markProcessingError(rec, res.Err)
		}
		e.recorder.RecordStatus(rec.ErrorStatus)
		records = append(records, rec)
	}
	return records
}

// ProcessSingle extracts the detail page of a summary, merges it and
// validates the result, repairing it when validation fails. External
// links are returned as handled without validation.
func (e *Engine) ProcessSingle(ctx context.Context, summary *types.ServiceRecord) (rec *types.ServiceRecord) {
	rec = summary.Clone()
	logger := e.logger.WithFields(logrus.Fields{"name": rec.Name, "url": rec.Link})

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("processing record panicked: %v", r)
			markProcessingError(rec, fmt.Errorf("%v", r))
		}
	}()

	if rec.Link == "" {
		logger.Warn("record has no link")
		rec.ErrorStatus = types.StatusLinkMissing
		return rec
	}

	MergeDetail(rec, e.details.Extract(ctx, rec.Link, ResolveOptions{}))
	if rec.ErrorStatus == types.StatusExternalLinkHandled {
		return rec
	}

	if !e.validator.Validate(rec) {
		logger.Warn("validation failed, repairing")
		return e.validator.Repair(ctx, rec, e.config.RepairAttempts)
	}
	return rec
}

// TestURLs processes detail pages directly and reports per-URL validity
// and timing.
func (e *Engine) TestURLs(ctx context.Context, urls []string) []TestResult {
	if len(urls) == 0 {
		urls = DefaultTestURLs
	}
	results := make([]TestResult, 0, len(urls))
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		rec := e.details.Extract(ctx, u, ResolveOptions{})
		valid := e.validator.Validate(rec)
		elapsed := time.Since(start)

		e.logger.WithFields(logrus.Fields{
			"url":      u,
			"valid":    valid,
			"status":   rec.ErrorStatus,
			"duration": elapsed.Round(10 * time.Millisecond),
		}).Info("test url processed")
		e.recorder.RecordStatus(rec.ErrorStatus)
		results = append(results, TestResult{Record: rec, Valid: valid, Duration: elapsed})
	}
	if e.persister != nil && len(results) > 0 {
		records := make([]*types.ServiceRecord, len(results))
		for i, r := range results {
			records[i] = r.Record
		}
		e.persist(TestFile, records)
	}
	return results
}

func (e *Engine) workers(opts RunOptions) int {
	if opts.Workers > 0 {
		return min(opts.Workers, MaxWorkers)
	}
	return e.config.Workers
}

func (e *Engine) snapshot() []*types.ServiceRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*types.ServiceRecord, len(e.processed))
	copy(out, e.processed)
	return out
}

func (e *Engine) persist(name string, records []*types.ServiceRecord) {
	if e.persister == nil || len(records) == 0 {
		return
	}
	if err := e.persister.Persist(name, records); err != nil {
		e.logger.WithError(err).WithField("file", name).Error("failed to persist records")
		return
	}
	e.logger.WithFields(logrus.Fields{"file": name, "records": len(records)}).Info("records persisted")
}

func (e *Engine) logSummary(s RunStats) {
	e.logger.WithFields(logrus.Fields{
		"total":        s.Total,
		"success":      s.Success,
		"failed":       s.Failed,
		"success_rate": fmt.Sprintf("%.1f%%", s.SuccessRate()),
		"elapsed":      time.Since(s.StartedAt).Round(time.Second),
	}).Info("crawl complete")

	if e.pages.ShouldAbort(s.Failed, s.Processed) {
		e.logger.WithField("max_error_rate", e.pages.FailurePolicy().MaxErrorRate).
			Warn("failure rate exceeds the failure policy, check the failed records")
	}
}

// markProcessingError tags a record whose processing failed outright and
// fills its empty required fields.
func markProcessingError(rec *types.ServiceRecord, err error) {
	rec.ErrorStatus = types.StatusOtherError
	rec.ErrorMessage = excerpt(err.Error())
	for _, f := range []types.Field{types.FieldProcedure, types.FieldApplyMethod, types.FieldDocuments, types.FieldAgency} {
		if !rec.Filled(f) {
			rec.Set(f, ErrorPlaceholder)
		}
	}
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

// IsInterrupted reports whether err ends a run by cancellation
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
