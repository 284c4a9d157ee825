// cmd/minwonscrapexter/run.go
package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/valpere/MinwonScrapexter/internal/config"
	"github.com/valpere/MinwonScrapexter/internal/output"
	"github.com/valpere/MinwonScrapexter/internal/scraper"
	"github.com/valpere/MinwonScrapexter/internal/utils"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

type runFlags struct {
	output      string
	page        int
	workers     int
	nlp         bool
	batchSize   int
	dept        string
	maxPages    int
	metricsAddr string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl the service listing and write all outputs",
		Example: `  minwonscrapexter run --output ./data
  minwonscrapexter run --page -1            # sample the first page
  minwonscrapexter run --dept 국세청 --max-pages 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, root, flags)
		},
	}

	bindRunFlags(cmd.Flags(), flags)
	return cmd
}

func bindRunFlags(f *pflag.FlagSet, flags *runFlags) {
	f.StringVarP(&flags.output, "output", "o", "", "output directory")
	f.IntVar(&flags.page, "page", 0, "single search page to crawl (0 = all, -1 = sample)")
	f.IntVarP(&flags.workers, "workers", "w", 0, fmt.Sprintf("detail workers (0 = auto, max %d)", scraper.MaxWorkers))
	f.BoolVar(&flags.nlp, "nlp", false, "enable keyword analysis")
	f.IntVar(&flags.batchSize, "batch-size", 0, "records per batch")
	f.StringVar(&flags.dept, "dept", "", "department name or code to filter by")
	f.IntVar(&flags.maxPages, "max-pages", 0, "maximum search pages (0 = no limit)")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /progress on this address")
}

// applyRunFlags overrides configuration values with explicitly set flags
func applyRunFlags(fs *pflag.FlagSet, cfg *config.Config, flags *runFlags) {
	if fs.Changed("output") {
		cfg.Output.Dir = flags.output
	}
	if fs.Changed("workers") {
		cfg.Crawl.Workers = flags.workers
	}
	if fs.Changed("nlp") {
		cfg.Analysis.Enabled = flags.nlp
	}
	if fs.Changed("batch-size") {
		cfg.Crawl.BatchSize = flags.batchSize
	}
	if fs.Changed("max-pages") {
		cfg.Crawl.MaxPages = flags.maxPages
	}
	if fs.Changed("metrics-addr") {
		cfg.Metrics.Addr = flags.metricsAddr
	}
}

func runCrawl(cmd *cobra.Command, root *rootOptions, flags *runFlags) error {
	cfg, logger, err := root.load()
	if err != nil {
		return err
	}
	applyRunFlags(cmd.Flags(), cfg, flags)
	if result := cfg.Validate(); !result.Valid {
		return fmt.Errorf("invalid configuration: %w", result.Err())
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := cfg.RunOptions()
	opts.Page = flags.page

	var mainName string
	if flags.dept != "" {
		dept, err := a.departments(ctx).Resolve(flags.dept)
		if err != nil {
			return err
		}
		logger.WithField("code", dept.Code).Infof("filtering by department %s", dept.Name)
		opts.DeptCode = dept.Code
		mainName = output.DepartmentFileName(utils.CleanFileName(dept.Name), dept.Code)
	} else if cfg.Crawl.DeptCode != "" {
		mainName = output.DepartmentFileName("부서", cfg.Crawl.DeptCode)
	}

	a.serveMetrics(ctx)

	result, err := a.engine.Run(ctx, opts)
	if err != nil {
		if result != nil && len(result.Records) > 0 {
			writeFailures(a, result.Records)
		}
		if scraper.IsInterrupted(err) {
			return fmt.Errorf("crawl interrupted: %w", err)
		}
		return fmt.Errorf("crawl failed: %w", err)
	}

	summary, err := a.output.WriteAll(context.WithoutCancel(ctx), result.Records, mainName)
	printRunSummary(cmd.OutOrStdout(), result, summary)
	if err != nil {
		return fmt.Errorf("output write failed: %w", err)
	}
	return nil
}

// writeFailures saves the failed records of an aborted run. The engine
// has already persisted the completed records.
func writeFailures(a *app, records []*types.ServiceRecord) {
	path, n, err := a.output.WriteErrors(records)
	switch {
	case err != nil:
		a.logger.WithError(err).Error("failed to write errors file")
	case n > 0:
		a.logger.WithFields(logrus.Fields{"file": path, "records": n}).Info("failed records saved")
	}
}

func printRunSummary(w io.Writer, result *scraper.RunResult, summary *output.Summary) {
	s := result.Stats
	fmt.Fprintln(w, "수집 완료")
	fmt.Fprintf(w, "  검색 페이지: %d\n", s.Pages)
	fmt.Fprintf(w, "  총 민원 수: %d\n", s.Total)
	fmt.Fprintf(w, "  성공: %d (%.1f%%)\n", s.Success, s.SuccessRate())
	fmt.Fprintf(w, "  실패: %d\n", s.Failed)
	fmt.Fprintf(w, "  중복 병합: %d\n", result.Dedupe.Duplicates)
	fmt.Fprintf(w, "  소요 시간: %s\n", utils.FormatDuration(s.Elapsed.Round(time.Second)))
	if summary == nil {
		return
	}
	if summary.Report != nil {
		fmt.Fprintf(w, "  학습 적합 데이터: %d개 (%.1f%%)\n", summary.Report.Trainable.Count, summary.Report.Trainable.Percent)
	}
	if summary.Similar > 0 {
		fmt.Fprintf(w, "  유사 민원명: %d쌍\n", summary.Similar)
	}
	for _, path := range summary.Files {
		fmt.Fprintf(w, "  파일: %s\n", path)
	}
	for name, n := range summary.Sinks {
		fmt.Fprintf(w, "  저장소 %s: %d건\n", name, n)
	}
}
