// cmd/minwonscrapexter/commands.go
package main

import (
	"fmt"
	"io"
	"net/url"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/MinwonScrapexter/internal/config"
	"github.com/valpere/MinwonScrapexter/internal/output"
	"github.com/valpere/MinwonScrapexter/internal/scraper"
	"github.com/valpere/MinwonScrapexter/internal/utils"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

func newTestCmd(root *rootOptions) *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "test [url...]",
		Short: "Extract known detail pages and report validity and timing",
		Long: fmt.Sprintf("Extracts the given detail URLs (or the built-in test URLs) and writes %s.",
			scraper.TestFile),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkURLs(args); err != nil {
				return err
			}
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.Output.Dir = outputDir
			}

			a, err := newApp(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			results := a.engine.TestURLs(cmd.Context(), args)
			printTestResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	return cmd
}

// checkURLs rejects arguments that are not absolute http(s) URLs
func checkURLs(args []string) error {
	for _, arg := range args {
		u, err := url.Parse(arg)
		if err != nil {
			return fmt.Errorf("invalid URL %q: %w", arg, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid URL %q: scheme must be http or https with a host", arg)
		}
	}
	return nil
}

func printTestResults(w io.Writer, results []scraper.TestResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "유효\t상태\t소요\t민원명\tURL")
	valid := 0
	for _, r := range results {
		mark := "✗"
		if r.Valid {
			mark = "✓"
			valid++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			mark,
			r.Record.ErrorStatus,
			utils.FormatDuration(r.Duration),
			utils.TruncateString(r.Record.Name, 30),
			r.Record.Link,
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d/%d valid\n", valid, len(results))
}

func newDetailCmd(root *rootOptions) *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "detail <url>...",
		Short: "Extract detail pages directly without crawling the listing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkURLs(args); err != nil {
				return err
			}
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.Output.Dir = outputDir
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			records := make([]*types.ServiceRecord, 0, len(args))
			for _, link := range args {
				if ctx.Err() != nil {
					break
				}
				rec := a.engine.ProcessSingle(ctx, types.NewDetailRecord(link))
				records = append(records, rec)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", rec.ErrorStatus, rec.Name, link)
			}

			name := output.DetailFileName(utils.Stamp(time.Now()))
			if err := a.output.Persist(name, records); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d records to %s\n", len(records), a.output.Path(name))
			return ctx.Err()
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	return cmd
}

func newDepartmentsCmd(root *rootOptions) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "departments [query]",
		Short: "List departments, optionally filtered by a fuzzy name query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := scraper.DefaultDepartments()
			if !offline {
				cfg, logger, err := root.load()
				if err != nil {
					return err
				}
				a, err := newApp(cmd.Context(), cfg, logger, false)
				if err != nil {
					return err
				}
				defer a.Close()
				deps = a.departments(cmd.Context())
			}

			if len(args) == 1 {
				deps = deps.Search(args[0])
				if len(deps) == 0 {
					return fmt.Errorf("no department matches %q", args[0])
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "코드\t부서명\t분류")
			for _, d := range deps {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Code, d.Name, d.Group)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "use the built-in department list")
	return cmd
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print the effective values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read(root.configPath)
			if err != nil {
				return err
			}
			result := cfg.Validate()
			w := cmd.OutOrStdout()
			for _, warning := range result.Warnings {
				fmt.Fprintf(w, "warning: %s\n", warning)
			}
			if !result.Valid {
				for _, e := range result.Errors {
					fmt.Fprintf(w, "error: %s\n", e.Error())
				}
				return fmt.Errorf("invalid configuration: %d errors", len(result.Errors))
			}

			source := root.configPath
			if source == "" {
				source = "defaults"
			}
			fmt.Fprintf(w, "✓ configuration %s is valid\n", source)
			fmt.Fprintf(w, "  base url: %s\n", cfg.Crawl.BaseURL)
			fmt.Fprintf(w, "  output: %s %v\n", cfg.Output.Dir, cfg.Output.Formats)
			fmt.Fprintf(w, "  browser rendering: %t\n", cfg.Browser.Enabled)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MinwonScrapexter %s\n", version)
	fmt.Fprintf(w, "Build time: %s\n", buildTime)
	fmt.Fprintf(w, "Git commit: %s\n", gitCommit)
}
