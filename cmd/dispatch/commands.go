package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/promo-dispatch/internal/config"
	"github.com/andresuchdata/promo-dispatch/internal/drive"
	"github.com/andresuchdata/promo-dispatch/internal/pipeline"
	"github.com/andresuchdata/promo-dispatch/internal/pipeline/dispatch"
	"github.com/andresuchdata/promo-dispatch/internal/service"
)

func runAnalyze(c *cli.Context, cfg *config.Config) error {
	req, err := readRequest(c)
	if err != nil {
		return err
	}
	req.Params.LeadTime = c.Float64("lead-time")
	return analyzeAndWrite(c, cfg, req)
}

func runSweep(c *cli.Context, cfg *config.Config) error {
	req, err := readRequest(c)
	if err != nil {
		return err
	}

	leadTimes, err := sweepLeadTimes(c, req.Params)
	if err != nil {
		return err
	}

	svc, err := service.FromConfig(cfg)
	if err != nil {
		return err
	}
	results, metrics, err := svc.Sweep(c.Context, req, leadTimes)
	if err != nil {
		return err
	}

	printSweep(c.App.Writer, results)
	fmt.Fprintf(c.App.Writer, "\n%d scenarios, %d failed, %s\n", metrics.Scenarios, metrics.Failed, metrics.Elapsed.Round(time.Millisecond))
	return nil
}

func runFetch(c *cli.Context, cfg *config.Config) error {
	driveService, err := drive.NewService(c.Context, c.String("credentials"))
	if err != nil {
		return err
	}
	fetcher := drive.NewFetcher(driveService)

	if folder := c.String("folder"); folder != "" {
		paths, err := fetcher.FetchFolder(c.Context, folder, c.Path("dir"))
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(c.App.Writer, p)
		}
		return nil
	}

	inv, promo, err := fetcher.FetchInputs(c.Context, c.String("inventory-id"), c.String("promotion-id"))
	if err != nil {
		return err
	}
	req := service.AnalysisRequest{Inventory: inv, Promotion: promo, Params: paramsFromFlags(c)}
	req.Params.LeadTime = c.Float64("lead-time")
	return analyzeAndWrite(c, cfg, req)
}

func runClearCache(c *cli.Context, cfg *config.Config) error {
	if !cfg.Cache.Enabled {
		return cli.Exit("result cache is disabled (CACHE_ENABLED=false)", 1)
	}
	svc, err := service.FromConfig(cfg)
	if err != nil {
		return err
	}
	n, err := svc.ClearCache(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "removed %d cached analyses\n", n)
	return nil
}

func runListReports(c *cli.Context, cfg *config.Config) error {
	svc, err := service.FromConfig(cfg)
	if err != nil {
		return err
	}
	reports, err := svc.ListReports(c.Context)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSIZE")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%d\n", r.Key, r.Size)
	}
	return w.Flush()
}

func analyzeAndWrite(c *cli.Context, cfg *config.Config, req service.AnalysisRequest) error {
	svc, err := service.FromConfig(cfg)
	if err != nil {
		return err
	}

	report, err := svc.Report(c.Context, req)
	if err != nil {
		return err
	}
	res := report.Result
	if !res.OK() {
		return cli.Exit(res.Message, 2)
	}

	dir := c.Path("out")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir %s: %w", dir, err)
	}
	outPath := filepath.Join(dir, report.FileName)
	if err := os.WriteFile(outPath, report.Content.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", outPath, err)
	}

	if c.Bool("upload") && report.ArchiveKey == "" {
		if _, err := svc.Archive(c.Context, report); err != nil {
			return err
		}
	}

	printResult(c.App.Writer, res)
	fmt.Fprintf(c.App.Writer, "report: %s\n", outPath)
	if report.ArchiveKey != "" {
		fmt.Fprintf(c.App.Writer, "archived: %s\n", report.ArchiveKey)
	}
	return nil
}

func readRequest(c *cli.Context) (service.AnalysisRequest, error) {
	inv, err := os.ReadFile(c.Path("inventory"))
	if err != nil {
		return service.AnalysisRequest{}, fmt.Errorf("failed to read inventory workbook: %w", err)
	}
	promo, err := os.ReadFile(c.Path("promotion"))
	if err != nil {
		return service.AnalysisRequest{}, fmt.Errorf("failed to read promotion workbook: %w", err)
	}
	return service.AnalysisRequest{Inventory: inv, Promotion: promo, Params: paramsFromFlags(c)}, nil
}

func paramsFromFlags(c *cli.Context) dispatch.Params {
	p := dispatch.Params{SalesPolicy: dispatch.SalesPolicy(c.String("sales-policy"))}
	if asOf := c.Timestamp("as-of"); asOf != nil {
		p.AsOf = *asOf
	}
	return p
}

func sweepLeadTimes(c *cli.Context, base dispatch.Params) ([]float64, error) {
	if raw := c.String("lead-times"); raw != "" {
		var out []float64
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid lead time %q: %w", part, err)
			}
			out = append(out, v)
		}
		return out, nil
	}

	params, err := pipeline.LeadTimeSweep(base, c.Float64("from"), c.Float64("to"), c.Float64("step"))
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(params))
	for _, p := range params {
		out = append(out, p.LeadTime)
	}
	return out, nil
}

func printResult(w io.Writer, res dispatch.Result) {
	fmt.Fprintf(w, "run %s: %s\n", res.RunID, res.Message)
	fmt.Fprintf(w, "records: %d  total demand: %.2f  suggested dispatch: %d  avg daily sales: %.2f\n",
		res.Stats.TotalRecords, res.Stats.TotalDemand, res.Stats.TotalSuggestedDispatch, res.Stats.AverageDailySalesRate)

	types := make([]string, 0, len(res.Stats.DispatchTypeCounts))
	for t := range res.Stats.DispatchTypeCounts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "  %-24s %d\n", t, res.Stats.DispatchTypeCounts[t])
	}
	for _, line := range res.Corrections.Lines() {
		fmt.Fprintf(w, "  correction: %s\n", line)
	}
}

func printSweep(out io.Writer, results []pipeline.ScenarioResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEAD TIME\tSTATUS\tTOTAL DEMAND\tSUGGESTED DISPATCH\tMESSAGE")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%s\n",
			strconv.FormatFloat(r.Result.Params.LeadTime, 'f', -1, 64),
			r.Status,
			r.Result.Stats.TotalDemand,
			r.Result.Stats.TotalSuggestedDispatch,
			r.Result.Message)
	}
	w.Flush()
}
