package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"xlcsv/internal/config"
	"xlcsv/internal/datasource/file"
	"xlcsv/internal/datasource/httpds"
	"xlcsv/internal/metrics"
	"xlcsv/internal/metrics/datadog"
	"xlcsv/internal/metrics/prompush"
)

// main is the entry point for the converter binary. It resolves the pipeline
// config (from a JSON file, from -in/-out shortcuts, or both), optionally
// initializes a metrics backend, and executes one or more streaming runs.
func main() {
	var (
		cfgPath           string
		inPath            string
		outPath           string
		sheet             string
		batchList         string
		metricsBackendFlg string
		pushGatewayURLFlg string
		datadogAddrFlg    string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "", "pipeline config JSON path")
	flag.StringVar(&inPath, "in", "", "input workbook path (shortcut; overrides config source)")
	flag.StringVar(&outPath, "out", "", "output CSV path (shortcut; overrides config output)")
	flag.StringVar(&sheet, "sheet", "", "worksheet name (default: the workbook's active sheet)")
	flag.StringVar(&batchList, "batch", "", "file listing one input workbook per line; converts each")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (pushgateway, datadog, none); default env METRICS_BACKEND")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&datadogAddrFlg, "datadog-addr", "", "DogStatsD address, e.g. 127.0.0.1:8125")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	p, err := resolvePipeline(cfgPath, inPath, outPath, sheet)
	if err != nil {
		fatalf("%v", err)
	}

	// Validate pipeline config.
	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid")
		os.Exit(1)
	}

	// If validate flag is set, only validate the configuration and exit.
	if validate {
		log.Printf("configuration is valid")
		os.Exit(0)
	}

	initMetrics(metricsBackendFlg, pushGatewayURLFlg, datadogAddrFlg, p.Job, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	if batchList != "" {
		if err := runBatch(ctx, p, batchList, *verbose); err != nil {
			log.Fatalf("%v", err)
		}
	} else {
		if *verbose {
			log.Printf("pipeline: source=%s output=%s", sourceDesc(p), outputDesc(p))
		}
		if err := runStreamed(ctx, p, *verbose); err != nil {
			log.Fatalf("%v", err)
		}
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// resolvePipeline builds the effective pipeline: the config file when given,
// overlaid with the -in/-out/-sheet shortcuts. With no config file, the
// shortcuts alone describe a plain workbook→CSV conversion.
func resolvePipeline(cfgPath, inPath, outPath, sheet string) (config.Pipeline, error) {
	var p config.Pipeline

	if cfgPath != "" {
		f, err := os.Open(cfgPath)
		if err != nil {
			return p, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&p); err != nil {
			return p, fmt.Errorf("decode config: %w", err)
		}
	}

	if inPath != "" {
		p.Source = config.Source{Kind: "file", File: config.SourceFile{Path: inPath}}
	}
	if outPath != "" {
		p.Output.Kind = "csv"
		p.Output.CSV.Path = outPath
	}
	if sheet != "" {
		if p.Reader.Options == nil {
			p.Reader.Options = config.Options{}
		}
		p.Reader.Options["sheet"] = sheet
	}

	if cfgPath == "" && p.Output.CSV.Path == "" && p.Source.File.Path != "" {
		// Derive out.csv next to the input when only -in was given.
		base := strings.TrimSuffix(p.Source.File.Path, filepath.Ext(p.Source.File.Path))
		p.Output.Kind = "csv"
		p.Output.CSV.Path = base + ".csv"
	}

	return p, nil
}

// runBatch converts every workbook listed in listPath with the same pipeline
// settings. CSV output paths are derived per input; database outputs append
// to the same table.
func runBatch(ctx context.Context, p config.Pipeline, listPath string, verbose bool) error {
	inputs, err := file.ReadList(listPath)
	if err != nil {
		return fmt.Errorf("read batch list: %w", err)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("batch list %s is empty", listPath)
	}

	for i, in := range inputs {
		run := p
		remote := strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://")
		if remote {
			run.Source = config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: in, MaxRetries: p.Source.HTTP.MaxRetries}}
		} else {
			run.Source = config.Source{Kind: "file", File: config.SourceFile{Path: in}}
		}
		if run.Output.Kind == "" || run.Output.Kind == "csv" {
			if remote {
				run.Output.CSV.Path = httpds.SafeFilenameFromURL(in) + ".csv"
			} else {
				run.Output.CSV.Path = strings.TrimSuffix(in, filepath.Ext(in)) + ".csv"
			}
		}

		log.Printf("batch %d/%d: %s", i+1, len(inputs), in)
		if err := runStreamed(ctx, run, verbose); err != nil {
			return fmt.Errorf("convert %s: %w", in, err)
		}
	}
	return nil
}

// initMetrics installs the selected metrics backend. Resolution order for
// each setting: flag → env → default.
func initMetrics(backendName, gwURL, ddAddr, job string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	jobName := job
	if jobName == "" {
		jobName = "xlcsv_job"
	}

	switch backendName {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=pushgateway url=%s job_name=%s", gwURL, jobName)
		metrics.SetBackend(b)

	case "datadog":
		if ddAddr == "" {
			ddAddr = os.Getenv("DOGSTATSD_ADDR")
		}
		if ddAddr == "" {
			ddAddr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       ddAddr,
			Namespace:  "xlcsv.",
			GlobalTags: []string{"job:" + jobName},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog addr=%s job_name=%s", ddAddr, jobName)
		metrics.SetBackend(b)

	case "", "none":
		// metrics disabled; nop backend remains
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func sourceDesc(p config.Pipeline) string {
	if p.Source.Kind == "http" {
		return "http:" + p.Source.HTTP.URL
	}
	return "file:" + p.Source.File.Path
}

func outputDesc(p config.Pipeline) string {
	switch p.Output.Kind {
	case "sqlite", "postgres":
		return p.Output.Kind + ":" + p.Output.DB.Table
	default:
		return "csv:" + p.Output.CSV.Path
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
