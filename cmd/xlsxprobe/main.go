package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"xlcsv/internal/config"
	"xlcsv/internal/probe"
)

// main is the entrypoint for the workbook probing CLI. It inspects an .xlsx
// workbook (local path or URL), prints a worksheet/sample summary to stderr,
// and emits a starter pipeline configuration as JSON on stdout.
//
// The resulting config is intended to be hand-edited and then used with
// cmd/xlcsv.
func main() {
	var (
		flagIn = flag.String(
			"in",
			"",
			"Local path of the workbook to inspect",
		)
		flagURL = flag.String(
			"url",
			"",
			"URL of the workbook to inspect",
		)
		flagSheet = flag.String(
			"sheet",
			"",
			"Worksheet to sample; defaults to the workbook's active sheet",
		)
		flagRows = flag.Int(
			"rows",
			probe.DefaultSampleRows,
			"Number of rows to sample from the top of the sheet",
		)
		flagName = flag.String(
			"name",
			"dataset_name",
			"Logical dataset name (used for job, table, and file names)",
		)
		flagJob = flag.String(
			"job",
			"",
			"Job name for metrics/config; defaults to a normalized version of -name when empty",
		)
		flagBackend = flag.String(
			"backend",
			"csv",
			"Sink to target in the generated config: csv|sqlite|postgres",
		)
		flagAllowInsecure = flag.Bool(
			"allow-insecure",
			false,
			"allow insecure certs for -url probes",
		)
		flagQuiet = flag.Bool(
			"quiet",
			false,
			"suppress the sample summary on stderr",
		)
	)
	flag.Parse()

	if *flagIn == "" && *flagURL == "" {
		fmt.Fprintln(os.Stderr, "missing -in or -url")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	res, err := probe.Probe(ctx, probe.Options{
		Path:             *flagIn,
		URL:              *flagURL,
		Sheet:            *flagSheet,
		SampleRows:       *flagRows,
		Name:             *flagName,
		Job:              *flagJob,
		Backend:          *flagBackend,
		AllowInsecureTLS: *flagAllowInsecure,
	})
	if err != nil {
		log.Fatalf("probe: %v", err)
	}

	if !*flagQuiet {
		printSummary(res)
	}

	out, err := config.MarshalPipeline(res.Pipeline)
	if err != nil {
		log.Fatalf("encode config: %v", err)
	}
	fmt.Println(string(out))
}

// printSummary writes the worksheet list, derived columns, and the sampled
// rows to stderr, keeping stdout clean for the JSON config.
func printSummary(res probe.Result) {
	fmt.Fprintf(os.Stderr, "sheets: %v (sampled %q)\n", res.Sheets, res.Sheet)
	if len(res.Columns) > 0 {
		fmt.Fprintf(os.Stderr, "columns: %v\n", res.Columns)
	}
	if len(res.Kinds) > 0 {
		fmt.Fprintf(os.Stderr, "kinds:   %v\n", res.Kinds)
	}
	for i, row := range res.Sample {
		fmt.Fprintf(os.Stderr, "row %2d: %v\n", i+1, row)
	}
}
