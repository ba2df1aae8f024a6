// This file contains the streaming conversion logic. It wires workbook
// acquisition, typed decoding, normalization, and the configured sink into a
// three-stage pipeline. The CLI layer stays thin: it depends only on the
// datasource/sink abstractions and never imports database drivers or
// backend-specific packages directly.
//
// Ordering is a hard guarantee: every stage runs as exactly one goroutine
// connected by bounded channels, so rows leave the sink in worksheet order
// and peak memory stays around O(channel buffers). Fan-out would be easy and
// is deliberately absent.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"xlcsv/internal/config"
	"xlcsv/internal/datasource"
	"xlcsv/internal/metrics"
	"xlcsv/internal/normalize"
	"xlcsv/internal/reader/xlsx"
	"xlcsv/internal/rows"
	"xlcsv/internal/sink"
)

const firstErrors = 3

// counters holds cross-goroutine statistics for a streaming run.
//
// All fields are updated atomically; the stages run concurrently even though
// each is a single goroutine.
type counters struct {
	processed  atomic.Int64 // rows decoded from the worksheet
	readErrors atomic.Int64 // rows/cells the reader could not decode (soft)
	duplicates atomic.Int64 // rows suppressed by duplicate detection
	written    atomic.Int64 // rows handed to the sink
}

// runtimeConfig contains the resolved buffering configuration for a run.
// Values are derived from the pipeline config with optional environment
// variable overrides (12-factor style).
type runtimeConfig struct {
	bufferSize int
	batchSize  int
}

// newRuntimeConfig resolves the runtime configuration using the pipeline
// config and environment-variable fallbacks.
func newRuntimeConfig(p config.Pipeline) runtimeConfig {
	return runtimeConfig{
		bufferSize: pickInt(p.Runtime.ChannelBuffer, getenvInt("XLCSV_CH_BUFFER", 1024)),
		batchSize:  pickInt(p.Runtime.BatchSize, getenvInt("XLCSV_BATCH_SIZE", 0)),
	}
}

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	openSourceFn = datasource.FromConfig
	newSinkFn    = sink.FromConfig
)

// normRow is a fully normalized row travelling from the normalize stage to
// the sink stage.
type normRow struct {
	line   int
	fields []string
}

// runStreamed executes one full workbook → typed rows → normalize → sink
// conversion.
//
// Per-cell and per-row decode problems are soft: they are counted,
// aggregated (first N messages), and the run continues. Source, sink, and
// iteration failures are fatal and cancel all stages.
//
// Stats reported:
//
//   - processed:          rows decoded from the worksheet
//   - read_errors:        soft decode errors
//   - duplicates_skipped: rows suppressed by normalize.skip_duplicate_rows
//   - written:            rows handed to the sink
func runStreamed(ctx context.Context, p config.Pipeline, verbose bool) error {
	rt := newRuntimeConfig(p)
	if verbose {
		log.Printf("stream runtime: buffer=%d batch=%d", rt.bufferSize, rt.batchSize)
	}

	src, err := openSourceFn(p.Source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return err
	}
	rdr, err := xlsx.OpenReader(rc, xlsx.Options{
		Sheet: p.Reader.Options.String("sheet", ""),
	})
	// The workbook is fully decoded by OpenReader; the stream can go away
	// either way.
	_ = rc.Close()
	if err != nil {
		return err
	}
	defer rdr.Close()

	norm := normalize.New(normalize.Config{
		DateTimeLayout: p.Normalize.DateTimeLayout,
		DateLayout:     p.Normalize.DateLayout,
	})

	w, err := newSinkFn(ctx, p.Output, rt.batchSize)
	if err != nil {
		return fmt.Errorf("sink: %w", err)
	}

	var stats counters
	readAgg := newErrAgg(firstErrors)

	rowCh := make(chan *rows.Row, rt.bufferSize)
	outCh := make(chan normRow, rt.bufferSize)

	// The derived context only coordinates the stages: errgroup cancels it
	// on Wait even for a clean run, so the sink's Close below must see the
	// parent context or the final DB batch would never commit.
	g, gctx := errgroup.WithContext(ctx)

	// 1) Reader: worksheet → typed pooled rows.
	g.Go(func() error {
		defer close(rowCh)
		start := time.Now()
		err := rdr.Stream(gctx, rowCh, func(line int, err error) {
			readAgg.add(fmt.Sprintf("line=%d: %v", line, err))
			stats.readErrors.Add(1)
		})
		metrics.RecordStep(p.Job, "read", err, time.Since(start))
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		return nil
	})

	// 2) Normalizer: typed cells → canonical strings, optional dedupe.
	g.Go(func() error {
		defer close(outCh)
		start := time.Now()
		err := runNormalize(gctx, norm, p.Normalize.SkipDuplicateRows, rowCh, outCh, &stats)
		metrics.RecordStep(p.Job, "normalize", err, time.Since(start))
		return err
	})

	// 3) Sink: normalized rows → output, strictly in arrival order.
	g.Go(func() error {
		start := time.Now()
		err := runSink(gctx, w, outCh, &stats, verbose)
		metrics.RecordStep(p.Job, "write", err, time.Since(start))
		return err
	})

	runErr := g.Wait()
	closeErr := w.Close(ctx)
	if runErr == nil && closeErr != nil {
		runErr = fmt.Errorf("sink close: %w", closeErr)
	}

	logReadSummary(readAgg)
	logGlobalSummary(&stats)
	recordRowMetrics(p.Job, rt, &stats)

	return runErr
}

// runNormalize drains typed rows, renders every cell through the normalizer,
// frees the pooled row, and forwards the string row. With dedupe enabled, a
// row whose normalized fields hash-match a previously forwarded row is
// dropped.
func runNormalize(
	ctx context.Context,
	norm *normalize.Normalizer,
	skipDuplicates bool,
	in <-chan *rows.Row,
	out chan<- normRow,
	stats *counters,
) error {
	var seen map[uint64]struct{}
	if skipDuplicates {
		seen = make(map[uint64]struct{})
	}

	for r := range in {
		stats.processed.Add(1)

		fields := make([]string, len(r.C))
		for i, c := range r.C {
			fields[i] = norm.Clean(c)
		}
		line := r.Line
		r.Free()

		if seen != nil {
			h := hashFields(fields)
			if _, dup := seen[h]; dup {
				stats.duplicates.Add(1)
				continue
			}
			seen[h] = struct{}{}
		}

		select {
		case out <- normRow{line: line, fields: fields}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// runSink writes normalized rows to the sink. Any write error is fatal to
// the run.
func runSink(ctx context.Context, w sink.RowWriter, in <-chan normRow, stats *counters, verbose bool) error {
	start := time.Now()
	for r := range in {
		if err := w.WriteRow(ctx, r.fields); err != nil {
			return fmt.Errorf("write row %d: %w", r.line, err)
		}
		n := stats.written.Add(1)
		if verbose && n%10000 == 0 {
			elapsed := time.Since(start)
			rate := int64(float64(n) / elapsed.Seconds())
			log.Printf("progress: written=%d rps=%d elapsed=%s", n, rate, elapsed.Truncate(time.Millisecond))
		}
	}
	return nil
}

// hashFields hashes a normalized row for duplicate detection. A unit
// separator keeps {"ab","c"} distinct from {"a","bc"}.
func hashFields(fields []string) uint64 {
	h := xxh3.New()
	for _, f := range fields {
		_, _ = h.WriteString(f)
		_, _ = h.Write([]byte{0x1f})
	}
	return h.Sum64()
}

// logReadSummary prints aggregated soft read errors. Only the first N unique
// messages are shown.
func logReadSummary(readAgg *errAgg) {
	if readAgg.count == 0 {
		return
	}
	log.Printf("read errors: %d (showing first %d)", readAgg.count, len(readAgg.first))
	for i, s := range readAgg.first {
		log.Printf("  #%03d: %s", i+1, s)
	}
}

// logGlobalSummary prints final aggregated statistics for the run.
//
// The invariant for data rows is:
//
//	processed == written + duplicates_skipped
//
// read_errors counts soft cell/row problems and does not remove rows from
// the stream.
func logGlobalSummary(c *counters) {
	processed := c.processed.Load()
	readErrs := c.readErrors.Load()
	duplicates := c.duplicates.Load()
	written := c.written.Load()

	log.Printf(
		"summary: processed=%d read_errors=%d duplicates_skipped=%d written=%d",
		processed, readErrs, duplicates, written,
	)

	if processed != written+duplicates {
		log.Printf(
			"WARNING: row accounting mismatch: processed=%d written+duplicates=%d",
			processed, written+duplicates,
		)
	}
}

// recordRowMetrics pushes the end-of-run row counters to the metrics
// backend. Batch counts only exist for the database sinks.
func recordRowMetrics(job string, rt runtimeConfig, c *counters) {
	metrics.RecordRow(job, "processed", c.processed.Load())
	metrics.RecordRow(job, "read_errors", c.readErrors.Load())
	metrics.RecordRow(job, "duplicates_skipped", c.duplicates.Load())
	metrics.RecordRow(job, "written", c.written.Load())

	if rt.batchSize > 0 {
		written := c.written.Load()
		metrics.RecordBatches(job, (written+int64(rt.batchSize)-1)/int64(rt.batchSize))
	}
}

// ----------------------------------------------------------------------------
// Small helpers
// ----------------------------------------------------------------------------

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// errAgg aggregates errors: total count plus the first N messages.
type errAgg struct {
	mu    sync.Mutex
	limit int
	count int
	first []string
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit}
}

func (a *errAgg) add(msg string) {
	a.mu.Lock()
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
	a.mu.Unlock()
}
