// Command benchcmp turns `go test -bench` output for the alloc package into a
// markdown report comparing the segregated and coalescing architectures.
//
// Usage:
//
//	go test -run '^$' -bench . -benchmem ./alloc | go run ./scripts/benchcmp
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/hmalloc/alloc"
	"github.com/joshuapare/hmalloc/internal/writer"
)

// BenchmarkResult is one parsed benchmark line.
type BenchmarkResult struct {
	Name         string
	Operation    string
	Architecture alloc.Architecture
	Case         string
	Iterations   int
	NsPerOp      float64
	BytesPerOp   int64
	AllocsPerOp  int64
}

// Comparison pairs the two architectures for one operation and case.
type Comparison struct {
	Operation  string
	Case       string
	Segregated float64
	Coalescing float64
	// Ratio is coalescing ns/op over segregated ns/op.
	Ratio float64
	// Single is set when only one architecture reported this case.
	Single alloc.Architecture
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	inputFile  = flag.String("input", "", "Input file with benchmark output (stdin if not specified)")
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "benchcmp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	in := io.Reader(os.Stdin)
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			return errors.Wrap(err, "open input")
		}
		defer f.Close()
		in = f
	}

	results, err := parseBenchmarks(in)
	if err != nil {
		return err
	}
	comparisons := compare(results)
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d results, %d comparisons\n", len(results), len(comparisons))
	}

	report := markdownReport(comparisons, time.Now())
	if err := sinkFor(*outputFile).WriteReport([]byte(report)); err != nil {
		return errors.Wrap(err, "write report")
	}
	if *outputFile != "" && !*quiet {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
	return nil
}

type stdoutSink struct{}

func (stdoutSink) WriteReport(buf []byte) error {
	_, err := os.Stdout.Write(buf)
	return err
}

func sinkFor(path string) writer.Sink {
	if path == "" {
		return stdoutSink{}
	}
	return &writer.FileWriter{Path: path}
}

// BenchmarkAllocFree/segregated/24-8    1000000    35.2 ns/op    0 B/op    0 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+(\d+)\s+B/op)?(?:\s+(\d+)\s+allocs/op)?`,
)

// testEvent is the subset of a `go test -json` event we read.
type testEvent struct {
	Action string `json:"Action"`
	Output string `json:"Output"`
}

func parseBenchmarks(r io.Reader) ([]BenchmarkResult, error) {
	var results []BenchmarkResult
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		var ev testEvent
		if strings.HasPrefix(line, "{") && json.UnmarshalFromString(line, &ev) == nil {
			line = ev.Output
		}

		res, ok := parseLine(strings.TrimSpace(line))
		if ok {
			results = append(results, res)
		}
	}
	return results, errors.Wrap(scanner.Err(), "read benchmark output")
}

// parseLine parses Benchmark<Op>/<architecture>/<case>-<procs>. Lines for
// other packages or without an architecture segment are skipped.
func parseLine(line string) (BenchmarkResult, bool) {
	m := benchmarkRegex.FindStringSubmatch(line)
	if m == nil {
		return BenchmarkResult{}, false
	}
	parts := strings.Split(m[1], "/")
	if len(parts) < 3 {
		return BenchmarkResult{}, false
	}
	arch, ok := alloc.ParseArchitecture(parts[1])
	if !ok {
		return BenchmarkResult{}, false
	}

	res := BenchmarkResult{
		Name:         m[1],
		Operation:    strings.TrimPrefix(parts[0], "Benchmark"),
		Architecture: arch,
		Case:         trimProcs(strings.Join(parts[2:], "/")),
	}
	res.Iterations, _ = strconv.Atoi(m[2])
	res.NsPerOp, _ = strconv.ParseFloat(m[3], 64)
	if m[4] != "" {
		res.BytesPerOp, _ = strconv.ParseInt(m[4], 10, 64)
	}
	if m[5] != "" {
		res.AllocsPerOp, _ = strconv.ParseInt(m[5], 10, 64)
	}
	return res, true
}

func trimProcs(s string) string {
	i := strings.LastIndex(s, "-")
	if i <= 0 {
		return s
	}
	if _, err := strconv.Atoi(s[i+1:]); err != nil {
		return s
	}
	return s[:i]
}

func compare(results []BenchmarkResult) []Comparison {
	type key struct{ op, cas string }
	grouped := make(map[key]map[alloc.Architecture]BenchmarkResult)
	for _, r := range results {
		k := key{r.Operation, r.Case}
		if grouped[k] == nil {
			grouped[k] = make(map[alloc.Architecture]BenchmarkResult)
		}
		// Repeated runs (-count) keep the fastest.
		if prev, ok := grouped[k][r.Architecture]; !ok || r.NsPerOp < prev.NsPerOp {
			grouped[k][r.Architecture] = r
		}
	}

	out := make([]Comparison, 0, len(grouped))
	for k, byArch := range grouped {
		seg, hasSeg := byArch[alloc.Segregated]
		coa, hasCoa := byArch[alloc.Coalescing]
		c := Comparison{Operation: k.op, Case: k.cas, Segregated: seg.NsPerOp, Coalescing: coa.NsPerOp}
		switch {
		case hasSeg && hasCoa:
			if seg.NsPerOp > 0 {
				c.Ratio = coa.NsPerOp / seg.NsPerOp
			}
		case hasSeg:
			c.Single = alloc.Segregated
		default:
			c.Single = alloc.Coalescing
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Operation != out[j].Operation {
			return out[i].Operation < out[j].Operation
		}
		return out[i].Case < out[j].Case
	})
	return out
}

func markdownReport(comparisons []Comparison, now time.Time) string {
	p := message.NewPrinter(language.English)
	var sb strings.Builder

	sb.WriteString("# Allocator Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	segFaster, coaFaster, paired := 0, 0, 0
	for _, c := range comparisons {
		if c.Single != "" {
			continue
		}
		paired++
		if c.Ratio > 1 {
			segFaster++
		} else if c.Ratio < 1 {
			coaFaster++
		}
	}

	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Cases**: %d (%d paired)\n", len(comparisons), paired)
	fmt.Fprintf(&sb, "- segregated faster: %d\n", segFaster)
	fmt.Fprintf(&sb, "- coalescing faster: %d\n\n", coaFaster)

	sb.WriteString("## Results\n\n")
	sb.WriteString("| Operation | Case | segregated (ns/op) | coalescing (ns/op) | coalescing / segregated |\n")
	sb.WriteString("|-----------|------|--------------------|--------------------|-------------------------|\n")
	for _, c := range comparisons {
		seg, coa, ratio := p.Sprintf("%.1f", c.Segregated), p.Sprintf("%.1f", c.Coalescing), p.Sprintf("%.2fx", c.Ratio)
		switch c.Single {
		case alloc.Segregated:
			coa, ratio = "*N/A*", "*segregated only*"
		case alloc.Coalescing:
			seg, ratio = "*N/A*", "*coalescing only*"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n", c.Operation, c.Case, seg, coa, ratio)
	}

	sb.WriteString("\n## Notes\n\n")
	sb.WriteString("- A ratio above 1.00x means the segregated cache was faster.\n")
	sb.WriteString("- With -count, the fastest run of each case is kept.\n")
	return sb.String()
}
