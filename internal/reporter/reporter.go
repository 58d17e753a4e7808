// Package reporter formats suite results as text, JSON or JUnit XML.
package reporter

import (
	"fmt"
	"io"
	"time"

	"github.com/eol-bench/eol-go/internal/sequencer"
)

// Reporter formats and outputs test results.
type Reporter interface {
	// ReportSuite reports results for a whole run.
	ReportSuite(result *sequencer.SuiteResult)

	// ReportTest reports results for a single test.
	ReportTest(result *sequencer.TestResult)
}

var (
	_ Reporter = (*TextReporter)(nil)
	_ Reporter = (*JSONReporter)(nil)
	_ Reporter = (*JUnitReporter)(nil)
)

func status(tr *sequencer.TestResult) string {
	switch {
	case tr.Skipped:
		return "skipped"
	case tr.Passed:
		return "passed"
	default:
		return "failed"
	}
}

func passRate(r *sequencer.SuiteResult) float64 {
	total := r.PassCount + r.FailCount
	if total == 0 {
		return 0
	}
	return float64(r.PassCount) / float64(total) * 100
}

// TextReporter outputs human-readable text reports.
type TextReporter struct {
	writer  io.Writer
	verbose bool
}

// NewTextReporter creates a text reporter. Verbose adds the engine detail
// of passing tests and the error kind of failures.
func NewTextReporter(w io.Writer, verbose bool) *TextReporter {
	return &TextReporter{writer: w, verbose: verbose}
}

// ReportSuite writes every test line followed by a summary.
func (r *TextReporter) ReportSuite(result *sequencer.SuiteResult) {
	fmt.Fprintf(r.writer, "\n=== Suite: %s ===\n", result.SuiteName)
	fmt.Fprintf(r.writer, "Run:      %s\n", result.RunID)
	if result.SchemaFingerprint != "" {
		fmt.Fprintf(r.writer, "Schema:   %s\n", shortFingerprint(result.SchemaFingerprint))
	}
	fmt.Fprintf(r.writer, "Duration: %s\n\n", result.Duration.Round(time.Millisecond))

	for _, tr := range result.Results {
		r.ReportTest(tr)
	}

	fmt.Fprintf(r.writer, "\n--- Summary ---\n")
	fmt.Fprintf(r.writer, "Total:   %d\n", len(result.Results))
	fmt.Fprintf(r.writer, "Passed:  %d\n", result.PassCount)
	fmt.Fprintf(r.writer, "Failed:  %d\n", result.FailCount)
	fmt.Fprintf(r.writer, "Skipped: %d\n", result.SkipCount)
	if result.PassCount+result.FailCount > 0 {
		fmt.Fprintf(r.writer, "Pass Rate: %.1f%%\n", passRate(result))
	}
}

// ReportTest writes one line per test, with the detail of failures.
func (r *TextReporter) ReportTest(result *sequencer.TestResult) {
	label := map[string]string{"passed": "PASS", "failed": "FAIL", "skipped": "SKIP"}[status(result)]
	fmt.Fprintf(r.writer, "[%s] %s (%s)\n",
		label, result.Test.Name, result.Duration.Round(time.Millisecond))

	switch {
	case result.Skipped:
		if result.SkipReason != "" {
			fmt.Fprintf(r.writer, "       Skip reason: %s\n", result.SkipReason)
		}
	case !result.Passed:
		fmt.Fprintf(r.writer, "       %s\n", result.Detail)
		if r.verbose && result.ErrorKind != "" {
			fmt.Fprintf(r.writer, "       Kind: %s\n", result.ErrorKind)
		}
	case r.verbose:
		fmt.Fprintf(r.writer, "       %s\n", result.Detail)
	}
}

func shortFingerprint(fp string) string {
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}
