package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/eol-bench/eol-go/internal/sequencer"
)

// JSONReporter outputs JSON-formatted reports.
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a JSON reporter.
func NewJSONReporter(w io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{writer: w, pretty: pretty}
}

// JSONSuiteResult is the JSON representation of suite results.
type JSONSuiteResult struct {
	SuiteName string           `json:"suite_name"`
	RunID     string           `json:"run_id"`
	Schema    string           `json:"schema_fingerprint,omitempty"`
	StartTime time.Time        `json:"start_time"`
	Duration  string           `json:"duration"`
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	PassRate  float64          `json:"pass_rate"`
	Tests     []JSONTestResult `json:"tests"`
}

// JSONTestResult is the JSON representation of a test result.
type JSONTestResult struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Duration   string `json:"duration"`
	Detail     string `json:"detail,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// ReportSuite writes the whole run as one JSON document.
func (r *JSONReporter) ReportSuite(result *sequencer.SuiteResult) {
	jr := JSONSuiteResult{
		SuiteName: result.SuiteName,
		RunID:     result.RunID,
		Schema:    result.SchemaFingerprint,
		StartTime: result.StartTime,
		Duration:  result.Duration.Round(time.Millisecond).String(),
		Total:     len(result.Results),
		Passed:    result.PassCount,
		Failed:    result.FailCount,
		Skipped:   result.SkipCount,
		PassRate:  passRate(result),
		Tests:     make([]JSONTestResult, 0, len(result.Results)),
	}
	for _, tr := range result.Results {
		jr.Tests = append(jr.Tests, testToJSON(tr))
	}
	r.write(jr)
}

// ReportTest writes one test as a JSON document.
func (r *JSONReporter) ReportTest(result *sequencer.TestResult) {
	r.write(testToJSON(result))
}

func testToJSON(tr *sequencer.TestResult) JSONTestResult {
	jr := JSONTestResult{
		Name:       tr.Test.Name,
		Kind:       string(tr.Test.Kind),
		Status:     status(tr),
		Duration:   tr.Duration.Round(time.Millisecond).String(),
		Detail:     tr.Detail,
		ErrorKind:  tr.ErrorKind,
		SkipReason: tr.SkipReason,
	}
	if tr.Error != nil {
		jr.Error = tr.Error.Error()
	}
	return jr
}

func (r *JSONReporter) write(v any) {
	var data []byte
	var err error
	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		fmt.Fprintf(r.writer, `{"error": "failed to marshal: %s"}`+"\n", err)
		return
	}
	fmt.Fprintln(r.writer, string(data))
}
