package reporter

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/eol-bench/eol-go/internal/sequencer"
)

// JUnitReporter outputs JUnit XML for CI dashboards.
type JUnitReporter struct {
	writer io.Writer
}

// NewJUnitReporter creates a JUnit reporter.
func NewJUnitReporter(w io.Writer) *JUnitReporter {
	return &JUnitReporter{writer: w}
}

type junitSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       string          `xml:"time,attr"`
	Properties []junitProperty `xml:"properties>property,omitempty"`
	Cases      []junitCase     `xml:"testcase"`
}

type junitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Skipped   *junitMessage `xml:"skipped,omitempty"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitMessage struct {
	Message string `xml:"message,attr"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr,omitempty"`
	Body    string `xml:",cdata"`
}

// ReportSuite writes the run as a single <testsuite>.
func (r *JUnitReporter) ReportSuite(result *sequencer.SuiteResult) {
	suite := junitSuite{
		Name:     result.SuiteName,
		Tests:    len(result.Results),
		Failures: result.FailCount,
		Skipped:  result.SkipCount,
		Time:     fmt.Sprintf("%.3f", result.Duration.Seconds()),
	}
	if result.RunID != "" {
		suite.Properties = append(suite.Properties, junitProperty{Name: "run_id", Value: result.RunID})
	}
	if result.SchemaFingerprint != "" {
		suite.Properties = append(suite.Properties, junitProperty{Name: "schema_fingerprint", Value: result.SchemaFingerprint})
	}

	for _, tr := range result.Results {
		c := junitCase{
			Name:      tr.Test.Name,
			ClassName: result.SuiteName + "." + string(tr.Test.Kind),
			Time:      fmt.Sprintf("%.3f", tr.Duration.Seconds()),
		}
		switch {
		case tr.Skipped:
			c.Skipped = &junitMessage{Message: tr.SkipReason}
		case !tr.Passed:
			f := &junitFailure{Message: tr.Detail, Type: tr.ErrorKind}
			if tr.Error != nil {
				f.Body = tr.Error.Error()
			}
			c.Failure = f
		}
		suite.Cases = append(suite.Cases, c)
	}

	data, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		fmt.Fprintf(r.writer, "<!-- failed to marshal: %s -->\n", err)
		return
	}
	fmt.Fprint(r.writer, xml.Header)
	fmt.Fprintln(r.writer, string(data))
}

// ReportTest writes a single test wrapped in a minimal suite.
func (r *JUnitReporter) ReportTest(result *sequencer.TestResult) {
	suite := &sequencer.SuiteResult{
		SuiteName: "Single Test",
		Results:   []*sequencer.TestResult{result},
		Duration:  result.Duration,
	}
	switch {
	case result.Skipped:
		suite.SkipCount = 1
	case result.Passed:
		suite.PassCount = 1
	default:
		suite.FailCount = 1
	}
	r.ReportSuite(suite)
}
