// Package sequencer runs a list of test descriptors through the actuation
// engine and aggregates the results.
package sequencer

import (
	"context"
	"time"

	"github.com/eol-bench/eol-go/internal/actuation"
)

// Runner executes one test. *actuation.Engine implements it.
type Runner interface {
	Run(ctx context.Context, d *actuation.Descriptor) (actuation.Result, error)
}

// TestResult represents the outcome of a single test.
type TestResult struct {
	// Test is the descriptor that was executed.
	Test *actuation.Descriptor

	// Passed indicates the test passed.
	Passed bool

	// Detail is the engine's outcome message.
	Detail string

	// Error is the tagged failure cause, if any.
	Error error

	// ErrorKind names the failure kind ("transport", "timeout", ...).
	ErrorKind string

	// Duration is how long the test took.
	Duration time.Duration

	// StartTime when the test started.
	StartTime time.Time

	// EndTime when the test finished.
	EndTime time.Time

	// Skipped indicates the test was not run.
	Skipped bool

	// SkipReason explains why the test was skipped.
	SkipReason string
}

// SuiteResult represents the outcome of running a profile.
type SuiteResult struct {
	// SuiteName identifies the suite, usually the profile name.
	SuiteName string

	// RunID is a unique identifier for this station run.
	RunID string

	// SchemaFingerprint identifies the message schema in use.
	SchemaFingerprint string

	// Results contains results for each test.
	Results []*TestResult

	PassCount int
	FailCount int
	SkipCount int

	// StartTime when the suite started.
	StartTime time.Time

	// Duration is the total time for all tests.
	Duration time.Duration
}

// Passed reports whether no test failed.
func (r *SuiteResult) Passed() bool {
	return r.FailCount == 0
}

// Config configures a Sequencer.
type Config struct {
	// SuiteName is reported in the SuiteResult.
	SuiteName string

	// RunID tags the run. A random UUID is used when empty.
	RunID string

	// SchemaFingerprint is copied into the SuiteResult.
	SchemaFingerprint string

	// TestTimeout bounds each test.
	TestTimeout time.Duration

	// StopOnFirstFailure stops execution after the first test failure.
	StopOnFirstFailure bool

	// OnTestComplete is called after each test, including skipped ones.
	OnTestComplete func(*TestResult)
}

// DefaultConfig returns the default sequencer configuration.
func DefaultConfig() *Config {
	return &Config{
		SuiteName:   "EOL Suite",
		TestTimeout: 30 * time.Second,
	}
}
