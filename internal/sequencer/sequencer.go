package sequencer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eol-bench/eol-go/internal/actuation"
)

// Sequencer runs descriptors one at a time.
type Sequencer struct {
	runner Runner
	config *Config
}

// New creates a sequencer. A nil config uses DefaultConfig.
func New(runner Runner, config *Config) *Sequencer {
	if config == nil {
		config = DefaultConfig()
	}
	if config.RunID == "" {
		config.RunID = uuid.NewString()
	}
	return &Sequencer{runner: runner, config: config}
}

// RunID returns the identifier of this run.
func (s *Sequencer) RunID() string {
	return s.config.RunID
}

// RunSuite executes the tests in order. It returns an error only when the
// runner refuses to run at all (adapter closed, engine busy); the result
// then holds the tests completed so far.
func (s *Sequencer) RunSuite(ctx context.Context, tests []*actuation.Descriptor) (*SuiteResult, error) {
	result := &SuiteResult{
		SuiteName:         s.config.SuiteName,
		RunID:             s.config.RunID,
		SchemaFingerprint: s.config.SchemaFingerprint,
		StartTime:         time.Now(),
	}
	defer func() { result.Duration = time.Since(result.StartTime) }()

	for _, d := range tests {
		select {
		case <-ctx.Done():
			return result, nil
		default:
		}

		tr, err := s.run(ctx, d)
		if err != nil {
			return result, fmt.Errorf("test %q: %w", d.Name, err)
		}
		result.Results = append(result.Results, tr)

		switch {
		case tr.Skipped:
			result.SkipCount++
		case tr.Passed:
			result.PassCount++
		default:
			result.FailCount++
		}

		if s.config.OnTestComplete != nil {
			s.config.OnTestComplete(tr)
		}

		if !tr.Passed && !tr.Skipped && s.config.StopOnFirstFailure {
			break
		}
	}

	return result, nil
}

func (s *Sequencer) run(ctx context.Context, d *actuation.Descriptor) (*TestResult, error) {
	tr := &TestResult{
		Test:      d,
		StartTime: time.Now(),
	}
	defer func() {
		tr.EndTime = time.Now()
		tr.Duration = tr.EndTime.Sub(tr.StartTime)
	}()

	if d.Skip {
		tr.Skipped = true
		tr.SkipReason = d.SkipReason
		if tr.SkipReason == "" {
			tr.SkipReason = "skipped by test definition"
		}
		return tr, nil
	}

	testCtx := ctx
	if s.config.TestTimeout > 0 {
		var cancel context.CancelFunc
		testCtx, cancel = context.WithTimeout(ctx, s.config.TestTimeout)
		defer cancel()
	}

	res, err := s.runner.Run(testCtx, d)
	if err != nil {
		return nil, err
	}

	tr.Passed = res.Passed
	tr.Detail = res.Detail
	tr.Error = res.Err
	if kind, ok := actuation.KindOf(res.Err); ok {
		tr.ErrorKind = kind.String()
	}
	return tr, nil
}
