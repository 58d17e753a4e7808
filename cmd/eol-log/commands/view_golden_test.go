package commands

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/eol-bench/eol-go/pkg/caplog"
)

// Regenerate with: go test ./cmd/eol-log/commands -update
func TestViewGolden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))

	for _, name := range []string{"bench.clog", "bench.clog" + caplog.CompressedSuffix} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, RunView(writeCaptureNamed(t, name), caplog.Filter{}, &buf))
			g.Assert(t, "view", buf.Bytes())
		})
	}
}
