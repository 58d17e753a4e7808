package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/eol-bench/eol-go/internal/history"
)

// RunHistory prints recent runs from the database at dbPath, or the recent
// executions of one test when test is set.
func RunHistory(ctx context.Context, dbPath, test string, limit int, w io.Writer) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if test != "" {
		entries, err := store.TestHistory(ctx, test, limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintf(w, "No runs of %s\n", test)
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%s [run:%s] %-7s %8s",
				e.StartTime.Format(timeLayout), shortenRunID(e.RunID), e.Outcome, e.Duration.Round(time.Millisecond))
			if e.ErrorKind != "" {
				fmt.Fprintf(w, "  %s", e.ErrorKind)
			}
			if e.Detail != "" {
				fmt.Fprintf(w, "  %s", e.Detail)
			}
			fmt.Fprintln(w)
		}
		return nil
	}

	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s [run:%s] %-20s pass %d  fail %d  skip %d  (%s)\n",
			r.StartTime.Format(timeLayout), shortenRunID(r.RunID), r.Suite,
			r.Passed, r.Failed, r.Skipped, r.Duration.Round(time.Millisecond))
	}
	return nil
}
