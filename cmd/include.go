package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/buckets"
	"github.com/etnz/buckets/renderer"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// includeCmd holds the flags for the 'include' subcommand.
type includeCmd struct {
	matrixFlags
	searchFlags
	buckets     int
	cap         int
	instruments string
	json        string
}

func (*includeCmd) Name() string { return "include" }
func (*includeCmd) Synopsis() string {
	return "select the most instruments that fit in a few buckets"
}
func (*includeCmd) Usage() string {
	return `bkt include [-buckets <k>] [-cap <n>] [-instruments <list>] <matrix.csv>

  Places as many instruments as possible into k buckets, allowing at most
  -cap high correlations in each bucket. The instruments that do not fit are
  listed as excluded.
`
}

func (c *includeCmd) SetFlags(f *flag.FlagSet) {
	cfg := currentConfig()
	c.matrixFlags.SetFlags(f)
	c.searchFlags.SetFlags(f)
	f.IntVar(&c.buckets, "buckets", cfg.Inclusion.Buckets, "Number of buckets")
	f.IntVar(&c.cap, "cap", cfg.Inclusion.Cap, "Maximum number of high correlations in a bucket")
	f.StringVar(&c.instruments, "instruments", "", "Comma separated instruments to select from (default: all the instruments of the matrix)")
	f.StringVar(&c.json, "json", "", "Also write the selection as JSON to this path")
}

func (c *includeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if status := checkConfig(); status != subcommands.ExitSuccess {
		return status
	}
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: include requires exactly one matrix file")
		return subcommands.ExitUsageError
	}
	log := newLogger()

	m, err := c.load(log, f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading matrix: %v\n", err)
		return subcommands.ExitFailure
	}

	universe := m.Universe()
	if c.instruments != "" {
		universe = splitList(c.instruments)
	}

	inc, err := buckets.SelectMaxInclusion(ctx, m, universe, buckets.InclusionOptions{
		Buckets:    c.buckets,
		Cap:        c.cap,
		Seed:       c.seed,
		Iterations: c.iterations,
		Restarts:   c.restarts,
		Threshold:  c.threshold,
		Workers:    c.workers,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitStatus(err)
	}
	log.WithFields(logrus.Fields{
		"included": inc.Instruments.Part,
		"excluded": len(inc.Excluded),
	}).Info("inclusion-done")

	if c.json != "" {
		err := buckets.SaveFile(c.json, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(inc)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON selection: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	printMarkdown(renderer.InclusionMarkdown(inc))
	return subcommands.ExitSuccess
}
