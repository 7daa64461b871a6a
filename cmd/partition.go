package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/buckets"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// partitionCmd holds the flags for the 'partition' subcommand.
type partitionCmd struct {
	matrixFlags
	searchFlags
	buckets int
	output  string
}

func (*partitionCmd) Name() string { return "partition" }
func (*partitionCmd) Synopsis() string {
	return "search the base buckets and print them as an assignment"
}
func (*partitionCmd) Usage() string {
	return `bkt partition [-buckets <k>] [-seed <n>] [-o <file>] <matrix.csv>

  Searches the partition of the instruments into k buckets with the fewest
  high correlations inside a bucket, and prints it as a JSON assignment
  (instrument -> bucket number) that 'group -manual' and 'merge -manual' read.
`
}

func (c *partitionCmd) SetFlags(f *flag.FlagSet) {
	c.matrixFlags.SetFlags(f)
	c.searchFlags.SetFlags(f)
	f.IntVar(&c.buckets, "buckets", currentConfig().Search.Buckets, "Number of buckets to search for")
	f.StringVar(&c.output, "o", "", "Write the assignment to this file instead of the standard output")
}

func (c *partitionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if status := checkConfig(); status != subcommands.ExitSuccess {
		return status
	}
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: partition requires exactly one matrix file")
		return subcommands.ExitUsageError
	}
	log := newLogger()

	m, err := c.load(log, f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading matrix: %v\n", err)
		return subcommands.ExitFailure
	}

	p, err := buckets.Search(ctx, m, buckets.SearchOptions{
		Buckets:    c.buckets,
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
	score, _ := p.Score()
	log.WithFields(logrus.Fields{
		"buckets":    p.Len(),
		"restarts":   c.restarts,
		"violations": score.Violations,
		"magnitude":  score.Magnitude,
	}).Info("search-done")

	write := func(w io.Writer) error { return buckets.EncodeAssignment(w, p, m.Universe()) }
	if c.output == "" {
		err = write(os.Stdout)
	} else {
		err = buckets.SaveFile(c.output, write)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing assignment: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
