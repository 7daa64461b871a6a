package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/buckets"
	"github.com/etnz/buckets/renderer"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// mergeCmd holds the flags for the 'merge' subcommand.
type mergeCmd struct {
	matrixFlags
	searchFlags
	buckets  int
	manual   string
	selector string
	sizes    sizesFlag
	top      int
}

func (*mergeCmd) Name() string     { return "merge" }
func (*mergeCmd) Synopsis() string { return "rank the super buckets obtained by merging buckets" }
func (*mergeCmd) Usage() string {
	return `bkt merge [-manual <file>] [-merge <sizes>] [-top <n>] <matrix.csv>

  Ranks every union of 2, 3... buckets by its high correlations, fewest
  first. The buckets are read from the -manual assignment, or searched like
  'partition' does.
`
}

func (c *mergeCmd) SetFlags(f *flag.FlagSet) {
	cfg := currentConfig()
	c.matrixFlags.SetFlags(f)
	c.searchFlags.SetFlags(f)
	f.IntVar(&c.buckets, "buckets", cfg.Search.Buckets, "Number of buckets to search for, without -manual")
	f.StringVar(&c.manual, "manual", "", "Assignment file (JSON or YAML) giving the buckets")
	f.StringVar(&c.selector, "selector", "", "JSONPath of the assignment inside the -manual file")
	c.sizes = append(sizesFlag(nil), cfg.Merge.Sizes...)
	f.Var(&c.sizes, "merge", "Comma separated numbers of buckets merged into a super bucket")
	f.IntVar(&c.top, "top", 10, "Super buckets listed per size")
}

func (c *mergeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if status := checkConfig(); status != subcommands.ExitSuccess {
		return status
	}
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: merge requires exactly one matrix file")
		return subcommands.ExitUsageError
	}
	log := newLogger()

	m, err := c.load(log, f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading matrix: %v\n", err)
		return subcommands.ExitFailure
	}

	var p *buckets.Partition
	if c.manual != "" {
		p, err = loadManual(log, m, c.manual, c.selector)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading manual buckets: %v\n", err)
			return subcommands.ExitFailure
		}
	} else {
		p, err = buckets.Search(ctx, m, buckets.SearchOptions{
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
	}

	var b strings.Builder
	for i, bucket := range p.Buckets() {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.Join(bucket, ", "))
	}
	b.WriteString("\n")
	for _, size := range c.sizes {
		mergers, err := buckets.MergeCandidates(m, p, size, c.threshold)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitStatus(err)
		}
		log.WithFields(logrus.Fields{"size": size, "candidates": len(mergers)}).Info("merge-ranked")
		b.WriteString(renderer.MergersMarkdown(size, mergers, c.top))
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
