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

// correlateCmd holds the flags for the 'correlate' subcommand.
type correlateCmd struct {
	output string
}

func (*correlateCmd) Name() string     { return "correlate" }
func (*correlateCmd) Synopsis() string { return "compute a correlation matrix from close prices" }
func (*correlateCmd) Usage() string {
	return `bkt correlate [-o <matrix.csv>] <prices.csv>

  Reads daily close prices (a 'date' column then one column per instrument),
  and writes the correlation matrix of their log returns, in percent, as a
  grid CSV that the other commands read.
`
}

func (c *correlateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Write the matrix to this file instead of the standard output")
}

func (c *correlateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if status := checkConfig(); status != subcommands.ExitSuccess {
		return status
	}
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: correlate requires exactly one price file")
		return subcommands.ExitUsageError
	}
	log := newLogger()

	prices, err := buckets.LoadPrices(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading prices: %v\n", err)
		return subcommands.ExitFailure
	}
	log.WithFields(logrus.Fields{"instruments": len(prices.Symbols), "dates": len(prices.Dates)}).Info("load-prices")

	m, err := buckets.Correlate(prices)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	write := func(w io.Writer) error { return buckets.EncodeMatrix(w, m) }
	if c.output == "" {
		err = write(os.Stdout)
	} else {
		err = buckets.SaveFile(c.output, write)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing matrix: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
