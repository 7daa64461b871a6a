// Package cmd implements the CLI application to group correlated instruments
// into buckets.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/etnz/buckets"
	"github.com/etnz/buckets/config"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&groupCmd{}, "analysis")
	c.Register(&partitionCmd{}, "analysis")
	c.Register(&mergeCmd{}, "analysis")
	c.Register(&includeCmd{}, "analysis")

	c.Register(&correlateCmd{}, "matrix")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configPath = flag.String("config", "", "Path to the configuration file (default: buckets.yaml in the current directory, if any)")

// settings loads the configuration once. Subcommands read it in SetFlags to
// default their flags, errors are reported by Execute.
var settings = sync.OnceValues(func() (*config.Config, error) {
	return config.Load(*configPath)
})

// currentConfig returns the loaded configuration, or the defaults if it
// cannot be loaded.
func currentConfig() *config.Config {
	cfg, err := settings()
	if err != nil {
		return config.Default()
	}
	return cfg
}

// checkConfig reports a configuration that could not be loaded.
func checkConfig() subcommands.ExitStatus {
	if _, err := settings(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}

// newLogger returns the logger of the commands, writing on stderr so that
// stdout only carries results.
func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(currentConfig().Level())
	return log
}

// now returns the current time, or the fixed time in BKT_TESTING_NOW
// (format "2006-01-02 15:04:05") used by the documentation tests.
func now() time.Time {
	if v := os.Getenv("BKT_TESTING_NOW"); v != "" {
		if t, err := time.ParseInLocation(time.DateTime, v, time.Local); err == nil {
			return t
		}
	}
	return time.Now()
}

// matrixFlags are the flags reading a correlation matrix file.
type matrixFlags struct {
	format      string
	pairColumn  int
	fillMissing bool
}

func (c *matrixFlags) SetFlags(f *flag.FlagSet) {
	cfg := currentConfig()
	f.StringVar(&c.format, "format", cfg.Matrix.Format, "Matrix file format: 'grid' or 'pairs'. Detected from the content if empty")
	f.IntVar(&c.pairColumn, "pair-column", cfg.Matrix.PairColumn, "Zero based column of the correlation in a pair list")
	f.BoolVar(&c.fillMissing, "fill-missing", cfg.Matrix.FillMissing, "Read the pairs missing from a pair list as fully correlated instead of failing")
}

// load reads the matrix file at path.
func (c *matrixFlags) load(log *logrus.Logger, path string) (*buckets.Matrix, error) {
	format, err := buckets.ParseMatrixFormat(c.format)
	if err != nil {
		return nil, err
	}
	opts := buckets.PairListOptions{Column: c.pairColumn, FillMissing: c.fillMissing}
	if c.fillMissing {
		opts.OnMissing = func(a, b string) {
			log.WithFields(logrus.Fields{"a": a, "b": b}).Warn("missing-pair")
		}
	}
	m, err := buckets.LoadMatrix(path, format, opts)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"path": path, "instruments": m.Len()}).Info("load-matrix")
	return m, nil
}

// searchFlags are the flags shared by the randomized searches.
type searchFlags struct {
	seed       int64
	threshold  float64
	iterations int
	restarts   int
	workers    int
}

func (c *searchFlags) SetFlags(f *flag.FlagSet) {
	cfg := currentConfig()
	f.Int64Var(&c.seed, "seed", cfg.Search.Seed, "Seed of the search, the same seed always gives the same buckets")
	f.Float64Var(&c.threshold, "threshold", cfg.Threshold, "Absolute correlation at or above which two instruments are highly correlated")
	f.IntVar(&c.iterations, "iterations", cfg.Search.Iterations, "Moves proposed by each restart")
	f.IntVar(&c.restarts, "restarts", cfg.Search.Restarts, "Independent restarts of the search")
	f.IntVar(&c.workers, "workers", cfg.Search.Workers, "Restarts running at the same time, it does not change the result")
}

// sizesFlag is a comma separated list of super bucket sizes, e.g. "2,3".
type sizesFlag []int

func (s *sizesFlag) String() string {
	if s == nil {
		return ""
	}
	parts := make([]string, len(*s))
	for i, n := range *s {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func (s *sizesFlag) Set(v string) error {
	var sizes []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("invalid size %q: %w", part, err)
		}
		sizes = append(sizes, n)
	}
	*s = sizes
	return nil
}

// splitList splits a comma separated list of instruments.
func splitList(v string) []string {
	var list []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	return list
}

// exitStatus maps an error of the library to the exit status of a command.
func exitStatus(err error) subcommands.ExitStatus {
	switch {
	case err == nil:
		return subcommands.ExitSuccess
	case errors.Is(err, buckets.ErrConfig):
		return subcommands.ExitUsageError
	default:
		return subcommands.ExitFailure
	}
}
