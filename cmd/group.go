package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/buckets"
	"github.com/etnz/buckets/renderer"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// groupCmd holds the flags for the 'group' subcommand.
type groupCmd struct {
	matrixFlags
	searchFlags
	buckets          int
	manual           string
	selector         string
	sizes            sizesFlag
	inclusionBuckets int
	cap              int
	top              int
	output           string
	html             bool
	json             string
}

func (*groupCmd) Name() string     { return "group" }
func (*groupCmd) Synopsis() string { return "group instruments into buckets and write the full report" }
func (*groupCmd) Usage() string {
	return `bkt group [-buckets <k>] [-manual <file>] [-merge <sizes>] [-o <report.md>] <matrix.csv>

  Groups the instruments of a correlation matrix into buckets keeping highly
  correlated instruments apart, ranks the super buckets obtained by merging
  buckets, and selects the largest set of instruments that fits in a few
  buckets.

  The markdown report is written beside the matrix file, and a summary is
  printed.
`
}

func (c *groupCmd) SetFlags(f *flag.FlagSet) {
	cfg := currentConfig()
	c.matrixFlags.SetFlags(f)
	c.searchFlags.SetFlags(f)
	f.IntVar(&c.buckets, "buckets", cfg.Search.Buckets, "Number of base buckets to search for")
	f.StringVar(&c.manual, "manual", "", "Assignment file (JSON or YAML) giving the base buckets instead of searching them")
	f.StringVar(&c.selector, "selector", "", "JSONPath of the assignment inside the -manual file, e.g. '$.buckets'")
	c.sizes = append(sizesFlag(nil), cfg.Merge.Sizes...)
	f.Var(&c.sizes, "merge", "Comma separated numbers of buckets merged into a super bucket")
	f.IntVar(&c.inclusionBuckets, "inclusion-buckets", cfg.Inclusion.Buckets, "Number of buckets of the max inclusion selection")
	f.IntVar(&c.cap, "cap", cfg.Inclusion.Cap, "Maximum number of high correlations in a max inclusion bucket")
	f.IntVar(&c.top, "top", cfg.Report.Top, "Super buckets listed per size in the printed summary")
	f.StringVar(&c.output, "o", "", "Path of the markdown report (default: buckets_report_<timestamp>.md beside the matrix)")
	f.BoolVar(&c.html, "html", false, "Also write the report as an HTML page beside the markdown report")
	f.StringVar(&c.json, "json", "", "Also write the full analysis as JSON to this path")
}

func (c *groupCmd) options() buckets.AnalysisOptions {
	return buckets.AnalysisOptions{
		Seed:             c.seed,
		Threshold:        c.threshold,
		Iterations:       c.iterations,
		Restarts:         c.restarts,
		Workers:          c.workers,
		Buckets:          c.buckets,
		MergeSizes:       c.sizes,
		InclusionBuckets: c.inclusionBuckets,
		Cap:              c.cap,
	}
}

func (c *groupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if status := checkConfig(); status != subcommands.ExitSuccess {
		return status
	}
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: group requires exactly one matrix file")
		return subcommands.ExitUsageError
	}
	path := f.Arg(0)
	log := newLogger()

	m, err := c.load(log, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading matrix: %v\n", err)
		return subcommands.ExitFailure
	}

	opts := c.options()
	if c.manual != "" {
		p, err := loadManual(log, m, c.manual, c.selector)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading manual buckets: %v\n", err)
			return subcommands.ExitFailure
		}
		opts.Manual = p
	}

	a, err := buckets.Analyze(ctx, m, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitStatus(err)
	}
	log.WithFields(logrus.Fields{
		"mode":       a.Mode,
		"buckets":    len(a.Buckets),
		"violations": a.Score.Violations,
		"included":   a.Inclusion.Instruments.Part,
	}).Info("analysis-done")

	report := renderer.RenderAnalysis(a)
	output := c.output
	if output == "" {
		output = buckets.ReportPath(path, now())
	}
	if err := saveString(output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		return subcommands.ExitFailure
	}
	log.WithField("path", output).Info("save-report")

	if c.html {
		htmlPath := strings.TrimSuffix(output, filepath.Ext(output)) + ".html"
		page, err := renderer.HTML("Correlation Buckets: "+filepath.Base(path), report)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering HTML report: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := saveString(htmlPath, page); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing HTML report: %v\n", err)
			return subcommands.ExitFailure
		}
		log.WithField("path", htmlPath).Info("save-html")
	}

	if c.json != "" {
		err := buckets.SaveFile(c.json, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(a)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON analysis: %v\n", err)
			return subcommands.ExitFailure
		}
		log.WithField("path", c.json).Info("save-json")
	}

	printMarkdown(renderer.SummaryMarkdown(a, c.top))
	fmt.Printf("Report saved to %s\n", output)
	return subcommands.ExitSuccess
}

// loadManual reads an assignment file and checks it against the universe of m.
func loadManual(log *logrus.Logger, m *buckets.Matrix, path, selector string) (*buckets.Partition, error) {
	a, err := buckets.LoadAssignment(path, selector)
	if err != nil {
		return nil, err
	}
	p, err := buckets.ParseAssignment(m.Universe(), a)
	if err != nil {
		return nil, fmt.Errorf("assignment file %q: %w", path, err)
	}
	log.WithFields(logrus.Fields{"path": path, "buckets": p.Len()}).Info("load-assignment")
	return p, nil
}

func saveString(path, content string) error {
	return buckets.SaveFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, content)
		return err
	})
}
