package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/etnz/buckets"
	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// families is a grid matrix of two families of three correlated pairs.
const families = `,EURUSD,GBPUSD,AUDUSD,USDJPY,USDCHF,USDCAD
EURUSD,100,80,80,-20,-20,-20
GBPUSD,80,100,80,-20,-20,-20
AUDUSD,80,80,100,-20,-20,-20
USDJPY,-20,-20,-20,100,80,80
USDCHF,-20,-20,-20,80,100,80
USDCAD,-20,-20,-20,80,80,100
`

// writeFile writes content in a new temporary directory and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// run executes a subcommand the way the commander does.
func run(t *testing.T, c subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	c.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return c.Execute(context.Background(), f)
}

// fast reduces the search effort.
var fast = []string{"-iterations", "200", "-restarts", "5"}

func TestGroup(t *testing.T) {
	matrix := writeFile(t, "matrix.csv", families)
	dir := t.TempDir()
	report := filepath.Join(dir, "report.md")
	analysis := filepath.Join(dir, "analysis.json")

	args := append(append([]string{}, fast...), "-buckets", "3", "-o", report, "-html", "-json", analysis, matrix)
	require.Equal(t, subcommands.ExitSuccess, run(t, &groupCmd{}, args...))

	content, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "# Correlation Buckets"))
	assert.Contains(t, string(content), "## Max Inclusion 3-Bucket Configuration")

	page, err := os.ReadFile(filepath.Join(dir, "report.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Correlation Buckets: matrix.csv</title>")

	var a struct {
		Mode    string `json:"mode"`
		Seed    int64  `json:"seed"`
		Buckets []struct {
			Instruments []string `json:"instruments"`
		} `json:"buckets"`
	}
	data, err := os.ReadFile(analysis)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &a))
	assert.Equal(t, "search", a.Mode)
	assert.Equal(t, int64(42), a.Seed)
	assert.Len(t, a.Buckets, 3)
}

func TestGroup_DefaultReportPath(t *testing.T) {
	t.Setenv("BKT_TESTING_NOW", "2025-03-14 09:26:53")
	matrix := writeFile(t, "matrix.csv", families)

	args := append(append([]string{}, fast...), "-buckets", "2", matrix)
	require.Equal(t, subcommands.ExitSuccess, run(t, &groupCmd{}, args...))
	assert.FileExists(t, filepath.Join(filepath.Dir(matrix), "buckets_report_20250314_092653.md"))
}

func TestGroup_Manual(t *testing.T) {
	matrix := writeFile(t, "matrix.csv", families)
	manual := writeFile(t, "manual.yaml", "- [EURUSD, USDJPY]\n- [GBPUSD, USDCHF]\n- [AUDUSD, USDCAD]\n")
	report := filepath.Join(t.TempDir(), "report.md")

	args := append(append([]string{}, fast...), "-manual", manual, "-o", report, matrix)
	require.Equal(t, subcommands.ExitSuccess, run(t, &groupCmd{}, args...))
	content, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Manual Buckets (Provided by User)")
}

func TestGroup_Errors(t *testing.T) {
	matrix := writeFile(t, "matrix.csv", families)
	tests := []struct {
		name string
		args []string
		want subcommands.ExitStatus
	}{
		{"no matrix", nil, subcommands.ExitUsageError},
		{"missing matrix", []string{"missing.csv"}, subcommands.ExitFailure},
		{"too many buckets", []string{"-buckets", "7", matrix}, subcommands.ExitUsageError},
		{"bad threshold", []string{"-threshold", "0", matrix}, subcommands.ExitUsageError},
		{"bad format", []string{"-format", "xml", matrix}, subcommands.ExitFailure},
		{"missing manual", []string{"-manual", "missing.json", matrix}, subcommands.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, &groupCmd{}, tt.args...))
		})
	}
}

func TestPartition(t *testing.T) {
	matrix := writeFile(t, "matrix.csv", families)
	output := filepath.Join(t.TempDir(), "assignment.json")

	args := append(append([]string{}, fast...), "-buckets", "3", "-o", output, matrix)
	require.Equal(t, subcommands.ExitSuccess, run(t, &partitionCmd{}, args...))

	a, err := buckets.LoadAssignment(output, "")
	require.NoError(t, err)
	m, err := buckets.LoadMatrix(matrix, buckets.MatrixAuto, buckets.PairListOptions{})
	require.NoError(t, err)
	p, err := buckets.ParseAssignment(m.Universe(), a)
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())

	// three buckets of two can keep every family apart.
	s, err := p.Evaluate(m, buckets.DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, buckets.Score{}, s)
}

func TestMerge(t *testing.T) {
	matrix := writeFile(t, "matrix.csv", families)
	manual := writeFile(t, "manual.json", `{"buckets":[["EURUSD","USDJPY"],["GBPUSD","USDCHF"],["AUDUSD","USDCAD"]]}`)

	assert.Equal(t, subcommands.ExitSuccess, run(t, &mergeCmd{}, "-manual", manual, "-selector", "$.buckets", "-merge", "2,3", matrix))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &mergeCmd{}, "-manual", manual, "-selector", "$.buckets", "-merge", "4", matrix))
}

func TestInclude(t *testing.T) {
	matrix := writeFile(t, "matrix.csv", families)
	output := filepath.Join(t.TempDir(), "inclusion.json")

	args := append(append([]string{}, fast...), "-buckets", "2", "-cap", "0", "-json", output, matrix)
	require.Equal(t, subcommands.ExitSuccess, run(t, &includeCmd{}, args...))

	var inc struct {
		Excluded    []string `json:"excluded"`
		Instruments struct {
			Part  int `json:"part"`
			Whole int `json:"whole"`
		} `json:"instruments"`
	}
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &inc))
	// each bucket holds at most one instrument of each family.
	assert.Equal(t, 4, inc.Instruments.Part)
	assert.Equal(t, 6, inc.Instruments.Whole)
	assert.Len(t, inc.Excluded, 2)

	assert.Equal(t, subcommands.ExitFailure, run(t, &includeCmd{}, "-instruments", "EURUSD,XAUUSD", matrix))
}

func TestCorrelate(t *testing.T) {
	var b strings.Builder
	b.WriteString("date,EURUSD,GBPUSD,USDJPY\n")
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		eur := 1.1 + 0.01*float64(i%3)
		fmt.Fprintf(&b, "%s,%v,%v,%v\n", day.AddDate(0, 0, i).Format(time.DateOnly), eur, 2*eur, 150-float64(i*i%7))
	}
	prices := writeFile(t, "prices.csv", b.String())
	output := filepath.Join(t.TempDir(), "matrix.csv")

	require.Equal(t, subcommands.ExitSuccess, run(t, &correlateCmd{}, "-o", output, prices))
	m, err := buckets.LoadMatrix(output, buckets.MatrixGrid, buckets.PairListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"EURUSD", "GBPUSD", "USDJPY"}, m.Universe())
	v, ok := m.Get("EURUSD", "GBPUSD")
	require.True(t, ok)
	assert.InDelta(t, 100, v, 0.01, "GBPUSD moves exactly like EURUSD")

	assert.Equal(t, subcommands.ExitFailure, run(t, &correlateCmd{}, "missing.csv"))
}

func TestTopic(t *testing.T) {
	assert.Equal(t, subcommands.ExitSuccess, run(t, &topicCmd{}))
	assert.Equal(t, subcommands.ExitSuccess, run(t, &topicCmd{}, "*"))
	assert.Equal(t, subcommands.ExitFailure, run(t, &topicCmd{}, "unknown"))
}

func TestSizesFlag(t *testing.T) {
	var s sizesFlag
	require.NoError(t, s.Set("2, 3,,4"))
	assert.Equal(t, sizesFlag{2, 3, 4}, s)
	assert.Equal(t, "2,3,4", s.String())
	assert.Error(t, s.Set("2,x"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"EURUSD", "GBPUSD"}, splitList(" EURUSD, ,GBPUSD,"))
	assert.Empty(t, splitList(""))
}

func TestExitStatus(t *testing.T) {
	assert.Equal(t, subcommands.ExitSuccess, exitStatus(nil))
	assert.Equal(t, subcommands.ExitUsageError, exitStatus(fmt.Errorf("wrapped: %w", buckets.ErrConfig)))
	assert.Equal(t, subcommands.ExitFailure, exitStatus(buckets.ErrData))
	assert.Equal(t, subcommands.ExitFailure, exitStatus(errors.New("disk full")))
}

func TestNow(t *testing.T) {
	t.Setenv("BKT_TESTING_NOW", "2006-01-02 15:04:05")
	assert.Equal(t, time.Date(2006, 1, 2, 15, 4, 5, 0, time.Local), now())
}
