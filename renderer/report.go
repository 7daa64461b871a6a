package renderer

import (
	"fmt"
	"math"
	"strings"

	"github.com/etnz/buckets"
	"github.com/shopspring/decimal"
)

// NewReport prepares the printable view of an analysis.
func NewReport(a *buckets.Analysis) *Report {
	r := &Report{
		Seed:        a.Seed,
		Threshold:   Number(a.Threshold),
		Instruments: len(a.Universe),
		Score:       ScoreString(a.Score),
	}
	switch a.Mode {
	case buckets.ModeManual:
		r.ModeLabel = "Manual Buckets (Provided by User)"
		r.Intro = fmt.Sprintf("Instruments grouped into %d buckets by the manual assignment.", len(a.Buckets))
	default:
		r.ModeLabel = "Optimization Search (Automated)"
		r.Intro = fmt.Sprintf("Instruments grouped into %d buckets to minimize the high correlations (abs >= %s) inside each bucket.", len(a.Buckets), r.Threshold)
	}

	for i, v := range a.Buckets {
		r.Buckets = append(r.Buckets, newGroup(fmt.Sprintf("Bucket %d", i+1), v, a.Threshold))
	}

	for _, g := range a.Mergers {
		ms := MergerSize{Size: g.Size}
		for _, mv := range g.Mergers {
			combo := combination(mv.Buckets)
			ms.Summary = append(ms.Summary, MergerLine{
				Rank:       mv.Rank,
				Buckets:    combo,
				Violations: mv.Score.Violations,
				Magnitude:  decimal.NewFromFloat(mv.Score.Magnitude).StringFixed(2),
			})
			ms.Groups = append(ms.Groups, newGroup("Merged Buckets "+combo, mv.BucketView, a.Threshold))
		}
		r.Mergers = append(r.Mergers, ms)
	}

	if inc := a.Inclusion; inc != nil {
		iv := &InclusionView{
			Buckets:     len(inc.Buckets),
			Cap:         inc.Cap,
			Instruments: inc.Instruments.String(),
			Pairs:       inc.Pairs.String(),
			Excluded:    strings.Join(inc.Excluded, ", "),
		}
		for i, v := range a.InclusionBuckets {
			iv.Groups = append(iv.Groups, newGroup(fmt.Sprintf("Inclusion Bucket %d", i+1), v, a.Threshold))
		}
		r.Inclusion = iv
	}
	return r
}

func newGroup(title string, v buckets.BucketView, threshold float64) Group {
	g := Group{
		Title: title,
		Score: "High correlations: " + ScoreString(v.Score),
		Table: CorrelationTable(v.Matrix, threshold),
	}
	for _, p := range v.Pairs {
		g.Pairs = append(g.Pairs, fmt.Sprintf("%s / %s: %s", p.A, p.B, Number(p.Value)))
	}
	return g
}

// CorrelationTable builds the table of a matrix, highlighting the cells at or
// above threshold in absolute value.
func CorrelationTable(m *buckets.Matrix, threshold float64) Table {
	if m == nil {
		return Table{}
	}
	t := Table{Header: m.Universe()}
	for i := 0; i < m.Len(); i++ {
		row := Row{Symbol: m.Symbol(i)}
		for j := 0; j < m.Len(); j++ {
			row.Cells = append(row.Cells, Cell(m.At(i, j), i == j, threshold))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Cell formats a correlation value; self correlations are plain.
func Cell(v float64, self bool, threshold float64) string {
	if self {
		return Number(buckets.MaxCorrelation)
	}
	if math.Abs(v) >= threshold {
		return fmt.Sprintf(`<span style="color:red">**%s**</span>`, Number(v))
	}
	return Number(v)
}

// Number formats a correlation with no useless decimals: 85.5, -40, 100.
func Number(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// ScoreString formats a score as "3 (magnitude 231.50)".
func ScoreString(s buckets.Score) string {
	return fmt.Sprintf("%d (magnitude %s)", s.Violations, decimal.NewFromFloat(s.Magnitude).StringFixed(2))
}

func combination(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, " + ")
}
