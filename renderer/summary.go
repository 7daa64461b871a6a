package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/buckets"
	md "github.com/nao1215/markdown"
)

// SummaryMarkdown renders a short overview of an analysis, meant for the
// terminal: one line per bucket, the best super buckets and the max
// inclusion. top limits the number of super buckets listed per size.
func SummaryMarkdown(a *buckets.Analysis, top int) string {
	var b strings.Builder
	doc := md.NewMarkdown(&b)
	doc.H1("Correlation Buckets")
	doc.PlainText(fmt.Sprintf("%s, seed %d, threshold %s: %s", a.Mode, a.Seed, Number(a.Threshold), ScoreString(a.Score)))

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight},
		Header:    []string{"Bucket", "Instruments", "High Correlations"},
	}
	for i, v := range a.Buckets {
		table.Rows = append(table.Rows, []string{
			fmt.Sprint(i + 1),
			strings.Join(v.Instruments, ", "),
			ScoreString(v.Score),
		})
	}
	doc.Table(table)
	doc.Build()

	for _, g := range a.Mergers {
		optionalSection(&b, func(w io.Writer) bool {
			doc := md.NewMarkdown(w)
			doc.H2(fmt.Sprintf("Best Super Buckets of %d", g.Size))
			table := md.TableSet{
				Alignment: []md.TableAlignment{md.AlignRight, md.AlignLeft, md.AlignRight},
				Header:    []string{"Rank", "Combination", "High Correlations"},
			}
			for _, mv := range g.Mergers {
				if mv.Rank > top {
					break
				}
				table.Rows = append(table.Rows, []string{fmt.Sprint(mv.Rank), combination(mv.Buckets), ScoreString(mv.Score)})
			}
			doc.Table(table)
			return len(table.Rows) > 0 && doc.Build() == nil
		})
	}

	if a.Inclusion != nil {
		writeInclusion(&b, a.Inclusion)
	}
	return b.String()
}

// InclusionMarkdown renders a max inclusion selection.
func InclusionMarkdown(inc *buckets.Inclusion) string {
	var b strings.Builder
	writeInclusion(&b, inc)
	return b.String()
}

func writeInclusion(w io.Writer, inc *buckets.Inclusion) {
	doc := md.NewMarkdown(w)
	doc.H2("Max Inclusion")
	doc.PlainText(fmt.Sprintf("%s instruments included, %s pairs sharing a bucket, at most %d high correlation per bucket.",
		md.Bold(inc.Instruments.String()), inc.Pairs.String(), inc.Cap))
	var lines []string
	for i, bucket := range inc.Buckets {
		lines = append(lines, fmt.Sprintf("%d: %s (%s)", i+1, strings.Join(bucket, ", "), ScoreString(inc.Scores[i])))
	}
	if len(inc.Excluded) > 0 {
		lines = append(lines, "excluded: "+strings.Join(inc.Excluded, ", "))
	}
	doc.BulletList(lines...)
	doc.Build()
}

// MergersMarkdown renders the ranking of the super buckets of one size, top
// limits the number of super buckets listed.
func MergersMarkdown(size int, mergers []buckets.Merger, top int) string {
	var b strings.Builder
	doc := md.NewMarkdown(&b)
	doc.H2(fmt.Sprintf("Super Buckets of %d", size))
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignRight, md.AlignLeft, md.AlignRight, md.AlignLeft},
		Header:    []string{"Rank", "Combination", "High Correlations", "Pairs"},
	}
	for i, mg := range mergers {
		if i >= top {
			break
		}
		pairs := make([]string, len(mg.Pairs))
		for j, p := range mg.Pairs {
			pairs[j] = fmt.Sprintf("%s / %s: %s", p.A, p.B, Number(p.Value))
		}
		table.Rows = append(table.Rows, []string{fmt.Sprint(i + 1), combination(mg.Buckets), ScoreString(mg.Score), strings.Join(pairs, ", ")})
	}
	doc.Table(table)
	doc.Build()
	return b.String()
}
