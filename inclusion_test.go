package buckets

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectMaxInclusion_Cap(t *testing.T) {
	m := fxMatrix(t)
	for _, limit := range []int{0, 1, 2} {
		opts := fastInclusion()
		opts.Cap = limit
		inc, err := SelectMaxInclusion(context.Background(), m, m.Universe(), opts)
		require.NoError(t, err)
		require.Len(t, inc.Buckets, opts.Buckets)

		seen := make(map[string]bool)
		var total Score
		for i, b := range inc.Buckets {
			s, err := m.Score(b, DefaultThreshold)
			require.NoError(t, err)
			assert.LessOrEqual(t, s.Violations, limit, "bucket %d is over the cap", i+1)
			assert.Equal(t, s, inc.Scores[i])
			total.Violations += s.Violations
			for _, x := range b {
				assert.False(t, seen[x], "%s is placed twice", x)
				seen[x] = true
			}
		}
		for _, x := range inc.Excluded {
			assert.False(t, seen[x], "%s is placed and excluded", x)
			seen[x] = true
		}
		assert.Len(t, seen, m.Len(), "every instrument is either placed or excluded")
		assert.Equal(t, total.Violations, inc.Score.Violations)
		assert.Equal(t, Ratio{Part: m.Len() - len(inc.Excluded), Whole: m.Len()}, inc.Instruments)
	}
}

func TestSelectMaxInclusion_FullInclusion(t *testing.T) {
	// One pair at 100, everything else close to zero.
	m := mustMatrix(t, []string{"EURUSD", "GBPUSD", "USDJPY", "AUDNZD"}, [][]float64{
		{100, 100, 2, -3},
		{100, 100, 1, 4},
		{2, 1, 100, -2},
		{-3, 4, -2, 100},
	})
	inc, err := SelectMaxInclusion(context.Background(), m, m.Universe(), fastInclusion())
	require.NoError(t, err)
	assert.Empty(t, inc.Excluded)
	assert.Equal(t, Ratio{Part: 4, Whole: 4}, inc.Instruments)
	for i, s := range inc.Scores {
		assert.LessOrEqual(t, s.Violations, 1, "bucket %d", i+1)
	}
}

func TestSelectMaxInclusion_Excludes(t *testing.T) {
	// Five instruments all correlated: with 2 buckets and no violation allowed
	// only 2 can be placed.
	m := blockMatrix(t, [][]string{{"A", "B", "C", "D", "E"}}, 95, 0)
	opts := fastInclusion()
	opts.Buckets, opts.Cap = 2, 0
	inc, err := SelectMaxInclusion(context.Background(), m, m.Universe(), opts)
	require.NoError(t, err, "infeasibility is not an error")
	assert.Equal(t, Ratio{Part: 2, Whole: 5}, inc.Instruments)
	assert.Len(t, inc.Excluded, 3)
	assert.Equal(t, Score{}, inc.Score)
}

func TestSelectMaxInclusion_Reproducible(t *testing.T) {
	m := fxMatrix(t)
	opts := DefaultInclusionOptions()
	first, err := SelectMaxInclusion(context.Background(), m, m.Universe(), opts)
	require.NoError(t, err)

	opts.Workers = 4
	second, err := SelectMaxInclusion(context.Background(), m, m.Universe(), opts)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("SelectMaxInclusion() is not reproducible (-first +second):\n%s", diff)
	}
}

func TestSelectMaxInclusion_Monotonic(t *testing.T) {
	m := fxMatrix(t)
	opts := fastInclusion()
	type state struct {
		included int
		score    Score
	}
	last := make(map[int]state)
	opts.Observer = func(attempt, iteration, included int, s Score) {
		if prev, ok := last[attempt]; ok {
			worse := included < prev.included || (included == prev.included && prev.score.Less(s))
			if worse {
				t.Errorf("attempt %d iteration %d: went from %+v to %d %v", attempt, iteration, prev, included, s)
			}
		}
		last[attempt] = state{included, s}
	}
	_, err := SelectMaxInclusion(context.Background(), m, m.Universe(), opts)
	require.NoError(t, err)
}

// bruteInclusion returns the maximum number of included instruments and of
// pairs sharing a bucket over every configuration respecting the cap.
func bruteInclusion(m *Matrix, k, limit int, threshold float64) (included, pairs int) {
	n := m.Len()
	sc := newScorer(m, threshold)
	assign := make([]int, n)
	var walk func(x int)
	walk = func(x int) {
		if x == n {
			inc, prs := 0, 0
			for b := 0; b < k; b++ {
				mem := members(assign, b)
				if sc.group(mem).count > limit {
					return
				}
				inc += len(mem)
				prs += len(mem) * (len(mem) - 1) / 2
			}
			included, pairs = max(included, inc), max(pairs, prs)
			return
		}
		for b := -1; b < k; b++ {
			assign[x] = b
			walk(x + 1)
		}
	}
	walk(0)
	return included, pairs
}

func TestSelectMaxInclusion_BruteForce(t *testing.T) {
	m := fxMatrix(t)
	universe := m.Universe()
	for start := 0; start+7 <= len(universe); start += 7 {
		subset := universe[start : start+7]
		t.Run(subset[0], func(t *testing.T) {
			sub, err := m.Sub(subset)
			require.NoError(t, err)
			opts := fastInclusion()
			maxIncluded, maxPairs := bruteInclusion(sub, opts.Buckets, opts.Cap, opts.Threshold)

			inc, err := SelectMaxInclusion(context.Background(), m, subset, opts)
			require.NoError(t, err)
			assert.LessOrEqual(t, inc.Pairs.Part, maxPairs)
			assert.LessOrEqual(t, inc.Instruments.Part, maxIncluded)
			assert.Equal(t, 21, inc.Pairs.Whole)
		})
	}
}

func TestSelectMaxInclusion_Empty(t *testing.T) {
	inc, err := SelectMaxInclusion(context.Background(), fxMatrix(t), nil, fastInclusion())
	require.NoError(t, err)
	assert.Equal(t, []Bucket{{}, {}, {}}, inc.Buckets)
	assert.Empty(t, inc.Excluded)
	assert.Equal(t, Ratio{}, inc.Instruments)
	assert.Equal(t, "0 / 0 (0.00%)", inc.Pairs.String())
}

func TestSelectMaxInclusion_Errors(t *testing.T) {
	m := fxMatrix(t)
	tests := []struct {
		name     string
		universe []string
		modify   func(*InclusionOptions)
		wantErr  error
	}{
		{"no bucket", m.Universe(), func(o *InclusionOptions) { o.Buckets = 0 }, ErrConfig},
		{"negative cap", m.Universe(), func(o *InclusionOptions) { o.Cap = -1 }, ErrConfig},
		{"negative iterations", m.Universe(), func(o *InclusionOptions) { o.Iterations = -1 }, ErrConfig},
		{"no restart", m.Universe(), func(o *InclusionOptions) { o.Restarts = 0 }, ErrConfig},
		{"unknown instrument", []string{"EURGBP", "XAUUSD"}, func(*InclusionOptions) {}, ErrValidation},
		{"duplicate instrument", []string{"EURGBP", "EURGBP"}, func(*InclusionOptions) {}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := fastInclusion()
			tt.modify(&opts)
			_, err := SelectMaxInclusion(context.Background(), m, tt.universe, opts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SelectMaxInclusion() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
