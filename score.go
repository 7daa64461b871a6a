package buckets

import (
	"fmt"
	"math"
)

// magnitudeScale converts absolute correlations into integer micro units so
// that magnitudes add up exactly, whatever the order of the additions.
const magnitudeScale = 1e6

// Score measures the correlation risk of a grouping. Lower is better:
// Violations first, then Magnitude.
type Score struct {
	// Violations is the number of high correlation pairs sharing a bucket.
	Violations int `json:"violations"`
	// Magnitude is the sum of the absolute correlations of exactly those pairs.
	Magnitude float64 `json:"magnitude"`
}

// Less reports whether s is strictly better than o.
func (s Score) Less(o Score) bool {
	if s.Violations != o.Violations {
		return s.Violations < o.Violations
	}
	return toMicro(s.Magnitude) < toMicro(o.Magnitude)
}

func (s Score) String() string {
	return fmt.Sprintf("%d high pairs (magnitude %.2f)", s.Violations, s.Magnitude)
}

func toMicro(v float64) int64 { return int64(math.Round(v * magnitudeScale)) }

// HighPair is a pair of instruments whose absolute correlation meets the
// threshold.
type HighPair struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Value float64 `json:"value"`
}

// cost is the exact internal form of a Score.
type cost struct {
	count int
	mag   int64
}

func (c cost) add(d cost) cost { return cost{c.count + d.count, c.mag + d.mag} }
func (c cost) sub(d cost) cost { return cost{c.count - d.count, c.mag - d.mag} }

// worse reports whether c is strictly worse than d.
func (c cost) worse(d cost) bool {
	if c.count != d.count {
		return c.count > d.count
	}
	return c.mag > d.mag
}

func (c cost) score() Score {
	return Score{Violations: c.count, Magnitude: float64(c.mag) / magnitudeScale}
}

// scorer holds the dense pair costs of a matrix for one threshold.
type scorer struct {
	n     int
	pairs []cost // pairs[i*n+j] is the cost of i and j sharing a bucket
}

func newScorer(m *Matrix, threshold float64) *scorer {
	n := m.Len()
	s := &scorer{n: n, pairs: make([]cost, n*n)}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := math.Abs(m.At(i, j))
			if v >= threshold {
				c := cost{1, toMicro(v)}
				s.pairs[i*n+j], s.pairs[j*n+i] = c, c
			}
		}
	}
	return s
}

func (s *scorer) pair(i, j int) cost { return s.pairs[i*s.n+j] }

// group returns the cost of a set of instruments sharing one bucket.
func (s *scorer) group(members []int) cost {
	var c cost
	for a := 0; a < len(members); a++ {
		for b := a + 1; b < len(members); b++ {
			c = c.add(s.pair(members[a], members[b]))
		}
	}
	return c
}

// with returns the cost x adds to the instruments j for which in(j) is true.
func (s *scorer) with(x int, in func(j int) bool) cost {
	var c cost
	for j := 0; j < s.n; j++ {
		if j != x && in(j) {
			c = c.add(s.pair(x, j))
		}
	}
	return c
}

// HighPairs lists the high correlation pairs inside a bucket, in bucket order.
func (m *Matrix) HighPairs(b Bucket, threshold float64) ([]HighPair, error) {
	idx, err := m.indices(b)
	if err != nil {
		return nil, err
	}
	var pairs []HighPair
	for x := 0; x < len(idx); x++ {
		for y := x + 1; y < len(idx); y++ {
			v := m.At(idx[x], idx[y])
			if math.Abs(v) >= threshold {
				pairs = append(pairs, HighPair{A: b[x], B: b[y], Value: v})
			}
		}
	}
	return pairs, nil
}

// Score scores a single bucket with the threshold.
func (m *Matrix) Score(b Bucket, threshold float64) (Score, error) {
	idx, err := m.indices(b)
	if err != nil {
		return Score{}, err
	}
	return newScorer(m, threshold).group(idx).score(), nil
}
