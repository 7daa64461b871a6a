package buckets

import (
	"fmt"
	"sort"
)

// Bucket is a group of instruments, listed in universe order.
type Bucket []string

// Contains reports whether the bucket holds symbol.
func (b Bucket) Contains(symbol string) bool {
	for _, s := range b {
		if s == symbol {
			return true
		}
	}
	return false
}

// Partition is an ordered collection of K buckets.
//
// A Partition is a snapshot: it is never modified once produced. Partitions
// produced by the search carry their Score, partitions parsed from an
// Assignment don't.
type Partition struct {
	buckets []Bucket
	score   Score
	scored  bool
}

// newPartition builds a Partition from a dense assignment (instrument index →
// bucket index, -1 for none). Buckets list their instruments in universe order.
func newPartition(m *Matrix, assign []int, k int) *Partition {
	p := &Partition{buckets: make([]Bucket, k)}
	for i := range p.buckets {
		p.buckets[i] = Bucket{}
	}
	for x, b := range assign {
		if b >= 0 {
			p.buckets[b] = append(p.buckets[b], m.Symbol(x))
		}
	}
	return p
}

// Len returns the number of buckets K.
func (p *Partition) Len() int { return len(p.buckets) }

// Bucket returns a copy of the i-th bucket (zero based).
func (p *Partition) Bucket(i int) Bucket { return append(Bucket{}, p.buckets[i]...) }

// Buckets returns a copy of all buckets.
func (p *Partition) Buckets() []Bucket {
	out := make([]Bucket, len(p.buckets))
	for i := range p.buckets {
		out[i] = p.Bucket(i)
	}
	return out
}

// Score returns the search score, ok is false for manual partitions.
func (p *Partition) Score() (s Score, ok bool) { return p.score, p.scored }

// Evaluate scores the partition with the objective of the search: the sum of
// every bucket's score.
func (p *Partition) Evaluate(m *Matrix, threshold float64) (Score, error) {
	sc := newScorer(m, threshold)
	var total cost
	for _, b := range p.buckets {
		idx, err := m.indices(b)
		if err != nil {
			return Score{}, err
		}
		total = total.add(sc.group(idx))
	}
	return total.score(), nil
}

// Assignment returns the instrument → bucket number (one based) mapping.
func (p *Partition) Assignment() Assignment {
	a := make(Assignment)
	for i, b := range p.buckets {
		for _, s := range b {
			a[s] = i + 1
		}
	}
	return a
}

// Validate checks that the buckets are pairwise disjoint and that their union
// is exactly the universe.
func (p *Partition) Validate(universe []string) error {
	known := make(map[string]bool, len(universe))
	for _, s := range universe {
		known[s] = true
	}
	seen := make(map[string]int)
	for i, b := range p.buckets {
		for _, s := range b {
			if !known[s] {
				return fmt.Errorf("%w: bucket %d holds unknown instrument %q", ErrValidation, i+1, s)
			}
			if j, dup := seen[s]; dup {
				return fmt.Errorf("%w: instrument %q is in buckets %d and %d", ErrValidation, s, j+1, i+1)
			}
			seen[s] = i
		}
	}
	var missing []string
	for _, s := range universe {
		if _, ok := seen[s]; !ok {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: instruments not in any bucket: %v", ErrValidation, missing)
	}
	return nil
}

// MarshalJSON encodes the partition as {"buckets":[[...]],"score":{...}}.
func (p *Partition) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("buckets", p.buckets)
	if p.scored {
		w.Append("score", p.score)
	}
	return w.MarshalJSON()
}
