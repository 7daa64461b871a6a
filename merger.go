package buckets

import (
	"fmt"
	"sort"
)

// Merger is a super bucket: the union of several buckets of a Partition.
type Merger struct {
	Buckets     []int      `json:"buckets"` // one based numbers of the merged buckets
	Instruments Bucket     `json:"instruments"`
	Score       Score      `json:"score"`
	Pairs       []HighPair `json:"pairs"`
}

// MergeCandidates scores the union of every combination of size buckets of p
// and returns all of them, best first: by score, then by bucket numbers.
//
// The enumeration is exhaustive, C(K, size) candidates.
func MergeCandidates(m *Matrix, p *Partition, size int, threshold float64) ([]Merger, error) {
	if size < 2 || size > p.Len() {
		return nil, fmt.Errorf("%w: cannot merge %d of %d buckets", ErrConfig, size, p.Len())
	}
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	bucketIdx := make([][]int, p.Len())
	for i, b := range p.buckets {
		idx, err := m.indices(b)
		if err != nil {
			return nil, fmt.Errorf("bucket %d: %w", i+1, err)
		}
		bucketIdx[i] = idx
	}

	sc := newScorer(m, threshold)
	var mergers []Merger
	var err error
	combinations(p.Len(), size, func(combo []int) bool {
		inUnion := make([]bool, m.Len())
		numbers := make([]int, len(combo))
		for k, b := range combo {
			numbers[k] = b + 1
			for _, x := range bucketIdx[b] {
				inUnion[x] = true
			}
		}
		var union []int
		instruments := Bucket{}
		for x, in := range inUnion {
			if in {
				union = append(union, x)
				instruments = append(instruments, m.Symbol(x))
			}
		}
		var pairs []HighPair
		pairs, err = m.HighPairs(instruments, threshold)
		if err != nil {
			return false
		}
		mergers = append(mergers, Merger{
			Buckets:     numbers,
			Instruments: instruments,
			Score:       sc.group(union).score(),
			Pairs:       pairs,
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(mergers, func(i, j int) bool {
		a, b := mergers[i], mergers[j]
		if a.Score.Less(b.Score) || b.Score.Less(a.Score) {
			return a.Score.Less(b.Score)
		}
		for k := range a.Buckets {
			if a.Buckets[k] != b.Buckets[k] {
				return a.Buckets[k] < b.Buckets[k]
			}
		}
		return false
	})
	return mergers, nil
}

// combinations calls fn with every size-combination of 0..n-1, in
// lexicographic order, until fn returns false. The slice is reused between calls.
func combinations(n, size int, fn func([]int) bool) {
	if size <= 0 || size > n {
		return
	}
	combo := make([]int, size)
	for i := range combo {
		combo[i] = i
	}
	for {
		if !fn(combo) {
			return
		}
		i := size - 1
		for i >= 0 && combo[i] == n-size+i {
			i--
		}
		if i < 0 {
			return
		}
		combo[i]++
		for j := i + 1; j < size; j++ {
			combo[j] = combo[j-1] + 1
		}
	}
}
