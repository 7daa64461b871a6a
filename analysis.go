package buckets

import (
	"context"
	"fmt"
)

// Mode tells how the base partition of an Analysis was obtained.
type Mode string

const (
	ModeSearch Mode = "search" // found by Search
	ModeManual Mode = "manual" // given as an Assignment
)

// AnalysisOptions configures Analyze. The effort settings are shared by the
// partition search and the max inclusion search.
type AnalysisOptions struct {
	Seed       int64
	Threshold  float64
	Iterations int
	Restarts   int
	Workers    int

	// Buckets is the number of base buckets to search for. It is ignored when
	// Manual is set.
	Buckets int
	// Manual is the base partition to analyze instead of searching one.
	Manual *Partition
	// MergeSizes lists the super bucket sizes to rank. Sizes above the number
	// of base buckets are skipped.
	MergeSizes []int

	InclusionBuckets int
	Cap              int

	// Observer, if set, follows the partition search, see SearchOptions.
	Observer func(attempt, iteration int, s Score)
}

// DefaultAnalysisOptions returns the options used by the command line.
func DefaultAnalysisOptions() AnalysisOptions {
	s, inc := DefaultSearchOptions(), DefaultInclusionOptions()
	return AnalysisOptions{
		Seed:             s.Seed,
		Threshold:        s.Threshold,
		Iterations:       s.Iterations,
		Restarts:         s.Restarts,
		Workers:          s.Workers,
		Buckets:          s.Buckets,
		MergeSizes:       []int{2, 3},
		InclusionBuckets: inc.Buckets,
		Cap:              inc.Cap,
	}
}

func (o AnalysisOptions) search() SearchOptions {
	return SearchOptions{
		Buckets:    o.Buckets,
		Seed:       o.Seed,
		Iterations: o.Iterations,
		Restarts:   o.Restarts,
		Threshold:  o.Threshold,
		Workers:    o.Workers,
		Observer:   o.Observer,
	}
}

func (o AnalysisOptions) inclusion() InclusionOptions {
	return InclusionOptions{
		Buckets:    o.InclusionBuckets,
		Cap:        o.Cap,
		Seed:       o.Seed,
		Iterations: o.Iterations,
		Restarts:   o.Restarts,
		Threshold:  o.Threshold,
		Workers:    o.Workers,
	}
}

// validate checks every stage of the pipeline against a universe of n
// instruments, so that no search runs on a configuration bound to fail.
func (o AnalysisOptions) validate(n int) error {
	if err := validateThreshold(o.Threshold); err != nil {
		return err
	}
	if o.Manual == nil {
		if err := o.search().validate(n); err != nil {
			return fmt.Errorf("cannot partition the universe: %w", err)
		}
	}
	for _, size := range o.MergeSizes {
		if size < 2 {
			return fmt.Errorf("%w: a super bucket merges at least 2 buckets, got %d", ErrConfig, size)
		}
	}
	if err := o.inclusion().validate(); err != nil {
		return fmt.Errorf("cannot select the max inclusion: %w", err)
	}
	return nil
}

// BucketView is a group of instruments with everything a report shows about it.
type BucketView struct {
	Instruments Bucket     `json:"instruments"`
	Score       Score      `json:"score"`
	Pairs       []HighPair `json:"pairs"`
	Matrix      *Matrix    `json:"matrix"` // restricted to the instruments
}

// MergerView is a ranked super bucket.
type MergerView struct {
	Rank    int   `json:"rank"` // one based
	Buckets []int `json:"buckets"`
	BucketView
}

// MergerGroup ranks the super buckets of one size.
type MergerGroup struct {
	Size    int          `json:"size"`
	Mergers []MergerView `json:"mergers"`
}

// Analysis is the complete result of one run.
type Analysis struct {
	Mode      Mode     `json:"mode"`
	Seed      int64    `json:"seed"`
	Threshold float64  `json:"threshold"`
	Universe  []string `json:"universe"`

	Partition *Partition   `json:"partition"`
	Score     Score        `json:"score"` // of the base partition
	Buckets   []BucketView `json:"buckets"`

	Mergers []MergerGroup `json:"mergers"`

	Inclusion        *Inclusion   `json:"inclusion"`
	InclusionBuckets []BucketView `json:"inclusion_buckets"`
}

// Analyze runs the whole pipeline on m: the base partition (searched, or
// opts.Manual), the ranking of its super buckets, and the max inclusion
// selection over the whole universe.
func Analyze(ctx context.Context, m *Matrix, opts AnalysisOptions) (*Analysis, error) {
	if err := opts.validate(m.Len()); err != nil {
		return nil, err
	}

	a := &Analysis{
		Mode:      ModeSearch,
		Seed:      opts.Seed,
		Threshold: opts.Threshold,
		Universe:  m.Universe(),
	}

	if opts.Manual != nil {
		if err := opts.Manual.Validate(a.Universe); err != nil {
			return nil, err
		}
		s, err := opts.Manual.Evaluate(m, opts.Threshold)
		if err != nil {
			return nil, err
		}
		a.Mode, a.Partition, a.Score = ModeManual, opts.Manual, s
	} else {
		p, err := Search(ctx, m, opts.search())
		if err != nil {
			return nil, fmt.Errorf("cannot partition the universe: %w", err)
		}
		a.Partition = p
		a.Score, _ = p.Score()
	}

	var err error
	if a.Buckets, err = viewBuckets(m, a.Partition.buckets, opts.Threshold); err != nil {
		return nil, err
	}

	for _, size := range opts.MergeSizes {
		if size > a.Partition.Len() {
			continue
		}
		mergers, err := MergeCandidates(m, a.Partition, size, opts.Threshold)
		if err != nil {
			return nil, err
		}
		group := MergerGroup{Size: size, Mergers: make([]MergerView, len(mergers))}
		for i, mg := range mergers {
			sub, err := m.Sub(mg.Instruments)
			if err != nil {
				return nil, err
			}
			group.Mergers[i] = MergerView{
				Rank:    i + 1,
				Buckets: mg.Buckets,
				BucketView: BucketView{
					Instruments: mg.Instruments,
					Score:       mg.Score,
					Pairs:       mg.Pairs,
					Matrix:      sub,
				},
			}
		}
		a.Mergers = append(a.Mergers, group)
	}

	if a.Inclusion, err = SelectMaxInclusion(ctx, m, a.Universe, opts.inclusion()); err != nil {
		return nil, fmt.Errorf("cannot select the max inclusion: %w", err)
	}
	if a.InclusionBuckets, err = viewBuckets(m, a.Inclusion.Buckets, opts.Threshold); err != nil {
		return nil, err
	}
	return a, nil
}

func viewBuckets(m *Matrix, buckets []Bucket, threshold float64) ([]BucketView, error) {
	views := make([]BucketView, len(buckets))
	for i, b := range buckets {
		sub, err := m.Sub(b)
		if err != nil {
			return nil, fmt.Errorf("bucket %d: %w", i+1, err)
		}
		pairs, err := m.HighPairs(b, threshold)
		if err != nil {
			return nil, fmt.Errorf("bucket %d: %w", i+1, err)
		}
		s, err := m.Score(b, threshold)
		if err != nil {
			return nil, fmt.Errorf("bucket %d: %w", i+1, err)
		}
		views[i] = BucketView{Instruments: b, Score: s, Pairs: pairs, Matrix: sub}
	}
	return views, nil
}
