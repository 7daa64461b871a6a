package buckets

import (
	"context"
	"fmt"
	"math/rand"
)

// InclusionOptions configures the max inclusion search.
type InclusionOptions struct {
	Buckets    int     // number of buckets
	Cap        int     // maximum number of high correlation pairs in any bucket
	Seed       int64   // run seed
	Iterations int     // moves proposed per attempt
	Restarts   int     // independent attempts
	Threshold  float64 // absolute correlation of a high correlation pair
	Workers    int     // attempts running at the same time, the result does not depend on it

	// Observer, if set, is called after every accepted move with the number of
	// included instruments and the total score.
	Observer func(attempt, iteration, included int, s Score)
}

// DefaultInclusionOptions returns the options used by the command line.
func DefaultInclusionOptions() InclusionOptions {
	return InclusionOptions{
		Buckets:    3,
		Cap:        1,
		Seed:       DefaultSeed,
		Iterations: 2000,
		Restarts:   100,
		Threshold:  DefaultThreshold,
		Workers:    1,
	}
}

// Inclusion is the outcome of SelectMaxInclusion.
type Inclusion struct {
	Buckets     []Bucket `json:"buckets"`
	Scores      []Score  `json:"scores"` // per bucket
	Excluded    []string `json:"excluded"`
	Cap         int      `json:"cap"`
	Score       Score    `json:"score"`       // sum of the bucket scores
	Instruments Ratio    `json:"instruments"` // included instruments out of the universe
	Pairs       Ratio    `json:"pairs"`       // pairs sharing a bucket out of all the pairs of the universe
}

func (o InclusionOptions) validate() error {
	if o.Buckets <= 0 {
		return fmt.Errorf("%w: at least one bucket is required, got %d", ErrConfig, o.Buckets)
	}
	if o.Cap < 0 {
		return fmt.Errorf("%w: the cap must not be negative, got %d", ErrConfig, o.Cap)
	}
	if err := validateThreshold(o.Threshold); err != nil {
		return err
	}
	return validateEffort(o.Iterations, o.Restarts)
}

// SelectMaxInclusion places as many instruments of universe as possible into
// opts.Buckets buckets, so that no bucket holds more than opts.Cap high
// correlation pairs. Instruments that cannot be placed are excluded.
//
// Among configurations including the same number of instruments, the one with
// the lowest total score is preferred. A move that would exceed the cap is
// never accepted. Being unable to include instruments is not an error: callers
// must read the Instruments ratio. An empty universe yields empty buckets.
func SelectMaxInclusion(ctx context.Context, m *Matrix, universe []string, opts InclusionOptions) (*Inclusion, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	sub, err := m.Sub(universe)
	if err != nil {
		return nil, err
	}

	n, k := sub.Len(), opts.Buckets
	sc := newScorer(sub, opts.Threshold)
	if n == 0 {
		return newInclusion(sub, sc, nil, k, opts.Cap), nil
	}

	type outcome struct {
		assign   []int
		included int
		total    cost
	}
	results, err := runAttempts(ctx, opts.Restarts, opts.Workers, func(attempt int) outcome {
		st := &inclusionState{sc: sc, cap: opts.Cap, assign: make([]int, n), load: make([]cost, k)}
		var observe func(int)
		if opts.Observer != nil {
			observe = func(it int) { opts.Observer(attempt, it, st.included, st.total().score()) }
		}
		st.run(opts.Iterations, attemptRNG(opts.Seed, attempt), observe)
		return outcome{st.assign, st.included, st.total()}
	})
	if err != nil {
		return nil, err
	}

	best := 0
	for a := 1; a < len(results); a++ {
		r, b := results[a], results[best]
		if r.included > b.included || (r.included == b.included && b.total.worse(r.total)) {
			best = a
		}
	}
	return newInclusion(sub, sc, results[best].assign, k, opts.Cap), nil
}

// inclusionState is the search state of one attempt.
type inclusionState struct {
	sc       *scorer
	cap      int
	assign   []int  // instrument → bucket, -1 when excluded
	load     []cost // cost of each bucket
	included int
}

// costIn returns the cost x has with the other members of bucket b.
func (st *inclusionState) costIn(x, b int) cost {
	return st.sc.with(x, func(j int) bool { return st.assign[j] == b })
}

func (st *inclusionState) total() cost {
	var c cost
	for _, l := range st.load {
		c = c.add(l)
	}
	return c
}

func (st *inclusionState) run(iterations int, rng *rand.Rand, observe func(int)) {
	n, k := len(st.assign), len(st.load)
	for x := range st.assign {
		st.assign[x] = -1
	}

	// Greedy construction: each instrument goes where it adds the least cost.
	for _, x := range rng.Perm(n) {
		best, bestAdd := -1, cost{}
		for b := 0; b < k; b++ {
			add := st.costIn(x, b)
			if st.load[b].count+add.count > st.cap {
				continue
			}
			if best < 0 || bestAdd.worse(add) {
				best, bestAdd = b, add
			}
		}
		if best >= 0 {
			st.assign[x] = best
			st.load[best] = st.load[best].add(bestAdd)
			st.included++
		}
	}

	for it := 0; it < iterations; it++ {
		x, b := rng.Intn(n), rng.Intn(k)
		from := st.assign[x]
		if from == b {
			continue
		}
		var accepted bool
		if from < 0 {
			accepted = st.insert(x, b, rng)
		} else {
			accepted = st.move(x, from, b)
		}
		if accepted && observe != nil {
			observe(it)
		}
	}
}

// insert tries to place the excluded x into b, directly or in place of one of
// its members when the cap forbids it.
func (st *inclusionState) insert(x, b int, rng *rand.Rand) bool {
	add := st.costIn(x, b)
	if st.load[b].count+add.count <= st.cap {
		st.assign[x] = b
		st.load[b] = st.load[b].add(add)
		st.included++
		return true
	}

	mem := members(st.assign, b)
	y := mem[rng.Intn(len(mem))]
	load := st.load[b].sub(st.costIn(y, b)).add(add.sub(st.sc.pair(x, y)))
	if load.count > st.cap || load.worse(st.load[b]) {
		return false
	}
	st.assign[y], st.assign[x] = -1, b
	st.load[b] = load
	return true
}

// move tries to move the included x from bucket from to bucket b.
func (st *inclusionState) move(x, from, b int) bool {
	rem, add := st.costIn(x, from), st.costIn(x, b)
	if st.load[b].count+add.count > st.cap || add.worse(rem) {
		return false
	}
	st.assign[x] = b
	st.load[from] = st.load[from].sub(rem)
	st.load[b] = st.load[b].add(add)
	return true
}

func newInclusion(m *Matrix, sc *scorer, assign []int, k, limit int) *Inclusion {
	n := m.Len()
	if assign == nil {
		assign = make([]int, n)
		for x := range assign {
			assign[x] = -1
		}
	}
	p := newPartition(m, assign, k)
	inc := &Inclusion{
		Buckets:  p.buckets,
		Scores:   make([]Score, k),
		Excluded: []string{},
		Cap:      limit,
	}
	var total cost
	pairs := 0
	for b := 0; b < k; b++ {
		c := sc.group(members(assign, b))
		inc.Scores[b] = c.score()
		total = total.add(c)
		size := len(p.buckets[b])
		pairs += size * (size - 1) / 2
	}
	for x, b := range assign {
		if b < 0 {
			inc.Excluded = append(inc.Excluded, m.Symbol(x))
		}
	}
	inc.Score = total.score()
	inc.Instruments = Ratio{Part: n - len(inc.Excluded), Whole: n}
	inc.Pairs = Ratio{Part: pairs, Whole: n * (n - 1) / 2}
	return inc
}
