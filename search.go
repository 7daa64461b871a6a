package buckets

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// SearchOptions configures the bucket partition search.
type SearchOptions struct {
	Buckets    int     // number of buckets K
	Seed       int64   // run seed, every attempt derives its own stream from it
	Iterations int     // swap proposals per attempt
	Restarts   int     // independent attempts
	Threshold  float64 // absolute correlation of a high correlation pair
	Workers    int     // attempts running at the same time, the result does not depend on it

	// Observer, if set, is called with the current score after every accepted
	// swap. With more than one worker it is called from several goroutines.
	Observer func(attempt, iteration int, s Score)
}

// DefaultSearchOptions returns the options used by the command line.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Buckets:    5,
		Seed:       DefaultSeed,
		Iterations: 2000,
		Restarts:   100,
		Threshold:  DefaultThreshold,
		Workers:    1,
	}
}

func validateThreshold(threshold float64) error {
	if !(threshold > 0 && threshold <= MaxCorrelation) {
		return fmt.Errorf("%w: threshold %v must be in ]0,100]", ErrConfig, threshold)
	}
	return nil
}

func validateEffort(iterations, restarts int) error {
	if iterations < 0 {
		return fmt.Errorf("%w: iterations must not be negative, got %d", ErrConfig, iterations)
	}
	if restarts < 1 {
		return fmt.Errorf("%w: at least one restart is required, got %d", ErrConfig, restarts)
	}
	return nil
}

// validate checks the options against a universe of n instruments.
func (o SearchOptions) validate(n int) error {
	if o.Buckets <= 0 || o.Buckets > n {
		return fmt.Errorf("%w: cannot split %d instruments into %d buckets", ErrConfig, n, o.Buckets)
	}
	if err := validateThreshold(o.Threshold); err != nil {
		return err
	}
	return validateEffort(o.Iterations, o.Restarts)
}

// Search partitions the universe of m into opts.Buckets buckets, minimizing
// the number of high correlation pairs sharing a bucket, then their magnitude.
//
// Every attempt deals a random permutation of the universe round-robin into
// the buckets (sizes differ by at most one), then proposes swaps of two
// instruments from different buckets, keeping those that do not worsen the
// score. The best attempt wins, ties going to the lowest attempt.
//
// Search is deterministic: the same matrix and options always return the same
// Partition.
func Search(ctx context.Context, m *Matrix, opts SearchOptions) (*Partition, error) {
	if err := opts.validate(m.Len()); err != nil {
		return nil, err
	}
	k := opts.Buckets

	sc := newScorer(m, opts.Threshold)
	type outcome struct {
		assign []int
		cost   cost
	}
	results, err := runAttempts(ctx, opts.Restarts, opts.Workers, func(attempt int) outcome {
		var observe func(int, cost)
		if opts.Observer != nil {
			observe = func(it int, c cost) { opts.Observer(attempt, it, c.score()) }
		}
		assign, c := searchAttempt(sc, k, opts.Iterations, attemptRNG(opts.Seed, attempt), observe)
		return outcome{assign, c}
	})
	if err != nil {
		return nil, err
	}

	best := 0
	for a := 1; a < len(results); a++ {
		if results[best].cost.worse(results[a].cost) {
			best = a
		}
	}
	p := newPartition(m, results[best].assign, k)
	p.score, p.scored = results[best].cost.score(), true
	return p, nil
}

// searchAttempt runs one seeded hill climbing and returns its final
// assignment (instrument → bucket) and cost.
func searchAttempt(sc *scorer, k, iterations int, rng *rand.Rand, observe func(int, cost)) ([]int, cost) {
	n := sc.n
	assign := make([]int, n)
	for pos, x := range rng.Perm(n) {
		assign[x] = pos % k
	}
	var cur cost
	for b := 0; b < k; b++ {
		cur = cur.add(sc.group(members(assign, b)))
	}

	for it := 0; it < iterations; it++ {
		x, y := rng.Intn(n), rng.Intn(n)
		if assign[x] == assign[y] {
			continue
		}
		next := cur.add(swapDelta(sc, assign, x, y))
		if next.worse(cur) {
			continue
		}
		assign[x], assign[y] = assign[y], assign[x]
		cur = next
		if observe != nil {
			observe(it, cur)
		}
	}
	return assign, cur
}

// swapDelta returns the cost change of exchanging the buckets of x and y.
func swapDelta(sc *scorer, assign []int, x, y int) cost {
	bx, by := assign[x], assign[y]
	var d cost
	for j, b := range assign {
		if j == x || j == y {
			continue
		}
		switch b {
		case bx:
			d = d.add(sc.pair(y, j)).sub(sc.pair(x, j))
		case by:
			d = d.add(sc.pair(x, j)).sub(sc.pair(y, j))
		}
	}
	return d
}

// members lists the instruments assigned to bucket b.
func members(assign []int, b int) []int {
	var out []int
	for x, a := range assign {
		if a == b {
			out = append(out, x)
		}
	}
	return out
}

// runAttempts calls fn for every attempt, at most workers at a time, and
// returns the results indexed by attempt.
func runAttempts[T any](ctx context.Context, restarts, workers int, fn func(attempt int) T) ([]T, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]T, restarts)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for a := 0; a < restarts; a++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[a] = fn(a)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
