package buckets

import (
	"strings"
	"testing"
)

// currencies are combined into the 28 pairs of fxUniverse.
var currencies = []string{"EUR", "GBP", "AUD", "NZD", "USD", "CAD", "CHF", "JPY"}

// fxUniverse returns the 28 currency pairs of the major currencies.
func fxUniverse() []string {
	var pairs []string
	for i := range currencies {
		for j := i + 1; j < len(currencies); j++ {
			pairs = append(pairs, currencies[i]+currencies[j])
		}
	}
	return pairs
}

// fxCorrelation is a plausible, deterministic correlation between two pairs:
// sharing a currency on the same side correlates, on opposite sides
// anticorrelates.
func fxCorrelation(i, j int, a, b string) float64 {
	base1, quote1 := a[:3], a[3:]
	base2, quote2 := b[:3], b[3:]
	switch {
	case base1 == base2 || quote1 == quote2:
		return 70 + float64((i+j)%25)
	case base1 == quote2 || quote1 == base2:
		return -(60 + float64((i*j)%30))
	default:
		return float64((i*7+j*13)%61) - 30
	}
}

// fxMatrix returns the 28 × 28 matrix of fxUniverse.
func fxMatrix(t *testing.T) *Matrix {
	t.Helper()
	symbols := fxUniverse()
	values := make([][]float64, len(symbols))
	for i := range values {
		values[i] = make([]float64, len(symbols))
		for j := range values[i] {
			lo, hi := min(i, j), max(i, j)
			values[i][j] = fxCorrelation(lo, hi, symbols[lo], symbols[hi])
		}
	}
	return mustMatrix(t, symbols, values)
}

// blockMatrix returns a matrix where instruments of the same group correlate
// at within, and at across otherwise.
func blockMatrix(t *testing.T, groups [][]string, within, across float64) *Matrix {
	t.Helper()
	var symbols []string
	group := make(map[string]int)
	for g, members := range groups {
		for _, s := range members {
			symbols = append(symbols, s)
			group[s] = g
		}
	}
	values := make([][]float64, len(symbols))
	for i, a := range symbols {
		values[i] = make([]float64, len(symbols))
		for j, b := range symbols {
			if group[a] == group[b] {
				values[i][j] = within
			} else {
				values[i][j] = across
			}
		}
	}
	return mustMatrix(t, symbols, values)
}

func mustMatrix(t *testing.T, symbols []string, values [][]float64) *Matrix {
	t.Helper()
	m, err := NewMatrix(symbols, values)
	if err != nil {
		t.Fatalf("NewMatrix() failed: %v", err)
	}
	return m
}

// mustDecode decodes a grid written with one row per line.
func mustDecode(t *testing.T, grid string) *Matrix {
	t.Helper()
	m, err := DecodeMatrix(strings.NewReader(grid))
	if err != nil {
		t.Fatalf("DecodeMatrix() failed: %v", err)
	}
	return m
}

// fastSearch returns search options cheap enough for tests.
func fastSearch(k int) SearchOptions {
	opts := DefaultSearchOptions()
	opts.Buckets = k
	opts.Iterations = 500
	opts.Restarts = 10
	return opts
}

func fastInclusion() InclusionOptions {
	opts := DefaultInclusionOptions()
	opts.Iterations = 500
	opts.Restarts = 10
	return opts
}
