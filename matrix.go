package buckets

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaxCorrelation is the self correlation of every instrument. Correlations are
// expressed on a -100..100 scale.
const MaxCorrelation = 100.0

// DefaultThreshold is the absolute correlation at or above which two
// instruments form a high correlation pair.
const DefaultThreshold = 65.0

// Matrix is an immutable symmetric correlation table over an ordered universe
// of instruments.
//
// Each symbol is given a stable index (its position in the universe) when the
// matrix is built; every algorithm of this package works on those indices.
type Matrix struct {
	symbols []string
	index   map[string]int
	values  *mat.SymDense // nil for the empty matrix
}

// NewMatrix builds a Matrix from a list of symbols and a square table of
// values, values[i][j] being the correlation between symbols[i] and symbols[j].
//
// Diagonal cells are ignored and set to MaxCorrelation. Off-diagonal cells
// must be in [-100,100] and symmetric.
func NewMatrix(symbols []string, values [][]float64) (*Matrix, error) {
	n := len(symbols)
	if len(values) != n {
		return nil, fmt.Errorf("%w: %d symbols for %d rows", ErrParse, n, len(values))
	}
	index := make(map[string]int, n)
	for i, s := range symbols {
		if s == "" {
			return nil, fmt.Errorf("%w: empty symbol at position %d", ErrParse, i)
		}
		if _, exists := index[s]; exists {
			return nil, fmt.Errorf("%w: symbol %q is duplicated", ErrParse, s)
		}
		index[s] = i
	}

	m := &Matrix{
		symbols: append([]string(nil), symbols...),
		index:   index,
	}
	if n == 0 {
		return m, nil
	}

	m.values = mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(values[i]) != n {
			return nil, fmt.Errorf("%w: row %q has %d values, want %d", ErrParse, symbols[i], len(values[i]), n)
		}
		m.values.SetSym(i, i, MaxCorrelation)
		for j := i + 1; j < n; j++ {
			v, w := values[i][j], values[j][i]
			if err := checkCorrelation(v); err != nil {
				return nil, fmt.Errorf("%w: %s/%s: %v", ErrData, symbols[i], symbols[j], err)
			}
			if v != w {
				return nil, fmt.Errorf("%w: %s/%s is asymmetric (%v vs %v)", ErrData, symbols[i], symbols[j], v, w)
			}
			m.values.SetSym(i, j, v)
		}
	}
	return m, nil
}

func checkCorrelation(v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("value is not a number")
	}
	if v < -MaxCorrelation || v > MaxCorrelation {
		return fmt.Errorf("value %v is outside [-100,100]", v)
	}
	return nil
}

// Len returns the number of instruments in the universe.
func (m *Matrix) Len() int { return len(m.symbols) }

// Universe returns a copy of the ordered instrument set.
func (m *Matrix) Universe() []string { return append([]string(nil), m.symbols...) }

// Symbol returns the symbol at index i.
func (m *Matrix) Symbol(i int) string { return m.symbols[i] }

// Index returns the stable index of a symbol.
func (m *Matrix) Index(symbol string) (int, bool) {
	i, ok := m.index[symbol]
	return i, ok
}

// At returns the correlation between the instruments at index i and j.
func (m *Matrix) At(i, j int) float64 { return m.values.At(i, j) }

// Get returns the correlation between two instruments, regardless of argument
// order. ok is false if one of them is not in the universe.
func (m *Matrix) Get(a, b string) (v float64, ok bool) {
	i, ok := m.index[a]
	if !ok {
		return 0, false
	}
	j, ok := m.index[b]
	if !ok {
		return 0, false
	}
	return m.At(i, j), true
}

// indices resolves symbols into indices, in the given order.
func (m *Matrix) indices(symbols []string) ([]int, error) {
	idx := make([]int, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for k, s := range symbols {
		i, ok := m.index[s]
		if !ok {
			return nil, fmt.Errorf("%w: unknown instrument %q", ErrValidation, s)
		}
		if seen[s] {
			return nil, fmt.Errorf("%w: instrument %q is duplicated", ErrValidation, s)
		}
		seen[s] = true
		idx[k] = i
	}
	return idx, nil
}

// Sub returns the matrix restricted to the given symbols, in that order.
func (m *Matrix) Sub(symbols []string) (*Matrix, error) {
	idx, err := m.indices(symbols)
	if err != nil {
		return nil, err
	}
	values := make([][]float64, len(idx))
	for r, i := range idx {
		values[r] = make([]float64, len(idx))
		for c, j := range idx {
			values[r][c] = m.At(i, j)
		}
	}
	return NewMatrix(symbols, values)
}

// Rows returns a copy of the values as a square table, in universe order.
func (m *Matrix) Rows() [][]float64 {
	n := m.Len()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}

// MarshalJSON encodes the matrix as {"symbols":[...],"values":[[...]]}.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("symbols", m.symbols)
	w.Append("values", m.Rows())
	return w.MarshalJSON()
}
