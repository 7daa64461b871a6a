package buckets

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// DecodeMatrix decodes a symbol × symbol CSV grid.
//
// The first row lists the symbols after a corner cell, every following row
// starts with a symbol followed by its correlations in header order. Rows may
// come in any order. Diagonal cells can be left empty.
func DecodeMatrix(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: not a correct csv: %v", ErrParse, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrParse)
	}

	header := records[0]
	symbols := make([]string, 0, len(header))
	column := make(map[string]int, len(header))
	for _, cell := range header[1:] {
		s := strings.TrimSpace(cell)
		if _, exists := column[s]; exists {
			return nil, fmt.Errorf("%w line 1: symbol %q is duplicated", ErrParse, s)
		}
		column[s] = len(symbols)
		symbols = append(symbols, s)
	}
	n := len(symbols)
	rows := records[1:]
	if n == 0 || len(rows) != n {
		return nil, fmt.Errorf("%w: matrix is not square: %d columns and %d rows", ErrParse, n, len(rows))
	}

	values := make([][]float64, n)
	for k, rec := range rows {
		line := k + 2
		if len(rec) != n+1 {
			return nil, fmt.Errorf("%w line %d: %d cells, want %d", ErrParse, line, len(rec), n+1)
		}
		s := strings.TrimSpace(rec[0])
		i, ok := column[s]
		if !ok {
			return nil, fmt.Errorf("%w line %d: symbol %q is not in the header", ErrParse, line, s)
		}
		if values[i] != nil {
			return nil, fmt.Errorf("%w line %d: symbol %q is duplicated", ErrParse, line, s)
		}
		row := make([]float64, n)
		for j, cell := range rec[1:] {
			cell = strings.TrimSpace(cell)
			missing := cell == "" || strings.EqualFold(cell, "N/A")
			if i == j {
				row[j] = MaxCorrelation
				if missing {
					continue
				}
			} else if missing {
				return nil, fmt.Errorf("%w line %d: missing correlation %s/%s", ErrData, line, s, symbols[j])
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w line %d: cell %s/%s must be a number: %v", ErrParse, line, s, symbols[j], err)
			}
			if i == j && v != MaxCorrelation {
				return nil, fmt.Errorf("%w line %d: self correlation of %q is %v, want 100", ErrData, line, s, v)
			}
			row[j] = v
		}
		values[i] = row
	}
	return NewMatrix(symbols, values)
}

// EncodeMatrix writes the matrix as a CSV grid readable by DecodeMatrix.
func EncodeMatrix(w io.Writer, m *Matrix) error {
	cw := csv.NewWriter(w)
	header := append([]string{""}, m.symbols...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("cannot write matrix header: %w", err)
	}
	for i, s := range m.symbols {
		rec := make([]string, 0, m.Len()+1)
		rec = append(rec, s)
		for j := range m.symbols {
			rec = append(rec, strconv.FormatFloat(m.At(i, j), 'f', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("cannot write matrix row %q: %w", s, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// DefaultPairColumn is the column of the daily correlation in the pair list
// exported by the trading platform.
const DefaultPairColumn = 6

// PairListOptions configures DecodePairs.
type PairListOptions struct {
	// Column is the zero based column holding the correlation. Zero means DefaultPairColumn.
	Column int
	// FillMissing replaces absent pairs by MaxCorrelation instead of failing.
	// An unknown correlation is then treated as the worst case.
	FillMissing bool
	// OnMissing, if set, is called for every filled pair.
	OnMissing func(a, b string)
}

// DecodePairs decodes a pair list: rows before a "pair1,pair2" header are
// ignored, then every row holds two symbols and their correlation in
// opts.Column. Rows too short or with a non numeric correlation are skipped.
// The universe is the sorted set of symbols found.
func DecodePairs(r io.Reader, opts PairListOptions) (*Matrix, error) {
	col := opts.Column
	if col == 0 {
		col = DefaultPairColumn
	}
	if col < 2 {
		return nil, fmt.Errorf("%w: correlation column %d overlaps the pair columns", ErrConfig, col)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	type pair struct{ a, b string }
	found := make(map[pair]float64)
	seen := make(map[string]bool)
	headerFound := false
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w line %d: not a correct csv: %v", ErrParse, line, err)
		}
		if len(rec) < 2 {
			continue
		}
		a, b := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if !headerFound {
			headerFound = strings.EqualFold(a, "pair1") && strings.EqualFold(b, "pair2")
			continue
		}
		if len(rec) <= col || a == "" || b == "" || a == b {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
		if err != nil {
			continue
		}
		if a > b {
			a, b = b, a
		}
		p := pair{a, b}
		if prev, exists := found[p]; exists && prev != v {
			return nil, fmt.Errorf("%w line %d: %s/%s is listed twice with %v and %v", ErrData, line, a, b, prev, v)
		}
		found[p] = v
		seen[a], seen[b] = true, true
	}
	if !headerFound {
		return nil, fmt.Errorf("%w: no \"pair1,pair2\" header found", ErrParse)
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("%w: no pair found", ErrParse)
	}

	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	n := len(symbols)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		values[i][i] = MaxCorrelation
		for j := i + 1; j < n; j++ {
			v, ok := found[pair{symbols[i], symbols[j]}]
			if !ok {
				if !opts.FillMissing {
					return nil, fmt.Errorf("%w: missing correlation %s/%s", ErrData, symbols[i], symbols[j])
				}
				v = MaxCorrelation
				if opts.OnMissing != nil {
					opts.OnMissing(symbols[i], symbols[j])
				}
			}
			values[i][j], values[j][i] = v, v
		}
	}
	return NewMatrix(symbols, values)
}
