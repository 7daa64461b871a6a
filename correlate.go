package buckets

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Prices is a table of daily close prices aligned on dates.
type Prices struct {
	Symbols []string
	Dates   []time.Time
	Closes  [][]float64 // Closes[t][s] is the close of Symbols[s] at Dates[t]
}

// DecodePrices reads a close price CSV: a "date,S1,...,Sn" header, then one
// row per date in ascending order (YYYY-MM-DD). Every cell must hold a
// positive price.
func DecodePrices(r io.Reader) (*Prices, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: not a correct csv: %v", ErrParse, err)
	}
	if len(records) == 0 || len(records[0]) < 2 {
		return nil, fmt.Errorf("%w: a price table needs a date column and at least one symbol", ErrParse)
	}

	p := &Prices{}
	seen := make(map[string]bool)
	for _, cell := range records[0][1:] {
		s := strings.TrimSpace(cell)
		if s == "" || seen[s] {
			return nil, fmt.Errorf("%w line 1: symbol %q is empty or duplicated", ErrParse, s)
		}
		seen[s] = true
		p.Symbols = append(p.Symbols, s)
	}

	for k, rec := range records[1:] {
		line := k + 2
		day, err := time.Parse(time.DateOnly, strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("%w line %d: invalid date %q", ErrParse, line, rec[0])
		}
		if n := len(p.Dates); n > 0 && !day.After(p.Dates[n-1]) {
			return nil, fmt.Errorf("%w line %d: date %s is not after %s", ErrData, line, day.Format(time.DateOnly), p.Dates[n-1].Format(time.DateOnly))
		}
		closes := make([]float64, len(p.Symbols))
		for j, cell := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("%w line %d: price of %s must be a number: %v", ErrParse, line, p.Symbols[j], err)
			}
			if !(v > 0) {
				return nil, fmt.Errorf("%w line %d: price of %s must be positive, got %v", ErrData, line, p.Symbols[j], v)
			}
			closes[j] = v
		}
		p.Dates = append(p.Dates, day)
		p.Closes = append(p.Closes, closes)
	}
	return p, nil
}

// Returns computes the daily log returns, one row per date but the first.
func (p *Prices) Returns() *mat.Dense {
	rows, cols := len(p.Closes)-1, len(p.Symbols)
	if rows < 1 {
		return nil
	}
	returns := mat.NewDense(rows, cols, nil)
	for t := 1; t <= rows; t++ {
		for s := 0; s < cols; s++ {
			returns.Set(t-1, s, math.Log(p.Closes[t][s]/p.Closes[t-1][s]))
		}
	}
	return returns
}

// Correlate computes the Pearson correlation of the log returns of every pair
// of symbols, on the -100..100 scale and rounded to two decimals.
func Correlate(p *Prices) (*Matrix, error) {
	n := len(p.Symbols)
	returns := p.Returns()
	if returns == nil || returns.RawMatrix().Rows < 2 {
		return nil, fmt.Errorf("%w: at least 3 dates are needed, got %d", ErrData, len(p.Dates))
	}
	corr := mat.NewSymDense(n, nil)
	stat.CorrelationMatrix(corr, returns, nil)

	hundred := decimal.NewFromInt(100)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		for j := range values[i] {
			if i == j {
				values[i][j] = MaxCorrelation
				continue
			}
			v := corr.At(i, j)
			if math.IsNaN(v) {
				return nil, fmt.Errorf("%w: %s/%s has no correlation, a price series is constant", ErrData, p.Symbols[i], p.Symbols[j])
			}
			c, _ := decimal.NewFromFloat(v).Mul(hundred).Round(2).Float64()
			values[i][j] = math.Max(-MaxCorrelation, math.Min(MaxCorrelation, c))
		}
	}
	return NewMatrix(p.Symbols, values)
}
