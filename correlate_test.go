package buckets

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const closes = `date,EURUSD,GBPUSD,USDJPY
2024-03-01,1.0800,1.2600,150.00
2024-03-04,1.0850,1.2650,149.50
2024-03-05,1.0820,1.2610,149.90
2024-03-06,1.0900,1.2700,149.00
2024-03-07,1.0950,1.2760,148.20
`

func TestCorrelate(t *testing.T) {
	p, err := DecodePrices(strings.NewReader(closes))
	require.NoError(t, err)
	assert.Equal(t, []string{"EURUSD", "GBPUSD", "USDJPY"}, p.Symbols)
	assert.Len(t, p.Dates, 5)

	r, c := p.Returns().Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 3, c)

	m, err := Correlate(p)
	require.NoError(t, err)
	eg, _ := m.Get("EURUSD", "GBPUSD")
	ej, _ := m.Get("EURUSD", "USDJPY")
	assert.Greater(t, eg, 90.0, "EURUSD and GBPUSD move together")
	assert.Less(t, ej, -90.0, "EURUSD and USDJPY move against each other")
	assert.InDelta(t, math.Round(eg*100)/100, eg, 1e-9, "correlations are rounded to two decimals")
}

func TestDecodePrices_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"no symbol", "date\n2024-03-01\n", ErrParse},
		{"bad date", "date,A\n03/01/2024,1\n", ErrParse},
		{"not a number", "date,A\n2024-03-01,x\n", ErrParse},
		{"not positive", "date,A\n2024-03-01,0\n", ErrData},
		{"unordered", "date,A\n2024-03-02,1\n2024-03-01,1\n", ErrData},
		{"width", "date,A,B\n2024-03-01,1\n", ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePrices(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodePrices() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCorrelate_Errors(t *testing.T) {
	p, err := DecodePrices(strings.NewReader("date,A,B\n2024-03-01,1,2\n2024-03-04,1.1,2.1\n"))
	require.NoError(t, err)
	_, err = Correlate(p)
	assert.ErrorIs(t, err, ErrData, "two dates give a single return")

	p, err = DecodePrices(strings.NewReader("date,A,B\n2024-03-01,1,2\n2024-03-04,1,2.1\n2024-03-05,1,2.05\n"))
	require.NoError(t, err)
	_, err = Correlate(p)
	assert.ErrorIs(t, err, ErrData, "a constant price has no correlation")
}
