package buckets

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Ratio is a count out of a total, like 12 included instruments out of 28.
type Ratio struct {
	Part  int
	Whole int
}

// Percent returns the ratio in percent, rounded to two decimals. An empty
// whole is 0%.
func (r Ratio) Percent() decimal.Decimal {
	if r.Whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(r.Part)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(r.Whole)), 2)
}

// Equal compares ratios by value: 1/2 equals 2/4.
func (r Ratio) Equal(o Ratio) bool {
	if r.Whole == 0 || o.Whole == 0 {
		return r.Whole == o.Whole && r.Part == o.Part
	}
	return r.Part*o.Whole == o.Part*r.Whole
}

func (r Ratio) String() string {
	return fmt.Sprintf("%d / %d (%s%%)", r.Part, r.Whole, r.Percent().StringFixed(2))
}

// MarshalJSON encodes the ratio as {"part":12,"whole":28,"percent":42.86}.
func (r Ratio) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("part", r.Part)
	w.Append("whole", r.Whole)
	w.Append("percent", json.Number(r.Percent().StringFixed(2)))
	return w.MarshalJSON()
}
