package buckets

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		r       Ratio
		want    string
		percent string
	}{
		{Ratio{12, 28}, "12 / 28 (42.86%)", "42.86"},
		{Ratio{28, 28}, "28 / 28 (100.00%)", "100"},
		{Ratio{1, 3}, "1 / 3 (33.33%)", "33.33"},
		{Ratio{0, 0}, "0 / 0 (0.00%)", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.String())
			assert.Equal(t, tt.percent, tt.r.Percent().String())
		})
	}
	assert.True(t, Ratio{1, 2}.Equal(Ratio{2, 4}))
	assert.False(t, Ratio{1, 2}.Equal(Ratio{2, 3}))
}

func TestRatio_MarshalJSON(t *testing.T) {
	got, err := json.Marshal(Ratio{12, 28})
	require.NoError(t, err)
	assert.Equal(t, `{"part":12,"whole":28,"percent":42.86}`, string(got))
}
