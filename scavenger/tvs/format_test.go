package tvs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{name: "billions", value: 8_670_000_000, want: "$8.67B"},
		{name: "billions rounded half up", value: 8_675_000_000, want: "$8.68B"},
		{name: "exactly one billion", value: 1_000_000_000, want: "$1.00B"},
		{name: "millions", value: 850_000_000, want: "$850M"},
		{name: "millions rounded", value: 850_400_000, want: "$850M"},
		{name: "millions rounded up", value: 849_500_000, want: "$850M"},
		{name: "exactly one million", value: 1_000_000, want: "$1M"},
		{name: "small", value: 999, want: "$999"},
		{name: "small with separators", value: 12_345.6, want: "$12,346"},
		{name: "zero", value: 0, want: "$0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.value))
		})
	}
}

func TestShorthand(t *testing.T) {
	assert.Equal(t, "$8.67b", Shorthand(8_670_000_000))
	assert.Equal(t, "$0.85b", Shorthand(850_000_000))
}

func TestParseShorthand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{name: "billions lower", input: "$8.67b", want: 8_670_000_000},
		{name: "billions upper with text", input: "TVS: $8.67B secured", want: 8_670_000_000},
		{name: "millions with space", input: "$ 850 M", want: 850_000_000},
		{name: "thousands separators", input: "$1,234.5m", want: 1_234_500_000},
		{name: "no suffix", input: "$999", wantErr: true},
		{name: "no dollar", input: "8.67b", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseShorthand(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1)
		})
	}
}

func TestParseShorthand_roundTrip(t *testing.T) {
	values := []float64{8_670_000_000, 8_674_999_999, 1_000_000_000, 123_456_789_012}
	for _, v := range values {
		got, err := ParseShorthand(Shorthand(v))
		require.NoError(t, err)
		// two decimals of billions
		assert.InDelta(t, v, got, 5_000_000, "value %v", v)

		got, err = ParseShorthand(FormatValue(v))
		require.NoError(t, err)
		assert.InDelta(t, v, got, 5_000_000, "value %v", v)
	}
}

func TestFormatValue_millionsRoundTrip(t *testing.T) {
	values := []float64{850_000_000, 850_400_000, 1_000_000, 999_499_999}
	for _, v := range values {
		got, err := ParseShorthand(FormatValue(v))
		require.NoError(t, err)
		// whole millions
		assert.InDelta(t, v, got, 500_000, "value %v", v)
	}
}
