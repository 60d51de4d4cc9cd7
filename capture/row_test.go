package capture

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRow(t *testing.T) {
	row, ok := ParseRow("0.10,100,512,510,509,3,1.25")
	require.True(t, ok)
	assert.Equal(t, DataRow{
		ElapsedS:    0.10,
		SampleMs:    100,
		RawADC:      512,
		AvgADC:      510,
		FilteredADC: 509,
		ZeroedADC:   3,
		StrainUE:    1.25,
	}, row)
}

func TestParseRowToleratesFieldWhitespace(t *testing.T) {
	row, ok := ParseRow("  12 , 98 ,-4, -5 ,  -6,-7 , -0.5  ")
	require.True(t, ok)
	assert.Equal(t, 12.0, row.ElapsedS)
	assert.Equal(t, int64(98), row.SampleMs)
	assert.Equal(t, int64(-4), row.RawADC)
	assert.Equal(t, int64(-7), row.ZeroedADC)
	assert.Equal(t, -0.5, row.StrainUE)
}

func TestParseRowRejects(t *testing.T) {
	cases := map[string]string{
		"header":         "elapsed_s,sample_ms,raw_adc,avg_20,filtered_20,zeroed_adc,strain_uE",
		"six fields":     "0.10,100,512,510,509,3",
		"eight fields":   "0.10,100,512,510,509,3,1.25,9",
		"negative time":  "-0.10,100,512,510,509,3,1.25",
		"fractional ms":  "0.10,100.5,512,510,509,3,1.25",
		"fractional adc": "0.10,100,512.1,510,509,3,1.25",
		"trailing text":  "0.10,100,512,510,509,3,1.25 uE",
		"marker":         "[M_SESSION_START]",
		"empty":          "",
		"bare dot":       "0.,100,512,510,509,3,1.25",
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := ParseRow(line)
			assert.False(t, ok, line)
		})
	}
}

func TestDataRowRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		row := DataRow{
			ElapsedS:    math.Round(rng.Float64()*1e6) / 1e3,
			SampleMs:    rng.Int63n(10_000),
			RawADC:      rng.Int63n(1<<24) - 1<<23,
			AvgADC:      rng.Int63n(1<<24) - 1<<23,
			FilteredADC: rng.Int63n(1<<24) - 1<<23,
			ZeroedADC:   rng.Int63n(1<<24) - 1<<23,
			StrainUE:    (rng.Float64() - 0.5) * 2000,
		}
		parsed, ok := ParseRow(row.String())
		require.True(t, ok, row.String())
		assert.Equal(t, row, parsed)
	}
}

func TestDataRowStringIntegers(t *testing.T) {
	row := DataRow{ElapsedS: 3, SampleMs: 100, RawADC: -1, AvgADC: 0, FilteredADC: 2, ZeroedADC: -3, StrainUE: 4}
	assert.Equal(t, "3,100,-1,0,2,-3,4", row.String())
}
