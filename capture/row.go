package capture

import (
	"regexp"
	"strconv"
	"strings"
)

// DataRow is one monitor sample as printed by the firmware.
type DataRow struct {
	ElapsedS    float64 `json:"elapsed_s"`
	SampleMs    int64   `json:"sample_ms"`
	RawADC      int64   `json:"raw_adc"`
	AvgADC      int64   `json:"avg_20"`
	FilteredADC int64   `json:"filtered_20"`
	ZeroedADC   int64   `json:"zeroed_adc"`
	StrainUE    float64 `json:"strain_uE"`
}

var rowPattern = regexp.MustCompile(
	`^\s*([0-9]+(?:\.[0-9]+)?)\s*,\s*([0-9]+)\s*,\s*(-?[0-9]+)\s*,\s*(-?[0-9]+)\s*,\s*(-?[0-9]+)\s*,\s*(-?[0-9]+)\s*,\s*(-?[0-9]+(?:\.[0-9]+)?)\s*$`,
)

// ParseRow matches line against the seven-field monitor grammar. Lines of
// any other shape are reported with ok=false.
func ParseRow(line string) (DataRow, bool) {
	m := rowPattern.FindStringSubmatch(line)
	if m == nil {
		return DataRow{}, false
	}

	var (
		row  DataRow
		err  error
		ints [5]int64
	)
	if row.ElapsedS, err = strconv.ParseFloat(m[1], 64); err != nil {
		return DataRow{}, false
	}
	for i := range ints {
		if ints[i], err = strconv.ParseInt(m[i+2], 10, 64); err != nil {
			return DataRow{}, false
		}
	}
	if row.StrainUE, err = strconv.ParseFloat(m[7], 64); err != nil {
		return DataRow{}, false
	}
	row.SampleMs, row.RawADC, row.AvgADC, row.FilteredADC, row.ZeroedADC = ints[0], ints[1], ints[2], ints[3], ints[4]
	return row, true
}

// String renders the row in the firmware's line format. ParseRow(r.String())
// yields r for any row with non-negative ElapsedS and SampleMs.
func (r DataRow) String() string {
	fields := []string{
		formatDecimal(r.ElapsedS),
		strconv.FormatInt(r.SampleMs, 10),
		strconv.FormatInt(r.RawADC, 10),
		strconv.FormatInt(r.AvgADC, 10),
		strconv.FormatInt(r.FilteredADC, 10),
		strconv.FormatInt(r.ZeroedADC, 10),
		formatDecimal(r.StrainUE),
	}
	return strings.Join(fields, ",")
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
