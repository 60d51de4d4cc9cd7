// Package report derives per-entry timing and summary statistics from a
// finished capture session.
package report

import (
	"fmt"
	"math"
	"time"

	"straincap/capture"
)

// Entry is a captured row with its position and the time since the
// previous row.
type Entry struct {
	capture.DataRow
	Sample          int     `json:"sample"`
	EntryIntervalMs float64 `json:"entry_interval_ms"`
}

type Summary struct {
	Label           string        `json:"label,omitempty"`
	Samples         int           `json:"samples"`
	SamplingTotalS  float64       `json:"sampling_total_s"`
	SampleMsAvg     float64       `json:"sample_ms_avg"`
	SampleMsMin     int64         `json:"sample_ms_min"`
	SampleMsMax     int64         `json:"sample_ms_max"`
	RawHigh         int64         `json:"raw_high"`
	RawLow          int64         `json:"raw_low"`
	StrainHighUE    float64       `json:"strain_high_uE"`
	StrainLowUE     float64       `json:"strain_low_uE"`
	AvgRawStep      float64       `json:"avg_variation_raw_step"`
	AvgStrainStepUE float64       `json:"avg_variation_strain_step_uE"`
	WallSpan        time.Duration `json:"wall_span_ns"`
	StopSent        bool          `json:"stop_sent"`
	EndReason       string        `json:"end_reason"`
	Checksum        string        `json:"checksum"`
	GeneratedAt     time.Time     `json:"generated_at"`
}

type Report struct {
	Entries []Entry `json:"entries"`
	Summary Summary `json:"summary"`
}

// Build computes the report for s. The session is guaranteed non-empty by
// the capture engine.
func Build(s *capture.Session, label string) *Report {
	rows := s.Rows()
	return &Report{
		Entries: Entries(rows),
		Summary: Summarize(rows, s, label),
	}
}

// Entries numbers rows from 1 and computes the interval between
// consecutive elapsed timestamps. The first row falls back to its own
// sample time.
func Entries(rows []capture.DataRow) []Entry {
	out := make([]Entry, len(rows))
	for i, r := range rows {
		interval := float64(r.SampleMs)
		if i > 0 {
			interval = (r.ElapsedS - rows[i-1].ElapsedS) * 1000.0
		}
		out[i] = Entry{DataRow: r, Sample: i + 1, EntryIntervalMs: interval}
	}
	return out
}

func Summarize(rows []capture.DataRow, s *capture.Session, label string) Summary {
	sum := Summary{
		Label:       label,
		Samples:     len(rows),
		GeneratedAt: time.Now(),
	}
	if s != nil {
		sum.WallSpan = s.Span()
		sum.StopSent = s.StopSent()
		sum.EndReason = s.EndReason().String()
		sum.Checksum = fmt.Sprintf("%04x", s.Checksum())
	}
	if len(rows) == 0 {
		return sum
	}

	first := rows[0]
	sum.SamplingTotalS = rows[len(rows)-1].ElapsedS
	sum.SampleMsMin, sum.SampleMsMax = first.SampleMs, first.SampleMs
	sum.RawHigh, sum.RawLow = first.RawADC, first.RawADC
	sum.StrainHighUE, sum.StrainLowUE = first.StrainUE, first.StrainUE

	var msTotal, rawSteps, strainSteps float64
	for i, r := range rows {
		msTotal += float64(r.SampleMs)
		sum.SampleMsMin = min(sum.SampleMsMin, r.SampleMs)
		sum.SampleMsMax = max(sum.SampleMsMax, r.SampleMs)
		sum.RawHigh = max(sum.RawHigh, r.RawADC)
		sum.RawLow = min(sum.RawLow, r.RawADC)
		sum.StrainHighUE = math.Max(sum.StrainHighUE, r.StrainUE)
		sum.StrainLowUE = math.Min(sum.StrainLowUE, r.StrainUE)
		if i > 0 {
			rawSteps += math.Abs(float64(r.RawADC - rows[i-1].RawADC))
			strainSteps += math.Abs(r.StrainUE - rows[i-1].StrainUE)
		}
	}
	sum.SampleMsAvg = msTotal / float64(len(rows))
	if len(rows) > 1 {
		steps := float64(len(rows) - 1)
		sum.AvgRawStep = rawSteps / steps
		sum.AvgStrainStepUE = strainSteps / steps
	}
	return sum
}
