package capture

import (
	"bytes"
	"time"

	"straincap/serialcomm"
)

// EndReason records which condition closed the session.
type EndReason int

const (
	EndMarker EndReason = iota
	EndStopped
	EndTimeout
)

func (r EndReason) String() string {
	switch r {
	case EndMarker:
		return "end-marker"
	case EndStopped:
		return "monitoring-stopped"
	case EndTimeout:
		return "hard-timeout"
	default:
		return "unknown"
	}
}

// Session is a finished, non-empty capture. It is never modified after
// the engine hands it out.
type Session struct {
	rows      []DataRow
	startedAt time.Time
	endedAt   time.Time
	stopSent  bool
	endReason EndReason
}

// Rows returns a copy of the samples in arrival order.
func (s *Session) Rows() []DataRow {
	out := make([]DataRow, len(s.rows))
	copy(out, s.rows)
	return out
}

func (s *Session) Len() int { return len(s.rows) }

func (s *Session) Row(i int) DataRow { return s.rows[i] }

// StartedAt is when the session-start marker was received.
func (s *Session) StartedAt() time.Time { return s.startedAt }

func (s *Session) EndedAt() time.Time { return s.endedAt }

// Span is the wall-clock time between the start marker and the end of the
// read loop.
func (s *Session) Span() time.Duration { return s.endedAt.Sub(s.startedAt) }

func (s *Session) StopSent() bool { return s.stopSent }

func (s *Session) EndReason() EndReason { return s.endReason }

// Checksum is CRC16/MODBUS over the rows rendered one per line, so two
// captures with identical data share a digest.
func (s *Session) Checksum() uint16 {
	var buf bytes.Buffer
	for _, r := range s.rows {
		buf.WriteString(r.String())
		buf.WriteByte('\n')
	}
	return serialcomm.Checksum(buf.Bytes())
}
