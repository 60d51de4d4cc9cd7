package capture

import (
	"bytes"
	"time"
)

type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

// scriptedLines hands out one scripted line per call and advances the clock
// by step each time, the way a device read with a timeout would. "" entries
// and an exhausted script are empty reads.
type scriptedLines struct {
	clock  *testClock
	step   time.Duration
	lines  []string
	err    error
	resets int
}

func (s *scriptedLines) ReadLine() (string, error) {
	s.clock.now = s.clock.now.Add(s.step)
	if len(s.lines) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", nil
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedLines) Reset() { s.resets++ }

type recordingPort struct {
	written  bytes.Buffer
	flushes  int
	writeErr error
}

func (p *recordingPort) Read([]byte) (int, error) { return 0, nil }

func (p *recordingPort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(b)
}

func (p *recordingPort) Flush() error {
	p.flushes++
	return nil
}

func (p *recordingPort) Close() error { return nil }

type countingMetrics struct {
	received int
	parsed   int
	ignored  int
	stops    int
	outcome  string
	rows     int
}

func (m *countingMetrics) LineReceived() { m.received++ }
func (m *countingMetrics) RowParsed()    { m.parsed++ }
func (m *countingMetrics) LineIgnored()  { m.ignored++ }
func (m *countingMetrics) StopSent()     { m.stops++ }

func (m *countingMetrics) SessionFinished(outcome string, rows int) {
	m.outcome = outcome
	m.rows = rows
}
