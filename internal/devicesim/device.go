// Package devicesim emulates the strain gauge monitor firmware well enough
// to exercise the capture protocol without hardware.
package devicesim

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"straincap/capture"
)

type TareBehavior int

const (
	TareSucceeds TareBehavior = iota
	TareFails
	TareNoResult
	TareSilent
)

const sleepStep = 20 * time.Millisecond

type Config struct {
	// ReadTimeout is how long Read waits for output before returning empty.
	ReadTimeout time.Duration
	Tare        TareBehavior
	TareDelay   time.Duration

	// Boot lines are pending as soon as the device is created.
	Boot []string
	// PreStart lines follow the monitor command, before the start marker.
	PreStart []string
	// SilentMonitor ignores the monitor command entirely.
	SilentMonitor bool

	RowInterval time.Duration
	// MaxRows stops the row stream after that many rows; 0 streams forever.
	MaxRows int
	// EndAfterRows emits the end marker once MaxRows rows were sent.
	EndAfterRows bool
	// Row renders row i (0-based). Defaults to a synthetic ramp.
	Row func(i int) string

	IgnoreStop bool
	StopDelay  time.Duration
	// StopPhraseOnly answers a stop with the summary phrase and no end marker.
	StopPhraseOnly bool

	Clock Clock
}

type pendingLine struct {
	at   time.Time
	text string
}

// Device implements serialcomm.Port. Commands written to it schedule
// output lines that Read hands back once their time has come.
type Device struct {
	cfg Config

	mu         sync.Mutex
	pending    []pendingLine
	out        []byte
	streaming  bool
	nextRow    time.Time
	rowsSent   int
	monitoring bool
	commands   []byte
	flushes    int
	closed     bool
}

func New(cfg Config) *Device {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.RowInterval <= 0 {
		cfg.RowInterval = 100 * time.Millisecond
	}
	if cfg.Row == nil {
		cfg.Row = DefaultRow(cfg.RowInterval)
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	d := &Device{cfg: cfg}
	now := cfg.Clock.Now()
	for _, l := range cfg.Boot {
		d.pending = append(d.pending, pendingLine{at: now, text: l})
	}
	return d
}

// DefaultRow renders a slowly rising synthetic signal.
func DefaultRow(interval time.Duration) func(i int) string {
	return func(i int) string {
		row := capture.DataRow{
			ElapsedS:    math.Round(float64(i+1)*interval.Seconds()*1000) / 1000,
			SampleMs:    interval.Milliseconds(),
			RawADC:      int64(512 + 3*i),
			AvgADC:      int64(510 + 2*i),
			FilteredADC: int64(509 + i),
			ZeroedADC:   int64(3 + i),
			StrainUE:    math.Round((1.25+0.15*float64(i))*100) / 100,
		}
		return row.String()
	}
}

func (d *Device) Read(p []byte) (int, error) {
	clock := d.cfg.Clock
	deadline := clock.Now().Add(d.cfg.ReadTimeout)

	for {
		now := clock.Now()

		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return 0, io.ErrClosedPipe
		}
		d.promote(now)
		if len(d.out) > 0 {
			n := copy(p, d.out)
			d.out = d.out[n:]
			d.mu.Unlock()
			return n, nil
		}
		next, ok := d.nextDue()
		d.mu.Unlock()

		if !now.Before(deadline) {
			// tarm/serial reports an expired read timeout as io.EOF.
			return 0, io.EOF
		}
		wait := deadline.Sub(now)
		if ok && next.Sub(now) < wait {
			wait = next.Sub(now)
		}
		if wait > sleepStep {
			wait = sleepStep
		}
		clock.Sleep(wait)
	}
}

func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, io.ErrClosedPipe
	}

	now := d.cfg.Clock.Now()
	for _, c := range p {
		d.commands = append(d.commands, c)
		switch c {
		case 'z', 'Z':
			d.tare(now)
		case 'm', 'M':
			d.startMonitor(now)
		case 'x', 'X':
			d.stop(now)
		case '\n', '\r':
		default:
			d.emit(now, fmt.Sprintf("Unknown command: %c", c))
		}
	}
	return len(p), nil
}

// Flush drops output that has already "arrived" and not been read.
func (d *Device) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.promote(d.cfg.Clock.Now())
	d.out = d.out[:0]
	d.flushes++
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Commands returns every byte written to the device so far.
func (d *Device) Commands() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.commands)
}

// StopRequests counts stop command bytes received.
func (d *Device) StopRequests() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.commands {
		if c == 'x' || c == 'X' {
			n++
		}
	}
	return n
}

func (d *Device) Flushes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushes
}

func (d *Device) RowsSent() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rowsSent
}

func (d *Device) tare(now time.Time) {
	if d.cfg.Tare == TareSilent {
		return
	}
	d.emit(now, capture.MarkerTareBanner)
	d.emit(now, "Averaging 10 readings, keep the gauge unloaded...")
	at := now.Add(d.cfg.TareDelay)
	switch d.cfg.Tare {
	case TareSucceeds:
		d.emit(at, capture.MarkerTareSuccess)
	case TareFails:
		d.emit(at, capture.MarkerTareFailure)
	}
	d.emit(at, capture.MarkerTareClose)
}

func (d *Device) startMonitor(now time.Time) {
	if d.cfg.SilentMonitor {
		return
	}
	for _, l := range d.cfg.PreStart {
		d.emit(now, l)
	}
	d.emit(now, capture.MarkerSessionStart)
	d.emit(now, "elapsed_s,sample_ms,raw_adc,avg_20,filtered_20,zeroed_adc,strain_uE")
	d.rowsSent = 0
	if d.cfg.EndAfterRows && d.cfg.MaxRows == 0 {
		d.emit(now, capture.MarkerSessionEnd)
		return
	}
	d.monitoring = true
	d.streaming = true
	d.nextRow = now.Add(d.cfg.RowInterval)
}

func (d *Device) stop(now time.Time) {
	if d.cfg.IgnoreStop || !d.monitoring {
		return
	}
	d.streaming = false
	d.monitoring = false
	at := now.Add(d.cfg.StopDelay)
	if !d.cfg.StopPhraseOnly {
		d.emit(at, capture.MarkerSessionEnd)
	}
	d.emit(at, fmt.Sprintf("%s %d samples.", capture.PhraseStopped, d.rowsSent))
}

// emit schedules text for delivery at at, after anything already due by
// then.
func (d *Device) emit(at time.Time, text string) {
	i := len(d.pending)
	for i > 0 && d.pending[i-1].at.After(at) {
		i--
	}
	d.pending = append(d.pending, pendingLine{})
	copy(d.pending[i+1:], d.pending[i:])
	d.pending[i] = pendingLine{at: at, text: text}
}

// promote moves every line due at or before now into the output buffer in
// time order, interleaving the row stream with scheduled lines.
func (d *Device) promote(now time.Time) {
	for {
		rowDue := d.streaming && !d.nextRow.After(now)
		lineDue := len(d.pending) > 0 && !d.pending[0].at.After(now)
		if !rowDue && !lineDue {
			return
		}
		if lineDue && (!rowDue || !d.pending[0].at.After(d.nextRow)) {
			d.out = append(d.out, d.pending[0].text+"\n"...)
			d.pending = d.pending[1:]
			continue
		}
		d.out = append(d.out, d.cfg.Row(d.rowsSent)+"\n"...)
		d.rowsSent++
		d.nextRow = d.nextRow.Add(d.cfg.RowInterval)
		if d.cfg.MaxRows > 0 && d.rowsSent >= d.cfg.MaxRows {
			d.streaming = false
			if d.cfg.EndAfterRows {
				d.emit(now, capture.MarkerSessionEnd)
				d.monitoring = false
			}
		}
	}
}

func (d *Device) nextDue() (time.Time, bool) {
	var (
		next time.Time
		ok   bool
	)
	if len(d.pending) > 0 {
		next, ok = d.pending[0].at, true
	}
	if d.streaming && (!ok || d.nextRow.Before(next)) {
		next, ok = d.nextRow, true
	}
	return next, ok
}
