package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"straincap/serialcomm"
)

// State is the position of the capture state machine.
type State int

const (
	StateAwaitingStart State = iota
	StateCollecting
	StateStopping
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingStart:
		return "awaiting-start"
	case StateCollecting:
		return "collecting"
	case StateStopping:
		return "stopping"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type CaptureConfig struct {
	// Duration is the preferred session length, measured from the start
	// marker. Zero disables the graceful auto-stop.
	Duration time.Duration
	// Timeout is the hard ceiling measured from the monitor command.
	Timeout  time.Duration
	Observer LineObserver
	Metrics  Metrics
	Clock    Clock
}

func (c *CaptureConfig) applyDefaults() {
	if c.Observer == nil {
		c.Observer = nopObserver
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// Engine drives one monitor session over an already tared device.
type Engine struct {
	port  serialcomm.Port
	lines serialcomm.LineSource
	cfg   CaptureConfig

	state     State
	used      bool
	commandAt time.Time
	startedAt time.Time
	stopSent  bool
	endReason EndReason
	rows      []DataRow
}

func NewEngine(port serialcomm.Port, lines serialcomm.LineSource, cfg CaptureConfig) (*Engine, error) {
	if cfg.Timeout <= 0 {
		return nil, errors.New("capture timeout must be positive")
	}
	if cfg.Duration < 0 {
		return nil, errors.New("capture duration must not be negative")
	}
	cfg.applyDefaults()
	return &Engine{
		port:  port,
		lines: lines,
		cfg:   cfg,
		state: StateAwaitingStart,
		rows:  make([]DataRow, 0, 1024),
	}, nil
}

func (e *Engine) State() State { return e.state }

// Run flushes stale input, starts monitoring and reads until the session
// ends. It fails with ErrEmptySession when no row was captured.
func (e *Engine) Run(ctx context.Context) (*Session, error) {
	if e.used {
		return nil, errors.New("capture engine already ran")
	}
	e.used = true

	if err := e.port.Flush(); err != nil {
		return nil, e.fail(OutcomeIOError, fmt.Errorf("flush stale input: %w", err))
	}
	e.lines.Reset()

	if err := serialcomm.SendCommand(e.port, serialcomm.CmdMonitor); err != nil {
		return nil, e.fail(OutcomeIOError, err)
	}
	e.commandAt = e.cfg.Clock()
	log.Println("Sent 'm' command to firmware. Waiting for monitoring output...")

	for e.state != StateDone {
		if err := ctx.Err(); err != nil {
			if e.state == StateCollecting {
				// leave the firmware idle rather than streaming
				_ = e.requestStop()
			}
			return nil, e.fail(OutcomeCanceled, err)
		}
		if err := e.onTick(e.cfg.Clock()); err != nil {
			return nil, e.fail(OutcomeIOError, err)
		}
		if e.state == StateDone {
			break
		}

		line, err := e.lines.ReadLine()
		if err != nil {
			return nil, e.fail(OutcomeIOError, fmt.Errorf("read monitor output: %w", err))
		}
		if line == "" {
			continue
		}

		e.cfg.Metrics.LineReceived()
		e.cfg.Observer(line)
		e.onLine(line, e.cfg.Clock())
	}

	endedAt := e.cfg.Clock()
	if len(e.rows) == 0 {
		return nil, e.fail(OutcomeEmpty, fmt.Errorf("%w (session closed by %s)", ErrEmptySession, e.endReason))
	}
	e.cfg.Metrics.SessionFinished(OutcomeOK, len(e.rows))

	startedAt := e.startedAt
	if startedAt.IsZero() {
		startedAt = e.commandAt
	}
	return &Session{
		rows:      e.rows,
		startedAt: startedAt,
		endedAt:   endedAt,
		stopSent:  e.stopSent,
		endReason: e.endReason,
	}, nil
}

// onTick applies the deadline rules. The hard timeout requests a stop the
// first time it fires during collection and gives up the next time round;
// before the start marker there is nothing to stop, so it gives up at once.
func (e *Engine) onTick(now time.Time) error {
	hardExpired := now.Sub(e.commandAt) > e.cfg.Timeout

	switch e.state {
	case StateAwaitingStart:
		if hardExpired {
			log.Println("Timeout reached before monitoring started.")
			e.finish(EndTimeout)
		}
	case StateCollecting:
		if hardExpired {
			log.Println("Timeout reached. Sending stop command.")
			return e.requestStop()
		}
		if e.cfg.Duration > 0 && now.Sub(e.startedAt) >= e.cfg.Duration {
			log.Println("Duration reached. Sending stop command.")
			return e.requestStop()
		}
	case StateStopping:
		if hardExpired {
			log.Println("Timeout reached after stop request. Giving up.")
			e.finish(EndTimeout)
		}
	}
	return nil
}

// onLine classifies one received line. Markers take precedence over the
// data grammar, and nothing is parsed before the start marker.
func (e *Engine) onLine(line string, now time.Time) {
	marker := classifySession(line)

	switch e.state {
	case StateAwaitingStart:
		if marker == MarkerStart {
			e.startedAt = now
			e.state = StateCollecting
			return
		}
		e.cfg.Metrics.LineIgnored()
	case StateCollecting, StateStopping:
		switch marker {
		case MarkerEnd:
			e.finish(EndMarker)
		case MarkerStopped:
			e.finish(EndStopped)
		case MarkerStart:
			e.cfg.Metrics.LineIgnored()
		default:
			if row, ok := ParseRow(line); ok {
				e.rows = append(e.rows, row)
				e.cfg.Metrics.RowParsed()
				return
			}
			e.cfg.Metrics.LineIgnored()
		}
	}
}

// requestStop writes the stop command at most once per session.
func (e *Engine) requestStop() error {
	if e.stopSent {
		return nil
	}
	if err := serialcomm.SendCommand(e.port, serialcomm.CmdStop); err != nil {
		return err
	}
	e.stopSent = true
	e.state = StateStopping
	e.cfg.Metrics.StopSent()
	return nil
}

func (e *Engine) finish(reason EndReason) {
	e.endReason = reason
	e.state = StateDone
}

func (e *Engine) fail(outcome string, err error) error {
	e.cfg.Metrics.SessionFinished(outcome, len(e.rows))
	return err
}

// RunSession performs the tare handshake and then captures one session.
// The port stays open; closing it is the caller's responsibility.
func RunSession(ctx context.Context, port serialcomm.Port, lines serialcomm.LineSource, tare TareConfig, capture CaptureConfig) (*Session, error) {
	if err := Tare(ctx, port, lines, tare); err != nil {
		if capture.Metrics != nil {
			capture.Metrics.SessionFinished(OutcomeTareFailed, 0)
		}
		return nil, fmt.Errorf("tare: %w", err)
	}

	engine, err := NewEngine(port, lines, capture)
	if err != nil {
		return nil, err
	}
	session, err := engine.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	return session, nil
}
