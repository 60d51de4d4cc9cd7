package capture

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"straincap/serialcomm"
)

const DefaultTareTimeout = 60 * time.Second

// Clock returns the current time. Tests substitute a manual clock.
type Clock func() time.Time

type TareConfig struct {
	// MaxWait bounds the whole exchange, measured from the tare command.
	MaxWait  time.Duration
	Observer LineObserver
	Metrics  Metrics
	Clock    Clock
}

func (c *TareConfig) applyDefaults() {
	if c.MaxWait <= 0 {
		c.MaxWait = DefaultTareTimeout
	}
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

// Tare asks the firmware to zero the strain gauge and waits for its verdict.
// Input buffers are left alone; clearing stale bytes is the caller's job.
func Tare(ctx context.Context, w io.Writer, lines serialcomm.LineSource, cfg TareConfig) error {
	cfg.applyDefaults()

	log.Println("Sending 'z' command to tare strain gauge before monitoring...")
	if err := serialcomm.SendCommand(w, serialcomm.CmdTare); err != nil {
		return err
	}

	start := cfg.Clock()
	sawBanner := false

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cfg.Clock().Sub(start) > cfg.MaxWait {
			return fmt.Errorf("%w (waited %s)", ErrTareTimeout, cfg.MaxWait)
		}

		line, err := lines.ReadLine()
		if err != nil {
			return fmt.Errorf("read tare response: %w", err)
		}
		if line == "" {
			continue
		}

		cfg.Metrics.LineReceived()
		cfg.Observer(line)

		if strings.Contains(line, MarkerTareBanner) {
			sawBanner = true
		}
		switch {
		case strings.Contains(line, MarkerTareSuccess):
			log.Println("Tare complete.")
			return nil
		case strings.Contains(line, MarkerTareFailure):
			return fmt.Errorf("%w: %q", ErrTareFailed, line)
		case sawBanner && strings.Contains(line, MarkerTareClose):
			return ErrTareEndedWithoutResult
		}
	}
}
