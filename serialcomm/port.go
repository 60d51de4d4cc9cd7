// serialcomm/port.go
package serialcomm

import (
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tarm/serial"
)

// OpenPort opens the device with a bounded read timeout. USB CDC boards drop
// off the bus for a moment after a reset, so a missing port is retried with
// exponential backoff until OpenTimeout elapses.
func OpenPort(cfg *SerialConfig) (Port, error) {
	if cfg.PortName == "" {
		return nil, fmt.Errorf("serial port name is required")
	}
	cfg.ApplyDefaults()

	portCfg := &serial.Config{
		Name:        cfg.PortName,
		Baud:        cfg.BaudRate,
		Parity:      serial.ParityNone,
		ReadTimeout: cfg.ReadTimeout,
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = cfg.OpenTimeout

	var port *serial.Port
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		p, err := serial.OpenPort(portCfg)
		if err != nil {
			log.Printf("open %s (attempt %d): %v", cfg.PortName, attempt, err)
			return err
		}
		port = p
		return nil
	}, bo)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.PortName, err)
	}

	log.Printf("opened %s at %d baud (read timeout %s)", cfg.PortName, cfg.BaudRate, cfg.ReadTimeout)
	return port, nil
}
