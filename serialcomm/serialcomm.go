// serialcomm/serialcomm.go
package serialcomm

import (
	"io"
	"time"
)

// Commands understood by the monitor firmware. Only the stop command is
// newline-terminated.
const (
	CmdTare    = "z"
	CmdMonitor = "m"
	CmdStop    = "x\n"
)

const (
	DefaultBaudRate      = 115200
	DefaultReadTimeout   = 500 * time.Millisecond
	DefaultMaxLineLength = 4096
	DefaultOpenTimeout   = 5 * time.Second
)

type SerialConfig struct {
	PortName    string
	BaudRate    int
	ReadTimeout time.Duration
	// MaxLineLength bounds the bytes buffered while waiting for a newline.
	MaxLineLength int
	// OpenTimeout bounds how long OpenPort keeps retrying a missing device.
	OpenTimeout time.Duration
}

// ApplyDefaults fills zero fields with the firmware defaults.
func (c *SerialConfig) ApplyDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.MaxLineLength == 0 {
		c.MaxLineLength = DefaultMaxLineLength
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
}

// Port is an open, bidirectional device link. Read must return within the
// configured read timeout even when the device is silent.
type Port interface {
	io.ReadWriteCloser
	// Flush discards buffered input and output.
	Flush() error
}

// LineSource yields one trimmed line per call, or "" when nothing complete
// arrived within one poll interval. Reset drops any partially received line.
type LineSource interface {
	ReadLine() (string, error)
	Reset()
}
