// fake-device plays the strain gauge monitor firmware on a serial port,
// typically one end of a virtual null-modem pair, so strain-capture can be
// exercised without the receiver board.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os/signal"
	"syscall"
	"time"

	"straincap/internal/devicesim"
	"straincap/serialcomm"
)

func parseTare(s string) (devicesim.TareBehavior, error) {
	switch s {
	case "ok":
		return devicesim.TareSucceeds, nil
	case "fail":
		return devicesim.TareFails, nil
	case "none":
		return devicesim.TareNoResult, nil
	case "silent":
		return devicesim.TareSilent, nil
	}
	return 0, fmt.Errorf("unknown tare behaviour %q (want ok, fail, none or silent)", s)
}

// writeChunked sends data in small pieces with a pause between them, the
// way a slow UART bridge delivers it, so the receiver has to reassemble
// lines split across reads.
func writeChunked(port io.Writer, data []byte, chunkSize int, pause time.Duration) error {
	if chunkSize <= 0 {
		chunkSize = len(data)
	}
	for i := 0; i < len(data); i += chunkSize {
		end := min(i+chunkSize, len(data))
		if _, err := port.Write(data[i:end]); err != nil {
			return fmt.Errorf("write chunk %d: %w", i/chunkSize+1, err)
		}
		if pause > 0 && end < len(data) {
			time.Sleep(pause)
		}
	}
	return nil
}

func main() {
	portName := flag.String("port", "", "Serial port to serve (example: /dev/pts/3 or COM6)")
	baud := flag.Int("baud", serialcomm.DefaultBaudRate, "Baud rate")
	interval := flag.Duration("interval", 100*time.Millisecond, "Time between monitor rows")
	tare := flag.String("tare", "ok", "Tare outcome: ok, fail, none or silent")
	tareDelay := flag.Duration("tare-delay", 1500*time.Millisecond, "Time the tare takes")
	maxRows := flag.Int("max-rows", 0, "Stop streaming after this many rows (0 streams until stopped)")
	endAfterRows := flag.Bool("end-after-rows", false, "Send the end marker once max-rows rows were sent")
	ignoreStop := flag.Bool("ignore-stop", false, "Ignore the stop command, like a wedged firmware")
	chunk := flag.Int("chunk", 20, "Bytes per serial write (0 writes whole buffers)")
	chunkPause := flag.Duration("chunk-pause", 2*time.Millisecond, "Pause between chunks")
	flag.Parse()

	tareBehavior, err := parseTare(*tare)
	if err != nil {
		log.Fatalf("fake-device: %v", err)
	}

	port, err := serialcomm.OpenPort(&serialcomm.SerialConfig{
		PortName:    *portName,
		BaudRate:    *baud,
		ReadTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("fake-device: %v", err)
	}
	defer port.Close()

	dev := devicesim.New(devicesim.Config{
		ReadTimeout:  100 * time.Millisecond,
		Tare:         tareBehavior,
		TareDelay:    *tareDelay,
		Boot:         []string{"Receiver firmware (emulated) ready"},
		RowInterval:  *interval,
		MaxRows:      *maxRows,
		EndAfterRows: *endAfterRows,
		IgnoreStop:   *ignoreStop,
		Clock:        devicesim.RealClock{},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// host -> firmware
	go func() {
		buf := make([]byte, 64)
		for ctx.Err() == nil {
			n, err := port.Read(buf)
			if n > 0 {
				log.Printf("command %q", buf[:n])
				_, _ = dev.Write(buf[:n])
			}
			if err != nil && !errors.Is(err, io.EOF) {
				log.Printf("read host: %v", err)
				stop()
				return
			}
		}
	}()

	log.Printf("emulating monitor firmware on %s", *portName)
	// firmware -> host
	out := make([]byte, 1024)
	for ctx.Err() == nil {
		n, err := dev.Read(out)
		if err != nil && !errors.Is(err, io.EOF) {
			log.Fatalf("fake-device: %v", err)
		}
		if n == 0 {
			continue
		}
		if err := writeChunked(port, out[:n], *chunk, *chunkPause); err != nil {
			log.Printf("write host: %v", err)
			return
		}
	}
	log.Printf("stopped after %d rows", dev.RowsSent())
}
