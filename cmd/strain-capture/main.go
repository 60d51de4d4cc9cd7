// strain-capture tares the strain gauge receiver, records one monitor
// session over the serial link and prints a summary of the samples.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"straincap/capture"
	"straincap/config"
	"straincap/metrics"
	"straincap/publish"
	"straincap/report"
	"straincap/serialcomm"
)

type options struct {
	jsonOut bool
	cfg     *config.Config
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("strain-capture", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML config file (default: ./straincap.yaml if present)")
	port := fs.String("port", "", "Serial port (example: /dev/ttyUSB0 or COM7)")
	baud := fs.Int("baud", serialcomm.DefaultBaudRate, "Baud rate")
	duration := fs.Duration("duration", 0, "Session length before a graceful stop (0 waits for the device)")
	timeout := fs.Duration("timeout", 0, "Hard ceiling for the session")
	tareTimeout := fs.Duration("tare-timeout", capture.DefaultTareTimeout, "How long to wait for the tare result")
	label := fs.String("label", "", "Label stored with the summary")
	jsonOut := fs.Bool("json", false, "Write the full report as JSON to stdout")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	broker := fs.String("mqtt", "", "MQTT broker URL for publishing (example: tcp://localhost:1883)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	// explicit flags win over file and environment
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Serial.Port = *port
		case "baud":
			cfg.Serial.Baud = *baud
		case "duration":
			cfg.Capture.Duration = *duration
		case "timeout":
			cfg.Capture.Timeout = *timeout
		case "tare-timeout":
			cfg.Capture.TareTimeout = *tareTimeout
		case "label":
			cfg.Label = *label
		case "metrics-addr":
			cfg.Metrics.Addr = *metricsAddr
		case "mqtt":
			cfg.MQTT.Broker = *broker
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &options{jsonOut: *jsonOut, cfg: cfg}, nil
}

func run(ctx context.Context, opts *options, stdout io.Writer) error {
	cfg := opts.cfg

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.NewCaptureMetrics(reg)
	if cfg.Metrics.Addr != "" {
		metrics.Serve(ctx, cfg.Metrics.Addr, reg)
	}

	var observers []capture.LineObserver
	if cfg.Echo {
		observers = append(observers, capture.EchoObserver)
	}

	var pub *publish.Publisher
	if cfg.MQTT.Broker != "" {
		p, err := publish.Connect(publish.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		})
		if err != nil {
			return err
		}
		defer p.Close()
		pub = p
		if cfg.MQTT.MirrorLines {
			observers = append(observers, pub.LineObserver())
		}
	}
	observer := capture.Observers(observers...)

	serialCfg := &serialcomm.SerialConfig{
		PortName:    cfg.Serial.Port,
		BaudRate:    cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeout,
		OpenTimeout: cfg.Serial.OpenTimeout,
	}
	port, err := serialcomm.OpenPort(serialCfg)
	if err != nil {
		return err
	}
	defer port.Close()

	// drop the boot banner the board prints after the port opens
	if err := port.Flush(); err != nil {
		log.Printf("flush %s: %v", cfg.Serial.Port, err)
	}
	lines := serialcomm.NewLineReader(port, serialCfg.MaxLineLength)

	session, err := capture.RunSession(ctx, port, lines,
		capture.TareConfig{
			MaxWait:  cfg.Capture.TareTimeout,
			Observer: observer,
			Metrics:  m,
		},
		capture.CaptureConfig{
			Duration: cfg.Capture.Duration,
			Timeout:  cfg.Capture.Timeout,
			Observer: observer,
			Metrics:  m,
		})
	if err != nil {
		return err
	}

	rep := report.Build(session, cfg.Label)
	logSummary(rep.Summary)

	if opts.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if pub != nil {
		if err := pub.PublishSummary(rep.Summary); err != nil {
			return err
		}
		log.Printf("summary published to %s", pub.SummaryTopic())
	}
	return nil
}

func logSummary(s report.Summary) {
	log.Printf("session closed by %s after %s (stop sent: %t)", s.EndReason, s.WallSpan.Round(time.Millisecond), s.StopSent)
	log.Printf("samples: %d over %.3fs, sample ms avg %.2f [%d..%d]", s.Samples, s.SamplingTotalS, s.SampleMsAvg, s.SampleMsMin, s.SampleMsMax)
	log.Printf("raw adc: %d..%d, avg step %.2f", s.RawLow, s.RawHigh, s.AvgRawStep)
	log.Printf("strain: %.2f..%.2f uE, avg step %.2f uE", s.StrainLowUE, s.StrainHighUE, s.AvgStrainStepUE)
	log.Printf("checksum: %s", s.Checksum)
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("strain-capture: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		stop()
		log.Fatalf("strain-capture: %v", err)
	}
}
