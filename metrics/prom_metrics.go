package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CaptureMetrics implements capture.Metrics on prometheus collectors.
type CaptureMetrics struct {
	linesReceived prometheus.Counter
	rowsParsed    prometheus.Counter
	linesIgnored  prometheus.Counter
	stopCommands  prometheus.Counter
	sessions      *prometheus.CounterVec
	sessionRows   prometheus.Gauge
}

func NewCaptureMetrics(reg prometheus.Registerer) *CaptureMetrics {
	m := &CaptureMetrics{
		linesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "straincap_lines_received_total",
			Help: "Non-empty lines read from the device.",
		}),
		rowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "straincap_rows_parsed_total",
			Help: "Lines accepted as monitor data rows.",
		}),
		linesIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "straincap_lines_ignored_total",
			Help: "Lines that were neither markers nor data rows.",
		}),
		stopCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "straincap_stop_commands_total",
			Help: "Stop commands written to the device.",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "straincap_sessions_total",
			Help: "Finished capture attempts by outcome.",
		}, []string{"outcome"}),
		sessionRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "straincap_session_rows",
			Help: "Rows collected by the most recent session.",
		}),
	}
	reg.MustRegister(m.linesReceived, m.rowsParsed, m.linesIgnored, m.stopCommands, m.sessions, m.sessionRows)
	return m
}

func (m *CaptureMetrics) LineReceived() { m.linesReceived.Inc() }
func (m *CaptureMetrics) RowParsed()    { m.rowsParsed.Inc() }
func (m *CaptureMetrics) LineIgnored()  { m.linesIgnored.Inc() }
func (m *CaptureMetrics) StopSent()     { m.stopCommands.Inc() }

func (m *CaptureMetrics) SessionFinished(outcome string, rows int) {
	m.sessions.WithLabelValues(outcome).Inc()
	m.sessionRows.Set(float64(rows))
}

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Printf("metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("ERROR: metrics server: %v", err)
		}
	}()
}
