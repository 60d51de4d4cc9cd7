package capture

// Metrics is the instrumentation the capture loop reports into.
type Metrics interface {
	LineReceived()
	RowParsed()
	LineIgnored()
	StopSent()
	SessionFinished(outcome string, rows int)
}

// Session outcomes reported to Metrics.SessionFinished.
const (
	OutcomeOK         = "ok"
	OutcomeEmpty      = "empty"
	OutcomeTareFailed = "tare_failed"
	OutcomeIOError    = "io_error"
	OutcomeCanceled   = "canceled"
)

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) LineReceived()               {}
func (NopMetrics) RowParsed()                  {}
func (NopMetrics) LineIgnored()                {}
func (NopMetrics) StopSent()                   {}
func (NopMetrics) SessionFinished(string, int) {}
