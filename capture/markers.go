package capture

import "strings"

// Firmware markers. All are matched by substring so that log noise around
// them on the same line is tolerated. Matching is case-sensitive.
const (
	MarkerTareBanner  = "=== TARING STRAIN GAUGE ==="
	MarkerTareSuccess = "Strain gauge zeroed successfully!"
	MarkerTareFailure = "Failed to zero strain gauge!"
	MarkerTareClose   = "==========================="

	MarkerSessionStart = "[M_SESSION_START]"
	MarkerSessionEnd   = "[M_SESSION_END]"
	PhraseStopped      = "Monitoring stopped. Collected"
)

// Marker is the protocol meaning of a line, if any.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerStart
	MarkerEnd
	MarkerStopped
)

func (m Marker) String() string {
	switch m {
	case MarkerStart:
		return "session-start"
	case MarkerEnd:
		return "session-end"
	case MarkerStopped:
		return "monitoring-stopped"
	default:
		return "none"
	}
}

// classifySession reports the session marker carried by line. Markers are
// tested before the data grammar, so a line carrying both is a marker.
func classifySession(line string) Marker {
	switch {
	case strings.Contains(line, MarkerSessionEnd):
		return MarkerEnd
	case strings.Contains(line, PhraseStopped):
		return MarkerStopped
	case strings.Contains(line, MarkerSessionStart):
		return MarkerStart
	default:
		return MarkerNone
	}
}
