package markup

import (
	"strings"
	"time"

	"chatvault/internal/model"
)

// Layouts the export tool is known to emit, in rough order of likelihood.
var timestampLayouts = []string{
	"02-Jan-06 03:04 PM",
	"02-Jan-06 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"1/2/2006 3:04 PM",
	"02/01/2006 15:04",
}

// ParseTimestamp normalizes a timestamp marker's text to UTC. Absent or
// unparseable input yields the epoch sentinel rather than an error; a wrong
// timestamp should never abort a run.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.EpochSentinel
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return model.EpochSentinel
}
