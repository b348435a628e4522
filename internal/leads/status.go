package leads

import (
	"fmt"
	"strings"
)

// Status is the pipeline stage of a lead. Any status may move to any other;
// there is no enforced transition graph.
type Status string

const (
	StatusNew         Status = "new"
	StatusContacted   Status = "contacted"
	StatusQualified   Status = "qualified"
	StatusProposal    Status = "proposal"
	StatusNegotiation Status = "negotiation"
	StatusClosed      Status = "closed"
	StatusLost        Status = "lost"
)

var allStatuses = []Status{
	StatusNew,
	StatusContacted,
	StatusQualified,
	StatusProposal,
	StatusNegotiation,
	StatusClosed,
	StatusLost,
}

// ParseStatus validates and returns a lead status. Matching is
// case-insensitive.
func ParseStatus(s string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for _, st := range allStatuses {
		if string(st) == normalized {
			return st, nil
		}
	}
	return "", fmt.Errorf("leads: unknown status %q", s)
}

func (s Status) Valid() bool {
	for _, st := range allStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }
