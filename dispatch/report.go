package dispatch

import (
	"time"

	"xdao.co/zkverify/model"
	"xdao.co/zkverify/proofsys"
)

// Mode selects what happens after a failed entry.
type Mode int

const (
	// ModeAbort stops at the first failure.
	ModeAbort Mode = iota
	// ModeCollect attempts every entry and reports all failures.
	ModeCollect
)

func (m Mode) String() string {
	if m == ModeCollect {
		return "collect"
	}
	return "abort"
}

// ParseMode accepts "abort" and "collect".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "abort":
		return ModeAbort, nil
	case "collect":
		return ModeCollect, nil
	default:
		return 0, model.ConfigError("dispatch mode", "unknown mode "+s, nil)
	}
}

// Status is the outcome of one matrix entry.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusNotFound  Status = "not_found"
	StatusRejected  Status = "rejected"
	StatusFailed    Status = "failed"
)

type Outcome struct {
	Entry  proofsys.Entry
	Status Status
	// Artifact and ContentID are empty when no artifact was found.
	Artifact  string
	ContentID string
	// Result is the contract response, decoded as UTF-8.
	Result string
	// Reason explains a rejection.
	Reason   string
	Duration time.Duration
	Err      error
}

// Report lists outcomes in dispatch order.
type Report struct {
	Outcomes []Outcome
}

func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Lookup returns the outcome for protocol/curve, if that entry was reached.
func (r *Report) Lookup(protocol model.Protocol, curve string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Entry.Protocol == protocol && o.Entry.Curve == curve {
			return o, true
		}
	}
	return Outcome{}, false
}
