package gateway

import (
	"time"

	"xdao.co/zkverify/model"
)

// DeadlinePolicy holds the deadline offset of each gateway call kind.
// A deadline is always computed when the call is issued, so a slow call
// never extends the budget of the next one.
type DeadlinePolicy struct {
	Evaluate     time.Duration
	Endorse      time.Duration
	Submit       time.Duration
	CommitStatus time.Duration
}

// DefaultDeadlines returns the offsets used against a Fabric gateway peer.
func DefaultDeadlines() DeadlinePolicy {
	return DeadlinePolicy{
		Evaluate:     5 * time.Second,
		Endorse:      15 * time.Second,
		Submit:       5 * time.Second,
		CommitStatus: time.Minute,
	}
}

// Offset returns the configured offset for phase, or zero for an unknown phase.
func (p DeadlinePolicy) Offset(phase model.Phase) time.Duration {
	switch phase {
	case model.PhaseEvaluate:
		return p.Evaluate
	case model.PhaseEndorse:
		return p.Endorse
	case model.PhaseSubmit:
		return p.Submit
	case model.PhaseCommitStatus:
		return p.CommitStatus
	default:
		return 0
	}
}

// Deadline returns now plus the phase offset.
func (p DeadlinePolicy) Deadline(phase model.Phase, now time.Time) time.Time {
	return now.Add(p.Offset(phase))
}
