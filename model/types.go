package model

// Protocol names a zero-knowledge proof system.
type Protocol string

const (
	Groth16 Protocol = "groth16"
	Plonk   Protocol = "plonk"
)

func (p Protocol) String() string { return string(p) }

// Phase is the kind of gateway call a deadline or failure applies to.
type Phase string

const (
	PhaseEvaluate     Phase = "evaluate"
	PhaseEndorse      Phase = "endorse"
	PhaseSubmit       Phase = "submit"
	PhaseCommitStatus Phase = "commitStatus"
)

func (p Phase) String() string { return string(p) }
