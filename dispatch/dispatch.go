// Package dispatch walks the proof system matrix and submits one verification
// transaction per entry that has an artifact.
package dispatch

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"xdao.co/zkverify/artifact"
	"xdao.co/zkverify/metrics"
	"xdao.co/zkverify/model"
	"xdao.co/zkverify/proofsys"
)

// Finder locates the artifact for one matrix entry. A miss is
// artifact.ErrNotFound.
type Finder interface {
	Find(protocol model.Protocol, curve string) (*artifact.ProofArtifact, error)
}

// Submitter submits a transaction and returns its result.
type Submitter interface {
	Submit(ctx context.Context, fn string, args ...string) ([]byte, error)
}

// Precheck verifies a proof locally before it is submitted.
type Precheck func(protocol model.Protocol, curve, proof, vk, witnessPublic string) error

// Metrics receives one call per matrix entry.
type Metrics interface {
	Outcome(protocol, curve, status string)
	SubmitDuration(protocol, curve string, d time.Duration)
}

// Dispatcher runs the matrix sequentially in catalog order.
type Dispatcher struct {
	Finder    Finder
	Submitter Submitter
	// Precheck is optional. A failing precheck rejects the entry without
	// submitting it.
	Precheck Precheck
	Mode     Mode
	Metrics  Metrics
	Log      zerolog.Logger
	// Entries defaults to proofsys.Matrix().
	Entries []proofsys.Entry
	Now     func() time.Time
}

// Run dispatches every entry. The report is returned on every path, partial
// when the run stops early.
//
// In ModeAbort the first transaction or artifact error ends the run and is
// returned. In ModeCollect every entry is attempted and all failures are
// returned together.
func (d *Dispatcher) Run(ctx context.Context) (*Report, error) {
	entries := d.Entries
	if entries == nil {
		entries = proofsys.Matrix()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	m := d.Metrics
	if m == nil {
		m = metrics.NoopCollector{}
	}
	log := d.Log.With().Str("component", "dispatch").Str("mode", d.Mode.String()).Logger()

	report := &Report{}
	var errs *multierror.Error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		out := d.dispatch(ctx, log, entry, now)
		report.Outcomes = append(report.Outcomes, out)
		m.Outcome(string(entry.Protocol), entry.Curve, string(out.Status))
		if out.Status == StatusSubmitted {
			m.SubmitDuration(string(entry.Protocol), entry.Curve, out.Duration)
		}
		if out.Err == nil {
			continue
		}
		if d.Mode == ModeAbort {
			return report, out.Err
		}
		errs = multierror.Append(errs, out.Err)
	}
	log.Info().
		Int("submitted", report.Count(StatusSubmitted)).
		Int("not_found", report.Count(StatusNotFound)).
		Int("rejected", report.Count(StatusRejected)).
		Int("failed", report.Count(StatusFailed)).
		Msg("matrix dispatched")
	return report, errs.ErrorOrNil()
}

func (d *Dispatcher) dispatch(ctx context.Context, log zerolog.Logger, entry proofsys.Entry, now func() time.Time) Outcome {
	out := Outcome{Entry: entry}
	log = log.With().Str("protocol", string(entry.Protocol)).Str("curve", entry.Curve).Logger()

	fn, err := proofsys.FunctionName(entry.Protocol)
	if err != nil {
		out.Status, out.Err = StatusFailed, model.ConfigError("dispatch", entry.String(), err)
		return out
	}

	a, err := d.Finder.Find(entry.Protocol, entry.Curve)
	if artifact.IsNotFound(err) {
		log.Info().Msg("artifact not found")
		out.Status = StatusNotFound
		return out
	}
	if err != nil {
		log.Error().Err(err).Msg("cannot load artifact")
		out.Status, out.Err = StatusFailed, err
		return out
	}
	out.Artifact = a.SourcePath
	out.ContentID = a.ContentID.String()
	log = log.With().Str("artifact", a.SourcePath).Str("cid", out.ContentID).Logger()

	if d.Precheck != nil {
		if err := d.Precheck(entry.Protocol, entry.Curve, a.Proof, a.VerifyingKey, a.PublicWitness); err != nil {
			log.Warn().Err(err).Msg("local verification failed, not submitting")
			out.Status, out.Reason = StatusRejected, err.Error()
			return out
		}
	}

	log.Info().Str("function", fn).Msg("submitting proof")
	start := now()
	result, err := d.Submitter.Submit(ctx, fn, entry.Curve, a.Proof, a.VerifyingKey, a.PublicWitness)
	out.Duration = now().Sub(start)
	if err != nil {
		log.Error().Err(err).Str("phase", string(model.PhaseOf(err))).Msg("verification transaction failed")
		out.Status, out.Err = StatusFailed, err
		return out
	}
	out.Status, out.Result = StatusSubmitted, string(result)
	log.Info().Str("result", out.Result).Dur("took", out.Duration).Msg("verification committed")
	return out
}
