// Package orchestrator runs one end-to-end verification pass: connect,
// query the contract, generate artifacts, dispatch the matrix and tear
// everything down again.
package orchestrator

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"xdao.co/zkverify/artifact"
	"xdao.co/zkverify/config"
	"xdao.co/zkverify/connection"
	"xdao.co/zkverify/dispatch"
	"xdao.co/zkverify/gateway"
	"xdao.co/zkverify/generator"
	"xdao.co/zkverify/identity"
	"xdao.co/zkverify/metrics"
	"xdao.co/zkverify/model"
	"xdao.co/zkverify/proofsys"
)

// ContractInfoFunction is evaluated once per run before dispatching.
const ContractInfoFunction = "GetContractInfo"

// Session is the gateway surface the orchestrator drives.
type Session interface {
	Evaluate(ctx context.Context, fn string, args ...string) ([]byte, error)
	Submit(ctx context.Context, fn string, args ...string) ([]byte, error)
	Close() error
	Closed() bool
}

// Deps holds the collaborators of a Runner. Nil fields are built from the
// configuration.
type Deps struct {
	Dial        func(cfg config.Config) (*connection.Channel, error)
	OpenSession func(ch *connection.Channel, cfg config.Config) (Session, error)
	Generator   generator.Generator
	Finder      dispatch.Finder
	Metrics     *metrics.Collector
	Now         func() time.Time
	Log         zerolog.Logger
}

// Runner executes runs against one configuration.
type Runner struct {
	cfg  config.Config
	deps Deps
}

func New(cfg config.Config, deps Deps) *Runner {
	if deps.Dial == nil {
		deps.Dial = Dial
	}
	if deps.OpenSession == nil {
		deps.OpenSession = OpenSession(deps.Now, deps.Log)
	}
	if deps.Generator == nil {
		deps.Generator = NewGenerator(cfg, deps.Log)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Runner{cfg: cfg, deps: deps}
}

// Metrics returns the collector the runner records into.
func (r *Runner) Metrics() *metrics.Collector { return r.deps.Metrics }

// Run performs the full sequence. Teardown runs on every path once the
// channel is open: the session is closed first, then the channel. Close
// failures are added to the returned error.
func (r *Runner) Run(ctx context.Context) (report *dispatch.Report, err error) {
	log := r.deps.Log.With().Str("run_id", uuid.NewString()).Logger()
	log.Info().EmbedObject(r.cfg).Msg("starting verification run")

	defer func() {
		r.deps.Metrics.RunFinished(err)
		if r.cfg.MetricsFile == "" {
			return
		}
		if werr := r.deps.Metrics.WriteTextfile(r.cfg.MetricsFile); werr != nil {
			log.Warn().Err(werr).Str("path", r.cfg.MetricsFile).Msg("cannot write metrics")
		}
	}()

	err = r.withSession(ctx, log, func(s Session) error {
		if _, err := r.contractInfo(ctx, log, s); err != nil {
			return err
		}
		if err := r.deps.Generator.Generate(ctx); err != nil {
			return err
		}
		d, err := r.dispatcher(s, log)
		if err != nil {
			return err
		}
		report, err = d.Run(ctx)
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("verification run failed")
		return report, err
	}
	log.Info().Msg("verification run finished")
	return report, nil
}

// ContractInfo connects, evaluates GetContractInfo and tears down.
func (r *Runner) ContractInfo(ctx context.Context) (string, error) {
	var info string
	err := r.withSession(ctx, r.deps.Log, func(s Session) error {
		var err error
		info, err = r.contractInfo(ctx, r.deps.Log, s)
		return err
	})
	return info, err
}

func (r *Runner) contractInfo(ctx context.Context, log zerolog.Logger, s Session) (string, error) {
	b, err := s.Evaluate(ctx, ContractInfoFunction)
	if err != nil {
		return "", err
	}
	info := string(b)
	log.Info().Str("contract_info", info).Msg("evaluated " + ContractInfoFunction)
	return info, nil
}

func (r *Runner) withSession(ctx context.Context, log zerolog.Logger, fn func(Session) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch, err := r.deps.Dial(r.cfg)
	if err != nil {
		return err
	}
	var sess Session
	defer func() {
		var closeErrs *multierror.Error
		if sess != nil {
			if cerr := sess.Close(); cerr != nil {
				closeErrs = multierror.Append(closeErrs, cerr)
			}
		}
		if cerr := ch.Close(); cerr != nil {
			closeErrs = multierror.Append(closeErrs, model.ConnectionError("close channel", "", cerr))
		}
		log.Debug().Msg("gateway session and channel closed")
		if closeErrs != nil {
			err = multierror.Append(err, closeErrs.Errors...)
		}
	}()

	sess, err = r.deps.OpenSession(ch, r.cfg)
	if err != nil {
		return err
	}
	return fn(sess)
}

func (r *Runner) dispatcher(s Session, log zerolog.Logger) (*dispatch.Dispatcher, error) {
	mode, err := dispatch.ParseMode(r.cfg.Mode)
	if err != nil {
		return nil, err
	}
	finder := r.deps.Finder
	if finder == nil {
		sel, err := artifact.ParseSelection(r.cfg.ArtifactSelection)
		if err != nil {
			return nil, err
		}
		finder = &artifact.Locator{Dir: r.cfg.ArtifactDir, Selection: sel}
	}
	d := &dispatch.Dispatcher{
		Finder:    finder,
		Submitter: s,
		Mode:      mode,
		Metrics:   r.deps.Metrics,
		Log:       log,
		Now:       r.deps.Now,
	}
	if r.cfg.Precheck {
		d.Precheck = proofsys.Verify
	}
	return d, nil
}

// Dial opens the TLS channel described by cfg.
func Dial(cfg config.Config) (*connection.Channel, error) {
	ep, err := connection.LoadEndpoint(cfg.PeerEndpoint, cfg.TLSCertPath, cfg.PeerHostAlias)
	if err != nil {
		return nil, err
	}
	var opts connection.DialOptions
	if cfg.ClientTLSCert != "" {
		if opts.ClientCert, err = os.ReadFile(cfg.ClientTLSCert); err != nil {
			return nil, model.ConnectionError("dial", "read client TLS certificate", err)
		}
		if opts.ClientKey, err = os.ReadFile(cfg.ClientTLSKey); err != nil {
			return nil, model.ConnectionError("dial", "read client TLS key", err)
		}
	}
	return connection.Dial(ep, opts)
}

// OpenSession returns a session opener that loads the client identity and
// signer and connects a Fabric gateway over the channel.
func OpenSession(now func() time.Time, log zerolog.Logger) func(*connection.Channel, config.Config) (Session, error) {
	return func(ch *connection.Channel, cfg config.Config) (Session, error) {
		id, err := identity.LoadIdentity(cfg.CertDir, cfg.MSPID)
		if err != nil {
			return nil, err
		}
		signer, err := identity.LoadSigner(cfg.KeyDir)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("msp_id", id.MspID()).Str("key_type", signer.KeyType()).Msg("loaded client identity")
		s, err := gateway.New(ch.Conn(), id, signer, gateway.Options{
			Channel:   cfg.Channel,
			Chaincode: cfg.Chaincode,
			Hash:      cfg.Hash,
			Now:       now,
			Log:       log,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// NewGenerator builds the artifact generator cfg asks for.
func NewGenerator(cfg config.Config, log zerolog.Logger) generator.Generator {
	if cfg.SkipGenerate {
		return generator.Skip{Log: log}
	}
	return &generator.Command{
		Path: cfg.GeneratorCommand,
		Args: cfg.GeneratorArgs,
		Dir:  cfg.GeneratorDir,
		Log:  log,
	}
}
