package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"xdao.co/zkverify/config"
	"xdao.co/zkverify/connection"
	"xdao.co/zkverify/dispatch"
	"xdao.co/zkverify/generator"
	"xdao.co/zkverify/internal/testkit"
	"xdao.co/zkverify/model"
)

type fakeSession struct {
	ch        *connection.Channel
	info      string
	submitErr error
	closeErr  error

	evaluated []string
	submitted []string
	closed    bool
	// channelOpenAtClose records whether the channel was still open when
	// the session was closed.
	channelOpenAtClose bool
}

func (s *fakeSession) Evaluate(_ context.Context, fn string, _ ...string) ([]byte, error) {
	s.evaluated = append(s.evaluated, fn)
	return []byte(s.info), nil
}

func (s *fakeSession) Submit(_ context.Context, fn string, args ...string) ([]byte, error) {
	s.submitted = append(s.submitted, fn+"/"+args[0])
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return []byte("true"), nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	s.channelOpenAtClose = !s.ch.Closed()
	return s.closeErr
}

func (s *fakeSession) Closed() bool { return s.closed }

type countingGenerator struct {
	n   int
	err error
}

func (g *countingGenerator) Generate(context.Context) error {
	g.n++
	return g.err
}

type harness struct {
	cfg  config.Config
	ch   *connection.Channel
	sess *fakeSession
	gen  *countingGenerator
	logs bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	testkit.WriteArtifact(t, dir, "groth16_BN254_20250101-000000.json", testkit.Artifact{Proof: "P", VK: "V", WitnessPublic: "W"})
	testkit.WriteArtifact(t, dir, "plonk_BN254_20250101-000000.json", testkit.Artifact{Proof: "P", VK: "V", WitnessPublic: "W"})

	cc, err := grpc.NewClient("passthrough:///peer0.org1.example.com:7051", grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	ch := connection.Wrap(cc)
	t.Cleanup(func() { _ = ch.Close() })

	return &harness{
		cfg: config.Config{
			Channel:           "mychannel",
			Chaincode:         "gnarkverify",
			ArtifactDir:       dir,
			ArtifactSelection: config.SelectionFirst,
			Mode:              config.ModeAbort,
		},
		ch:   ch,
		sess: &fakeSession{ch: ch, info: `{"name":"gnarkverify"}`},
		gen:  &countingGenerator{},
	}
}

func (h *harness) runner() *Runner {
	return New(h.cfg, Deps{
		Dial:        func(config.Config) (*connection.Channel, error) { return h.ch, nil },
		OpenSession: func(*connection.Channel, config.Config) (Session, error) { return h.sess, nil },
		Generator:   h.gen,
		Log:         zerolog.New(&h.logs),
	})
}

func TestRun_Success(t *testing.T) {
	h := newHarness(t)
	h.cfg.MetricsFile = filepath.Join(t.TempDir(), "zkverify.prom")

	report, err := h.runner().Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{ContractInfoFunction}, h.sess.evaluated)
	require.Equal(t, 1, h.gen.n)
	require.Equal(t, []string{"VerifyGroth16Proof/BN254", "VerifyPlonkProof/BN254"}, h.sess.submitted)
	require.Equal(t, 2, report.Count(dispatch.StatusSubmitted))

	require.True(t, h.sess.Closed())
	require.True(t, h.ch.Closed())
	require.True(t, h.sess.channelOpenAtClose)

	logs := h.logs.String()
	require.Contains(t, logs, `"run_id"`)
	require.Contains(t, logs, `gnarkverify`)

	b, err := os.ReadFile(h.cfg.MetricsFile)
	require.NoError(t, err)
	require.Contains(t, string(b), `zkverify_runs_total{result="success"} 1`)
}

func TestRun_TransactionErrorTearsDown(t *testing.T) {
	h := newHarness(t)
	h.sess.submitErr = model.TransactionError("submit VerifyGroth16Proof", model.PhaseEndorse, "endorsement failed", nil)

	report, err := h.runner().Run(context.Background())
	require.True(t, model.IsKind(err, model.KindTransaction))
	require.Equal(t, model.PhaseEndorse, model.PhaseOf(err))
	require.Len(t, h.sess.submitted, 1)
	require.Equal(t, 1, report.Count(dispatch.StatusFailed))

	require.True(t, h.sess.Closed())
	require.True(t, h.ch.Closed())
	require.True(t, h.sess.channelOpenAtClose)
}

func TestRun_CollectModeAttemptsEveryArtifact(t *testing.T) {
	h := newHarness(t)
	h.cfg.Mode = config.ModeCollect
	h.sess.submitErr = model.TransactionError("submit", model.PhaseCommitStatus, "invalid", nil)

	report, err := h.runner().Run(context.Background())
	require.True(t, model.IsKind(err, model.KindTransaction))
	require.Len(t, h.sess.submitted, 2)
	require.Equal(t, 2, report.Count(dispatch.StatusFailed))
	require.True(t, h.ch.Closed())
}

func TestRun_GenerationErrorTearsDown(t *testing.T) {
	h := newHarness(t)
	h.gen.err = model.GenerationError("generate", "exit status 1", nil)

	report, err := h.runner().Run(context.Background())
	require.True(t, model.IsKind(err, model.KindGeneration))
	require.Nil(t, report)
	require.Empty(t, h.sess.submitted)
	require.True(t, h.sess.Closed())
	require.True(t, h.ch.Closed())
}

func TestRun_OpenSessionFailureClosesChannel(t *testing.T) {
	h := newHarness(t)
	r := New(h.cfg, Deps{
		Dial: func(config.Config) (*connection.Channel, error) { return h.ch, nil },
		OpenSession: func(*connection.Channel, config.Config) (Session, error) {
			return nil, model.CredentialError("load identity", "no files in directory", nil)
		},
		Generator: h.gen,
		Log:       zerolog.Nop(),
	})
	_, err := r.Run(context.Background())
	require.True(t, model.IsKind(err, model.KindCredential))
	require.True(t, h.ch.Closed())
	require.Zero(t, h.gen.n)
}

func TestRun_CloseErrorIsReported(t *testing.T) {
	h := newHarness(t)
	h.sess.closeErr = errors.New("gateway close failed")

	_, err := h.runner().Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "gateway close failed")
	require.True(t, h.ch.Closed())
}

func TestRun_DialFailure(t *testing.T) {
	h := newHarness(t)
	h.cfg.PeerEndpoint = "localhost:7051"
	h.cfg.TLSCertPath = filepath.Join(t.TempDir(), "missing.crt")

	r := New(h.cfg, Deps{Generator: h.gen, Log: zerolog.Nop()})
	_, err := r.Run(context.Background())
	require.True(t, model.IsKind(err, model.KindConnection))
	require.Zero(t, h.gen.n)
}

func TestRun_UnreachablePeerWithRealGateway(t *testing.T) {
	root := t.TempDir()
	peer := testkit.NewKeyPair(t, "peer0.org1.example.com", "peer0.org1.example.com")
	user := testkit.NewKeyPair(t, "User1@org1.example.com")
	certDir, keyDir := testkit.MSP(t, root, user)

	cfg := config.Config{
		Channel:           "mychannel",
		Chaincode:         "gnarkverify",
		MSPID:             "Org1MSP",
		CertDir:           certDir,
		KeyDir:            keyDir,
		TLSCertPath:       testkit.WriteFile(t, root, "ca.crt", peer.CertPEM),
		PeerEndpoint:      "127.0.0.1:1",
		PeerHostAlias:     "peer0.org1.example.com",
		ArtifactDir:       t.TempDir(),
		ArtifactSelection: config.SelectionFirst,
		Mode:              config.ModeAbort,
		Hash:              config.HashSHA256,
	}

	var ch *connection.Channel
	gen := &countingGenerator{}
	r := New(cfg, Deps{
		Dial: func(c config.Config) (*connection.Channel, error) {
			var err error
			ch, err = Dial(c)
			return ch, err
		},
		Generator: gen,
		Log:       zerolog.Nop(),
	})
	_, err := r.Run(context.Background())
	require.True(t, model.IsKind(err, model.KindTransaction), "got %v", err)
	require.Equal(t, model.PhaseEvaluate, model.PhaseOf(err))
	require.Zero(t, gen.n)
	require.NotNil(t, ch)
	require.True(t, ch.Closed())
}

func TestContractInfo(t *testing.T) {
	h := newHarness(t)
	info, err := h.runner().ContractInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, `{"name":"gnarkverify"}`, info)
	require.Zero(t, h.gen.n)
	require.True(t, h.sess.Closed())
	require.True(t, h.ch.Closed())
}

func TestNewGenerator(t *testing.T) {
	g := NewGenerator(config.Config{SkipGenerate: true}, zerolog.Nop())
	require.IsType(t, generator.Skip{}, g)

	g = NewGenerator(config.Config{GeneratorCommand: "./run.sh", GeneratorArgs: []string{"generate"}, GeneratorDir: "verify-on-chain"}, zerolog.Nop())
	cmd, ok := g.(*generator.Command)
	require.True(t, ok)
	require.Equal(t, "verify-on-chain", cmd.Dir)
	require.True(t, strings.HasPrefix(cmd.Path, "./"))
}

func TestRun_PrecheckRejectsInvalidArtifact(t *testing.T) {
	h := newHarness(t)
	h.cfg.Precheck = true
	dir := t.TempDir()
	testkit.WriteArtifact(t, dir, "groth16_BN254_20250101-000000.json", testkit.Artifact{
		Proof:         "not base64!",
		VK:            "AA==",
		WitnessPublic: "AAAAAQAAAAB/////",
	})
	h.cfg.ArtifactDir = dir

	report, err := h.runner().Run(context.Background())
	require.NoError(t, err)

	out, ok := report.Lookup(model.Groth16, "BN254")
	require.True(t, ok)
	require.Equal(t, dispatch.StatusRejected, out.Status)
	require.Contains(t, out.Reason, "witnessPublic")
	require.Empty(t, h.sess.submitted)

	require.True(t, h.sess.Closed())
	require.True(t, h.ch.Closed())
}
