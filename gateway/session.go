// Package gateway drives chaincode calls through a Fabric gateway peer with
// a deadline per call phase.
//
// Evaluate is a single read-only call. Submit runs three phases, endorse,
// submit and commit status, and each phase gets its own deadline computed
// when that phase starts. Any failure is a model.KindTransaction error that
// names the phase. Nothing is retried.
package gateway

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"xdao.co/zkverify/model"
)

// Contract is the chaincode surface a Session drives.
type Contract interface {
	Evaluate(ctx context.Context, name string, args ...string) ([]byte, error)
	Endorse(ctx context.Context, name string, args ...string) (Transaction, error)
}

// Transaction is an endorsed transaction ready for ordering.
type Transaction interface {
	ID() string
	Result() []byte
	Submit(ctx context.Context) (Commit, error)
}

// Commit tracks a submitted transaction until it is committed.
type Commit interface {
	Status(ctx context.Context) (*CommitStatus, error)
}

// CommitStatus is the validation outcome of a committed transaction.
type CommitStatus struct {
	TransactionID string
	BlockNumber   uint64
	Code          string
	Successful    bool
}

type Options struct {
	Channel   string
	Chaincode string
	// Hash is "sha256" (default) or "sha3-256".
	Hash string
	// Deadlines defaults to DefaultDeadlines when zero.
	Deadlines DeadlinePolicy
	// Now defaults to time.Now.
	Now func() time.Time
	Log zerolog.Logger
}

// Session binds one contract on one channel.
type Session struct {
	contract  Contract
	closer    io.Closer
	deadlines DeadlinePolicy
	now       func() time.Time
	log       zerolog.Logger

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// NewWithContract builds a session over contract. closer, when not nil, is
// released by Close.
func NewWithContract(contract Contract, closer io.Closer, opts Options) *Session {
	s := &Session{
		contract:  contract,
		closer:    closer,
		deadlines: opts.Deadlines,
		now:       opts.Now,
		log:       opts.Log.With().Str("component", "gateway").Logger(),
	}
	if s.deadlines == (DeadlinePolicy{}) {
		s.deadlines = DefaultDeadlines()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Evaluate runs a read-only query.
func (s *Session) Evaluate(ctx context.Context, fn string, args ...string) ([]byte, error) {
	op := "evaluate " + fn
	if s.Closed() {
		return nil, model.TransactionError(op, model.PhaseEvaluate, "session closed", nil)
	}

	ctx, cancel := s.phaseContext(ctx, model.PhaseEvaluate)
	defer cancel()

	result, err := s.contract.Evaluate(ctx, fn, args...)
	if err != nil {
		return nil, transactionError(op, model.PhaseEvaluate, err)
	}
	s.log.Debug().Str("function", fn).Int("result_bytes", len(result)).Msg("evaluated")
	return result, nil
}

// Submit endorses, submits and waits for the commit of a transaction, and
// returns the endorsed result.
func (s *Session) Submit(ctx context.Context, fn string, args ...string) ([]byte, error) {
	op := "submit " + fn
	if s.Closed() {
		return nil, model.TransactionError(op, model.PhaseEndorse, "session closed", nil)
	}

	endorseCtx, cancel := s.phaseContext(ctx, model.PhaseEndorse)
	tx, err := s.contract.Endorse(endorseCtx, fn, args...)
	cancel()
	if err != nil {
		return nil, transactionError(op, model.PhaseEndorse, err)
	}
	log := s.log.With().Str("function", fn).Str("tx_id", tx.ID()).Logger()
	log.Debug().Msg("endorsed")

	submitCtx, cancel := s.phaseContext(ctx, model.PhaseSubmit)
	commit, err := tx.Submit(submitCtx)
	cancel()
	if err != nil {
		return nil, transactionError(op, model.PhaseSubmit, err)
	}
	log.Debug().Msg("submitted")

	statusCtx, cancel := s.phaseContext(ctx, model.PhaseCommitStatus)
	status, err := commit.Status(statusCtx)
	cancel()
	if err != nil {
		return nil, transactionError(op, model.PhaseCommitStatus, err)
	}
	if !status.Successful {
		msg := fmt.Sprintf("transaction %s failed to commit with status code %s", status.TransactionID, status.Code)
		return nil, model.TransactionError(op, model.PhaseCommitStatus, msg, nil)
	}
	log.Debug().Uint64("block", status.BlockNumber).Msg("committed")
	return tx.Result(), nil
}

func (s *Session) phaseContext(ctx context.Context, phase model.Phase) (context.Context, context.CancelFunc) {
	return context.WithDeadline(ctx, s.deadlines.Deadline(phase, s.now()))
}

// Close releases the gateway. The gRPC channel is owned by the caller and
// must be closed separately, after the session.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}

func (s *Session) Closed() bool { return s.closed.Load() }
