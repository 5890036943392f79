package gateway

import (
	"context"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"google.golang.org/grpc"

	"xdao.co/zkverify/identity"
	"xdao.co/zkverify/model"
)

// New connects a Fabric gateway over conn and binds the configured
// channel and chaincode.
func New(conn *grpc.ClientConn, id *identity.Identity, signer *identity.Signer, opts Options) (*Session, error) {
	h, err := hashFor(opts.Hash)
	if err != nil {
		return nil, model.ConfigError("connect gateway", "", err)
	}
	gw, err := client.Connect(id,
		client.WithSign(signer.Func()),
		client.WithHash(h),
		client.WithClientConnection(conn),
	)
	if err != nil {
		return nil, model.ConnectionError("connect gateway", "", err)
	}
	contract := gw.GetNetwork(opts.Channel).GetContract(opts.Chaincode)
	return NewWithContract(fabricContract{contract: contract}, gw, opts), nil
}

type fabricContract struct {
	contract *client.Contract
}

func (c fabricContract) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	proposal, err := c.contract.NewProposal(name, client.WithArguments(args...))
	if err != nil {
		return nil, err
	}
	return proposal.EvaluateWithContext(ctx)
}

func (c fabricContract) Endorse(ctx context.Context, name string, args ...string) (Transaction, error) {
	proposal, err := c.contract.NewProposal(name, client.WithArguments(args...))
	if err != nil {
		return nil, err
	}
	tx, err := proposal.EndorseWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return fabricTransaction{tx: tx}, nil
}

type fabricTransaction struct {
	tx *client.Transaction
}

func (t fabricTransaction) ID() string     { return t.tx.TransactionID() }
func (t fabricTransaction) Result() []byte { return t.tx.Result() }

func (t fabricTransaction) Submit(ctx context.Context) (Commit, error) {
	commit, err := t.tx.SubmitWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return fabricCommit{commit: commit}, nil
}

type fabricCommit struct {
	commit *client.Commit
}

func (c fabricCommit) Status(ctx context.Context) (*CommitStatus, error) {
	st, err := c.commit.StatusWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return &CommitStatus{
		TransactionID: st.TransactionID,
		BlockNumber:   st.BlockNumber,
		Code:          st.Code.String(),
		Successful:    st.Successful,
	}, nil
}
