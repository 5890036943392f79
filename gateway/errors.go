package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gatewaypb "github.com/hyperledger/fabric-protos-go-apiv2/gateway"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/zkverify/model"
)

func transactionError(op string, phase model.Phase, err error) error {
	return model.TransactionError(op, phase, describe(err), err)
}

// describe summarizes deadline expiry and the per-peer details a gateway
// attaches to endorsement and submit failures.
func describe(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "deadline exceeded"
	}
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	if st.Code() == codes.DeadlineExceeded {
		return "deadline exceeded"
	}
	var parts []string
	for _, d := range st.Details() {
		detail, ok := d.(*gatewaypb.ErrorDetail)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("address: %s; mspId: %s; message: %s", detail.GetAddress(), detail.GetMspId(), detail.GetMessage()))
	}
	return strings.Join(parts, " | ")
}
