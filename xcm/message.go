package xcm

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/omnistake/xcm-delegator/types"
)

// Message is an outbound remote call ready to be handed to the transport.
// The call is executed on Destination as the derivative sub-account of the
// local sovereign account.
type Message struct {
	ID          string                `json:"id"`
	Protocol    types.StakingProtocol `json:"protocol"`
	Destination types.Location        `json:"destination"`
	Call        hexutil.Bytes         `json:"call"`
	Weight      uint64                `json:"weight"`
	Fee         sdkmath.Int           `json:"fee"`
	// QueryID is set when the remote outcome must be reported back.
	QueryID *types.QueryID `json:"query_id,omitempty"`
}

// Router delivers messages to remote chains. A nil error means the message
// has been accepted for delivery, not that the remote call succeeded.
type Router interface {
	Send(ctx context.Context, msg *Message) error
}
