package types

import "fmt"

type OriginKind uint8

const (
	// ControlOrigin is the governance/root authority.
	ControlOrigin OriginKind = iota + 1
	// OperatorOrigin is a signed account that is checked against the
	// configured operator list.
	OperatorOrigin
	// ResponseOrigin is the messaging subsystem delivering responses.
	ResponseOrigin
)

func (k OriginKind) String() string {
	switch k {
	case ControlOrigin:
		return "control"
	case OperatorOrigin:
		return "operator"
	case ResponseOrigin:
		return "response"
	default:
		return fmt.Sprintf("OriginKind(%d)", uint8(k))
	}
}

// Origin is who asks for a state transition.
type Origin struct {
	Kind    OriginKind
	Account string
}

func Control() Origin {
	return Origin{Kind: ControlOrigin}
}

func Operator(account string) Origin {
	return Origin{Kind: OperatorOrigin, Account: account}
}

func ResponseHandler() Origin {
	return Origin{Kind: ResponseOrigin}
}

func (o Origin) String() string {
	if o.Account == "" {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", o.Kind, o.Account)
}
