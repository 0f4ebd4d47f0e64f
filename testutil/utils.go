package testutil

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/golang/mock/gomock"

	xddcfg "github.com/omnistake/xcm-delegator/delegator/config"
	"github.com/omnistake/xcm-delegator/testutil/mocks"
	"github.com/omnistake/xcm-delegator/types"
)

const (
	TestParachainID   = 2030
	TestControlToken  = "control-token"
	TestOperator      = "operator-1"
	TestOperatorToken = "operator-token"
)

// TestCoordinatorConfig returns a coordinator config with one operator and
// a random fee account.
func TestCoordinatorConfig(r *rand.Rand, t *testing.T) *xddcfg.CoordinatorConfig {
	cfg := xddcfg.DefaultCoordinatorConfig()
	cfg.ParachainID = TestParachainID
	cfg.ControlToken = TestControlToken
	cfg.Operators = map[string]string{TestOperator: TestOperatorToken}
	cfg.FeeAccount = GenRandomAccount(r, t, types.SubstrateAccount).String()
	cfg.DispatchTimeout = 5 * time.Second
	return cfg
}

// PrepareMockedRouter returns a router accepting every message.
func PrepareMockedRouter(t *testing.T) *mocks.MockRouter {
	ctl := gomock.NewController(t)
	router := mocks.NewMockRouter(ctl)
	router.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	return router
}

// PrepareMockedLedger returns an asset ledger reporting issuance for every
// currency and accepting every deposit.
func PrepareMockedLedger(t *testing.T, issuance sdkmath.Int) *mocks.MockLedger {
	ctl := gomock.NewController(t)
	ledger := mocks.NewMockLedger(ctl)
	ledger.EXPECT().TotalIssuance(gomock.Any(), gomock.Any()).Return(issuance, nil).AnyTimes()
	ledger.EXPECT().Deposit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	return ledger
}

// EventRecorder keeps every emitted event in order.
type EventRecorder struct {
	mu     sync.Mutex
	events []types.Event
}

func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) Emit(ev types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *EventRecorder) Events() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *EventRecorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		names = append(names, ev.EventName())
	}
	return names
}

// Last returns the most recent event, nil if none was emitted.
func (r *EventRecorder) Last() types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
