package vault

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

// State is the funding state of a vault as seen by this client.
type State string

const (
	StateUnfunded        State = "UNFUNDED"
	StatePartiallyFunded State = "PARTIALLY_FUNDED"
	StateFunded          State = "FUNDED"
	StateWithdrawing     State = "WITHDRAWING"
	StateWithdrawn       State = "WITHDRAWN"
	StateFailed          State = "FAILED"
)

var allowed = map[State][]State{
	StateUnfunded:        {StatePartiallyFunded, StateFunded, StateFailed},
	StatePartiallyFunded: {StateUnfunded, StateFunded, StateWithdrawing, StateFailed},
	StateFunded:          {StateUnfunded, StatePartiallyFunded, StateWithdrawing, StateFailed},
	StateWithdrawing:     {StateWithdrawn, StateFailed},
	StateWithdrawn:       {StateUnfunded, StatePartiallyFunded, StateFunded},
	StateFailed:          {StateUnfunded, StatePartiallyFunded, StateFunded, StateWithdrawing},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition is one recorded state change.
type Transition struct {
	From   State
	To     State
	At     time.Time
	Reason string
}

// Balances are raw smallest-unit amounts: lamports and token base units.
type Balances struct {
	Native uint64
	Token  uint64
}

// fundingState derives the funding state from balances alone.
func (b Balances) fundingState() State {
	switch {
	case b.Native > 0 && b.Token > 0:
		return StateFunded
	case b.Native > 0 || b.Token > 0:
		return StatePartiallyFunded
	default:
		return StateUnfunded
	}
}

// Vault tracks the state of one vault address.
type Vault struct {
	mu       sync.Mutex
	address  string
	state    State
	balances Balances
	history  []Transition
	clock    clock.Clock
}

func newVault(address string, clk clock.Clock) *Vault {
	return &Vault{address: address, state: StateUnfunded, clock: clk}
}

// Address returns the vault address.
func (v *Vault) Address() string {
	return v.address
}

// State returns the current state.
func (v *Vault) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Balances returns the last observed balances.
func (v *Vault) Balances() Balances {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances
}

// History returns the recorded transitions, oldest first.
func (v *Vault) History() []Transition {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Transition(nil), v.history...)
}

// Observe records freshly read balances and moves to the funding state they
// imply. A withdrawal in progress is not interrupted, and an emptied vault
// stays WITHDRAWN.
func (v *Vault) Observe(b Balances) State {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.balances = b
	next := b.fundingState()
	switch {
	case v.state == StateWithdrawing:
		return v.state
	case v.state == StateWithdrawn && next == StateUnfunded:
		return v.state
	}
	if next != v.state && CanTransition(v.state, next) {
		v.record(next, "balance observed")
	}
	return v.state
}

// transition moves to to, failing with ErrInvalidTransition when the move
// is not allowed. Moving to the current state is a no-op.
func (v *Vault) transition(to State, reason string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == to {
		return nil
	}
	if !CanTransition(v.state, to) {
		return fmt.Errorf("vault %s: %s -> %s: %w", v.address, v.state, to, sdkerrors.ErrInvalidTransition)
	}
	v.record(to, reason)
	return nil
}

func (v *Vault) record(to State, reason string) {
	v.history = append(v.history, Transition{From: v.state, To: to, At: v.clock.Now(), Reason: reason})
	v.state = to
}
