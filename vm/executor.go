// Package vm executes ledger operations atomically against core.State.
package vm

import (
	"errors"
	"fmt"
	"math"

	"github.com/tolelom/tolstake/bank"
	"github.com/tolelom/tolstake/core"
	"github.com/tolelom/tolstake/events"
)

// Context is passed to every Handler. Notifications raised through Emit are
// held back until the whole operation has succeeded.
type Context struct {
	State    core.State
	Tx       *core.Transaction
	Transfer core.ValueTransfer
	Sequence int64
	Time     int64 // unix nanoseconds

	pending []events.Event
}

// Emit buffers a notification for delivery after commit.
func (c *Context) Emit(typ events.EventType, data map[string]any) {
	c.pending = append(c.pending, events.Event{
		Type:     typ,
		TxID:     c.Tx.ID,
		Sequence: c.Sequence,
		Data:     data,
	})
}

// Config loads the ledger config, mapping a missing singleton to
// ErrNotInitialized.
func (c *Context) Config() (*core.LedgerConfig, error) {
	cfg, err := c.State.GetConfig()
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// TransferFactory builds the Value Transfer Port bound to a state.
type TransferFactory func(core.State) core.ValueTransfer

// DefaultTransfer moves native balances stored in the same state.
func DefaultTransfer(s core.State) core.ValueTransfer { return bank.New(s) }

// Executor applies transactions to the state using the global Handler registry.
type Executor struct {
	state    core.State
	chainID  string
	transfer core.ValueTransfer
}

// NewExecutor creates an Executor for chainID. A nil factory selects
// DefaultTransfer.
func NewExecutor(state core.State, chainID string, transfer TransferFactory) *Executor {
	if transfer == nil {
		transfer = DefaultTransfer
	}
	return &Executor{state: state, chainID: chainID, transfer: transfer(state)}
}

// ExecuteTx verifies and executes a single transaction with snapshot/rollback.
// On success the buffered notifications are returned, followed by a
// tx_executed event; the state buffer is left for the caller to commit.
func (e *Executor) ExecuteTx(tx *core.Transaction, seq, now int64) ([]events.Event, error) {
	if tx.ChainID != e.chainID {
		return nil, fmt.Errorf("chain id mismatch: got %q want %q", tx.ChainID, e.chainID)
	}
	if err := tx.Verify(); err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}
	if tx.ID != tx.Hash() {
		return nil, errors.New("tx id does not match hash")
	}

	snapID, err := e.state.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	ctx := &Context{
		State:    e.state,
		Tx:       tx,
		Transfer: e.transfer,
		Sequence: seq,
		Time:     now,
	}
	if err := e.applyTx(ctx); err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return nil, fmt.Errorf("revert snapshot after tx failure: %w (revert: %v)", err, revertErr)
		}
		return nil, err
	}

	evs := append(ctx.pending, events.Event{
		Type:     events.EventTxExecuted,
		TxID:     tx.ID,
		Sequence: seq,
		Data:     map[string]any{"type": string(tx.Type), "from": tx.From},
	})
	return evs, nil
}

// applyTx checks and bumps the caller nonce, then dispatches to the handler.
func (e *Executor) applyTx(ctx *Context) error {
	tx := ctx.Tx
	acc, err := e.state.GetAccount(tx.From)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if acc.Nonce != tx.Nonce {
		return fmt.Errorf("invalid nonce: expected %d got %d", acc.Nonce, tx.Nonce)
	}
	if acc.Nonce == math.MaxUint64 {
		return fmt.Errorf("nonce overflow for account %s", tx.From)
	}
	acc.Nonce++
	if err := e.state.SetAccount(acc); err != nil {
		return err
	}
	return globalRegistry.Execute(tx.Type, ctx, tx.Payload)
}
