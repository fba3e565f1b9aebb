// Package bank implements the native-currency Value Transfer Port over the
// ledger state, so a reverted operation also reverts the transfers it made.
package bank

import (
	"errors"
	"fmt"

	"github.com/tolelom/tolstake/core"
)

// Bank moves native balances between accounts held in a core.State.
type Bank struct {
	state core.State
}

// New returns a Bank operating on state.
func New(state core.State) *Bank {
	return &Bank{state: state}
}

// Transfer debits from and credits to in one step. A zero amount and a
// self-transfer are no-ops.
func (b *Bank) Transfer(from, to string, amount uint64) error {
	if from == "" || to == "" {
		return errors.New("transfer endpoints required")
	}
	if amount == 0 || from == to {
		return nil
	}
	src, err := b.state.GetAccount(from)
	if err != nil {
		return fmt.Errorf("load %s: %w", from, err)
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: %s has %d, need %d", core.ErrInsufficientFunds, from, src.Balance, amount)
	}
	dst, err := b.state.GetAccount(to)
	if err != nil {
		return fmt.Errorf("load %s: %w", to, err)
	}
	credited, err := core.AddUint64(dst.Balance, amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}
	src.Balance -= amount
	dst.Balance = credited
	if err := b.state.SetAccount(src); err != nil {
		return err
	}
	return b.state.SetAccount(dst)
}

// Balance returns the native balance of address.
func (b *Bank) Balance(address string) (uint64, error) {
	acc, err := b.state.GetAccount(address)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// Mint credits amount to address without a source. Only genesis allocation
// uses it; no ledger operation can create currency.
func (b *Bank) Mint(address string, amount uint64) error {
	acc, err := b.state.GetAccount(address)
	if err != nil {
		return err
	}
	bal, err := core.AddUint64(acc.Balance, amount)
	if err != nil {
		return fmt.Errorf("mint %s: %w", address, err)
	}
	acc.Balance = bal
	return b.state.SetAccount(acc)
}
