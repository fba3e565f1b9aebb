package config

import (
	"fmt"
	"sort"

	"github.com/tolelom/tolstake/bank"
	"github.com/tolelom/tolstake/core"
	"github.com/tolelom/tolstake/crypto"
)

// emptyRoot is the state root of a database holding no keys.
var emptyRoot = crypto.Hash(nil)

// IsFresh reports whether state holds nothing at all.
func IsFresh(state core.State) bool {
	return state.ComputeRoot() == emptyRoot
}

// ApplyGenesis seeds native balances from the alloc map and commits. It is a
// no-op on a non-empty state. It returns the resulting state root.
func ApplyGenesis(g GenesisConfig, state core.State) (string, error) {
	if !IsFresh(state) {
		return state.ComputeRoot(), nil
	}
	addrs := make([]string, 0, len(g.Alloc))
	for addr := range g.Alloc {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	b := bank.New(state)
	for _, addr := range addrs {
		if err := b.Mint(addr, g.Alloc[addr]); err != nil {
			return "", fmt.Errorf("genesis alloc %s: %w", addr, err)
		}
	}
	root := state.ComputeRoot()
	if err := state.Commit(); err != nil {
		return "", fmt.Errorf("commit genesis: %w", err)
	}
	return root, nil
}
