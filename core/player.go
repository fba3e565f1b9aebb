package core

import "fmt"

// NewPlayerRecord returns a fresh record owned by address with zero counters.
func NewPlayerRecord(address string) *PlayerRecord {
	return &PlayerRecord{Owner: address}
}

// LoadOrNewPlayer fetches the record for address, or a fresh unsaved one if
// none exists yet. The caller decides whether to persist it.
func LoadOrNewPlayer(state State, address string) (*PlayerRecord, error) {
	p, err := state.GetPlayer(address)
	if err == nil {
		return p, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("load player %q: %w", address, err)
	}
	return NewPlayerRecord(address), nil
}

// Credit increases the available balance.
func (p *PlayerRecord) Credit(amount uint64) error {
	bal, err := AddUint64(p.AvailableBalance, amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", p.Owner, err)
	}
	p.AvailableBalance = bal
	return nil
}

// Debit decreases the available balance.
func (p *PlayerRecord) Debit(amount uint64) error {
	if amount > p.AvailableBalance {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, p.AvailableBalance, amount)
	}
	p.AvailableBalance -= amount
	return nil
}

// RecordDeposit adds the gross entry fee to the lifetime deposit counter.
func (p *PlayerRecord) RecordDeposit(gross uint64) error {
	total, err := AddUint64(p.TotalDeposited, gross)
	if err != nil {
		return fmt.Errorf("record deposit %s: %w", p.Owner, err)
	}
	p.TotalDeposited = total
	return nil
}

// RecordGame counts one more game the player was entered into.
func (p *PlayerRecord) RecordGame() error {
	n, err := AddUint64(p.GamesPlayed, 1)
	if err != nil {
		return fmt.Errorf("record game %s: %w", p.Owner, err)
	}
	p.GamesPlayed = n
	return nil
}

// RecordWin credits winnings and bumps the win counters. Either all three
// fields change or none do.
func (p *PlayerRecord) RecordWin(amount uint64) error {
	bal, err := AddUint64(p.AvailableBalance, amount)
	if err != nil {
		return fmt.Errorf("record win %s: %w", p.Owner, err)
	}
	won, err := AddUint64(p.TotalWon, amount)
	if err != nil {
		return fmt.Errorf("record win %s: %w", p.Owner, err)
	}
	wins, err := AddUint64(p.GamesWon, 1)
	if err != nil {
		return fmt.Errorf("record win %s: %w", p.Owner, err)
	}
	p.AvailableBalance, p.TotalWon, p.GamesWon = bal, won, wins
	return nil
}
