package core

import "fmt"

const (
	MinPlayers   = 2
	MaxPlayers   = 10
	MaxGameIDLen = 64
)

// NewGameRecord validates the participant list and builds an open game.
// PotTotal is fixed here and never recomputed.
func NewGameRecord(id string, participants []string, stakes []uint64, createdAt int64) (*GameRecord, error) {
	if id == "" || len(id) > MaxGameIDLen {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGameID, id)
	}
	if len(participants) != len(stakes) {
		return nil, fmt.Errorf("%w: %d participants, %d stakes", ErrArrayLengthMismatch, len(participants), len(stakes))
	}
	if n := len(participants); n < MinPlayers || n > MaxPlayers {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrPlayerCountOutOfRange, n, MinPlayers, MaxPlayers)
	}
	pot, err := SumUint64(stakes)
	if err != nil {
		return nil, fmt.Errorf("pot total: %w", err)
	}
	return &GameRecord{
		GameID:       id,
		Participants: append([]string(nil), participants...),
		Stakes:       append([]uint64(nil), stakes...),
		PotTotal:     pot,
		CreatedAt:    createdAt,
	}, nil
}

// HasParticipant reports whether address is in the participant list.
func (g *GameRecord) HasParticipant(address string) bool {
	for _, p := range g.Participants {
		if p == address {
			return true
		}
	}
	return false
}

// CheckPayout reports why winner cannot be paid, or nil.
func (g *GameRecord) CheckPayout(winner string) error {
	if g.Completed {
		return fmt.Errorf("game %q: %w", g.GameID, ErrGameAlreadyCompleted)
	}
	if !g.HasParticipant(winner) {
		return fmt.Errorf("game %q winner %q: %w", g.GameID, winner, ErrInvalidWinner)
	}
	return nil
}

// MarkCompleted moves the game to its terminal state. Call CheckPayout first.
func (g *GameRecord) MarkCompleted(winner string, at int64) {
	g.Winner = winner
	g.Completed = true
	g.CompletedAt = at
}

// UniqueParticipants returns participants in order with repeats dropped.
func (g *GameRecord) UniqueParticipants() []string {
	seen := make(map[string]bool, len(g.Participants))
	out := make([]string, 0, len(g.Participants))
	for _, p := range g.Participants {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
