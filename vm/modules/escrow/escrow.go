// Package escrow implements game escrow records: creation by the trusted
// operator and the one-time payout of the pot to the declared winner.
package escrow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/tolstake/core"
	"github.com/tolelom/tolstake/events"
	"github.com/tolelom/tolstake/vm"
)

func init() {
	vm.Register(core.TxCreateGame, handleCreateGame)
	vm.Register(core.TxPayout, handlePayout)
}

func handleCreateGame(ctx *vm.Context, payload json.RawMessage) error {
	var p core.CreateGamePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode create_game payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := core.Authorize(core.TxCreateGame, ctx.Tx.From, "", cfg); err != nil {
		return err
	}
	if cfg.Paused {
		return core.ErrContractPaused
	}

	game, err := core.NewGameRecord(p.GameID, p.Participants, p.Stakes, ctx.Time)
	if err != nil {
		return err
	}
	// Distinguish DB errors from not-found.
	if _, err := ctx.State.GetGame(p.GameID); err == nil {
		return fmt.Errorf("game %q: %w", p.GameID, core.ErrDuplicateGameID)
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("checking game %q: %w", p.GameID, err)
	}

	totalGames, err := core.AddUint64(cfg.TotalGames, 1)
	if err != nil {
		return err
	}
	totalVolume, err := core.AddUint64(cfg.TotalVolume, game.PotTotal)
	if err != nil {
		return err
	}
	cfg.TotalGames, cfg.TotalVolume = totalGames, totalVolume

	// Participants without a record yet are not created here; records come
	// into existence on deposit (or on winning a payout).
	for _, addr := range game.UniqueParticipants() {
		rec, err := ctx.State.GetPlayer(addr)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load player %q: %w", addr, err)
		}
		if err := rec.RecordGame(); err != nil {
			return err
		}
		if err := ctx.State.SetPlayer(rec); err != nil {
			return err
		}
	}
	if err := ctx.State.SetGame(game); err != nil {
		return err
	}
	if err := ctx.State.SetConfig(cfg); err != nil {
		return err
	}

	ctx.Emit(events.EventGameCreated, map[string]any{
		"game_id":      game.GameID,
		"player_count": len(game.Participants),
		"total_pot":    game.PotTotal,
		"participants": game.Participants,
	})
	return nil
}

// handlePayout ignores the pause flag.
func handlePayout(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PayoutPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode payout payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := core.Authorize(core.TxPayout, ctx.Tx.From, "", cfg); err != nil {
		return err
	}

	game, err := ctx.State.GetGame(p.GameID)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("game %q: %w", p.GameID, core.ErrGameNotFound)
	}
	if err != nil {
		return fmt.Errorf("load game %q: %w", p.GameID, err)
	}
	if err := game.CheckPayout(p.Winner); err != nil {
		return err
	}
	winner, err := core.LoadOrNewPlayer(ctx.State, p.Winner)
	if err != nil {
		return err
	}
	if err := winner.RecordWin(game.PotTotal); err != nil {
		return err
	}

	// Transfer first: if it fails nothing below is written.
	if err := ctx.Transfer.Transfer(cfg.Escrow, p.Winner, game.PotTotal); err != nil {
		return fmt.Errorf("%w: payout: %w", core.ErrTransferFailed, err)
	}
	game.MarkCompleted(p.Winner, ctx.Time)
	if err := ctx.State.SetGame(game); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(winner); err != nil {
		return err
	}

	ctx.Emit(events.EventPayout, map[string]any{
		"game_id":      game.GameID,
		"winner":       p.Winner,
		"winnings":     game.PotTotal,
		"platform_fee": uint64(0),
	})
	return nil
}
