// Package stake implements entry-fee deposits and balance withdrawals.
package stake

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/tolstake/core"
	"github.com/tolelom/tolstake/events"
	"github.com/tolelom/tolstake/vm"
)

func init() {
	vm.Register(core.TxDeposit, handleDeposit)
	vm.Register(core.TxWithdraw, handleWithdraw)
}

func handleDeposit(ctx *vm.Context, payload json.RawMessage) error {
	var p core.DepositPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode deposit payload: %w", err)
	}
	player := p.Player
	if player == "" {
		player = ctx.Tx.From
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := core.Authorize(core.TxDeposit, ctx.Tx.From, player, cfg); err != nil {
		return err
	}
	if cfg.Paused {
		return core.ErrContractPaused
	}

	// The full fee must sit in escrow before the fee share leaves it.
	if err := ctx.Transfer.Transfer(player, cfg.Escrow, cfg.Fees.EntryFee); err != nil {
		return fmt.Errorf("%w: entry fee: %w", core.ErrTransferFailed, err)
	}
	if err := ctx.Transfer.Transfer(cfg.Escrow, cfg.FeeRecipient, cfg.Fees.PlatformFee); err != nil {
		return fmt.Errorf("%w: platform fee: %w", core.ErrTransferFailed, err)
	}

	rec, err := core.LoadOrNewPlayer(ctx.State, player)
	if err != nil {
		return err
	}
	if err := rec.Credit(cfg.Fees.PlayerStake); err != nil {
		return err
	}
	if err := rec.RecordDeposit(cfg.Fees.EntryFee); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(rec); err != nil {
		return err
	}

	ctx.Emit(events.EventDeposit, map[string]any{
		"player":  player,
		"amount":  cfg.Fees.EntryFee,
		"game_id": p.GameIDHint,
	})
	return nil
}

func handleWithdraw(ctx *vm.Context, payload json.RawMessage) error {
	var p core.WithdrawPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode withdraw payload: %w", err)
	}
	player := p.Player
	if player == "" {
		player = ctx.Tx.From
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := core.Authorize(core.TxWithdraw, ctx.Tx.From, player, cfg); err != nil {
		return err
	}
	if p.Amount == 0 {
		return core.ErrInvalidAmount
	}

	rec, err := core.LoadOrNewPlayer(ctx.State, player)
	if err != nil {
		return err
	}
	if err := rec.Debit(p.Amount); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(rec); err != nil {
		return err
	}
	// A failed transfer makes the executor revert the debit above.
	if err := ctx.Transfer.Transfer(cfg.Escrow, player, p.Amount); err != nil {
		return fmt.Errorf("%w: withdraw: %w", core.ErrTransferFailed, err)
	}

	ctx.Emit(events.EventWithdrawal, map[string]any{
		"player": player,
		"amount": p.Amount,
	})
	return nil
}
