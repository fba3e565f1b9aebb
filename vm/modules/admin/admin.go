// Package admin implements ledger initialization and the administrator-only
// config updates.
package admin

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/tolstake/core"
	"github.com/tolelom/tolstake/events"
	"github.com/tolelom/tolstake/vm"
)

func init() {
	vm.Register(core.TxInitialize, handleInitialize)
	vm.Register(core.TxSetOperator, handleSetOperator)
	vm.Register(core.TxPause, pauseHandler(true))
	vm.Register(core.TxUnpause, pauseHandler(false))
}

func handleInitialize(ctx *vm.Context, payload json.RawMessage) error {
	var p core.InitializePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode initialize payload: %w", err)
	}
	if err := core.Authorize(core.TxInitialize, ctx.Tx.From, "", nil); err != nil {
		return err
	}
	if _, err := ctx.State.GetConfig(); err == nil {
		return core.ErrAlreadyInitialized
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("checking config: %w", err)
	}
	if p.TrustedOperator == "" || p.FeeRecipient == "" || p.Escrow == "" {
		return errors.New("trusted_operator, fee_recipient and escrow are required")
	}
	if err := p.Fees.Validate(); err != nil {
		return err
	}

	cfg := &core.LedgerConfig{
		Administrator:   ctx.Tx.From,
		TrustedOperator: p.TrustedOperator,
		FeeRecipient:    p.FeeRecipient,
		Escrow:          p.Escrow,
		Fees:            p.Fees,
	}
	if err := ctx.State.SetConfig(cfg); err != nil {
		return err
	}
	ctx.Emit(events.EventInitialized, map[string]any{
		"administrator":    cfg.Administrator,
		"trusted_operator": cfg.TrustedOperator,
		"fee_recipient":    cfg.FeeRecipient,
		"escrow":           cfg.Escrow,
		"entry_fee":        cfg.Fees.EntryFee,
	})
	return nil
}

func handleSetOperator(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SetOperatorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode set_operator payload: %w", err)
	}
	cfg, err := ctx.Config()
	if err != nil {
		return err
	}
	if err := core.Authorize(core.TxSetOperator, ctx.Tx.From, "", cfg); err != nil {
		return err
	}
	if p.Operator == "" {
		return errors.New("operator required")
	}
	previous := cfg.TrustedOperator
	cfg.TrustedOperator = p.Operator
	if err := ctx.State.SetConfig(cfg); err != nil {
		return err
	}
	ctx.Emit(events.EventConfigUpdated, map[string]any{
		"field":    "trusted_operator",
		"previous": previous,
		"operator": p.Operator,
	})
	return nil
}

func pauseHandler(paused bool) vm.Handler {
	op := core.TxUnpause
	if paused {
		op = core.TxPause
	}
	return func(ctx *vm.Context, _ json.RawMessage) error {
		cfg, err := ctx.Config()
		if err != nil {
			return err
		}
		if err := core.Authorize(op, ctx.Tx.From, "", cfg); err != nil {
			return err
		}
		if cfg.Paused == paused {
			return nil
		}
		cfg.Paused = paused
		if err := ctx.State.SetConfig(cfg); err != nil {
			return err
		}
		ctx.Emit(events.EventConfigUpdated, map[string]any{"field": "paused", "paused": paused})
		return nil
	}
}
