package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/tolstake/core"
	"github.com/tolelom/tolstake/indexer"
	"github.com/tolelom/tolstake/ledger"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	ledger  *ledger.Ledger
	indexer *indexer.Indexer
}

// NewHandler creates an RPC Handler. idx may be nil, which disables
// getGamesByPlayer.
func NewHandler(l *ledger.Ledger, idx *indexer.Indexer) *Handler {
	return &Handler{ledger: l, indexer: idx}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(ctx context.Context, req Request) Response {
	switch req.Method {
	case "getSequence":
		return okResponse(req.ID, h.ledger.Sequence())

	case "getStateRoot":
		return okResponse(req.ID, h.ledger.StateRoot())

	case "getConfig":
		cfg, err := h.ledger.Config()
		if err != nil {
			return ledgerErr(req.ID, err)
		}
		return okResponse(req.ID, cfg)

	case "getPlayer":
		return h.byKey(req, "address", func(k string) (any, error) { return h.ledger.Player(k) })

	case "getGame":
		return h.byKey(req, "id", func(k string) (any, error) { return h.ledger.Game(k) })

	case "getBalance":
		return h.byKey(req, "address", func(k string) (any, error) { return h.ledger.Account(k) })

	case "getGamesByPlayer":
		return h.getGamesByPlayer(req)

	case "sendTx":
		return h.sendTx(ctx, req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

// byKey decodes a single required string parameter and serves get(key).
func (h *Handler) byKey(req Request, name string, get func(string) (any, error)) Response {
	var params map[string]string
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	key := params[name]
	if key == "" {
		return errResponse(req.ID, CodeInvalidParams, name+" is required")
	}
	v, err := get(key)
	if err != nil {
		return ledgerErr(req.ID, err)
	}
	return okResponse(req.ID, v)
}

func (h *Handler) getGamesByPlayer(req Request) Response {
	if h.indexer == nil {
		return errResponse(req.ID, CodeInternalError, "indexer disabled")
	}
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Address == "" {
		return errResponse(req.ID, CodeInvalidParams, "address is required")
	}
	games, err := h.indexer.GamesByPlayer(params.Address)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	wins, err := h.indexer.WinsByPlayer(params.Address)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	if games == nil {
		games = []string{}
	}
	if wins == nil {
		wins = []string{}
	}
	return okResponse(req.ID, map[string]any{"address": params.Address, "games": games, "wins": wins})
}

func (h *Handler) sendTx(ctx context.Context, req Request) Response {
	var tx core.Transaction
	if err := json.Unmarshal(req.Params, &tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	// Recompute the ID server-side; do not trust the client-provided value.
	tx.ID = tx.Hash()
	rcpt, err := h.ledger.Submit(ctx, &tx)
	if err != nil {
		return errResponse(req.ID, rejectionCode(err), err.Error())
	}
	return okResponse(req.ID, rcpt)
}

// rejectionCodes is checked in order; ErrTransferFailed comes first because
// it wraps the port's own error.
var rejectionCodes = []struct {
	err  error
	code int
}{
	{core.ErrTransferFailed, CodeTransferFailed},
	{core.ErrContractPaused, CodeContractPaused},
	{core.ErrUnauthorized, CodeForbidden},
	{core.ErrAlreadyInitialized, CodeAlreadyInitialized},
	{core.ErrNotInitialized, CodeNotInitialized},
	{core.ErrArrayLengthMismatch, CodeArrayLengthMismatch},
	{core.ErrPlayerCountOutOfRange, CodePlayerCountOutOfRange},
	{core.ErrDuplicateGameID, CodeDuplicateGameID},
	{core.ErrInvalidGameID, CodeInvalidGameID},
	{core.ErrGameNotFound, CodeGameNotFound},
	{core.ErrGameAlreadyCompleted, CodeGameAlreadyCompleted},
	{core.ErrInvalidWinner, CodeInvalidWinner},
	{core.ErrInsufficientBalance, CodeInsufficientBalance},
	{core.ErrInvalidAmount, CodeInvalidAmount},
	{core.ErrInvalidFeeSchedule, CodeInvalidFeeSchedule},
	{core.ErrArithmeticOverflow, CodeArithmeticOverflow},
}

func rejectionCode(err error) int {
	for _, rc := range rejectionCodes {
		if errors.Is(err, rc.err) {
			return rc.code
		}
	}
	return CodeLedgerError
}

func ledgerErr(id any, err error) Response {
	if ledger.IsNotFound(err) {
		return errResponse(id, CodeNotFound, err.Error())
	}
	return errResponse(id, CodeInternalError, err.Error())
}
