// Package rpc exposes the ledger via a JSON-RPC 2.0 HTTP endpoint.
package rpc

import "encoding/json"

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

// Standard JSON-RPC error codes, then server-defined ones.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeUnauthorized   = -32000
	CodeNotFound       = -32004
	CodeLedgerError    = -32010 // rejected before reaching a handler: signature, nonce, chain id
)

// Codes for ledger rejections, one per core sentinel error.
const (
	CodeContractPaused        = -32011
	CodeForbidden             = -32012
	CodeAlreadyInitialized    = -32013
	CodeNotInitialized        = -32014
	CodeArrayLengthMismatch   = -32015
	CodePlayerCountOutOfRange = -32016
	CodeDuplicateGameID       = -32017
	CodeInvalidGameID         = -32018
	CodeGameNotFound          = -32019
	CodeGameAlreadyCompleted  = -32020
	CodeInvalidWinner         = -32021
	CodeInsufficientBalance   = -32022
	CodeInvalidAmount         = -32023
	CodeInvalidFeeSchedule    = -32024
	CodeTransferFailed        = -32025
	CodeArithmeticOverflow    = -32026
)

func errResponse(id any, code int, msg string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: msg},
	}
}

func okResponse(id, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}
