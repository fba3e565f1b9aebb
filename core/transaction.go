package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tolelom/tolstake/crypto"
)

// TxType identifies the ledger operation a transaction performs.
type TxType string

const (
	TxInitialize  TxType = "initialize"
	TxDeposit     TxType = "deposit"
	TxCreateGame  TxType = "create_game"
	TxPayout      TxType = "payout"
	TxWithdraw    TxType = "withdraw"
	TxSetOperator TxType = "set_operator"
	TxPause       TxType = "pause"
	TxUnpause     TxType = "unpause"
)

// Transaction is the atomic unit of work submitted to the ledger.
// From holds the caller's hex-encoded ed25519 public key; the signature over
// every other field is the caller's identity proof.
type Transaction struct {
	ID        string          `json:"id"`
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// signingBody holds the fields that are covered by the signature.
type signingBody struct {
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Hash returns a deterministic hash of the transaction (sans Signature).
func (tx *Transaction) Hash() string {
	data, err := json.Marshal(signingBody{
		ChainID:   tx.ChainID,
		Type:      tx.Type,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Timestamp: tx.Timestamp,
		Payload:   tx.Payload,
	})
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign computes the signature and sets ID.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	hash := tx.Hash()
	tx.Signature = crypto.Sign(priv, []byte(hash))
	tx.ID = hash
}

// Verify checks the signature and that From is a valid public key.
func (tx *Transaction) Verify() error {
	if tx.From == "" {
		return errors.New("missing from field")
	}
	pub, err := crypto.PubKeyFromHex(tx.From)
	if err != nil {
		return fmt.Errorf("invalid from: %w", err)
	}
	return crypto.Verify(pub, []byte(tx.Hash()), tx.Signature)
}

// NewTransaction creates an unsigned transaction stamped with the current time.
func NewTransaction(chainID string, typ TxType, from string, nonce uint64, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Transaction{
		ChainID:   chainID,
		Type:      typ,
		From:      from,
		Nonce:     nonce,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// ---- Payload types ----

// InitializePayload creates the ledger config. The signer becomes administrator.
type InitializePayload struct {
	TrustedOperator string      `json:"trusted_operator"`
	FeeRecipient    string      `json:"fee_recipient"`
	Escrow          string      `json:"escrow"`
	Fees            FeeSchedule `json:"fees"`
}

// DepositPayload pays one entry fee. Player defaults to the signer.
type DepositPayload struct {
	Player     string `json:"player,omitempty"`
	GameIDHint string `json:"game_id,omitempty"`
}

// CreateGamePayload opens a game escrow record.
type CreateGamePayload struct {
	GameID       string   `json:"game_id"`
	Participants []string `json:"participants"`
	Stakes       []uint64 `json:"stakes"`
}

// PayoutPayload declares the winner of a game.
type PayoutPayload struct {
	GameID string `json:"game_id"`
	Winner string `json:"winner"`
}

// WithdrawPayload moves available balance back to the player's wallet.
// Player defaults to the signer.
type WithdrawPayload struct {
	Player string `json:"player,omitempty"`
	Amount uint64 `json:"amount"`
}

// SetOperatorPayload replaces the trusted operator.
type SetOperatorPayload struct {
	Operator string `json:"operator"`
}
