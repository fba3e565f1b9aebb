package wallet

import (
	"github.com/tolelom/tolstake/core"
	"github.com/tolelom/tolstake/crypto"
)

// Wallet holds a key pair and builds signed ledger operations for one chain.
type Wallet struct {
	priv    crypto.PrivateKey
	pub     crypto.PublicKey
	chainID string
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey, chainID string) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public(), chainID: chainID}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate(chainID string) (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv, chainID), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the hex-encoded ed25519 public key, which is also the
// ledger identity of this wallet.
func (w *Wallet) PubKey() string {
	return w.pub.Hex()
}

// NewTx creates a signed transaction. nonce should match the signer's
// current account nonce.
func (w *Wallet) NewTx(typ core.TxType, nonce uint64, payload any) (*core.Transaction, error) {
	tx, err := core.NewTransaction(w.chainID, typ, w.pub.Hex(), nonce, payload)
	if err != nil {
		return nil, err
	}
	tx.Sign(w.priv)
	return tx, nil
}

// Initialize makes this wallet the administrator of a fresh ledger.
func (w *Wallet) Initialize(nonce uint64, operator, feeRecipient, escrow string, fees core.FeeSchedule) (*core.Transaction, error) {
	return w.NewTx(core.TxInitialize, nonce, core.InitializePayload{
		TrustedOperator: operator,
		FeeRecipient:    feeRecipient,
		Escrow:          escrow,
		Fees:            fees,
	})
}

// Deposit pays one entry fee for this wallet. gameID is informational.
func (w *Wallet) Deposit(nonce uint64, gameID string) (*core.Transaction, error) {
	return w.NewTx(core.TxDeposit, nonce, core.DepositPayload{Player: w.PubKey(), GameIDHint: gameID})
}

// Withdraw moves amount of available balance back to this wallet.
func (w *Wallet) Withdraw(nonce, amount uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxWithdraw, nonce, core.WithdrawPayload{Player: w.PubKey(), Amount: amount})
}

// CreateGame opens a game. Operator only.
func (w *Wallet) CreateGame(nonce uint64, gameID string, participants []string, stakes []uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxCreateGame, nonce, core.CreateGamePayload{
		GameID:       gameID,
		Participants: participants,
		Stakes:       stakes,
	})
}

// Payout settles a game in favour of winner. Operator only.
func (w *Wallet) Payout(nonce uint64, gameID, winner string) (*core.Transaction, error) {
	return w.NewTx(core.TxPayout, nonce, core.PayoutPayload{GameID: gameID, Winner: winner})
}

// SetOperator replaces the trusted operator. Administrator only.
func (w *Wallet) SetOperator(nonce uint64, operator string) (*core.Transaction, error) {
	return w.NewTx(core.TxSetOperator, nonce, core.SetOperatorPayload{Operator: operator})
}

// Pause blocks deposits and game creation. Administrator only.
func (w *Wallet) Pause(nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxPause, nonce, struct{}{})
}

// Unpause lifts a pause. Administrator only.
func (w *Wallet) Unpause(nonce uint64) (*core.Transaction, error) {
	return w.NewTx(core.TxUnpause, nonce, struct{}{})
}
