package core

// Account is a native-currency balance held outside the ledger records, plus
// the replay-protection nonce of the identity that owns it.
// Address is the hex-encoded ed25519 public key.
type Account struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// FeeSchedule is the fixed per-deposit price list in base currency units.
type FeeSchedule struct {
	EntryFee    uint64 `json:"entry_fee" mapstructure:"entry_fee"`
	PlatformFee uint64 `json:"platform_fee" mapstructure:"platform_fee"`
	PlayerStake uint64 `json:"player_stake" mapstructure:"player_stake"`
}

// DefaultFeeSchedule is 0.02 SOL in lamports split 0.004 / 0.016.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		EntryFee:    20_000_000,
		PlatformFee: 4_000_000,
		PlayerStake: 16_000_000,
	}
}

// Validate checks EntryFee == PlatformFee + PlayerStake.
func (f FeeSchedule) Validate() error {
	sum, err := AddUint64(f.PlatformFee, f.PlayerStake)
	if err != nil {
		return ErrInvalidFeeSchedule
	}
	if sum != f.EntryFee {
		return ErrInvalidFeeSchedule
	}
	return nil
}

// LedgerConfig is the singleton holding global parameters and running totals.
type LedgerConfig struct {
	Administrator   string      `json:"administrator"`
	TrustedOperator string      `json:"trusted_operator"`
	FeeRecipient    string      `json:"fee_recipient"`
	Escrow          string      `json:"escrow"` // escrow holding address
	Fees            FeeSchedule `json:"fees"`
	TotalGames      uint64      `json:"total_games"`
	TotalVolume     uint64      `json:"total_volume"`
	Paused          bool        `json:"paused"`
}

// PlayerRecord is the per-player ledger entry. Records are never deleted.
type PlayerRecord struct {
	Owner            string `json:"owner"`
	AvailableBalance uint64 `json:"available_balance"`
	TotalDeposited   uint64 `json:"total_deposited"`
	TotalWon         uint64 `json:"total_won"`
	GamesPlayed      uint64 `json:"games_played"`
	GamesWon         uint64 `json:"games_won"`
}

// GameRecord is the per-game escrow entry. Participants reference players by
// address only; a game stays valid whether or not their records exist.
type GameRecord struct {
	GameID       string   `json:"game_id"`
	Participants []string `json:"participants"`
	Stakes       []uint64 `json:"stakes"`
	PotTotal     uint64   `json:"pot_total"`
	Winner       string   `json:"winner,omitempty"`
	Completed    bool     `json:"completed"`
	CreatedAt    int64    `json:"created_at"`
	CompletedAt  int64    `json:"completed_at,omitempty"`
}

// State is the full ledger state interface. Implementations must be
// snapshot-able so the executor can roll back failed operations.
//
// Getters for ledger records return ErrNotFound when the record is absent;
// creating a record is always an explicit Set by the caller.
type State interface {
	// Native balances (Value Transfer Port storage)
	GetAccount(address string) (*Account, error)
	SetAccount(account *Account) error

	// Ledger records
	GetConfig() (*LedgerConfig, error)
	SetConfig(cfg *LedgerConfig) error
	GetPlayer(address string) (*PlayerRecord, error)
	SetPlayer(p *PlayerRecord) error
	GetGame(id string) (*GameRecord, error)
	SetGame(g *GameRecord) error

	// Sequence of the last committed operation.
	GetSequence() (int64, error)
	SetSequence(seq int64) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root including the
	// uncommitted write buffer.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	Commit() error
}

// ValueTransfer is the capability that moves native currency between two
// addresses. It is all-or-nothing and fails with ErrInsufficientFunds when
// the source cannot cover amount.
type ValueTransfer interface {
	Transfer(from, to string, amount uint64) error
}
