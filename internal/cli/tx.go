package cli

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tolelom/tolstake/core"
	"github.com/tolelom/tolstake/wallet"
)

// txBuilder builds a signed transaction for the loaded wallet at nonce.
type txBuilder func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error)

// submit signs the operation built by build with the keystore key, sends it
// to the node and prints the receipt.
func submit(cmd *cobra.Command, build txBuilder) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	w, err := openWallet(cfg)
	if err != nil {
		return err
	}
	client := newClient(cfg)
	ctx := cmd.Context()

	nonce, err := client.Nonce(ctx, w.PubKey())
	if err != nil {
		return fmt.Errorf("fetch nonce: %w", err)
	}
	tx, err := build(w, nonce)
	if err != nil {
		return err
	}
	rcpt, err := client.SendTx(ctx, tx)
	if err != nil {
		return fmt.Errorf("%s rejected: %w", tx.Type, err)
	}
	return printJSON(cmd.OutOrStdout(), rcpt)
}

var (
	initOperator     string
	initFeeRecipient string
	initEscrow       string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the ledger; the signer becomes administrator",
	Long: `Create the ledger configuration using the fee schedule from the config
file. It succeeds once per ledger.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fees := cfg.Fees
		return submit(cmd, func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error) {
			return w.Initialize(nonce, initOperator, initFeeRecipient, initEscrow, fees)
		})
	},
}

var depositGameID string

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Pay one entry fee and credit the player stake",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return submit(cmd, func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error) {
			return w.Deposit(nonce, depositGameID)
		})
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <amount>",
	Short: "Move available balance back to the wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		return submit(cmd, func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error) {
			return w.Withdraw(nonce, amount)
		})
	},
}

var (
	gameID      string
	gamePlayers []string
	gameStakes  []string
)

var createGameCmd = &cobra.Command{
	Use:   "create-game",
	Short: "Open a game escrow record (operator only)",
	Long: `Open a game for 2 to 10 participants. Stakes are given per participant in
the same order; without --stake every participant stakes player_stake from the
fee schedule. A random id is generated when --id is omitted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		stakes, err := parseStakes(gameStakes, len(gamePlayers), cfg.Fees.PlayerStake)
		if err != nil {
			return err
		}
		id := gameID
		if id == "" {
			id = uuid.NewString()
		}
		return submit(cmd, func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error) {
			return w.CreateGame(nonce, id, gamePlayers, stakes)
		})
	},
}

var payoutCmd = &cobra.Command{
	Use:   "payout <game-id> <winner>",
	Short: "Declare the winner of a game (operator only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submit(cmd, func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error) {
			return w.Payout(nonce, args[0], args[1])
		})
	},
}

var setOperatorCmd = &cobra.Command{
	Use:   "set-operator <pubkey>",
	Short: "Replace the trusted operator (administrator only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submit(cmd, func(w *wallet.Wallet, nonce uint64) (*core.Transaction, error) {
			return w.SetOperator(nonce, args[0])
		})
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Block deposits and game creation (administrator only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return submit(cmd, (*wallet.Wallet).Pause)
	},
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Lift a pause (administrator only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return submit(cmd, (*wallet.Wallet).Unpause)
	},
}

// parseStakes converts per-participant stake flags. With no flags every
// participant stakes def.
func parseStakes(raw []string, players int, def uint64) ([]uint64, error) {
	if len(raw) == 0 {
		stakes := make([]uint64, players)
		for i := range stakes {
			stakes[i] = def
		}
		return stakes, nil
	}
	stakes := make([]uint64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("stake %d: %w", i, err)
		}
		stakes[i] = v
	}
	return stakes, nil
}

// mustRequireFlags marks flags required and panics if one is not defined.
func mustRequireFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("%s: %v", cmd.Name(), err))
		}
	}
}

func init() {
	initCmd.Flags().StringVar(&initOperator, "operator", "", "trusted operator public key")
	initCmd.Flags().StringVar(&initFeeRecipient, "fee-recipient", "", "platform fee recipient public key")
	initCmd.Flags().StringVar(&initEscrow, "escrow", "", "escrow account public key")
	mustRequireFlags(initCmd, "operator", "fee-recipient", "escrow")

	depositCmd.Flags().StringVar(&depositGameID, "game-id", "", "game the deposit is intended for (informational)")

	createGameCmd.Flags().StringVar(&gameID, "id", "", "game id (default: random uuid)")
	createGameCmd.Flags().StringSliceVar(&gamePlayers, "player", nil, "participant public key (repeatable)")
	createGameCmd.Flags().StringSliceVar(&gameStakes, "stake", nil, "participant stake, in --player order (repeatable)")
	mustRequireFlags(createGameCmd, "player")

	rootCmd.AddCommand(initCmd, depositCmd, withdrawCmd, createGameCmd, payoutCmd,
		setOperatorCmd, pauseCmd, unpauseCmd)
}
