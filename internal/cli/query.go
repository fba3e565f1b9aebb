package cli

import (
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read ledger records from a node",
}

// queryCommand builds a subcommand that calls method with the positional
// argument bound to param, and prints the raw result.
func queryCommand(use, short, method, param string) *cobra.Command {
	nargs := 0
	if param != "" {
		nargs = 1
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			params := map[string]string{}
			if param != "" {
				params[param] = args[0]
			}
			var out any
			if err := newClient(cfg).Call(cmd.Context(), method, params, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func init() {
	queryCmd.AddCommand(
		queryCommand("config", "Show the ledger configuration", "getConfig", ""),
		queryCommand("player <pubkey>", "Show a player record", "getPlayer", "address"),
		queryCommand("game <id>", "Show a game record", "getGame", "id"),
		queryCommand("balance <pubkey>", "Show native balance and nonce", "getBalance", "address"),
		queryCommand("games <pubkey>", "List games a player entered and won", "getGamesByPlayer", "address"),
		queryCommand("root", "Show the state root", "getStateRoot", ""),
		queryCommand("sequence", "Show the number of committed operations", "getSequence", ""),
	)
	rootCmd.AddCommand(queryCmd)
}
