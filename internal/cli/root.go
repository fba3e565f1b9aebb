// Package cli implements the tolstake command tree.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/tolelom/tolstake/config"
	"github.com/tolelom/tolstake/rpc"
	"github.com/tolelom/tolstake/wallet"
)

// passwordEnv names the variable holding the keystore password. It is not a
// flag so that it does not leak through the process list.
const passwordEnv = "TOL_PASSWORD"

var (
	configFile string
	keyFile    string
	rpcURL     string
)

var rootCmd = &cobra.Command{
	Use:   "tolstake",
	Short: "tolstake - staking and escrow ledger for competitive games",
	Long: `tolstake keeps player balances and game escrow records. Players deposit
a fixed entry fee, a trusted operator opens games and declares winners, and
players withdraw their available balance.

Run "tolstake node" to serve the ledger; every other command is a client.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file (json, yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&keyFile, "key", "tolstake.key", "keystore file")
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc", "", "node RPC address (default: rpc_addr from config)")
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		if _, err := os.Stat("config.json"); err == nil {
			return config.Load("config.json")
		}
	}
	return config.Load(configFile)
}

func password() string {
	pw := os.Getenv(passwordEnv)
	if pw == "" {
		log.Printf("WARNING: %s not set, keystore uses an empty password", passwordEnv)
	}
	return pw
}

func openWallet(cfg *config.Config) (*wallet.Wallet, error) {
	priv, err := wallet.LoadKey(keyFile, password())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("keystore %s not found (run \"tolstake genkey\")", keyFile)
		}
		return nil, fmt.Errorf("load key: %w", err)
	}
	return wallet.New(priv, cfg.ChainID), nil
}

func newClient(cfg *config.Config) *rpc.Client {
	addr := rpcURL
	if addr == "" {
		addr = cfg.RPCAddr
	}
	return rpc.NewClient(addr, cfg.RPCAuthToken)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
