package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tolelom/tolstake/wallet"
)

var forceGenKey bool

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate a new key pair into the keystore file",
	Long: `Generate an ed25519 key pair and save it encrypted with the password in
TOL_PASSWORD. The printed public key is the identity used on the ledger.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := os.Stat(keyFile); err == nil && !forceGenKey {
			return fmt.Errorf("keystore %s already exists (use --force to overwrite)", keyFile)
		}
		w, err := wallet.Generate("")
		if err != nil {
			return err
		}
		if err := wallet.SaveKey(keyFile, password(), w.PrivKey()); err != nil {
			return fmt.Errorf("save key: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Public key: %s\nSaved to:   %s\n", w.PubKey(), keyFile)
		return nil
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the public key stored in the keystore file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pub, err := wallet.PubKeyOf(keyFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), pub)
		return nil
	},
}

func init() {
	genkeyCmd.Flags().BoolVar(&forceGenKey, "force", false, "overwrite an existing keystore")
	rootCmd.AddCommand(genkeyCmd, addressCmd)
}
