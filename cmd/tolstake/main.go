// Command tolstake runs a staking ledger node and talks to one over RPC.
package main

import "github.com/tolelom/tolstake/internal/cli"

func main() {
	cli.Execute()
}
