package cli

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStakesDefault(t *testing.T) {
	stakes, err := parseStakes(nil, 3, 16_000_000)
	require.NoError(t, err)
	assert.Equal(t, []uint64{16_000_000, 16_000_000, 16_000_000}, stakes)
}

func TestParseStakesExplicit(t *testing.T) {
	stakes, err := parseStakes([]string{"1", "20"}, 2, 99)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 20}, stakes)

	_, err = parseStakes([]string{"1", "-3"}, 2, 99)
	assert.Error(t, err)
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"node"}, {"genkey"}, {"address"}, {"init"}, {"deposit"}, {"withdraw"},
		{"create-game"}, {"payout"}, {"set-operator"}, {"pause"}, {"unpause"},
		{"query", "config"}, {"query", "player"}, {"query", "game"},
		{"query", "balance"}, {"query", "games"}, {"query", "root"}, {"query", "sequence"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestRequiredFlagsMarked(t *testing.T) {
	for cmd, names := range map[*cobra.Command][]string{
		initCmd:       {"operator", "fee-recipient", "escrow"},
		createGameCmd: {"player"},
	} {
		for _, name := range names {
			f := cmd.Flags().Lookup(name)
			require.NotNil(t, f, "%s --%s", cmd.Name(), name)
			assert.Equal(t, []string{"true"}, f.Annotations[cobra.BashCompOneRequiredFlag], "%s --%s", cmd.Name(), name)
		}
	}
}

func TestMustRequireFlagsPanicsOnUnknownFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "scratch"}
	cmd.Flags().String("known", "", "")
	assert.NotPanics(t, func() { mustRequireFlags(cmd, "known") })
	assert.Panics(t, func() { mustRequireFlags(cmd, "missing") })
}
