package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "grit", cmd.Use)
	assert.Contains(t, cmd.Long, "data branch")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"init", "create", "show", "list", "board", "claim", "release",
		"done", "status", "depend", "undepend", "session", "search",
		"edit", "doctor",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestCreateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	createCmd, _, err := cmd.Find([]string{"create"})
	require.NoError(t, err)

	bodyFlag := createCmd.Flags().Lookup("body")
	require.NotNil(t, bodyFlag)
	assert.Equal(t, "b", bodyFlag.Shorthand)

	require.NotNil(t, createCmd.Flags().Lookup("epic"))
	require.NotNil(t, createCmd.Flags().Lookup("depends-on"))
}

func TestClaimCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	claimCmd, _, err := cmd.Find([]string{"claim"})
	require.NoError(t, err)

	require.NotNil(t, claimCmd.Flags().Lookup("as"))
	require.NotNil(t, claimCmd.Flags().Lookup("session"))
}

func TestDoctorCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	doctorCmd, _, err := cmd.Find([]string{"doctor"})
	require.NoError(t, err)

	repairFlag := doctorCmd.Flags().Lookup("repair")
	require.NotNil(t, repairFlag)
	assert.Equal(t, "false", repairFlag.DefValue)
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"list", "--format", "xml"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
