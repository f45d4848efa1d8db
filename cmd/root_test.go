package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"process", "inbox", "serve", "proposals"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "proposal-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestProcessCommand_Flags(t *testing.T) {
	for _, name := range []string{"from", "subject", "body", "file"} {
		flag := processCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "process command should have --%s flag", name)
	}
}

func TestInboxCommand_Flags(t *testing.T) {
	flag := inboxCmd.Flags().Lookup("max")
	require.NotNil(t, flag, "inbox command should have --max flag")
	assert.Equal(t, "0", flag.DefValue)

	flag = inboxCmd.Flags().Lookup("concurrency")
	require.NotNil(t, flag, "inbox command should have --concurrency flag")

	flag = inboxCmd.Flags().Lookup("keep-unread")
	require.NotNil(t, flag, "inbox command should have --keep-unread flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestProposalsCommand_HasSubcommands(t *testing.T) {
	cmds := proposalsCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"list", "approve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}
