package main

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs("node", []string{
		"-rpc-port", ":9999",
		"-db-path", "/tmp/appchain",
		"-log-level", "100",
	})
	require.NoError(t, err)

	require.Equal(t, ":9999", args.RPCPort)
	require.Equal(t, "/tmp/appchain", args.AppchainDBPath)
	require.Equal(t, "./localdb", args.LocalDBPath)
	require.Equal(t, zerolog.DebugLevel, args.LogLevel)
}

func TestParseArgs_Errors(t *testing.T) {
	_, err := ParseArgs("node", []string{"-no-such-flag"})
	require.Error(t, err)

	_, err = ParseArgs("node", []string{"-multichain-config", filepath.Join(t.TempDir(), "missing.json")})
	require.ErrorContains(t, err, "read multichain config")
}
