package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"serve"},
		{"migrate"},
		{"seed"},
		{"invoices", "refresh-overdue"},
		{"idempotency", "purge"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	migrate, err := serve.Flags().GetBool("migrate")
	require.NoError(t, err)
	assert.True(t, migrate)
}
