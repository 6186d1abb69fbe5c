package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()

	require.NoError(t, cmd.ParseFlags([]string{"--addr", ":7777", "--db", "x.db", "--log-level", "debug"}))

	addr, err := cmd.Flags().GetString("addr")
	require.NoError(t, err)
	assert.Equal(t, ":7777", addr)

	db, err := cmd.Flags().GetString("db")
	require.NoError(t, err)
	assert.Equal(t, "x.db", db)
}
