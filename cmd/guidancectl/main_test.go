package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersMaintenanceCommands(t *testing.T) {
	root := newRootCommand()

	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"migrate", "seed", "fix-summoned-status", "cleanup-invalid-tallies", "recompute-tallies", "rollover"} {
		assert.True(t, names[want], want)
	}

	require.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.Equal(t, "configs/config.yaml", root.PersistentFlags().Lookup("config").DefValue)
}

func TestRolloverRejectsMalformedSchoolYear(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"rollover", "--school-year", "2024/2025"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --school-year")
}
