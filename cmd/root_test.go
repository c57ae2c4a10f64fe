package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"collect", "batch", "runs", "recipes", "check"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "zyte-collect", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCollectCommand_Flags(t *testing.T) {
	for _, name := range []string{"url", "param", "max-steps", "max-retries", "out"} {
		require.NotNil(t, collectCmd.Flags().Lookup(name), "collect command should have --%s flag", name)
	}
}

func TestBatchCommand_Flags(t *testing.T) {
	require.NotNil(t, batchCmd.Flags().Lookup("params"))
	require.NotNil(t, batchCmd.Flags().Lookup("max-steps"))
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])

	flag := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}

func TestFormatRecipes(t *testing.T) {
	var buf bytes.Buffer
	formatRecipes(&buf, testBook(t).List())

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "quotes")
	assert.Contains(t, out, "link")
	assert.Contains(t, out, "single")
	assert.Contains(t, out, "browser")
	assert.Contains(t, out, "author")
}
