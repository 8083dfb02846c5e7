package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreLogger(t *testing.T) {
	t.Helper()
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestInit_WritesConsoleAndFile(t *testing.T) {
	// GIVEN: A fresh log directory and a buffer standing in for stderr
	// WHEN: Initializing and logging one line
	// THEN: Both sinks receive it

	restoreLogger(t)
	dir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer

	require.NoError(t, Init(Options{Dir: dir, Console: &console}))
	log.Info().Str("tenant", "acme").Msg("sweep finished")

	assert.Contains(t, console.String(), "sweep finished")
	assert.Contains(t, console.String(), "tenant=acme")

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "sweep finished")

	_, err = os.Stat(filepath.Join(dir, ".write-test"))
	assert.True(t, os.IsNotExist(err), "write-test file is removed")
}

func TestInit_Level(t *testing.T) {
	restoreLogger(t)
	var console bytes.Buffer

	require.NoError(t, Init(Options{Console: &console}))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	log.Debug().Msg("hidden")
	assert.NotContains(t, console.String(), "hidden")

	require.NoError(t, Init(Options{Verbose: true, Console: &console}))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	log.Debug().Msg("shown")
	assert.Contains(t, console.String(), "shown")
}

func TestInit_DirIsAFile(t *testing.T) {
	restoreLogger(t)
	file := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	err := Init(Options{Dir: file, Console: &bytes.Buffer{}})
	assert.Error(t, err)
}
