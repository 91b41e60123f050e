package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/DonovanMods/protonctl/internal/domain"
	"github.com/DonovanMods/protonctl/internal/storage/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameCmd_Structure(t *testing.T) {
	assert.Equal(t, "game", gameCmd.Use)
	assert.NotEmpty(t, gameCmd.Short)
	assert.Equal(t, "add <game-id>", gameAddCmd.Use)
	assert.Equal(t, "set-runner <game-id> <path|auto>", gameSetRunnerCmd.Use)
	assert.NotEmpty(t, gameSetRunnerCmd.Long)
}

func TestGameAdd(t *testing.T) {
	dirs := setupTestDirs(t)

	out, err := runCLI(t, dirs, "", "game", "add", "witcher3", "--name", "The Witcher 3", "--exe", "~/Games/witcher3/witcher3.exe")
	require.NoError(t, err)
	assert.Contains(t, out, "Added The Witcher 3 (witcher3)")

	games, err := config.LoadGames(dirs.config)
	require.NoError(t, err)
	require.Contains(t, games, "witcher3")
	assert.Equal(t, filepath.Join(dirs.home, "Games", "witcher3", "witcher3.exe"), games["witcher3"].Executable)
	assert.Empty(t, games["witcher3"].Runner)
}

func TestGameAdd_NameDefaultsToID(t *testing.T) {
	dirs := setupTestDirs(t)

	_, err := runCLI(t, dirs, "", "game", "add", "hollow", "--exe", "/games/hollow/hollow.exe")
	require.NoError(t, err)

	games, err := config.LoadGames(dirs.config)
	require.NoError(t, err)
	assert.Equal(t, "hollow", games["hollow"].Name)
}

func TestGameAdd_Errors(t *testing.T) {
	dirs := setupTestDirs(t)

	_, err := runCLI(t, dirs, "", "game", "add", "x", "--exe", "/games/x/start.sh")
	require.ErrorIs(t, err, domain.ErrNotWindowsExecutable)

	_, err = runCLI(t, dirs, "", "game", "add", "x")
	assert.Error(t, err, "--exe is required")

	_, err = runCLI(t, dirs, "", "game", "add", "--exe", "/games/x/x.exe")
	assert.Error(t, err, "game ID is required")
}

func TestGameList(t *testing.T) {
	dirs := setupTestDirs(t)

	out, err := runCLI(t, dirs, "", "game", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No games configured.")

	_, err = runCLI(t, dirs, "", "game", "add", "b-game", "--name", "B", "--exe", "/games/b.exe", "--runner", "/usr/bin/wine")
	require.NoError(t, err)
	_, err = runCLI(t, dirs, "", "game", "add", "a-game", "--name", "A", "--exe", "/games/a.exe")
	require.NoError(t, err)

	out, err = runCLI(t, dirs, "", "game", "list")
	require.NoError(t, err)
	assert.Regexp(t, `(?s)a-game\s+A\s+auto\s+/games/a.exe.*b-game\s+B\s+/usr/bin/wine\s+/games/b.exe`, out)

	out, err = runCLI(t, dirs, "", "--json", "game", "list")
	require.NoError(t, err)
	var games []domain.Game
	require.NoError(t, json.Unmarshal([]byte(out), &games))
	require.Len(t, games, 2)
	assert.Equal(t, "a-game", games[0].ID)
}

func TestGameSetRunner(t *testing.T) {
	dirs := setupTestDirs(t)
	proton := installProton(t, dirs, "GE-Proton9-20")

	_, err := runCLI(t, dirs, "", "game", "set-runner", "missing", proton)
	require.ErrorIs(t, err, domain.ErrGameNotFound)

	_, err = runCLI(t, dirs, "", "game", "add", "witcher3", "--exe", "/games/w3.exe")
	require.NoError(t, err)

	out, err := runCLI(t, dirs, "", "game", "set-runner", "witcher3", proton)
	require.NoError(t, err)
	assert.Contains(t, out, "witcher3 now uses "+proton)

	games, err := config.LoadGames(dirs.config)
	require.NoError(t, err)
	assert.Equal(t, proton, games["witcher3"].Runner)

	out, err = runCLI(t, dirs, "", "game", "set-runner", "witcher3", "auto")
	require.NoError(t, err)
	assert.Contains(t, out, "witcher3 now follows the default runner")

	games, err = config.LoadGames(dirs.config)
	require.NoError(t, err)
	assert.Empty(t, games["witcher3"].Runner)
}

func TestGameRemove_KeepsPrefix(t *testing.T) {
	dirs := setupTestDirs(t)

	_, err := runCLI(t, dirs, "", "game", "remove", "missing")
	require.ErrorIs(t, err, domain.ErrGameNotFound)

	_, err = runCLI(t, dirs, "", "game", "add", "mg", "--name", "My Game", "--exe", "/games/mg.exe")
	require.NoError(t, err)
	prefix, err := runCLI(t, dirs, "", "prefix", "path", "My Game")
	require.NoError(t, err)

	out, err := runCLI(t, dirs, "", "game", "remove", "mg")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed mg")

	games, err := config.LoadGames(dirs.config)
	require.NoError(t, err)
	assert.NotContains(t, games, "mg")

	_, statErr := os.Stat(filepath.Clean(trimNewline(prefix)))
	assert.NoError(t, statErr)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
