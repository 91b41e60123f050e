package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthCmd_Structure(t *testing.T) {
	assert.Equal(t, "auth", authCmd.Use)
	assert.Equal(t, "github [token]", authGitHubCmd.Use)
	assert.Equal(t, "logout <source>", authLogoutCmd.Use)
	assert.NotEmpty(t, authStatusCmd.Short)
}

func TestIsSupportedSource(t *testing.T) {
	assert.True(t, isSupportedSource("github"))
	assert.False(t, isSupportedSource("nexusmods"))
	assert.False(t, isSupportedSource(""))
}

func TestReadAPIKey_Piped(t *testing.T) {
	out := new(bytes.Buffer)
	key, err := readAPIKey(strings.NewReader("  ghp_secret123  \n"), out)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret123", key)
	assert.Equal(t, "Enter token: ", out.String())

	key, err = readAPIKey(strings.NewReader("no-newline"), out)
	require.NoError(t, err)
	assert.Equal(t, "no-newline", key)
}

func TestAuth_LoginStatusLogout(t *testing.T) {
	dirs := setupTestDirs(t)

	out, err := runCLI(t, dirs, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "GitHub: not authenticated")

	out, err = runCLI(t, dirs, "", "auth", "github", "ghp_abcdefghijk")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved GitHub token (ghp...ijk)")

	out, err = runCLI(t, dirs, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "GitHub: authenticated (stored token)")

	out, err = runCLI(t, dirs, "", "auth", "logout", "github")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed GitHub token.")

	out, err = runCLI(t, dirs, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "GitHub: not authenticated")
}

func TestAuth_TokenFromStdin(t *testing.T) {
	dirs := setupTestDirs(t)

	out, err := runCLI(t, dirs, "ghp_fromstdin99\n", "auth", "github")
	require.NoError(t, err)
	assert.Contains(t, out, "Enter token: ")
	assert.Contains(t, out, "Saved GitHub token (ghp...n99)")
}

func TestAuth_Errors(t *testing.T) {
	dirs := setupTestDirs(t)

	_, err := runCLI(t, dirs, "\n", "auth", "github")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token cannot be empty")

	_, err = runCLI(t, dirs, "", "auth", "logout", "nexusmods")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported source")
}

func TestAuthStatus_EnvironmentToken(t *testing.T) {
	dirs := setupTestDirs(t)
	t.Setenv("GITHUB_TOKEN", "ghp_fromenv12345")

	out, err := runCLI(t, dirs, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "authenticated via GITHUB_TOKEN (key: ghp...345)")
}
