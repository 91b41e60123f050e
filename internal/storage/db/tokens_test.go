package db_test

import (
	"testing"
	"time"

	"github.com/DonovanMods/protonctl/internal/storage/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, database.Close()) })
	return database
}

func TestTokens_Lifecycle(t *testing.T) {
	database := openMemory(t)

	tok, err := database.GetToken("github")
	require.NoError(t, err)
	assert.Nil(t, tok, "nothing stored yet")

	has, err := database.HasToken("github")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, database.SaveToken("github", "ghp_first"))
	require.NoError(t, database.SaveToken("github", "ghp_second"))

	tok, err = database.GetToken("github")
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "github", tok.Service)
	assert.Equal(t, "ghp_second", tok.Value)
	assert.WithinDuration(t, time.Now().UTC(), tok.UpdatedAt, time.Hour)

	has, err = database.HasToken("github")
	require.NoError(t, err)
	assert.True(t, has)

	var rows int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM auth_tokens").Scan(&rows))
	assert.Equal(t, 1, rows, "saving twice replaces the token")

	require.NoError(t, database.DeleteToken("github"))
	tok, err = database.GetToken("github")
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestTokens_ServicesAreIndependent(t *testing.T) {
	database := openMemory(t)

	require.NoError(t, database.SaveToken("github", "ghp_abc"))
	require.NoError(t, database.SaveToken("gitlab", "glpat_xyz"))
	require.NoError(t, database.DeleteToken("gitlab"))

	tests := []struct {
		service string
		want    bool
	}{
		{"github", true},
		{"gitlab", false},
		{"codeberg", false},
	}
	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			has, err := database.HasToken(tt.service)
			require.NoError(t, err)
			assert.Equal(t, tt.want, has)
		})
	}
}

func TestDeleteToken_MissingIsNoop(t *testing.T) {
	database := openMemory(t)
	assert.NoError(t, database.DeleteToken("github"))
}

func TestTokens_ClosedDatabase(t *testing.T) {
	database, err := db.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Close())

	assert.ErrorContains(t, database.SaveToken("github", "x"), "saving github token")
	_, err = database.GetToken("github")
	assert.ErrorContains(t, err, "reading github token")
	_, err = database.HasToken("github")
	assert.ErrorContains(t, err, "looking up github token")
}
