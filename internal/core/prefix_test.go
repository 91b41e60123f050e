package core_test

import (
	"context"
	"strings"
	"testing"

	"github.com/DonovanMods/protonctl/internal/core"
	"github.com/DonovanMods/protonctl/internal/domain"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const compatRoot = "/data/protonctl/compatdata"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"My Game!", "My_Game"},
		{"Half-Life 2", "Half-Life_2"},
		{"  Tabs\t\tand   spaces ", "_Tabs_and_spaces_"},
		{"Fallout: New Vegas (GOTY)", "Fallout_New_Vegas_(GOTY)"},
		{"Café Ünïcode", "Caf_ncode"},
		{"v1.2.3", "v1.2.3"},
		{"!!!", ""},
		{"Game & Watch", "Game_Watch"},
		{"A ! B", "A_B"},
		{"Half-Life : Alyx", "Half-Life_Alyx"},
		{"a _ b", "a___b"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.Slugify(tt.name))
		})
	}
}

func TestSlugify_Truncates(t *testing.T) {
	slug := core.Slugify(strings.Repeat("ab", 80))
	assert.Len(t, slug, 100)
}

func TestSlugify_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.String().Draw(t, "name")

		slug := core.Slugify(name)
		if len(slug) > 100 {
			t.Fatalf("slug %q longer than 100", slug)
		}
		for _, r := range slug {
			ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
				strings.ContainsRune("_-().", r)
			if !ok {
				t.Fatalf("slug %q contains %q", slug, r)
			}
		}
		if again := core.Slugify(name); again != slug {
			t.Fatalf("slugify not stable: %q then %q", slug, again)
		}
		if core.Slugify(slug) != slug {
			t.Fatalf("slugify not idempotent on %q", slug)
		}
		if !strings.Contains(name, "_") && strings.Contains(slug, "__") {
			t.Fatalf("whitespace run in %q produced %q", name, slug)
		}
	})
}

func TestPrefixManager_PathIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := core.NewPrefixManager(fs, compatRoot)

	first, err := m.Path("My Game!")
	require.NoError(t, err)
	assert.Equal(t, compatRoot+"/My_Game", first)

	for i := 0; i < 3; i++ {
		again, err := m.Path("My Game!")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	exists, err := afero.DirExists(fs, first)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPrefixManager_InvalidNames(t *testing.T) {
	m := core.NewPrefixManager(afero.NewMemMapFs(), compatRoot)

	for _, name := range []string{"", "!!!", ".", "..", "?.?"} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Path(name)
			assert.ErrorIs(t, err, domain.ErrInvalidGameName)

			res := m.Delete(name)
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestPrefixManager_DeleteRecreatesEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := core.NewPrefixManager(fs, compatRoot)

	dir, err := m.Path("Skyrim")
	require.NoError(t, err)
	makeFile(t, fs, dir+"/pfx/drive_c/windows/system.reg", 0644)

	res := m.Delete("Skyrim")
	assert.True(t, res.Success)
	assert.Equal(t, "Prefix deleted for Skyrim", res.Message)

	again, err := m.Path("Skyrim")
	require.NoError(t, err)
	assert.Equal(t, dir, again)

	entries, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrefixManager_DeleteMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := core.NewPrefixManager(fs, compatRoot)

	res := m.Delete("Never Played")
	assert.True(t, res.Success)
	assert.Equal(t, "No prefix exists for Never Played", res.Message)

	exists, _ := afero.DirExists(fs, compatRoot+"/Never_Played")
	assert.False(t, exists)
}

func TestPrefixManager_DeleteFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := core.NewPrefixManager(fs, compatRoot)
	_, err := m.Path("Locked")
	require.NoError(t, err)

	res := core.NewPrefixManager(afero.NewReadOnlyFs(fs), compatRoot).Delete("Locked")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "removing prefix")
}

func TestPrefixManager_Size(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := core.NewPrefixManager(fs, compatRoot)

	size, err := m.Size(context.Background(), "Missing")
	require.NoError(t, err)
	assert.Zero(t, size)

	dir, err := m.Path("Sized")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, dir+"/pfx/user.reg", make([]byte, 1000), 0644))
	require.NoError(t, afero.WriteFile(fs, dir+"/pfx/drive_c/game.dll", make([]byte, 24), 0644))

	size, err = m.Size(context.Background(), "Sized")
	require.NoError(t, err)
	assert.Equal(t, int64(1024), size)
}

func TestPrefixManager_SizeCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := core.NewPrefixManager(fs, compatRoot)
	dir, err := m.Path("Big")
	require.NoError(t, err)
	makeFile(t, fs, dir+"/a", 0644)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.Size(ctx, "Big")
	assert.ErrorIs(t, err, context.Canceled)
}
