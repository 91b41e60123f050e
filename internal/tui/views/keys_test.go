package views_test

import (
	"testing"

	"github.com/DonovanMods/protonctl/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeyMap_VimMode(t *testing.T) {
	km := views.NewKeyMap("vim")

	assert.True(t, km.IsUp(runes("k")))
	assert.True(t, km.IsDown(runes("j")))
	assert.True(t, km.IsHome(runes("g")))
	assert.True(t, km.IsEnd(runes("G")))
	assert.True(t, km.IsConfirm(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.True(t, km.IsQuit(runes("q")))
	assert.True(t, km.IsInstall(runes("i")))
	assert.True(t, km.IsRefresh(runes("r")))
}

func TestKeyMap_StandardMode(t *testing.T) {
	km := views.NewKeyMap("standard")

	assert.True(t, km.IsUp(tea.KeyMsg{Type: tea.KeyUp}))
	assert.True(t, km.IsDown(tea.KeyMsg{Type: tea.KeyDown}))
	assert.True(t, km.IsHome(tea.KeyMsg{Type: tea.KeyHome}))

	assert.False(t, km.IsUp(runes("k")))
	assert.False(t, km.IsDown(runes("j")))
	assert.False(t, km.IsEnd(runes("G")))
}

func TestKeyMap_Help(t *testing.T) {
	assert.Contains(t, views.NewKeyMap("vim").NavigationHelp(), "j/k")
	assert.Contains(t, views.NewKeyMap("standard").NavigationHelp(), "↑/↓")

	full := views.NewKeyMap("vim").FullHelp()
	assert.Contains(t, full, "install the latest Proton-GE")
	assert.Contains(t, full, "G       last runner")
	assert.Contains(t, views.NewKeyMap("standard").FullHelp(), "End     last runner")
}

func TestKeyMap_SpaceAndCtrlC(t *testing.T) {
	km := views.NewKeyMap("standard")
	assert.True(t, km.IsConfirm(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}))
	assert.True(t, km.IsQuit(tea.KeyMsg{Type: tea.KeyCtrlC}))
	assert.False(t, km.IsQuit(runes("x")))
}

func TestKeyMap_DefaultsToVim(t *testing.T) {
	km := views.NewKeyMap("")
	assert.Equal(t, "vim", km.Mode())
	assert.True(t, km.IsUp(runes("k")))
}
