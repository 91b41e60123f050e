package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap holds the TUI bindings for one keybinding style ("vim" or "standard")
type KeyMap struct {
	mode string

	Up      key.Binding
	Down    key.Binding
	First   key.Binding
	Last    key.Binding
	Tabs    key.Binding
	Use     key.Binding
	Install key.Binding
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// NewKeyMap builds the bindings for mode; anything but "standard" gets vim keys
func NewKeyMap(mode string) *KeyMap {
	vim := mode != "standard"
	if vim {
		mode = "vim"
	}

	km := &KeyMap{
		mode:    mode,
		Up:      key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "move up")),
		Down:    key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "move down")),
		First:   key.NewBinding(key.WithKeys("home"), key.WithHelp("Home", "first runner")),
		Last:    key.NewBinding(key.WithKeys("end"), key.WithHelp("End", "last runner")),
		Tabs:    key.NewBinding(key.WithKeys("1", "2"), key.WithHelp("1/2", "switch between Runners and Install")),
		Use:     key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "use the highlighted runner by default")),
		Install: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "install the latest Proton-GE")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
	if vim {
		km.Up = key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k", "move up"))
		km.Down = key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j", "move down"))
		km.First = key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first runner"))
		km.Last = key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last runner"))
	}
	return km
}

func (k *KeyMap) Mode() string { return k.mode }

func (k *KeyMap) IsUp(msg tea.KeyMsg) bool      { return key.Matches(msg, k.Up) }
func (k *KeyMap) IsDown(msg tea.KeyMsg) bool    { return key.Matches(msg, k.Down) }
func (k *KeyMap) IsHome(msg tea.KeyMsg) bool    { return key.Matches(msg, k.First) }
func (k *KeyMap) IsEnd(msg tea.KeyMsg) bool     { return key.Matches(msg, k.Last) }
func (k *KeyMap) IsConfirm(msg tea.KeyMsg) bool { return key.Matches(msg, k.Use) }
func (k *KeyMap) IsInstall(msg tea.KeyMsg) bool { return key.Matches(msg, k.Install) }
func (k *KeyMap) IsRefresh(msg tea.KeyMsg) bool { return key.Matches(msg, k.Refresh) }
func (k *KeyMap) IsHelp(msg tea.KeyMsg) bool    { return key.Matches(msg, k.Help) }
func (k *KeyMap) IsQuit(msg tea.KeyMsg) bool    { return key.Matches(msg, k.Quit) }

// NavigationHelp is the one-line hint shown under the runner list
func (k *KeyMap) NavigationHelp() string {
	if k.mode == "vim" {
		return "j/k: navigate"
	}
	return "↑/↓: navigate"
}

// FullHelp renders every binding for the help overlay
func (k *KeyMap) FullHelp() string {
	var b strings.Builder
	section := func(title string, bindings ...key.Binding) {
		b.WriteString(title + ":\n")
		for _, kb := range bindings {
			fmt.Fprintf(&b, "  %-7s %s\n", kb.Help().Key, kb.Help().Desc)
		}
	}
	section("Navigation", k.Up, k.Down, k.First, k.Last, k.Tabs)
	b.WriteString("\n")
	section("Actions", k.Use, k.Install, k.Refresh, k.Help, k.Quit)
	return strings.TrimRight(b.String(), "\n")
}
