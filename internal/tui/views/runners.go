package views

import (
	"fmt"
	"strings"

	"github.com/DonovanMods/protonctl/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
)

// RunnersLoadedMsg carries a fresh inventory and the global preference
type RunnersLoadedMsg struct {
	Runners    []domain.Runner
	Preference string
	Err        error
}

// RunnerChosenMsg is sent when the user picks a runner as the default.
// Path is "auto" for the auto-detect entry.
type RunnerChosenMsg struct {
	Path string
}

// RunnerPicker lists detected runners with an "auto" entry on top
type RunnerPicker struct {
	keys       *KeyMap
	runners    []domain.Runner
	preference string
	selected   int
	loaded     bool
	err        error
	width      int
	height     int
}

// NewRunnerPicker creates an empty runner picker
func NewRunnerPicker(keys *KeyMap) RunnerPicker {
	return RunnerPicker{
		keys:       keys,
		preference: domain.RunnerAuto,
		width:      80,
		height:     24,
	}
}

// Selected returns the highlighted row; row 0 is auto-detect
func (r RunnerPicker) Selected() int {
	return r.selected
}

// SelectedPath returns the preference value of the highlighted row
func (r RunnerPicker) SelectedPath() string {
	if r.selected == 0 || r.selected > len(r.runners) {
		return domain.RunnerAuto
	}
	return r.runners[r.selected-1].Path
}

// Init implements tea.Model
func (r RunnerPicker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (r RunnerPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RunnersLoadedMsg:
		r.loaded = true
		r.err = msg.Err
		r.runners = msg.Runners
		r.preference = msg.Preference
		if domain.IsAutoPreference(r.preference) {
			r.preference = domain.RunnerAuto
		}
		r.selected = r.preferenceRow()
		return r, nil

	case tea.KeyMsg:
		return r.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		return r, nil
	}

	return r, nil
}

// preferenceRow returns the row matching the preference, or 0
func (r RunnerPicker) preferenceRow() int {
	for i, runner := range r.runners {
		if runner.Path == r.preference {
			return i + 1
		}
	}
	return 0
}

func (r RunnerPicker) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := len(r.runners) + 1

	switch {
	case r.keys.IsUp(msg):
		r.selected--
		if r.selected < 0 {
			r.selected = rows - 1
		}
	case r.keys.IsDown(msg):
		r.selected++
		if r.selected >= rows {
			r.selected = 0
		}
	case r.keys.IsHome(msg):
		r.selected = 0
	case r.keys.IsEnd(msg):
		r.selected = rows - 1
	case r.keys.IsConfirm(msg):
		path := r.SelectedPath()
		return r, func() tea.Msg {
			return RunnerChosenMsg{Path: path}
		}
	}
	return r, nil
}

// View implements tea.Model
func (r RunnerPicker) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Default Runner") + "\n\n")
	if r.err != nil {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Could not load runners: %v", r.err)) + "\n\n")
	}

	for i, label := range r.labels() {
		cursor, style := "  ", rowStyle
		if i == r.selected {
			cursor, style = "▸ ", cursorStyle
		}
		mark := "  "
		if r.isDefault(i) {
			mark = "● "
		}
		b.WriteString(style.Render(cursor+mark+label) + "\n")

		if i == r.selected && i > 0 {
			runner := r.runners[i-1]
			b.WriteString(detailStyle.Render(fmt.Sprintf("%s from %s", runner.Type, runner.Source)) + "\n")
			b.WriteString(detailStyle.Render(runner.Path) + "\n")
		}
	}

	if r.loaded && len(r.runners) == 0 {
		b.WriteString("\n" + detailStyle.Render("No Proton or Wine found. Press 2 to install Proton-GE.") + "\n")
	}
	b.WriteString(hintStyle.Render(r.keys.NavigationHelp() + "  enter: set default  ● current default"))
	return b.String()
}

// labels lists the picker rows; row 0 is always auto-detect
func (r RunnerPicker) labels() []string {
	rows := make([]string, 0, len(r.runners)+1)
	rows = append(rows, "Auto-detect")
	for _, runner := range r.runners {
		label := runner.Name
		if runner.Version != "" && runner.Version != runner.Name {
			label += " (" + runner.Version + ")"
		}
		rows = append(rows, label)
	}
	return rows
}

func (r RunnerPicker) isDefault(row int) bool {
	if row == 0 {
		return r.preference == domain.RunnerAuto
	}
	return r.runners[row-1].Path == r.preference
}
