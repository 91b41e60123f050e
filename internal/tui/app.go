package tui

import (
	"context"
	"fmt"

	"github.com/DonovanMods/protonctl/internal/core"
	"github.com/DonovanMods/protonctl/internal/domain"
	"github.com/DonovanMods/protonctl/internal/tui/views"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ViewType represents different screens in the TUI
type ViewType int

const (
	ViewRunners ViewType = iota
	ViewInstall
)

// NavigateMsg is sent to change views
type NavigateMsg struct {
	View ViewType
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

// runnerSavedMsg reports the outcome of changing the default runner
type runnerSavedMsg struct {
	Runner *domain.Runner
	Err    error
}

// Backend is the part of core.Service the TUI drives
type Backend interface {
	ListRunners(ctx context.Context) []domain.Runner
	GlobalRunner() (string, error)
	SelectRunner(path string) (*domain.Runner, error)
	LatestRelease(ctx context.Context) (*domain.ReleaseInfo, error)
	InstallLatest(ctx context.Context, progress core.ProgressFunc) (*core.InstallResult, error)
}

// App is the main TUI application model
type App struct {
	backend     Backend
	ctx         context.Context
	cancel      context.CancelFunc
	keys        *views.KeyMap
	currentView ViewType
	width       int
	height      int
	err         error
	notice      string
	showHelp    bool

	runners   views.RunnerPicker
	install   views.InstallView
	installCh <-chan tea.Msg
}

// NewApp creates a new TUI application. Quitting cancels ctx for any
// install still running.
func NewApp(ctx context.Context, backend Backend, keybindings string) App {
	ctx, cancel := context.WithCancel(ctx)
	keys := views.NewKeyMap(keybindings)
	return App{
		backend:     backend,
		ctx:         ctx,
		cancel:      cancel,
		keys:        keys,
		currentView: ViewRunners,
		width:       80,
		height:      24,
		runners:     views.NewRunnerPicker(keys),
		install:     views.NewInstallView(keys),
	}
}

// CurrentView returns the current view type
func (a App) CurrentView() ViewType {
	return a.currentView
}

// Init implements tea.Model
func (a App) Init() tea.Cmd {
	return tea.Batch(a.loadRunners(), a.loadRelease(), a.install.Init())
}

func (a App) loadRunners() tea.Cmd {
	if a.backend == nil {
		return nil
	}
	backend, ctx := a.backend, a.ctx
	return func() tea.Msg {
		pref, err := backend.GlobalRunner()
		return views.RunnersLoadedMsg{
			Runners:    backend.ListRunners(ctx),
			Preference: pref,
			Err:        err,
		}
	}
}

func (a App) loadRelease() tea.Cmd {
	if a.backend == nil {
		return nil
	}
	backend, ctx := a.backend, a.ctx
	return func() tea.Msg {
		info, err := backend.LatestRelease(ctx)
		return views.ReleaseLoadedMsg{Info: info, Err: err}
	}
}

func (a App) saveRunner(path string) tea.Cmd {
	backend := a.backend
	return func() tea.Msg {
		runner, err := backend.SelectRunner(path)
		return runnerSavedMsg{Runner: runner, Err: err}
	}
}

// startInstall runs the install in the background and streams its progress
// back as messages. Progress updates are dropped while the UI is behind; the
// final InstallDoneMsg is delivered unless the app has quit.
func (a App) startInstall() (<-chan tea.Msg, tea.Cmd) {
	ch := make(chan tea.Msg, 16)
	backend, ctx := a.backend, a.ctx
	go func() {
		defer close(ch)
		res, err := backend.InstallLatest(ctx, func(percent float64, status string) {
			select {
			case ch <- views.InstallProgressMsg{Percent: percent, Status: status}:
			default:
			}
		})
		select {
		case ch <- views.InstallDoneMsg{Result: res, Err: err}:
		case <-ctx.Done():
		}
	}()
	return ch, waitForInstall(ch)
}

func waitForInstall(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// Update implements tea.Model
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		var cmds []tea.Cmd
		var cmd tea.Cmd
		a.runners, cmd = updateRunners(a.runners, msg)
		cmds = append(cmds, cmd)
		a.install, cmd = updateInstall(a.install, msg)
		cmds = append(cmds, cmd)
		return a, tea.Batch(cmds...)

	case NavigateMsg:
		a.currentView = msg.View
		return a, nil

	case ErrorMsg:
		a.err = msg.Err
		return a, nil

	case views.RunnersLoadedMsg:
		var cmd tea.Cmd
		a.runners, cmd = updateRunners(a.runners, msg)
		return a, cmd

	case views.RunnerChosenMsg:
		if a.backend == nil {
			return a, nil
		}
		return a, a.saveRunner(msg.Path)

	case runnerSavedMsg:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.err = nil
		if msg.Runner == nil {
			a.notice = "Default runner: auto-detect"
		} else {
			a.notice = fmt.Sprintf("Default runner: %s", msg.Runner.Name)
		}
		return a, a.loadRunners()

	case views.StartInstallMsg:
		if a.backend == nil || a.installCh != nil {
			return a, nil
		}
		var cmd tea.Cmd
		a.installCh, cmd = a.startInstall()
		return a, cmd

	case views.InstallProgressMsg:
		var cmd tea.Cmd
		a.install, cmd = updateInstall(a.install, msg)
		return a, tea.Batch(cmd, waitForInstall(a.installCh))

	case views.InstallDoneMsg:
		a.installCh = nil
		var cmd tea.Cmd
		a.install, cmd = updateInstall(a.install, msg)
		if msg.Err == nil && msg.Result != nil && msg.Result.PreferenceUpdated {
			a.notice = fmt.Sprintf("Default runner: %s", msg.Result.Name)
		}
		return a, tea.Batch(cmd, a.loadRunners(), a.loadRelease())
	}

	// Spinner ticks and release info always reach the install view
	var cmd tea.Cmd
	a.install, cmd = updateInstall(a.install, msg)
	return a, cmd
}

func (a App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case a.keys.IsQuit(msg):
		a.cancel()
		return a, tea.Quit

	case a.keys.IsHelp(msg):
		a.showHelp = !a.showHelp
		return a, nil

	case a.keys.IsRefresh(msg):
		return a, tea.Batch(a.loadRunners(), a.loadRelease())
	}

	if key.Matches(msg, a.keys.Tabs) {
		a.currentView = ViewRunners
		if msg.String() == "2" {
			a.currentView = ViewInstall
		}
		return a, nil
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewRunners:
		a.runners, cmd = updateRunners(a.runners, msg)
	case ViewInstall:
		a.install, cmd = updateInstall(a.install, msg)
	}
	return a, cmd
}

func updateRunners(m views.RunnerPicker, msg tea.Msg) (views.RunnerPicker, tea.Cmd) {
	model, cmd := m.Update(msg)
	return model.(views.RunnerPicker), cmd
}

func updateInstall(m views.InstallView, msg tea.Msg) (views.InstallView, tea.Cmd) {
	model, cmd := m.Update(msg)
	return model.(views.InstallView), cmd
}

var tabTitles = [...]string{ViewRunners: "[1]Runners", ViewInstall: "[2]Install"}

// View implements tea.Model
func (a App) View() string {
	tabs := make([]string, len(tabTitles))
	for i, title := range tabTitles {
		style := views.TabStyle
		if ViewType(i) == a.currentView {
			style = views.ActiveTabStyle
		}
		tabs[i] = style.Render(title)
	}

	var body string
	switch {
	case a.showHelp:
		body = a.keys.FullHelp()
	case a.currentView == ViewInstall:
		body = a.install.View()
	default:
		body = a.runners.View()
	}
	switch {
	case a.err != nil:
		body += "\n\n" + views.ErrorStyle.Render(fmt.Sprintf("Error: %v", a.err))
	case a.notice != "":
		body += "\n\n" + views.OKStyle.Render(a.notice)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		views.BannerStyle.Render("protonctl - Proton & Wine runners"),
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		"",
		body,
		"",
		views.MutedStyle.MarginTop(1).Render("q: quit  ?: help  r: refresh"),
	)
}

// Run starts the TUI application
func Run(ctx context.Context, backend Backend, keybindings string) error {
	app := NewApp(ctx, backend, keybindings)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
