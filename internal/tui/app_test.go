package tui_test

import (
	"context"
	"sync"
	"testing"

	"github.com/DonovanMods/protonctl/internal/core"
	"github.com/DonovanMods/protonctl/internal/domain"
	"github.com/DonovanMods/protonctl/internal/tui"
	"github.com/DonovanMods/protonctl/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeBackend struct {
	mu       sync.Mutex
	runners  []domain.Runner
	pref     string
	info     *domain.ReleaseInfo
	selected []string
	installs int
}

func (f *fakeBackend) ListRunners(ctx context.Context) []domain.Runner { return f.runners }

func (f *fakeBackend) GlobalRunner() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pref, nil
}

func (f *fakeBackend) SelectRunner(path string) (*domain.Runner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, path)
	f.pref = path
	for i := range f.runners {
		if f.runners[i].Path == path {
			return &f.runners[i], nil
		}
	}
	return nil, nil
}

func (f *fakeBackend) LatestRelease(ctx context.Context) (*domain.ReleaseInfo, error) {
	return f.info, nil
}

func (f *fakeBackend) InstallLatest(ctx context.Context, progress core.ProgressFunc) (*core.InstallResult, error) {
	f.mu.Lock()
	f.installs++
	f.mu.Unlock()
	progress(50, "Downloading...")
	return &core.InstallResult{Name: "GE-Proton9-20", Message: "GE-Proton9-20 installed successfully", PreferenceUpdated: true}, nil
}

func newBackend() *fakeBackend {
	return &fakeBackend{
		runners: []domain.Runner{
			{Name: "GE-Proton9-20", Path: "/runners/GE-Proton9-20", Type: domain.RunnerProton, Source: domain.SourceCustom},
			{Name: "System Wine", Path: "/usr/bin/wine", Type: domain.RunnerWine, Source: domain.SourceSystem},
		},
		pref: domain.RunnerAuto,
		info: &domain.ReleaseInfo{Name: "GE-Proton9-20", SizeFormatted: "420 MB", InstalledVersions: []string{}},
	}
}

// drain runs cmd and feeds resulting messages back into the app until none remain
func drain(t *testing.T, app tui.App, cmd tea.Cmd) tui.App {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0 && steps < 50; steps++ {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		switch msg := msg.(type) {
		case nil:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case tea.QuitMsg:
			continue
		}
		model, more := app.Update(msg)
		app = model.(tui.App)
		queue = append(queue, more)
	}
	return app
}

func loadedApp(t *testing.T, backend *fakeBackend) tui.App {
	t.Helper()
	app := tui.NewApp(context.Background(), backend, "vim")
	model, _ := app.Update(views.RunnersLoadedMsg{Runners: backend.runners, Preference: backend.pref})
	model, _ = model.Update(views.ReleaseLoadedMsg{Info: backend.info})
	return model.(tui.App)
}

func TestNewApp_InitialState(t *testing.T) {
	app := tui.NewApp(context.Background(), nil, "")

	assert.Equal(t, tui.ViewRunners, app.CurrentView())
	assert.Contains(t, app.View(), "Auto-detect")
	assert.NotNil(t, app.Init())
}

func TestApp_SwitchViews(t *testing.T) {
	app := loadedApp(t, newBackend())

	model, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	assert.Equal(t, tui.ViewInstall, model.(tui.App).CurrentView())
	assert.Contains(t, model.View(), "i: install GE-Proton9-20")

	model, _ = model.Update(tui.NavigateMsg{View: tui.ViewRunners})
	assert.Equal(t, tui.ViewRunners, model.(tui.App).CurrentView())
}

func TestApp_QuitOnQ(t *testing.T) {
	app := tui.NewApp(context.Background(), nil, "vim")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
}

func TestApp_HelpToggle(t *testing.T) {
	app := tui.NewApp(context.Background(), nil, "standard")

	model, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Contains(t, model.View(), "Home    first runner")
}

func TestApp_SelectRunner(t *testing.T) {
	backend := newBackend()
	app := loadedApp(t, backend)

	model, _ := app.Update(tea.KeyMsg{Type: tea.KeyDown})
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = drain(t, model.(tui.App), cmd)

	assert.Equal(t, []string{"/runners/GE-Proton9-20"}, backend.selected)
	assert.Contains(t, app.View(), "Default runner: GE-Proton9-20")
	assert.Contains(t, app.View(), "● GE-Proton9-20")
}

func TestApp_Install(t *testing.T) {
	backend := newBackend()
	app := loadedApp(t, backend)

	model, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'i'}})
	app = drain(t, model.(tui.App), cmd)

	assert.Equal(t, 1, backend.installs)
	assert.Contains(t, app.View(), "installed successfully")
	assert.Contains(t, app.View(), "Default runner: GE-Proton9-20")
}

// floodBackend reports more progress than the app buffers before finishing
type floodBackend struct {
	*fakeBackend
	finished chan struct{}
}

func (f *floodBackend) InstallLatest(ctx context.Context, progress core.ProgressFunc) (*core.InstallResult, error) {
	defer close(f.finished)
	for i := range 64 {
		progress(float64(i), "Downloading...")
	}
	return &core.InstallResult{Name: "GE-Proton9-20"}, nil
}

func TestApp_QuitDuringInstallReleasesWorker(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	backend := &floodBackend{fakeBackend: newBackend(), finished: make(chan struct{})}
	app := tui.NewApp(context.Background(), backend, "vim")

	// nobody reads the progress stream, so the result cannot be queued
	model, _ := app.Update(views.StartInstallMsg{})
	<-backend.finished

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
}

func TestApp_ErrorMsg(t *testing.T) {
	app := tui.NewApp(context.Background(), nil, "vim")
	model, _ := app.Update(tui.ErrorMsg{Err: domain.ErrNoRunner})
	assert.Contains(t, model.View(), "Error: no compatible runner found")
}
