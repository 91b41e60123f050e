package views

import (
	"fmt"
	"strings"

	"github.com/DonovanMods/protonctl/internal/core"
	"github.com/DonovanMods/protonctl/internal/domain"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ReleaseLoadedMsg carries the latest release info
type ReleaseLoadedMsg struct {
	Info *domain.ReleaseInfo
	Err  error
}

// StartInstallMsg asks the app to start installing the latest release
type StartInstallMsg struct{}

// InstallProgressMsg reports install progress (0-100)
type InstallProgressMsg struct {
	Percent float64
	Status  string
}

// InstallDoneMsg is sent when an install finishes
type InstallDoneMsg struct {
	Result *core.InstallResult
	Err    error
}

// InstallView shows the latest Proton-GE release and a live install progress bar
type InstallView struct {
	keys       *KeyMap
	info       *domain.ReleaseInfo
	infoErr    error
	loading    bool
	installing bool
	percent    float64
	status     string
	result     *core.InstallResult
	err        error
	bar        progress.Model
	spinner    spinner.Model
	width      int
}

// NewInstallView creates an install view waiting for release info
func NewInstallView(keys *KeyMap) InstallView {
	return InstallView{
		keys:    keys,
		loading: true,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:   80,
	}
}

// Installing reports whether an install is running
func (v InstallView) Installing() bool {
	return v.installing
}

// Percent returns the last reported progress (0-100)
func (v InstallView) Percent() float64 {
	return v.percent
}

// Init implements tea.Model
func (v InstallView) Init() tea.Cmd {
	return v.spinner.Tick
}

// Update implements tea.Model
func (v InstallView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ReleaseLoadedMsg:
		v.loading = false
		v.info = msg.Info
		v.infoErr = msg.Err
		return v, nil

	case InstallProgressMsg:
		v.percent = msg.Percent
		v.status = msg.Status
		return v, nil

	case InstallDoneMsg:
		v.installing = false
		v.result = msg.Result
		v.err = msg.Err
		if msg.Err == nil {
			v.percent = 100
		}
		return v, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.bar.Width = max(min(msg.Width-4, 60), 10)
		return v, nil

	case tea.KeyMsg:
		if v.keys.IsInstall(msg) && v.canInstall() {
			v.installing = true
			v.percent = 0
			v.status = ""
			v.result = nil
			v.err = nil
			return v, func() tea.Msg { return StartInstallMsg{} }
		}
	}

	return v, nil
}

func (v InstallView) canInstall() bool {
	return !v.installing && v.info != nil && !v.info.AlreadyInstalled
}

// View implements tea.Model
func (v InstallView) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Proton-GE") + "\n\n")

	switch {
	case v.loading:
		b.WriteString(v.spinner.View() + " Checking for the latest release...\n")
		return b.String()
	case v.infoErr != nil:
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Could not check releases: %v", v.infoErr)) + "\n")
		b.WriteString(indentedStyle.Render("r: retry") + "\n")
		return b.String()
	}

	info := v.info
	b.WriteString(fmt.Sprintf("Latest:    %s (%s)\n", info.Name, info.SizeFormatted))
	if len(info.InstalledVersions) > 0 {
		b.WriteString(fmt.Sprintf("Installed: %s\n", strings.Join(info.InstalledVersions, ", ")))
	} else {
		b.WriteString("Installed: none\n")
	}
	b.WriteString("\n")

	switch {
	case v.installing:
		b.WriteString(v.bar.ViewAs(v.percent/100) + "\n")
		b.WriteString(v.spinner.View() + " " + v.status + "\n")
	case v.err != nil:
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Install failed: %v", v.err)) + "\n")
		b.WriteString(indentedStyle.Render("i: retry") + "\n")
	case v.result != nil:
		b.WriteString(v.bar.ViewAs(1) + "\n")
		b.WriteString(OKStyle.Render(v.result.Message) + "\n")
		if len(v.result.Removed) > 0 {
			b.WriteString(indentedStyle.Render("Removed: "+strings.Join(v.result.Removed, ", ")) + "\n")
		}
	case info.AlreadyInstalled:
		b.WriteString(OKStyle.Render(info.Name+" is installed and up to date") + "\n")
	default:
		b.WriteString(indentedStyle.Render("i: install "+info.Name) + "\n")
	}

	return b.String()
}
