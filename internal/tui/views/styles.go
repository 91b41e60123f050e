package views

import "github.com/charmbracelet/lipgloss"

// Palette shared by every screen
var (
	colorAccent = lipgloss.Color("205")
	colorTitle  = lipgloss.Color("69")
	colorMuted  = lipgloss.Color("241")
	colorOK     = lipgloss.Color("42")
	colorError  = lipgloss.Color("196")

	TitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorTitle).MarginBottom(1)
	BannerStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginBottom(1)
	TabStyle       = lipgloss.NewStyle().Foreground(colorMuted).MarginRight(2)
	ActiveTabStyle = TabStyle.Foreground(colorAccent).Bold(true)
	MutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	OKStyle        = lipgloss.NewStyle().Foreground(colorOK)
	ErrorStyle     = lipgloss.NewStyle().Foreground(colorError)

	rowStyle      = lipgloss.NewStyle().PaddingLeft(2)
	cursorStyle   = rowStyle.Foreground(colorAccent).Bold(true)
	hintStyle     = MutedStyle.MarginTop(1)
	detailStyle   = MutedStyle.PaddingLeft(4)
	indentedStyle = MutedStyle.PaddingLeft(2)
)
