package domain

// Game is a Windows game launched through a compatibility runner
type Game struct {
	ID         string // Unique slug, e.g., "witcher3"
	Name       string // Display name; also the source of the compat-data slug
	Executable string // Path to the Windows executable
	Runner     string // Optional per-game runner override: "", "auto", or a runner path
}

// RunnerOverride returns the per-game override, or "" when the game defers to
// the global preference
func (g *Game) RunnerOverride() string {
	if g == nil || IsAutoPreference(g.Runner) {
		return ""
	}
	return g.Runner
}
