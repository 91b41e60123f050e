package core

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/DonovanMods/protonctl/internal/domain"

	"github.com/spf13/afero"
)

// CustomWineName is the display name of a Wine runner chosen by explicit path
const CustomWineName = "Custom Wine"

// PreferenceStore reads and writes the global runner preference: "auto" or a runner path
type PreferenceStore interface {
	GlobalRunner() (string, error)
	SetGlobalRunner(path string) error
}

// MemoryPreferences is an in-process PreferenceStore
type MemoryPreferences struct {
	Runner string
}

// GlobalRunner implements PreferenceStore
func (m *MemoryPreferences) GlobalRunner() (string, error) {
	if m.Runner == "" {
		return domain.RunnerAuto, nil
	}
	return m.Runner, nil
}

// SetGlobalRunner implements PreferenceStore
func (m *MemoryPreferences) SetGlobalRunner(path string) error {
	m.Runner = path
	return nil
}

// Resolver picks exactly one runner: per-game override, then the global
// preference, then the best detected Proton, then system Wine.
type Resolver struct {
	fs        afero.Fs
	inventory *Inventory
	prefs     PreferenceStore
}

// NewResolver creates a Resolver
func NewResolver(fs afero.Fs, inventory *Inventory, prefs PreferenceStore) *Resolver {
	return &Resolver{fs: fs, inventory: inventory, prefs: prefs}
}

// Resolve returns the runner to use for a game. A nil runner with a nil error
// means nothing could be resolved. The error is only set when the preference
// store cannot be read.
func (r *Resolver) Resolve(ctx context.Context, gameOverride string) (*domain.Runner, error) {
	if !domain.IsAutoPreference(gameOverride) {
		if runner := r.runnerAtPath(gameOverride); runner != nil {
			return runner, nil
		}
	}

	if r.prefs != nil {
		pref, err := r.prefs.GlobalRunner()
		if err != nil {
			return nil, fmt.Errorf("reading global runner preference: %w", err)
		}
		if !domain.IsAutoPreference(pref) {
			if runner := r.runnerAtPath(pref); runner != nil {
				return runner, nil
			}
		}
	}

	if protons := r.inventory.DetectInstalledProtons(ctx); len(protons) > 0 {
		return &protons[0], nil
	}

	return r.inventory.DetectSystemWine(ctx), nil
}

// runnerAtPath classifies an explicitly configured path: a directory holding a
// proton script is Proton, any other existing path is taken as a Wine binary.
func (r *Resolver) runnerAtPath(path string) *domain.Runner {
	if HasProtonScript(r.fs, path) {
		return &domain.Runner{
			Name: filepath.Base(path),
			Path: path,
			Type: domain.RunnerProton,
		}
	}
	if exists, _ := afero.Exists(r.fs, path); exists {
		return &domain.Runner{
			Name: CustomWineName,
			Path: path,
			Type: domain.RunnerWine,
		}
	}
	return nil
}

// SelectCustomRunner classifies a folder the user picked as a runner. A
// proton script makes it Proton; bin/wine or wine inside it makes it Wine.
func SelectCustomRunner(fs afero.Fs, dir string) (*domain.Runner, error) {
	if HasProtonScript(fs, dir) {
		return &domain.Runner{
			Name:    filepath.Base(dir),
			Path:    dir,
			Type:    domain.RunnerProton,
			Version: protonVersion(filepath.Base(dir), domain.SourceCustom),
			Source:  domain.SourceCustom,
		}, nil
	}

	for _, candidate := range []string{filepath.Join(dir, "bin", "wine"), filepath.Join(dir, "wine")} {
		info, err := fs.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		return &domain.Runner{
			Name:   fmt.Sprintf("Wine (%s)", filepath.Base(dir)),
			Path:   candidate,
			Type:   domain.RunnerWine,
			Source: domain.SourceCustom,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrNoRunnerInFolder, dir)
}
