package core

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/DonovanMods/protonctl/internal/domain"

	"github.com/spf13/afero"
)

// wineDLLOverrides stops Wine from generating desktop entries and menu items
const wineDLLOverrides = "winemenubuilder.exe=d"

// SteamLocator reports the Steam client install path. The path is advisory and may not exist.
type SteamLocator interface {
	InstallPath() string
}

// LaunchBuilder turns a game and a resolved runner into a command line and
// environment. It never starts a process.
type LaunchBuilder struct {
	fs       afero.Fs
	resolver *Resolver
	prefixes *PrefixManager
	steam    SteamLocator
}

// NewLaunchBuilder creates a LaunchBuilder
func NewLaunchBuilder(fs afero.Fs, resolver *Resolver, prefixes *PrefixManager, steam SteamLocator) *LaunchBuilder {
	return &LaunchBuilder{
		fs:       fs,
		resolver: resolver,
		prefixes: prefixes,
		steam:    steam,
	}
}

// Build resolves a runner for the game and returns how to launch exePath
// through it. It fails with domain.ErrNoRunner when nothing can be resolved.
func (b *LaunchBuilder) Build(ctx context.Context, gameName, exePath, gameOverride string) (*domain.LaunchConfig, error) {
	runner, err := b.resolver.Resolve(ctx, gameOverride)
	if err != nil {
		return nil, fmt.Errorf("resolving runner: %w", err)
	}
	if runner == nil {
		return nil, fmt.Errorf("%w: install Proton-GE with 'protonctl runners install' or install Wine", domain.ErrNoRunner)
	}

	compatDataPath, err := b.prefixes.Path(gameName)
	if err != nil {
		return nil, err
	}

	cfg := &domain.LaunchConfig{
		Runner:         *runner,
		CompatDataPath: compatDataPath,
	}

	switch runner.Type {
	case domain.RunnerProton:
		cfg.Cmd = []string{filepath.Join(runner.Path, domain.ProtonScript), "run", exePath}
		cfg.Env = map[string]string{
			domain.EnvSteamCompatDataPath:          compatDataPath,
			domain.EnvSteamCompatClientInstallPath: b.steam.InstallPath(),
		}

	case domain.RunnerWine:
		prefix := filepath.Join(compatDataPath, "pfx")
		if err := b.fs.MkdirAll(prefix, 0755); err != nil {
			return nil, fmt.Errorf("creating wine prefix: %w", err)
		}
		cfg.Cmd = []string{runner.Path, exePath}
		cfg.Env = map[string]string{
			domain.EnvWinePrefix:       prefix,
			domain.EnvWineDLLOverrides: wineDLLOverrides,
		}

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRunnerType, runner.Type)
	}

	return cfg, nil
}
