package config

import (
	"sync"

	"github.com/DonovanMods/protonctl/internal/domain"
)

// PreferenceStore persists the global runner preference in config.yaml.
// Every read goes back to disk so edits made by other processes are seen.
type PreferenceStore struct {
	mu        sync.Mutex
	configDir string
}

// NewPreferenceStore creates a PreferenceStore for configDir
func NewPreferenceStore(configDir string) *PreferenceStore {
	return &PreferenceStore{configDir: configDir}
}

// GlobalRunner returns the configured runner path, or "auto"
func (p *PreferenceStore) GlobalRunner() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg, err := Load(p.configDir)
	if err != nil {
		return "", err
	}
	return cfg.LinuxRunner, nil
}

// SetGlobalRunner stores path as the global runner; "" resets it to "auto"
func (p *PreferenceStore) SetGlobalRunner(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg, err := Load(p.configDir)
	if err != nil {
		return err
	}
	if path == "" {
		path = domain.RunnerAuto
	}
	cfg.LinuxRunner = path
	return cfg.Save(p.configDir)
}
