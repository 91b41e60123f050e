package domain

import (
	"path/filepath"
	"sort"
	"strings"
)

// Environment variables understood by Proton and Wine
const (
	EnvSteamCompatDataPath          = "STEAM_COMPAT_DATA_PATH"
	EnvSteamCompatClientInstallPath = "STEAM_COMPAT_CLIENT_INSTALL_PATH"
	EnvWinePrefix                   = "WINEPREFIX"
	EnvWineDLLOverrides             = "WINEDLLOVERRIDES"
)

// LaunchConfig is the command and environment needed to run a Windows binary
// through a runner. Nothing is executed when it is built.
type LaunchConfig struct {
	Cmd            []string          `json:"cmd"`
	Env            map[string]string `json:"env"`
	Runner         Runner            `json:"runner"`
	CompatDataPath string            `json:"compatDataPath"`
}

// Environ merges Env over base (typically os.Environ()) and returns the result
// in KEY=VALUE form. Keys from Env replace matching keys in base.
func (c *LaunchConfig) Environ(base []string) []string {
	out := make([]string, 0, len(base)+len(c.Env))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := c.Env[key]; overridden {
			continue
		}
		out = append(out, kv)
	}

	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+c.Env[k])
	}
	return out
}

// IsWindowsExecutable reports whether path has an extension that needs a runner
func IsWindowsExecutable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exe", ".msi", ".bat":
		return true
	default:
		return false
	}
}
