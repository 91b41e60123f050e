package steam

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// FlatpakSteamID is the Flatpak app ID for Steam
const FlatpakSteamID = "com.valvesoftware.Steam"

// Locator finds Steam client installs and the directories Proton builds live in.
// All lookups are read-only.
type Locator struct {
	fs   afero.Fs
	home string
}

// NewLocator creates a Locator rooted at the given home directory
func NewLocator(fs afero.Fs, home string) *Locator {
	return &Locator{fs: fs, home: home}
}

// InstallCandidates returns candidate Steam installation roots in search order.
// STEAM_ROOT, when set, is tried first.
func (l *Locator) InstallCandidates() []string {
	candidates := []string{
		filepath.Join(l.home, ".steam", "steam"),
		filepath.Join(l.home, ".steam", "root"),
		filepath.Join(l.home, ".local", "share", "Steam"),
		filepath.Join(l.home, ".var", "app", FlatpakSteamID, "data", "Steam"),
	}
	if p := os.Getenv("STEAM_ROOT"); p != "" {
		candidates = append([]string{p}, candidates...)
	}
	return candidates
}

// FindSteamRoots returns the candidate roots that exist on disk, in search order
func (l *Locator) FindSteamRoots() []string {
	var out []string
	for _, p := range l.InstallCandidates() {
		if l.isDir(p) {
			out = append(out, p)
		}
	}
	return out
}

// InstallPath returns the first existing Steam root. When none exists it
// still returns ~/.steam/steam: the value only feeds an advisory environment
// variable and may not exist on disk.
func (l *Locator) InstallPath() string {
	if roots := l.FindSteamRoots(); len(roots) > 0 {
		return roots[0]
	}
	fallback := filepath.Join(l.home, ".steam", "steam")
	log.Debug().Str("path", fallback).Msg("no Steam install found, using fallback path")
	return fallback
}

// CommonPaths returns the fixed steamapps/common candidates Steam ships its
// own Proton builds into. Existence is not checked.
func (l *Locator) CommonPaths() []string {
	return []string{
		filepath.Join(l.home, ".steam", "root", "steamapps", "common"),
		filepath.Join(l.home, ".steam", "steam", "steamapps", "common"),
		filepath.Join(l.home, ".local", "share", "Steam", "steamapps", "common"),
		filepath.Join(l.home, ".var", "app", FlatpakSteamID, "data", "Steam", "steamapps", "common"),
	}
}

// ProtonSearchRoots returns every directory that may hold Steam-managed Proton
// builds: the fixed steamapps/common candidates first, then compatibilitytools.d
// under each Steam root, then the common dir of every extra library listed in
// libraryfolders.vdf. Duplicates are dropped; existence is left to the caller.
func (l *Locator) ProtonSearchRoots() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	for _, p := range l.CommonPaths() {
		add(p)
	}
	for _, root := range l.InstallCandidates() {
		add(filepath.Join(root, "compatibilitytools.d"))
	}
	for _, root := range l.FindSteamRoots() {
		libraries, err := l.LibraryPaths(root)
		if err != nil {
			log.Warn().Err(err).Str("root", root).Msg("skipping Steam library folders")
			continue
		}
		for _, lib := range libraries {
			add(filepath.Join(lib, "steamapps", "common"))
		}
	}
	return out
}

// LibraryPaths returns all Steam library paths from a Steam root (reading libraryfolders.vdf).
func (l *Locator) LibraryPaths(steamRoot string) ([]string, error) {
	vdfPath := filepath.Join(steamRoot, "steamapps", "libraryfolders.vdf")
	f, err := l.fs.Open(vdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Single library: the steam root itself is the library
			return []string{steamRoot}, nil
		}
		return nil, fmt.Errorf("reading libraryfolders: %w", err)
	}
	defer f.Close()

	paths, err := ParseLibraryFolders(f)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return []string{steamRoot}, nil
	}
	return paths, nil
}

func (l *Locator) isDir(p string) bool {
	info, err := l.fs.Stat(p)
	return err == nil && info.IsDir()
}
