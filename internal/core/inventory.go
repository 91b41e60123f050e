package core

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/DonovanMods/protonctl/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// SystemWineName is the display name of the Wine binary found on PATH
const SystemWineName = "System Wine"

// unknownVersion is reported when a runner's version cannot be determined
const unknownVersion = "Unknown"

var (
	steamVersionPrefix  = regexp.MustCompile(`(?i)Proton\s*`)
	customVersionPrefix = regexp.MustCompile(`(?i).*Proton\s*`)
)

// WineProbe locates a system Wine binary and reads its version
type WineProbe interface {
	// Find returns the path of the wine binary, or "" if there is none
	Find(ctx context.Context) string
	// Version returns the version string reported by the binary
	Version(ctx context.Context, path string) (string, error)
}

// SystemWine finds wine on PATH and asks it for its version
type SystemWine struct {
	runner *CommandRunner
}

// NewSystemWine creates a WineProbe backed by PATH lookup
func NewSystemWine(runner *CommandRunner) *SystemWine {
	if runner == nil {
		runner = NewCommandRunner(5 * time.Second)
	}
	return &SystemWine{runner: runner}
}

// Find implements WineProbe
func (w *SystemWine) Find(ctx context.Context) string {
	path, err := exec.LookPath("wine")
	if err != nil {
		return ""
	}
	return path
}

// Version implements WineProbe
func (w *SystemWine) Version(ctx context.Context, path string) (string, error) {
	result, err := w.runner.Run(ctx, path, "--version")
	if err != nil {
		return "", err
	}
	return result.FirstLine(), nil
}

// Inventory discovers installed runners. Nothing is cached: every call rescans.
type Inventory struct {
	fs         afero.Fs
	steamRoots []string
	runnersDir string
	wine       WineProbe
}

// NewInventory creates an Inventory that scans steamRoots (tagged steam) and
// runnersDir (tagged custom). A nil wine probe disables Wine detection.
func NewInventory(fs afero.Fs, steamRoots []string, runnersDir string, wine WineProbe) *Inventory {
	return &Inventory{
		fs:         fs,
		steamRoots: steamRoots,
		runnersDir: runnersDir,
		wine:       wine,
	}
}

// RunnersDir returns the directory protonctl installs runners into
func (inv *Inventory) RunnersDir() string {
	return inv.runnersDir
}

// DetectInstalledProtons scans every root for Proton builds. Unreadable roots
// are skipped. GE builds sort first, then by version, newest first.
func (inv *Inventory) DetectInstalledProtons(ctx context.Context) []domain.Runner {
	seen := make(map[string]bool)
	var runners []domain.Runner

	scan := func(root string, source domain.RunnerSource) {
		entries, err := afero.ReadDir(inv.fs, root)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn().Err(err).Str("root", root).Msg("skipping unreadable runner root")
			}
			return
		}

		for _, entry := range entries {
			if !entry.IsDir() || !strings.Contains(strings.ToLower(entry.Name()), "proton") {
				continue
			}
			dir := absPath(filepath.Join(root, entry.Name()))
			if seen[dir] || !HasProtonScript(inv.fs, dir) {
				continue
			}
			seen[dir] = true
			runners = append(runners, domain.Runner{
				Name:    entry.Name(),
				Path:    dir,
				Type:    domain.RunnerProton,
				Version: protonVersion(entry.Name(), source),
				Source:  source,
			})
		}
	}

	for _, root := range inv.steamRoots {
		if ctx.Err() != nil {
			return runners
		}
		scan(root, domain.SourceSteam)
	}
	if inv.runnersDir != "" {
		scan(inv.runnersDir, domain.SourceCustom)
	}

	SortRunners(runners)
	return runners
}

// DetectSystemWine returns the Wine binary on PATH, or nil if there is none.
// A version that cannot be read is reported as "Unknown".
func (inv *Inventory) DetectSystemWine(ctx context.Context) *domain.Runner {
	if inv.wine == nil {
		return nil
	}
	path := inv.wine.Find(ctx)
	if path == "" {
		return nil
	}

	version, err := inv.wine.Version(ctx, path)
	if err != nil || version == "" {
		log.Debug().Err(err).Str("path", path).Msg("could not read wine version")
		version = unknownVersion
	}

	return &domain.Runner{
		Name:    SystemWineName,
		Path:    path,
		Type:    domain.RunnerWine,
		Version: version,
		Source:  domain.SourceSystem,
	}
}

// AllRunners returns detected Proton builds followed by system Wine, if any
func (inv *Inventory) AllRunners(ctx context.Context) []domain.Runner {
	runners := inv.DetectInstalledProtons(ctx)
	if wine := inv.DetectSystemWine(ctx); wine != nil {
		runners = append(runners, *wine)
	}
	return runners
}

// SortRunners orders runners with GE builds first, each group by version descending
func SortRunners(runners []domain.Runner) {
	sort.SliceStable(runners, func(i, j int) bool {
		iGE := strings.Contains(strings.ToLower(runners[i].Name), "ge")
		jGE := strings.Contains(strings.ToLower(runners[j].Name), "ge")
		if iGE != jGE {
			return iGE
		}
		return domain.CompareNatural(runners[i].Version, runners[j].Version) > 0
	})
}

// HasProtonScript reports whether dir contains a proton launch script
func HasProtonScript(fs afero.Fs, dir string) bool {
	info, err := fs.Stat(filepath.Join(dir, domain.ProtonScript))
	return err == nil && !info.IsDir()
}

// protonVersion derives a version from a runner directory name. Steam names
// drop the first "Proton" token; custom names drop everything up to it.
func protonVersion(name string, source domain.RunnerSource) string {
	var version string
	if source == domain.SourceCustom {
		version = customVersionPrefix.ReplaceAllString(name, "")
	} else if loc := steamVersionPrefix.FindStringIndex(name); loc != nil {
		version = name[:loc[0]] + name[loc[1]:]
	} else {
		version = name
	}

	version = strings.TrimSpace(version)
	if version == "" {
		return name
	}
	return version
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
