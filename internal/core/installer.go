package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/DonovanMods/protonctl/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

// stagingPrefix names the hidden directory archives are unpacked into
// before their top-level entries are moved into the runners root
const stagingPrefix = ".protonctl-extract-"

// shelfPrefix names the hidden directory an existing runner directory is
// moved into while the build replacing it is verified
const shelfPrefix = ".protonctl-previous-"

// installFlights serializes installs per runners root across all Installers
var installFlights singleflight.Group

// ProgressFunc receives install progress as a percentage (0-100) and a status line
type ProgressFunc func(percent float64, status string)

// RunnerHistory records install and removal events
type RunnerHistory interface {
	RecordRunnerEvent(event domain.RunnerEvent) error
}

// InstallResult is the outcome of a successful Install
type InstallResult struct {
	Name              string   `json:"name"`
	Path              string   `json:"path"`
	Message           string   `json:"message"`
	AlreadyInstalled  bool     `json:"alreadyInstalled"`
	PreferenceUpdated bool     `json:"preferenceUpdated"`
	Removed           []string `json:"removed,omitempty"`
}

// InstallerConfig holds the collaborators of an Installer
type InstallerConfig struct {
	Fs          afero.Fs
	RunnersDir  string
	DownloadDir string // Where archives are staged while downloading
	Feed        ReleaseFeed
	HTTPClient  *http.Client    // Optional: defaults to http.DefaultClient
	Prefs       PreferenceStore // Optional: disables preference adoption when nil
	History     RunnerHistory   // Optional
	Clock       clockwork.Clock // Optional: defaults to the real clock
}

// Installer downloads, unpacks and manages Proton-GE builds in the runners root
type Installer struct {
	fs          afero.Fs
	runnersDir  string
	downloadDir string
	feed        ReleaseFeed
	downloader  *Downloader
	extractor   *Extractor
	prefs       PreferenceStore
	history     RunnerHistory
	clock       clockwork.Clock
}

// NewInstaller creates a new Installer
func NewInstaller(cfg InstallerConfig) *Installer {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = os.TempDir()
	}

	return &Installer{
		fs:          cfg.Fs,
		runnersDir:  cfg.RunnersDir,
		downloadDir: cfg.DownloadDir,
		feed:        cfg.Feed,
		downloader:  NewDownloader(cfg.HTTPClient, cfg.Fs),
		extractor:   NewExtractor(cfg.Fs),
		prefs:       cfg.Prefs,
		history:     cfg.History,
		clock:       cfg.Clock,
	}
}

// Install fetches the latest release and installs it unless it is already
// present. Concurrent calls for the same runners root share one install run
// with the first caller's ctx and progress sink. A caller whose own ctx ends
// stops waiting; the shared install only stops when the first caller's does.
func (i *Installer) Install(ctx context.Context, progress ProgressFunc) (*InstallResult, error) {
	if progress == nil {
		progress = func(float64, string) {}
	}

	leading := make(chan struct{})
	ch := installFlights.DoChan(absPath(i.runnersDir), func() (interface{}, error) {
		close(leading)
		return i.install(ctx, progress)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		select {
		case <-leading:
			// our own run is unwinding; wait for its cleanup
			res = <-ch
		default:
			log.Debug().Str("runners", i.runnersDir).Msg("stopped waiting for in-flight install")
			return nil, fmt.Errorf("install cancelled: %w", ctx.Err())
		}
	}

	if res.Shared {
		log.Debug().Str("runners", i.runnersDir).Msg("joined in-flight install")
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Val.(*InstallResult), nil
}

func (i *Installer) install(ctx context.Context, progress ProgressFunc) (*InstallResult, error) {
	progress(5, "Fetching latest Proton-GE release...")
	info, release, err := i.latest(ctx)
	if err != nil {
		return nil, err
	}

	if info.AlreadyInstalled {
		progress(100, info.Name+" is already installed")
		return &InstallResult{
			Name:             info.Name,
			Path:             info.InstallPath,
			Message:          "Already installed",
			AlreadyInstalled: true,
		}, nil
	}

	if err := i.fs.MkdirAll(i.runnersDir, 0755); err != nil {
		return nil, fmt.Errorf("creating runners directory: %w", err)
	}

	progress(10, fmt.Sprintf("Downloading %s (%s)...", info.FileName, info.SizeFormatted))
	archivePath := filepath.Join(i.downloadDir, info.FileName)
	defer i.removeArchive(archivePath)

	dl, err := i.downloader.Download(ctx, info.DownloadURL, archivePath, info.Size, func(p DownloadProgress) {
		progress(10+p.Percentage*0.6, fmt.Sprintf("Downloading... %s / %s",
			humanize.Bytes(uint64(p.Downloaded)), humanize.Bytes(uint64(p.TotalBytes))))
	})
	if err != nil {
		return nil, phaseError(ctx, domain.ErrDownloadFailed, err)
	}

	if err := i.verifyChecksum(ctx, release, info.FileName, dl.Checksum); err != nil {
		return nil, phaseError(ctx, domain.ErrDownloadFailed, err)
	}

	progress(75, "Extracting (this may take a moment)...")
	newDirs, previous, err := i.extract(ctx, archivePath, progress)
	if err != nil {
		return nil, phaseError(ctx, domain.ErrExtractionFailed, err)
	}
	progress(95, "Verifying installation...")
	i.removeArchive(archivePath)

	name, path, err := i.locateInstall(info.Name, newDirs)
	if err != nil {
		i.removeDirs(newDirs)
		previous.restore()
		return nil, err
	}
	previous.discard()

	updated := i.adoptPreference(name, path)
	removed := i.RemoveOld(name)
	i.record(domain.ActionInstalled, name, path, info.DownloadURL)

	progress(100, name+" installed successfully!")
	log.Info().Str("runner", name).Str("path", path).Strs("removed", removed).Msg("installed Proton-GE")

	return &InstallResult{
		Name:              name,
		Path:              path,
		Message:           name + " installed successfully",
		PreferenceUpdated: updated,
		Removed:           removed,
	}, nil
}

// extract unpacks the archive into a staging directory inside the runners
// root and moves its top-level entries into place. The staging directory is
// always removed, so a failed extraction leaves no partial runner behind.
// Directories the new entries would overwrite are shelved, not deleted; the
// caller restores or discards them once the install is verified.
func (i *Installer) extract(ctx context.Context, archivePath string, progress ProgressFunc) ([]string, *shelf, error) {
	staging, err := afero.TempDir(i.fs, i.runnersDir, stagingPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("creating staging directory: %w", err)
	}
	defer func() {
		if err := i.fs.RemoveAll(staging); err != nil {
			log.Warn().Err(err).Str("path", staging).Msg("could not remove staging directory")
		}
	}()

	err = i.extractor.Extract(ctx, archivePath, staging, func(read, total int64) {
		if total > 0 {
			progress(75+float64(read)/float64(total)*20, "Extracting...")
		}
	})
	if err != nil {
		return nil, nil, err
	}

	entries, err := afero.ReadDir(i.fs, staging)
	if err != nil {
		return nil, nil, fmt.Errorf("reading staging directory: %w", err)
	}

	previous := &shelf{fs: i.fs, root: i.runnersDir}
	var moved []string
	undo := func() {
		i.removeDirs(moved)
		previous.restore()
	}
	for _, entry := range entries {
		target := filepath.Join(i.runnersDir, entry.Name())
		if exists, _ := afero.Exists(i.fs, target); exists {
			// Only a broken copy of the same build can be here; a valid one short-circuits earlier
			log.Warn().Str("path", target).Msg("setting aside incomplete runner directory")
			if err := previous.put(entry.Name()); err != nil {
				undo()
				return nil, nil, fmt.Errorf("setting aside %s: %w", entry.Name(), err)
			}
		}
		if err := i.fs.Rename(filepath.Join(staging, entry.Name()), target); err != nil {
			undo()
			return nil, nil, fmt.Errorf("moving %s into place: %w", entry.Name(), err)
		}
		moved = append(moved, entry.Name())
	}
	return moved, previous, nil
}

// shelf holds runner-root entries moved out of the way of an install
type shelf struct {
	fs    afero.Fs
	root  string
	dir   string // created on first put
	names []string
}

func (s *shelf) put(name string) error {
	if s.dir == "" {
		dir, err := afero.TempDir(s.fs, s.root, shelfPrefix)
		if err != nil {
			return err
		}
		s.dir = dir
	}
	if err := s.fs.Rename(filepath.Join(s.root, name), filepath.Join(s.dir, name)); err != nil {
		return err
	}
	s.names = append(s.names, name)
	return nil
}

// restore moves shelved entries back. Anything that cannot be moved stays in
// the shelf directory, which is then kept.
func (s *shelf) restore() {
	kept := false
	for _, name := range s.names {
		if err := s.fs.Rename(filepath.Join(s.dir, name), filepath.Join(s.root, name)); err != nil {
			log.Warn().Err(err).Str("dir", name).Str("shelf", s.dir).Msg("could not restore runner directory")
			kept = true
		}
	}
	s.names = nil
	if !kept {
		s.discard()
	}
}

// discard deletes whatever is still shelved
func (s *shelf) discard() {
	if s.dir == "" {
		return
	}
	if err := s.fs.RemoveAll(s.dir); err != nil {
		log.Warn().Err(err).Str("path", s.dir).Msg("could not remove replaced runner directory")
	}
	s.dir = ""
	s.names = nil
}

// locateInstall finds the installed runner: the directory named after the
// tag, or else a freshly extracted Proton-GE directory holding a proton script.
func (i *Installer) locateInstall(tag string, newDirs []string) (string, string, error) {
	path := filepath.Join(i.runnersDir, tag)
	if HasProtonScript(i.fs, path) {
		return tag, path, nil
	}

	for _, name := range newDirs {
		candidate := filepath.Join(i.runnersDir, name)
		if domain.IsGEProtonName(name) && HasProtonScript(i.fs, candidate) {
			log.Debug().Str("tag", tag).Str("dir", name).Msg("archive directory does not match release tag")
			return name, candidate, nil
		}
	}
	return "", "", domain.ErrInstallVerify
}

// adoptPreference points the global preference at the new install when it is
// unset, or when it names a different Proton-GE build. Explicit non-GE
// choices are left alone.
func (i *Installer) adoptPreference(name, path string) bool {
	if i.prefs == nil {
		return false
	}

	current, err := i.prefs.GlobalRunner()
	if err != nil {
		log.Warn().Err(err).Msg("could not read runner preference")
		return false
	}

	adopt := domain.IsAutoPreference(current)
	if !adopt {
		base := filepath.Base(current)
		adopt = domain.IsGEProtonName(base) && base != name
	}
	if !adopt {
		return false
	}

	if err := i.prefs.SetGlobalRunner(path); err != nil {
		log.Warn().Err(err).Str("runner", path).Msg("could not update runner preference")
		return false
	}
	log.Info().Str("from", current).Str("to", path).Msg("updated default runner")
	i.record(domain.ActionSelected, name, path, current)
	return true
}

// RemoveOld deletes every Proton-GE directory in the runners root except keep
// and returns the names removed. Directories that cannot be removed are
// logged and skipped.
func (i *Installer) RemoveOld(keep string) []string {
	entries, err := afero.ReadDir(i.fs, i.runnersDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("root", i.runnersDir).Msg("could not list runners")
		}
		return nil
	}

	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() || !domain.IsGEProtonName(entry.Name()) || entry.Name() == keep {
			continue
		}
		path := filepath.Join(i.runnersDir, entry.Name())
		if err := i.fs.RemoveAll(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not remove old runner")
			continue
		}
		log.Info().Str("runner", entry.Name()).Msg("removed old Proton-GE")
		removed = append(removed, entry.Name())
		i.record(domain.ActionRemoved, entry.Name(), path, "")
	}
	return removed
}

func (i *Installer) record(action domain.RunnerAction, name, path, detail string) {
	if i.history == nil {
		return
	}
	event := domain.RunnerEvent{
		Action: action,
		Name:   name,
		Path:   path,
		Detail: detail,
		At:     i.clock.Now().UTC(),
	}
	if err := i.history.RecordRunnerEvent(event); err != nil {
		log.Warn().Err(err).Str("action", string(action)).Msg("could not record runner history")
	}
}

// removeDirs deletes entries moved into the runners root by a failed install
func (i *Installer) removeDirs(names []string) {
	for _, name := range names {
		if err := i.fs.RemoveAll(filepath.Join(i.runnersDir, name)); err != nil {
			log.Warn().Err(err).Str("dir", name).Msg("could not remove unusable extracted directory")
		}
	}
}

func (i *Installer) removeArchive(path string) {
	if err := i.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("could not remove downloaded archive")
	}
}

// phaseError attributes a failure to cancellation when ctx is done, otherwise
// to the phase sentinel
func phaseError(ctx context.Context, sentinel, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("install cancelled: %w", ctxErr)
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
