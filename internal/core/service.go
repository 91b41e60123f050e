package core

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/DonovanMods/protonctl/internal/domain"
	"github.com/DonovanMods/protonctl/internal/source/github"
	"github.com/DonovanMods/protonctl/internal/source/steam"
	"github.com/DonovanMods/protonctl/internal/storage/cache"
	"github.com/DonovanMods/protonctl/internal/storage/config"
	"github.com/DonovanMods/protonctl/internal/storage/db"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// GitHubTokenSource is the auth_tokens key of the GitHub API token
const GitHubTokenSource = "github"

// ServiceConfig holds configuration for the core service
type ServiceConfig struct {
	ConfigDir string // Directory for configuration files
	DataDir   string // Directory for runners, compat data, database and logs
	CacheDir  string // Directory for in-flight downloads
	HomeDir   string // Home directory searched for Steam; defaults to the user's

	// Optional collaborators, replaced in tests
	Fs         afero.Fs
	HTTPClient *http.Client
	Wine       WineProbe
	Feed       ReleaseFeed
	Clock      clockwork.Clock
}

// Service wires the runner inventory, resolver, prefix manager, installer
// and launch builder together over protonctl's configuration and storage
type Service struct {
	config *config.Config
	db     *db.DB
	cache  *cache.Cache
	games  map[string]*domain.Game
	fs     afero.Fs
	clock  clockwork.Clock

	prefs     *config.PreferenceStore
	steam     *steam.Locator
	github    *github.Client
	inventory *Inventory
	resolver  *Resolver
	prefixes  *PrefixManager
	installer *Installer
	launcher  *LaunchBuilder

	configDir string
	dataDir   string
}

// NewService creates a new core service instance
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.HomeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("home directory: %w", err)
		}
		cfg.HomeDir = home
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient(DefaultRetryOptions())
	}
	if cfg.Wine == nil {
		cfg.Wine = NewSystemWine(nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	runnersDir := filepath.Join(cfg.DataDir, "runners")
	compatDir := filepath.Join(cfg.DataDir, "compatdata")
	for _, dir := range []string{cfg.ConfigDir, cfg.DataDir, runnersDir, compatDir} {
		if err := cfg.Fs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	appConfig, err := config.Load(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	database, err := db.New(filepath.Join(cfg.DataDir, "protonctl.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	games, err := config.LoadGames(cfg.ConfigDir)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("loading games: %w", err)
	}

	downloads := cache.New(cfg.Fs, cfg.CacheDir)
	if err := downloads.Ensure(); err != nil {
		database.Close()
		return nil, err
	}

	s := &Service{
		config:    appConfig,
		db:        database,
		cache:     downloads,
		games:     games,
		fs:        cfg.Fs,
		clock:     cfg.Clock,
		prefs:     config.NewPreferenceStore(cfg.ConfigDir),
		steam:     steam.NewLocator(cfg.Fs, cfg.HomeDir),
		configDir: cfg.ConfigDir,
		dataDir:   cfg.DataDir,
	}

	s.github = github.NewClient(cfg.HTTPClient, appConfig.ReleaseRepo, s.githubToken())
	feed := cfg.Feed
	if feed == nil {
		feed = s.github
	}

	s.inventory = NewInventory(cfg.Fs, s.steam.ProtonSearchRoots(), runnersDir, cfg.Wine)
	s.resolver = NewResolver(cfg.Fs, s.inventory, s.prefs)
	s.prefixes = NewPrefixManager(cfg.Fs, compatDir)
	s.launcher = NewLaunchBuilder(cfg.Fs, s.resolver, s.prefixes, s.steam)
	s.installer = NewInstaller(InstallerConfig{
		Fs:          cfg.Fs,
		RunnersDir:  runnersDir,
		DownloadDir: downloads.DownloadsDir(),
		Feed:        feed,
		HTTPClient:  cfg.HTTPClient,
		Prefs:       s.prefs,
		History:     database,
		Clock:       cfg.Clock,
	})

	return s, nil
}

// Close releases resources held by the service
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// githubToken prefers GITHUB_TOKEN over a stored token
func (s *Service) githubToken() string {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}
	stored, err := s.db.GetToken(GitHubTokenSource)
	if err != nil {
		log.Warn().Err(err).Msg("could not read stored GitHub token")
		return ""
	}
	if stored == nil {
		return ""
	}
	return stored.Value
}

// Config returns the loaded configuration
func (s *Service) Config() *config.Config { return s.config }

// ConfigDir returns the configuration directory
func (s *Service) ConfigDir() string { return s.configDir }

// DataDir returns the data directory
func (s *Service) DataDir() string { return s.dataDir }

// CacheDir returns the cache directory
func (s *Service) CacheDir() string { return s.cache.Path() }

// RunnersDir returns the directory protonctl installs runners into
func (s *Service) RunnersDir() string { return s.inventory.RunnersDir() }

// CompatDataDir returns the compatibility data root
func (s *Service) CompatDataDir() string { return s.prefixes.Root() }

// Prefixes returns the compat data manager
func (s *Service) Prefixes() *PrefixManager { return s.prefixes }

// SteamInstallPath returns the advisory Steam client path
func (s *Service) SteamInstallPath() string { return s.steam.InstallPath() }

// ListRunners returns every detected runner, Proton builds before Wine
func (s *Service) ListRunners(ctx context.Context) []domain.Runner {
	return s.inventory.AllRunners(ctx)
}

// ResolveRunner resolves the runner for a game. gameID may be empty; an
// explicit override takes precedence over the game's stored override.
func (s *Service) ResolveRunner(ctx context.Context, gameID, override string) (*domain.Runner, error) {
	if override == "" && gameID != "" {
		game, err := s.GetGame(gameID)
		if err != nil {
			return nil, err
		}
		override = game.RunnerOverride()
	}
	return s.resolver.Resolve(ctx, override)
}

// GlobalRunner returns the global runner preference
func (s *Service) GlobalRunner() (string, error) {
	return s.prefs.GlobalRunner()
}

// SelectRunner sets the global runner preference. "auto" resets it; any
// other value must be a Wine binary or a folder holding Proton or Wine.
func (s *Service) SelectRunner(path string) (*domain.Runner, error) {
	previous, _ := s.prefs.GlobalRunner()

	if domain.IsAutoPreference(path) {
		if err := s.prefs.SetGlobalRunner(domain.RunnerAuto); err != nil {
			return nil, fmt.Errorf("saving runner preference: %w", err)
		}
		s.config.LinuxRunner = domain.RunnerAuto
		return nil, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	var runner *domain.Runner
	if info, statErr := s.fs.Stat(abs); statErr == nil && !info.IsDir() {
		runner = &domain.Runner{Name: CustomWineName, Path: abs, Type: domain.RunnerWine, Source: domain.SourceCustom}
	} else if runner, err = SelectCustomRunner(s.fs, abs); err != nil {
		return nil, err
	}

	// Proton is stored as its folder, Wine as the binary itself
	if err := s.prefs.SetGlobalRunner(runner.Path); err != nil {
		return nil, fmt.Errorf("saving runner preference: %w", err)
	}
	s.config.LinuxRunner = runner.Path

	if err := s.db.RecordRunnerEvent(domain.RunnerEvent{
		Action: domain.ActionSelected,
		Name:   runner.Name,
		Path:   runner.Path,
		Detail: previous,
		At:     s.clock.Now().UTC(),
	}); err != nil {
		log.Warn().Err(err).Msg("could not record runner selection")
	}
	return runner, nil
}

// LatestRelease reports the latest Proton-GE release against local installs
func (s *Service) LatestRelease(ctx context.Context) (*domain.ReleaseInfo, error) {
	return s.installer.Info(ctx)
}

// InstallLatest downloads and installs the latest Proton-GE build
func (s *Service) InstallLatest(ctx context.Context, progress ProgressFunc) (*InstallResult, error) {
	return s.installer.Install(ctx, progress)
}

// RemoveOldRunners deletes every Proton-GE build except keep
func (s *Service) RemoveOldRunners(keep string) []string {
	return s.installer.RemoveOld(keep)
}

// RunnerHistory returns recent install, removal and selection events
func (s *Service) RunnerHistory(limit int) ([]domain.RunnerEvent, error) {
	return s.db.ListRunnerEvents(limit)
}

// PlanLaunch builds the launch configuration for a Windows executable
func (s *Service) PlanLaunch(ctx context.Context, gameName, exePath, override string) (*domain.LaunchConfig, error) {
	if !domain.IsWindowsExecutable(exePath) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotWindowsExecutable, exePath)
	}
	return s.launcher.Build(ctx, gameName, exePath, override)
}

// PlanGameLaunch builds the launch configuration for a configured game.
// A non-empty override replaces the game's stored override.
func (s *Service) PlanGameLaunch(ctx context.Context, gameID, override string) (*domain.LaunchConfig, error) {
	game, err := s.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	if override == "" {
		override = game.RunnerOverride()
	}
	return s.PlanLaunch(ctx, game.Name, game.Executable, override)
}

// GetGame retrieves a configured game by ID
func (s *Service) GetGame(gameID string) (*domain.Game, error) {
	game, ok := s.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGameNotFound, gameID)
	}
	return game, nil
}

// ListGames returns all configured games sorted by ID
func (s *Service) ListGames() []*domain.Game {
	games := make([]*domain.Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })
	return games
}

// AddGame adds or replaces a game in games.yaml
func (s *Service) AddGame(game *domain.Game) error {
	if game.ID == "" {
		return fmt.Errorf("%w: game ID is required", domain.ErrInvalidConfig)
	}
	if err := config.SaveGame(s.configDir, game); err != nil {
		return err
	}
	s.games[game.ID] = game
	return nil
}

// SetGameRunner stores a per-game runner override; "auto" clears it
func (s *Service) SetGameRunner(gameID, runner string) error {
	if err := config.SetGameRunner(s.configDir, gameID, runner); err != nil {
		return err
	}
	if domain.IsAutoPreference(runner) {
		runner = ""
	}
	if game, ok := s.games[gameID]; ok {
		game.Runner = runner
	}
	return nil
}

// RemoveGame deletes a game from games.yaml. Its compat data is left in place.
func (s *Service) RemoveGame(gameID string) error {
	if err := config.DeleteGame(s.configDir, gameID); err != nil {
		return err
	}
	delete(s.games, gameID)
	return nil
}

// SaveGitHubToken stores a GitHub API token and starts using it
func (s *Service) SaveGitHubToken(token string) error {
	if err := s.db.SaveToken(GitHubTokenSource, token); err != nil {
		return err
	}
	s.github.SetToken(token)
	return nil
}

// DeleteGitHubToken removes the stored GitHub API token
func (s *Service) DeleteGitHubToken() error {
	if err := s.db.DeleteToken(GitHubTokenSource); err != nil {
		return err
	}
	s.github.SetToken(os.Getenv("GITHUB_TOKEN"))
	return nil
}

// HasGitHubToken reports whether a GitHub token is stored
func (s *Service) HasGitHubToken() (bool, error) {
	return s.db.HasToken(GitHubTokenSource)
}

// CacheSize returns the bytes held by leftover downloads
func (s *Service) CacheSize() (int64, error) {
	return s.cache.Size()
}

// ReleaseRepo returns the GitHub repository Proton-GE releases come from
func (s *Service) ReleaseRepo() string { return s.github.Repo() }

// GitHubAuthenticated reports whether release feed requests carry a token
func (s *Service) GitHubAuthenticated() bool { return s.github.IsAuthenticated() }

// CleanDownloads removes archives left behind by interrupted installs
func (s *Service) CleanDownloads() (int, int64, error) {
	return s.cache.Clean()
}
