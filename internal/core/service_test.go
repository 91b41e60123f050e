package core_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DonovanMods/protonctl/internal/core"
	"github.com/DonovanMods/protonctl/internal/domain"
	"github.com/DonovanMods/protonctl/internal/source/github"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc  *core.Service
	home string
	feed *fakeFeed
}

func newTestService(t *testing.T, wine *fakeWine) *serviceFixture {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("STEAM_ROOT", "")

	root := t.TempDir()
	f := &serviceFixture{
		home: filepath.Join(root, "home"),
		feed: &fakeFeed{texts: map[string]string{}},
	}
	require.NoError(t, os.MkdirAll(f.home, 0755))

	if wine == nil {
		wine = &fakeWine{}
	}
	svc, err := core.NewService(core.ServiceConfig{
		ConfigDir: filepath.Join(root, "config"),
		DataDir:   filepath.Join(root, "data"),
		CacheDir:  filepath.Join(root, "cache"),
		HomeDir:   f.home,
		Wine:      wine,
		Feed:      f.feed,
		Clock:     clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	f.svc = svc
	return f
}

func TestNewService_CreatesLayout(t *testing.T) {
	f := newTestService(t, nil)

	assert.DirExists(t, f.svc.ConfigDir())
	assert.DirExists(t, f.svc.RunnersDir())
	assert.DirExists(t, f.svc.CompatDataDir())
	assert.DirExists(t, filepath.Join(f.svc.CacheDir(), "downloads"))
	assert.Equal(t, filepath.Join(f.svc.DataDir(), "runners"), f.svc.RunnersDir())
	assert.Equal(t, filepath.Join(f.home, ".steam", "steam"), f.svc.SteamInstallPath())
	assert.Equal(t, "auto", f.svc.Config().LinuxRunner)
}

func TestService_ListRunners(t *testing.T) {
	f := newTestService(t, &fakeWine{path: "/usr/bin/wine", version: "wine-9.0"})
	osfs := afero.NewOsFs()
	makeProton(t, osfs, filepath.Join(f.home, ".steam", "root", "steamapps", "common", "Proton 8.0"))
	makeProton(t, osfs, filepath.Join(f.svc.RunnersDir(), "GE-Proton9-20"))

	runners := f.svc.ListRunners(context.Background())
	assert.Equal(t, []string{"GE-Proton9-20", "Proton 8.0", "System Wine"}, names(runners))
	assert.Equal(t, domain.SourceCustom, runners[0].Source)
	assert.Equal(t, domain.SourceSteam, runners[1].Source)
}

func TestService_SelectRunner(t *testing.T) {
	f := newTestService(t, nil)
	osfs := afero.NewOsFs()
	proton := makeProton(t, osfs, filepath.Join(f.svc.RunnersDir(), "GE-Proton9-20"))
	wineBin := makeFile(t, osfs, filepath.Join(f.home, "wine-tkg", "bin", "wine"), 0755)
	empty := filepath.Join(f.home, "empty")
	require.NoError(t, os.MkdirAll(empty, 0755))

	runner, err := f.svc.SelectRunner(proton)
	require.NoError(t, err)
	assert.Equal(t, domain.RunnerProton, runner.Type)
	pref, err := f.svc.GlobalRunner()
	require.NoError(t, err)
	assert.Equal(t, proton, pref)

	runner, err = f.svc.SelectRunner(wineBin)
	require.NoError(t, err)
	assert.Equal(t, core.CustomWineName, runner.Name)
	assert.Equal(t, wineBin, runner.Path)

	runner, err = f.svc.SelectRunner(filepath.Join(f.home, "wine-tkg"))
	require.NoError(t, err)
	assert.Equal(t, "Wine (wine-tkg)", runner.Name)

	_, err = f.svc.SelectRunner(empty)
	assert.ErrorIs(t, err, domain.ErrNoRunnerInFolder)

	runner, err = f.svc.SelectRunner("auto")
	require.NoError(t, err)
	assert.Nil(t, runner)
	pref, _ = f.svc.GlobalRunner()
	assert.Equal(t, "auto", pref)

	events, err := f.svc.RunnerHistory(10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for _, e := range events {
		assert.Equal(t, domain.ActionSelected, e.Action)
		assert.True(t, e.At.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)), "selection stamped by the service clock")
	}
}

func TestService_ResolveRunner_GameOverride(t *testing.T) {
	f := newTestService(t, &fakeWine{path: "/usr/bin/wine", version: "wine-9.0"})
	proton := makeProton(t, afero.NewOsFs(), filepath.Join(f.home, "protons", "Proton-Custom"))

	require.NoError(t, f.svc.AddGame(&domain.Game{ID: "witcher3", Name: "The Witcher 3", Executable: "/games/w3/witcher3.exe"}))

	runner, err := f.svc.ResolveRunner(context.Background(), "witcher3", "")
	require.NoError(t, err)
	assert.Equal(t, "System Wine", runner.Name)

	require.NoError(t, f.svc.SetGameRunner("witcher3", proton))
	runner, err = f.svc.ResolveRunner(context.Background(), "witcher3", "")
	require.NoError(t, err)
	assert.Equal(t, proton, runner.Path)

	require.NoError(t, f.svc.SetGameRunner("witcher3", "auto"))
	runner, err = f.svc.ResolveRunner(context.Background(), "witcher3", "")
	require.NoError(t, err)
	assert.Equal(t, "System Wine", runner.Name)

	_, err = f.svc.ResolveRunner(context.Background(), "missing", "")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}

func TestService_PlanLaunch(t *testing.T) {
	f := newTestService(t, &fakeWine{path: "/usr/bin/wine", version: "wine-9.0"})

	_, err := f.svc.PlanLaunch(context.Background(), "Native", "/games/native/run.sh", "")
	assert.ErrorIs(t, err, domain.ErrNotWindowsExecutable)

	cfg, err := f.svc.PlanLaunch(context.Background(), "My Game!", "/games/My Game!/game.exe", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.svc.CompatDataDir(), "My_Game", "pfx"), cfg.Env[domain.EnvWinePrefix])

	require.NoError(t, f.svc.AddGame(&domain.Game{ID: "mygame", Name: "My Game!", Executable: "/games/My Game!/game.exe"}))
	cfg, err = f.svc.PlanGameLaunch(context.Background(), "mygame", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/bin/wine", "/games/My Game!/game.exe"}, cfg.Cmd)

	_, err = f.svc.PlanGameLaunch(context.Background(), "nope", "")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}

func TestService_ListGames(t *testing.T) {
	f := newTestService(t, nil)
	require.NoError(t, f.svc.AddGame(&domain.Game{ID: "zeta", Name: "Zeta", Executable: "/z.exe"}))
	require.NoError(t, f.svc.AddGame(&domain.Game{ID: "alpha", Name: "Alpha", Executable: "/a.exe"}))

	games := f.svc.ListGames()
	require.Len(t, games, 2)
	assert.Equal(t, "alpha", games[0].ID)
	assert.Equal(t, "zeta", games[1].ID)

	assert.ErrorIs(t, f.svc.AddGame(&domain.Game{Name: "No ID"}), domain.ErrInvalidConfig)

	require.NoError(t, f.svc.RemoveGame("zeta"))
	assert.Len(t, f.svc.ListGames(), 1)
	assert.ErrorIs(t, f.svc.RemoveGame("zeta"), domain.ErrGameNotFound)
}

func TestService_InstallLatest(t *testing.T) {
	f := newTestService(t, nil)
	archive := protonTarball(t, latestTag)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	f.feed.release = &github.Release{
		TagName: latestTag,
		Assets: []github.Asset{
			{Name: latestTag + ".tar.gz", Size: int64(len(archive)), BrowserDownloadURL: srv.URL + "/" + latestTag + ".tar.gz"},
		},
	}

	info, err := f.svc.LatestRelease(context.Background())
	require.NoError(t, err)
	assert.False(t, info.AlreadyInstalled)

	res, err := f.svc.InstallLatest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.svc.RunnersDir(), latestTag), res.Path)
	assert.True(t, res.PreferenceUpdated)

	pref, err := f.svc.GlobalRunner()
	require.NoError(t, err)
	assert.Equal(t, res.Path, pref)

	events, err := f.svc.RunnerHistory(10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.ActionInstalled, events[0].Action)
	assert.Equal(t, domain.ActionSelected, events[1].Action)

	assert.Empty(t, f.svc.RemoveOldRunners(latestTag))

	entries, err := os.ReadDir(filepath.Join(f.svc.CacheDir(), "downloads"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_GitHubToken(t *testing.T) {
	f := newTestService(t, nil)

	has, err := f.svc.HasGitHubToken()
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, f.svc.SaveGitHubToken("ghp_test123"))
	has, err = f.svc.HasGitHubToken()
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, f.svc.DeleteGitHubToken())
	has, err = f.svc.HasGitHubToken()
	require.NoError(t, err)
	assert.False(t, has)
}

func TestService_CleanDownloads(t *testing.T) {
	f := newTestService(t, nil)
	leftover := filepath.Join(f.svc.CacheDir(), "downloads", "GE-Proton9-1.tar.gz.part")
	require.NoError(t, os.WriteFile(leftover, make([]byte, 2048), 0644))

	count, size, err := f.svc.CleanDownloads()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(2048), size)
	assert.NoFileExists(t, leftover)
}
