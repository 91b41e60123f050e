package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/DonovanMods/protonctl/internal/domain"
	"github.com/DonovanMods/protonctl/internal/source/github"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ReleaseFeed lists the latest runner release and fetches small text assets
type ReleaseFeed interface {
	LatestRelease(ctx context.Context) (*github.Release, error)
	FetchText(ctx context.Context, url string, limit int64) (string, error)
}

// selectTarball picks the first .tar.gz asset that is not a checksum file
func selectTarball(assets []github.Asset) (*github.Asset, bool) {
	for i := range assets {
		name := assets[i].Name
		if strings.HasSuffix(name, ".tar.gz") && !strings.Contains(name, "sha512sum") {
			return &assets[i], true
		}
	}
	return nil, false
}

// selectChecksum picks the .sha512sum asset for tarball, preferring an exact name match
func selectChecksum(assets []github.Asset, tarball string) (*github.Asset, bool) {
	want := strings.TrimSuffix(tarball, ".tar.gz") + ".sha512sum"
	var fallback *github.Asset
	for i := range assets {
		switch {
		case assets[i].Name == want:
			return &assets[i], true
		case fallback == nil && strings.HasSuffix(assets[i].Name, ".sha512sum"):
			fallback = &assets[i]
		}
	}
	return fallback, fallback != nil
}

// Info reports the latest release and how it relates to local installs.
// It has no side effects.
func (i *Installer) Info(ctx context.Context) (*domain.ReleaseInfo, error) {
	info, _, err := i.latest(ctx)
	return info, err
}

func (i *Installer) latest(ctx context.Context) (*domain.ReleaseInfo, *github.Release, error) {
	release, err := i.feed.LatestRelease(ctx)
	if err != nil {
		return nil, nil, err
	}

	asset, ok := selectTarball(release.Assets)
	if !ok {
		return nil, nil, fmt.Errorf("%w (%s)", domain.ErrNoReleaseAsset, release.TagName)
	}

	installPath := filepath.Join(i.runnersDir, release.TagName)
	installed := i.InstalledVersions()
	alreadyInstalled := HasProtonScript(i.fs, installPath)

	return &domain.ReleaseInfo{
		Name:              release.TagName,
		FileName:          asset.Name,
		Size:              asset.Size,
		SizeFormatted:     humanize.Bytes(uint64(asset.Size)),
		DownloadURL:       asset.BrowserDownloadURL,
		InstallPath:       installPath,
		AlreadyInstalled:  alreadyInstalled,
		InstalledVersions: installed,
		UpdateAvailable:   len(installed) > 0 && !alreadyInstalled,
	}, release, nil
}

// InstalledVersions lists the Proton-GE directories under the runners root
// that hold a proton script
func (i *Installer) InstalledVersions() []string {
	entries, err := afero.ReadDir(i.fs, i.runnersDir)
	if err != nil {
		return []string{}
	}

	versions := []string{}
	for _, entry := range entries {
		if !entry.IsDir() || !domain.IsGEProtonName(entry.Name()) {
			continue
		}
		if HasProtonScript(i.fs, filepath.Join(i.runnersDir, entry.Name())) {
			versions = append(versions, entry.Name())
		}
	}
	return versions
}

// verifyChecksum compares the download against the release's sha512sum asset.
// Releases without one, or whose checksum cannot be fetched, are accepted.
func (i *Installer) verifyChecksum(ctx context.Context, release *github.Release, tarball, got string) error {
	asset, ok := selectChecksum(release.Assets, tarball)
	if !ok {
		return nil
	}

	text, err := i.feed.FetchText(ctx, asset.BrowserDownloadURL, 4096)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Str("asset", asset.Name).Msg("could not fetch checksum, skipping verification")
		return nil
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		log.Warn().Str("asset", asset.Name).Msg("empty checksum file, skipping verification")
		return nil
	}
	if !strings.EqualFold(fields[0], got) {
		return fmt.Errorf("%w: checksum mismatch for %s", domain.ErrDownloadFailed, tarball)
	}

	log.Debug().Str("file", tarball).Msg("sha512 checksum verified")
	return nil
}
