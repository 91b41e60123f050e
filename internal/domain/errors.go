package domain

import "errors"

var (
	ErrGameNotFound         = errors.New("game not found")
	ErrInvalidGameName      = errors.New("game name has no filesystem-safe characters")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrNoRunner             = errors.New("no compatible runner found")
	ErrUnknownRunnerType    = errors.New("unknown runner type")
	ErrNoRunnerInFolder     = errors.New("no proton or wine installation found in folder")
	ErrNotWindowsExecutable = errors.New("not a windows executable")
	ErrReleaseFeed          = errors.New("release feed unavailable")
	ErrNoReleaseAsset       = errors.New("no tar.gz asset found in the latest release")
	ErrDownloadFailed       = errors.New("download failed")
	ErrExtractionFailed     = errors.New("extraction failed")
	ErrInstallVerify        = errors.New("extraction succeeded but proton script not found")
)
