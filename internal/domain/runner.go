package domain

import "strings"

// RunnerAuto is the preference value that defers runner choice to auto-detection
const RunnerAuto = "auto"

// ProtonScript is the launch script every Proton distribution ships at its top level
const ProtonScript = "proton"

// RunnerType tells the launch builder how to invoke a runner
type RunnerType string

const (
	RunnerProton RunnerType = "proton"
	RunnerWine   RunnerType = "wine"
)

// RunnerSource records where a runner was discovered
type RunnerSource string

const (
	SourceSteam  RunnerSource = "steam"  // Found under a Steam library or compatibilitytools.d
	SourceCustom RunnerSource = "custom" // Found under protonctl's own runners directory
	SourceSystem RunnerSource = "system" // Wine found on PATH
)

// Runner is a Proton or Wine installation able to execute a Windows binary.
// Runners are never persisted; only Path ends up in configuration.
type Runner struct {
	Name    string       `json:"name"`
	Path    string       `json:"path"`
	Type    RunnerType   `json:"type"`
	Version string       `json:"version,omitempty"`
	Source  RunnerSource `json:"source,omitempty"`
}

// IsAutoPreference reports whether a runner preference means "auto-detect".
// An empty value counts as unset and is treated the same way.
func IsAutoPreference(pref string) bool {
	return pref == "" || pref == RunnerAuto
}

// IsGEProtonName reports whether a directory name looks like a Proton-GE build
func IsGEProtonName(name string) bool {
	return strings.Contains(strings.ToLower(name), "ge-proton")
}

// ReleaseInfo describes the latest Proton-GE release and how it relates to what
// is installed locally. It is recomputed on every query.
type ReleaseInfo struct {
	Name              string   `json:"name"`
	FileName          string   `json:"fileName"`
	Size              int64    `json:"size"`
	SizeFormatted     string   `json:"sizeFormatted"`
	DownloadURL       string   `json:"downloadUrl"`
	InstallPath       string   `json:"installPath"`
	AlreadyInstalled  bool     `json:"alreadyInstalled"`
	InstalledVersions []string `json:"installedVersions"`
	UpdateAvailable   bool     `json:"updateAvailable"`
}
