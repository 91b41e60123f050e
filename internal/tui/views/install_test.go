package views_test

import (
	"errors"
	"testing"

	"github.com/DonovanMods/protonctl/internal/core"
	"github.com/DonovanMods/protonctl/internal/domain"
	"github.com/DonovanMods/protonctl/internal/tui/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installView(info *domain.ReleaseInfo) views.InstallView {
	model, _ := views.NewInstallView(views.NewKeyMap("vim")).Update(views.ReleaseLoadedMsg{Info: info})
	return model.(views.InstallView)
}

func TestInstallView_Loading(t *testing.T) {
	v := views.NewInstallView(views.NewKeyMap("vim"))
	assert.Contains(t, v.View(), "Checking for the latest release")
	assert.NotNil(t, v.Init())
}

func TestInstallView_StartInstall(t *testing.T) {
	v := installView(&domain.ReleaseInfo{Name: "GE-Proton9-20", SizeFormatted: "420 MB", InstalledVersions: []string{}})
	assert.Contains(t, v.View(), "i: install GE-Proton9-20")

	model, cmd := v.Update(runes("i"))
	require.NotNil(t, cmd)
	_, ok := cmd().(views.StartInstallMsg)
	assert.True(t, ok)
	assert.True(t, model.(views.InstallView).Installing())

	// A second press while installing is ignored
	_, cmd = model.Update(runes("i"))
	assert.Nil(t, cmd)
}

func TestInstallView_NothingToInstall(t *testing.T) {
	v := installView(&domain.ReleaseInfo{Name: "GE-Proton9-20", AlreadyInstalled: true, InstalledVersions: []string{"GE-Proton9-20"}})
	assert.Contains(t, v.View(), "up to date")

	_, cmd := v.Update(runes("i"))
	assert.Nil(t, cmd)
}

func TestInstallView_Progress(t *testing.T) {
	v := installView(&domain.ReleaseInfo{Name: "GE-Proton9-20"})
	model, _ := v.Update(runes("i"))

	model, _ = model.Update(views.InstallProgressMsg{Percent: 42, Status: "Downloading... 176 MB / 420 MB"})
	iv := model.(views.InstallView)
	assert.Equal(t, 42.0, iv.Percent())
	assert.Contains(t, iv.View(), "Downloading... 176 MB / 420 MB")

	model, _ = model.Update(views.InstallDoneMsg{Result: &core.InstallResult{
		Name:    "GE-Proton9-20",
		Message: "GE-Proton9-20 installed successfully",
		Removed: []string{"GE-Proton8-25"},
	}})
	iv = model.(views.InstallView)
	assert.False(t, iv.Installing())
	assert.Equal(t, 100.0, iv.Percent())
	assert.Contains(t, iv.View(), "installed successfully")
	assert.Contains(t, iv.View(), "Removed: GE-Proton8-25")
}

func TestInstallView_Errors(t *testing.T) {
	model, _ := views.NewInstallView(views.NewKeyMap("vim")).Update(views.ReleaseLoadedMsg{Err: domain.ErrReleaseFeed})
	assert.Contains(t, model.View(), "Could not check releases")

	v := installView(&domain.ReleaseInfo{Name: "GE-Proton9-20"})
	model, _ = v.Update(runes("i"))
	model, _ = model.Update(views.InstallDoneMsg{Err: errors.New("download failed: HTTP 503")})
	assert.Contains(t, model.View(), "Install failed: download failed: HTTP 503")
}
